package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lernabenteuer/internal/logger"
)

// Backend definiert die Generierungs-Schnittstelle (Text und Bild)
type Backend interface {
	// GenerateText erzeugt Text zu einem Prompt mit Systemanweisung
	GenerateText(ctx context.Context, prompt, systemInstruction string) (string, error)

	// GenerateImage erzeugt ein Bild; schlägt unabhängig von Text fehl
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)

	// Available prüft ohne Netzwerkzugriff, ob Zugangsdaten vorhanden sind
	Available() bool

	// Name gibt den Namen des Backends zurück
	Name() string
}

// Pinger prüft die Erreichbarkeit über das Netzwerk (optional)
type Pinger interface {
	Ping(ctx context.Context) error
}

// ollamaSemaphore limitiert gleichzeitige Ollama-Anfragen (verhindert Speicherüberlauf)
var ollamaSemaphore = make(chan struct{}, 1)

// ModelInfo enthält Informationen über ein Modell
type ModelInfo struct {
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
}

// OllamaProvider implementiert Backend für einen lokalen Ollama-Server.
// Bilder werden nicht unterstützt.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
	log     *logger.Logger
}

// NewOllamaProvider erstellt einen neuen Ollama-Provider
func NewOllamaProvider(baseURL, model string, timeout time.Duration, log *logger.Logger) *OllamaProvider {
	if model == "" {
		model = "qwen2.5:7b"
	}
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	return &OllamaProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
		log:     log.With("component", "OllamaProvider"),
	}
}

func (o *OllamaProvider) Name() string {
	return "Ollama"
}

func (o *OllamaProvider) Available() bool {
	return o.baseURL != ""
}

func (o *OllamaProvider) Ping(ctx context.Context) error {
	_, err := o.GetModels(ctx)
	return err
}

func (o *OllamaProvider) GetModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama nicht erreichbar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Message: "tags nicht abrufbar"}
	}

	var result struct {
		Models []ModelInfo `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return result.Models, nil
}

func (o *OllamaProvider) GenerateText(ctx context.Context, prompt, systemInstruction string) (string, error) {
	if !o.Available() {
		return "", ErrNotConfigured
	}

	// Nur eine Anfrage gleichzeitig an Ollama
	select {
	case ollamaSemaphore <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-ollamaSemaphore }()

	reqBody := map[string]interface{}{
		"model":  o.model,
		"prompt": prompt,
		"stream": false,
	}
	if systemInstruction != "" {
		reqBody["system"] = systemInstruction
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	o.log.Debug("Sende Anfrage", "model", o.model, "prompt_chars", len(prompt))
	start := time.Now()

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama-anfrage fehlgeschlagen: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", parseOllamaError(resp.StatusCode, body)
	}

	var result struct {
		Response string `json:"response"`
		Done     bool   `json:"done"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("ollama-antwort ungültig: %w", err)
	}
	if strings.TrimSpace(result.Response) == "" {
		return "", ErrEmptyResponse
	}

	o.log.Debug("Antwort erhalten", "duration", time.Since(start), "chars", len(result.Response))
	return result.Response, nil
}

func (o *OllamaProvider) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	return nil, ErrImageUnsupported
}

func parseOllamaError(status int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		msg = payload.Error
	}
	return &APIError{Status: status, Message: msg}
}
