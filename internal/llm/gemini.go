package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"lernabenteuer/internal/logger"
)

// GeminiConfig konfiguriert den Gemini-Provider
type GeminiConfig struct {
	APIKey     string
	BaseURL    string // leer: Standard-Endpunkt des SDK
	APIVersion string
	TextModel  string
	ImageModel string
	Timeout    time.Duration
}

// GeminiProvider erzeugt Text und Bilder über das genai-SDK
type GeminiProvider struct {
	cfg    GeminiConfig
	client *genai.Client
	log    *logger.Logger
}

// NewGeminiProvider erstellt einen Provider. Ohne API-Schlüssel ist er
// nicht verfügbar und liefert ErrNotConfigured ohne Netzwerkzugriff.
func NewGeminiProvider(cfg GeminiConfig, log *logger.Logger) *GeminiProvider {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "v1beta"
	}
	if cfg.TextModel == "" {
		cfg.TextModel = "gemini-2.5-flash"
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = "imagen-4.0-generate-001"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}

	g := &GeminiProvider{
		cfg: cfg,
		log: log.With("component", "GeminiProvider"),
	}
	if cfg.APIKey == "" {
		return g
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    cfg.BaseURL,
			APIVersion: cfg.APIVersion,
		},
	})
	if err != nil {
		g.log.Error("Gemini-Client konnte nicht erstellt werden", "error", err)
		return g
	}
	g.client = client
	return g
}

func (g *GeminiProvider) Name() string {
	return "Gemini"
}

func (g *GeminiProvider) Available() bool {
	return g.client != nil
}

// Abbruchgründe, die auf einen Inhaltsfilter hinweisen
var blockedFinishReasons = map[string]bool{
	"SAFETY":             true,
	"PROHIBITED_CONTENT": true,
	"BLOCKLIST":          true,
	"SPII":               true,
	"IMAGE_SAFETY":       true,
}

func (g *GeminiProvider) GenerateText(ctx context.Context, prompt, systemInstruction string) (string, error) {
	if !g.Available() {
		return "", ErrNotConfigured
	}

	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}}
	config := &genai.GenerateContentConfig{}
	if systemInstruction != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}}
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.TextModel, contents, config)
	if err != nil {
		return "", fromGenAIError(err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", &APIError{Code: CodeSafety, Message: "prompt blockiert: " + string(resp.PromptFeedback.BlockReason)}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", ErrEmptyResponse
	}

	cand := resp.Candidates[0]
	if reason := string(cand.FinishReason); blockedFinishReasons[reason] {
		return "", &APIError{Code: CodeSafety, Message: "antwort blockiert: " + reason}
	}

	var sb strings.Builder
	if cand.Content != nil {
		for _, p := range cand.Content.Parts {
			if p != nil {
				sb.WriteString(p.Text)
			}
		}
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}

	g.log.Debug("Text generiert", "model", g.cfg.TextModel, "duration", time.Since(start), "chars", len(text))
	return text, nil
}

func (g *GeminiProvider) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if !g.Available() {
		return nil, ErrNotConfigured
	}

	resp, err := g.client.Models.GenerateImages(ctx, g.cfg.ImageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    "16:9",
	})
	if err != nil {
		return nil, fromGenAIError(err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0] == nil ||
		resp.GeneratedImages[0].Image == nil || len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
		return nil, ErrEmptyResponse
	}
	return resp.GeneratedImages[0].Image.ImageBytes, nil
}

// fromGenAIError überführt SDK-Fehler in APIError, damit ClassifyError
// Status und Code auswerten kann
func fromGenAIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Status: apiErr.Code, Code: apiErr.Status, Message: apiErr.Message}
	}
	return fmt.Errorf("gemini-anfrage fehlgeschlagen: %w", err)
}
