package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config enthält alle Konfigurationseinstellungen
type Config struct {
	// Server-Einstellungen
	ServerPort string `json:"server_port" mapstructure:"server_port"`
	LogMode    string `json:"log_mode" mapstructure:"log_mode"` // development, production
	StaticPath string `json:"static_path" mapstructure:"static_path"`

	// Pfade
	DatabasePath   string `json:"database_path" mapstructure:"database_path"`
	CurriculumPath string `json:"curriculum_path" mapstructure:"curriculum_path"`

	// Generierungs-Backend
	Backend        string        `json:"backend" mapstructure:"backend"` // gemini, ollama
	GeminiAPIKey   string        `json:"-" mapstructure:"-"`
	GeminiBaseURL  string        `json:"gemini_base_url" mapstructure:"gemini_base_url"`
	TextModel      string        `json:"text_model" mapstructure:"text_model"`
	ImageModel     string        `json:"image_model" mapstructure:"image_model"`
	OllamaURL      string        `json:"ollama_url" mapstructure:"ollama_url"`
	OllamaModel    string        `json:"ollama_model" mapstructure:"ollama_model"`
	RequestTimeout time.Duration `json:"request_timeout" mapstructure:"request_timeout"`

	// Maximale Länge des Lehrplan-Auszugs im Prompt (Zeichen)
	CurriculumExcerptRunes int `json:"curriculum_excerpt_runes" mapstructure:"curriculum_excerpt_runes"`
}

// Default gibt die Standardkonfiguration zurück
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		ServerPort:             "8080",
		LogMode:                "development",
		StaticPath:             "./web/static",
		DatabasePath:           "lernabenteuer.db",
		CurriculumPath:         filepath.Join(homeDir, "Lehrplan"),
		Backend:                "gemini",
		GeminiBaseURL:          "https://generativelanguage.googleapis.com/",
		TextModel:              "gemini-2.5-flash",
		ImageModel:             "imagen-4.0-generate-001",
		OllamaURL:              "http://localhost:11434",
		OllamaModel:            "qwen2.5:7b",
		RequestTimeout:         2 * time.Minute,
		CurriculumExcerptRunes: 1500,
	}
}

// Load lädt die Konfiguration aus einer JSON-Datei und überlagert sie mit
// Umgebungsvariablen (Präfix LERN_). Eine fehlende Datei ist kein Fehler.
func Load(path string) (*Config, error) {
	// .env ist optional
	_ = godotenv.Load()

	def := Default()

	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix("LERN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server_port", def.ServerPort)
	v.SetDefault("log_mode", def.LogMode)
	v.SetDefault("static_path", def.StaticPath)
	v.SetDefault("database_path", def.DatabasePath)
	v.SetDefault("curriculum_path", def.CurriculumPath)
	v.SetDefault("backend", def.Backend)
	v.SetDefault("gemini_base_url", def.GeminiBaseURL)
	v.SetDefault("text_model", def.TextModel)
	v.SetDefault("image_model", def.ImageModel)
	v.SetDefault("ollama_url", def.OllamaURL)
	v.SetDefault("ollama_model", def.OllamaModel)
	v.SetDefault("request_timeout", def.RequestTimeout)
	v.SetDefault("curriculum_excerpt_runes", def.CurriculumExcerptRunes)

	// Schlüssel wird ausschließlich aus der Umgebung gelesen
	_ = v.BindEnv("gemini_api_key", "GEMINI_API_KEY", "API_KEY")

	var loadErr error
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				loadErr = fmt.Errorf("konfigurationsdatei %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return def, fmt.Errorf("konfiguration ungültig: %w", err)
	}
	cfg.GeminiAPIKey = strings.TrimSpace(v.GetString("gemini_api_key"))

	if err := cfg.Validate(); err != nil {
		return def, err
	}

	return cfg, loadErr
}

// Validate prüft die Konfiguration auf offensichtliche Fehler
func (c *Config) Validate() error {
	switch c.Backend {
	case "gemini", "ollama":
	default:
		return fmt.Errorf("unbekanntes backend: %q", c.Backend)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout muss positiv sein")
	}
	return nil
}

// Save speichert die Konfiguration in eine Datei (ohne API-Schlüssel)
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
