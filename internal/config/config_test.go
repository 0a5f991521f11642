package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GEMINI_API_KEY", "API_KEY", "LERN_BACKEND", "LERN_SERVER_PORT", "LERN_REQUEST_TIMEOUT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "fehlt.json"))
	if err != nil {
		t.Fatalf("missing file must not fail: %v", err)
	}
	def := Default()
	if cfg.ServerPort != def.ServerPort || cfg.Backend != "gemini" || cfg.TextModel != "gemini-2.5-flash" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.RequestTimeout != 2*time.Minute {
		t.Fatalf("timeout: want=%v got=%v", 2*time.Minute, cfg.RequestTimeout)
	}
	if cfg.GeminiAPIKey != "" {
		t.Fatalf("no key expected")
	}
}

func TestLoadFileAndEnvOverlay(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"server_port":"9000","backend":"ollama","ollama_model":"llama3"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LERN_SERVER_PORT", "9100")
	t.Setenv("LERN_REQUEST_TIMEOUT", "30s")
	t.Setenv("API_KEY", "  geheim  ")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != "ollama" || cfg.OllamaModel != "llama3" {
		t.Fatalf("file values: %+v", cfg)
	}
	if cfg.ServerPort != "9100" {
		t.Fatalf("env must win over file: got=%s", cfg.ServerPort)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Fatalf("timeout: got=%v", cfg.RequestTimeout)
	}
	if cfg.GeminiAPIKey != "geheim" {
		t.Fatalf("api key: got=%q", cfg.GeminiAPIKey)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("LERN_BACKEND", "openai")

	cfg, err := Load("")
	if err == nil {
		t.Fatalf("want validation error")
	}
	if cfg == nil || cfg.Backend != "gemini" {
		t.Fatalf("defaults expected on failure, got %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"ollama", func(c *Config) { c.Backend = "ollama" }, false},
		{"unknown backend", func(c *Config) { c.Backend = "" }, true},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("wantErr=%v got=%v", tt.wantErr, err)
			}
		})
	}
}

func TestSaveOmitsAPIKey(t *testing.T) {
	cfg := Default()
	cfg.GeminiAPIKey = "geheim"
	path := filepath.Join(t.TempDir(), "out.json")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 || strings.Contains(string(data), "geheim") {
		t.Fatalf("saved config must not contain the key: %s", data)
	}
}
