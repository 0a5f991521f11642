package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lernabenteuer/internal/api"
	"lernabenteuer/internal/config"
	"lernabenteuer/internal/curriculum"
	"lernabenteuer/internal/llm"
	"lernabenteuer/internal/logger"
	"lernabenteuer/internal/navigation"
	"lernabenteuer/internal/orchestrator"
	"lernabenteuer/internal/realtime"
	"lernabenteuer/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.json", "Pfad zur Konfigurationsdatei")
	port := flag.String("port", "", "Server-Port (überschreibt Konfiguration)")
	flag.Parse()

	cfg, cfgErr := config.Load(*configPath)

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logger konnte nicht erstellt werden: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info("🎒 LERNABENTEUER - Start")
	log.Info("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	if cfgErr != nil {
		log.Warn("⚠️  Konfiguration fehlerhaft, verwende Standardwerte", "error", cfgErr)
	}
	if *port != "" {
		cfg.ServerPort = *port
	}

	log.Info("💾 Initialisiere Datenbank...", "path", cfg.DatabasePath)
	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		log.Fatal("❌ Datenbank konnte nicht initialisiert werden", "error", err)
	}
	defer store.Close()

	backend := newBackend(cfg, log)

	library := curriculum.NewLibrary(cfg.CurriculumPath, cfg.CurriculumExcerptRunes, log)
	log.Info("📚 Lehrplan-Ordner", "path", cfg.CurriculumPath)

	generator := orchestrator.New(backend, log,
		orchestrator.WithImageStore(store),
		orchestrator.WithGenerationLog(store),
		orchestrator.WithCurriculum(library),
	)

	hub := realtime.NewHub(log)
	nav := navigation.New(navigation.Config{
		Generator: generator,
		Progress:  store,
		Cues:      hub,
		Timeout:   cfg.RequestTimeout,
		Log:       log,
	})
	defer nav.Close()
	nav.OnChange(hub.PublishState)

	handler := api.NewHandler(nav, store, backend, hub, log)
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           api.NewRouter(handler, cfg.StaticPath),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Info("⏹️  Server wird heruntergefahren...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Info("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info(fmt.Sprintf("✅ Server läuft auf: http://localhost:%s", cfg.ServerPort))
	log.Info("💡 Drücke Strg+C zum Beenden")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Server-Fehler", "error", err)
	}
}

// newBackend wählt das Generierungs-Backend und prüft es beim Start
func newBackend(cfg *config.Config, log *logger.Logger) llm.Backend {
	log.Info("🤖 Initialisiere Generierungs-Backend...", "backend", cfg.Backend)

	switch cfg.Backend {
	case "ollama":
		provider := llm.NewOllamaProvider(cfg.OllamaURL, cfg.OllamaModel, cfg.RequestTimeout, log)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Ping(ctx); err != nil {
			log.Warn("⚠️  Ollama NICHT erreichbar, starte mit: ollama serve", "url", cfg.OllamaURL, "error", err)
			return provider
		}
		if list, err := provider.GetModels(ctx); err == nil {
			log.Info("   ✓ Ollama erreichbar", "url", cfg.OllamaURL, "models", len(list), "model", cfg.OllamaModel)
		}
		return provider
	default:
		provider := llm.NewGeminiProvider(llm.GeminiConfig{
			APIKey:     cfg.GeminiAPIKey,
			BaseURL:    cfg.GeminiBaseURL,
			TextModel:  cfg.TextModel,
			ImageModel: cfg.ImageModel,
			Timeout:    cfg.RequestTimeout,
		}, log)
		if !provider.Available() {
			log.Warn("⚠️  Kein API-Schlüssel gesetzt (GEMINI_API_KEY); Inhalte können nicht erzeugt werden")
		} else {
			log.Info("   ✓ Gemini konfiguriert", "text_model", cfg.TextModel, "image_model", cfg.ImageModel)
		}
		return provider
	}
}
