package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lernabenteuer/internal/llm"
	"lernabenteuer/internal/logger"
	"lernabenteuer/internal/models"
)

// ImagePathPrefix ist der URL-Pfad, unter dem gespeicherte Bilder ausgeliefert werden
const ImagePathPrefix = "/api/v1/images/"

// Error ist ein kategorisierter Generierungsfehler
type Error struct {
	Category llm.Category
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Category)
	}
	return fmt.Sprintf("%s: %v", e.Category, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// CategoryOf liefert die Kategorie eines Fehlers
func CategoryOf(err error) llm.Category {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Category
	}
	return llm.ClassifyError(err)
}

// ImageStore speichert Bildbytes und liefert eine ID
type ImageStore interface {
	SaveImage(data []byte) (string, error)
}

// GenerationLog protokolliert Generierungsversuche
type GenerationLog interface {
	LogGeneration(entry *models.GenerationLogEntry) error
}

// CurriculumSource liefert optionalen Lehrplankontext
type CurriculumSource interface {
	Excerpt(ctx context.Context, subject models.SubjectID) string
}

// Orchestrator erzeugt Inhalte: Text immer, Bild nur für Lektionen und nur
// wenn möglich.
type Orchestrator struct {
	backend    llm.Backend
	images     ImageStore
	journal    GenerationLog
	curriculum CurriculumSource
	log        *logger.Logger
}

// Option konfiguriert den Orchestrator
type Option func(*Orchestrator)

func WithImageStore(s ImageStore) Option {
	return func(o *Orchestrator) { o.images = s }
}

func WithGenerationLog(j GenerationLog) Option {
	return func(o *Orchestrator) { o.journal = j }
}

func WithCurriculum(c CurriculumSource) Option {
	return func(o *Orchestrator) { o.curriculum = c }
}

// New erstellt einen Orchestrator
func New(backend llm.Backend, log *logger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend: backend,
		log:     log.With("component", "Orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Generate erzeugt Inhalt für Fach, Aktivität und Schwierigkeit. Es gibt keine
// automatischen Wiederholungen.
func (o *Orchestrator) Generate(ctx context.Context, subject models.SubjectID, activity models.ActivityType, difficulty models.Difficulty) (*models.GeneratedContent, error) {
	start := time.Now()
	log := o.log.With("subject", subject, "activity", activity, "difficulty", difficulty)

	content, err := o.generate(ctx, log, subject, activity, difficulty)

	entry := &models.GenerationLogEntry{
		Subject:    subject,
		Difficulty: difficulty,
		Activity:   activity,
		Category:   "ok",
	}
	if err != nil {
		entry.Category = string(CategoryOf(err))
		entry.Message = err.Error()
		log.Error("Generierung fehlgeschlagen", "category", entry.Category, "error", err, "duration", time.Since(start))
	} else {
		entry.HasImage = content.ImageURL != nil
		log.Info("Inhalt generiert", "chars", len(content.Text), "image", entry.HasImage, "duration", time.Since(start))
	}
	o.record(entry)

	return content, err
}

func (o *Orchestrator) generate(ctx context.Context, log *logger.Logger, subject models.SubjectID, activity models.ActivityType, difficulty models.Difficulty) (*models.GeneratedContent, error) {
	prompt, err := llm.BuildPrompt(subject, activity, difficulty)
	if err != nil {
		return nil, &Error{Category: llm.CategoryConfiguration, Err: err}
	}

	if o.backend == nil || !o.backend.Available() {
		return nil, &Error{Category: llm.CategoryBackendUnavailable, Err: llm.ErrNotConfigured}
	}

	if o.curriculum != nil {
		prompt = llm.WithCurriculum(prompt, o.curriculum.Excerpt(ctx, subject))
	}

	text, err := o.backend.GenerateText(ctx, prompt, llm.SystemInstruction)
	if err != nil {
		return nil, &Error{Category: llm.ClassifyError(err), Err: err}
	}

	content := &models.GeneratedContent{Text: text}
	if activity == models.ActivityLesson {
		if url, err := o.illustrate(ctx, text); err != nil {
			// Bild ist Dekoration, Text bleibt gültig
			log.Warn("Bild konnte nicht erzeugt werden", "error", err)
		} else {
			content.ImageURL = &url
		}
	}
	return content, nil
}

func (o *Orchestrator) illustrate(ctx context.Context, text string) (string, error) {
	if o.images == nil {
		return "", errors.New("kein bildspeicher konfiguriert")
	}

	summaryPrompt, system := llm.ImageSummaryPrompt(text)
	summary, err := o.backend.GenerateText(ctx, summaryPrompt, system)
	if err != nil {
		return "", fmt.Errorf("bildbeschreibung: %w", err)
	}
	imagePrompt := llm.ImagePrompt(summary)
	if imagePrompt == "" {
		return "", errors.New("leere bildbeschreibung")
	}

	data, err := o.backend.GenerateImage(ctx, imagePrompt)
	if err != nil {
		return "", fmt.Errorf("bildgenerierung: %w", err)
	}
	if len(data) == 0 {
		return "", llm.ErrEmptyResponse
	}

	id, err := o.images.SaveImage(data)
	if err != nil {
		return "", fmt.Errorf("bild speichern: %w", err)
	}
	return ImagePathPrefix + id, nil
}

func (o *Orchestrator) record(entry *models.GenerationLogEntry) {
	if o.journal == nil {
		return
	}
	if err := o.journal.LogGeneration(entry); err != nil {
		o.log.Warn("Generierungsprotokoll nicht gespeichert", "error", err)
	}
}
