// Package navigation führt den Lernenden durch Fach, Schwierigkeit, Aktivität
// und Inhalt. Alle Zustandsänderungen laufen über benannte Übergänge.
package navigation

import (
	"context"
	"errors"
	"sync"
	"time"

	"lernabenteuer/internal/content"
	"lernabenteuer/internal/llm"
	"lernabenteuer/internal/logger"
	"lernabenteuer/internal/models"
	"lernabenteuer/internal/orchestrator"
	"lernabenteuer/internal/quiz"
)

var (
	// ErrInvalidTransition: der Übergang ist in der aktuellen Ansicht nicht erlaubt
	ErrInvalidTransition = errors.New("übergang in dieser ansicht nicht erlaubt")

	// ErrRetryNotAllowed: Wiederholen nur für geladene Übungen
	ErrRetryNotAllowed = errors.New("wiederholen ist hier nicht möglich")
)

// Generator erzeugt Inhalte (implementiert vom Orchestrator)
type Generator interface {
	Generate(ctx context.Context, subject models.SubjectID, activity models.ActivityType, difficulty models.Difficulty) (*models.GeneratedContent, error)
}

// ProgressStore lädt und speichert den Fortschritt
type ProgressStore interface {
	LoadProgress() (models.ProgressRecord, error)
	SaveProgress(record models.ProgressRecord) error
}

// ErrorInfo beschreibt einen Fehler in der Inhaltsansicht
type ErrorInfo struct {
	Category llm.Category `json:"category"`
	Message  string       `json:"message"`
}

// State ist ein Schnappschuss des Navigationszustands
type State struct {
	View       models.View              `json:"view"`
	Subject    models.SubjectID         `json:"subject,omitempty"`
	Difficulty models.Difficulty        `json:"difficulty,omitempty"`
	Activity   models.ActivityType      `json:"activity,omitempty"`
	Content    *models.GeneratedContent `json:"content,omitempty"`
	Blocks     []models.ContentBlock    `json:"blocks,omitempty"`
	IsLoading  bool                     `json:"is_loading"`
	Error      *ErrorInfo               `json:"error,omitempty"`
	Quiz       quiz.Summary             `json:"quiz"`
}

// Config bündelt die Abhängigkeiten des Controllers
type Config struct {
	Generator Generator
	Progress  ProgressStore
	Cues      quiz.CueSink  // wird unter der Controller-Sperre aufgerufen, darf den Controller nicht aufrufen
	Timeout   time.Duration // Obergrenze pro Generierung
	Log       *logger.Logger
}

// Controller besitzt den Navigationszustand, den Quiz-Tracker und den Fortschritt.
type Controller struct {
	mu     sync.Mutex
	saveMu sync.Mutex

	view       models.View
	subject    models.SubjectID
	difficulty models.Difficulty
	activity   models.ActivityType
	content    *models.GeneratedContent
	blocks     []models.ContentBlock
	isLoading  bool
	errInfo    *ErrorInfo

	// token kennzeichnet die aktuelle Generierung; ältere Ergebnisse werden verworfen
	token  uint64
	cancel context.CancelFunc

	generator Generator
	store     ProgressStore
	progress  models.ProgressRecord
	tracker   *quiz.Tracker
	cues      quiz.CueSink
	timeout   time.Duration
	log       *logger.Logger

	baseCtx    context.Context
	baseCancel context.CancelFunc

	observers []func(State)
}

// New erstellt einen Controller in der Fächeransicht und lädt den Fortschritt.
// Ladefehler sind nicht fatal.
func New(cfg Config) *Controller {
	if cfg.Cues == nil {
		cfg.Cues = quiz.NopCues
	}
	if cfg.Log == nil {
		cfg.Log = logger.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())
	c := &Controller{
		view:       models.ViewSubjects,
		generator:  cfg.Generator,
		store:      cfg.Progress,
		progress:   models.ProgressRecord{},
		tracker:    quiz.NewTracker(cfg.Cues),
		cues:       cfg.Cues,
		timeout:    cfg.Timeout,
		log:        cfg.Log.With("component", "Navigation"),
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
	}

	if c.store != nil {
		record, err := c.store.LoadProgress()
		if err != nil {
			c.log.Warn("Fortschritt konnte nicht geladen werden, starte leer", "error", err)
		}
		if record != nil {
			c.progress = record
		}
	}
	return c
}

// Close bricht laufende Generierungen ab
func (c *Controller) Close() {
	c.baseCancel()
}

// OnChange registriert einen Beobachter für Zustandsänderungen
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Snapshot liefert den aktuellen Zustand
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	s := State{
		View:       c.view,
		Subject:    c.subject,
		Difficulty: c.difficulty,
		Activity:   c.activity,
		Content:    c.content,
		IsLoading:  c.isLoading,
		Quiz:       c.tracker.Summary(),
	}
	if c.blocks != nil {
		s.Blocks = append([]models.ContentBlock(nil), c.blocks...)
	}
	if c.errInfo != nil {
		e := *c.errInfo
		s.Error = &e
	}
	return s
}

// Progress liefert eine Kopie des Fortschritts
func (c *Controller) Progress() models.ProgressRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress.Clone()
}

// SelectSubject: Fächer -> Schwierigkeit
func (c *Controller) SelectSubject(subject models.SubjectID) error {
	if _, ok := models.FindSubject(subject); !ok {
		return errors.New("unbekanntes fach")
	}

	c.mu.Lock()
	if c.view != models.ViewSubjects {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	c.subject = subject
	c.view = models.ViewDifficulty
	c.mu.Unlock()

	c.cues.Cue(quiz.CueSelect)
	c.notify()
	return nil
}

// SelectDifficulty: Schwierigkeit -> Aktivität
func (c *Controller) SelectDifficulty(difficulty models.Difficulty) error {
	if _, err := models.ParseDifficulty(string(difficulty)); err != nil {
		return err
	}

	c.mu.Lock()
	if c.view != models.ViewDifficulty {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	c.difficulty = difficulty
	c.view = models.ViewActivity
	c.mu.Unlock()

	c.cues.Cue(quiz.CueSelect)
	c.notify()
	return nil
}

// SelectActivity: Aktivität -> Inhalt und startet die Generierung. Der
// zurückgegebene Kanal wird geschlossen, sobald das Ergebnis angewendet oder
// verworfen wurde.
func (c *Controller) SelectActivity(activity models.ActivityType) (<-chan struct{}, error) {
	if _, err := models.ParseActivityType(string(activity)); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.view != models.ViewActivity {
		c.mu.Unlock()
		return nil, ErrInvalidTransition
	}
	c.activity = activity
	c.view = models.ViewContent
	done := c.startGenerationLocked()
	c.mu.Unlock()

	c.cues.Cue(quiz.CueSelect)
	c.notify()
	return done, nil
}

// Retry erzeugt eine neue Übung mit denselben Parametern
func (c *Controller) Retry() (<-chan struct{}, error) {
	c.mu.Lock()
	if c.view != models.ViewContent || c.activity != models.ActivityExercise || c.isLoading {
		c.mu.Unlock()
		return nil, ErrRetryNotAllowed
	}
	done := c.startGenerationLocked()
	c.mu.Unlock()

	c.notify()
	return done, nil
}

// Back geht eine Ebene zurück; aus dem Inhalt direkt zu den Fächern.
func (c *Controller) Back() error {
	c.mu.Lock()
	switch c.view {
	case models.ViewContent:
		c.invalidateLocked()
		c.view = models.ViewSubjects
		c.subject = ""
		c.difficulty = ""
		c.activity = ""
	case models.ViewActivity:
		c.view = models.ViewDifficulty
	case models.ViewDifficulty:
		c.view = models.ViewSubjects
		c.subject = ""
		c.difficulty = ""
	default:
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	c.errInfo = nil
	c.mu.Unlock()

	c.cues.Cue(quiz.CueBack)
	c.notify()
	return nil
}

// SelectOption beantwortet eine Frage des aktuellen Inhalts
func (c *Controller) SelectOption(ordinal, optionIndex int) (models.Answer, bool, error) {
	c.mu.Lock()
	if c.view != models.ViewContent || c.content == nil {
		c.mu.Unlock()
		return models.Answer{}, false, ErrInvalidTransition
	}
	// unter c.mu, damit Back oder Retry nicht dazwischen den Fragenbestand tauschen
	answer, ok := c.tracker.SelectOption(ordinal, optionIndex)
	c.mu.Unlock()

	if ok {
		c.notify()
	}
	return answer, ok, nil
}

// startGenerationLocked setzt den Ladezustand und startet die Generierung im
// Hintergrund. Erwartet gehaltenes c.mu.
func (c *Controller) startGenerationLocked() <-chan struct{} {
	c.invalidateLocked()
	c.isLoading = true

	token := c.token
	subject, activity, difficulty := c.subject, c.activity, c.difficulty

	ctx, cancel := context.WithTimeout(c.baseCtx, c.timeout)
	c.cancel = cancel

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()

		var (
			generated *models.GeneratedContent
			err       error
		)
		if c.generator == nil {
			err = &orchestrator.Error{Category: llm.CategoryBackendUnavailable, Err: llm.ErrNotConfigured}
		} else {
			generated, err = c.generator.Generate(ctx, subject, activity, difficulty)
		}
		c.apply(token, generated, err)
	}()
	return done
}

// invalidateLocked verwirft laufende Generierungen und den aktuellen Inhalt
func (c *Controller) invalidateLocked() {
	c.token++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.content = nil
	c.blocks = nil
	c.isLoading = false
	c.errInfo = nil
	c.tracker.Load(nil)
}

func (c *Controller) apply(token uint64, generated *models.GeneratedContent, err error) {
	c.mu.Lock()
	if token != c.token {
		c.mu.Unlock()
		c.log.Debug("Veraltetes Generierungsergebnis verworfen", "token", token)
		return
	}

	c.isLoading = false
	c.cancel = nil
	if err != nil || generated == nil {
		category := orchestrator.CategoryOf(err)
		if category == "" {
			category = llm.CategoryGenerationFailed
		}
		c.errInfo = &ErrorInfo{Category: category, Message: category.Message()}
		c.mu.Unlock()
		c.notify()
		return
	}

	c.content = generated
	c.blocks = content.Parse(generated.Text)
	c.tracker.Load(c.blocks)

	c.progress.Mark(c.subject, c.difficulty, c.activity)
	c.mu.Unlock()

	c.persist()
	c.notify()
}

// persist speichert den neuesten Fortschritt; Fehler werden nur protokolliert
func (c *Controller) persist() {
	if c.store == nil {
		return
	}
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	record := c.progress.Clone()
	c.mu.Unlock()

	if err := c.store.SaveProgress(record); err != nil {
		c.log.Warn("Fortschritt konnte nicht gespeichert werden", "error", err)
	}
}

func (c *Controller) notify() {
	c.mu.Lock()
	observers := append([]func(State){}, c.observers...)
	state := c.snapshotLocked()
	c.mu.Unlock()

	for _, fn := range observers {
		fn(state)
	}
}
