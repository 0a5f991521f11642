package quiz

import (
	"sync"

	"lernabenteuer/internal/models"
)

// Cue ist ein einmaliges Signal für das Frontend (Soundeffekt)
type Cue string

const (
	CueSelect    Cue = "select"
	CueCorrect   Cue = "correct"
	CueIncorrect Cue = "incorrect"
	CueComplete  Cue = "complete"
	CueBack      Cue = "back"
)

// CueSink nimmt Signale entgegen. Implementierungen dürfen nicht blockieren.
type CueSink interface {
	Cue(c Cue)
}

// CueFunc adaptiert eine Funktion an CueSink
type CueFunc func(c Cue)

func (f CueFunc) Cue(c Cue) { f(c) }

// NopCues verwirft alle Signale
var NopCues CueSink = CueFunc(func(Cue) {})

// Tracker verwaltet die Antworten zu den Fragen eines generierten Inhalts.
// Jede Frage kann genau einmal beantwortet werden.
type Tracker struct {
	mu          sync.Mutex
	questions   map[int]models.ContentBlock
	answers     map[int]models.Answer
	wasComplete bool
	cues        CueSink
}

// NewTracker erstellt einen leeren Tracker
func NewTracker(cues CueSink) *Tracker {
	if cues == nil {
		cues = NopCues
	}
	return &Tracker{
		questions: make(map[int]models.ContentBlock),
		answers:   make(map[int]models.Answer),
		cues:      cues,
	}
}

// Load ersetzt den Fragenbestand und setzt alle Antworten zurück
func (t *Tracker) Load(blocks []models.ContentBlock) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.questions = make(map[int]models.ContentBlock)
	for _, b := range blocks {
		if b.IsQuestion() {
			t.questions[b.OrdinalIndex] = b
		}
	}
	t.resetLocked()
}

// Reset löscht alle Antworten und den Abschluss-Latch
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
}

func (t *Tracker) resetLocked() {
	t.answers = make(map[int]models.Answer)
	t.wasComplete = false
}

// SelectOption speichert die Antwort auf eine Frage. Ist die Frage bereits
// beantwortet, unbekannt oder die Option ungültig, passiert nichts (ok=false).
func (t *Tracker) SelectOption(ordinal, optionIndex int) (models.Answer, bool) {
	t.mu.Lock()

	if prev, answered := t.answers[ordinal]; answered {
		t.mu.Unlock()
		return prev, false
	}
	q, known := t.questions[ordinal]
	if !known || optionIndex < 0 || optionIndex >= len(q.Options) {
		t.mu.Unlock()
		return models.Answer{}, false
	}

	answer := models.Answer{
		SelectedOptionIndex: optionIndex,
		IsCorrect:           optionIndex == q.CorrectOptionIndex,
	}
	t.answers[ordinal] = answer

	// Abschluss nur an der Flanke false -> true melden
	completedNow := false
	if !t.wasComplete && t.isCompleteLocked(len(t.questions)) {
		t.wasComplete = true
		completedNow = true
	}
	t.mu.Unlock()

	if answer.IsCorrect {
		t.cues.Cue(CueCorrect)
	} else {
		t.cues.Cue(CueIncorrect)
	}
	if completedNow {
		t.cues.Cue(CueComplete)
	}

	return answer, true
}

// IsComplete meldet, ob alle totalQuestions Fragen beantwortet sind
func (t *Tracker) IsComplete(totalQuestions int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isCompleteLocked(totalQuestions)
}

func (t *Tracker) isCompleteLocked(totalQuestions int) bool {
	return totalQuestions > 0 && len(t.answers) == totalQuestions
}

// Score zählt die richtigen Antworten
func (t *Tracker) Score() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	score := 0
	for _, a := range t.answers {
		if a.IsCorrect {
			score++
		}
	}
	return score
}

// Answered gibt die Anzahl beantworteter Fragen zurück
func (t *Tracker) Answered() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.answers)
}

// Total gibt die Anzahl geladener Fragen zurück
func (t *Tracker) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.questions)
}

// Answers liefert eine Kopie der Antworten
func (t *Tracker) Answers() map[int]models.Answer {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[int]models.Answer, len(t.answers))
	for k, v := range t.answers {
		out[k] = v
	}
	return out
}

// Summary fasst den Quizstand zusammen
type Summary struct {
	Total    int                   `json:"total"`
	Answered int                   `json:"answered"`
	Score    int                   `json:"score"`
	Complete bool                  `json:"complete"`
	Answers  map[int]models.Answer `json:"answers"`
}

// Summary liefert einen konsistenten Schnappschuss
func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Summary{
		Total:    len(t.questions),
		Answered: len(t.answers),
		Complete: t.isCompleteLocked(len(t.questions)),
		Answers:  make(map[int]models.Answer, len(t.answers)),
	}
	for k, v := range t.answers {
		s.Answers[k] = v
		if v.IsCorrect {
			s.Score++
		}
	}
	return s
}
