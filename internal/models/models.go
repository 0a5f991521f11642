package models

import (
	"fmt"
	"sort"
	"time"
)

// SubjectID identifiziert ein Fach aus dem festen Fächerkatalog
type SubjectID string

const (
	SubjectArabic    SubjectID = "arabic"
	SubjectMath      SubjectID = "math"
	SubjectScience   SubjectID = "science"
	SubjectHistory   SubjectID = "history"
	SubjectArt       SubjectID = "art"
	SubjectGeography SubjectID = "geography"
)

// Subject repräsentiert ein Fach, wie es auf der Startseite angezeigt wird
type Subject struct {
	ID          SubjectID `json:"id"`
	Name        string    `json:"name"`
	Icon        string    `json:"icon"`
	Color       string    `json:"color"`
	Description string    `json:"description"`
}

// Subjects ist der geschlossene Fächerkatalog in Anzeigereihenfolge
var Subjects = []Subject{
	{
		ID:          SubjectArabic,
		Name:        "اللغة العربية",
		Icon:        "📖",
		Color:       "#ef4444",
		Description: "تعلم قواعد اللغة، القراءة، والكتابة بطرق ممتعة.",
	},
	{
		ID:          SubjectMath,
		Name:        "الرياضيات",
		Icon:        "🔢",
		Color:       "#3b82f6",
		Description: "استكشف عالم الأرقام، الجمع، والطرح، وحل الألغاز.",
	},
	{
		ID:          SubjectScience,
		Name:        "العلوم",
		Icon:        "🔬",
		Color:       "#22c55e",
		Description: "اكتشف أسرار الطبيعة، الكائنات الحية، والكون من حولنا.",
	},
	{
		ID:          SubjectHistory,
		Name:        "التاريخ",
		Icon:        "📜",
		Color:       "#f59e0b",
		Description: "نسافر عبر الزمن لنتعرف على قصص الأبطال والأحداث المهمة.",
	},
	{
		ID:          SubjectArt,
		Name:        "التربية الفنية",
		Icon:        "🎨",
		Color:       "#8b5cf6",
		Description: "نطلق العنان لإبداعنا بالرسم، التلوين، وتشكيل الأعمال الفنية.",
	},
	{
		ID:          SubjectGeography,
		Name:        "الجغرافيا",
		Icon:        "🌍",
		Color:       "#f97316",
		Description: "نكتشف قارات العالم، بلدانها، وجبالها وأنهارها في رحلة حول الكوكب.",
	},
}

// FindSubject sucht ein Fach im Katalog
func FindSubject(id SubjectID) (Subject, bool) {
	for _, s := range Subjects {
		if s.ID == id {
			return s, true
		}
	}
	return Subject{}, false
}

// ParseSubjectID prüft eine Fach-ID gegen den Katalog
func ParseSubjectID(raw string) (SubjectID, error) {
	if _, ok := FindSubject(SubjectID(raw)); !ok {
		return "", fmt.Errorf("unbekanntes Fach: %q", raw)
	}
	return SubjectID(raw), nil
}

// Difficulty ist der Schwierigkeitsgrad
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties in Anzeigereihenfolge
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

var difficultyLabels = map[Difficulty]string{
	DifficultyEasy:   "سهل 🐣",
	DifficultyMedium: "متوسط 🦊",
	DifficultyHard:   "صعب 🦉",
}

// Label gibt die Anzeigebeschriftung zurück
func (d Difficulty) Label() string {
	return difficultyLabels[d]
}

func ParseDifficulty(raw string) (Difficulty, error) {
	d := Difficulty(raw)
	if _, ok := difficultyLabels[d]; !ok {
		return "", fmt.Errorf("unbekannter Schwierigkeitsgrad: %q", raw)
	}
	return d, nil
}

// ActivityType unterscheidet Lektion (erzählend) und Übung (Quiz)
type ActivityType string

const (
	ActivityLesson   ActivityType = "lesson"
	ActivityExercise ActivityType = "exercise"
)

func ParseActivityType(raw string) (ActivityType, error) {
	switch ActivityType(raw) {
	case ActivityLesson, ActivityExercise:
		return ActivityType(raw), nil
	}
	return "", fmt.Errorf("unbekannte Aktivität: %q", raw)
}

// View ist die aktuell angezeigte Seite
type View string

const (
	ViewSubjects   View = "subjects"
	ViewDifficulty View = "difficulty"
	ViewActivity   View = "activity"
	ViewContent    View = "content"
)

// GeneratedContent ist das Ergebnis einer Generierungsanfrage. Nach der
// Erstellung unveränderlich.
type GeneratedContent struct {
	Text     string  `json:"text"`
	ImageURL *string `json:"image_url"`
}

// BlockKind unterscheidet Erzähl- und Fragenblöcke
type BlockKind string

const (
	BlockNarrative BlockKind = "narrative"
	BlockQuestion  BlockKind = "question"
)

// NoCorrectOption markiert eine Frage ohne [correct]-Option
const NoCorrectOption = -1

// ContentBlock ist ein geparster Abschnitt des generierten Textes
type ContentBlock struct {
	Kind BlockKind `json:"kind"`

	// Narrative
	RawText string `json:"raw_text,omitempty"`

	// Question
	QuestionText       string   `json:"question_text,omitempty"`
	Options            []string `json:"options,omitempty"`
	CorrectOptionIndex int      `json:"correct_option_index"`
	OrdinalIndex       int      `json:"ordinal_index"`
}

// IsQuestion meldet, ob der Block eine Quizfrage ist
func (b ContentBlock) IsQuestion() bool {
	return b.Kind == BlockQuestion
}

// Answer ist die (endgültige) Antwort auf eine Frage
type Answer struct {
	SelectedOptionIndex int  `json:"selected_option_index"`
	IsCorrect           bool `json:"is_correct"`
}

// ProgressRecord speichert abgeschlossene Aktivitäten: Fach -> Stufe -> Aktivität.
// Einträge werden nur gesetzt, nie entfernt.
type ProgressRecord map[SubjectID]map[Difficulty]map[ActivityType]bool

// Mark setzt eine Aktivität als abgeschlossen
func (p ProgressRecord) Mark(s SubjectID, d Difficulty, a ActivityType) {
	byDifficulty, ok := p[s]
	if !ok {
		byDifficulty = make(map[Difficulty]map[ActivityType]bool)
		p[s] = byDifficulty
	}
	byActivity, ok := byDifficulty[d]
	if !ok {
		byActivity = make(map[ActivityType]bool)
		byDifficulty[d] = byActivity
	}
	byActivity[a] = true
}

func (p ProgressRecord) IsDone(s SubjectID, d Difficulty, a ActivityType) bool {
	return p[s][d][a]
}

// Clone erstellt eine tiefe Kopie
func (p ProgressRecord) Clone() ProgressRecord {
	out := make(ProgressRecord, len(p))
	for s, byDifficulty := range p {
		for d, byActivity := range byDifficulty {
			for a, done := range byActivity {
				if done {
					out.Mark(s, d, a)
				}
			}
		}
	}
	return out
}

// CompletedCount zählt die abgeschlossenen Aktivitäten eines Fachs
func (p ProgressRecord) CompletedCount(s SubjectID) int {
	n := 0
	for _, byActivity := range p[s] {
		for _, done := range byActivity {
			if done {
				n++
			}
		}
	}
	return n
}

// ProgressEntry ist eine flache Darstellung eines Fortschrittseintrags
type ProgressEntry struct {
	Subject    SubjectID    `json:"subject"`
	Difficulty Difficulty   `json:"difficulty"`
	Activity   ActivityType `json:"activity"`
}

// Entries gibt alle abgeschlossenen Einträge sortiert zurück
func (p ProgressRecord) Entries() []ProgressEntry {
	var entries []ProgressEntry
	for s, byDifficulty := range p {
		for d, byActivity := range byDifficulty {
			for a, done := range byActivity {
				if done {
					entries = append(entries, ProgressEntry{Subject: s, Difficulty: d, Activity: a})
				}
			}
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Subject != entries[j].Subject {
			return entries[i].Subject < entries[j].Subject
		}
		if entries[i].Difficulty != entries[j].Difficulty {
			return entries[i].Difficulty < entries[j].Difficulty
		}
		return entries[i].Activity < entries[j].Activity
	})
	return entries
}

// GenerationLogEntry protokolliert einen Generierungsversuch zur Diagnose
type GenerationLogEntry struct {
	ID         string       `json:"id"`
	Subject    SubjectID    `json:"subject"`
	Difficulty Difficulty   `json:"difficulty"`
	Activity   ActivityType `json:"activity"`
	Category   string       `json:"category"` // ok oder Fehlerkategorie
	Message    string       `json:"message,omitempty"`
	HasImage   bool         `json:"has_image"`
	CreatedAt  time.Time    `json:"created_at"`
}
