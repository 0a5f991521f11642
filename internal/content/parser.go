// Package content zerlegt den generierten Text in Erzähl- und Quizblöcke.
//
// Mikrosyntax:
//
//	**Frage**            erste Zeile eines Fragenblocks
//	- Option             Antwortzeile
//	- Option [correct]   richtige Antwort (Markierung wird entfernt)
//
// Blöcke werden durch eine oder mehrere Leerzeilen getrennt.
package content

import (
	"regexp"
	"strings"

	"lernabenteuer/internal/models"
)

// CorrectMarker kennzeichnet die richtige Option
const CorrectMarker = "[correct]"

var (
	questionRegex = regexp.MustCompile(`\*\*(.*?)\*\*`)
	optionRegex   = regexp.MustCompile(`^\s*-\s*(.*)$`)
)

// Segment teilt den Text an Leerzeilen (auch nur aus Whitespace bestehend) in Blöcke.
// Leere Blöcke werden verworfen, Zeilenumbrüche innerhalb eines Blocks bleiben erhalten.
func Segment(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var blocks []string
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		block := strings.TrimSpace(strings.Join(current, "\n"))
		if block != "" {
			blocks = append(blocks, block)
		}
		current = current[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()

	return blocks
}

// Classify bestimmt, ob ein Block eine Frage ist, und extrahiert Frage und Optionen.
// Ein Fragenblock braucht eine **...**-Markierung in der ersten Zeile und mindestens
// eine Optionszeile, sonst gilt er als Erzähltext.
func Classify(block string, ordinal int) models.ContentBlock {
	narrative := models.ContentBlock{
		Kind:               models.BlockNarrative,
		RawText:            block,
		CorrectOptionIndex: models.NoCorrectOption,
		OrdinalIndex:       -1,
	}

	lines := strings.Split(block, "\n")
	match := questionRegex.FindStringSubmatch(lines[0])
	if match == nil {
		return narrative
	}

	options := make([]string, 0, len(lines)-1)
	correct := models.NoCorrectOption
	for _, line := range lines[1:] {
		m := optionRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		text := m[1]
		if strings.Contains(text, CorrectMarker) {
			text = strings.ReplaceAll(text, CorrectMarker, "")
			if correct == models.NoCorrectOption {
				correct = len(options)
			}
		}
		options = append(options, strings.TrimSpace(text))
	}

	if len(options) == 0 {
		return narrative
	}

	return models.ContentBlock{
		Kind:               models.BlockQuestion,
		QuestionText:       strings.TrimSpace(match[1]),
		Options:            options,
		CorrectOptionIndex: correct,
		OrdinalIndex:       ordinal,
	}
}

// Parse segmentiert und klassifiziert den gesamten Text. Fragen werden
// lückenlos ab 0 durchnummeriert.
func Parse(text string) []models.ContentBlock {
	segments := Segment(text)
	blocks := make([]models.ContentBlock, 0, len(segments))

	ordinal := 0
	for _, seg := range segments {
		b := Classify(seg, ordinal)
		if b.IsQuestion() {
			ordinal++
		}
		blocks = append(blocks, b)
	}
	return blocks
}

// Questions filtert die Fragenblöcke heraus
func Questions(blocks []models.ContentBlock) []models.ContentBlock {
	var out []models.ContentBlock
	for _, b := range blocks {
		if b.IsQuestion() {
			out = append(out, b)
		}
	}
	return out
}

// CountQuestions zählt die Fragenblöcke
func CountQuestions(blocks []models.ContentBlock) int {
	n := 0
	for _, b := range blocks {
		if b.IsQuestion() {
			n++
		}
	}
	return n
}

// StripEmphasis entfernt **-Markierungen für die Klartextanzeige
func StripEmphasis(text string) string {
	return questionRegex.ReplaceAllString(text, "$1")
}
