package curriculum

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"

	"lernabenteuer/internal/logger"
	"lernabenteuer/internal/models"
)

// Library liefert Auszüge aus Lehrplan-PDFs, abgelegt unter <root>/<fach>/*.pdf.
// Texte werden beim ersten Zugriff extrahiert und im Speicher gehalten.
type Library struct {
	root     string
	maxRunes int
	log      *logger.Logger

	mu     sync.Mutex
	chunks map[models.SubjectID][]string
	next   map[models.SubjectID]int
}

// NewLibrary erstellt eine Bibliothek. Ein leerer root deaktiviert sie.
func NewLibrary(root string, maxRunes int, log *logger.Logger) *Library {
	if maxRunes <= 0 {
		maxRunes = 1500
	}
	return &Library{
		root:     root,
		maxRunes: maxRunes,
		log:      log.With("component", "Curriculum"),
		chunks:   make(map[models.SubjectID][]string),
		next:     make(map[models.SubjectID]int),
	}
}

// Excerpt gibt den nächsten Auszug für ein Fach zurück (reihum), oder "" wenn
// keine Dokumente vorhanden sind.
func (l *Library) Excerpt(ctx context.Context, subject models.SubjectID) string {
	if l == nil || l.root == "" {
		return ""
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	chunks, loaded := l.chunks[subject]
	if !loaded {
		text, err := l.load(ctx, subject)
		if err != nil {
			// nicht cachen, beim nächsten Aufruf erneut versuchen
			l.log.Warn("Lehrplan konnte nicht gelesen werden", "subject", subject, "error", err)
			return ""
		}
		chunks = ExtractChunks(text, l.maxRunes, 0)
		l.chunks[subject] = chunks
		if len(chunks) > 0 {
			l.log.Info("Lehrplan geladen", "subject", subject, "chunks", len(chunks))
		}
	}
	if len(chunks) == 0 {
		return ""
	}

	i := l.next[subject] % len(chunks)
	l.next[subject] = i + 1
	return chunks[i]
}

func (l *Library) load(ctx context.Context, subject models.SubjectID) (string, error) {
	dir := filepath.Join(l.root, string(subject))
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".pdf") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)

	texts := make([]string, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			text, err := ParseFile(path)
			if err != nil {
				// Fehler loggen, aber fortfahren
				l.log.Warn("PDF übersprungen", "path", path, "error", err)
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	return strings.TrimSpace(strings.Join(texts, "\n")), nil
}

// ParseFile extrahiert den Klartext einer PDF-Datei
func ParseFile(filePath string) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("fehler beim Öffnen der PDF: %w", err)
	}
	defer f.Close()

	var content strings.Builder
	totalPages := r.NumPage()

	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		content.WriteString(text)
		content.WriteString("\n")
	}

	return normalizeWhitespace(content.String()), nil
}

// ExtractChunks teilt den Text in Stücke von höchstens chunkSize Zeichen
func ExtractChunks(content string, chunkSize int, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = 2000
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}

	var chunks []string
	runes := []rune(strings.TrimSpace(content))
	length := len(runes)

	for i := 0; i < length; i += chunkSize - overlap {
		end := i + chunkSize
		if end > length {
			end = length
		}

		chunk := strings.TrimSpace(string(runes[i:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= length {
			break
		}
	}

	return chunks
}

func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
