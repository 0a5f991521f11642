package curriculum

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"lernabenteuer/internal/logger"
	"lernabenteuer/internal/models"
)

func TestExtractChunks(t *testing.T) {
	text := strings.Repeat("أ", 25)
	chunks := ExtractChunks(text, 10, 0)
	if len(chunks) != 3 {
		t.Fatalf("chunks: want=3 got=%d", len(chunks))
	}
	for _, c := range chunks {
		if utf8.RuneCountInString(c) > 10 {
			t.Fatalf("chunk too long: %d runes", utf8.RuneCountInString(c))
		}
	}
	if strings.Join(chunks, "") != text {
		t.Fatalf("chunks without overlap must reassemble the text")
	}
}

func TestExtractChunksOverlapAndEmpty(t *testing.T) {
	if got := ExtractChunks("   ", 10, 0); len(got) != 0 {
		t.Fatalf("blank input: want no chunks, got %q", got)
	}
	chunks := ExtractChunks("abcdefghij", 4, 2)
	want := []string{"abcd", "cdef", "efgh", "ghij"}
	if strings.Join(chunks, ",") != strings.Join(want, ",") {
		t.Fatalf("overlap: want=%q got=%q", want, chunks)
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	got := normalizeWhitespace("  a   b \n\n\t c\n")
	if got != "a b\nc" {
		t.Fatalf("got=%q", got)
	}
}

func TestExcerptWithoutDocuments(t *testing.T) {
	root := t.TempDir()
	// Nicht-PDF-Dateien werden ignoriert
	dir := filepath.Join(root, string(models.SubjectMath))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notizen.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	lib := NewLibrary(root, 100, logger.NewNop())
	if got := lib.Excerpt(context.Background(), models.SubjectMath); got != "" {
		t.Fatalf("want empty excerpt, got %q", got)
	}
	if got := lib.Excerpt(context.Background(), models.SubjectArt); got != "" {
		t.Fatalf("missing folder: want empty excerpt, got %q", got)
	}
}

func TestExcerptRotatesChunks(t *testing.T) {
	lib := NewLibrary("unused", 100, logger.NewNop())
	lib.chunks[models.SubjectHistory] = []string{"eins", "zwei"}

	ctx := context.Background()
	got := []string{
		lib.Excerpt(ctx, models.SubjectHistory),
		lib.Excerpt(ctx, models.SubjectHistory),
		lib.Excerpt(ctx, models.SubjectHistory),
	}
	if strings.Join(got, ",") != "eins,zwei,eins" {
		t.Fatalf("rotation: got=%q", got)
	}
}

func TestNilLibrary(t *testing.T) {
	var lib *Library
	if lib.Excerpt(context.Background(), models.SubjectMath) != "" {
		t.Fatalf("nil library must yield empty excerpt")
	}
}
