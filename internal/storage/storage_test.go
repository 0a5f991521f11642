package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"lernabenteuer/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestProgressRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	empty, err := s.LoadProgress()
	if err != nil {
		t.Fatalf("LoadProgress on empty db: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("want empty record, got %v", empty)
	}

	record := models.ProgressRecord{}
	record.Mark(models.SubjectMath, models.DifficultyEasy, models.ActivityLesson)
	record.Mark(models.SubjectArt, models.DifficultyHard, models.ActivityExercise)
	if err := s.SaveProgress(record); err != nil {
		t.Fatalf("SaveProgress: %v", err)
	}

	loaded, err := s.LoadProgress()
	if err != nil {
		t.Fatalf("LoadProgress: %v", err)
	}
	if !loaded.IsDone(models.SubjectMath, models.DifficultyEasy, models.ActivityLesson) ||
		!loaded.IsDone(models.SubjectArt, models.DifficultyHard, models.ActivityExercise) {
		t.Fatalf("entries missing after reload: %v", loaded)
	}
	if loaded.IsDone(models.SubjectMath, models.DifficultyEasy, models.ActivityExercise) {
		t.Fatalf("unexpected entry")
	}
}

func TestLoadProgressCorruptYieldsEmpty(t *testing.T) {
	s := newTestStorage(t)
	if _, err := s.db.Exec(`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)`, progressKey, "{kaputt", time.Now()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	record, err := s.LoadProgress()
	if err == nil {
		t.Fatalf("expected error for corrupt data")
	}
	if record == nil || len(record) != 0 {
		t.Fatalf("want usable empty record, got %v", record)
	}
}

func TestImages(t *testing.T) {
	s := newTestStorage(t)

	png := []byte("\x89PNG\r\n\x1a\n0000")
	id, err := s.SaveImage(png)
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	img, err := s.GetImage(id)
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if img.MimeType != "image/png" || string(img.Data) != string(png) {
		t.Fatalf("unexpected image: mime=%s len=%d", img.MimeType, len(img.Data))
	}

	if _, err := s.GetImage("gibt-es-nicht"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, err := s.SaveImage(nil); err == nil {
		t.Fatalf("empty image must be rejected")
	}
}

func TestGenerationLog(t *testing.T) {
	s := newTestStorage(t)

	older := &models.GenerationLogEntry{
		Subject: models.SubjectMath, Difficulty: models.DifficultyEasy, Activity: models.ActivityExercise,
		Category: "quota_exceeded", Message: "quota", CreatedAt: time.Now().Add(-time.Minute),
	}
	newer := &models.GenerationLogEntry{
		Subject: models.SubjectScience, Difficulty: models.DifficultyHard, Activity: models.ActivityLesson,
		Category: "ok", HasImage: true, CreatedAt: time.Now(),
	}
	for _, e := range []*models.GenerationLogEntry{older, newer} {
		if err := s.LogGeneration(e); err != nil {
			t.Fatalf("LogGeneration: %v", err)
		}
		if e.ID == "" {
			t.Fatalf("id not assigned")
		}
	}

	entries, err := s.RecentGenerations(10)
	if err != nil {
		t.Fatalf("RecentGenerations: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries: want=2 got=%d", len(entries))
	}
	if entries[0].ID != newer.ID || !entries[0].HasImage {
		t.Fatalf("newest first expected, got %+v", entries[0])
	}
	if entries[1].Message != "quota" {
		t.Fatalf("message: got=%q", entries[1].Message)
	}
}
