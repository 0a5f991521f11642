package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"lernabenteuer/internal/models"
)

// ErrNotFound wird geliefert, wenn ein Datensatz nicht existiert
var ErrNotFound = errors.New("nicht gefunden")

const progressKey = "progress"

// Storage definiert das Interface für Datenpersistenz
type Storage interface {
	// Fortschritt
	LoadProgress() (models.ProgressRecord, error)
	SaveProgress(record models.ProgressRecord) error

	// Bilder
	SaveImage(data []byte) (string, error)
	GetImage(id string) (*Image, error)

	// Diagnose
	LogGeneration(entry *models.GenerationLogEntry) error
	RecentGenerations(limit int) ([]models.GenerationLogEntry, error)

	Close() error
}

// Image ist ein gespeichertes, generiertes Bild
type Image struct {
	ID        string
	MimeType  string
	Data      []byte
	CreatedAt time.Time
}

// SQLiteStorage implementiert Storage mit SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage erstellt eine neue SQLite-Storage-Instanz
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// SQLite verträgt nur einen Schreiber
	db.SetMaxOpenConns(1)

	storage := &SQLiteStorage{db: db}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return storage, nil
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS images (
		id TEXT PRIMARY KEY,
		mime_type TEXT NOT NULL,
		data BLOB NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS generation_log (
		id TEXT PRIMARY KEY,
		subject TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		activity TEXT NOT NULL,
		category TEXT NOT NULL,
		message TEXT,
		has_image INTEGER DEFAULT 0,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_generation_log_created ON generation_log(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Fortschritt

// LoadProgress lädt den Fortschritt. Fehlt der Eintrag, wird ein leerer
// Datensatz geliefert; beschädigte Daten ergeben einen Fehler UND einen leeren Datensatz.
func (s *SQLiteStorage) LoadProgress() (models.ProgressRecord, error) {
	var raw string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, progressKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ProgressRecord{}, nil
	}
	if err != nil {
		return models.ProgressRecord{}, err
	}

	record := models.ProgressRecord{}
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return models.ProgressRecord{}, fmt.Errorf("fortschritt beschädigt: %w", err)
	}
	if record == nil {
		record = models.ProgressRecord{}
	}
	return record, nil
}

func (s *SQLiteStorage) SaveProgress(record models.ProgressRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO kv (key, value, updated_at)
		VALUES (?, ?, ?)
	`, progressKey, string(data), time.Now())
	return err
}

// Bilder

func (s *SQLiteStorage) SaveImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("leere bilddaten")
	}
	id := uuid.New().String()
	_, err := s.db.Exec(`
		INSERT INTO images (id, mime_type, data, created_at)
		VALUES (?, ?, ?, ?)
	`, id, http.DetectContentType(data), data, time.Now())
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLiteStorage) GetImage(id string) (*Image, error) {
	var img Image
	err := s.db.QueryRow(`
		SELECT id, mime_type, data, created_at FROM images WHERE id = ?
	`, id).Scan(&img.ID, &img.MimeType, &img.Data, &img.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// Diagnose

func (s *SQLiteStorage) LogGeneration(entry *models.GenerationLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO generation_log (id, subject, difficulty, activity, category, message, has_image, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.Subject, entry.Difficulty, entry.Activity, entry.Category, entry.Message, entry.HasImage, entry.CreatedAt)
	return err
}

func (s *SQLiteStorage) RecentGenerations(limit int) ([]models.GenerationLogEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, subject, difficulty, activity, category, message, has_image, created_at
		FROM generation_log ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.GenerationLogEntry
	for rows.Next() {
		var e models.GenerationLogEntry
		var msg sql.NullString
		if err := rows.Scan(&e.ID, &e.Subject, &e.Difficulty, &e.Activity, &e.Category, &msg, &e.HasImage, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Message = msg.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
