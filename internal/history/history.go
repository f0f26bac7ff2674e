package history

import (
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/microcosm-cc/bluemonday"
)

// ErrNotFound is returned for unknown record IDs
var ErrNotFound = errors.New("record not found")

// MaxNotesLength bounds the free-text notes, in characters
const MaxNotesLength = 500

// ImagesURLPrefix is where saved photos are served from
const ImagesURLPrefix = "/data/images/"

// Record is a saved assessment
type Record struct {
	ID              string   `json:"id"`
	WeightKg        float64  `json:"weight_kg"`
	HeightCm        float64  `json:"height_cm"`
	BMI             float64  `json:"bmi"`
	Category        string   `json:"category"`
	PostureCategory *string  `json:"posture_category,omitempty"`
	PostureRatio    *float64 `json:"posture_ratio,omitempty"`
	Photo           *string  `json:"photo"`
	Notes           string   `json:"notes"`
	Lang            string   `json:"lang"`
	CreatedAt       string   `json:"created_at"`
}

// Photo is an encoded image attached to a record
type Photo struct {
	Data []byte
	Ext  string
}

// Store persists records in sqlite and photos on disk
type Store struct {
	db        *sql.DB
	dataDir   string
	imagesDir string
	policy    *bluemonday.Policy
	mu        sync.Mutex
}

const schema = `
CREATE TABLE IF NOT EXISTS assessments (
	id               TEXT PRIMARY KEY,
	weight_kg        REAL NOT NULL,
	height_cm        REAL NOT NULL,
	bmi              REAL NOT NULL,
	category         TEXT NOT NULL,
	posture_category TEXT,
	posture_ratio    REAL,
	photo            TEXT,
	notes            TEXT NOT NULL DEFAULT '',
	lang             TEXT NOT NULL DEFAULT '',
	created_at       TEXT NOT NULL
)`

// NewStore opens (or creates) data/history.db
func NewStore(dataDir string) (*Store, error) {
	imagesDir := filepath.Join(dataDir, "images")

	// Ensure directories exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create images directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "history.db")
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	log.Printf("Loaded history: %s", dbPath)
	return &Store{
		db:        db,
		dataDir:   dataDir,
		imagesDir: imagesDir,
		policy:    bluemonday.StrictPolicy(),
	}, nil
}

// ImagesDir returns the directory saved photos are written to
func (s *Store) ImagesDir() string {
	return s.imagesDir
}

// SanitizeNotes strips markup and bounds the length of free text
func (s *Store) SanitizeNotes(notes string) string {
	clean := strings.TrimSpace(s.policy.Sanitize(notes))
	if utf8.RuneCountInString(clean) > MaxNotesLength {
		clean = string([]rune(clean)[:MaxNotesLength])
	}
	return clean
}

// Create assigns an ID and timestamp, saves the optional photo and stores the record
func (s *Store) Create(rec *Record, photo *Photo) (*Record, error) {
	rec.ID = uuid.New().String()
	rec.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	rec.Notes = s.SanitizeNotes(rec.Notes)
	rec.Photo = nil

	if photo != nil && len(photo.Data) > 0 {
		path, err := s.savePhoto(rec.ID, photo)
		if err != nil {
			return nil, fmt.Errorf("failed to save photo: %w", err)
		}
		rec.Photo = &path
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO assessments
			(id, weight_kg, height_cm, bmi, category, posture_category, posture_ratio, photo, notes, lang, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.WeightKg, rec.HeightCm, rec.BMI, rec.Category,
		rec.PostureCategory, rec.PostureRatio, rec.Photo, rec.Notes, rec.Lang, rec.CreatedAt,
	)
	if err != nil {
		if rec.Photo != nil {
			os.Remove(s.photoPath(*rec.Photo))
		}
		return nil, fmt.Errorf("failed to insert record: %w", err)
	}

	return rec, nil
}

// Get retrieves a record by ID
func (s *Store) Get(id string) (*Record, error) {
	row := s.db.QueryRow(`SELECT `+columns+` FROM assessments WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	return rec, nil
}

// List returns records newest first. limit <= 0 returns all.
func (s *Store) List(limit int) ([]*Record, error) {
	query := `SELECT ` + columns + ` FROM assessments ORDER BY created_at DESC, rowid DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			continue // Skip unreadable rows
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete removes a record and its photo
func (s *Store) Delete(id string) error {
	rec, err := s.Get(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM assessments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	if rec.Photo != nil {
		os.Remove(s.photoPath(*rec.Photo)) // Ignore errors
	}
	return nil
}

// Count returns the number of stored records
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT count(*) FROM assessments`).Scan(&n)
	return n, err
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

const columns = `id, weight_kg, height_cm, bmi, category, posture_category, posture_ratio, photo, notes, lang, created_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec             Record
		postureCategory sql.NullString
		postureRatio    sql.NullFloat64
		photo           sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.WeightKg, &rec.HeightCm, &rec.BMI, &rec.Category,
		&postureCategory, &postureRatio, &photo, &rec.Notes, &rec.Lang, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	if postureCategory.Valid {
		rec.PostureCategory = &postureCategory.String
	}
	if postureRatio.Valid {
		rec.PostureRatio = &postureRatio.Float64
	}
	if photo.Valid {
		rec.Photo = &photo.String
	}
	return &rec, nil
}

// photoPath maps a served URL path back onto the images directory
func (s *Store) photoPath(urlPath string) string {
	return filepath.Join(s.imagesDir, filepath.Base(strings.TrimPrefix(urlPath, ImagesURLPrefix)))
}

// savePhoto writes the photo to disk and returns the URL path for serving
func (s *Store) savePhoto(id string, photo *Photo) (string, error) {
	ext := photo.Ext
	switch ext {
	case ".png", ".jpg":
	case ".jpeg":
		ext = ".jpg"
	default:
		return "", fmt.Errorf("unsupported photo extension %q", photo.Ext)
	}

	filename := id + ext
	path := filepath.Join(s.imagesDir, filename)
	if err := os.WriteFile(path, photo.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	return ImagesURLPrefix + filename, nil
}

// NewPhoto wraps raw upload bytes, taking the extension from the content.
// Only PNG and JPEG are accepted.
func NewPhoto(data []byte) (*Photo, error) {
	switch ct := http.DetectContentType(data); ct {
	case "image/png":
		return &Photo{Data: data, Ext: ".png"}, nil
	case "image/jpeg":
		return &Photo{Data: data, Ext: ".jpg"}, nil
	default:
		return nil, fmt.Errorf("unsupported image type %q", ct)
	}
}

// DecodeDataURL parses a base64 image data URL such as
// data:image/png;base64,iVBOR... into a photo
func DecodeDataURL(dataURL string) (*Photo, error) {
	if !strings.HasPrefix(dataURL, "data:image") {
		return nil, fmt.Errorf("not an image data URL")
	}
	parts := strings.SplitN(dataURL, ",", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid data URL format")
	}

	// Determine file extension from MIME type
	var ext string
	switch {
	case strings.Contains(parts[0], "png"):
		ext = ".png"
	case strings.Contains(parts[0], "jpeg"), strings.Contains(parts[0], "jpg"):
		ext = ".jpg"
	default:
		return nil, fmt.Errorf("unsupported image type %q", parts[0])
	}

	data, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image: %w", err)
	}
	return &Photo{Data: data, Ext: ext}, nil
}
