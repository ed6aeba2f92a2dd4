package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrTranscriptNotFound is returned when no row matches a job ID
var ErrTranscriptNotFound = errors.New("transcript not found")

// TranscriptRecord is one finished job in the history table
type TranscriptRecord struct {
	JobID            string    `json:"job_id"`
	RequestName      string    `json:"request_name"`
	SourceType       string    `json:"source_type"`
	TranscriptionJob string    `json:"transcription_job"`
	MediaURI         string    `json:"media_uri"`
	TranscriptURI    string    `json:"transcript_uri"`
	GDriveURL        string    `json:"gdrive_url"`
	LocalPath        string    `json:"local_path"`
	CreatedAt        time.Time `json:"created_at"`
	Duration         float64   `json:"duration"`
	WordCount        int       `json:"word_count"`
}

// MetadataDB handles SQLite database operations
type MetadataDB struct {
	db *sql.DB
}

// NewMetadataDB opens (or creates) the database at dbPath
func NewMetadataDB(dbPath string) (*MetadataDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS transcripts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL UNIQUE,
		request_name TEXT NOT NULL,
		source_type TEXT NOT NULL,
		transcription_job TEXT NOT NULL,
		media_uri TEXT,
		transcript_uri TEXT,
		gdrive_url TEXT,
		local_path TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		duration REAL,
		word_count INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_created_at ON transcripts(created_at);
	CREATE INDEX IF NOT EXISTS idx_request_name ON transcripts(request_name);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MetadataDB{db: db}, nil
}

// SaveTranscript inserts a history row. CreatedAt defaults to now.
func (mdb *MetadataDB) SaveTranscript(rec TranscriptRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	query := `
	INSERT INTO transcripts (job_id, request_name, source_type, transcription_job, media_uri,
		transcript_uri, gdrive_url, local_path, created_at, duration, word_count)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := mdb.db.Exec(query, rec.JobID, rec.RequestName, rec.SourceType, rec.TranscriptionJob,
		rec.MediaURI, rec.TranscriptURI, rec.GDriveURL, rec.LocalPath, rec.CreatedAt.UTC(),
		rec.Duration, rec.WordCount)
	if err != nil {
		return fmt.Errorf("failed to save transcript metadata: %w", err)
	}
	return nil
}

const selectColumns = `job_id, request_name, source_type, transcription_job, media_uri,
	transcript_uri, gdrive_url, local_path, created_at, duration, word_count`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (TranscriptRecord, error) {
	var (
		rec                          TranscriptRecord
		mediaURI, transcriptURI, url sql.NullString
		duration                     sql.NullFloat64
		wordCount                    sql.NullInt64
	)
	err := row.Scan(&rec.JobID, &rec.RequestName, &rec.SourceType, &rec.TranscriptionJob,
		&mediaURI, &transcriptURI, &url, &rec.LocalPath, &rec.CreatedAt, &duration, &wordCount)
	if err != nil {
		return rec, err
	}
	rec.MediaURI = mediaURI.String
	rec.TranscriptURI = transcriptURI.String
	rec.GDriveURL = url.String
	rec.Duration = duration.Float64
	rec.WordCount = int(wordCount.Int64)
	return rec, nil
}

// GetTranscript retrieves transcript metadata by job ID
func (mdb *MetadataDB) GetTranscript(jobID string) (*TranscriptRecord, error) {
	row := mdb.db.QueryRow(`SELECT `+selectColumns+` FROM transcripts WHERE job_id = ?`, jobID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTranscriptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}
	return &rec, nil
}

// ListTranscripts returns the most recent transcripts first
func (mdb *MetadataDB) ListTranscripts(limit int) ([]TranscriptRecord, error) {
	rows, err := mdb.db.Query(`SELECT `+selectColumns+` FROM transcripts ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	defer rows.Close()

	transcripts := make([]TranscriptRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		transcripts = append(transcripts, rec)
	}
	return transcripts, rows.Err()
}

// Close closes the database connection
func (mdb *MetadataDB) Close() error {
	return mdb.db.Close()
}
