package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/USBABC1/V75VIRAL/models"
)

// DB is the SQLite-backed Store
type DB struct {
	conn *sql.DB
}

// Config contains database configuration
type Config struct {
	Driver string
	DSN    string
}

// DefaultConfig returns a default SQLite configuration
func DefaultConfig() Config {
	return Config{
		Driver: "sqlite",
		DSN:    "viral.db",
	}
}

// New creates a new database connection
func New(config Config) (*DB, error) {
	conn, err := sql.Open(config.Driver, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err := Migrate(conn); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// CreateSearch inserts a new search record
func (db *DB) CreateSearch(rec *models.SearchRecord) error {
	_, err := db.conn.Exec(
		`INSERT INTO searches (id, query, status, total_results, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Query,
		rec.Status,
		rec.TotalResults,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to create search: %w", err)
	}
	return nil
}

// UpdateSearchStatus flips a search to its terminal state
func (db *DB) UpdateSearchStatus(id, status string, totalResults int, completedAt time.Time) error {
	result, err := db.conn.Exec(
		`UPDATE searches SET status = ?, total_results = ?, completed_at = ? WHERE id = ?`,
		status,
		totalResults,
		completedAt.UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update search: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("no search found with id: %s", id)
	}
	return nil
}

// SaveImages replaces the stored result set for a search. Images are
// kept as JSON documents, one row each, in result order.
func (db *DB) SaveImages(searchID string, images []models.ViralImage) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM viral_images WHERE search_id = ?`, searchID); err != nil {
		return fmt.Errorf("failed to clear images: %w", err)
	}

	for i, img := range images {
		jsonData, err := json.Marshal(img)
		if err != nil {
			return fmt.Errorf("failed to marshal image: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT INTO viral_images (id, search_id, position, engagement_score, data) VALUES (?, ?, ?, ?, ?)`,
			img.ID, searchID, i, img.EngagementScore, string(jsonData),
		); err != nil {
			return fmt.Errorf("failed to save image: %w", err)
		}
	}

	return tx.Commit()
}

// ListRecent returns search records most-recent-first
func (db *DB) ListRecent(limit int) ([]*models.SearchRecord, error) {
	rows, err := db.conn.Query(
		`SELECT id, query, status, total_results, created_at, completed_at
		 FROM searches ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query searches: %w", err)
	}
	defer rows.Close()

	var results []*models.SearchRecord
	for rows.Next() {
		rec, err := scanSearch(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return results, nil
}

// GetSearch retrieves a search record by ID, nil when unknown
func (db *DB) GetSearch(id string) (*models.SearchRecord, error) {
	row := db.conn.QueryRow(
		`SELECT id, query, status, total_results, created_at, completed_at FROM searches WHERE id = ?`, id)

	rec, err := scanSearch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetImages returns a search's result set in stored order
func (db *DB) GetImages(searchID string) ([]models.ViralImage, error) {
	rows, err := db.conn.Query(
		`SELECT data FROM viral_images WHERE search_id = ? ORDER BY position`, searchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	images := []models.ViralImage{}
	for rows.Next() {
		var jsonData string
		if err := rows.Scan(&jsonData); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var img models.ViralImage
		if err := json.Unmarshal([]byte(jsonData), &img); err != nil {
			return nil, fmt.Errorf("failed to unmarshal image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return images, nil
}

// CountSearches returns the total number of stored searches
func (db *DB) CountSearches() (int, error) {
	var count int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM searches`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count searches: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSearch(row rowScanner) (*models.SearchRecord, error) {
	var rec models.SearchRecord
	var createdAt string
	var completedAt sql.NullString

	err := row.Scan(&rec.ID, &rec.Query, &rec.Status, &rec.TotalResults, &createdAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan search: %w", err)
	}

	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if completedAt.Valid {
		ts, err := time.Parse(time.RFC3339Nano, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse completed_at: %w", err)
		}
		rec.CompletedAt = &ts
	}
	return &rec, nil
}
