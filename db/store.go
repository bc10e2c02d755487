package db

import (
	"time"

	"github.com/USBABC1/V75VIRAL/models"
)

// Store is the persistence adapter for search records and their result
// sets. Implementations: SQLite (DB) and bounded in-memory (MemoryStore).
// Neither promises multi-writer atomicity beyond single-statement
// serialization; concurrent writers may lose updates.
type Store interface {
	// CreateSearch inserts a new record, normally in processing state.
	CreateSearch(rec *models.SearchRecord) error

	// UpdateSearchStatus flips a record to completed or failed. Records
	// are never updated again after this.
	UpdateSearchStatus(id, status string, totalResults int, completedAt time.Time) error

	// SaveImages replaces the stored result set for a search.
	SaveImages(searchID string, images []models.ViralImage) error

	// ListRecent returns records most-recent-first, capped at limit.
	ListRecent(limit int) ([]*models.SearchRecord, error)

	// GetSearch returns a record by id, or nil when unknown.
	GetSearch(id string) (*models.SearchRecord, error)

	// GetImages returns a search's result set in stored order.
	GetImages(searchID string) ([]models.ViralImage, error)

	Close() error
}
