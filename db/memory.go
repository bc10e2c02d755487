package db

import (
	"fmt"
	"sync"
	"time"

	"github.com/USBABC1/V75VIRAL/models"
)

// DefaultMaxHistory bounds the in-memory store's search history.
const DefaultMaxHistory = 100

// MemoryStore is a process-lifetime Store with a bounded history. Once
// the history exceeds its bound the oldest search and its images are
// evicted.
type MemoryStore struct {
	mu         sync.Mutex
	records    map[string]*models.SearchRecord
	images     map[string][]models.ViralImage
	order      []string // insertion order, oldest first
	maxHistory int
}

// NewMemoryStore creates an in-memory Store. maxHistory <= 0 uses
// DefaultMaxHistory.
func NewMemoryStore(maxHistory int) *MemoryStore {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &MemoryStore{
		records:    make(map[string]*models.SearchRecord),
		images:     make(map[string][]models.ViralImage),
		maxHistory: maxHistory,
	}
}

// CreateSearch inserts a new search record, evicting the oldest search
// when the history bound is exceeded.
func (s *MemoryStore) CreateSearch(rec *models.SearchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; exists {
		return fmt.Errorf("search already exists with id: %s", rec.ID)
	}

	stored := *rec
	s.records[rec.ID] = &stored
	s.order = append(s.order, rec.ID)

	for len(s.order) > s.maxHistory {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.records, oldest)
		delete(s.images, oldest)
	}
	return nil
}

// UpdateSearchStatus flips a search to its terminal state
func (s *MemoryStore) UpdateSearchStatus(id, status string, totalResults int, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("no search found with id: %s", id)
	}
	rec.Status = status
	rec.TotalResults = totalResults
	ts := completedAt
	rec.CompletedAt = &ts
	return nil
}

// SaveImages replaces the stored result set for a search
func (s *MemoryStore) SaveImages(searchID string, images []models.ViralImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]models.ViralImage, len(images))
	copy(copied, images)
	s.images[searchID] = copied
	return nil
}

// ListRecent returns search records most-recent-first
func (s *MemoryStore) ListRecent(limit int) ([]*models.SearchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var results []*models.SearchRecord
	for i := len(s.order) - 1; i >= 0 && len(results) < limit; i-- {
		if rec, ok := s.records[s.order[i]]; ok {
			copied := *rec
			results = append(results, &copied)
		}
	}
	return results, nil
}

// GetSearch returns a search record by ID, nil when unknown
func (s *MemoryStore) GetSearch(id string) (*models.SearchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

// GetImages returns a search's result set in stored order
func (s *MemoryStore) GetImages(searchID string) ([]models.ViralImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.images[searchID]
	copied := make([]models.ViralImage, len(stored))
	copy(copied, stored)
	return copied, nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}
