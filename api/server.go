package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	viral "github.com/USBABC1/V75VIRAL"
	"github.com/USBABC1/V75VIRAL/db"
	"github.com/USBABC1/V75VIRAL/metrics"
	"github.com/USBABC1/V75VIRAL/models"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100

	searchTimeout = 10 * time.Minute
)

// Server represents the API server
type Server struct {
	store       db.Store
	finder      *viral.Finder
	addr        string
	server      *http.Server
	mux         *http.ServeMux
	corsEnabled bool
	defaults    RequestDefaults
}

// RequestDefaults fills in fields the client omitted from a search
// request.
type RequestDefaults struct {
	MaxImages     int
	MinEngagement float64
	Platforms     []string
}

// Config contains server configuration
type Config struct {
	Addr        string
	CORSEnabled bool
	Defaults    RequestDefaults
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		Addr:        ":8787",
		CORSEnabled: true,
		Defaults: RequestDefaults{
			MaxImages:     20,
			MinEngagement: 50,
			Platforms:     []string{models.PlatformInstagram, models.PlatformFacebook},
		},
	}
}

// NewServer creates a new API server around an injected store and finder
func NewServer(config Config, store db.Store, finder *viral.Finder) *Server {
	s := &Server{
		store:       store,
		finder:      finder,
		addr:        config.Addr,
		mux:         http.NewServeMux(),
		corsEnabled: config.CORSEnabled,
		defaults:    config.Defaults,
	}

	s.registerRoutes()

	s.server = &http.Server{
		Addr:         config.Addr,
		Handler:      s.middleware(s.mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 15 * time.Minute, // Allow time for long-running searches
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// registerRoutes sets up all API routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/search", s.handleSearch)
	s.mux.HandleFunc("/api/search/", s.handleSearchByID) // Handles /api/search/{id}
	s.mux.HandleFunc("/api/searches", s.handleListSearches)
	s.mux.Handle("/metrics", promhttp.Handler())
}

// Start starts the API server
func (s *Server) Start() error {
	log.Printf("Starting API server on %s", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down API server...")
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	return s.store.Close()
}

// middleware applies CORS, logging and timing to all routes
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.corsEnabled {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
		}

		start := time.Now()
		log.Printf("%s %s", r.Method, r.URL.Path)

		next.ServeHTTP(w, r)

		elapsed := time.Since(start)
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, metricPath(r.URL.Path)).Observe(elapsed.Seconds())
		log.Printf("%s %s - completed in %v", r.Method, r.URL.Path, elapsed)
	})
}

// metricPath collapses per-search paths to keep label cardinality bounded
func metricPath(path string) string {
	if strings.HasPrefix(path, "/api/search/") {
		return "/api/search/{id}"
	}
	return path
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().UTC(),
	})
}

// SearchResponse is the payload returned for a completed search
type SearchResponse struct {
	Search  models.SearchRecord `json:"search"`
	Images  []models.ViralImage `json:"images"`
	Summary models.Summary      `json:"summary"`
}

// handleSearch runs the full search pipeline for one request
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	req, errMsg := s.decodeSearchRequest(r)
	if errMsg != "" {
		respondError(w, http.StatusBadRequest, errMsg)
		return
	}

	rec := &models.SearchRecord{
		ID:        uuid.New().String(),
		Query:     req.Query,
		Status:    models.StatusProcessing,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateSearch(rec); err != nil {
		// A failed save never fails the search itself
		log.Printf("Failed to create search record: %v", err)
	}

	ctx, cancel := context.WithTimeout(r.Context(), searchTimeout)
	defer cancel()

	images, err := s.finder.Search(ctx, rec.ID, req)
	if err != nil {
		s.finishSearch(rec, models.StatusFailed, 0)
		metrics.SearchesTotal.WithLabelValues(models.StatusFailed).Inc()
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "search failed",
			"details": err.Error(),
		})
		return
	}

	if err := s.store.SaveImages(rec.ID, images); err != nil {
		log.Printf("Failed to save images for search %s: %v", rec.ID, err)
	}
	s.finishSearch(rec, models.StatusCompleted, len(images))
	metrics.SearchesTotal.WithLabelValues(models.StatusCompleted).Inc()

	respondJSON(w, http.StatusOK, SearchResponse{
		Search:  *rec,
		Images:  images,
		Summary: viral.BuildSummary(images),
	})
}

// decodeSearchRequest decodes and validates the request body, applying
// defaults for omitted fields. Pointer fields in the body distinguish
// an omitted value from an explicit zero. A non-empty return message
// means 400.
func (s *Server) decodeSearchRequest(r *http.Request) (models.SearchRequest, string) {
	var body struct {
		Query         string   `json:"query"`
		MaxImages     *int     `json:"max_images"`
		MinEngagement *float64 `json:"min_engagement"`
		Platforms     []string `json:"platforms"`
	}
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return req, "invalid request body"
	}

	req.Query = strings.TrimSpace(body.Query)
	if req.Query == "" {
		return req, "query is required"
	}

	req.MaxImages = s.defaults.MaxImages
	if body.MaxImages != nil {
		req.MaxImages = *body.MaxImages
	}
	if req.MaxImages <= 0 {
		return req, "max_images must be greater than zero"
	}

	req.MinEngagement = s.defaults.MinEngagement
	if body.MinEngagement != nil {
		req.MinEngagement = *body.MinEngagement
	}
	if req.MinEngagement < 0 {
		return req, "min_engagement must not be negative"
	}

	req.Platforms = body.Platforms
	if len(req.Platforms) == 0 {
		req.Platforms = s.defaults.Platforms
	}
	for _, platform := range req.Platforms {
		if platform != models.PlatformInstagram && platform != models.PlatformFacebook {
			return req, fmt.Sprintf("unsupported platform: %s", platform)
		}
	}

	return req, ""
}

// finishSearch flips the record to its terminal state, best effort
func (s *Server) finishSearch(rec *models.SearchRecord, status string, totalResults int) {
	now := time.Now().UTC()
	rec.Status = status
	rec.TotalResults = totalResults
	rec.CompletedAt = &now

	if err := s.store.UpdateSearchStatus(rec.ID, status, totalResults, now); err != nil {
		log.Printf("Failed to update search %s: %v", rec.ID, err)
	}
}

// handleListSearches returns recent searches, most-recent-first
func (s *Server) handleListSearches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := defaultListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			limit = parsed
		}
	}
	if limit < 1 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	searches, err := s.store.ListRecent(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}
	if searches == nil {
		searches = []*models.SearchRecord{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"searches": searches,
		"count":    len(searches),
	})
}

// handleSearchByID returns one search's record, images and summary
func (s *Server) handleSearchByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/search/")
	if id == "" {
		respondError(w, http.StatusBadRequest, "id is required")
		return
	}

	rec, err := s.store.GetSearch(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}
	if rec == nil {
		respondError(w, http.StatusNotFound, "Search not found")
		return
	}

	images, err := s.store.GetImages(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}

	respondJSON(w, http.StatusOK, SearchResponse{
		Search:  *rec,
		Images:  images,
		Summary: viral.BuildSummary(images),
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
