package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	viral "github.com/USBABC1/V75VIRAL"
	"github.com/USBABC1/V75VIRAL/db"
	"github.com/USBABC1/V75VIRAL/models"
)

// providerStub serves both the hashtag-content endpoint and the
// chat-completion endpoint so one test server can back a whole Finder.
func providerStub(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "run-sync-get-dataset-items"):
			items := []map[string]interface{}{
				{
					"likesCount":    3000,
					"commentsCount": 100,
					"displayUrl":    "https://cdn.example.com/a.jpg",
					"url":           "https://instagram.com/p/a",
					"caption":       "Post A #saude",
					"ownerUsername": "clinic_a",
				},
				{
					"likesCount":    200,
					"commentsCount": 5,
					"displayUrl":    "https://cdn.example.com/b.jpg",
					"url":           "https://instagram.com/p/b",
					"caption":       "Post B",
					"ownerUsername": "clinic_b",
				},
			}
			json.NewEncoder(w).Encode(items)
		case strings.HasSuffix(r.URL.Path, "/v1/chat/completions"):
			analysis := `{"estimated_views": 8000, "engagement_score": 80, "content_quality": 90, "viral_factors": ["visual_appeal"]}`
			json.NewEncoder(w).Encode(models.ChatResponse{
				Choices: []models.ChatChoice{
					{Message: models.ChatMessage{Role: "assistant", Content: analysis}},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func setupTestServer(t *testing.T, providerURL string) *Server {
	t.Helper()

	cfg := viral.DefaultConfig()
	cfg.ContentAPIURL = providerURL
	cfg.ContentAPIToken = "test-token"
	cfg.OpenAIBaseURL = providerURL
	cfg.OpenAIKey = "test-key"

	return NewServer(DefaultConfig(), db.NewMemoryStore(0), viral.New(cfg))
}

func doRequest(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	s := setupTestServer(t, "http://unused.invalid")

	rec := doRequest(t, s, "GET", "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", resp["status"])
	}
}

func TestSearchValidation(t *testing.T) {
	s := setupTestServer(t, "http://unused.invalid")

	tests := []struct {
		name    string
		body    interface{}
		wantMsg string
	}{
		{"empty query", map[string]interface{}{"query": "  "}, "query is required"},
		{"negative max_images", map[string]interface{}{"query": "q", "max_images": -1}, "max_images must be greater than zero"},
		{"explicit zero max_images", map[string]interface{}{"query": "q", "max_images": 0}, "max_images must be greater than zero"},
		{"negative min_engagement", map[string]interface{}{"query": "q", "min_engagement": -5}, "min_engagement must not be negative"},
		{"unknown platform", map[string]interface{}{"query": "q", "platforms": []string{"tiktok"}}, "unsupported platform: tiktok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, s, "POST", "/api/search", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("Status = %d, want 400", rec.Code)
			}

			var resp map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp["error"] != tt.wantMsg {
				t.Errorf("error = %q, want %q", resp["error"], tt.wantMsg)
			}
		})
	}
}

func TestSearchInvalidBody(t *testing.T) {
	s := setupTestServer(t, "http://unused.invalid")

	req := httptest.NewRequest("POST", "/api/search", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Status = %d, want 400", rec.Code)
	}
}

func TestSearchEndToEnd(t *testing.T) {
	provider := providerStub(t)
	defer provider.Close()

	s := setupTestServer(t, provider.URL)

	rec := doRequest(t, s, "POST", "/api/search", map[string]interface{}{
		"query":          "telemedicina",
		"platforms":      []string{models.PlatformInstagram},
		"max_images":     5,
		"min_engagement": 0,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Search.Status != models.StatusCompleted {
		t.Errorf("Status = %s, want %s", resp.Search.Status, models.StatusCompleted)
	}
	if len(resp.Images) != 2 {
		t.Fatalf("Expected 2 images, got %d", len(resp.Images))
	}
	if resp.Search.TotalResults != 2 {
		t.Errorf("TotalResults = %d, want 2", resp.Search.TotalResults)
	}
	if resp.Images[0].EngagementScore < resp.Images[1].EngagementScore {
		t.Error("Images not sorted by engagement score")
	}
	if resp.Summary.TotalImages != 2 {
		t.Errorf("Summary.TotalImages = %d, want 2", resp.Summary.TotalImages)
	}

	// The completed search is retrievable afterwards
	get := doRequest(t, s, "GET", "/api/search/"+resp.Search.ID, nil)
	if get.Code != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", get.Code)
	}

	var stored SearchResponse
	if err := json.Unmarshal(get.Body.Bytes(), &stored); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(stored.Images) != 2 {
		t.Errorf("Expected 2 stored images, got %d", len(stored.Images))
	}
	if stored.Search.CompletedAt == nil {
		t.Error("CompletedAt not set on stored record")
	}
}

func TestSearchMinEngagementDefault(t *testing.T) {
	provider := providerStub(t)
	defer provider.Close()

	s := setupTestServer(t, provider.URL)

	// Default min_engagement of 50 filters out the weaker post
	rec := doRequest(t, s, "POST", "/api/search", map[string]interface{}{
		"query":     "telemedicina",
		"platforms": []string{models.PlatformInstagram},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Images) != 1 {
		t.Fatalf("Expected 1 image above default threshold, got %d", len(resp.Images))
	}
	if resp.Images[0].PostURL != "https://instagram.com/p/a" {
		t.Errorf("Unexpected surviving image: %s", resp.Images[0].PostURL)
	}
}

func TestSearchByIDNotFound(t *testing.T) {
	s := setupTestServer(t, "http://unused.invalid")

	rec := doRequest(t, s, "GET", "/api/search/no-such-id", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Status = %d, want 404", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["error"] != "Search not found" {
		t.Errorf("error = %q, want %q", resp["error"], "Search not found")
	}
}

func TestListSearches(t *testing.T) {
	s := setupTestServer(t, "http://unused.invalid")

	for i := 0; i < 3; i++ {
		rec := &models.SearchRecord{
			ID:        fmt.Sprintf("search-%d", i),
			Query:     "q",
			Status:    models.StatusCompleted,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.store.CreateSearch(rec); err != nil {
			t.Fatalf("CreateSearch failed: %v", err)
		}
	}

	rec := doRequest(t, s, "GET", "/api/searches?limit=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}

	var resp struct {
		Searches []models.SearchRecord `json:"searches"`
		Count    int                   `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Count != 2 || len(resp.Searches) != 2 {
		t.Errorf("Count = %d, len = %d, want 2", resp.Count, len(resp.Searches))
	}
	if resp.Searches[0].ID != "search-2" {
		t.Errorf("Expected most recent first, got %s", resp.Searches[0].ID)
	}
}

func TestListSearchesEmpty(t *testing.T) {
	s := setupTestServer(t, "http://unused.invalid")

	rec := doRequest(t, s, "GET", "/api/searches", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"searches":[]`) {
		t.Errorf("Expected empty array, got %s", rec.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := setupTestServer(t, "http://unused.invalid")

	tests := []struct {
		method string
		path   string
	}{
		{"GET", "/api/search"},
		{"POST", "/api/searches"},
		{"POST", "/api/search/some-id"},
		{"DELETE", "/health"},
	}

	for _, tt := range tests {
		rec := doRequest(t, s, tt.method, tt.path, nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: status = %d, want 405", tt.method, tt.path, rec.Code)
		}
	}
}

func TestCORSHeaders(t *testing.T) {
	s := setupTestServer(t, "http://unused.invalid")

	rec := doRequest(t, s, "OPTIONS", "/api/search", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestMetricPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/api/search", "/api/search"},
		{"/api/search/abc-123", "/api/search/{id}"},
		{"/health", "/health"},
	}
	for _, tt := range tests {
		if got := metricPath(tt.in); got != tt.want {
			t.Errorf("metricPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
