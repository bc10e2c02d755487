package viral

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/USBABC1/V75VIRAL/metrics"
	"github.com/USBABC1/V75VIRAL/models"
	"github.com/USBABC1/V75VIRAL/openai"
)

// Config contains finder configuration
type Config struct {
	HTTPTimeout time.Duration

	ContentAPIURL   string // Apify-style hashtag content discovery
	ContentAPIToken string
	SearchAPIURL    string // Serper-style web/image search
	SearchAPIKey    string

	OpenAIBaseURL string
	OpenAIKey     string
	OpenAIModel   string

	DownloadImages    bool   // Save a local copy of each result image
	ImagesDir         string // Where downloaded images land, one dir per search
	MaxImageSizeBytes int64  // Maximum image size to download (bytes)
	ImageTimeout      time.Duration
}

// DefaultConfig returns default finder configuration
func DefaultConfig() Config {
	return Config{
		HTTPTimeout:       30 * time.Second,
		ContentAPIURL:     "https://api.apify.com",
		SearchAPIURL:      "https://google.serper.dev",
		OpenAIBaseURL:     openai.DefaultBaseURL,
		OpenAIModel:       openai.DefaultModel,
		DownloadImages:    false,
		ImagesDir:         "analyses_data/viral_images",
		MaxImageSizeBytes: 10 * 1024 * 1024, // 10MB max image size
		ImageTimeout:      15 * time.Second,
	}
}

// Finder runs the whole search pipeline: scrape candidates per platform,
// extract and estimate metrics, score, filter, rank.
type Finder struct {
	config     Config
	httpClient *http.Client
	analyzer   *openai.Client
	logger     *log.Logger
}

// New creates a new Finder instance
func New(config Config) *Finder {
	return &Finder{
		config: config,
		httpClient: &http.Client{
			Timeout: config.HTTPTimeout,
		},
		analyzer: openai.NewClient(config.OpenAIBaseURL, config.OpenAIKey, config.OpenAIModel),
		logger:   log.Default(),
	}
}

// Search collects, scores and ranks viral content for one search request.
// Provider and analyzer failures degrade to fallbacks or empty platform
// results; the only error returned is context cancellation.
func (f *Finder) Search(ctx context.Context, searchID string, req models.SearchRequest) ([]models.ViralImage, error) {
	perPlatform := (req.MaxImages + len(req.Platforms) - 1) / len(req.Platforms)

	collected := []models.ViralImage{}
	for _, platform := range req.Platforms {
		if err := ctx.Err(); err != nil {
			return collected, err
		}

		candidates, err := f.scrapePlatform(ctx, platform, req.Query, perPlatform)
		if err != nil {
			f.logger.Printf("scraping %s failed: %v", platform, err)
			continue
		}
		f.logger.Printf("found %d candidates on %s for %q", len(candidates), platform, req.Query)

		for _, candidate := range candidates {
			if err := ctx.Err(); err != nil {
				return collected, err
			}

			img := f.evaluate(ctx, searchID, platform, candidate)
			if float64(img.EngagementScore) < req.MinEngagement {
				continue
			}
			collected = append(collected, img)
		}
	}

	sort.SliceStable(collected, func(i, j int) bool {
		return collected[i].EngagementScore > collected[j].EngagementScore
	})
	if len(collected) > req.MaxImages {
		collected = collected[:req.MaxImages]
	}

	if f.config.DownloadImages {
		f.downloadImages(ctx, searchID, collected)
	}

	return collected, nil
}

// evaluate turns one candidate into a scored result. An analyzer failure
// is logged and replaced with the fixed fallback analysis so that scoring
// always proceeds.
func (f *Finder) evaluate(ctx context.Context, searchID, platform string, candidate models.Candidate) models.ViralImage {
	extracted := ExtractMetrics(candidate.Raw, platform)

	analysis, err := f.analyzer.Analyze(ctx, candidate, platform)
	fallback := err != nil
	if fallback {
		f.logger.Printf("analysis failed for %s, using fallback: %v", candidate.PostURL, err)
		analysis = openai.FallbackAnalysis()
		metrics.AnalyzerFallbacksTotal.Inc()
	}

	return models.ViralImage{
		ID:              uuid.New().String(),
		SearchID:        searchID,
		Platform:        platform,
		Title:           candidate.Title,
		Description:     candidate.Description,
		ImageURL:        candidate.ImageURL,
		PostURL:         candidate.PostURL,
		EngagementScore: Score(extracted, analysis),
		Metrics:         extracted,
		Analysis:        analysis,
		AIFallback:      fallback,
		CollectedAt:     time.Now().UTC(),
	}
}

// downloadImages saves a local copy of each result image, best effort.
// A failed download keeps the result without a local path.
func (f *Finder) downloadImages(ctx context.Context, searchID string, images []models.ViralImage) {
	dir := filepath.Join(f.config.ImagesDir, searchID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		f.logger.Printf("failed to create images dir %s: %v", dir, err)
		return
	}

	for i := range images {
		path := filepath.Join(dir, fmt.Sprintf("viral_image_%d.%s", i+1, imageExtension(images[i].ImageURL)))
		if err := f.downloadImage(ctx, images[i].ImageURL, path); err != nil {
			f.logger.Printf("failed to download image %s: %v", images[i].ImageURL, err)
			continue
		}
		images[i].LocalPath = path
	}
}

// downloadImage fetches one image with size and timeout limits.
func (f *Finder) downloadImage(ctx context.Context, imageURL, path string) error {
	ctx, cancel := context.WithTimeout(ctx, f.config.ImageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", imageURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; ViralFinder/1.0)")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}
	if resp.ContentLength > f.config.MaxImageSizeBytes {
		return fmt.Errorf("image too large: %d bytes (max: %d)", resp.ContentLength, f.config.MaxImageSizeBytes)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxImageSizeBytes+1))
	if err != nil {
		return fmt.Errorf("failed to read image data: %w", err)
	}
	if int64(len(data)) > f.config.MaxImageSizeBytes {
		return fmt.Errorf("image too large: exceeds %d bytes", f.config.MaxImageSizeBytes)
	}

	return os.WriteFile(path, data, 0o644)
}

var imageExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true,
}

func imageExtension(imageURL string) string {
	parsed, err := url.Parse(imageURL)
	if err != nil {
		return "jpg"
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(parsed.Path), "."))
	if imageExtensions[ext] {
		return ext
	}
	return "jpg"
}
