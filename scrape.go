package viral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"

	"github.com/USBABC1/V75VIRAL/metrics"
	"github.com/USBABC1/V75VIRAL/models"
)

// scrapePlatform dispatches to the scraper for a single platform.
func (f *Finder) scrapePlatform(ctx context.Context, platform, query string, limit int) ([]models.Candidate, error) {
	switch platform {
	case models.PlatformInstagram:
		return f.scrapeInstagram(ctx, query, limit)
	case models.PlatformFacebook:
		return f.scrapeFacebook(ctx, query, limit)
	default:
		return nil, fmt.Errorf("unsupported platform: %s", platform)
	}
}

// scrapeInstagram queries the hashtag content API with the whitespace
// stripped out of the query. On any failure it falls back to a generic
// image search restricted to instagram.com.
func (f *Finder) scrapeInstagram(ctx context.Context, query string, limit int) ([]models.Candidate, error) {
	candidates, err := f.hashtagPosts(ctx, strings.ReplaceAll(query, " ", ""), limit)
	if err == nil {
		return candidates, nil
	}
	f.logger.Printf("instagram content API failed, falling back to image search: %v", err)

	fallback, err := f.imageSearch(ctx, query+" site:instagram.com", models.PlatformInstagram, limit)
	if err != nil {
		return nil, fmt.Errorf("instagram fallback search failed: %w", err)
	}
	return fallback, nil
}

// scrapeFacebook runs a web search restricted to facebook.com with viral
// keywords attached. There is no fallback; failure yields no candidates.
func (f *Finder) scrapeFacebook(ctx context.Context, query string, limit int) ([]models.Candidate, error) {
	return f.webSearch(ctx, fmt.Sprintf("site:facebook.com %s viral engagement", query), models.PlatformFacebook, limit)
}

// hashtagPosts calls the Apify-style hashtag scraper endpoint and
// normalizes its items into candidates.
func (f *Finder) hashtagPosts(ctx context.Context, hashtag string, limit int) ([]models.Candidate, error) {
	if f.config.ContentAPIToken == "" {
		return nil, fmt.Errorf("content API token not configured")
	}

	payload := map[string]interface{}{
		"hashtags":     []string{hashtag},
		"resultsLimit": limit,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := f.config.ContentAPIURL + "/v2/acts/apify~instagram-hashtag-scraper/run-sync-get-dataset-items"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.config.ContentAPIToken)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues("content", "error").Inc()
		return nil, fmt.Errorf("content API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		metrics.ProviderRequestsTotal.WithLabelValues("content", "error").Inc()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("content API returned status %d: %s", resp.StatusCode, string(respBody))
	}
	metrics.ProviderRequestsTotal.WithLabelValues("content", "ok").Inc()

	var items []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode content API response: %w", err)
	}

	candidates := make([]models.Candidate, 0, len(items))
	for _, item := range items {
		c := models.Candidate{
			ID:          stringField(item, "id", "shortCode"),
			ImageURL:    stringField(item, "displayUrl", "imageUrl"),
			PostURL:     stringField(item, "url", "postUrl"),
			Description: stringField(item, "caption", "text"),
			Raw:         item,
		}
		c.Title = titleFromCaption(c.Description, hashtag)
		if c.ImageURL == "" {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// imageSearch queries the generic image-search API and normalizes the
// hits into candidates. The raw payload is minimal, so extraction over
// these candidates yields zero-valued metrics.
func (f *Finder) imageSearch(ctx context.Context, query, platform string, limit int) ([]models.Candidate, error) {
	var result models.SerperImagesResponse
	if err := f.searchAPI(ctx, "/images", query, limit, &result); err != nil {
		return nil, err
	}

	candidates := make([]models.Candidate, 0, len(result.Images))
	for _, img := range result.Images {
		if img.ImageURL == "" {
			continue
		}
		candidates = append(candidates, models.Candidate{
			ImageURL:    img.ImageURL,
			PostURL:     img.Link,
			Title:       stripHTML(img.Title),
			Description: stripHTML(img.Title),
			Raw: map[string]interface{}{
				"source":   img.Source,
				"platform": platform,
			},
		})
	}
	return candidates, nil
}

// webSearch queries the generic web-search API and normalizes organic
// hits into candidates. Search hits carry no image of their own, so the
// post URL doubles as the image URL.
func (f *Finder) webSearch(ctx context.Context, query, platform string, limit int) ([]models.Candidate, error) {
	var result models.SerperSearchResponse
	if err := f.searchAPI(ctx, "/search", query, limit, &result); err != nil {
		return nil, err
	}

	candidates := make([]models.Candidate, 0, len(result.Organic))
	for _, hit := range result.Organic {
		if hit.Link == "" {
			continue
		}
		candidates = append(candidates, models.Candidate{
			ImageURL:    hit.Link,
			PostURL:     hit.Link,
			Title:       stripHTML(hit.Title),
			Description: stripHTML(hit.Snippet),
			Raw: map[string]interface{}{
				"snippet":  hit.Snippet,
				"platform": platform,
			},
		})
	}
	return candidates, nil
}

// searchAPI performs one call against the Serper-style search API.
func (f *Finder) searchAPI(ctx context.Context, path, query string, limit int, out interface{}) error {
	if f.config.SearchAPIKey == "" {
		return fmt.Errorf("search API key not configured")
	}

	body, err := json.Marshal(map[string]interface{}{
		"q":   query,
		"num": limit,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", f.config.SearchAPIURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", f.config.SearchAPIKey)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues("search", "error").Inc()
		return fmt.Errorf("search API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ProviderRequestsTotal.WithLabelValues("search", "error").Inc()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("search API returned status %d: %s", resp.StatusCode, string(respBody))
	}
	metrics.ProviderRequestsTotal.WithLabelValues("search", "ok").Inc()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode search API response: %w", err)
	}
	return nil
}

// stripHTML strips markup out of search-API snippets, which often carry
// <b> highlighting around query terms.
func stripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}

	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.TrimSpace(buf.String())
}

// titleFromCaption derives a short title from a post caption, falling
// back to the hashtag when the caption is empty.
func titleFromCaption(caption, fallback string) string {
	caption = strings.TrimSpace(caption)
	if caption == "" {
		return "#" + fallback
	}
	if idx := strings.IndexAny(caption, "\n"); idx > 0 {
		caption = caption[:idx]
	}
	runes := []rune(caption)
	if len(runes) > 80 {
		return string(runes[:77]) + "..."
	}
	return caption
}

func stringField(item map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s, ok := item[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
