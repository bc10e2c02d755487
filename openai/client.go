package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/USBABC1/V75VIRAL/models"
)

const (
	DefaultBaseURL = "https://api.openai.com"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 60 * time.Second

	maxTokens   = 500
	temperature = 0.3
)

// ErrNoAPIKey is returned when no credential is configured. Callers
// substitute the fallback analysis rather than fail the pipeline.
var ErrNoAPIKey = errors.New("openai: api key not configured")

// ErrNoJSON is returned when the model response contains no
// brace-delimited JSON object.
var ErrNoJSON = errors.New("openai: no JSON object in model response")

// Client is a client for a chat-completion API
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates a new chat-completion client
func NewClient(baseURL, apiKey, model string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// ChatCompletion sends one user prompt to the chat-completion endpoint
// and returns the first choice's text.
func (c *Client) ChatCompletion(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}

	reqBody := models.ChatRequest{
		Model:       c.model,
		Messages:    []models.ChatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp models.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("chat API returned no choices")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// Analyze asks the model to estimate engagement metrics for one
// candidate. Any error leaves the caller responsible for substituting
// FallbackAnalysis; the pipeline never fails on analysis.
func (c *Client) Analyze(ctx context.Context, candidate models.Candidate, platform string) (models.AIAnalysis, error) {
	response, err := c.ChatCompletion(ctx, analysisPrompt(candidate, platform))
	if err != nil {
		return models.AIAnalysis{}, err
	}

	jsonText, ok := extractJSONObject(stripMarkdownCodeBlocks(response))
	if !ok {
		return models.AIAnalysis{}, ErrNoJSON
	}

	var analysis models.AIAnalysis
	if err := json.Unmarshal([]byte(jsonText), &analysis); err != nil {
		return models.AIAnalysis{}, fmt.Errorf("failed to parse analysis JSON: %w", err)
	}
	return analysis, nil
}

// FallbackAnalysis returns the fixed estimate substituted whenever the
// chat-completion call is unavailable or unparseable.
func FallbackAnalysis() models.AIAnalysis {
	return models.AIAnalysis{
		EstimatedLikes:     500,
		EstimatedComments:  50,
		EstimatedShares:    25,
		EstimatedViews:     5000,
		EstimatedFollowers: 10000,
		EngagementScore:    50,
		ViralFactors:       []string{"visual_appeal"},
		SuggestedTitle:     "Viral Content",
		Description:        "Engaging social media content",
		Author:             "unknown",
		Hashtags:           []string{},
		ContentQuality:     70,
	}
}

func analysisPrompt(candidate models.Candidate, platform string) string {
	return fmt.Sprintf(`You are a social media engagement analyst. Estimate the engagement of the following %s post.

Title: %s
Description: %s
URL: %s

Respond with a single JSON object and nothing else, using this schema:
{
  "estimated_likes": 0,
  "estimated_comments": 0,
  "estimated_shares": 0,
  "estimated_views": 0,
  "estimated_followers": 0,
  "engagement_score": 0,
  "viral_factors": ["factor"],
  "suggested_title": "",
  "description": "",
  "author": "",
  "hashtags": ["tag"],
  "content_quality": 0
}

engagement_score and content_quality are numbers from 0 to 100.`,
		platform, candidate.Title, candidate.Description, candidate.PostURL)
}

// extractJSONObject returns the first brace-delimited object in s. The
// model's response format is not a fixed contract, so this stays a
// best-effort span from the first '{' to the last '}'.
func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// stripMarkdownCodeBlocks removes markdown code block wrappers from a
// string, handling cases like "```json\n{...}\n```".
func stripMarkdownCodeBlocks(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		lines := strings.Split(s, "\n")
		if len(lines) > 2 {
			return strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
		}
	}
	return s
}
