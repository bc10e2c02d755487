package models

import "time"

// Platform names accepted in search requests.
const (
	PlatformInstagram = "instagram"
	PlatformFacebook  = "facebook"
)

// Search record statuses. A record is created as processing and flipped
// exactly once to completed or failed.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// SearchRequest represents an incoming viral content search
type SearchRequest struct {
	Query         string   `json:"query"`
	MaxImages     int      `json:"max_images"`
	MinEngagement float64  `json:"min_engagement"`
	Platforms     []string `json:"platforms"`
}

// Candidate is a scraper's normalized, pre-scored representation of one
// discovered post. Raw holds the provider's native payload for the
// metrics extractor.
type Candidate struct {
	ID          string                 `json:"id"`
	ImageURL    string                 `json:"image_url"`
	PostURL     string                 `json:"post_url"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Raw         map[string]interface{} `json:"raw_data,omitempty"`
}

// RealMetrics holds engagement numbers derived from a provider payload.
// Fields are zero-valued when the provider did not report them.
type RealMetrics struct {
	Views           int64     `json:"views"`
	Likes           int64     `json:"likes"`
	Comments        int64     `json:"comments"`
	Shares          int64     `json:"shares"`
	Author          string    `json:"author"`
	AuthorFollowers int64     `json:"author_followers"`
	PostDate        time.Time `json:"post_date"`
	Hashtags        []string  `json:"hashtags"`
}

// AIAnalysis holds metrics estimated by the chat-completion model, or the
// fixed fallback when the call is unavailable.
type AIAnalysis struct {
	EstimatedLikes     int64    `json:"estimated_likes"`
	EstimatedComments  int64    `json:"estimated_comments"`
	EstimatedShares    int64    `json:"estimated_shares"`
	EstimatedViews     int64    `json:"estimated_views"`
	EstimatedFollowers int64    `json:"estimated_followers"`
	EngagementScore    float64  `json:"engagement_score"`
	ViralFactors       []string `json:"viral_factors"`
	SuggestedTitle     string   `json:"suggested_title"`
	Description        string   `json:"description"`
	Author             string   `json:"author"`
	Hashtags           []string `json:"hashtags"`
	ContentQuality     float64  `json:"content_quality"`
}

// ViralImage is one scored search result. Immutable once created.
type ViralImage struct {
	ID              string      `json:"id"`
	SearchID        string      `json:"search_id"`
	Platform        string      `json:"platform"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	ImageURL        string      `json:"image_url"`
	PostURL         string      `json:"post_url"`
	EngagementScore int         `json:"engagement_score"`
	Metrics         RealMetrics `json:"real_metrics"`
	Analysis        AIAnalysis  `json:"ai_analysis"`
	AIFallback      bool        `json:"ai_fallback,omitempty"`
	LocalPath       string      `json:"local_path,omitempty"`
	CollectedAt     time.Time   `json:"collected_at"`
}

// SearchRecord tracks one search's lifecycle. Images are stored
// separately and never embedded in list views.
type SearchRecord struct {
	ID           string     `json:"id"`
	Query        string     `json:"query"`
	Status       string     `json:"status"`
	TotalResults int        `json:"total_results"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// HashtagCount is one entry in the summary's hashtag frequency ranking
type HashtagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Summary holds aggregate statistics over a result set. Recomputed on
// every read, never persisted.
type Summary struct {
	TotalImages       int            `json:"total_images"`
	AverageEngagement float64        `json:"average_engagement"`
	Platforms         map[string]int `json:"platforms"`
	TotalViews        int64          `json:"total_views"`
	TotalLikes        int64          `json:"total_likes"`
	TotalComments     int64          `json:"total_comments"`
	TotalShares       int64          `json:"total_shares"`
	TopPlatform       string         `json:"top_platform"`
	TopHashtags       []HashtagCount `json:"top_hashtags"`
}

// ChatRequest represents a request to the chat-completion API
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

// ChatMessage is one message in a chat-completion conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatChoice is one completion choice in a chat response
type ChatChoice struct {
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatResponse represents a response from the chat-completion API
type ChatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
}

// SerperImage is one entry of the generic image-search API response
type SerperImage struct {
	Title    string `json:"title"`
	ImageURL string `json:"imageUrl"`
	Link     string `json:"link"`
	Source   string `json:"source"`
}

// SerperImagesResponse represents a response from the image-search endpoint
type SerperImagesResponse struct {
	Images []SerperImage `json:"images"`
}

// SerperOrganic is one organic entry of the web-search API response
type SerperOrganic struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// SerperSearchResponse represents a response from the web-search endpoint
type SerperSearchResponse struct {
	Organic []SerperOrganic `json:"organic"`
}
