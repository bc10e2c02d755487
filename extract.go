package viral

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/USBABC1/V75VIRAL/models"
)

var hashtagPattern = regexp.MustCompile(`#(\w+)`)

// Provider payloads disagree on field names even within one platform, so
// each metric is resolved against an alias list in priority order.
var metricAliases = map[string]map[string][]string{
	models.PlatformInstagram: {
		"likes":     {"likesCount", "likes", "like_count"},
		"comments":  {"commentsCount", "comments", "comment_count"},
		"views":     {"videoViewCount", "videoPlayCount", "viewsCount", "views"},
		"shares":    {"sharesCount", "shares", "reshareCount"},
		"author":    {"ownerUsername", "ownerFullName", "author", "username"},
		"followers": {"ownerFollowersCount", "followersCount", "author_followers"},
		"date":      {"timestamp", "taken_at", "takenAt", "created_at"},
		"caption":   {"caption", "text", "description"},
	},
	models.PlatformFacebook: {
		"likes":     {"reactionsCount", "likesCount", "likes"},
		"comments":  {"commentsCount", "comments"},
		"views":     {"viewsCount", "views"},
		"shares":    {"sharesCount", "shares"},
		"author":    {"pageName", "author", "user"},
		"followers": {"pageFollowers", "followersCount", "author_followers"},
		"date":      {"timestamp", "time", "created_at"},
		"caption":   {"text", "message", "caption", "description"},
	},
}

// ExtractMetrics derives engagement numbers from a provider's native
// payload. It never fails: unknown platforms fall back to the Instagram
// aliases and unparseable timestamps become the current time.
func ExtractMetrics(raw map[string]interface{}, platform string) models.RealMetrics {
	aliases, ok := metricAliases[platform]
	if !ok {
		aliases = metricAliases[models.PlatformInstagram]
	}

	caption := firstString(raw, aliases["caption"])

	return models.RealMetrics{
		Views:           firstInt64(raw, aliases["views"]),
		Likes:           firstInt64(raw, aliases["likes"]),
		Comments:        firstInt64(raw, aliases["comments"]),
		Shares:          firstInt64(raw, aliases["shares"]),
		Author:          firstString(raw, aliases["author"]),
		AuthorFollowers: firstInt64(raw, aliases["followers"]),
		PostDate:        normalizeTimestamp(firstValue(raw, aliases["date"])),
		Hashtags:        mergeHashtags(raw, caption),
	}
}

// normalizeTimestamp accepts an ISO-ish string, epoch seconds or epoch
// millis. Values with magnitude above 1e10 are treated as millis. Results
// resolving outside the years 2000-2030 are rejected and replaced with
// the current time.
func normalizeTimestamp(v interface{}) time.Time {
	now := time.Now().UTC()

	var ts time.Time
	switch val := v.(type) {
	case string:
		parsed, ok := parseTimeString(val)
		if !ok {
			return now
		}
		ts = parsed
	case float64:
		ts = epochToTime(int64(val))
	case int64:
		ts = epochToTime(val)
	case int:
		ts = epochToTime(int64(val))
	default:
		return now
	}

	if ts.Year() < 2000 || ts.Year() > 2030 {
		return now
	}
	return ts
}

func parseTimeString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	// Numeric strings carry epoch values
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return epochToTime(n), true
	}

	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func epochToTime(n int64) time.Time {
	if n > 10_000_000_000 || n < -10_000_000_000 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}

// mergeHashtags combines the provider's explicit hashtags field with
// #word tokens found in the caption, deduplicated case-insensitively.
func mergeHashtags(raw map[string]interface{}, caption string) []string {
	seen := make(map[string]bool)
	var tags []string

	add := func(tag string) {
		tag = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		if tag == "" || seen[tag] {
			return
		}
		seen[tag] = true
		tags = append(tags, tag)
	}

	if explicit, ok := raw["hashtags"].([]interface{}); ok {
		for _, t := range explicit {
			if s, ok := t.(string); ok {
				add(s)
			}
		}
	}
	if explicit, ok := raw["hashtags"].([]string); ok {
		for _, s := range explicit {
			add(s)
		}
	}

	for _, match := range hashtagPattern.FindAllStringSubmatch(caption, -1) {
		add(match[1])
	}

	if tags == nil {
		tags = []string{}
	}
	return tags
}

// firstInt64 returns the first alias present in raw coerced to int64,
// or 0 when none resolve.
func firstInt64(raw map[string]interface{}, keys []string) int64 {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case float64:
			return int64(val)
		case int64:
			return val
		case int:
			return int64(val)
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64); err == nil {
				return n
			}
		}
	}
	return 0
}

func firstString(raw map[string]interface{}, keys []string) string {
	for _, key := range keys {
		if s, ok := raw[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func firstValue(raw map[string]interface{}, keys []string) interface{} {
	for _, key := range keys {
		if v, ok := raw[key]; ok && v != nil {
			return v
		}
	}
	return nil
}
