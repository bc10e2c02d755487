package viral

import (
	"math"
	"sort"

	"github.com/USBABC1/V75VIRAL/models"
)

const topHashtagLimit = 10

// BuildSummary computes aggregate statistics over a result set. It is a
// pure function recomputed on every read; an empty input yields zeroed
// totals and empty collections.
func BuildSummary(images []models.ViralImage) models.Summary {
	summary := models.Summary{
		Platforms:   make(map[string]int),
		TopHashtags: []models.HashtagCount{},
	}

	if len(images) == 0 {
		return summary
	}

	var totalScore float64
	hashtagCounts := make(map[string]int)
	var platformOrder []string

	for _, img := range images {
		totalScore += float64(img.EngagementScore)
		summary.TotalViews += img.Metrics.Views
		summary.TotalLikes += img.Metrics.Likes
		summary.TotalComments += img.Metrics.Comments
		summary.TotalShares += img.Metrics.Shares

		if _, seen := summary.Platforms[img.Platform]; !seen {
			platformOrder = append(platformOrder, img.Platform)
		}
		summary.Platforms[img.Platform]++

		for _, tag := range img.Metrics.Hashtags {
			hashtagCounts[tag]++
		}
	}

	summary.TotalImages = len(images)
	summary.AverageEngagement = math.Round(totalScore/float64(len(images))*100) / 100

	// First platform encountered wins ties
	for _, platform := range platformOrder {
		if summary.Platforms[platform] > summary.Platforms[summary.TopPlatform] {
			summary.TopPlatform = platform
		}
	}

	summary.TopHashtags = rankHashtags(hashtagCounts, topHashtagLimit)
	return summary
}

func rankHashtags(counts map[string]int, limit int) []models.HashtagCount {
	ranked := make([]models.HashtagCount, 0, len(counts))
	for tag, count := range counts {
		ranked = append(ranked, models.HashtagCount{Tag: tag, Count: count})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Tag < ranked[j].Tag
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
