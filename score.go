package viral

import (
	"math"

	"github.com/USBABC1/V75VIRAL/models"
)

// Score blends observed and AI-estimated metrics into a single 0-100
// engagement score. Each term contributes only when its source metric is
// positive; absent metrics are worth nothing rather than penalized.
func Score(m models.RealMetrics, ai models.AIAnalysis) int {
	var score float64

	if m.Likes > 0 {
		score += math.Min(float64(m.Likes)/100, 30)
	}
	if m.Comments > 0 {
		score += math.Min(float64(m.Comments)/10, 20)
	}
	if m.Views > 0 {
		score += math.Min(float64(m.Views)/1000, 25)
	}
	if ai.EngagementScore > 0 {
		score += ai.EngagementScore * 0.25
	}
	if ai.ContentQuality > 70 {
		score += 10
	}
	if len(m.Hashtags) > 3 {
		score += 5
	}

	rounded := int(math.Round(score))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}
