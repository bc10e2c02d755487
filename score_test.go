package viral

import (
	"testing"

	"github.com/USBABC1/V75VIRAL/models"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		m    models.RealMetrics
		ai   models.AIAnalysis
		want int
	}{
		{
			name: "no metrics at all",
			want: 0,
		},
		{
			name: "likes capped at 30",
			m:    models.RealMetrics{Likes: 10_000_000},
			want: 30,
		},
		{
			name: "comments capped at 20",
			m:    models.RealMetrics{Comments: 1_000_000},
			want: 20,
		},
		{
			name: "views capped at 25",
			m:    models.RealMetrics{Views: 100_000_000},
			want: 25,
		},
		{
			name: "partial likes",
			m:    models.RealMetrics{Likes: 1500},
			want: 15,
		},
		{
			name: "ai score weighted at a quarter",
			ai:   models.AIAnalysis{EngagementScore: 80},
			want: 20,
		},
		{
			name: "quality bonus above 70",
			ai:   models.AIAnalysis{ContentQuality: 71},
			want: 10,
		},
		{
			name: "no quality bonus at exactly 70",
			ai:   models.AIAnalysis{ContentQuality: 70},
			want: 0,
		},
		{
			name: "hashtag bonus above 3 tags",
			m:    models.RealMetrics{Hashtags: []string{"a", "b", "c", "d"}},
			want: 5,
		},
		{
			name: "no hashtag bonus at exactly 3 tags",
			m:    models.RealMetrics{Hashtags: []string{"a", "b", "c"}},
			want: 0,
		},
		{
			name: "everything maxed clamps to 100",
			m: models.RealMetrics{
				Likes:    10_000_000,
				Comments: 10_000_000,
				Views:    10_000_000_000,
				Hashtags: []string{"a", "b", "c", "d", "e"},
			},
			ai:   models.AIAnalysis{EngagementScore: 100, ContentQuality: 100},
			want: 100,
		},
		{
			name: "rounds to nearest integer",
			m:    models.RealMetrics{Likes: 50}, // 0.5
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.m, tt.ai)
			if got != tt.want {
				t.Errorf("Score() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreAlwaysInRange(t *testing.T) {
	extremes := []models.RealMetrics{
		{},
		{Likes: -500, Comments: -10, Views: -1},
		{Likes: 1 << 60, Comments: 1 << 60, Views: 1 << 60},
	}
	analyses := []models.AIAnalysis{
		{},
		{EngagementScore: -50, ContentQuality: -50},
		{EngagementScore: 1e9, ContentQuality: 1e9},
	}

	for _, m := range extremes {
		for _, ai := range analyses {
			got := Score(m, ai)
			if got < 0 || got > 100 {
				t.Errorf("Score(%+v, %+v) = %d, outside [0,100]", m, ai, got)
			}
		}
	}
}
