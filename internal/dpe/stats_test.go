package dpe

import (
	"testing"

	"github.com/hitoshi/ratemydpe/internal/model"
)

func boolp(b bool) *bool { return &b }

func TestComputeStats_NoReviews(t *testing.T) {
	st := ComputeStats(nil)

	if st.ReviewCount != 0 {
		t.Errorf("ReviewCount = %d, want 0", st.ReviewCount)
	}
	if st.AverageRating != nil || st.AverageDifficulty != nil || st.PassRate != nil || st.RecommendRate != nil {
		t.Errorf("expected all aggregates to be nil, got %+v", st)
	}
	if got := st.RatingText(); got != "No ratings" {
		t.Errorf("RatingText() = %q", got)
	}
	if got := st.PassRateText(); got != "No data" {
		t.Errorf("PassRateText() = %q", got)
	}
}

func TestComputeStats_Aggregates(t *testing.T) {
	reviews := []*model.Review{
		{OverallRating: 5, DifficultyRating: 4, CheckridePassed: boolp(true), WouldRecommend: boolp(true)},
		{OverallRating: 4, DifficultyRating: 0, CheckridePassed: boolp(false), WouldRecommend: nil},
		{OverallRating: 2, DifficultyRating: 2, CheckridePassed: nil, WouldRecommend: boolp(false)},
		{OverallRating: 3, DifficultyRating: 3, CheckridePassed: boolp(true), WouldRecommend: boolp(true)},
	}

	st := ComputeStats(reviews)

	if st.ReviewCount != 4 {
		t.Errorf("ReviewCount = %d, want 4", st.ReviewCount)
	}
	// (5+4+2+3)/4 = 3.5
	if st.AverageRating == nil || *st.AverageRating != 3.5 {
		t.Errorf("AverageRating = %v, want 3.5", st.AverageRating)
	}
	// 難易度0は除外: (4+2+3)/3 = 3
	if st.AverageDifficulty == nil || *st.AverageDifficulty != 3 {
		t.Errorf("AverageDifficulty = %v, want 3", st.AverageDifficulty)
	}
	// 回答3件中2件合格
	if got := st.PassRateText(); got != "67%" {
		t.Errorf("PassRateText() = %q, want 67%%", got)
	}
	// 回答3件中2件推薦
	if got := st.RecommendRateText(); got != "67%" {
		t.Errorf("RecommendRateText() = %q, want 67%%", got)
	}
	if got := st.RatingText(); got != "3.5" {
		t.Errorf("RatingText() = %q, want 3.5", got)
	}
	if got := st.DifficultyText(); got != "3.0" {
		t.Errorf("DifficultyText() = %q, want 3.0", got)
	}
}

func TestComputeStats_NoDifficultyOrAnswers(t *testing.T) {
	st := ComputeStats([]*model.Review{{OverallRating: 4}})

	if got := st.DifficultyText(); got != "No ratings" {
		t.Errorf("DifficultyText() = %q", got)
	}
	if got := st.RecommendRateText(); got != "No data" {
		t.Errorf("RecommendRateText() = %q", got)
	}
	if got := st.RatingText(); got != "4.0" {
		t.Errorf("RatingText() = %q", got)
	}
}

func TestFormat_RoundsHalfUp(t *testing.T) {
	tests := []struct {
		name string
		fn   func(*float64) string
		in   float64
		want string
	}{
		{"rating 4.25", formatRating, 4.25, "4.3"},
		{"rating 4.24", formatRating, 4.24, "4.2"},
		{"percent 62.5", formatPercent, 62.5, "63%"},
		{"percent 100", formatPercent, 100, "100%"},
		{"percent 0", formatPercent, 0, "0%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.in
			if got := tt.fn(&v); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
