package dpe

import (
	"fmt"
	"math"

	"github.com/hitoshi/ratemydpe/internal/model"
)

// Stats はDPEのレビュー集計値。
// 各ポインタは集計対象のレビューが1件もない場合nilとなる。
type Stats struct {
	ReviewCount       int      `json:"reviewCount"`
	AverageRating     *float64 `json:"averageRating"`
	AverageDifficulty *float64 `json:"averageDifficulty"`
	PassRate          *float64 `json:"passRate"`
	RecommendRate     *float64 `json:"recommendRate"`
}

// ComputeStats はレビュー一覧から集計値を計算する。
//   - 平均評価: 全レビューのoverall ratingの平均
//   - 平均難易度: difficulty ratingが0でないレビューのみの平均
//   - 合格率・推薦率: 回答のある（nilでない）レビューのうちtrueの割合（%）
func ComputeStats(reviews []*model.Review) Stats {
	st := Stats{ReviewCount: len(reviews)}
	if len(reviews) == 0 {
		return st
	}

	var ratingSum, diffSum, diffCount int
	var passed, passAnswered, recommended, recommendAnswered int
	for _, r := range reviews {
		ratingSum += r.OverallRating
		if r.DifficultyRating != 0 {
			diffSum += r.DifficultyRating
			diffCount++
		}
		if r.CheckridePassed != nil {
			passAnswered++
			if *r.CheckridePassed {
				passed++
			}
		}
		if r.WouldRecommend != nil {
			recommendAnswered++
			if *r.WouldRecommend {
				recommended++
			}
		}
	}

	st.AverageRating = ratio(ratingSum, len(reviews), 1)
	st.AverageDifficulty = ratio(diffSum, diffCount, 1)
	st.PassRate = ratio(passed, passAnswered, 100)
	st.RecommendRate = ratio(recommended, recommendAnswered, 100)
	return st
}

func ratio(num, den int, scale float64) *float64 {
	if den == 0 {
		return nil
	}
	v := float64(num) * scale / float64(den)
	return &v
}

// RatingText は平均評価を小数1桁で返す。未評価なら"No ratings"。
func (s Stats) RatingText() string {
	return formatRating(s.AverageRating)
}

// DifficultyText は平均難易度を小数1桁で返す。未評価なら"No ratings"。
func (s Stats) DifficultyText() string {
	return formatRating(s.AverageDifficulty)
}

// PassRateText は合格率を整数%で返す。回答なしなら"No data"。
func (s Stats) PassRateText() string {
	return formatPercent(s.PassRate)
}

// RecommendRateText は推薦率を整数%で返す。回答なしなら"No data"。
func (s Stats) RecommendRateText() string {
	return formatPercent(s.RecommendRate)
}

// 四捨五入は0.5を切り上げる（fmtの偶数丸めは使わない）
func formatRating(v *float64) string {
	if v == nil {
		return "No ratings"
	}
	return fmt.Sprintf("%.1f", math.Round(*v*10)/10)
}

func formatPercent(v *float64) string {
	if v == nil {
		return "No data"
	}
	return fmt.Sprintf("%d%%", int(math.Round(*v)))
}
