package model

import "time"

// Review はDPEに対するレビューを表す。
// DifficultyRatingは0のとき未評価を意味する。
// WouldRecommend、CheckridePassed、GroundFirstはnilのとき未回答を意味する。
type Review struct {
	ID               string
	DPEID            string
	UserID           string
	UserName         string
	Content          string
	OverallRating    int
	DifficultyRating int
	WouldRecommend   *bool
	CheckridePassed  *bool
	GroundFirst      *bool
	CheckrideType    string
	Tags             []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ReviewWithDPE はレビューと対象DPEの概要を結合したモデル。
// マイページのレビュー一覧とRSSフィードで使用する。
type ReviewWithDPE struct {
	Review
	DPEFirstName string
	DPELastName  string
}
