package handler

import (
	"time"

	"github.com/hitoshi/ratemydpe/internal/dpe"
	"github.com/hitoshi/ratemydpe/internal/model"
)

// dpeResponse はDPEのJSONレスポンス。
type dpeResponse struct {
	ID             string    `json:"id"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	City           string    `json:"city"`
	State          string    `json:"state"`
	Region         string    `json:"region"`
	CheckrideTypes []string  `json:"checkrideTypes"`
	Tags           []string  `json:"tags"`
	SavedByUserIDs []string  `json:"savedByUserIds"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// reviewResponse はレビューのJSONレスポンス。
type reviewResponse struct {
	ID               string    `json:"id"`
	DPEID            string    `json:"dpeId"`
	UserID           string    `json:"userId"`
	UserName         string    `json:"userName"`
	Content          string    `json:"content"`
	OverallRating    int       `json:"overallRating"`
	DifficultyRating int       `json:"difficultyRating"`
	WouldRecommend   *bool     `json:"wouldRecommend"`
	CheckridePassed  *bool     `json:"checkridePassed"`
	GroundFirst      *bool     `json:"groundFirst"`
	CheckrideType    string    `json:"checkrideType"`
	Tags             []string  `json:"tags"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// reviewDPESummary はユーザーのレビュー一覧に添えるDPE概要。
type reviewDPESummary struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type myReviewResponse struct {
	reviewResponse
	DPE reviewDPESummary `json:"dpe"`
}

// listingResponse はDPEとレビュー、集計値をまとめたレスポンス。
type listingResponse struct {
	dpeResponse
	Reviews []reviewResponse `json:"reviews"`
	Stats   dpe.Stats        `json:"stats"`
}

func toDPEResponse(d *model.DPE) dpeResponse {
	return dpeResponse{
		ID:             d.ID,
		FirstName:      d.FirstName,
		LastName:       d.LastName,
		City:           d.City,
		State:          d.State,
		Region:         d.Region,
		CheckrideTypes: nonNil(d.CheckrideTypes),
		Tags:           nonNil(d.Tags),
		SavedByUserIDs: nonNil(d.SavedByUserIDs),
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func toReviewResponse(r *model.Review) reviewResponse {
	return reviewResponse{
		ID:               r.ID,
		DPEID:            r.DPEID,
		UserID:           r.UserID,
		UserName:         r.UserName,
		Content:          r.Content,
		OverallRating:    r.OverallRating,
		DifficultyRating: r.DifficultyRating,
		WouldRecommend:   r.WouldRecommend,
		CheckridePassed:  r.CheckridePassed,
		GroundFirst:      r.GroundFirst,
		CheckrideType:    r.CheckrideType,
		Tags:             nonNil(r.Tags),
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func toListingResponse(l dpe.Listing) listingResponse {
	reviews := make([]reviewResponse, 0, len(l.Reviews))
	for _, r := range l.Reviews {
		reviews = append(reviews, toReviewResponse(r))
	}
	return listingResponse{
		dpeResponse: toDPEResponse(l.DPE),
		Reviews:     reviews,
		Stats:       l.Stats,
	}
}

func toListingResponses(listings []dpe.Listing) []listingResponse {
	resp := make([]listingResponse, 0, len(listings))
	for _, l := range listings {
		resp = append(resp, toListingResponse(l))
	}
	return resp
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
