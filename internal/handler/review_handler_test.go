package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/ratemydpe/internal/model"
	"github.com/hitoshi/ratemydpe/internal/review"
)

func TestReviewHandler_Create(t *testing.T) {
	var got review.CreateInput
	svc := &mockReviewService{
		createFn: func(ctx context.Context, userID string, in review.CreateInput) (*model.Review, error) {
			got = in
			return &model.Review{
				ID: "review-1", DPEID: in.DPEID, UserID: userID, UserName: "Jane",
				Content: in.Content, OverallRating: in.OverallRating, Tags: in.Tags,
				WouldRecommend: in.WouldRecommend,
			}, nil
		},
	}
	h := NewReviewHandler(svc)

	body := `{"dpeId":"dpe-1","content":"Fair and thorough.","overallRating":5,"difficultyRating":3,` +
		`"wouldRecommend":true,"checkrideType":"PRIVATE","tags":["Fair","Thorough"]}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/reviews", strings.NewReader(body)), "user-1")
	w := httptest.NewRecorder()
	h.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if got.DPEID != "dpe-1" || got.OverallRating != 5 || got.DifficultyRating != 3 {
		t.Errorf("input = %+v", got)
	}
	if got.WouldRecommend == nil || !*got.WouldRecommend {
		t.Error("wouldRecommend should be decoded as true")
	}
	if got.CheckridePassed != nil {
		t.Error("checkridePassed should stay unanswered")
	}

	var resp reviewResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.UserName != "Jane" || resp.DPEID != "dpe-1" || len(resp.Tags) != 2 {
		t.Errorf("response = %+v", resp)
	}
}

func TestReviewHandler_Create_UnknownDPE(t *testing.T) {
	svc := &mockReviewService{
		createFn: func(ctx context.Context, userID string, in review.CreateInput) (*model.Review, error) {
			return nil, model.NewDPENotFoundError(in.DPEID)
		},
	}
	h := NewReviewHandler(svc)

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/reviews",
		strings.NewReader(`{"dpeId":"x","content":"c","overallRating":3}`)), "user-1")
	w := httptest.NewRecorder()
	h.Create(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestReviewHandler_Update(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"owner", nil, http.StatusOK},
		{"not owner", model.NewReviewForbiddenError(), http.StatusForbidden},
		{"unknown", model.NewReviewNotFoundError("r"), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID string
			svc := &mockReviewService{
				updateFn: func(ctx context.Context, userID, reviewID string, in review.Fields) (*model.Review, error) {
					gotID = reviewID
					if tt.err != nil {
						return nil, tt.err
					}
					return &model.Review{ID: reviewID, UserID: userID, Content: in.Content, OverallRating: in.OverallRating}, nil
				},
			}
			h := NewReviewHandler(svc)

			req := httptest.NewRequest(http.MethodPut, "/api/reviews/review-1",
				strings.NewReader(`{"content":"updated","overallRating":2}`))
			req = withUser(withURLParam(req, "id", "review-1"), "user-1")
			w := httptest.NewRecorder()
			h.Update(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if gotID != "review-1" {
				t.Errorf("review id = %q", gotID)
			}
		})
	}
}

func TestReviewHandler_Delete(t *testing.T) {
	var deleted string
	svc := &mockReviewService{
		deleteFn: func(ctx context.Context, userID, reviewID string) error {
			deleted = reviewID
			return nil
		},
	}
	h := NewReviewHandler(svc)

	req := withUser(withURLParam(httptest.NewRequest(http.MethodDelete, "/api/reviews/review-1", nil), "id", "review-1"), "user-1")
	w := httptest.NewRecorder()
	h.Delete(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if deleted != "review-1" {
		t.Errorf("deleted = %q", deleted)
	}
}

func TestReviewHandler_ListMine_IncludesDPESummary(t *testing.T) {
	now := time.Now()
	svc := &mockReviewService{
		listByUserFn: func(ctx context.Context, userID string) ([]model.ReviewWithDPE, error) {
			return []model.ReviewWithDPE{
				{
					Review:       model.Review{ID: "r2", DPEID: "dpe-2", UserID: userID, CreatedAt: now},
					DPEFirstName: "Ann", DPELastName: "Lee",
				},
				{
					Review:       model.Review{ID: "r1", DPEID: "dpe-1", UserID: userID, CreatedAt: now.Add(-time.Hour)},
					DPEFirstName: "John", DPELastName: "Smith",
				},
			}, nil
		},
	}
	h := NewReviewHandler(svc)

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/users/me/reviews", nil), "user-1")
	w := httptest.NewRecorder()
	h.ListMine(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp []myReviewResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("len = %d, want 2", len(resp))
	}
	if resp[0].ID != "r2" || resp[0].DPE.ID != "dpe-2" || resp[0].DPE.FirstName != "Ann" || resp[0].DPE.LastName != "Lee" {
		t.Errorf("first = %+v", resp[0])
	}
}
