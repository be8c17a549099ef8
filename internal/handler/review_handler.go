package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/ratemydpe/internal/model"
	"github.com/hitoshi/ratemydpe/internal/review"
)

// ReviewServiceInterface はレビューハンドラーが必要とするサービスインターフェース。
type ReviewServiceInterface interface {
	Create(ctx context.Context, userID string, in review.CreateInput) (*model.Review, error)
	Update(ctx context.Context, userID, reviewID string, in review.Fields) (*model.Review, error)
	Delete(ctx context.Context, userID, reviewID string) error
	ListByUser(ctx context.Context, userID string) ([]model.ReviewWithDPE, error)
}

// ReviewHandler はレビュー関連のHTTPハンドラー。
type ReviewHandler struct {
	service ReviewServiceInterface
}

// NewReviewHandler はReviewHandlerを生成する。
func NewReviewHandler(service ReviewServiceInterface) *ReviewHandler {
	return &ReviewHandler{service: service}
}

// Create はレビューを投稿する。
// POST /api/reviews
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var in review.CreateInput
	if !decodeJSON(w, r, &in) {
		return
	}

	created, err := h.service.Create(r.Context(), userID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toReviewResponse(created))
}

// Update は自分のレビューを更新する。
// PUT /api/reviews/{id}
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var in review.Fields
	if !decodeJSON(w, r, &in) {
		return
	}

	updated, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toReviewResponse(updated))
}

// Delete は自分のレビューを削除する。
// DELETE /api/reviews/{id}
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListMine は現在のユーザーのレビューを新しい順に返す。
// GET /api/users/me/reviews
func (h *ReviewHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	reviews, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]myReviewResponse, 0, len(reviews))
	for i := range reviews {
		rv := reviews[i]
		resp = append(resp, myReviewResponse{
			reviewResponse: toReviewResponse(&rv.Review),
			DPE: reviewDPESummary{
				ID:        rv.DPEID,
				FirstName: rv.DPEFirstName,
				LastName:  rv.DPELastName,
			},
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
