package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/ratemydpe/internal/dpe"
	"github.com/hitoshi/ratemydpe/internal/model"
)

// DPEServiceInterface はDPEハンドラーが必要とするサービスインターフェース。
type DPEServiceInterface interface {
	Create(ctx context.Context, userID string, in dpe.CreateInput) (*model.DPE, error)
	Get(ctx context.Context, id string) (*dpe.Listing, error)
	Search(ctx context.Context, filter model.DPEFilter) ([]dpe.Listing, error)
	ToggleSave(ctx context.Context, userID, dpeID string) (bool, error)
	ListSaved(ctx context.Context, userID string) ([]dpe.Listing, error)
}

// DPEHandler はDPE関連のHTTPハンドラー。
type DPEHandler struct {
	service DPEServiceInterface
}

// NewDPEHandler はDPEHandlerを生成する。
func NewDPEHandler(service DPEServiceInterface) *DPEHandler {
	return &DPEHandler{service: service}
}

// Search はDPEを名前と州で検索する。
// GET /api/dpes?name=&state=
func (h *DPEHandler) Search(w http.ResponseWriter, r *http.Request) {
	filter := model.DPEFilter{
		Name:  r.URL.Query().Get("name"),
		State: r.URL.Query().Get("state"),
	}

	listings, err := h.service.Search(r.Context(), filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toListingResponses(listings))
}

// Create はDPEを登録する。
// POST /api/dpes
func (h *DPEHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var in dpe.CreateInput
	if !decodeJSON(w, r, &in) {
		return
	}

	created, err := h.service.Create(r.Context(), userID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toDPEResponse(created))
}

// Get はDPEとそのレビュー、集計値を返す。
// GET /api/dpes/{id}
func (h *DPEHandler) Get(w http.ResponseWriter, r *http.Request) {
	listing, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toListingResponse(*listing))
}

type toggleSaveRequest struct {
	DPEID string `json:"dpeId"`
}

type toggleSaveResponse struct {
	Saved bool `json:"saved"`
}

// ToggleSave はDPEの保存状態を切り替える。
// POST /api/dpes/save
func (h *DPEHandler) ToggleSave(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req toggleSaveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	saved, err := h.service.ToggleSave(r.Context(), userID, req.DPEID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toggleSaveResponse{Saved: saved})
}

// ListSaved は現在のユーザーが保存したDPE一覧を返す。
// GET /api/users/me/saved-dpes
func (h *DPEHandler) ListSaved(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	listings, err := h.service.ListSaved(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toListingResponses(listings))
}
