package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/ratemydpe/internal/model"
	"github.com/hitoshi/ratemydpe/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	UpdateProfile(ctx context.Context, userID string, in user.ProfileInput) (*model.Profile, error)
	GetSettings(ctx context.Context, userID string) (*user.Settings, error)
	UpdateSettings(ctx context.Context, userID string, in user.SettingsInput) error
	// Withdraw はユーザーの退会処理を実行する。
	// 保存済みDPEの参照、セッション、ユーザーを削除する。レビューはカスケード削除される。
	Withdraw(ctx context.Context, userID string) error
}

// UserHandlerConfig はユーザーハンドラーの設定。
type UserHandlerConfig struct {
	CookieDomain string
	CookieSecure bool
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
	config  UserHandlerConfig
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, config UserHandlerConfig) *UserHandler {
	return &UserHandler{
		service: service,
		config:  config,
	}
}

type profileResponse struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	City        string `json:"city"`
	State       string `json:"state"`
	Certificate string `json:"certificate"`
	HomeAirport string `json:"homeAirport"`
}

func toProfileResponse(p *model.Profile) profileResponse {
	return profileResponse{
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		City:        p.City,
		State:       p.State,
		Certificate: p.Certificate,
		HomeAirport: p.HomeAirport,
	}
}

type settingsResponse struct {
	Email       string `json:"email"`
	HasPassword bool   `json:"hasPassword"`
}

// GetProfile はプロフィールを返す。
// GET /api/users/me/profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// UpdateProfile はプロフィールを更新する。
// PUT /api/users/me/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var in user.ProfileInput
	if !decodeJSON(w, r, &in) {
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), userID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// GetSettings はアカウント設定を返す。
// GET /api/users/me/settings
func (h *UserHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	settings, err := h.service.GetSettings(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, settingsResponse{
		Email:       settings.Email,
		HasPassword: settings.HasPassword,
	})
}

// UpdateSettings はメールアドレスとパスワードを更新する。
// PUT /api/users/me/settings
func (h *UserHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var in user.SettingsInput
	if !decodeJSON(w, r, &in) {
		return
	}

	if err := h.service.UpdateSettings(r.Context(), userID, in); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Withdraw はユーザーの退会処理を実行する。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	clearSessionCookie(w, h.config.CookieDomain, h.config.CookieSecure)
	w.WriteHeader(http.StatusNoContent)
}
