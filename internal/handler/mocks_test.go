package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/ratemydpe/internal/auth"
	"github.com/hitoshi/ratemydpe/internal/dpe"
	"github.com/hitoshi/ratemydpe/internal/middleware"
	"github.com/hitoshi/ratemydpe/internal/model"
	"github.com/hitoshi/ratemydpe/internal/review"
	"github.com/hitoshi/ratemydpe/internal/user"
)

// --- モック定義 ---

type mockAuthService struct {
	signupFn         func(ctx context.Context, in auth.SignupInput) (*model.User, *model.Session, error)
	loginFn          func(ctx context.Context, in auth.LoginInput) (*model.User, *model.Session, error)
	getLoginURLFn    func(state string) (string, error)
	handleCallbackFn func(ctx context.Context, code string) (*model.Session, error)
	logoutFn         func(ctx context.Context, sessionID string) error
	getCurrentUserFn func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockAuthService) Signup(ctx context.Context, in auth.SignupInput) (*model.User, *model.Session, error) {
	if m.signupFn != nil {
		return m.signupFn(ctx, in)
	}
	return nil, nil, nil
}

func (m *mockAuthService) Login(ctx context.Context, in auth.LoginInput) (*model.User, *model.Session, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, in)
	}
	return nil, nil, nil
}

func (m *mockAuthService) GetLoginURL(state string) (string, error) {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return "", auth.ErrOAuthDisabled
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx, sessionID)
	}
	return nil, nil
}

type mockDPEService struct {
	createFn     func(ctx context.Context, userID string, in dpe.CreateInput) (*model.DPE, error)
	getFn        func(ctx context.Context, id string) (*dpe.Listing, error)
	searchFn     func(ctx context.Context, filter model.DPEFilter) ([]dpe.Listing, error)
	toggleSaveFn func(ctx context.Context, userID, dpeID string) (bool, error)
	listSavedFn  func(ctx context.Context, userID string) ([]dpe.Listing, error)
}

func (m *mockDPEService) Create(ctx context.Context, userID string, in dpe.CreateInput) (*model.DPE, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, in)
	}
	return &model.DPE{ID: "dpe-1"}, nil
}

func (m *mockDPEService) Get(ctx context.Context, id string) (*dpe.Listing, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewDPENotFoundError(id)
}

func (m *mockDPEService) Search(ctx context.Context, filter model.DPEFilter) ([]dpe.Listing, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, filter)
	}
	return []dpe.Listing{}, nil
}

func (m *mockDPEService) ToggleSave(ctx context.Context, userID, dpeID string) (bool, error) {
	if m.toggleSaveFn != nil {
		return m.toggleSaveFn(ctx, userID, dpeID)
	}
	return true, nil
}

func (m *mockDPEService) ListSaved(ctx context.Context, userID string) ([]dpe.Listing, error) {
	if m.listSavedFn != nil {
		return m.listSavedFn(ctx, userID)
	}
	return []dpe.Listing{}, nil
}

type mockReviewService struct {
	createFn     func(ctx context.Context, userID string, in review.CreateInput) (*model.Review, error)
	updateFn     func(ctx context.Context, userID, reviewID string, in review.Fields) (*model.Review, error)
	deleteFn     func(ctx context.Context, userID, reviewID string) error
	listByUserFn func(ctx context.Context, userID string) ([]model.ReviewWithDPE, error)
}

func (m *mockReviewService) Create(ctx context.Context, userID string, in review.CreateInput) (*model.Review, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, in)
	}
	return &model.Review{ID: "review-1", DPEID: in.DPEID, UserID: userID}, nil
}

func (m *mockReviewService) Update(ctx context.Context, userID, reviewID string, in review.Fields) (*model.Review, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, reviewID, in)
	}
	return &model.Review{ID: reviewID, UserID: userID}, nil
}

func (m *mockReviewService) Delete(ctx context.Context, userID, reviewID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, reviewID)
	}
	return nil
}

func (m *mockReviewService) ListByUser(ctx context.Context, userID string) ([]model.ReviewWithDPE, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID)
	}
	return []model.ReviewWithDPE{}, nil
}

type mockUserService struct {
	getProfileFn     func(ctx context.Context, userID string) (*model.Profile, error)
	updateProfileFn  func(ctx context.Context, userID string, in user.ProfileInput) (*model.Profile, error)
	getSettingsFn    func(ctx context.Context, userID string) (*user.Settings, error)
	updateSettingsFn func(ctx context.Context, userID string, in user.SettingsInput) error
	withdrawFn       func(ctx context.Context, userID string) error
}

func (m *mockUserService) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	if m.getProfileFn != nil {
		return m.getProfileFn(ctx, userID)
	}
	return &model.Profile{}, nil
}

func (m *mockUserService) UpdateProfile(ctx context.Context, userID string, in user.ProfileInput) (*model.Profile, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, userID, in)
	}
	p := model.Profile(in)
	return &p, nil
}

func (m *mockUserService) GetSettings(ctx context.Context, userID string) (*user.Settings, error) {
	if m.getSettingsFn != nil {
		return m.getSettingsFn(ctx, userID)
	}
	return &user.Settings{}, nil
}

func (m *mockUserService) UpdateSettings(ctx context.Context, userID string, in user.SettingsInput) error {
	if m.updateSettingsFn != nil {
		return m.updateSettingsFn(ctx, userID, in)
	}
	return nil
}

func (m *mockUserService) Withdraw(ctx context.Context, userID string) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, userID)
	}
	return nil
}

// mockSessionFinder はセッションIDからセッションを返すモック。
type mockSessionFinder struct {
	sessions map[string]*model.Session
}

func (m *mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, nil
}

// --- ヘルパー ---

// withUser はリクエストに認証済みユーザーIDを付与する。
func withUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

// decodeErrorCode はエラーレスポンスのcodeを取り出す。
func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body.Code
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }
