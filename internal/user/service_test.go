package user

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/hitoshi/ratemydpe/internal/auth"
	"github.com/hitoshi/ratemydpe/internal/model"
	"github.com/hitoshi/ratemydpe/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn           func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn        func(ctx context.Context, email string) (*model.User, error)
	updateProfileFn      func(ctx context.Context, id string, profile model.Profile) error
	updateEmailFn        func(ctx context.Context, id, email string) error
	updatePasswordHashFn func(ctx context.Context, id, hash string) error
	deleteByIDFn         func(ctx context.Context, id string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}
func (m *mockUserRepo) Create(context.Context, *model.User) error { return nil }
func (m *mockUserRepo) CreateWithIdentity(context.Context, *model.User, *model.Identity) error {
	return nil
}
func (m *mockUserRepo) UpdateProfile(ctx context.Context, id string, profile model.Profile) error {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, id, profile)
	}
	return nil
}
func (m *mockUserRepo) UpdateEmail(ctx context.Context, id, email string) error {
	if m.updateEmailFn != nil {
		return m.updateEmailFn(ctx, id, email)
	}
	return nil
}
func (m *mockUserRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	if m.updatePasswordHashFn != nil {
		return m.updatePasswordHashFn(ctx, id, hash)
	}
	return nil
}
func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

type mockSessionRepo struct {
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	return nil
}
func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return nil, nil
}
func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	return nil
}
func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	return m.deleteByUserIDFn(ctx, userID)
}

type mockSavedDPECleaner struct {
	removeFn func(ctx context.Context, userID string) error
}

func (m *mockSavedDPECleaner) RemoveSavedByUser(ctx context.Context, userID string) error {
	return m.removeFn(ctx, userID)
}

var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)
var _ SavedDPECleaner = (*mockSavedDPECleaner)(nil)

var hasher = auth.NewBcryptHasher(bcrypt.MinCost)

func existingUser(t *testing.T) *model.User {
	t.Helper()
	hash, err := hasher.Hash("old-password")
	if err != nil {
		t.Fatal(err)
	}
	return &model.User{
		ID:           "user-123",
		Email:        "pilot@example.com",
		Name:         "Pilot",
		PasswordHash: hash,
		Profile:      model.Profile{FirstName: "Chuck", HomeAirport: "KPHX"},
	}
}

func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError with code %s, got %v", code, err)
	}
	if apiErr.Code != code {
		t.Errorf("error code = %q, want %q", apiErr.Code, code)
	}
}

// --- Withdraw ---

// TestWithdraw_DeletesInCorrectOrder は退会処理が正しい順序で削除を実行することを検証する。
func TestWithdraw_DeletesInCorrectOrder(t *testing.T) {
	var callOrder []string

	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Email: "test@example.com", Name: "Test"}, nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			callOrder = append(callOrder, "user")
			return nil
		},
	}
	sessionRepo := &mockSessionRepo{
		deleteByUserIDFn: func(ctx context.Context, userID string) error {
			callOrder = append(callOrder, "sessions")
			return nil
		},
	}
	cleaner := &mockSavedDPECleaner{
		removeFn: func(ctx context.Context, userID string) error {
			callOrder = append(callOrder, "saved_dpes")
			return nil
		},
	}

	svc := NewService(userRepo, sessionRepo, cleaner, hasher)
	if err := svc.Withdraw(context.Background(), "user-123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{"saved_dpes", "sessions", "user"}
	if len(callOrder) != len(expected) {
		t.Fatalf("expected %d calls, got %d: %v", len(expected), len(callOrder), callOrder)
	}
	for i, v := range expected {
		if callOrder[i] != v {
			t.Errorf("call[%d]: expected %q, got %q", i, v, callOrder[i])
		}
	}
}

// TestWithdraw_UserNotFound はユーザーが存在しない場合にエラーを返すことを検証する。
func TestWithdraw_UserNotFound(t *testing.T) {
	svc := NewService(&mockUserRepo{}, nil, nil, hasher)

	err := svc.Withdraw(context.Background(), "nonexistent")
	assertAPIErrorCode(t, err, model.ErrCodeUserNotFound)
}

// TestWithdraw_StopsOnError は途中のエラーで処理を中断することを検証する。
func TestWithdraw_StopsOnError(t *testing.T) {
	userDeleted := false
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			userDeleted = true
			return nil
		},
	}
	cleaner := &mockSavedDPECleaner{
		removeFn: func(ctx context.Context, userID string) error {
			return errors.New("db error")
		},
	}

	svc := NewService(userRepo, nil, cleaner, hasher)
	if err := svc.Withdraw(context.Background(), "user-123"); err == nil {
		t.Fatal("expected error")
	}
	if userDeleted {
		t.Error("user must not be deleted when an earlier step fails")
	}
}

// --- Profile ---

func TestGetProfile(t *testing.T) {
	u := existingUser(t)
	svc := NewService(&mockUserRepo{
		findByIDFn: func(context.Context, string) (*model.User, error) { return u, nil },
	}, nil, nil, hasher)

	p, err := svc.GetProfile(context.Background(), "user-123")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if p.FirstName != "Chuck" || p.HomeAirport != "KPHX" {
		t.Errorf("profile = %+v", p)
	}
}

func TestUpdateProfile_NormalizesAndSaves(t *testing.T) {
	u := existingUser(t)
	var saved model.Profile
	repo := &mockUserRepo{
		findByIDFn: func(context.Context, string) (*model.User, error) { return u, nil },
		updateProfileFn: func(_ context.Context, _ string, p model.Profile) error {
			saved = p
			return nil
		},
	}
	svc := NewService(repo, nil, nil, hasher)

	p, err := svc.UpdateProfile(context.Background(), "user-123", ProfileInput{
		FirstName:   " Chuck ",
		LastName:    "Yeager",
		State:       "ca",
		Certificate: "Commercial",
		HomeAirport: "kedw",
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if saved.FirstName != "Chuck" || saved.State != "CA" || saved.HomeAirport != "KEDW" {
		t.Errorf("saved = %+v", saved)
	}
	if *p != saved {
		t.Errorf("returned %+v, saved %+v", *p, saved)
	}
}

func TestUpdateProfile_InvalidState(t *testing.T) {
	svc := NewService(&mockUserRepo{}, nil, nil, hasher)

	_, err := svc.UpdateProfile(context.Background(), "user-123", ProfileInput{State: "ZZ"})
	assertAPIErrorCode(t, err, model.ErrCodeValidationFailed)
}

// captureLogs はテスト中のデフォルトロガー出力をJSONで取得する。
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestUpdateProfile_LogsAndWrapsInEnglish(t *testing.T) {
	u := existingUser(t)
	logs := captureLogs(t)
	svc := NewService(&mockUserRepo{
		findByIDFn:      func(context.Context, string) (*model.User, error) { return u, nil },
		updateProfileFn: func(context.Context, string, model.Profile) error { return nil },
	}, nil, nil, hasher)

	if _, err := svc.UpdateProfile(context.Background(), "user-123", ProfileInput{City: "Phoenix"}); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	var entry map[string]interface{}
	if err := json.Unmarshal(logs.Bytes(), &entry); err != nil {
		t.Fatalf("log is not JSON: %v (%s)", err, logs.String())
	}
	if entry["msg"] != "profile updated" || entry["user_id"] != "user-123" {
		t.Errorf("log entry = %v", entry)
	}

	failing := NewService(&mockUserRepo{
		findByIDFn:      func(context.Context, string) (*model.User, error) { return u, nil },
		updateProfileFn: func(context.Context, string, model.Profile) error { return errors.New("db down") },
	}, nil, nil, hasher)
	_, err := failing.UpdateProfile(context.Background(), "user-123", ProfileInput{})
	if err == nil || !strings.HasPrefix(err.Error(), "failed to update profile: ") {
		t.Errorf("err = %v, want wrapped English message", err)
	}
}

func TestUpdateProfile_HomeAirportTooLong(t *testing.T) {
	called := false
	repo := &mockUserRepo{
		updateProfileFn: func(context.Context, string, model.Profile) error {
			called = true
			return nil
		},
	}
	svc := NewService(repo, nil, nil, hasher)

	_, err := svc.UpdateProfile(context.Background(), "user-123", ProfileInput{HomeAirport: "KSEA-BFI"})
	assertAPIErrorCode(t, err, model.ErrCodeValidationFailed)
	if called {
		t.Error("長すぎる空港コードは保存してはならない")
	}
}

// --- Settings ---

func TestGetSettings(t *testing.T) {
	u := existingUser(t)
	svc := NewService(&mockUserRepo{
		findByIDFn: func(context.Context, string) (*model.User, error) { return u, nil },
	}, nil, nil, hasher)

	st, err := svc.GetSettings(context.Background(), "user-123")
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if st.Email != "pilot@example.com" || !st.HasPassword {
		t.Errorf("settings = %+v", st)
	}
}

func TestUpdateSettings_ChangesPasswordAndEmail(t *testing.T) {
	u := existingUser(t)
	var newHash, newEmail string
	repo := &mockUserRepo{
		findByIDFn: func(context.Context, string) (*model.User, error) { return u, nil },
		updatePasswordHashFn: func(_ context.Context, _ string, h string) error {
			newHash = h
			return nil
		},
		updateEmailFn: func(_ context.Context, _ string, e string) error {
			newEmail = e
			return nil
		},
	}
	svc := NewService(repo, nil, nil, hasher)

	err := svc.UpdateSettings(context.Background(), "user-123", SettingsInput{
		Email:           " New@Example.com ",
		CurrentPassword: "old-password",
		NewPassword:     "new-password",
	})
	if err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	if ok, _ := hasher.Verify(newHash, "new-password"); !ok {
		t.Error("password hash was not updated to the new password")
	}
	if newEmail != "new@example.com" {
		t.Errorf("email = %q", newEmail)
	}
}

func TestUpdateSettings_Failures(t *testing.T) {
	tests := []struct {
		name     string
		in       SettingsInput
		taken    bool
		wantCode string
	}{
		{"現在のパスワード不一致", SettingsInput{CurrentPassword: "wrong", NewPassword: "new-password"}, false, model.ErrCodeIncorrectPassword},
		{"現在のパスワード未入力", SettingsInput{NewPassword: "new-password"}, false, model.ErrCodeValidationFailed},
		{"新パスワードが短い", SettingsInput{CurrentPassword: "old-password", NewPassword: "short"}, false, model.ErrCodeValidationFailed},
		{"メール形式不正", SettingsInput{Email: "nope"}, false, model.ErrCodeValidationFailed},
		{"メール重複", SettingsInput{Email: "taken@example.com"}, true, model.ErrCodeEmailTaken},
		{"メール重複時はパスワードも変更しない", SettingsInput{Email: "taken@example.com", CurrentPassword: "old-password", NewPassword: "new-password"}, true, model.ErrCodeEmailTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := existingUser(t)
			repo := &mockUserRepo{
				findByIDFn: func(context.Context, string) (*model.User, error) { return u, nil },
				findByEmailFn: func(context.Context, string) (*model.User, error) {
					if tt.taken {
						return &model.User{ID: "other-user"}, nil
					}
					return nil, nil
				},
				updatePasswordHashFn: func(context.Context, string, string) error {
					t.Error("password must not be updated")
					return nil
				},
				updateEmailFn: func(context.Context, string, string) error {
					t.Error("email must not be updated")
					return nil
				},
			}
			svc := NewService(repo, nil, nil, hasher)

			err := svc.UpdateSettings(context.Background(), "user-123", tt.in)
			assertAPIErrorCode(t, err, tt.wantCode)
		})
	}
}

func TestUpdateSettings_OAuthUserCanSetPasswordWithoutCurrent(t *testing.T) {
	u := &model.User{ID: "user-123", Email: "oauth@example.com"}
	updated := false
	repo := &mockUserRepo{
		findByIDFn: func(context.Context, string) (*model.User, error) { return u, nil },
		updatePasswordHashFn: func(context.Context, string, string) error {
			updated = true
			return nil
		},
	}
	svc := NewService(repo, nil, nil, hasher)

	if err := svc.UpdateSettings(context.Background(), "user-123", SettingsInput{NewPassword: "first-password"}); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	if !updated {
		t.Error("expected password to be set")
	}
}

func TestUpdateSettings_SameEmailIsNoop(t *testing.T) {
	u := existingUser(t)
	repo := &mockUserRepo{
		findByIDFn: func(context.Context, string) (*model.User, error) { return u, nil },
		findByEmailFn: func(context.Context, string) (*model.User, error) {
			t.Error("FindByEmail should not be called for unchanged email")
			return nil, nil
		},
	}
	svc := NewService(repo, nil, nil, hasher)

	if err := svc.UpdateSettings(context.Background(), "user-123", SettingsInput{Email: "PILOT@example.com"}); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
}
