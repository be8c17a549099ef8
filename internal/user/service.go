// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/ratemydpe/internal/auth"
	"github.com/hitoshi/ratemydpe/internal/model"
	"github.com/hitoshi/ratemydpe/internal/repository"
	"github.com/hitoshi/ratemydpe/internal/validation"
)

// SavedDPECleaner は退会ユーザーをDPEの保存者一覧から取り除くインターフェース。
type SavedDPECleaner interface {
	RemoveSavedByUser(ctx context.Context, userID string) error
}

// ProfileInput はプロフィール更新の入力。すべて任意項目。
type ProfileInput struct {
	FirstName   string `json:"firstName" validate:"max=100"`
	LastName    string `json:"lastName" validate:"max=100"`
	City        string `json:"city" validate:"max=100"`
	State       string `json:"state" validate:"omitempty,usstate"`
	Certificate string `json:"certificate" validate:"max=100"`
	// HomeAirport はICAO/FAAの空港コード（最大4文字）。
	HomeAirport string `json:"homeAirport" validate:"max=4"`
}

// SettingsInput はアカウント設定更新の入力。
// NewPasswordを指定した場合、既存パスワードを持つユーザーはCurrentPasswordも必要。
type SettingsInput struct {
	Email           string `json:"email" validate:"omitempty,email,max=320"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" validate:"omitempty,min=8,max=72"`
}

// Settings はアカウント設定の表示用データ。
type Settings struct {
	Email       string
	HasPassword bool
}

// Service はユーザー管理のサービス層。
// プロフィール、アカウント設定、退会処理のビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	savedDPEs   SavedDPECleaner
	passwords   auth.PasswordHasher
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	savedDPEs SavedDPECleaner,
	passwords auth.PasswordHasher,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		savedDPEs:   savedDPEs,
		passwords:   passwords,
	}
}

// GetProfile はユーザーのプロフィールを返す。
func (s *Service) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := user.Profile
	return &profile, nil
}

// UpdateProfile はプロフィールを更新し、更新後の値を返す。
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*model.Profile, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.City = strings.TrimSpace(in.City)
	in.State = strings.ToUpper(strings.TrimSpace(in.State))
	in.Certificate = strings.TrimSpace(in.Certificate)
	in.HomeAirport = strings.ToUpper(strings.TrimSpace(in.HomeAirport))
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	profile := model.Profile(in)

	if _, err := s.findUser(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdateProfile(ctx, userID, profile); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	slog.Info("profile updated", slog.String("user_id", userID))
	return &profile, nil
}

// GetSettings はアカウント設定を返す。
func (s *Service) GetSettings(ctx context.Context, userID string) (*Settings, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Settings{Email: user.Email, HasPassword: user.HasPassword()}, nil
}

// UpdateSettings はメールアドレスとパスワードを更新する。
// 検証をすべて終えてから書き込むため、一部だけが更新されることはない。
func (s *Service) UpdateSettings(ctx context.Context, userID string, in SettingsInput) error {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.Struct(in); err != nil {
		return err
	}

	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}

	// 1. パスワード変更の検証
	var newHash string
	if in.NewPassword != "" {
		if user.HasPassword() {
			if in.CurrentPassword == "" {
				return model.NewValidationError("currentPassword")
			}
			ok, err := s.passwords.Verify(user.PasswordHash, in.CurrentPassword)
			if err != nil {
				return fmt.Errorf("failed to verify password: %w", err)
			}
			if !ok {
				return model.NewIncorrectPasswordError()
			}
		}
		newHash, err = s.passwords.Hash(in.NewPassword)
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return model.NewValidationError("newPassword")
		}
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
	}

	// 2. メールアドレス変更の検証
	changeEmail := in.Email != "" && in.Email != user.Email
	if changeEmail {
		existing, err := s.userRepo.FindByEmail(ctx, in.Email)
		if err != nil {
			return fmt.Errorf("failed to find user by email: %w", err)
		}
		if existing != nil && existing.ID != userID {
			return model.NewEmailTakenError()
		}
	}

	// 3. 書き込み
	if newHash != "" {
		if err := s.userRepo.UpdatePasswordHash(ctx, userID, newHash); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		slog.Info("password changed", slog.String("user_id", userID))
	}
	if changeEmail {
		if err := s.userRepo.UpdateEmail(ctx, userID, in.Email); err != nil {
			if errors.Is(err, repository.ErrEmailConflict) {
				return model.NewEmailTakenError()
			}
			return fmt.Errorf("failed to update email: %w", err)
		}
		slog.Info("email changed", slog.String("user_id", userID))
	}
	return nil
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: DPEの保存者一覧 → sessions → user（+ CASCADE: identities, reviews）
// 登録したDPEは共有データとして残す。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	if _, err := s.findUser(ctx, userID); err != nil {
		return err
	}

	slog.Info("withdrawal started",
		slog.String("user_id", userID),
	)

	// 1. DPEの保存者一覧から除去
	if s.savedDPEs != nil {
		if err := s.savedDPEs.RemoveSavedByUser(ctx, userID); err != nil {
			return fmt.Errorf("failed to remove saved dpes: %w", err)
		}
	}

	// 2. セッションを削除
	if s.sessionRepo != nil {
		if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete sessions: %w", err)
		}
	}

	// 3. ユーザーを削除（identities, reviewsはCASCADE削除）
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	slog.Info("withdrawal completed",
		slog.String("user_id", userID),
	)

	return nil
}

func (s *Service) findUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}
