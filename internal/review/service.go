// Package review はDPEレビューの投稿・編集・削除のドメインロジックを提供する。
package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/ratemydpe/internal/metrics"
	"github.com/hitoshi/ratemydpe/internal/model"
	"github.com/hitoshi/ratemydpe/internal/repository"
	"github.com/hitoshi/ratemydpe/internal/security"
	"github.com/hitoshi/ratemydpe/internal/validation"
)

// anonymousName はユーザー名が未設定の場合に保存する投稿者名。
const anonymousName = "Anonymous"

// Fields はレビューの編集可能な項目。
// DifficultyRatingの0は未評価、各*boolのnilは未回答を表す。
type Fields struct {
	Content          string   `json:"content" validate:"required,max=2000"`
	OverallRating    int      `json:"overallRating" validate:"required,min=1,max=5"`
	DifficultyRating int      `json:"difficultyRating" validate:"omitempty,min=1,max=5"`
	WouldRecommend   *bool    `json:"wouldRecommend"`
	CheckridePassed  *bool    `json:"checkridePassed"`
	GroundFirst      *bool    `json:"groundFirst"`
	CheckrideType    string   `json:"checkrideType" validate:"omitempty,checkride"`
	Tags             []string `json:"tags" validate:"omitempty,max=3,dive,reviewtag"`
}

// CreateInput はレビュー投稿の入力。
type CreateInput struct {
	DPEID string `json:"dpeId" validate:"required"`
	Fields
}

// UserFinder は投稿者名を取得するためのインターフェース。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// DPEFinder は投稿対象DPEの存在確認インターフェース。
type DPEFinder interface {
	FindByID(ctx context.Context, id string) (*model.DPE, error)
}

// Service はレビューのサービス層。
type Service struct {
	reviewRepo repository.ReviewRepository
	dpes       DPEFinder
	users      UserFinder
	sanitizer  security.ContentSanitizerService
	metrics    metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	reviewRepo repository.ReviewRepository,
	dpes DPEFinder,
	users UserFinder,
	sanitizer security.ContentSanitizerService,
	collector metrics.MetricsCollector,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		reviewRepo: reviewRepo,
		dpes:       dpes,
		users:      users,
		sanitizer:  sanitizer,
		metrics:    collector,
	}
}

// Create はレビューを投稿する。
// 投稿者名は投稿時点のユーザー名を保存し、未設定なら"Anonymous"とする。
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*model.Review, error) {
	in.DPEID = strings.TrimSpace(in.DPEID)
	in.Fields = s.normalize(in.Fields)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(in.DPEID); err != nil {
		return nil, model.NewDPENotFoundError(in.DPEID)
	}
	d, err := s.dpes.FindByID(ctx, in.DPEID)
	if err != nil {
		return nil, fmt.Errorf("failed to find dpe: %w", err)
	}
	if d == nil {
		return nil, model.NewDPENotFoundError(in.DPEID)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	userName := strings.TrimSpace(user.Name)
	if userName == "" {
		userName = anonymousName
	}

	now := time.Now()
	r := &model.Review{
		ID:        uuid.New().String(),
		DPEID:     d.ID,
		UserID:    userID,
		UserName:  userName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	apply(r, in.Fields)

	if err := s.reviewRepo.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	s.metrics.RecordReviewCreated(r.CheckrideType)
	slog.Info("review created",
		slog.String("review_id", r.ID),
		slog.String("dpe_id", r.DPEID),
		slog.String("user_id", userID),
	)
	return r, nil
}

// Update は投稿者本人のレビューを更新する。
func (s *Service) Update(ctx context.Context, userID, reviewID string, in Fields) (*model.Review, error) {
	r, err := s.findOwned(ctx, userID, reviewID)
	if err != nil {
		return nil, err
	}

	in = s.normalize(in)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	apply(r, in)
	r.UpdatedAt = time.Now()
	if err := s.reviewRepo.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to update review: %w", err)
	}

	slog.Info("review updated",
		slog.String("review_id", r.ID),
		slog.String("user_id", userID),
	)
	return r, nil
}

// Delete は投稿者本人のレビューを削除する。
func (s *Service) Delete(ctx context.Context, userID, reviewID string) error {
	if _, err := s.findOwned(ctx, userID, reviewID); err != nil {
		return err
	}

	if err := s.reviewRepo.Delete(ctx, reviewID); err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}

	slog.Info("review deleted",
		slog.String("review_id", reviewID),
		slog.String("user_id", userID),
	)
	return nil
}

// ListByUser はユーザーのレビューを対象DPE情報付きで新しい順に返す。
func (s *Service) ListByUser(ctx context.Context, userID string) ([]model.ReviewWithDPE, error) {
	reviews, err := s.reviewRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user reviews: %w", err)
	}
	if reviews == nil {
		reviews = []model.ReviewWithDPE{}
	}
	return reviews, nil
}

// ListRecent は全体の最新レビューを返す。
func (s *Service) ListRecent(ctx context.Context, limit int) ([]model.ReviewWithDPE, error) {
	if limit <= 0 {
		limit = 20
	}
	reviews, err := s.reviewRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent reviews: %w", err)
	}
	return reviews, nil
}

// findOwned はレビューを取得し、投稿者本人であることを確認する。
func (s *Service) findOwned(ctx context.Context, userID, reviewID string) (*model.Review, error) {
	if _, err := uuid.Parse(reviewID); err != nil {
		return nil, model.NewReviewNotFoundError(reviewID)
	}

	r, err := s.reviewRepo.FindByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to find review: %w", err)
	}
	if r == nil {
		return nil, model.NewReviewNotFoundError(reviewID)
	}
	if r.UserID != userID {
		return nil, model.NewReviewForbiddenError()
	}
	return r, nil
}

// normalize は本文をプレーンテキスト化し、タグの重複を除く。
func (s *Service) normalize(f Fields) Fields {
	f.Content = s.sanitizer.SanitizeText(f.Content)
	f.CheckrideType = strings.ToUpper(strings.TrimSpace(f.CheckrideType))

	seen := make(map[string]bool, len(f.Tags))
	tags := make([]string, 0, len(f.Tags))
	for _, t := range f.Tags {
		t = strings.TrimSpace(t)
		if !seen[t] {
			seen[t] = true
			tags = append(tags, t)
		}
	}
	f.Tags = tags
	return f
}

func apply(r *model.Review, f Fields) {
	r.Content = f.Content
	r.OverallRating = f.OverallRating
	r.DifficultyRating = f.DifficultyRating
	r.WouldRecommend = f.WouldRecommend
	r.CheckridePassed = f.CheckridePassed
	r.GroundFirst = f.GroundFirst
	r.CheckrideType = f.CheckrideType
	r.Tags = f.Tags
}
