// Package dpe はDPE（審査官）の登録・検索・保存のドメインロジックを提供する。
package dpe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/ratemydpe/internal/metrics"
	"github.com/hitoshi/ratemydpe/internal/model"
	"github.com/hitoshi/ratemydpe/internal/repository"
	"github.com/hitoshi/ratemydpe/internal/validation"
)

// CreateInput はDPE登録の入力。
type CreateInput struct {
	FirstName      string   `json:"firstName" validate:"required,max=100"`
	LastName       string   `json:"lastName" validate:"required,max=100"`
	City           string   `json:"city" validate:"required,max=100"`
	State          string   `json:"state" validate:"required,usstate"`
	Region         string   `json:"region" validate:"required,max=100"`
	CheckrideTypes []string `json:"checkrideTypes" validate:"required,min=1,dive,checkride"`
	Tags           []string `json:"tags" validate:"omitempty,max=20,dive,required,max=50"`
}

// Listing はDPEとそのレビュー、集計値をまとめたもの。
type Listing struct {
	DPE     *model.DPE
	Reviews []*model.Review
	Stats   Stats
}

// UserFinder は保存済みDPE一覧のためにユーザーを取得するインターフェース。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// Service はDPEのサービス層。
type Service struct {
	dpeRepo    repository.DPERepository
	reviewRepo repository.ReviewRepository
	savedRepo  repository.SavedDPERepository
	users      UserFinder
	metrics    metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	dpeRepo repository.DPERepository,
	reviewRepo repository.ReviewRepository,
	savedRepo repository.SavedDPERepository,
	users UserFinder,
	collector metrics.MetricsCollector,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		dpeRepo:    dpeRepo,
		reviewRepo: reviewRepo,
		savedRepo:  savedRepo,
		users:      users,
		metrics:    collector,
	}
}

// Create はDPEを登録する。tagsが未指定の場合は空配列とする。
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*model.DPE, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.City = strings.TrimSpace(in.City)
	in.State = strings.ToUpper(strings.TrimSpace(in.State))
	in.Region = strings.TrimSpace(in.Region)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	tags := make([]string, 0, len(in.Tags))
	for _, t := range in.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	now := time.Now()
	d := &model.DPE{
		ID:             uuid.New().String(),
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		City:           in.City,
		State:          in.State,
		Region:         in.Region,
		CheckrideTypes: dedupe(in.CheckrideTypes),
		Tags:           tags,
		SavedByUserIDs: []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.dpeRepo.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to create dpe: %w", err)
	}

	s.metrics.RecordDPECreated()
	slog.Info("dpe created",
		slog.String("dpe_id", d.ID),
		slog.String("user_id", userID),
	)
	return d, nil
}

// Get はDPEをレビューと集計値付きで取得する。
func (s *Service) Get(ctx context.Context, id string) (*Listing, error) {
	if !isUUID(id) {
		return nil, model.NewDPENotFoundError(id)
	}

	d, err := s.dpeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find dpe: %w", err)
	}
	if d == nil {
		return nil, model.NewDPENotFoundError(id)
	}

	reviews, err := s.reviewRepo.ListByDPE(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	return &Listing{DPE: d, Reviews: reviews, Stats: ComputeStats(reviews)}, nil
}

// Search は名前（姓または名の部分一致）と州でDPEを検索する。
func (s *Service) Search(ctx context.Context, filter model.DPEFilter) ([]Listing, error) {
	filter.Name = strings.TrimSpace(filter.Name)
	filter.State = strings.ToUpper(strings.TrimSpace(filter.State))

	dpes, err := s.dpeRepo.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search dpes: %w", err)
	}
	return s.withReviews(ctx, dpes)
}

// ToggleSave はDPEの保存状態を反転し、反転後に保存済みかどうかを返す。
func (s *Service) ToggleSave(ctx context.Context, userID, dpeID string) (bool, error) {
	dpeID = strings.TrimSpace(dpeID)
	if dpeID == "" {
		return false, model.NewValidationError("dpeId")
	}
	if !isUUID(dpeID) {
		return false, model.NewDPENotFoundError(dpeID)
	}

	saved, err := s.savedRepo.ToggleSave(ctx, userID, dpeID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return false, model.NewUserNotFoundError()
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, model.NewDPENotFoundError(dpeID)
	}
	if err != nil {
		return false, fmt.Errorf("failed to toggle save: %w", err)
	}

	s.metrics.RecordSaveToggled(saved)
	slog.Info("dpe save toggled",
		slog.String("dpe_id", dpeID),
		slog.String("user_id", userID),
		slog.Bool("saved", saved),
	)
	return saved, nil
}

// ListSaved はユーザーが保存したDPEをレビューと集計値付きで返す。
func (s *Service) ListSaved(ctx context.Context, userID string) ([]Listing, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	if len(user.SavedDPEIDs) == 0 {
		return []Listing{}, nil
	}

	dpes, err := s.dpeRepo.ListByIDs(ctx, user.SavedDPEIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved dpes: %w", err)
	}
	return s.withReviews(ctx, dpes)
}

func (s *Service) withReviews(ctx context.Context, dpes []*model.DPE) ([]Listing, error) {
	listings := make([]Listing, 0, len(dpes))
	if len(dpes) == 0 {
		return listings, nil
	}

	ids := make([]string, len(dpes))
	for i, d := range dpes {
		ids[i] = d.ID
	}
	byDPE, err := s.reviewRepo.ListByDPEIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	for _, d := range dpes {
		reviews := byDPE[d.ID]
		if reviews == nil {
			reviews = []*model.Review{}
		}
		listings = append(listings, Listing{DPE: d, Reviews: reviews, Stats: ComputeStats(reviews)})
	}
	return listings, nil
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
