package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/ratemydpe/internal/model"
	"github.com/lib/pq"
)

// PostgresReviewRepo はPostgreSQLを使用したレビューリポジトリ。
type PostgresReviewRepo struct {
	db *sql.DB
}

// NewPostgresReviewRepo はPostgresReviewRepoを生成する。
func NewPostgresReviewRepo(db *sql.DB) *PostgresReviewRepo {
	return &PostgresReviewRepo{db: db}
}

const reviewColumns = `r.id, r.dpe_id, r.user_id, r.user_name, r.content,
	r.overall_rating, r.difficulty_rating, r.would_recommend, r.checkride_passed, r.ground_first,
	r.checkride_type, r.tags, r.created_at, r.updated_at`

// reviewScanner はレビュー1行分のスキャン先を保持する。
type reviewScanner struct {
	review      model.Review
	recommend   sql.NullBool
	passed      sql.NullBool
	groundFirst sql.NullBool
	tags        pq.StringArray
}

func (s *reviewScanner) dest() []interface{} {
	r := &s.review
	return []interface{}{
		&r.ID, &r.DPEID, &r.UserID, &r.UserName, &r.Content,
		&r.OverallRating, &r.DifficultyRating, &s.recommend, &s.passed, &s.groundFirst,
		&r.CheckrideType, &s.tags, &r.CreatedAt, &r.UpdatedAt,
	}
}

func (s *reviewScanner) result() model.Review {
	r := s.review
	r.WouldRecommend = boolPtr(s.recommend)
	r.CheckridePassed = boolPtr(s.passed)
	r.GroundFirst = boolPtr(s.groundFirst)
	r.Tags = emptyIfNil(s.tags)
	return r
}

func boolPtr(nb sql.NullBool) *bool {
	if !nb.Valid {
		return nil
	}
	v := nb.Bool
	return &v
}

// Create はレビューを作成する。
func (r *PostgresReviewRepo) Create(ctx context.Context, review *model.Review) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reviews (id, dpe_id, user_id, user_name, content,
		                      overall_rating, difficulty_rating, would_recommend, checkride_passed, ground_first,
		                      checkride_type, tags, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		review.ID, review.DPEID, review.UserID, review.UserName, review.Content,
		review.OverallRating, review.DifficultyRating, review.WouldRecommend, review.CheckridePassed, review.GroundFirst,
		review.CheckrideType, pq.Array(emptyIfNil(review.Tags)), review.CreatedAt, review.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

// FindByID は指定IDのレビューを取得する。見つからない場合はnilを返す。
func (r *PostgresReviewRepo) FindByID(ctx context.Context, id string) (*model.Review, error) {
	var s reviewScanner
	err := r.db.QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews r WHERE r.id = $1`,
		id,
	).Scan(s.dest()...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find review: %w", err)
	}
	review := s.result()
	return &review, nil
}

// Update はレビューの本文・評価・タグ等を更新する。
// 投稿者、対象DPE、投稿者名のスナップショットは変更しない。
func (r *PostgresReviewRepo) Update(ctx context.Context, review *model.Review) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE reviews
		 SET content = $2, overall_rating = $3, difficulty_rating = $4,
		     would_recommend = $5, checkride_passed = $6, ground_first = $7,
		     checkride_type = $8, tags = $9, updated_at = $10
		 WHERE id = $1`,
		review.ID, review.Content, review.OverallRating, review.DifficultyRating,
		review.WouldRecommend, review.CheckridePassed, review.GroundFirst,
		review.CheckrideType, pq.Array(emptyIfNil(review.Tags)), review.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}
	return requireOneRow(result, "review", review.ID)
}

// Delete は指定IDのレビューを削除する。
func (r *PostgresReviewRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return requireOneRow(result, "review", id)
}

// ListByDPE はDPEのレビューを新しい順に返す。
func (r *PostgresReviewRepo) ListByDPE(ctx context.Context, dpeID string) ([]*model.Review, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews r
		 WHERE r.dpe_id = $1
		 ORDER BY r.created_at DESC, r.id ASC`,
		dpeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews by dpe: %w", err)
	}
	defer rows.Close()

	var reviews []*model.Review
	for rows.Next() {
		var s reviewScanner
		if err := rows.Scan(s.dest()...); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		review := s.result()
		reviews = append(reviews, &review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviews: %w", err)
	}
	return reviews, nil
}

// ListByDPEIDs は複数DPEのレビューをDPE IDごとにまとめて返す。各スライスは新しい順。
func (r *PostgresReviewRepo) ListByDPEIDs(ctx context.Context, dpeIDs []string) (map[string][]*model.Review, error) {
	grouped := make(map[string][]*model.Review, len(dpeIDs))
	if len(dpeIDs) == 0 {
		return grouped, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews r
		 WHERE r.dpe_id::text = ANY($1)
		 ORDER BY r.created_at DESC, r.id ASC`,
		pq.Array(dpeIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews by dpes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s reviewScanner
		if err := rows.Scan(s.dest()...); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		review := s.result()
		grouped[review.DPEID] = append(grouped[review.DPEID], &review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviews: %w", err)
	}
	return grouped, nil
}

// ListByUser はユーザーのレビューを対象DPE情報付きで新しい順に返す。
func (r *PostgresReviewRepo) ListByUser(ctx context.Context, userID string) ([]model.ReviewWithDPE, error) {
	return r.listWithDPE(ctx,
		`SELECT `+reviewColumns+`, d.first_name, d.last_name
		 FROM reviews r
		 JOIN dpes d ON d.id = r.dpe_id
		 WHERE r.user_id = $1
		 ORDER BY r.created_at DESC, r.id ASC`,
		userID,
	)
}

// ListRecent は全体の最新レビューをlimit件まで返す。
func (r *PostgresReviewRepo) ListRecent(ctx context.Context, limit int) ([]model.ReviewWithDPE, error) {
	return r.listWithDPE(ctx,
		`SELECT `+reviewColumns+`, d.first_name, d.last_name
		 FROM reviews r
		 JOIN dpes d ON d.id = r.dpe_id
		 ORDER BY r.created_at DESC, r.id ASC
		 LIMIT $1`,
		limit,
	)
}

func (r *PostgresReviewRepo) listWithDPE(ctx context.Context, query string, args ...interface{}) ([]model.ReviewWithDPE, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var results []model.ReviewWithDPE
	for rows.Next() {
		var (
			s                   reviewScanner
			firstName, lastName string
		)
		dest := append(s.dest(), &firstName, &lastName)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		results = append(results, model.ReviewWithDPE{
			Review:       s.result(),
			DPEFirstName: firstName,
			DPELastName:  lastName,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviews: %w", err)
	}
	return results, nil
}

// compile-time interface check
var _ ReviewRepository = (*PostgresReviewRepo)(nil)
