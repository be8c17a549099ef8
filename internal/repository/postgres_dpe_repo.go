package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hitoshi/ratemydpe/internal/model"
	"github.com/lib/pq"
)

// PostgresDPERepo はPostgreSQLを使用したDPEリポジトリ。
type PostgresDPERepo struct {
	db *sql.DB
}

// NewPostgresDPERepo はPostgresDPERepoを生成する。
func NewPostgresDPERepo(db *sql.DB) *PostgresDPERepo {
	return &PostgresDPERepo{db: db}
}

const dpeColumns = `id, first_name, last_name, city, state, region,
	checkride_types, tags, saved_by_user_ids, created_at, updated_at`

func scanDPE(row interface{ Scan(...interface{}) error }) (*model.DPE, error) {
	d := &model.DPE{}
	var checkrideTypes, tags, savedBy pq.StringArray
	err := row.Scan(
		&d.ID, &d.FirstName, &d.LastName, &d.City, &d.State, &d.Region,
		&checkrideTypes, &tags, &savedBy, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.CheckrideTypes = []string(checkrideTypes)
	d.Tags = emptyIfNil(tags)
	d.SavedByUserIDs = emptyIfNil(savedBy)
	return d, nil
}

// Create はDPEを作成する。
func (r *PostgresDPERepo) Create(ctx context.Context, d *model.DPE) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO dpes (id, first_name, last_name, city, state, region,
		                   checkride_types, tags, saved_by_user_ids, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		d.ID, d.FirstName, d.LastName, d.City, d.State, d.Region,
		pq.Array(d.CheckrideTypes), pq.Array(emptyIfNil(d.Tags)), pq.Array(emptyIfNil(d.SavedByUserIDs)),
		d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("DPEの作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDのDPEを取得する。見つからない場合はnilを返す。
func (r *PostgresDPERepo) FindByID(ctx context.Context, id string) (*model.DPE, error) {
	d, err := scanDPE(r.db.QueryRowContext(ctx,
		`SELECT `+dpeColumns+` FROM dpes WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("DPEの取得に失敗しました: %w", err)
	}
	return d, nil
}

// Search は条件に一致するDPEを姓名順で返す。
// Nameは姓または名への部分一致（ILIKE）、Stateは完全一致。
func (r *PostgresDPERepo) Search(ctx context.Context, filter model.DPEFilter) ([]*model.DPE, error) {
	var (
		conds []string
		args  []interface{}
	)
	if name := strings.TrimSpace(filter.Name); name != "" {
		args = append(args, "%"+escapeLike(name)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(first_name ILIKE $%d OR last_name ILIKE $%d)", n, n))
	}
	if state := strings.TrimSpace(filter.State); state != "" {
		args = append(args, state)
		conds = append(conds, fmt.Sprintf("state = $%d", len(args)))
	}

	query := `SELECT ` + dpeColumns + ` FROM dpes`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY last_name ASC, first_name ASC, id ASC`

	return r.list(ctx, query, args...)
}

// ListByIDs は指定IDのDPEを姓名順で返す。
func (r *PostgresDPERepo) ListByIDs(ctx context.Context, ids []string) ([]*model.DPE, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.list(ctx,
		`SELECT `+dpeColumns+` FROM dpes
		 WHERE id::text = ANY($1)
		 ORDER BY last_name ASC, first_name ASC, id ASC`,
		pq.Array(ids),
	)
}

// RemoveSavedByUser は全DPEのsaved_by_user_idsから指定ユーザーを取り除く。
func (r *PostgresDPERepo) RemoveSavedByUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE dpes
		 SET saved_by_user_ids = array_remove(saved_by_user_ids, $1), updated_at = now()
		 WHERE $1 = ANY(saved_by_user_ids)`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("保存ユーザーの除去に失敗しました: %w", err)
	}
	return nil
}

func (r *PostgresDPERepo) list(ctx context.Context, query string, args ...interface{}) ([]*model.DPE, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("DPE一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var dpes []*model.DPE
	for rows.Next() {
		d, err := scanDPE(rows)
		if err != nil {
			return nil, fmt.Errorf("DPE行の読み取りに失敗しました: %w", err)
		}
		dpes = append(dpes, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("DPE一覧の走査に失敗しました: %w", err)
	}
	return dpes, nil
}

// escapeLike はLIKEパターンのメタ文字をエスケープする。
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// compile-time interface check
var _ DPERepository = (*PostgresDPERepo)(nil)
