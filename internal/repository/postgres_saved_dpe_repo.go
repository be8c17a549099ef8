package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresSavedDPERepo はusers.saved_dpe_idsとdpes.saved_by_user_idsの対を更新するリポジトリ。
type PostgresSavedDPERepo struct {
	db TxBeginner
}

// NewPostgresSavedDPERepo はPostgresSavedDPERepoを生成する。
func NewPostgresSavedDPERepo(db TxBeginner) *PostgresSavedDPERepo {
	return &PostgresSavedDPERepo{db: db}
}

// ToggleSave は保存状態を反転し、反転後に保存済みかどうかを返す。
// ユーザー行をFOR UPDATEでロックし、両配列を同一トランザクションで更新する。
// 配列の更新は存在チェック付きで行うため、重複要素は生じない。
// DPEが存在しない場合はsql.ErrNoRowsを、ユーザーが存在しない場合はErrUserNotFoundをラップしたエラーを返す。
func (r *PostgresSavedDPERepo) ToggleSave(ctx context.Context, userID, dpeID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var saved bool
	err = tx.QueryRowContext(ctx,
		`SELECT $2 = ANY(saved_dpe_ids) FROM users WHERE id = $1 FOR UPDATE`,
		userID, dpeID,
	).Scan(&saved)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("user %s: %w", userID, ErrUserNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("failed to lock user: %w", err)
	}

	var dpeQuery, userQuery string
	if saved {
		userQuery = `UPDATE users SET saved_dpe_ids = array_remove(saved_dpe_ids, $2), updated_at = now()
		             WHERE id = $1`
		dpeQuery = `UPDATE dpes SET saved_by_user_ids = array_remove(saved_by_user_ids, $2)
		            WHERE id = $1`
	} else {
		userQuery = `UPDATE users SET saved_dpe_ids = array_append(saved_dpe_ids, $2), updated_at = now()
		             WHERE id = $1 AND NOT ($2 = ANY(saved_dpe_ids))`
		dpeQuery = `UPDATE dpes SET saved_by_user_ids = array_append(saved_by_user_ids, $2)
		            WHERE id = $1 AND NOT ($2 = ANY(saved_by_user_ids))`
	}

	result, err := tx.ExecContext(ctx, dpeQuery, dpeID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to update dpe saved list: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 && !saved {
		// 追加時に対象DPEが存在しない
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM dpes WHERE id = $1)`, dpeID).Scan(&exists); err != nil {
			return false, fmt.Errorf("failed to check dpe: %w", err)
		}
		if !exists {
			return false, fmt.Errorf("dpe %s: %w", dpeID, sql.ErrNoRows)
		}
	}

	if _, err := tx.ExecContext(ctx, userQuery, userID, dpeID); err != nil {
		return false, fmt.Errorf("failed to update user saved list: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return !saved, nil
}

// compile-time interface check
var _ SavedDPERepository = (*PostgresSavedDPERepo)(nil)
