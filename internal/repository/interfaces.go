// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hitoshi/ratemydpe/internal/model"
)

// ErrEmailConflict はメールアドレスの一意制約違反を表す。
var ErrEmailConflict = errors.New("email already exists")

// ErrUserNotFound は更新対象のユーザー行が存在しないことを表す。
// セッションがユーザー削除後も残っている場合に発生する。
var ErrUserNotFound = errors.New("user not found")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。大文字小文字は区別しない。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はパスワード認証のユーザーを作成する。
	// メールアドレスが重複する場合はErrEmailConflictを返す。
	Create(ctx context.Context, user *model.User) error

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpdateProfile はプロフィール項目を更新する。
	UpdateProfile(ctx context.Context, id string, profile model.Profile) error

	// UpdateEmail はメールアドレスを更新する。重複時はErrEmailConflictを返す。
	UpdateEmail(ctx context.Context, id, email string) error

	// UpdatePasswordHash はパスワードハッシュを更新する。
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するidentities、sessions、reviewsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)

	// Create は既存ユーザーにidentityを紐付ける。
	Create(ctx context.Context, identity *model.Identity) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// DPERepository はDPEデータの永続化インターフェース。
type DPERepository interface {
	// Create はDPEを作成する。
	Create(ctx context.Context, dpe *model.DPE) error

	// FindByID は指定IDのDPEを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.DPE, error)

	// Search は条件に一致するDPEを姓名順で返す。
	// 空の条件は無視され、条件がすべて空の場合は全件を返す。
	Search(ctx context.Context, filter model.DPEFilter) ([]*model.DPE, error)

	// ListByIDs は指定IDのDPEを姓名順で返す。存在しないIDは無視する。
	ListByIDs(ctx context.Context, ids []string) ([]*model.DPE, error)

	// RemoveSavedByUser は全DPEのsaved_by_user_idsから指定ユーザーを取り除く。
	RemoveSavedByUser(ctx context.Context, userID string) error
}

// SavedDPERepository はユーザーとDPEの保存関係を扱うインターフェース。
type SavedDPERepository interface {
	// ToggleSave は保存状態を反転し、反転後に保存済みかどうかを返す。
	// users.saved_dpe_idsとdpes.saved_by_user_idsを同一トランザクションで更新する。
	ToggleSave(ctx context.Context, userID, dpeID string) (bool, error)
}

// ReviewRepository はレビューデータの永続化インターフェース。
type ReviewRepository interface {
	// Create はレビューを作成する。
	Create(ctx context.Context, review *model.Review) error

	// FindByID は指定IDのレビューを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Review, error)

	// Update はレビューの本文・評価・タグ等を更新する。
	Update(ctx context.Context, review *model.Review) error

	// Delete は指定IDのレビューを削除する。
	Delete(ctx context.Context, id string) error

	// ListByDPE はDPEのレビューを新しい順に返す。
	ListByDPE(ctx context.Context, dpeID string) ([]*model.Review, error)

	// ListByDPEIDs は複数DPEのレビューをDPE IDごとにまとめて返す。
	ListByDPEIDs(ctx context.Context, dpeIDs []string) (map[string][]*model.Review, error)

	// ListByUser はユーザーのレビューを対象DPE情報付きで新しい順に返す。
	ListByUser(ctx context.Context, userID string) ([]model.ReviewWithDPE, error)

	// ListRecent は全体の最新レビューをlimit件まで返す。
	ListRecent(ctx context.Context, limit int) ([]model.ReviewWithDPE, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
