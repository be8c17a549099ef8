package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes はbcryptが扱える入力長の上限。
const maxPasswordBytes = 72

// ErrPasswordTooLong はパスワードがbcryptの上限を超えていることを表す。
var ErrPasswordTooLong = errors.New("password must be 72 bytes or fewer")

// PasswordHasher はパスワードのハッシュ化と照合のインターフェース。
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Verify はハッシュとパスワードが一致すればtrueを返す。
	Verify(hash, plaintext string) (bool, error)
}

// BcryptHasher はbcryptによるPasswordHasherの実装。
// テストではコスト4（最小値）を指定して高速化する。
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher はBcryptHasherを生成する。範囲外のコストはbcrypt.DefaultCostに置き換える。
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash はパスワードをbcryptでハッシュ化する。
// bcryptは72バイトを超える入力を黙って切り詰めるため、明示的に拒否する。
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify はハッシュとパスワードを定数時間で照合する。
// 不一致はエラーではなくfalseで返す。
func (h *BcryptHasher) Verify(hash, plaintext string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("failed to compare password hash: %w", err)
}

// compile-time interface check
var _ PasswordHasher = (*BcryptHasher)(nil)
