// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザー（受験者パイロット）を表す。
// PasswordHashはOAuthのみで登録したユーザーでは空文字列となる。
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	SavedDPEIDs  []string
	Profile      Profile
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword はパスワードログインが可能なユーザーかどうかを返す。
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// HasSaved は指定DPEを保存済みかどうかを返す。
func (u *User) HasSaved(dpeID string) bool {
	for _, id := range u.SavedDPEIDs {
		if id == dpeID {
			return true
		}
	}
	return false
}

// Profile はユーザーが任意で登録するプロフィール情報。
type Profile struct {
	FirstName   string
	LastName    string
	City        string
	State       string
	Certificate string
	HomeAirport string
}

// Identity は外部IdPとの紐付け情報を表す。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
