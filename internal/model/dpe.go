package model

import (
	"strings"
	"time"
)

// DPE は審査官（Designated Pilot Examiner）のプロフィールを表す。
// SavedByUserIDsはusers.saved_dpe_idsと対になる非正規化配列。
type DPE struct {
	ID             string
	FirstName      string
	LastName       string
	City           string
	State          string
	Region         string
	CheckrideTypes []string
	Tags           []string
	SavedByUserIDs []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FullName は表示用の氏名を返す。
func (d *DPE) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

// DPEFilter はDPE検索条件。
// Nameは姓または名への部分一致（大文字小文字を区別しない）、Stateは完全一致。
type DPEFilter struct {
	Name  string
	State string
}
