package repository

import (
	"errors"

	"github.com/lib/pq"
)

// pqUniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const pqUniqueViolation = "23505"

// isUniqueViolation はerrが指定制約の一意制約違反かどうかを返す。
// constraintが空の場合は制約名を問わない。
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != pqUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// nullString は空文字列をNULLとして扱う。
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// emptyIfNil はnilスライスを空スライスに変換する。TEXT[] NOT NULL列に渡すために使う。
func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
