package repository

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
)

// nullStringValue はsql.NullStringを文字列に変換する。NULLは空文字になる。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// nullString は空文字をNULLとして扱うsql.NullStringを生成する。
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// hashSessionToken はセッショントークンの保存用ダイジェストを返す。
// セッションIDはそのままベアラートークンとしてCookieに載るため、保存先にはダイジェストのみを置く。
func hashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
