// Package model はドメインモデルを定義する。
package model

import "time"

// Account は外部IdPのサブジェクトIDに紐付くローカルアカウントを表す。
// Subjectは作成後に変更されない。Emailはアカウント間で一意。
type Account struct {
	ID          string
	Subject     string // 外部IdPのサブジェクトID（Googleのsub）
	Email       string
	Name        string
	GivenName   string
	FamilyName  string
	Picture     string
	CreatedAt   time.Time
	LastLoginAt time.Time
}

// Session はアカウントのログインセッションを表す。
// IDは推測不可能な不透明ハンドル。有効期限は発行時に固定され、
// 検証時に延長されることはない（スライディング有効期限は採用しない）。
type Session struct {
	ID        string
	AccountID string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired はセッションが有効期限切れかどうかを判定する。
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
