// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/taskdeck/internal/model"
)

// ErrDuplicateEmail はaccountsのemail一意制約違反を表す。
// 別のサブジェクトIDが同じメールアドレスを既に保持している場合に返す。
var ErrDuplicateEmail = errors.New("email already bound to another account")

// AccountRepository はアカウントデータの永続化インターフェース。
type AccountRepository interface {
	// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Account, error)

	// FindBySubject は外部IdPのサブジェクトIDでアカウントを検索する。
	// 見つからない場合はnilを返す。
	FindBySubject(ctx context.Context, subject string) (*model.Account, error)

	// Create はアカウントを作成する。
	// email一意制約違反の場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, account *model.Account) error

	// UpdateLastLogin は最終ログイン日時を更新する。
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。存在しないIDでもエラーにしない（冪等）。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れセッションを一括削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// TaskRepository はタスクデータの永続化インターフェース。
type TaskRepository interface {
	// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
	// 所有者の判定は呼び出し側（taskサービス）が行う。
	FindByID(ctx context.Context, id string) (*model.Task, error)

	// ListByAccountID は指定アカウントが所有するタスク一覧を返す。
	// due_date昇順、同一日付内はcreated_at昇順。
	ListByAccountID(ctx context.Context, accountID string) ([]*model.Task, error)

	// Create はタスクを作成する。
	Create(ctx context.Context, task *model.Task) error

	// Update はタスクを上書き更新する。idとaccount_idは変更されない。
	Update(ctx context.Context, task *model.Task) error

	// DeleteByID は指定IDのタスクを削除する。
	DeleteByID(ctx context.Context, id string) error
}
