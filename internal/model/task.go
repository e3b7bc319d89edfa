package model

import "time"

// TaskStatus はタスクの進行状態を表す。
type TaskStatus string

const (
	// TaskStatusPending は未着手状態を示す。新規作成時のデフォルト。
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress は作業中状態を示す。
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusCompleted は完了状態を示す。
	TaskStatusCompleted TaskStatus = "completed"
)

// IsValid はステータス値が定義済みのものかどうかを判定する。
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	default:
		return false
	}
}

// タスクフィールドの上限長。
const (
	TaskTitleMaxLen       = 200
	TaskDescriptionMaxLen = 2000
)

// Task はユーザーのタスクを表す。
// AccountIDは作成時にリクエストのセッションから設定され、以後変更されない。
type Task struct {
	ID          string
	AccountID   string
	Title       string
	Description string
	Status      TaskStatus
	DueDate     time.Time // 日付のみ有効（時刻は00:00:00 UTC）
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
