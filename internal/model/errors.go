// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code       string            // エラーコード
	Message    string            // エラーメッセージ
	Category   string            // カテゴリ: auth, validation, task, system
	Action     string            // ユーザー向け対処方法
	RedirectTo string            // 認証エラー時のログイン導線（任意）
	Fields     map[string]string // バリデーションエラーのフィールド別詳細（任意）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeProviderError  = "PROVIDER_ERROR"
	ErrCodeEmailConflict  = "EMAIL_CONFLICT"
	ErrCodeTaskNotFound   = "TASK_NOT_FOUND"
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeInvalidTaskID  = "INVALID_TASK_ID"
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeAccountGone    = "ACCOUNT_NOT_FOUND"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// LoginPath はログイン導線のパス。認証エラーのRedirectToに設定する。
const LoginPath = "/auth/login"

// NewUnauthorizedError は未認証エラーを生成する。
// セッションの欠落・期限切れ・無効をすべてこのエラーで表す。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:       ErrCodeUnauthorized,
		Message:    "認証が必要です。",
		Category:   "auth",
		Action:     "ログインしてください。",
		RedirectTo: LoginPath,
	}
}

// NewProviderError はOAuth交換失敗のエラーを生成する。
// 自動リトライはせず、ログイン失敗としてユーザーに提示する。
func NewProviderError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeProviderError,
		Message:  fmt.Sprintf("外部プロバイダーでの認証に失敗しました: %s", reason),
		Category: "auth",
		Action:   "再度ログインをお試しください。",
	}
}

// NewEmailConflictError はメールアドレスの一意制約違反エラーを生成する。
// 別のサブジェクトIDが同じメールアドレスを保持している場合に発生する。
// 設定またはデータの異常であり、リトライ対象ではない。
func NewEmailConflictError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeEmailConflict,
		Message:  fmt.Sprintf("このメールアドレスは既に別のアカウントに紐付いています: %s", email),
		Category: "auth",
		Action:   "管理者にお問い合わせください。",
	}
}

// NewTaskNotFoundError はタスク未検出エラーを生成する。
// 存在しない場合と他アカウント所有の場合を区別しない（存在漏洩の防止）。
func NewTaskNotFoundError(taskID string) *APIError {
	return &APIError{
		Code:     ErrCodeTaskNotFound,
		Message:  fmt.Sprintf("指定されたタスクが見つかりません: %s", taskID),
		Category: "task",
		Action:   "タスクIDを確認してください。",
	}
}

// NewTaskValidationError はタスクフィールドのバリデーションエラーを生成する。
// フィールド名と理由のマップを保持する。
func NewTaskValidationError(fields map[string]string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  "タスクの入力内容に誤りがあります。",
		Category: "validation",
		Action:   "各フィールドの内容を確認してください。",
		Fields:   fields,
	}
}

// NewInvalidTaskIDError はタスクIDの形式不正エラーを生成する。
func NewInvalidTaskIDError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTaskID,
		Message:  fmt.Sprintf("タスクIDの形式が不正です: %s", id),
		Category: "validation",
		Action:   "UUID形式のタスクIDを指定してください。",
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewAccountNotFoundError はアカウントが見つからない場合のエラーを生成する。
// セッションが指すアカウントが存在しない場合は未認証として扱う。
func NewAccountNotFoundError() *APIError {
	return &APIError{
		Code:       ErrCodeAccountGone,
		Message:    "アカウントが見つかりません。",
		Category:   "auth",
		Action:     "ログインし直してください。",
		RedirectTo: LoginPath,
	}
}

// NewInternalError は内部エラーを生成する。
// 詳細はサーバー側ログのみに記録し、ユーザーには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
