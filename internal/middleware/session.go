// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/taskdeck/internal/model"
)

// SessionCookieName はセッションハンドルを保持するCookieの名前。
const SessionCookieName = "taskdeck_session"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// accountContextKey はリクエストコンテキストに認証済みアカウントを格納するためのキー。
var accountContextKey = contextKey("account")

// SessionDecoder はCookie値からセッションハンドルを復元するインターフェース。
// auth.SessionCodecの部分集合として定義する。
type SessionDecoder interface {
	Decode(value string) (string, error)
}

// SessionValidator はセッションハンドルの検証に必要なインターフェース。
// auth.Serviceの部分集合として定義する。
// アカウントがnilの場合は無効なセッションを意味する。
type SessionValidator interface {
	ValidateSession(ctx context.Context, sessionID string) (*model.Account, error)
}

// NewSessionMiddleware はHTTP Only Cookieからセッションハンドルを読み取り、
// 復号・検証するミドルウェアを返す。
// 認証済みアカウントをリクエストコンテキストに注入する。
// 未認証リクエストには401とログイン導線を含むJSONを返し、
// 保護されたハンドラーは呼び出さない。
// セッションの有効性はリクエストごとに毎回検証する（キャッシュしない）。
func NewSessionMiddleware(decoder SessionDecoder, validator SessionValidator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account := resolveAccount(r, decoder, validator)
			if account == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			ctx := context.WithValue(r.Context(), accountContextKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// resolveAccount はリクエストのCookieからアカウントを解決する。
// Cookie欠落・復号失敗・検証失敗はすべてnilを返す。
// セッションミドルウェアとゲスト専用ミドルウェアの両方から使用する。
func resolveAccount(r *http.Request, decoder SessionDecoder, validator SessionValidator) *model.Account {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	sessionID, err := decoder.Decode(cookie.Value)
	if err != nil {
		// 署名不一致や破損したCookieは未認証として扱う
		slog.Warn("failed to decode session cookie",
			slog.String("error", err.Error()),
		)
		return nil
	}

	account, err := validator.ValidateSession(r.Context(), sessionID)
	if err != nil {
		slog.Error("failed to validate session",
			slog.String("error", err.Error()),
		)
		return nil
	}

	return account
}

// AccountFromContext はリクエストコンテキストから認証済みアカウントを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func AccountFromContext(ctx context.Context) (*model.Account, error) {
	account, ok := ctx.Value(accountContextKey).(*model.Account)
	if !ok || account == nil {
		return nil, fmt.Errorf("account not found in context")
	}
	return account, nil
}

// AccountIDFromContext はリクエストコンテキストから認証済みアカウントIDを取得する。
func AccountIDFromContext(ctx context.Context) (string, error) {
	account, err := AccountFromContext(ctx)
	if err != nil {
		return "", err
	}
	return account.ID, nil
}

// ContextWithAccount はコンテキストにアカウントを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithAccount(ctx context.Context, account *model.Account) context.Context {
	return context.WithValue(ctx, accountContextKey, account)
}
