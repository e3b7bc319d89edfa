// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/taskdeck/internal/middleware"
	"github.com/hitoshi/taskdeck/internal/model"
)

// oauthStateCookie はOAuthのstate値を保持するCookieの名前（CSRF対策）。
const oauthStateCookie = "taskdeck_oauth_state"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GetLoginURL(state string) string
	HandleCallback(ctx context.Context, code string) (*model.Session, error)
	ValidateSession(ctx context.Context, sessionID string) (*model.Account, error)
	RevokeSession(ctx context.Context, sessionID string) error
}

// SessionCodecInterface はセッションハンドルとCookie値の相互変換インターフェース。
type SessionCodecInterface interface {
	Encode(sessionID string) (string, error)
	Decode(value string) (string, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL        string // 認証後のランディングURL
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite // 本番はStrict、開発はLax
	SessionMaxAge  int           // セッションCookieの有効期間（秒）
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	codec   SessionCodecInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, codec SessionCodecInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		codec:   codec,
		config:  config,
	}
}

// statusUser は/auth/statusおよび/auth/profileのユーザー表現。
type statusUser struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Picture     string `json:"picture,omitempty"`
}

// profileResponse は/auth/profileのアカウント全体の表現。
type profileResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	GivenName   string `json:"givenName,omitempty"`
	FamilyName  string `json:"familyName,omitempty"`
	Picture     string `json:"picture,omitempty"`
	CreatedAt   string `json:"createdAt"`
	LastLoginAt string `json:"lastLoginAt"`
}

// Login はOAuthフローを開始する。
// GET /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	// stateをCookieに保存（CSRF対策）。コールバックで照合するためLax固定。
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	url := h.service.GetLoginURL(state)
	http.Redirect(w, r, url, http.StatusFound)
}

// Callback はOAuthコールバックを処理する。
// GET /auth/login/callback?code=xxx&state=yyy
// 成功時はセッションCookieを設定してランディングURLへリダイレクトし、
// 失敗時はログイン失敗ページへリダイレクトする。
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch",
			slog.String("query_state", state),
		)
		h.redirectLoginFailed(w, r)
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		slog.Warn("oauth callback without authorization code")
		h.redirectLoginFailed(w, r)
		return
	}

	// 3. 認証処理（コード交換 → アカウント照合 → セッション発行）
	session, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		h.redirectLoginFailed(w, r)
		return
	}

	// 4. セッションハンドルを署名付きCookie値にエンコード
	encoded, err := h.codec.Encode(session.ID)
	if err != nil {
		slog.Error("failed to encode session cookie", slog.String("error", err.Error()))
		h.redirectLoginFailed(w, r)
		return
	}

	// 5. セッションCookieを設定（HTTP Only）
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    encoded,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: h.config.CookieSameSite,
	})

	// 6. ランディングURLへリダイレクト
	http.Redirect(w, r, h.config.BaseURL, http.StatusFound)
}

// Logout はセッションを破棄する。
// GET /auth/logout
// セッションが無効・欠落していてもエラーにせず、常に成功応答を返す（冪等）。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionID := h.sessionIDFromCookie(r); sessionID != "" {
		if err := h.service.RevokeSession(r.Context(), sessionID); err != nil {
			slog.Error("failed to revoke session", slog.String("error", err.Error()))
			// 破棄に失敗してもCookieはクリアする
		}
	}

	// セッションCookieをクリア
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: h.config.CookieSameSite,
	})

	writeMessageResponse(w, "ログアウトしました。")
}

// Status は認証状態を返す。認証の有無にかかわらず失敗しない。
// GET /auth/status
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	account := h.currentAccount(r)

	w.Header().Set("Content-Type", "application/json")
	if account == nil {
		json.NewEncoder(w).Encode(map[string]any{
			"authenticated": false,
		})
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"authenticated": true,
		"user": statusUser{
			ID:          account.ID,
			Email:       account.Email,
			DisplayName: account.Name,
			Picture:     account.Picture,
		},
	})
}

// Profile は現在のアカウントの完全なプロファイルを返す。
// GET /auth/profile
// 未認証の場合は401とログイン導線を返す。
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	account := h.currentAccount(r)
	if account == nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	writeSuccessResponse(w, http.StatusOK, profileResponse{
		ID:          account.ID,
		Email:       account.Email,
		DisplayName: account.Name,
		GivenName:   account.GivenName,
		FamilyName:  account.FamilyName,
		Picture:     account.Picture,
		CreatedAt:   account.CreatedAt.Format(time.RFC3339),
		LastLoginAt: account.LastLoginAt.Format(time.RFC3339),
	})
}

// currentAccount はリクエストのCookieからアカウントを解決する。
// 解決できない場合はnilを返す。
func (h *AuthHandler) currentAccount(r *http.Request) *model.Account {
	sessionID := h.sessionIDFromCookie(r)
	if sessionID == "" {
		return nil
	}

	account, err := h.service.ValidateSession(r.Context(), sessionID)
	if err != nil {
		slog.Error("failed to validate session", slog.String("error", err.Error()))
		return nil
	}
	return account
}

// sessionIDFromCookie はセッションCookieを復号してセッションIDを取り出す。
// Cookie欠落や復号失敗の場合は空文字列を返す。
func (h *AuthHandler) sessionIDFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}

	sessionID, err := h.codec.Decode(cookie.Value)
	if err != nil {
		return ""
	}
	return sessionID
}

// redirectLoginFailed はログイン失敗ページへリダイレクトする。
func (h *AuthHandler) redirectLoginFailed(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.config.BaseURL+"/login-failed", http.StatusFound)
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
