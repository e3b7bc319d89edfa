package middleware

import "net/http"

// NewGuestOnlyMiddleware はログイン専用ルートのゲスト専用ゲートを返す。
// 認証済みのリクエストはOAuthハンドシェイクに再突入させず、
// 認証後のランディングURLへリダイレクトする。
// 未認証のリクエストはそのまま次のハンドラーへ進む。
func NewGuestOnlyMiddleware(decoder SessionDecoder, validator SessionValidator, landingURL string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if account := resolveAccount(r, decoder, validator); account != nil {
				http.Redirect(w, r, landingURL, http.StatusTemporaryRedirect)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
