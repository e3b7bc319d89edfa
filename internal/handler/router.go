package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskdeck/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// sql.DBのPingContextの部分集合として定義する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionDecoder    middleware.SessionDecoder
	SessionValidator  middleware.SessionValidator
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger
	HTTPMetrics       middleware.HTTPRecorder

	// ヘルスチェック
	HealthChecker HealthChecker

	// 認証
	AuthService  AuthServiceInterface
	SessionCodec SessionCodecInterface
	AuthConfig   AuthHandlerConfig

	// タスク
	TaskService TaskServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// 全ルート共通のミドルウェアスタック:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics
//
// 保護ルート（/tasks配下）にはさらに Session → CSRF → RateLimit を適用する。
// 認証ルート（/auth/*）はセッションミドルウェアの外に配置し、
// ログイン開始ルートにのみゲスト専用ゲートを適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.HTTPMetrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.SessionCodec, deps.AuthConfig)
	taskHandler := NewTaskHandler(deps.TaskService)

	// --- 認証不要のルート ---

	r.Get("/health", newHealthHandler(deps.HealthChecker))
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	r.Route("/auth", func(r chi.Router) {
		// OAuthフロー。認証済みのリクエストはハンドシェイクに再突入させない。
		r.With(middleware.NewGuestOnlyMiddleware(deps.SessionDecoder, deps.SessionValidator, deps.AuthConfig.BaseURL)).
			Get("/login", authHandler.Login)
		r.Get("/login/callback", authHandler.Callback)

		// セッション管理
		r.Get("/logout", authHandler.Logout)
		r.Get("/status", authHandler.Status)
		r.Get("/profile", authHandler.Profile)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionDecoder, deps.SessionValidator))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.List)

			// POST /tasks - タスク作成（作成専用レート制限を追加）
			r.With(deps.RateLimiter.TaskCreationMiddleware()).Post("/", taskHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", taskHandler.Get)
				r.Put("/", taskHandler.Update)
				r.Delete("/", taskHandler.Delete)
			})
		})
	})

	return r
}

// newHealthHandler はDB接続を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
