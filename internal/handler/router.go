package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/ratemydpe/internal/metrics"
	"github.com/hitoshi/ratemydpe/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なインターフェース。*sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// PageRoutes はサーバーレンダリングページのルートを登録するインターフェース。
type PageRoutes interface {
	Register(r chi.Router)
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// DPE・レビュー・ユーザー
	DPEService    DPEServiceInterface
	ReviewService ReviewServiceInterface
	UserService   UserServiceInterface

	// ページ（nilの場合はJSON APIのみ）
	Pages PageRoutes
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Recovery → OptionalSession → Logging → Metrics →
//	SecurityHeaders → CORS → CSRF
//
// /api配下にはさらにRateLimit(General)、書き込み系にはRateLimit(Write)を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.Nop{}
	}

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewOptionalSessionMiddleware(deps.SessionFinder))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(collector))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.CSRFConfig.CookieSecure))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	dpeHandler := NewDPEHandler(deps.DPEService)
	reviewHandler := NewReviewHandler(deps.ReviewService)
	userHandler := NewUserHandler(deps.UserService, UserHandlerConfig{
		CookieDomain: deps.AuthConfig.CookieDomain,
		CookieSecure: deps.AuthConfig.CookieSecure,
	})

	// --- 運用エンドポイント ---
	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- OAuthフローとセッション管理 ---
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.GoogleLogin)
		r.Get("/google/callback", authHandler.GoogleCallback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- JSON API ---
	r.Route("/api", func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())
		write := deps.RateLimiter.WriteMiddleware()

		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

		r.With(write).Post("/auth/signup", authHandler.Signup)
		r.With(write).Post("/auth/login", authHandler.Login)

		r.Get("/dpes", dpeHandler.Search)
		r.Get("/dpes/{id}", dpeHandler.Get)

		// 認証が必要なルート
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuthenticated)

			r.With(write).Post("/dpes", dpeHandler.Create)
			r.With(write).Post("/dpes/save", dpeHandler.ToggleSave)

			r.With(write).Post("/reviews", reviewHandler.Create)
			r.With(write).Put("/reviews/{id}", reviewHandler.Update)
			r.With(write).Delete("/reviews/{id}", reviewHandler.Delete)

			r.Route("/users/me", func(r chi.Router) {
				r.Get("/reviews", reviewHandler.ListMine)
				r.Get("/saved-dpes", dpeHandler.ListSaved)
				r.Get("/profile", userHandler.GetProfile)
				r.With(write).Put("/profile", userHandler.UpdateProfile)
				r.Get("/settings", userHandler.GetSettings)
				r.With(write).Put("/settings", userHandler.UpdateSettings)
				r.With(write).Delete("/", userHandler.Withdraw)
			})
		})
	})

	// --- ページ ---
	if deps.Pages != nil {
		deps.Pages.Register(r)
	}

	return r
}

// healthHandler はデータベース疎通を確認するハンドラーを返す。
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
