package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/ratemydpe/internal/auth"
	"github.com/hitoshi/ratemydpe/internal/config"
	"github.com/hitoshi/ratemydpe/internal/database"
	"github.com/hitoshi/ratemydpe/internal/dpe"
	"github.com/hitoshi/ratemydpe/internal/handler"
	"github.com/hitoshi/ratemydpe/internal/logger"
	"github.com/hitoshi/ratemydpe/internal/metrics"
	"github.com/hitoshi/ratemydpe/internal/middleware"
	"github.com/hitoshi/ratemydpe/internal/repository"
	"github.com/hitoshi/ratemydpe/internal/review"
	"github.com/hitoshi/ratemydpe/internal/security"
	"github.com/hitoshi/ratemydpe/internal/user"
	"github.com/hitoshi/ratemydpe/internal/web"
	"github.com/hitoshi/ratemydpe/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. LOG_LEVELを反映してロガーを再設定する
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.Bool("oauth_enabled", cfg.OAuthEnabled()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg, args)
	default:
		return runServe(ctx, cfg)
	}
}

// openDB はプール設定を適用してDB接続を開き、疎通を確認する。
func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	return database.Connect(ctx, cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
}

// newOAuthProvider はGoogleログインのプロバイダーを生成する。
// 設定が揃っていない場合はnilを返し、OAuthログインは無効になる。
// 通信先のエンドポイントは起動時に検証し、外部通信は内部ネットワークを拒否するクライアントで行う。
func newOAuthProvider(cfg *config.Config, guard security.OutboundGuardService) (*auth.GoogleOAuthProvider, error) {
	if !cfg.OAuthEnabled() {
		return nil, nil
	}

	provider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		HTTPClient:   guard.NewClient(cfg.OAuthHTTPTimeout),
	})
	for _, endpoint := range provider.Endpoints() {
		if err := guard.ValidateEndpoint(endpoint); err != nil {
			return nil, fmt.Errorf("invalid OAuth endpoint: %w", err)
		}
	}

	return provider, nil
}

// buildRouter は全依存関係をワイヤリングしてHTTPハンドラーを構築する。
// DBへの接続はリクエスト処理時まで行わない。
func buildRouter(cfg *config.Config, db *sql.DB, log *slog.Logger, reg *prometheus.Registry) (http.Handler, error) {
	// 1. メトリクス
	collector := metrics.NewCollector(reg)

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	identRepo := repository.NewPostgresIdentityRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	dpeRepo := repository.NewPostgresDPERepo(db)
	reviewRepo := repository.NewPostgresReviewRepo(db)
	savedRepo := repository.NewPostgresSavedDPERepo(db)

	// 3. セキュリティ
	guard := security.NewOutboundGuard()
	sanitizer := security.NewContentSanitizer()
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)

	oauthProvider, err := newOAuthProvider(cfg, guard)
	if err != nil {
		return nil, err
	}

	// 4. ドメインサービスの初期化
	// プロバイダー未設定時はインターフェースにnilを入れないよう分岐する
	var oauth auth.OAuthProvider
	if oauthProvider != nil {
		oauth = oauthProvider
	}
	authService := auth.NewService(
		oauth, hasher, userRepo, identRepo, sessionRepo, collector,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)
	dpeService := dpe.NewService(dpeRepo, reviewRepo, savedRepo, userRepo, collector)
	reviewService := review.NewService(reviewRepo, dpeRepo, userRepo, sanitizer, collector)
	userService := user.NewService(userRepo, sessionRepo, dpeRepo, hasher)

	// 5. ページ
	pages, err := web.NewHandler(dpeService, reviewService, userRepo, web.Config{
		BaseURL:      cfg.BaseURL,
		OAuthEnabled: oauth != nil,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to build pages: %w", err)
	}

	// 6. ルーターの構築
	deps := &handler.RouterDeps{
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter: middleware.NewRateLimiter(
			middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitWrite),
		),
		Logger:  log,
		Metrics: collector,

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(reg),

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		DPEService:    dpeService,
		ReviewService: reviewService,
		UserService:   userService,

		Pages: pages,
	}

	return handler.NewRouter(deps), nil
}

// newRegistry はGo runtimeとプロセスのメトリクスを含むレジストリを生成する。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされる（SIGINT/SIGTERM）とグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	router, err := buildRouter(cfg, db, slog.Default(), newRegistry())
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションのクリーンアップを定期実行し、ctxのキャンセルで停止する。
func runWorker(ctx context.Context, cfg *config.Config) error {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	// ワーカーはHTTPを公開しないため、メトリクスはログのみで確認する
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default(), metrics.Nop{})

	slog.Info("worker starting",
		slog.Duration("session_cleanup_interval", cfg.SessionCleanupInterval),
	)

	cleanupJob.RunEvery(ctx, cfg.SessionCleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// up（デフォルト）は未適用分をすべて適用し、downは直近の1つを戻し、versionは現在の状態をログに出す。
func runMigrate(cfg *config.Config, args []string) error {
	action, ok := ParseMigrateAction(args)
	if !ok {
		return fmt.Errorf("unknown migrate action: %q (want up, down or version)", args[1])
	}

	slog.Info("running database migrations",
		slog.String("action", string(action)),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	switch action {
	case MigrateDown:
		if err := database.RollbackMigration(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	case MigrateVersion:
		status, err := database.MigrationVersion(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		slog.Info("current migration version",
			slog.Uint64("version", uint64(status.Version)),
			slog.Bool("dirty", status.Dirty),
			slog.Bool("applied", status.Applied),
		)
		return nil
	default:
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
