package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/mediashelf/internal/auth"
	"github.com/hitoshi/mediashelf/internal/avatar"
	"github.com/hitoshi/mediashelf/internal/catalog"
	"github.com/hitoshi/mediashelf/internal/collection"
	"github.com/hitoshi/mediashelf/internal/config"
	"github.com/hitoshi/mediashelf/internal/database"
	"github.com/hitoshi/mediashelf/internal/handler"
	"github.com/hitoshi/mediashelf/internal/logger"
	"github.com/hitoshi/mediashelf/internal/medialog"
	"github.com/hitoshi/mediashelf/internal/metrics"
	"github.com/hitoshi/mediashelf/internal/middleware"
	"github.com/hitoshi/mediashelf/internal/repository"
	"github.com/hitoshi/mediashelf/internal/search"
	"github.com/hitoshi/mediashelf/internal/security"
	"github.com/hitoshi/mediashelf/internal/stats"
	"github.com/hitoshi/mediashelf/internal/user"
	"github.com/hitoshi/mediashelf/internal/worker/cleanup"
	"github.com/hitoshi/mediashelf/internal/worker/enrich"
)

// 外部カタログレスポンスの最大サイズ（5MB）
const lookupMaxResponseSize = 5 * 1024 * 1024

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

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
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// rateLimiterConfig は環境変数のreq/min設定をレートリミッタ設定に変換する。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rlCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		rlCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rlCfg.GeneralBurst = cfg.RateLimitGeneral
	}
	if cfg.RateLimitSearch > 0 {
		rlCfg.SearchRate = rate.Limit(float64(cfg.RateLimitSearch) / 60.0)
		rlCfg.SearchBurst = cfg.RateLimitSearch
	}
	return rlCfg
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	identRepo := repository.NewPostgresIdentityRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	logRepo := repository.NewPostgresMediaLogRepo(db)
	collectionRepo := repository.NewPostgresCollectionRepo(db)
	collectionItemRepo := repository.NewPostgresCollectionItemRepo(db)

	// 3. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	// 4. メトリクスの初期化
	promReg := prometheus.NewRegistry()
	collector := metrics.NewCollector(promReg)

	// 5. ドメインサービスの初期化
	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	authService := auth.NewService(
		oauthProvider, userRepo, identRepo, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)

	catalogClient := ssrfGuard.NewSafeClient(cfg.LookupTimeout, lookupMaxResponseSize)
	sources := catalog.NewRegistry(cfg, catalogClient)
	aggregator := search.NewAggregator(sources, cfg.LookupTimeout, collector, slog.Default())

	logService := medialog.NewService(logRepo, userRepo, sanitizer)
	collectionService := collection.NewService(collectionRepo, collectionItemRepo, logRepo, sanitizer)
	statsService := stats.NewService(logRepo, userRepo)
	userService := user.NewService(userRepo, sessionRepo, logRepo, collectionRepo, sanitizer)

	avatarStorage, err := avatar.NewFilesystemStorage(cfg.AvatarDir)
	if err != nil {
		return fmt.Errorf("failed to init avatar storage: %w", err)
	}
	avatarService := avatar.NewService(avatarStorage, cfg.AvatarMaxSize)

	// 6. ルーターの構築
	deps := &handler.RouterDeps{
		HealthChecker:     db,
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter: middleware.NewRateLimiter(rateLimiterConfig(cfg)),

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		SearchService:  aggregator,
		SearchRecorder: collector,
		PodcastProber:  catalog.NewPodcastFeedProbe(ssrfGuard),

		MediaLogService:    logService,
		LogCreatedRecorder: collector,

		CollectionService: collectionService,
		StatsService:      statsService,

		UserService:   userService,
		AvatarService: avatarService,
		AvatarDir:     cfg.AvatarDir,
		MaxAvatarSize: cfg.AvatarMaxSize,

		MetricsHandler: metrics.Handler(promReg),
		StatusRecorder: collector,
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、カバー補完ジョブとセッションクリーンアップジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	logRepo := repository.NewPostgresMediaLogRepo(db)

	// 3. 外部カタログクライアントの初期化（SSRF防止付き）
	ssrfGuard := security.NewSSRFGuard()
	catalogClient := ssrfGuard.NewSafeClient(cfg.LookupTimeout, lookupMaxResponseSize)
	sources := catalog.NewRegistry(cfg, catalogClient)

	// 4. メトリクスの初期化（ワーカー専用レジストリ）
	promReg := prometheus.NewRegistry()
	collector := metrics.NewCollector(promReg)

	// 5. カバー補完ジョブの初期化
	enrichJob := enrich.NewJob(logRepo, sources, collector, slog.Default(), enrich.Config{
		Interval:         cfg.EnrichInterval,
		APIInterval:      cfg.EnrichAPIInterval,
		MaxCallsPerCycle: cfg.EnrichMaxCallsPerCycle,
		MaxConcurrent:    cfg.EnrichMaxConcurrent,
	})

	// 6. セッションクリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("enrich_interval", cfg.EnrichInterval),
		slog.Duration("session_cleanup_interval", cfg.SessionCleanupInterval),
		slog.Int("max_concurrent", cfg.EnrichMaxConcurrent),
	)

	// メトリクスエンドポイントをバックグラウンドで公開（Prometheusスクレイプ用）
	metricsServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: metrics.SetupMetricsRoute(promReg),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	// セッションクリーンアップジョブをバックグラウンドで定期実行
	go func() {
		// 起動直後に1回実行
		if err := cleanupJob.Run(ctx); err != nil {
			slog.Error("session cleanup job failed", slog.String("error", err.Error()))
		}

		ticker := time.NewTicker(cfg.SessionCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := cleanupJob.Run(ctx); err != nil {
					slog.Error("session cleanup job failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	// カバー補完ジョブをメインgoroutineで実行（ブロッキング）
	enrichJob.Start(ctx)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
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
