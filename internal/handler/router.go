package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/mediashelf/internal/middleware"
)

// HealthChecker はDB疎通確認のインターフェース。*sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// SetupAuthRoutes は認証関連のルーティングを設定したchi.Routerを返す。
func SetupAuthRoutes(service AuthServiceInterface, config AuthHandlerConfig) http.Handler {
	r := chi.NewRouter()
	h := NewAuthHandler(service, config)

	r.Route("/auth", func(r chi.Router) {
		// OAuthフロー
		r.Get("/google/login", h.Login)
		r.Get("/google/callback", h.Callback)

		// セッション管理
		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)
	})

	return r
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 横断検索
	SearchService  SearchServiceInterface
	SearchRecorder SearchRecorder
	PodcastProber  PodcastFeedProberInterface

	// メディアログ
	MediaLogService    MediaLogServiceInterface
	LogCreatedRecorder LogCreatedRecorder

	// コレクション
	CollectionService CollectionServiceInterface

	// 統計
	StatsService StatsServiceInterface

	// ユーザー・アバター
	UserService   UserServiceInterface
	AvatarService AvatarServiceInterface
	AvatarDir     string
	MaxAvatarSize int64

	// Prometheusスクレイプ用。nilの場合は/metricsを公開しない。
	MetricsHandler http.Handler
	// レスポンスステータスの集計用。nil可。
	StatusRecorder middleware.HTTPStatusRecorder
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → Session → CSRF → RateLimit(General)
//
// 認証ルート（/auth/*）とヘルスチェック、アバター配信はセッションチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルート共通のミドルウェア
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	searchHandler := NewSearchHandler(deps.SearchService, deps.SearchRecorder)
	logHandler := NewMediaLogHandler(deps.MediaLogService, deps.LogCreatedRecorder)
	collectionHandler := NewCollectionHandler(deps.CollectionService)
	statsHandler := NewStatsHandler(deps.StatsService)
	userHandler := NewUserHandler(
		deps.UserService, deps.AvatarService,
		deps.AuthConfig.CookieDomain, deps.AuthConfig.CookieSecure,
		deps.MaxAvatarSize,
	)

	// --- 認証不要のルート ---

	// ヘルスチェック
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(req.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	// アバター画像の静的配信
	if deps.AvatarDir != "" {
		fileServer := http.FileServer(http.Dir(deps.AvatarDir))
		r.Handle("/avatars/*", http.StripPrefix("/avatars/", fileServer))
	}

	// CSRFトークン取得（認証不要）
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// Prometheusメトリクス
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// カタログ横断検索（外部APIを叩くため検索専用レート制限を追加）
		r.With(deps.RateLimiter.SearchMiddleware()).Get("/api/search", searchHandler.Search)

		// ポッドキャストフィード検証（任意URLへアクセスするため検索専用レート制限を追加）
		if deps.PodcastProber != nil {
			probeHandler := NewPodcastFeedHandler(deps.PodcastProber)
			r.With(deps.RateLimiter.SearchMiddleware()).Get("/api/search/podcast-feed", probeHandler.Probe)
		}

		// メディアログ管理
		r.Route("/api/logs", func(r chi.Router) {
			r.Post("/", logHandler.CreateLog)
			r.Get("/", logHandler.ListLogs)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", logHandler.GetLog)
				r.Patch("/", logHandler.UpdateLog)
				r.Delete("/", logHandler.DeleteLog)
			})
		})

		// コレクション管理
		r.Route("/api/collections", func(r chi.Router) {
			r.Post("/", collectionHandler.CreateCollection)
			r.Get("/", collectionHandler.ListCollections)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", collectionHandler.GetCollection)
				r.Patch("/", collectionHandler.UpdateCollection)
				r.Delete("/", collectionHandler.DeleteCollection)

				r.Post("/items", collectionHandler.AddItem)
				r.Get("/items", collectionHandler.ListItems)
				r.Delete("/items/{logID}", collectionHandler.RemoveItem)
			})
		})

		// 統計
		r.Get("/api/stats", statsHandler.GetStats)

		// ユーザー管理
		r.Route("/api/users", func(r chi.Router) {
			r.Get("/me", userHandler.GetProfile)
			r.Patch("/me", userHandler.UpdateProfile)
			r.Post("/me/avatar", userHandler.UploadAvatar)
			r.Delete("/me", userHandler.Withdraw)
		})
	})

	return r
}
