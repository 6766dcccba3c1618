package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/mergington/internal/middleware"
	"github.com/hitoshi/mergington/internal/web"
)

// IndexPath はルートからのリダイレクト先。
const IndexPath = "/static/index.html"

// HealthChecker は依存先の疎通確認を行うインターフェース。*sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	Metrics           middleware.HTTPMetricsRecorder

	// 監査ログ用DB。nilの場合はヘルスチェックでDBを確認しない
	HealthChecker HealthChecker

	// /metrics を公開するハンドラー。nilの場合はルートを登録しない
	MetricsHandler http.Handler

	// 課外活動
	ActivityService ActivityServiceInterface
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → RequestID → Recovery → Logging → Metrics → SecurityHeaders → CORS
//
// /activities 以下にはさらにRateLimit(General)を適用し、signupには登録専用の制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(chimw.RealIP)
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	activityHandler := NewActivityHandler(deps.ActivityService)

	// --- 運用系ルート ---
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, IndexPath, http.StatusTemporaryRedirect)
	})
	r.Handle("/static/*", web.StaticHandler("/static/"))
	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- 課外活動API ---
	r.Route("/activities", func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		r.Get("/", activityHandler.ListActivities)

		r.Route("/{activity_name}", func(r chi.Router) {
			if deps.RateLimiter != nil {
				r.With(deps.RateLimiter.SignupMiddleware()).Post("/signup", activityHandler.Signup)
			} else {
				r.Post("/signup", activityHandler.Signup)
			}
			r.Post("/unregister", activityHandler.Unregister)
		})
	})

	return r
}

// healthResponse はヘルスチェックのAPIレスポンス。
type healthResponse struct {
	Status string `json:"status"`
}

// healthHandler はヘルスチェックハンドラーを返す。
// checkerが指定されている場合はDBへの疎通も確認し、失敗時は503を返す。
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}
