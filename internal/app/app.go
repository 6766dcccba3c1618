// Package app はサブコマンドごとの起動処理と依存関係のワイヤリングを行う。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/mergington/internal/activity"
	"github.com/hitoshi/mergington/internal/config"
	"github.com/hitoshi/mergington/internal/database"
	"github.com/hitoshi/mergington/internal/handler"
	"github.com/hitoshi/mergington/internal/logger"
	"github.com/hitoshi/mergington/internal/metrics"
	"github.com/hitoshi/mergington/internal/middleware"
	"github.com/hitoshi/mergington/internal/repository"
	"github.com/hitoshi/mergington/internal/worker/cleanup"
)

// errDatabaseURLRequired はDATABASE_URLが必須のサブコマンドで未設定だった場合のエラー。
var errDatabaseURLRequired = errors.New("DATABASE_URL is required for this command")

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

	// 3. 設定されたログレベルを反映する
	logger.SetLevel(cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, err := ParseCommand(args)
	if err != nil {
		return err
	}

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
		slog.Bool("audit_log", cfg.AuditLogEnabled()),
	)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// server はHTTPサーバーと終了時に解放するリソースをまとめたもの。
type server struct {
	httpServer  *http.Server
	rateLimiter *middleware.RateLimiter
	db          *sql.DB
}

// close はサーバーが保持するリソースを解放する。
func (s *server) close() {
	s.rateLimiter.Stop()
	if s.db != nil {
		s.db.Close()
	}
}

// newServer は全依存関係をワイヤリングしたHTTPサーバーを構築する。
// dbがnilの場合は監査ログを無効にする。
func newServer(cfg *config.Config, db *sql.DB, reg *prometheus.Registry) (*server, error) {
	// 1. 活動レジストリの初期化
	registry, err := activity.NewRegistry(
		activity.DefaultActivities(),
		activity.WithRejectDuplicates(cfg.RejectDuplicateSignups),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize activity registry: %w", err)
	}
	slog.Info("activity registry initialized",
		slog.Int("activities", registry.Len()),
		slog.Bool("reject_duplicate_signups", cfg.RejectDuplicateSignups),
	)

	// 2. メトリクスの初期化
	collector := metrics.NewCollector(reg)

	// 3. 監査ログの初期化（DB接続がある場合のみ）
	var (
		recorder activity.EventRecorder
		checker  handler.HealthChecker
	)
	if db != nil {
		recorder = repository.NewPostgresRegistrationEventRepo(db)
		checker = db
	}

	// 4. ドメインサービスの初期化
	activityService := activity.NewService(registry, recorder, collector, slog.Default())

	// 5. ルーターの構築（config はreq/min単位、RateLimiterConfig はreq/sec単位に変換される）
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitSignup),
	)

	router := handler.NewRouter(&handler.RouterDeps{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),
		Metrics:           collector,
		HealthChecker:     checker,
		MetricsHandler:    metrics.SetupMetricsRoute(reg),
		ActivityService:   activityService,
	})

	return &server{
		httpServer: &http.Server{
			Addr:         ":" + cfg.ServerPort,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		rateLimiter: rateLimiter,
		db:          db,
	}, nil
}

// newMetricsRegistry はプロセス・ランタイムのメトリクスを含むレジストリを生成する。
func newMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// runServe はAPIサーバーモードで起動する。
// DATABASE_URLが設定されていればDBに接続して監査ログを有効にし、HTTPサーバーを起動する。
// ctxがキャンセルされる（SIGINTまたはSIGTERMを受信する）とグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	var db *sql.DB
	if cfg.AuditLogEnabled() {
		var err error
		db, err = database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		slog.Info("database connection established")
	} else {
		slog.Info("DATABASE_URL is not set; registration audit log disabled")
	}

	srv, err := newServer(cfg, db, newMetricsRegistry())
	if err != nil {
		if db != nil {
			db.Close()
		}
		return err
	}
	defer srv.close()

	return serve(ctx, srv.httpServer, cfg.ShutdownTimeout)
}

// serve はHTTPサーバーを起動し、ctxがキャンセルされるまで待ってからシャットダウンする。
// 起動に失敗した場合はそのエラーを返す。
func serve(ctx context.Context, httpServer *http.Server, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、監査ログのクリーンアップジョブをctxがキャンセルされるまで定期実行する。
func runWorker(ctx context.Context, cfg *config.Config) error {
	if !cfg.AuditLogEnabled() {
		return errDatabaseURLRequired
	}

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	cleanupJob := cleanup.NewCleanupJob(db, slog.Default(), cfg.EventRetentionDays)

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
		slog.Int("retention_days", cleanupJob.RetentionDays),
	)

	// クリーンアップジョブをメインgoroutineで実行（ブロッキング）
	cleanupJob.Start(ctx, cfg.CleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if !cfg.AuditLogEnabled() {
		return errDatabaseURLRequired
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	return checkHealth(fmt.Sprintf("http://localhost:%s/health", port))
}

func checkHealth(healthURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(healthURL)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードとクエリをマスクする。
// URLとして解釈できない場合は全体をマスクする。
func maskDatabaseURL(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil || u.Host == "" {
		return "***"
	}
	u.RawQuery = ""
	return u.Redacted()
}
