package app

import (
	"context"
	"database/sql"
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
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/hitoshi/cloudhms/internal/auth"
	"github.com/hitoshi/cloudhms/internal/config"
	"github.com/hitoshi/cloudhms/internal/dashboard"
	"github.com/hitoshi/cloudhms/internal/database"
	"github.com/hitoshi/cloudhms/internal/handler"
	"github.com/hitoshi/cloudhms/internal/logger"
	"github.com/hitoshi/cloudhms/internal/metrics"
	"github.com/hitoshi/cloudhms/internal/middleware"
	"github.com/hitoshi/cloudhms/internal/profile"
	"github.com/hitoshi/cloudhms/internal/record"
	"github.com/hitoshi/cloudhms/internal/repository"
	"github.com/hitoshi/cloudhms/internal/role"
	"github.com/hitoshi/cloudhms/internal/security"
	"github.com/hitoshi/cloudhms/internal/session"
	"github.com/hitoshi/cloudhms/internal/worker/cleanup"
)

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
		slog.String("auth_provider", string(cfg.AuthProvider)),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandCleanup:
		return runCleanup(cfg)
	default:
		return runServe(cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("database connection established")
	return db, nil
}

// buildProvider はAUTH_PROVIDERに応じた認証プロバイダーを構築する。
// ローカルプロバイダーの場合、SESSION_BACKENDに応じたセッション保存先を使用する。
// 戻り値のcloseはRedisクライアントなどの後始末を行う。
func buildProvider(cfg *config.Config, db *sql.DB) (auth.Provider, func(), error) {
	if cfg.AuthProvider == config.AuthProviderSupabase {
		return auth.NewSupabaseProvider(auth.SupabaseConfig{
			URL:       cfg.SupabaseURL,
			AnonKey:   cfg.SupabaseAnonKey,
			JWTSecret: cfg.SupabaseJWTSecret,
		}), func() {}, nil
	}

	var sessions repository.SessionRepository
	closeFn := func() {}
	switch cfg.SessionBackend {
	case config.SessionBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		slog.Info("redis connection established", slog.String("addr", cfg.RedisAddr))
		sessions = repository.NewRedisSessionRepo(client)
		closeFn = func() { client.Close() }
	default:
		sessions = repository.NewPostgresSessionRepo(db)
	}

	provider := auth.NewPasswordProvider(
		repository.NewPostgresCredentialRepo(db),
		sessions,
		auth.PasswordProviderConfig{
			SessionMaxAge: cfg.SessionMaxAge,
			BcryptCost:    cfg.BcryptCost,
		},
	)
	return provider, closeFn, nil
}

// rateLimiterConfig は設定のreq/minをreq/secに変換したレート制限設定を返す。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rl := middleware.DefaultRateLimiterConfig()
	rl.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rl.GeneralBurst = cfg.RateLimitGeneral
	rl.SignInRate = rate.Limit(float64(cfg.RateLimitSignIn) / 60.0)
	rl.SignInBurst = cfg.RateLimitSignIn
	return rl
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// 2. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// 3. リポジトリの初期化
	profileRepo := repository.NewPostgresProfileRepo(db)
	roleRepo := repository.NewPostgresRoleAssignmentRepo(db)
	appointmentRepo := repository.NewPostgresAppointmentRepo(db)
	medicalRecordRepo := repository.NewPostgresMedicalRecordRepo(db)

	// 4. ドメインサービスの初期化
	provider, closeProvider, err := buildProvider(cfg, db)
	if err != nil {
		return err
	}
	defer closeProvider()

	sanitizer := security.NewTextSanitizer()
	resolver := role.NewResolver(profileRepo, roleRepo, collector)
	profileManager := profile.NewManager(profileRepo, sanitizer)
	authService := auth.NewService(provider, resolver, profileManager, collector)
	dashboardService := dashboard.NewService(resolver, collector)
	recordService := record.NewService(appointmentRepo, medicalRecordRepo, sanitizer)

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(rateLimiterConfig(cfg))
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		IdentityResolver:  provider,
		ActivationChecker: resolver,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},

		HealthChecker: db,
		Metrics:       collector,
		Gatherer:      registry,

		AuthGates: func(store *session.Store) handler.AuthGate {
			return authService.Gate(store)
		},
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		DashboardService: dashboardService,
		ProfileService:   profileManager,
		RecordService:    recordService,
	}

	router := handler.NewRouter(deps)

	// 6. バックグラウンドジョブ（PostgreSQLにセッションを保存する場合のみ）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.UsesLocalSessions() && cfg.SessionBackend == config.SessionBackendPostgres {
		cleanupJob := cleanup.NewCleanupJob(db, slog.Default(), collector)
		go cleanupJob.Start(ctx, cfg.SessionCleanupInterval)
	}

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
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("schema_version", uint64(version)))
	return nil
}

// runCleanup は期限切れセッションの削除を1回実行する。
// cronなど外部スケジューラからの実行を想定する。
func runCleanup(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	return cleanup.NewCleanupJob(db, slog.Default(), nil).Run(ctx)
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
