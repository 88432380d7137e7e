package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/cloudhms/internal/metrics"
	"github.com/hitoshi/cloudhms/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	IdentityResolver  middleware.IdentityResolver
	ActivationChecker middleware.ActivationChecker
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// 運用
	HealthChecker HealthChecker
	Metrics       metrics.MetricsCollector
	Gatherer      prometheus.Gatherer

	// 認証
	AuthGates  GateFactory
	AuthConfig AuthHandlerConfig

	// 利用者向けAPI
	DashboardService DashboardServiceInterface
	ProfileService   ProfileServiceInterface
	RecordService    RecordServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Recovery → Logging → Metrics → SecurityHeaders → CORS
//	/auth/*: RateLimit(SignIn) → CSRF
//	/api/*:  Session → RoleGate → RateLimit(General) → CSRF
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mc := deps.Metrics
	if mc == nil {
		mc = metrics.Nop{}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(mc))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthGates, deps.AuthConfig)
	dashboardHandler := NewDashboardHandler(deps.DashboardService)
	profileHandler := NewProfileHandler(deps.ProfileService)
	recordHandler := NewRecordHandler(deps.RecordService)
	csrf := middleware.NewCSRFMiddleware(deps.CSRFConfig)

	// --- 認証不要のルート ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))
	r.Get("/api/about", About)

	// 認証ルート（総当たり対策のIP単位レート制限）
	r.Route("/auth", func(r chi.Router) {
		r.Use(deps.RateLimiter.SignInMiddleware())
		r.Use(csrf)
		r.Post("/signin", authHandler.SignIn)
		r.Post("/signup", authHandler.SignUp)
		r.Post("/signout", authHandler.SignOut)
		r.Get("/session", authHandler.Session)
	})

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.IdentityResolver))
		r.Use(middleware.NewRoleGateMiddleware(deps.ActivationChecker, middleware.SessionCookieConfig{
			Domain: deps.AuthConfig.CookieDomain,
			Secure: deps.AuthConfig.CookieSecure,
		}))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(csrf)

		r.Get("/api/dashboard", dashboardHandler.GetDashboard)

		r.Route("/api/profile", func(r chi.Router) {
			r.Get("/", profileHandler.GetProfile)
			r.Patch("/", profileHandler.UpdateProfile)
		})

		r.Route("/api/appointments", func(r chi.Router) {
			r.Get("/", recordHandler.ListAppointments)
			r.Post("/", recordHandler.RequestAppointment)
		})

		r.Get("/api/medical-records", recordHandler.ListMedicalRecords)
		r.Get("/api/laboratory", recordHandler.ListLabResults)
	})

	return r
}
