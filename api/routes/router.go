package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/logbook-backend/api/controllers"
	"github.com/angelmondragon/logbook-backend/api/middleware"
	"github.com/angelmondragon/logbook-backend/internal/attendance"
	"github.com/angelmondragon/logbook-backend/internal/auth"
	"github.com/angelmondragon/logbook-backend/internal/authz"
	"github.com/angelmondragon/logbook-backend/internal/users"
	"github.com/angelmondragon/logbook-backend/pkg/config"
	"github.com/angelmondragon/logbook-backend/pkg/enums"
	"github.com/angelmondragon/logbook-backend/pkg/logger"
	"github.com/angelmondragon/logbook-backend/pkg/metrics"
	"github.com/google/uuid"
)

type credentialVerifier interface {
	VerifyCredential(ctx context.Context, token string) (*auth.Credential, error)
}

type authContextResolver interface {
	ResolveAuthContext(ctx context.Context, userID uuid.UUID) (*authz.AuthContext, error)
}

type rateLimitStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Deps carries everything the HTTP surface needs. Nil Pingers are skipped by
// readiness and a nil RateLimits disables per-email auth throttling.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    controllers.Pinger
	Gatherer prometheus.Gatherer
	Metrics  *metrics.HTTPMetrics

	RateLimits rateLimitStore
	Verifier   credentialVerifier
	Resolver   authContextResolver

	Auth       auth.Service
	Register   auth.RegisterService
	Admin      users.AdminService
	Attendance attendance.Service
	Divisions  attendance.DivisionService
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(d.Metrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)
	if cfg.AuthRateLimit.GlobalPerMinute > 0 {
		r.Use(httprate.LimitByIP(cfg.AuthRateLimit.GlobalPerMinute, time.Minute))
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readinessDeps(d), logg))
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	authenticated := middleware.Auth(d.Verifier, d.Resolver, logg)
	administrators := middleware.Require(logg, authz.RoleIn(enums.RoleAdmin, enums.RoleSuperadmin))

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, d.RateLimits, logg)).Post("/login", controllers.AuthLogin(d.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, d.RateLimits, logg)).Post("/register", controllers.AuthRegister(d.Register, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))
		r.With(authenticated).Post("/logout", controllers.AuthLogout(d.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authenticated)

		r.Get("/me", controllers.Me(logg))

		r.Route("/attendance", func(r chi.Router) {
			r.Post("/check-in", controllers.AttendanceCheckIn(d.Attendance, logg))
			r.Post("/check-out", controllers.AttendanceCheckOut(d.Attendance, logg))
			r.Get("/today", controllers.AttendanceToday(d.Attendance, enums.AttendanceKindOffice, logg))
			r.Get("/history", controllers.AttendanceHistory(d.Attendance, enums.AttendanceKindOffice, logg))
		})

		r.Route("/remote-checkin", func(r chi.Router) {
			r.Post("/check-in", controllers.RemoteCheckIn(d.Attendance, logg))
			r.Post("/check-out", controllers.RemoteCheckOut(d.Attendance, logg))
			r.Get("/today", controllers.AttendanceToday(d.Attendance, enums.AttendanceKindRemote, logg))
			r.Get("/history", controllers.AttendanceHistory(d.Attendance, enums.AttendanceKindRemote, logg))
		})

		// Division membership is checked by the service once the division is loaded.
		r.With(administrators).Get("/divisions/{divisionId}/attendance", controllers.DivisionAttendance(d.Divisions, logg))

		r.Route("/admin/users", func(r chi.Router) {
			r.Use(administrators)
			r.Get("/", controllers.AdminListUsers(d.Admin, logg))
			r.Post("/{userId}/approve", controllers.AdminApproveUser(d.Admin, logg))
			r.Post("/{userId}/reject", controllers.AdminRejectUser(d.Admin, logg))
			r.Post("/{userId}/suspend", controllers.AdminSuspendUser(d.Admin, logg))
			r.With(middleware.Require(logg, authz.IsSuperadmin())).Put("/{userId}/roles", controllers.AdminSetUserRoles(d.Admin, logg))
			r.Put("/{userId}/division", controllers.AdminSetUserDivision(d.Admin, logg))
		})
	})

	return r
}

func readinessDeps(d Deps) map[string]controllers.Pinger {
	deps := map[string]controllers.Pinger{}
	if d.DB != nil {
		deps["database"] = d.DB
	}
	if d.Redis != nil {
		deps["redis"] = d.Redis
	}
	return deps
}
