package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/logbook-backend/api/routes"
	"github.com/angelmondragon/logbook-backend/internal/attendance"
	"github.com/angelmondragon/logbook-backend/internal/auth"
	"github.com/angelmondragon/logbook-backend/internal/authz"
	"github.com/angelmondragon/logbook-backend/internal/users"
	"github.com/angelmondragon/logbook-backend/pkg/auth/session"
	"github.com/angelmondragon/logbook-backend/pkg/config"
	"github.com/angelmondragon/logbook-backend/pkg/db"
	"github.com/angelmondragon/logbook-backend/pkg/logger"
	"github.com/angelmondragon/logbook-backend/pkg/metrics"
	"github.com/angelmondragon/logbook-backend/pkg/migrate"
	"github.com/angelmondragon/logbook-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
		Fields:      map[string]string{"env": cfg.App.Env},
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	office, remote, err := attendance.PoliciesFromConfig(cfg.Attendance)
	if err != nil {
		return err
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	userRepo := users.NewRepository(dbClient.DB())
	records := attendance.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		Logger:         logg,
		Password:       &cfg.Password,
	})
	if err != nil {
		return err
	}
	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return err
	}
	verifier, err := auth.NewVerifier(cfg.JWT, sessionManager)
	if err != nil {
		return err
	}
	resolver, err := authz.NewResolver(userRepo)
	if err != nil {
		return err
	}
	adminService, err := users.NewAdminService(users.AdminServiceParams{Repo: userRepo, Logger: logg})
	if err != nil {
		return err
	}
	attendanceService, err := attendance.NewService(attendance.ServiceParams{
		Repo:    records,
		Office:  office,
		Remote:  remote,
		Logger:  logg,
		Metrics: metrics.NewAttendanceMetrics(reg),
	})
	if err != nil {
		return err
	}
	divisionService, err := attendance.NewDivisionService(attendance.DivisionServiceParams{
		Records: records,
		Users:   userRepo,
		Policy:  office,
		Logger:  logg,
	})
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":             cfg.App.Env,
		"addr":            addr,
		"office_radius_m": office.Fence.RadiusMeters,
		"late_cutoff":     office.CutoffLabel(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:     cfg,
			Logger:     logg,
			DB:         dbClient,
			Redis:      redisClient,
			Gatherer:   reg,
			Metrics:    metrics.NewHTTPMetrics(reg),
			RateLimits: redisClient,
			Verifier:   verifier,
			Resolver:   resolver,
			Auth:       authService,
			Register:   registerService,
			Admin:      adminService,
			Attendance: attendanceService,
			Divisions:  divisionService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
