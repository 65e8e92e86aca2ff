package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"writ_docket_go/config"
	"writ_docket_go/db"
	"writ_docket_go/handlers"
	"writ_docket_go/services"
)

func main() {
	// Load configuration
	cfg := config.Load()
	config.SetupLogger(cfg)

	// Initialize database
	if err := db.Initialize(cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(db.DB); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	services.InitializeStorage(cfg)
	services.InitSecurityMonitor()

	branches, err := services.LoadBranchDirectory(cfg.BranchesFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.BranchesFile).Msg("Failed to load branch directory")
	}
	if branches == nil {
		log.Warn().Str("file", cfg.BranchesFile).Msg("No branch directory found, accepting any branch name")
	} else {
		log.Info().Int("branches", len(branches.List())).Msg("Branch directory loaded")
	}

	audit := services.NewDBAuditRecorder(db.DB)
	deps := &services.Deps{
		Locker:   services.InitializeCaseLocker(cfg),
		Audit:    audit,
		Notifier: &services.EmailNotifier{Config: cfg},
		Branches: branches,
		PDF:      &services.ChromePDFRenderer{ExecPath: cfg.ChromePath},
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	// Middleware
	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			event := log.Info()
			if v.Error != nil {
				event = log.Warn().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "x-access-token"},
	}))
	e.Use(echomiddleware.BodyLimit("2M"))

	handlers.NewAPI(db.DB, deps, cfg).RegisterRoutes(e)

	// Start server
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		addr := ":" + cfg.ServerPort
		log.Info().Str("addr", addr).Str("environment", cfg.Environment).Msg("Starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	// Flush pending audit entries before the database closes
	audit.Wait()
}
