package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/bus-ticket-booking/internal/config"
	"github.com/fairyhunter13/bus-ticket-booking/internal/handler"
	"github.com/fairyhunter13/bus-ticket-booking/internal/middleware"
	"github.com/fairyhunter13/bus-ticket-booking/internal/model"
	"github.com/fairyhunter13/bus-ticket-booking/internal/repository"
	"github.com/fairyhunter13/bus-ticket-booking/internal/service"
	"github.com/fairyhunter13/bus-ticket-booking/internal/validator"
	"github.com/fairyhunter13/bus-ticket-booking/pkg/database"
)

func main() {
	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize zerolog based on configuration
	initLogger(cfg)

	// Create context for startup
	ctx := context.Background()

	// Initialize database pool with retry
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Initialize Fiber with production-ready configuration
	app := fiber.New(fiber.Config{
		AppName:      "Bus Ticket Booking",
		ReadTimeout:  30 * time.Second,  // Max time to read request
		WriteTimeout: 30 * time.Second,  // Max time to write response
		IdleTimeout:  120 * time.Second, // Max time for keep-alive connections
		BodyLimit:    1 * 1024 * 1024,   // 1MB body limit (explicit, prevents large payloads)
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New()) // Adds X-Request-ID header to all requests
	app.Use(logger.New())
	app.Use(cors.New())

	validate := validator.New()

	// Repositories and engines share one pool; every engine runs in its own transaction
	deps := service.Deps{
		Pool:       pool,
		Trips:      repository.NewTripRepository(pool),
		Tickets:    repository.NewTicketRepository(pool),
		Seats:      repository.NewSeatRepository(pool),
		Coupons:    repository.NewCouponRepository(pool),
		CouponUses: repository.NewCouponUseRepository(pool),
		Users:      repository.NewUserRepository(pool),
		Companies:  repository.NewCompanyRepository(pool),
	}
	authorizer := service.NewAuthorizer(deps)
	refunds := service.NewRefundService(deps)

	tripHandler := handler.NewTripHandler(service.NewTripService(deps), refunds, authorizer, validate)
	ticketHandler := handler.NewTicketHandler(
		service.NewBookingService(deps),
		service.NewCancellationService(deps),
		service.NewTicketService(deps),
		authorizer,
		validate,
	)
	couponHandler := handler.NewCouponHandler(service.NewCouponService(deps), validate)
	companyHandler := handler.NewCompanyHandler(refunds)
	healthHandler := handler.NewHealthHandler(pool)

	verifier := middleware.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	auth := middleware.Authenticate(verifier)
	riders := middleware.RequireRole(model.RoleUser)
	managers := middleware.RequireRole(model.RoleCompany)
	admins := middleware.RequireRole(model.RoleAdmin)

	// Public routes, registered ahead of the authenticated /api group
	app.Get("/health", healthHandler.Check)
	app.Get("/api/trips", tripHandler.Search)
	app.Get("/api/trips/:id/seats", tripHandler.Seats)

	// Authenticated routes
	api := app.Group("/api", auth)
	api.Post("/trips", managers, tripHandler.Create)
	api.Patch("/trips/:id/capacity", managers, tripHandler.UpdateCapacity)
	api.Delete("/trips/:id", managers, tripHandler.Delete)
	api.Delete("/companies/:id", admins, companyHandler.Delete)
	api.Post("/tickets", riders, ticketHandler.Book)
	api.Get("/tickets", ticketHandler.List)
	api.Delete("/tickets/:id", ticketHandler.Cancel)
	couponOwners := middleware.RequireRole(model.RoleAdmin, model.RoleCompany)
	api.Post("/coupons", couponOwners, couponHandler.CreateCoupon)
	api.Patch("/coupons/:id", couponOwners, couponHandler.UpdateCoupon)
	api.Post("/coupons/check", riders, couponHandler.CheckCoupon)

	// Start server with graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// Shutdown server (waits for in-flight requests)
	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Close database pool AFTER server shutdown (even if shutdown timed out)
	log.Info().Msg("closing database connections...")
	pool.Close()
	log.Info().Msg("database connections closed")
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Log.Pretty {
		// Human-readable output for development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
