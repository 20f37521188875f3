package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bizquits/config"
	"bizquits/database"
	"bizquits/events"
	"bizquits/handlers"
	"bizquits/middleware"
	"bizquits/services"
	"bizquits/utils"
	"bizquits/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ledger := services.NewGamificationService(db)
	challenges := services.NewChallengeService(db, ledger)

	if _, err := ledger.EnsureSeedAchievements(ctx); err != nil {
		log.Fatal("failed to seed achievements:", err)
	}

	bus := events.NewBus()
	services.RegisterGamificationSubscribers(bus, ledger, challenges)
	log.Printf("✅ Event subscribers: booking.completed=%v", bus.Subscribers(events.EventBookingCompleted))

	var uploader handlers.ProofUploader
	if cfg.R2.Enabled() {
		r2, err := utils.InitR2(ctx, cfg.R2)
		if err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		uploader = r2
	} else {
		log.Println("⚠️  R2 not configured, proof image uploads disabled")
	}

	if cfg.UserSync.URL != "" {
		workers.NewUserSyncWorker(db, cfg.UserSync.URL, cfg.UserSync.EndpointPath, cfg.UserSync.ServiceToken, cfg.UserSync.Interval).Start(ctx)
	} else {
		log.Println("⚠️  SYNC_SERVICE_URL not set, user sync disabled")
	}

	sched, err := challenges.StartDeadlineScheduler(cfg.Jobs.DeadlineSweepInterval)
	if err != nil {
		log.Fatal(err)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 12 * 1024 * 1024, // proof images up to 10MB plus form fields
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed, except liveness
	app.Use(middleware.GatewayAuthMiddleware(cfg.Server.GatewayToken, "/health"))

	allowedOrigins := strings.Join(cfg.Server.AllowedOrigins, ",")
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles, X-Entrepreneur-Profile-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	handlers.SetupGamificationRoutes(app, ledger)
	handlers.SetupChallengeRoutes(app, challenges, uploader)
	handlers.SetupEventRoutes(app, bus)

	go func() {
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Server.Port)
	log.Printf("✅ Deadline sweep running (every %s)", cfg.Jobs.DeadlineSweepInterval)
	log.Printf("✅ CORS configured for origins: %s", allowedOrigins)

	<-ctx.Done()
	log.Println("Shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if err := sched.Shutdown(); err != nil {
		log.Printf("Scheduler shutdown error: %v", err)
	}
}
