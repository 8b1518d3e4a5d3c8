package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"sniper-console/handlers"
	"sniper-console/middleware"
	"sniper-console/models"
	"sniper-console/services"
	"sniper-console/session"
	"sniper-console/workers"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New()

	// 🔐 GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(allowedOriginsList, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.UserSettings{},
		&models.SniperStatus{},
		&models.WatchlistItem{},
		&models.ActivityLog{},
		&models.TradeLog{},
		&models.SignupCode{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	activityService := services.NewActivityService(db)
	walletService := services.NewWalletService(db)
	sniperService := services.NewSniperService(db, walletService, activityService)
	watchlistService := services.NewWatchlistService(db, activityService)
	settingsService := services.NewSettingsService(db)
	priceService := services.NewPriceService()
	balanceService := services.NewBalanceService()

	sessions := session.NewManager(session.BuildDeps(
		walletService,
		sniperService,
		watchlistService,
		settingsService,
		activityService,
		priceService,
		balanceService,
	))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions.Start(ctx)

	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Fatal("failed to create scheduler:", err)
	}
	workers.NewHeartbeatWorker(sniperService, activityService).Schedule(sched)
	workers.NewOrphanWorker(watchlistService).Schedule(sched)
	sched.Start()

	handlers.SetupDashboardRoutes(app, sessions, walletService, activityService)
	handlers.SetupWorkerRoutes(app, walletService, sniperService, watchlistService, settingsService, activityService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Heartbeat and orphan sweeps scheduled")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")

	<-ctx.Done()
	log.Println("Shutting down server...")
	sessions.Shutdown()
	_ = sched.Shutdown()
	_ = app.Shutdown()
}
