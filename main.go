package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"tile-event-system/handlers"
	"tile-event-system/middleware"
	"tile-event-system/models"
	"tile-event-system/services"
	"tile-event-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // image URLs and OCR text only, never image bytes
	})

	// Only Gateway requests allowed — no exceptions.
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("ALLOWED_ORIGINS not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles, X-Service-Token",
		AllowCredentials: true,
		MaxAge:           86400,
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
		&models.Event{},
		&models.Tile{},
		&models.Participant{},
		&models.Submission{},
		&models.ClanMember{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	autoApprove := envFloat("AUTO_APPROVE_CONFIDENCE", 0.80)
	reviewFloor := envFloat("REVIEW_CONFIDENCE", 0.50)

	eventService := services.NewEventService(db)
	tileService := services.NewTileService(db)
	verifierService := services.NewVerifierService(autoApprove, reviewFloor)
	progressionService := services.NewProgressionService(db)
	webhookService := services.NewWebhookService()
	sheetService := services.NewSheetService(db, tileService)
	submissionService := services.NewSubmissionService(db, tileService, verifierService, progressionService, webhookService)

	// --- Identity mirror sync (usernames/avatars/RSNs for announcements) ---
	identityServiceURL := os.Getenv("IDENTITY_SERVICE_URL")
	if identityServiceURL == "" {
		log.Fatal("IDENTITY_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("SERVICE_TOKEN environment variable not set")
	}

	identityWorker := workers.NewIdentitySyncWorker(db, identityServiceURL, "/api/v1/public/members", serviceToken)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Println("Starting Identity Sync Worker...")
		identityWorker.Start(ctx)
	}()

	syncInterval := envDuration("SHEET_SYNC_INTERVAL", 10*time.Minute)
	sheetService.StartSyncScheduler(syncInterval)

	handlers.SetupEventRoutes(app, eventService, sheetService)
	handlers.SetupTileRoutes(app, tileService)
	handlers.SetupProgressionRoutes(app, progressionService)
	handlers.SetupSubmissionRoutes(app, submissionService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("Server running on http://localhost:5300")
	log.Printf("Auto-approve at confidence >= %.2f, review floor %.2f", autoApprove, reviewFloor)
	log.Printf("Sheet auto-sync every %s", syncInterval)
	log.Printf("CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}

func envFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 || f > 1 {
		log.Fatalf("invalid %s: %q (want a number in [0,1])", key, raw)
	}
	return f
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Fatalf("invalid %s: %q (want a positive duration like 10m)", key, raw)
	}
	return d
}
