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

	"task-verify-system/handlers"
	"task-verify-system/middleware"
	"task-verify-system/models"
	"task-verify-system/services"
	"task-verify-system/utils"
	"task-verify-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func requireEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("%s environment variable not set", key)
	}
	return value
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 100 * 1024 * 1024, // 100MB, evidence attachments included
	})

	// 🔐 GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		log.Println("⚠️  ALLOWED_ORIGINS not set, using default: http://localhost:3000")
		allowedOrigins = "http://localhost:3000"
	}
	origins := strings.Split(allowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(origins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := requireEnv("DATABASE_URL")

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Task{},
		&models.TaskSubmission{},
		&models.VerificationQueueItem{},
		&models.UserStats{},
		&models.RewardDistribution{},
		&models.Badge{},
		&models.UserBadge{},
		&models.Zone{},
		&models.WorkHistoryEntry{},
		&models.TaskFeedback{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := services.SeedCatalogs(db); err != nil {
		log.Fatal("failed to seed catalogs:", err)
	}

	verifyTimeout := 15 * time.Second
	if raw := os.Getenv("VERIFY_TIMEOUT_SECONDS"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			verifyTimeout = time.Duration(secs) * time.Second
		}
	}

	verifier := services.NewVerificationServiceClient(
		requireEnv("VERIFY_SERVICE_URL"),
		requireEnv("VERIFY_SERVICE_TOKEN"),
		verifyTimeout,
	)
	notifier := services.NewNotificationServiceClient(
		requireEnv("NOTIFY_SERVICE_URL"),
		os.Getenv("NOTIFY_SERVICE_TOKEN"),
	)
	payments := services.NewPaymentServiceClient(
		requireEnv("PAYMENT_SERVICE_URL"),
		requireEnv("PAYMENT_SERVICE_TOKEN"),
	)

	rewardService := services.NewRewardService(db, payments)
	reviewService := services.NewReviewQueueService(db, notifier)
	submissionService := services.NewSubmissionService(db, verifier, notifier, rewardService, reviewService)
	reviewService.Submissions = submissionService

	verificationWorker := workers.NewVerificationWorker(db, submissionService)
	submissionService.Dispatcher = verificationWorker

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go verificationWorker.Start(ctx)
	rewardService.StartPaymentScheduler(ctx, 5*time.Minute)

	handlers.SetupSubmissionRoutes(app, submissionService)
	handlers.SetupReviewRoutes(app, reviewService)
	handlers.SetupProgressionRoutes(app, rewardService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Verification worker running (dispatch + recovery sweep)")
	log.Println("✅ Payment sweep scheduled (every 5m)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
