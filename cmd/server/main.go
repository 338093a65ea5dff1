package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/onegreenvn/bizdoc-services-backend/docs"
	"github.com/onegreenvn/bizdoc-services-backend/internal/cache"
	"github.com/onegreenvn/bizdoc-services-backend/internal/config"
	"github.com/onegreenvn/bizdoc-services-backend/internal/database"
	"github.com/onegreenvn/bizdoc-services-backend/internal/database/repository"
	"github.com/onegreenvn/bizdoc-services-backend/internal/handlers"
	"github.com/onegreenvn/bizdoc-services-backend/internal/middleware"
	"github.com/onegreenvn/bizdoc-services-backend/internal/router"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/activity"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/admin"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/api_key"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/assembler"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/auth"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/excel"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/export"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/generator"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/maintenance"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/messaging"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/payment"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/preview"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/project"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/subscription"
	"github.com/onegreenvn/bizdoc-services-backend/internal/storage"
	"github.com/onegreenvn/bizdoc-services-backend/internal/tracing"
	"github.com/onegreenvn/bizdoc-services-backend/internal/utils"
)

const (
	// Checkouts abandoned for this long are marked FAILED
	pendingPaymentTTL = 24 * time.Hour
	activityRetention = 90
)

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter `Bearer ` followed by your JWT token (e.g. "Bearer <token>") or `ApiKey ` followed by your API key (e.g. "ApiKey <key>")

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Set Swagger base path dynamically
	docs.SwaggerInfo.BasePath = cfg.Server.BasePath

	configureLogging(cfg.Server.LogLevel)

	if err := utils.InitSentry(cfg.Sentry); err != nil {
		logrus.Warnf("Failed to initialize Sentry: %v", err)
	}
	defer sentry.Flush(2 * time.Second)

	ctx := context.Background()
	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		logrus.Warnf("Failed to initialize tracing: %v", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close(db)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	apiKeyRepo := repository.NewAPIKeyRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	generationRepo := repository.NewGenerationRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	rdb := newRedisClient(ctx, cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
	}

	// Activity log: RabbitMQ when available, direct writes otherwise
	sseHub := activity.NewSSEHub()
	var publisher activity.Publisher
	var rabbitMQService *messaging.RabbitMQService
	if url := cfg.RabbitMQ.URL(); url != "" {
		svc, err := messaging.NewRabbitMQService(url, activity.QueueName)
		if err != nil {
			logrus.Warnf("Failed to initialize RabbitMQ: %v", err)
		} else {
			logrus.Info("RabbitMQ service initialized")
			defer svc.Close()
			rabbitMQService = svc
			publisher = svc
		}
	}
	activityService := activity.NewService(activityRepo, sseHub, publisher)
	if rabbitMQService != nil {
		deliveries, err := rabbitMQService.Consume(activity.QueueName)
		if err != nil {
			logrus.Warnf("Failed to start RabbitMQ activity consumer: %v", err)
		} else {
			activityService.StartConsumer(deliveries)
			defer activityService.Stop()
		}
	}

	authService := auth.NewAuthService(cfg.Auth, userRepo, refreshTokenRepo)
	if err := authService.CreateAdminUser(cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		logrus.Warnf("Failed to create admin user: %v", err)
	} else {
		logrus.Info("Admin user check completed")
	}
	apiKeyService := api_key.NewService(apiKeyRepo, userRepo)

	// Document pipeline
	catalog, err := generator.LoadCatalog()
	if err != nil {
		logrus.Fatalf("Failed to load prompt catalog: %v", err)
	}
	var chatModel model.BaseChatModel
	if m, err := generator.NewChatModel(ctx, cfg.LLM); err != nil {
		logrus.Warnf("Document generation disabled: %v", err)
	} else {
		chatModel = m
	}
	docGenerator := generator.New(catalog, chatModel)

	theme := assembler.DefaultTheme()
	var archive export.ObjectStore
	if cfg.MinIO.Endpoint != "" {
		minioStorage, err := storage.NewMinIOStorage(cfg.MinIO)
		if err != nil {
			logrus.Warnf("Failed to initialize MinIO, export archive disabled: %v", err)
		} else {
			archive = minioStorage
		}
	}
	exportService := export.NewService(assembler.DefaultRegistry(), theme, archive)

	subscriptionService := subscription.NewService(subscriptionRepo, generationRepo)
	projectService := project.NewService(projectRepo, docGenerator, subscriptionService, exportService, preview.NewRenderer(theme), activityService)
	paymentService := payment.NewService(paymentRepo, payment.NewFlutterwaveClient(cfg.Payment), userRepo, activityService, cfg.Payment.Currency, cfg.Payment.WebhookHash)
	adminService := admin.NewService(userRepo, projectRepo, paymentRepo, subscriptionRepo, excel.NewExcelService(), cache.New(rdb))

	housekeeping := maintenance.NewService(cfg.Auth.TokenCleanupInterval,
		maintenance.Task{Name: "refresh_tokens", Run: refreshTokenRepo.CleanupTokens},
		maintenance.Task{Name: "subscriptions", Run: func() (int64, error) {
			return subscriptionRepo.ExpireEnded(time.Now())
		}},
		maintenance.Task{Name: "pending_payments", Run: func() (int64, error) {
			return paymentService.ExpireStale(context.Background(), time.Now().Add(-pendingPaymentTTL))
		}},
		maintenance.Task{Name: "activity_logs", Run: func() (int64, error) {
			return activityRepo.DeleteOldLogs(activityRetention)
		}},
	)
	housekeeping.Start()
	defer housekeeping.Stop()

	r := router.SetupRouter(cfg.Server,
		router.Handlers{
			Auth:     handlers.NewAuthHandler(authService, activityService),
			APIKey:   handlers.NewAPIKeyHandler(apiKeyService),
			Project:  handlers.NewProjectHandler(projectService),
			Export:   handlers.NewExportHandler(exportService, activityService),
			Billing:  handlers.NewBillingHandler(paymentService, subscriptionService, cfg.Payment.FrontendURL),
			Admin:    handlers.NewAdminHandler(adminService, authService, userRepo, projectService, activityService, sseHub, activityService),
			Activity: handlers.NewActivityHandler(sseHub),
		},
		router.Middlewares{
			Bearer:          middleware.NewBearerTokenMiddleware(authService),
			APIKey:          middleware.NewAPIKeyMiddleware(apiKeyService),
			GenerationLimit: middleware.NewRateLimiter(rdb, "generate", cfg.RateLimit.GenerationPerMinute, cfg.RateLimit.Burst, time.Minute),
			ServiceName:     cfg.Tracing.ServiceName,
		},
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.Infof("Server starting on port %s", cfg.Server.Port)
		logrus.Infof("API Health Check: http://localhost:%s/api/v1/health", cfg.Server.Port)
		logrus.Infof("Swagger UI: http://localhost:%s/swagger/index.html", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logrus.Warnf("Failed to flush traces: %v", err)
	}

	logrus.Info("Server exited properly")
}

func configureLogging(logLevel string) {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

// newRedisClient returns nil when Redis is not configured or unreachable;
// rate limiting and the dashboard cache then run in memory.
func newRedisClient(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		logrus.Info("REDIS_ADDR not set, using in-memory rate limiting")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logrus.Warnf("Redis unreachable at %s, using in-memory rate limiting: %v", cfg.Addr, err)
		_ = client.Close()
		return nil
	}
	logrus.Infof("Connected to Redis at %s", cfg.Addr)
	return client
}
