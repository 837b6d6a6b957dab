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

	"github.com/hweber/secondbrain/internal/config"
	"github.com/hweber/secondbrain/internal/llm"
	httpPlatform "github.com/hweber/secondbrain/internal/platform/http"
	"github.com/hweber/secondbrain/internal/platform/logger"
	"github.com/hweber/secondbrain/internal/platform/postgres"
	"github.com/hweber/secondbrain/internal/platform/redis"

	agentmodel "github.com/hweber/secondbrain/modules/agents/model"
	agentRepo "github.com/hweber/secondbrain/modules/agents/repository"
	agentService "github.com/hweber/secondbrain/modules/agents/service"
	eventRepo "github.com/hweber/secondbrain/modules/events/repository"
	hitlHandler "github.com/hweber/secondbrain/modules/hitl/handler"
	hitlRepo "github.com/hweber/secondbrain/modules/hitl/repository"
	hitlService "github.com/hweber/secondbrain/modules/hitl/service"
	inboxHandler "github.com/hweber/secondbrain/modules/inbox/handler"
	"github.com/hweber/secondbrain/modules/inbox/matcher"
	inboxRepo "github.com/hweber/secondbrain/modules/inbox/repository"
	inboxService "github.com/hweber/secondbrain/modules/inbox/service"
	notifyRepo "github.com/hweber/secondbrain/modules/notify/repository"
	notifyService "github.com/hweber/secondbrain/modules/notify/service"
	peopleRepo "github.com/hweber/secondbrain/modules/people/repository"
	projectRepo "github.com/hweber/secondbrain/modules/projects/repository"
	reportService "github.com/hweber/secondbrain/modules/reports/service"
	schedulerHandler "github.com/hweber/secondbrain/modules/scheduler/handler"
	schedulerRepo "github.com/hweber/secondbrain/modules/scheduler/repository"
	schedulerService "github.com/hweber/secondbrain/modules/scheduler/service"
	settingsRepo "github.com/hweber/secondbrain/modules/settings/repository"
	settingsService "github.com/hweber/secondbrain/modules/settings/service"
	syncHandler "github.com/hweber/secondbrain/modules/sync/handler"
	syncRepo "github.com/hweber/secondbrain/modules/sync/repository"
	syncService "github.com/hweber/secondbrain/modules/sync/service"
	taskRepo "github.com/hweber/secondbrain/modules/tasks/repository"
	telegramHandler "github.com/hweber/secondbrain/modules/telegram/handler"
	telegramService "github.com/hweber/secondbrain/modules/telegram/service"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logg.Sync()

	logg.Info("Starting Second Brain API server",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
	)

	ctx := context.Background()
	location := cfg.Server.Location()

	// Initialize PostgreSQL
	pgClient, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		logg.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgClient.Close()
	logg.Info("Connected to PostgreSQL")

	// Run database migrations before anything touches the schema
	migrationsPath := "./migrations"
	if err := postgres.RunMigrations(ctx, cfg.Database, logg, migrationsPath); err != nil {
		logg.Fatal("Failed to run database migrations",
			zap.Error(err),
			zap.String("migrations_path", migrationsPath),
		)
	}

	// Initialize Redis (optional; caches fall back to the DB without it)
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		logg.Warn("Redis unavailable, running without cache", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
		logg.Info("Connected to Redis")
	}

	// Repositories
	personRepository := peopleRepo.NewPersonRepository(pgClient.Pool)
	taskRepository := taskRepo.NewTaskRepository(pgClient.Pool)
	projectRepository := projectRepo.NewProjectRepository(pgClient.Pool)
	eventRepository := eventRepo.NewEventRepository(pgClient.Pool)
	settingsRepository := settingsRepo.NewSettingsRepository(pgClient.Pool)
	agentConfigRepository := agentRepo.NewAgentConfigRepository(pgClient.Pool)
	hitlRepository := hitlRepo.NewRequestRepository(pgClient.Pool)
	inboxStore := inboxRepo.NewStore(pgClient.Pool)
	inboxLogRepository := inboxRepo.NewInboxLogRepository(pgClient.Pool)
	notifyConfigRepository := notifyRepo.NewConfigRepository(pgClient.Pool)
	scheduleRepository := schedulerRepo.NewScheduleRepository(pgClient.Pool)
	jobRepository := schedulerRepo.NewJobRepository(pgClient.Pool)
	syncRepository := syncRepo.NewSyncRepository(pgClient.Pool)

	// Services
	configManager := settingsService.NewConfigManager(settingsRepository, redisClient)
	llmFactory := llm.NewFactory(pgClient.Pool)

	channelRouter := notifyService.NewRouter(notifyConfigRepository, redisClient)
	notifier := notifyService.NewNotificationService(channelRouter, logg)
	dispatcher := notifyService.NewReportDispatcher(notifyConfigRepository, notifier, cfg.Email, logg)

	hitlSvc := hitlService.NewService("second_brain", hitlRepository)

	newAgent := func(name string) *agentService.Agent {
		agent, err := agentService.NewAgent(ctx, name, agentConfigRepository, llmFactory, logg)
		if err != nil {
			logg.Fatal("Failed to load agent config (run cmd/seed first)",
				zap.String("agent_name", name),
				zap.Error(err),
			)
		}
		return agent
	}

	agents := inboxService.Agents{
		Intent:          newAgent(agentmodel.AgentIntent),
		Structure:       newAgent(agentmodel.AgentStructure),
		QueryClassifier: newAgent(agentmodel.AgentQueryClassifier),
		Query:           newAgent(agentmodel.AgentQuery),
		Edit:            newAgent(agentmodel.AgentEdit),
	}

	confidenceThreshold := configManager.GetFloat(ctx, "confidence_threshold", cfg.Pipeline.ConfidenceThreshold)
	maxMatches := configManager.GetInt(ctx, "max_matches", cfg.Pipeline.MaxMatches)
	keywordMinLength := configManager.GetInt(ctx, "keyword_min_length", cfg.Pipeline.KeywordMinLength)

	entityMatcher := matcher.New(pgClient.Pool, configManager.Stopwords(ctx), keywordMinLength, maxMatches)

	orchestrator := inboxService.NewOrchestrator(
		inboxStore,
		inboxLogRepository,
		entityMatcher,
		hitlSvc,
		notifier,
		agents,
		confidenceThreshold,
		location,
		logg,
	)

	reportSvc := reportService.NewService(
		taskRepository,
		eventRepository,
		projectRepository,
		newAgent(agentmodel.AgentDailyReport),
		newAgent(agentmodel.AgentWeeklyReport),
		dispatcher,
		location,
		logg,
	)

	syncSvc := syncService.NewService(syncRepository, personRepository, eventRepository, logg)

	// Scheduler with the built-in job handlers
	runner := schedulerService.NewRunner(jobRepository, logg)
	runner.Register("contact_sync", syncSvc.SyncAll)
	runner.Register("calendar_sync", syncSvc.SyncCalendar)
	runner.Register("daily_report", reportSvc.Daily)
	runner.Register("weekly_report", reportSvc.Weekly)
	runner.Start(ctx)

	telegramCommands := telegramService.NewCommandService(taskRepository, eventRepository, orchestrator, reportSvc, location)

	// Set Gin mode
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpPlatform.RequestIDMiddleware())
	router.Use(httpPlatform.LoggerMiddleware(logg))
	router.Use(httpPlatform.CORSMiddleware())

	// Health check endpoint
	router.GET("/health", healthCheckHandler(ctx, pgClient, redisClient))

	// API routes
	api := router.Group("/api")
	{
		inboxHandler.NewInboxHandler(orchestrator, channelRouter, inboxLogRepository).RegisterRoutes(api)
		hitlHandler.NewHitlHandler(hitlSvc).RegisterRoutes(api)
		schedulerHandler.NewSchedulerHandler(scheduleRepository, jobRepository, runner).RegisterRoutes(api)
		syncHandler.NewSyncHandler(syncSvc, runner).RegisterRoutes(api)
		telegramHandler.NewWebhookHandler(telegramCommands, channelRouter, notifier).RegisterRoutes(api)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logg.Info("Server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info("Shutting down server...")

	runner.Stop(10 * time.Second)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logg.Info("Server exited")
}

func healthCheckHandler(ctx context.Context, pgClient *postgres.Client, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		services := make(map[string]string)

		if err := pgClient.Health(ctx); err != nil {
			services["postgres"] = "down"
		} else {
			services["postgres"] = "up"
		}

		if redisClient == nil {
			services["redis"] = "disabled"
		} else if err := redisClient.Health(ctx); err != nil {
			services["redis"] = "down"
		} else {
			services["redis"] = "up"
		}

		httpPlatform.RespondWithHealth(c, services)
	}
}
