package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"peerprep/interview/internal/cache"
	"peerprep/interview/internal/coderun"
	"peerprep/interview/internal/config"
	"peerprep/interview/internal/documents"
	"peerprep/interview/internal/evaluation"
	"peerprep/interview/internal/handlers"
	"peerprep/interview/internal/interview"
	"peerprep/interview/internal/jobs"
	"peerprep/interview/internal/llm"
	_ "peerprep/interview/internal/llm/gemini"
	"peerprep/interview/internal/metrics"
	"peerprep/interview/internal/prompts"
	"peerprep/interview/internal/questions"
	"peerprep/interview/internal/routers"
	"peerprep/interview/internal/store"
	"peerprep/interview/internal/utils"
)

func registerRoutes(router *chi.Mux, jwtSecret string, interviewHandler *handlers.InterviewHandler, documentHandler *handlers.DocumentHandler, healthHandler *handlers.HealthHandler) {
	routers.HealthRoutes(router, healthHandler)
	routers.InterviewRoutes(router, jwtSecret, interviewHandler, documentHandler)
}

// initDatabase opens sqlite when DATABASE_DSN is set, PostgreSQL otherwise,
// and migrates the session tables.
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	dialector := postgres.Open(cfg.Postgres.DSN())
	if cfg.DatabaseDSN != "" {
		dialector = sqlite.Open(cfg.DatabaseDSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := store.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// initRedis returns nil when no address is configured.
func initRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
	}
	return rdb, nil
}

func initRunner(cfg *config.Config, logger *zap.Logger) (coderun.Runner, error) {
	limits := coderun.Limits{WallTime: cfg.SandboxWallTime}
	switch cfg.SandboxDriver {
	case "docker":
		return coderun.NewDockerRunner(limits, logger)
	case "http":
		return coderun.NewHTTPRunner(cfg.SandboxURL, limits), nil
	default:
		return nil, nil
	}
}

func main() {
	logger, err := utils.NewLogger(false, false)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	tuning, err := config.LoadTuning(cfg.InterviewConfigFile)
	if err != nil {
		logger.Fatal("Failed to load interview tuning", zap.Error(err))
	}

	logger.Info("Configuration loaded",
		zap.String("provider", cfg.Provider),
		zap.String("sandbox_driver", cfg.SandboxDriver),
		zap.Duration("session_idle_ttl", cfg.SessionIdleTTL))

	promptManager, err := prompts.NewPromptManager()
	if err != nil {
		logger.Fatal("Failed to initialize prompt manager", zap.Error(err))
	}
	aiProvider, err := llm.NewProvider(cfg.Provider)
	if err != nil {
		logger.Fatal("Failed to initialize AI provider", zap.Error(err))
	}

	startupCtx := context.Background()
	dependencies := map[string]handlers.Pinger{}

	// session history is optional: without it sessions run but are not kept
	var sessionStore interview.SessionStore
	var history handlers.SessionHistory
	var repo *store.SessionRepository
	db, err := initDatabase(cfg)
	if err != nil {
		logger.Error("Failed to initialize database, session history will be disabled", zap.Error(err))
	} else {
		repo = &store.SessionRepository{DB: db}
		history = repo
		dependencies["database"] = repo
	}

	var snapshots handlers.SnapshotCache
	var notifier store.Notifier
	rdb, err := initRedis(startupCtx, cfg)
	if err != nil {
		logger.Error("Failed to initialize redis, snapshot cache will be disabled", zap.Error(err))
	}
	if rdb != nil {
		snapshotCache := cache.NewSnapshotCache(rdb, cfg.SnapshotTTL)
		snapshots = snapshotCache
		notifier = snapshotCache
		dependencies["redis"] = snapshotCache
		defer rdb.Close()
	}
	if repo != nil {
		sessionStore = store.NewRecorder(repo, notifier, logger)
	}

	var documentRepo documents.Repository = documents.NewMemoryRepository()
	if cfg.MongoURI != "" {
		client, err := documents.Connect(startupCtx, cfg.MongoURI)
		if err != nil {
			logger.Fatal("Failed to connect to mongo", zap.Error(err))
		}
		defer client.Disconnect(context.Background())
		mongoRepo := documents.NewMongoRepository(client, cfg.MongoDatabase, cfg.MongoCollection)
		documentRepo = mongoRepo
		dependencies["mongo"] = mongoRepo
	} else {
		logger.Warn("MONGO_URI not set, documents are kept in memory")
	}

	runner, err := initRunner(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize code sandbox, coding answers will be disabled", zap.Error(err))
		runner = nil
	}

	registry := interview.NewRegistry(logger)
	observer := metrics.NewInterview(prometheus.DefaultRegisterer)
	observer.TrackActiveSessions(prometheus.DefaultRegisterer, registry.Len)

	evalOptions := evaluation.DefaultOptions()
	evalOptions.MaxFollowUps = tuning.MaxFollowUps
	evalOptions.MaxScore = tuning.MaxScore

	interviewHandler := handlers.NewInterviewHandler(handlers.InterviewDeps{
		Registry:  registry,
		Documents: documentRepo,
		Questions: questions.NewGenerator(aiProvider, promptManager, llm.DefaultRetryPolicy(), cfg.MaxDocumentChars, logger),
		Evaluator: evaluation.NewLLMEvaluator(aiProvider, promptManager, evalOptions, logger),
		Store:     sessionStore,
		History:   history,
		Snapshots: snapshots,
		Runner:    runner,
		Observer:  observer,
		Config:    tuning,
		Logger:    logger,
	})
	documentHandler := handlers.NewDocumentHandler(documentRepo, logger)
	healthHandler := handlers.NewHealthHandler(aiProvider, promptManager, cfg, dependencies)

	sweeper := jobs.NewSessionSweeperJob(registry, jobs.SweeperConfig{
		Schedule: cfg.SweepSchedule,
		IdleTTL:  cfg.SessionIdleTTL,
		Enabled:  true,
	}, logger)
	if err := sweeper.Start(); err != nil {
		logger.Fatal("Failed to start session sweeper", zap.Error(err))
	}

	router := chi.NewRouter()

	// cors middleware
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	router.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer, metrics.Middleware("interview"))

	registerRoutes(router, cfg.JWTSecret, interviewHandler, documentHandler, healthHandler)

	serverAddr := ":" + cfg.Port

	// http server with timeouts
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Interview service starting", zap.String("addr", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// wait for interrupt signal to gracefully shutdown the server
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChan

	logger.Info("Interview service shutting down...")
	sweeper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	// live sessions are not resumable across restarts
	registry.CloseAll()

	logger.Info("Interview service exited")
}
