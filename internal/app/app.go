package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"watchlearn/internal/config"
	"watchlearn/internal/controller"
	"watchlearn/internal/outbox"
	"watchlearn/internal/repository"
	"watchlearn/internal/service"
	"watchlearn/pkg/configwatcher"
	"watchlearn/pkg/database"
	"watchlearn/pkg/logger"
	"watchlearn/pkg/monitoring"
	"watchlearn/pkg/security"
	"watchlearn/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const configDir = "configs"

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracer          *sdktrace.TracerProvider
	cron            *cron.Cron
	stop            context.CancelFunc
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user         *repository.UserRepository
	quiz         *repository.QuizRepository
	attempt      *repository.AttemptRepository
	gamification *repository.GamificationRepository
	badge        *repository.BadgeRepository
}

type services struct {
	auth        *service.AuthService
	user        *service.UserService
	media       *service.MediaService
	quiz        *service.QuizService
	attempts    *service.AttemptService
	submissions *service.SubmissionService
	leaderboard *service.LeaderboardService
	badge       *service.BadgeService
	dashboard   *service.DashboardService
	drainer     *outbox.Drainer
}

type controllers struct {
	auth        *controller.AuthController
	user        *controller.UserController
	quiz        *controller.QuizController
	attempt     *controller.AttemptController
	leaderboard *controller.LeaderboardController
	badge       *controller.BadgeController
	dashboard   *controller.DashboardController
	outbox      *controller.OutboxController
	health      *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:         repository.NewUserRepository(db),
		quiz:         repository.NewQuizRepository(db),
		attempt:      repository.NewAttemptRepository(db),
		gamification: repository.NewGamificationRepository(db),
		badge:        repository.NewBadgeRepository(db),
	}
}

func outboxPolicy(cfg *config.OutboxConfig) outbox.Policy {
	return outbox.Policy{
		BaseBackoff: cfg.BaseBackoff,
		MaxBackoff:  cfg.MaxBackoff,
		MaxAttempts: cfg.MaxAttempts,
	}
}

func newJournal(cfg *config.OutboxConfig, rdb *redis.Client) outbox.Journal {
	if cfg.Journal == "redis" {
		return outbox.NewRedisJournal(rdb)
	}
	logger.Log.Warn("Outbox journal is in memory, pending submissions are lost on restart")
	return outbox.NewMemoryJournal()
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	storage := service.NewStorageService(cfg)
	s.media = service.NewMediaService(storage, &cfg.Media)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.user = service.NewUserService(repos.user, s.media)
	s.quiz = service.NewQuizService(repos.quiz, repos.attempt, s.media)
	s.attempts = service.NewAttemptService(repos.quiz, &cfg.Attempt)
	s.leaderboard = service.NewLeaderboardService(repos.gamification, rdb, cfg.Leaderboard.CacheTTL, cfg.Leaderboard.Limit)
	s.drainer = outbox.NewDrainer(newJournal(&cfg.Outbox, rdb), outboxPolicy(&cfg.Outbox),
		outbox.WithPollInterval(cfg.Outbox.PollInterval))
	s.submissions = service.NewSubmissionService(s.attempts, repos.attempt, repos.gamification, s.leaderboard, s.drainer, &cfg.Attempt)
	s.badge = service.NewBadgeService(repos.badge, repos.gamification, s.media)
	s.dashboard = service.NewDashboardService(repos.attempt, repos.gamification, repos.user)

	a.RegisterConfigCallback(func(c *config.Config) {
		s.drainer.SetPolicy(outboxPolicy(&c.Outbox))
		s.leaderboard.SetTTL(c.Leaderboard.CacheTTL)
	})

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:        controller.NewAuthController(s.auth),
		user:        controller.NewUserController(s.user),
		quiz:        controller.NewQuizController(s.quiz),
		attempt:     controller.NewAttemptController(s.attempts, s.submissions, s.dashboard),
		leaderboard: controller.NewLeaderboardController(s.leaderboard),
		badge:       controller.NewBadgeController(s.badge),
		dashboard:   controller.NewDashboardController(s.dashboard, s.badge),
		outbox:      controller.NewOutboxController(s.drainer),
		health:      controller.NewHealthController(db, rdb, s.drainer.Journal()),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(s *services, cfg *config.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	a.stop = cancel

	go s.drainer.Run(ctx)

	a.cron = cron.New()
	if _, err := a.cron.AddFunc(cfg.Leaderboard.RefreshCron, func() {
		if err := s.leaderboard.Refresh(ctx); err != nil {
			logger.Log.Error("Leaderboard refresh failed", zap.Error(err))
		}
	}); err != nil {
		logger.Log.Error("Invalid leaderboard refresh schedule", zap.String("spec", cfg.Leaderboard.RefreshCron), zap.Error(err))
	}
	a.cron.AddFunc("@every 1m", func() {
		if n := s.attempts.Sweep(); n > 0 {
			logger.Log.Info("Expired idle attempts", zap.Int("count", n))
		}
	})
	a.cron.AddFunc("@every 15s", func() { s.drainer.ReportDepth(ctx) })
	a.cron.Start()

	watcher := configwatcher.New(configDir + "/config.yaml")
	go func() {
		err := watcher.Run(ctx, func(c *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(c)
			}
			logger.Log.Info("Configuration reloaded")
		})
		if err != nil {
			logger.Log.Warn("Config watcher stopped", zap.Error(err))
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.Server.Mode != "release" || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app
	}

	// the leaderboard cache degrades without redis, the journal does not
	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		if cfg.Outbox.Journal == "redis" {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		}
		logger.Log.Warn("Redis unavailable, leaderboard cache disabled", zap.Error(err))
		rdb = nil
	}
	app.Redis = rdb

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Error("Failed to initialize tracing", zap.Error(err))
		} else {
			app.tracer = tp
		}
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, services, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(services, cfg)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	// no new submissions can arrive now; sessions in memory are dropped
	a.services.attempts.Shutdown()
	<-a.cron.Stop().Done()
	a.stop()

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Log.Info("Server exiting")
}
