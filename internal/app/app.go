package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"learnhub_backend/internal/config"
	"learnhub_backend/internal/controller"
	"learnhub_backend/internal/policy"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/configwatcher"
	"learnhub_backend/pkg/database"
	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/monitoring"
	"learnhub_backend/pkg/security"
	"learnhub_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	repos           *repositories
	services        *services
	tracer          *sdktrace.TracerProvider
	limiter         *security.RateLimiter
	configCallbacks []func(*config.Config)
}

type repositories struct {
	quiz     service.QuizStore
	attempt  service.AttemptStore
	quizList *repository.QuizListCache
}

type services struct {
	storage     *service.StorageService
	quiz        *service.QuizService
	studentQuiz *service.StudentQuizService
	review      *service.ReviewService
}

type controllers struct {
	quiz        *controller.QuizController
	studentQuiz *controller.StudentQuizController
	review      *controller.ReviewController
	health      *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// initRepositories db 为 nil 时使用内存存储
func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *repositories {
	repos := &repositories{
		quizList: repository.NewQuizListCache(rdb, cfg.Quiz.ListCacheTTL()),
	}
	if db == nil {
		repos.quiz = repository.NewMemoryQuizRepository()
		repos.attempt = repository.NewMemoryAttemptRepository()
		return repos
	}
	repos.quiz = repository.NewQuizRepository(db)
	repos.attempt = repository.NewAttemptRepository(db)
	return repos
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}
	access := policy.NewOwnerPolicy()

	s.storage = service.NewStorageService(&cfg.Storage)
	s.quiz = service.NewQuizService(repos.quiz, repos.quizList, access)
	s.studentQuiz = service.NewStudentQuizService(repos.quiz, repos.attempt, repos.quizList, access)
	s.review = service.NewReviewService(repos.quiz, repos.attempt, s.storage, cfg.Quiz)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		quiz:        controller.NewQuizController(s.quiz),
		studentQuiz: controller.NewStudentQuizController(s.studentQuiz),
		review:      controller.NewReviewController(s.review),
		health:      controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure(swaggerPrefix))

	a.limiter = security.NewRateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	router.Use(a.limiter.Handler())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// NewApp 初始化日志、数据库、缓存与监控后组装应用
func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	var db *gorm.DB
	if cfg.Database.Driver != util.DriverMemory {
		var err error
		db, err = database.InitDB(&cfg.Database, cfg.Server.Mode == gin.DebugMode)
		if err != nil {
			logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		}

		// release 模式默认不自动迁移，需要 -migrate
		if cfg.Server.Mode != gin.ReleaseMode || cfg.ForceMigrate {
			if err := database.Migrate(db); err != nil {
				logger.Log.Fatal("Failed to migrate database", zap.Error(err))
			}
		}
	} else {
		logger.Log.Warn("Using in-memory storage, data is lost on restart")
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		// 缓存不是必需的
		logger.Log.Warn("Redis unavailable, quiz list cache disabled", zap.Error(err))
		rdb = nil
	}

	// 监控初始化
	monitoring.Init()

	app := Build(cfg, db, rdb)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(&cfg.Tracing)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.RegisterConfigCallback(func(newCfg *config.Config) {
		logger.SetLevel(newCfg)
	})
	app.RegisterConfigCallback(app.applyQuizConfig)

	return app
}

// Build 组装存储、服务与路由；db 为 nil 时使用内存存储，rdb 为 nil 时不缓存
func Build(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	gin.SetMode(cfg.Server.Mode)
	controller.RegisterBindingRules()

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	app.repos = app.initRepositories(db, rdb, cfg)
	app.services = app.initServices(app.repos, cfg)
	controllers := app.initControllers(app.services, db, rdb)

	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	return app
}

// applyQuizConfig 热更新练习题限制与学生端列表缓存时长
func (a *App) applyQuizConfig(newCfg *config.Config) {
	a.services.review.ApplyConfig(newCfg.Quiz)
	a.repos.quizList.SetTTL(newCfg.Quiz.ListCacheTTL())
	logger.Log.Info("quiz settings reloaded",
		zap.Int("listCacheSeconds", newCfg.Quiz.ListCacheSeconds),
		zap.Int("practiceMaxQuestions", newCfg.Quiz.PracticeMaxQuestions),
	)
}

func (a *App) watchConfig(ctx context.Context) {
	if a.Config.Dir == "" || len(a.configCallbacks) == 0 {
		return
	}
	err := configwatcher.Watch(ctx, a.Config.Dir, func(newCfg *config.Config) {
		for _, callback := range a.configCallbacks {
			callback(newCfg)
		}
	})
	if err != nil {
		logger.Log.Warn("Config hot reload disabled", zap.Error(err))
	}
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.watchConfig(ctx)
	a.limiter.Start()

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	<-ctx.Done()
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	a.Close(shutdownCtx)

	logger.Log.Info("Server exiting")
	_ = logger.Log.Sync()
}

// Close 释放追踪、缓存与数据库连接
func (a *App) Close(ctx context.Context) {
	a.limiter.Close()
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
