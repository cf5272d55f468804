package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"sign_learn_backend/internal/config"
	"sign_learn_backend/internal/controller"
	"sign_learn_backend/internal/model"
	"sign_learn_backend/internal/repository"
	"sign_learn_backend/internal/service"
	"sign_learn_backend/pkg/configwatcher"
	"sign_learn_backend/pkg/database"
	"sign_learn_backend/pkg/logger"
	"sign_learn_backend/pkg/monitoring"
	"sign_learn_backend/pkg/security"
	"sign_learn_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ConfigDir 配置文件目录，热加载监听其中的 config.yaml
var ConfigDir = "configs"

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)
	defaultTrack    atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	tracer *sdktrace.TracerProvider
}

type repositories struct {
	user        *repository.UserRepository
	course      *repository.CourseRepository
	enrollment  *repository.EnrollmentRepository
	achievement *repository.AchievementRepository
	catalog     *repository.CachedAchievementCatalog
	news        *repository.NewsRepository
}

type services struct {
	storage     *service.StorageService
	auth        *service.AuthService
	user        *service.UserService
	news        *service.NewsService
	enrollment  *service.EnrollmentService
	lesson      *service.LessonService
	progression *service.ProgressionService
	runs        *service.ExerciseRunService
}

type controllers struct {
	auth     *controller.AuthController
	exercise *controller.ExerciseController
	news     *controller.NewsController
	course   *controller.CourseController
	lesson   *controller.LessonController
	user     *controller.UserController
	sign     *controller.SignController
	health   *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// DefaultTrack 没有课程上下文的接口使用的轨道，随配置热更新
func (a *App) DefaultTrack() model.Track {
	return model.Track(a.defaultTrack.Load())
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	achievements := repository.NewAchievementRepository(db)
	return &repositories{
		user:        repository.NewUserRepository(db),
		course:      repository.NewCourseRepository(db),
		enrollment:  repository.NewEnrollmentRepository(db),
		achievement: achievements,
		catalog:     repository.NewCachedAchievementCatalog(achievements, rdb),
		news:        repository.NewNewsRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.user = service.NewUserService(repos.user, repos.achievement)
	s.news = service.NewNewsService(repos.news, repos.user, repos.course, cfg.Run.MaxFeedLimit, cfg.Run.MaxCommentLen)
	s.enrollment = service.NewEnrollmentService(repos.enrollment, repos.course, repos.user, s.news)
	s.lesson = service.NewLessonService(repos.course, repos.enrollment, repos.user, s.storage)
	s.progression = service.NewProgressionService(repos.user, repos.enrollment, repos.catalog, repos.news, cfg.Game)
	s.runs = service.NewExerciseRunService(repos.course, repos.enrollment, s.progression, service.NewRunStore(), s.storage)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:     controller.NewAuthController(s.auth),
		exercise: controller.NewExerciseController(s.runs),
		news:     controller.NewNewsController(s.news),
		course:   controller.NewCourseController(s.enrollment),
		lesson:   controller.NewLessonController(s.lesson),
		user:     controller.NewUserController(s.user),
		sign:     controller.NewSignController(s.storage),
		health:   controller.NewHealthController(db, rdb, s.runs.Runs),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	router.Use(security.RateLimiter(a.ctx, cfg.RateLimit.MaxRequests, window))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 定时回收长时间无操作的练习
func (a *App) startBackgroundTasks(s *services) {
	interval := a.Config.Run.ReapInterval
	if interval <= 0 || a.Config.Run.IdleTimeout <= 0 {
		logger.Log.Info("Idle run reaping disabled")
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-a.ctx.Done():
				return
			case <-ticker.C:
				if n := s.runs.ReapIdle(a.ctx, a.Config.Run.IdleTimeout); n > 0 {
					logger.Log.Info("Reaped idle exercise runs", zap.Int("count", n))
				}
			}
		}
	}()
}

// watchConfig game 段支持热更新：里程碑阈值与默认轨道
func (a *App) watchConfig(s *services, catalog *repository.CachedAchievementCatalog) {
	a.RegisterConfigCallback(func(cfg *config.Config) {
		s.progression.SetRules(cfg.Game)
		// 新阈值对应的成就可能刚写入目录
		catalog.Invalidate()
		a.defaultTrack.Store(cfg.Game.IsLibrasDefault())
		logger.Log.Info("Game settings reloaded",
			zap.String("default_track", cfg.Game.DefaultTrack),
			zap.Ints("level_milestones", cfg.Game.LevelMilestones),
		)
	})

	file := filepath.Join(ConfigDir, "config.yaml")
	if _, err := os.Stat(file); err != nil {
		return
	}
	go func() {
		err := configwatcher.WatchConfig(a.ctx, file, func(cfg *config.Config) {
			for _, callback := range a.configCallbacks {
				callback(cfg)
			}
		})
		if err != nil {
			logger.Log.Error("Config watcher stopped", zap.Error(err))
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.Open(&cfg.Database, cfg.Server.Mode == "debug")
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	// release 模式默认不自动迁移
	if cfg.Server.Mode != "release" || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
		logger.Log.Info("Database migration completed")
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		// 缓存不可用时退回进程内缓存
		logger.Log.Warn("Redis unavailable, achievement cache stays in memory", zap.Error(err))
		rdb = nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		ctx:    ctx,
		cancel: cancel,
	}
	app.defaultTrack.Store(cfg.Game.IsLibrasDefault())
	if cfg.MigrateOnly {
		return app
	}

	repos := app.initRepositories(db, rdb)
	services := app.initServices(repos, cfg)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("sign-learn-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(services)
	app.watchConfig(services, repos.catalog)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// 停止回收任务与配置监听
	a.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	logger.Log.Info("Server exiting")
}
