package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/sma-timetable-api/api/swagger"
	"github.com/noah-isme/sma-timetable-api/internal/handler"
	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/cache"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-timetable-api/pkg/storage"
)

// @title SMA Timetable API
// @version 1.0.0
// @description Weekly timetable generation and management service
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Timetable.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close() //nolint:errcheck
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Timetable.CacheTTL, logr, cfg.Timetable.CacheEnabled)

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "sma-timetable-api",
	})
	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	roomSvc := service.NewRoomService(roomRepo, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, validate, logr)
	settingsSvc := service.NewSettingsService(settingsRepo, validate, logr)
	timetableSvc := service.NewTimetableService(timetableRepo, teacherRepo, cacheSvc, logr, cfg.Timetable.CacheTTL)
	generatorSvc := service.NewGeneratorService(settingsRepo, courseRepo, roomRepo, teacherRepo, timetableRepo,
		cacheSvc, metricsSvc, validate, logr, service.GeneratorServiceConfig{
			Seed:                 cfg.Generator.Seed,
			DefaultMaxLoadPerDay: cfg.Generator.MaxLoadPerDay,
		})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var exportHandler *handler.ExportHandler
	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc := service.NewExportService(timetableRepo, courseRepo, teacherRepo, roomRepo,
			exportStore, signer, service.ExportConfig{
				APIPrefix: cfg.APIPrefix,
				ResultTTL: cfg.Exports.SignedURLTTL,
			}, logr, nil, nil)
		worker := service.NewExportWorker(exportJobRepo, exportSvc, logr, cfg.Exports.WorkerRetries)
		exportQueue = jobs.NewQueue("timetable-exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportQueue.Start(ctx)

		exportJobsSvc := service.NewExportJobsService(exportJobRepo, exportQueue, exportSvc, validate, logr)
		exportJobsSvc.StartCleanup(ctx, cfg.Exports.CleanupInterval)
		exportHandler = handler.NewExportHandler(exportJobsSvc)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	authHandler := handler.NewAuthHandler(authSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	roomHandler := handler.NewRoomHandler(roomSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	settingsHandler := handler.NewSettingsHandler(settingsSvc)
	timetableHandler := handler.NewTimetableHandler(timetableSvc)
	generatorHandler := handler.NewGeneratorHandler(generatorSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	authed := api.Group("", middleware.JWT(authSvc))
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	adminOrTeacher := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)

	courses := authed.Group("/courses")
	courses.GET("", courseHandler.List)
	courses.GET("/classes", courseHandler.ListClasses)
	courses.GET("/:id", courseHandler.Get)
	courses.POST("", adminOnly, courseHandler.Create)
	courses.PUT("/:id", adminOnly, courseHandler.Update)
	courses.DELETE("/:id", adminOnly, courseHandler.Delete)

	rooms := authed.Group("/rooms")
	rooms.GET("", roomHandler.List)
	rooms.GET("/:id", roomHandler.Get)
	rooms.POST("", adminOnly, roomHandler.Create)
	rooms.PUT("/:id", adminOnly, roomHandler.Update)
	rooms.DELETE("/:id", adminOnly, roomHandler.Delete)

	teachers := authed.Group("/teachers")
	teachers.GET("", teacherHandler.List)
	teachers.GET("/me", teacherHandler.Me)
	teachers.GET("/:id", teacherHandler.Get)
	teachers.POST("", adminOnly, teacherHandler.Create)
	teachers.PUT("/:id", adminOnly, teacherHandler.Update)
	teachers.PUT("/:id/unavailability", adminOrTeacher, teacherHandler.UpdateUnavailability)
	teachers.DELETE("/:id", adminOnly, teacherHandler.Delete)

	settings := authed.Group("/settings")
	settings.GET("", settingsHandler.Get)
	settings.PUT("", adminOnly, settingsHandler.Update)

	timetables := authed.Group("/timetables")
	timetables.GET("/my-schedule", adminOrTeacher, timetableHandler.MySchedule)
	timetables.POST("/generate", adminOnly, generatorHandler.Generate)
	timetables.GET("/:batch/:section", timetableHandler.GetByClass)

	api.GET("/system/metrics", middleware.JWT(authSvc), adminOnly, metricsHandler.Snapshot)

	if exportHandler != nil {
		exports := authed.Group("/exports")
		exports.POST("", adminOrTeacher, exportHandler.Create)
		exports.GET("", exportHandler.List)
		exports.GET("/:id", exportHandler.Status)
		// Download is token-authenticated, not JWT-authenticated.
		api.GET("/exports/download/:token", exportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
	if exportQueue != nil {
		exportQueue.Stop()
	}
	logr.Sugar().Infow("server stopped")
}
