package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-timetable-api/api/swagger"
	"github.com/noah-isme/sma-timetable-api/internal/handler"
	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/cache"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
)

// @title SMA Timetable API
// @version 1.0.0
// @description Timetable generation, exam planning, rescheduling and approval.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(context.Background(), cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, snapshot cache disabled", zap.Error(err))
		redisClient = nil
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	snapshotCacheRepo := repository.NewSnapshotCacheRepository(redisClient, logr)
	defer snapshotCacheRepo.Close() //nolint:errcheck
	snapshotCache := service.NewSnapshotCache(snapshotCacheRepo, metrics, cfg.Snapshots.CacheTTL, logr, snapshotCacheRepo.Enabled())

	roomRepo := repository.NewRoomRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	classRepo := repository.NewClassRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	examRepo := repository.NewExamRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	roomChangeRepo := repository.NewRoomChangeRepository(db)

	// Every schedule mutation goes through this lock.
	var scheduleLock sync.Mutex

	slots := make([]scheduler.TimeRange, 0, len(cfg.Scheduler.TimeSlots))
	for _, ts := range cfg.Scheduler.TimeSlots {
		slots = append(slots, scheduler.TimeRange{Start: ts.Start, End: ts.End})
	}

	resourceSvc := service.NewResourceService(roomRepo, courseRepo, teacherRepo, classRepo, validate, logr)
	timetableSvc := service.NewTimetableService(timetableRepo, resourceSvc, db, &scheduleLock, service.TimetableConfig{
		Days:              cfg.Scheduler.Days,
		TimeSlots:         slots,
		Policy:            cfg.Scheduler.Policy,
		LecturesPerCourse: cfg.Scheduler.LecturesPerCourse,
		LabBlocks:         cfg.Scheduler.LabBlocks,
		Seed:              cfg.Scheduler.Seed,
	}, metrics, validate, logr)
	rescheduleSvc := service.NewRescheduleService(timetableRepo, roomChangeRepo, resourceSvc, db, &scheduleLock, service.RescheduleConfig{
		FullCheck: cfg.Scheduler.RescheduleCheck == config.RescheduleCheckFull,
	}, metrics, validate, logr)
	examSvc := service.NewExamService(examRepo, resourceSvc, db, &scheduleLock, cfg.Scheduler.ExamWindowDays, metrics, validate, logr)
	snapshotSvc := service.NewSnapshotService(snapshotRepo, timetableRepo, examRepo, resourceSvc, db, &scheduleLock, snapshotCache, metrics, validate, logr)
	authSvc := service.NewAuthService(cfg.JWT.Secret, cfg.JWT.Issuer)

	timetableHandler := handler.NewTimetableHandler(timetableSvc, snapshotSvc)
	rescheduleHandler := handler.NewRescheduleHandler(rescheduleSvc)
	examHandler := handler.NewExamHandler(examSvc)
	snapshotHandler := handler.NewSnapshotHandler(snapshotSvc)
	resourceHandler := handler.NewResourceHandler(resourceSvc)

	checks := map[string]handler.Pinger{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = cache.HealthCheck(redisClient)
	}
	metricsHandler := handler.NewMetricsHandler(metrics, checks)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	editors := api.Group("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin, models.RoleCoordinator))

	api.GET("/timetable", timetableHandler.List)
	api.GET("/timetable/export", timetableHandler.Export)
	api.GET("/timetable/room-changes", rescheduleHandler.RoomChanges)
	api.GET("/timetable/alternatives", rescheduleHandler.Alternatives)
	editors.PUT("/timetable/entries/:id/reschedule", rescheduleHandler.Reschedule)
	editors.PUT("/timetable/entries/:id/room", rescheduleHandler.ChangeRoom)

	api.GET("/exams", examHandler.List)

	if cfg.Scheduler.Enabled {
		editors.POST("/timetable/generate", timetableHandler.Generate)
		editors.POST("/exams/generate", examHandler.Generate)
	} else {
		logr.Info("scheduler disabled, generate endpoints not registered")
	}

	api.GET("/snapshots", snapshotHandler.List)
	api.GET("/snapshots/active", snapshotHandler.Active)
	api.GET("/snapshots/:id", snapshotHandler.Get)
	editors.POST("/snapshots", snapshotHandler.Approve)
	editors.POST("/snapshots/reject", snapshotHandler.Reject)
	editors.POST("/snapshots/:id/activate", snapshotHandler.Activate)

	api.GET("/rooms", resourceHandler.ListRooms)
	api.GET("/rooms/available", rescheduleHandler.AvailableRooms)
	editors.POST("/rooms", resourceHandler.CreateRoom)
	api.GET("/courses", resourceHandler.ListCourses)
	editors.POST("/courses", resourceHandler.CreateCourse)
	api.GET("/teachers", resourceHandler.ListTeachers)
	api.GET("/teachers/:id/timetable", snapshotHandler.TeacherTimetable)
	editors.POST("/teachers", resourceHandler.CreateTeacher)
	api.GET("/classes", resourceHandler.ListClasses)
	editors.POST("/classes", resourceHandler.CreateClass)
	api.GET("/classes/:id/assignments", resourceHandler.ListAssignments)
	editors.POST("/classes/:id/assignments", resourceHandler.Assign)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "policy", cfg.Scheduler.Policy)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
