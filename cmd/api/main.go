package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/eduschedule/eduschedule-api/api/swagger"
	"github.com/eduschedule/eduschedule-api/internal/handler"
	"github.com/eduschedule/eduschedule-api/internal/middleware"
	"github.com/eduschedule/eduschedule-api/internal/repository"
	"github.com/eduschedule/eduschedule-api/internal/schedule"
	"github.com/eduschedule/eduschedule-api/internal/service"
	"github.com/eduschedule/eduschedule-api/pkg/cache"
	"github.com/eduschedule/eduschedule-api/pkg/config"
	"github.com/eduschedule/eduschedule-api/pkg/database"
	"github.com/eduschedule/eduschedule-api/pkg/logger"
	corsmiddleware "github.com/eduschedule/eduschedule-api/pkg/middleware/cors"
	reqidmiddleware "github.com/eduschedule/eduschedule-api/pkg/middleware/requestid"
)

// @title EduSchedule API
// @version 1.0.0
// @description Classroom and course scheduling with recurrence-aware conflict validation
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, agenda caching disabled", "error", err)
		redisClient = nil
	}

	holidays, err := schedule.NewHolidayCalendar(cfg.Holidays.Dates)
	if err != nil {
		logr.Sugar().Fatalw("invalid holiday configuration", "error", err)
	}

	eventRepo := repository.NewEventRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)
	agendaCache := repository.NewAgendaCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(service.AuthConfig{Secret: cfg.JWT.Secret}, logr)
	engine := schedule.NewValidator(holidays.Func())

	eventSvc := service.NewEventService(eventRepo, agendaCache, engine, metricsSvc, nil, logr)
	agendaSvc := service.NewAgendaService(eventRepo, calendarRepo, agendaCache, holidays.Func(), metricsSvc, cfg.Agenda.CacheTTL, logr)
	classroomSvc := service.NewClassroomService(classroomRepo, eventRepo, nil, logr)
	courseSvc := service.NewCourseService(courseRepo, nil, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, nil, logr)
	calendarSvc := service.NewCalendarService(calendarRepo, nil, logr)

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		exportSvc = service.NewExportService(eventRepo, classroomRepo, calendarRepo, holidays.Func(), cfg.Exports.CalendarName, logr)
	}

	eventHandler := handler.NewEventHandler(eventSvc)
	agendaHandler := handler.NewAgendaHandler(agendaSvc)
	classroomHandler := handler.NewClassroomHandler(classroomSvc, exportSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	calendarHandler := handler.NewCalendarHandler(calendarSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	requireAuth := middleware.JWT(authSvc)
	requireManager := middleware.RequireEventManager()

	api.GET("/events", eventHandler.List)
	api.GET("/events/:id", eventHandler.Get)
	api.POST("/events", requireAuth, requireManager, eventHandler.Create)
	api.PUT("/events/:id", requireAuth, requireManager, eventHandler.Update)
	api.DELETE("/events/:id", requireAuth, requireManager, eventHandler.Delete)
	api.DELETE("/events/:id/occurrences/:date", requireAuth, requireManager, eventHandler.CancelOccurrence)

	api.GET("/agenda", middleware.OptionalJWT(authSvc), agendaHandler.Day)

	api.GET("/classrooms", classroomHandler.List)
	api.GET("/classrooms/:id", classroomHandler.Get)
	api.GET("/classrooms/:id/events", classroomHandler.Events)
	api.POST("/classrooms", requireAuth, requireManager, classroomHandler.Create)
	api.PUT("/classrooms/:id", requireAuth, requireManager, classroomHandler.Update)
	api.DELETE("/classrooms/:id", requireAuth, requireManager, classroomHandler.Delete)

	api.GET("/courses", courseHandler.List)
	api.GET("/courses/:id", courseHandler.Get)
	api.POST("/courses", requireAuth, requireManager, courseHandler.Create)
	api.PUT("/courses/:id", requireAuth, requireManager, courseHandler.Update)
	api.DELETE("/courses/:id", requireAuth, requireManager, courseHandler.Delete)

	api.GET("/teachers", teacherHandler.List)
	api.GET("/teachers/:id", teacherHandler.Get)
	api.POST("/teachers", requireAuth, requireManager, teacherHandler.Create)
	api.PUT("/teachers/:id", requireAuth, requireManager, teacherHandler.Update)
	api.DELETE("/teachers/:id", requireAuth, requireManager, teacherHandler.Delete)

	api.GET("/calendars", requireAuth, calendarHandler.List)
	api.GET("/calendars/:id", requireAuth, calendarHandler.Get)
	api.POST("/calendars", requireAuth, calendarHandler.Create)
	api.PUT("/calendars/:id", requireAuth, calendarHandler.Update)
	api.DELETE("/calendars/:id", requireAuth, calendarHandler.Delete)

	if exportSvc != nil {
		exportHandler := handler.NewExportHandler(exportSvc)
		api.GET("/export/ics", exportHandler.ICS)
		api.GET("/export/events.csv", exportHandler.CSV)
		api.GET("/classrooms/:id/timetable.pdf", classroomHandler.Timetable)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
