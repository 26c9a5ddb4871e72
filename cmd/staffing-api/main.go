package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emsops/shiftcommander-api/internal/dto"
	"github.com/emsops/shiftcommander-api/internal/handler"
	"github.com/emsops/shiftcommander-api/internal/middleware"
	"github.com/emsops/shiftcommander-api/internal/repository"
	"github.com/emsops/shiftcommander-api/internal/service"
	"github.com/emsops/shiftcommander-api/pkg/cache"
	"github.com/emsops/shiftcommander-api/pkg/config"
	"github.com/emsops/shiftcommander-api/pkg/database"
	"github.com/emsops/shiftcommander-api/pkg/logger"
	corsmiddleware "github.com/emsops/shiftcommander-api/pkg/middleware/cors"
	reqidmiddleware "github.com/emsops/shiftcommander-api/pkg/middleware/requestid"
)

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
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, radar cache disabled", "error", err)
		redisClient = nil
	}

	weekRepo := repository.NewWeekRepository(db)
	shiftRepo := repository.NewShiftRepository(db)
	seatRepo := repository.NewSeatRepository(db)
	rosterRepo := repository.NewRosterRepository(db)

	metricsSvc := service.NewMetricsService()
	calendarSvc := service.NewCalendarService(weekRepo, shiftRepo, seatRepo, db, nil, logr, metricsSvc, service.CalendarConfig{
		RotationUnits: cfg.Rotation.Units,
		LockLeadDays:  cfg.Rotation.LockLeadDays,
	})
	rotationSvc := service.NewRotationService(weekRepo, shiftRepo, rosterRepo, calendarSvc, db, nil, logr, metricsSvc, cfg.Rotation.Units)
	reconcileSvc := service.NewReconcileService(seatRepo, db, logr, metricsSvc)
	seatSvc := service.NewSeatService(seatRepo, nil, logr)
	rosterSvc := service.NewRosterService(rosterRepo, db, logr, cfg.Rotation.Units)
	importSvc := service.NewImportService(calendarSvc, seatRepo, reconcileSvc, db, nil, logr, cfg.Rotation.DefaultFirstOut, cfg.Rotation.WeekStartDay, cfg.Backfill)
	exportSvc := service.NewExportService(calendarSvc, seatRepo, logr)
	radarSvc := service.NewFragilityService(calendarSvc, rosterRepo, redisClient, logr, metricsSvc, cfg.Radar.CacheTTL, dto.RadarPolicy{
		AllowNonMedicalDriver: cfg.Radar.AllowNonMedicalDriver,
	})

	scheduleHandler := handler.NewScheduleHandler(calendarSvc, rotationSvc)
	seatHandler := handler.NewSeatHandler(seatSvc, reconcileSvc)
	fragilityHandler := handler.NewFragilityHandler(radarSvc)
	rosterHandler := handler.NewRosterHandler(rosterSvc, importSvc)
	exportHandler := handler.NewExportHandler(exportSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/weeks", scheduleHandler.GenerateWeek)
		api.POST("/weeks/ensure", scheduleHandler.EnsureWeek)
		api.GET("/weeks", scheduleHandler.ListWeeks)
		api.GET("/weeks/:id", scheduleHandler.GetWeek)
		api.POST("/weeks/:id/first-out", scheduleHandler.ApplyFirstOut)
		api.POST("/rotation/plan", scheduleHandler.PlanRotation)

		api.GET("/weeks/:id/seats", seatHandler.ListByWeek)
		api.GET("/shifts/:id/seats", seatHandler.ListByShift)
		api.PUT("/seats/:id/assignment", seatHandler.UpdateAssignment)
		api.POST("/seats/reconcile", seatHandler.Reconcile)

		api.GET("/weeks/:id/radar", fragilityHandler.WeekRadar)
		api.GET("/weeks/:id/export/csv", exportHandler.WeekCSV)
		api.GET("/weeks/:id/export/pdf", exportHandler.WeekPDF)

		api.GET("/people", rosterHandler.ListPeople)
		api.GET("/people/:id/schedule", seatHandler.PersonSchedule)
		api.GET("/units", rosterHandler.ListUnits)
		api.GET("/placeholders", rosterHandler.ListPlaceholders)
		api.POST("/roster/import", rosterHandler.ImportRoster)
		api.POST("/history/import", rosterHandler.ImportHistory)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
