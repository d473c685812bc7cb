package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "chargedesk/api/swagger" // swagger docs
	"chargedesk/internal/cache"
	"chargedesk/internal/config"
	"chargedesk/internal/database"
	"chargedesk/internal/handler"
	"chargedesk/internal/jobs"
	"chargedesk/internal/logger"
	"chargedesk/internal/middleware"
	"chargedesk/internal/notification"
	"chargedesk/internal/repository"
	"chargedesk/internal/scheduler"
	"chargedesk/internal/service"
	"chargedesk/internal/websocket"
	"chargedesk/pkg/validation"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const permissionCacheTTL = 5 * time.Minute

// @title           Charge Desk API
// @version         1.0
// @description     Tiered charge and tax schedules with a finance and CEO approval workflow.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	_ = godotenv.Load("configs/.env")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)

	db, err := database.NewConnection(cfg.Database, cfg.Log.Level)
	if err != nil {
		logger.Error("Database connection failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to PostgreSQL", "host", cfg.Database.Host, "db", cfg.Database.Name)

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Error("Migration failed", "error", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Repositories
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	typeRepo := repository.NewTransactionTypeRepository(db)
	rangeRepo := repository.NewChargeRangeRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)

	// Infrastructure
	redisClient := cache.NewRedisClient(ctx, cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
	}
	scheduleCache := cache.NewScheduleCache(redisClient, time.Duration(cfg.Redis.ScheduleTTLSeconds)*time.Second)

	wsHub := websocket.NewHub(cfg.Server.AllowedOrigins...)
	go wsHub.Run()

	dispatcher := notification.NewDispatcher(userRepo, notificationRepo, wsHub,
		notification.NewSendGridMailer(cfg.SendGrid),
		notification.Options{QueueSize: cfg.Notification.QueueSize, Currency: cfg.Currency})
	// outlives ctx so transitions finishing during shutdown still notify
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()
	dispatcher.Start(dispatchCtx)

	// Services
	access := service.NewAccessControl(userRepo, roleRepo, permissionCacheTTL)
	roleService := service.NewRoleService(txManager, roleRepo, userRepo, access)
	calculatorService := service.NewCalculatorService(typeRepo, rangeRepo, scheduleCache)
	typeService := service.NewTransactionTypeService(txManager, typeRepo, rangeRepo, auditRepo, access, scheduleCache)
	rangeService := service.NewChargeRangeService(txManager, rangeRepo, typeRepo, auditRepo, access, scheduleCache)
	approvalService := service.NewApprovalService(txManager, rangeRepo, typeRepo, auditRepo, access, scheduleCache, dispatcher)
	exportService := service.NewExportService(rangeRepo, access)
	auditService := service.NewAuditService(auditRepo, access)
	statisticsService := service.NewStatisticsService(statsRepo, access)
	notificationService := service.NewNotificationService(notificationRepo)

	if cfg.Database.Seed {
		if err := roleService.SeedDefaultRolesAndPermissions(ctx); err != nil {
			logger.Error("Failed to seed roles", "error", err)
			os.Exit(1)
		}
		if err := roleService.SeedDefaultUsers(ctx); err != nil {
			logger.Error("Failed to seed users", "error", err)
			os.Exit(1)
		}
		seeded, err := service.NewScheduleSeeder(txManager, typeRepo, rangeRepo, scheduleCache).SeedDefaultSchedule(ctx)
		if err != nil {
			logger.Error("Failed to seed charge schedule", "error", err)
			os.Exit(1)
		}
		logger.Info("Seeded default roles, permissions, users and charge schedule",
			"transaction_types", seeded.TransactionTypes, "charge_ranges", seeded.ChargeRanges)
	}

	// Background jobs
	cronScheduler := scheduler.NewScheduler(jobs.NewJobRunner(dispatcher, cfg))
	cronScheduler.Start()

	// Handlers
	calculatorHandler := handler.NewCalculatorHandler(calculatorService)
	typeHandler := handler.NewTransactionTypeHandler(typeService)
	rangeHandler := handler.NewChargeRangeHandler(rangeService, exportService)
	approvalHandler := handler.NewApprovalHandler(approvalService)
	auditHandler := handler.NewAuditHandler(auditService)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	roleHandler := handler.NewRoleHandler(roleService, access)

	gin.SetMode(cfg.Server.Mode)
	validation.UseJSONNames()
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	secret := []byte(cfg.JWT.Secret)
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, secret)
	})

	// Public v1 API
	public := router.Group("")
	calculatorHandler.RegisterRoutes(public)
	typeHandler.RegisterPublicRoutes(public)

	// Back office
	admin := router.Group("")
	admin.Use(middleware.Authenticate(secret))
	typeHandler.RegisterRoutes(admin)
	rangeHandler.RegisterRoutes(admin)
	approvalHandler.RegisterRoutes(admin)
	auditHandler.RegisterRoutes(admin)
	statisticsHandler.RegisterRoutes(admin)
	notificationHandler.RegisterRoutes(admin)
	roleHandler.RegisterRoutes(admin)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
	cronScheduler.Stop()
	stopDispatch()
	dispatcher.Wait()
}
