// Package v1 provides HTTP API version 1.
package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rwpay/internal/domain/auth"
	"rwpay/internal/infrastructure/http/v1/handlers"
	"rwpay/internal/infrastructure/http/v1/middleware"
	"rwpay/pkg/logger"
)

// RouterConfig holds the services and infrastructure the API is built from.
type RouterConfig struct {
	// DB is pinged by the readiness probe.
	DB handlers.Pinger

	Logger       *logger.Logger
	JWTValidator middleware.JWTValidator

	AuthService     handlers.AuthService
	ResidentService handlers.ResidentService
	PaymentService  handlers.PaymentService
	MeterService    handlers.MeterService
	SettingsService handlers.SettingsService
	ReportsService  handlers.ReportsService
	Activity        handlers.ActivityReader

	// IdempotencyStore enables X-Idempotency-Key handling when set.
	IdempotencyStore middleware.IdempotencyStore

	// Metrics records request metrics and serves /metrics when set.
	Metrics        middleware.HTTPObserver
	MetricsHandler http.Handler

	CORSOrigins []string
	Development bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := middleware.RegisterValidators(); err != nil {
		cfg.Logger.Errorw("register binding validators", "error", err)
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	if cfg.Metrics != nil {
		router.Use(middleware.Metrics(cfg.Metrics))
	}
	if len(cfg.CORSOrigins) > 0 {
		router.Use(middleware.CORS(cfg.CORSOrigins))
	}
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.DB)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}
	if cfg.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	base := handlers.NewBaseHandler()

	v1 := router.Group("/api/v1")
	{
		authHandler := handlers.NewAuthHandler(base, cfg.AuthService)
		publicAuth := v1.Group("/auth")
		publicAuth.POST("/login", authHandler.Login)
		publicAuth.POST("/refresh", authHandler.Refresh)

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))
		if cfg.IdempotencyStore != nil {
			protected.Use(middleware.Idempotency(cfg.IdempotencyStore))
		}

		protected.POST("/auth/logout", authHandler.Logout)
		protected.GET("/auth/me", authHandler.Me)
		protected.POST("/auth/admins", middleware.RequirePermission(auth.PermAdminsManage), authHandler.CreateAdmin)

		registerResidentRoutes(protected, base, cfg)
		registerPaymentRoutes(protected, base, cfg)
		registerMeterRoutes(protected, base, cfg)
		registerSettingsRoutes(protected, base, cfg)
		registerReportRoutes(protected, base, cfg)

		activity := handlers.NewActivityHandler(base, cfg.Activity)
		protected.GET("/activity/:table/*id", middleware.RequirePermission(auth.PermReportsRead), activity.History)
	}

	return router
}

func registerResidentRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewResidentHandler(base, cfg.ResidentService)
	group := rg.Group("/residents")

	// Static segment first so it is not captured by /:id.
	group.GET("/house-number-available", middleware.RequirePermission(auth.PermResidentsRead), h.HouseNumberAvailable)
	RegisterCRUDRoutes(group, h, auth.PermResidentsRead, auth.PermResidentsWrite)
}

func registerPaymentRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewPaymentHandler(base, cfg.PaymentService)
	read := middleware.RequirePermission(auth.PermPaymentsRead)
	write := middleware.RequirePermission(auth.PermPaymentsWrite)

	group := rg.Group("/payments")
	group.GET("", read, h.List)
	group.GET("/recent", read, h.Recent)
	group.POST("/confirm", write, h.Confirm)
	group.POST("/bills", write, h.CreateBill)
	group.POST("/generate", write, h.Generate)
	group.POST("/sweep-overdue", write, h.SweepOverdue)
	group.GET("/:id", read, h.Get)
	group.PUT("/:id", write, h.Update)
	group.DELETE("/:id", write, h.Delete)
	group.POST("/:id/mark-paid", write, h.MarkPaid)
	group.POST("/:id/mark-overdue", write, h.MarkOverdue)

	invoices := handlers.NewReportsHandler(base, cfg.ReportsService)
	group.GET("/:id/invoice", read, invoices.Invoice)
}

func registerMeterRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewMeterHandler(base, cfg.MeterService, cfg.ReportsService.CurrentMonth)

	group := rg.Group("/meter-readings")
	group.GET("", middleware.RequirePermission(auth.PermPaymentsRead), h.ListByMonth)
	group.PUT("", middleware.RequirePermission(auth.PermPaymentsWrite), h.Record)
}

func registerSettingsRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewSettingsHandler(base, cfg.SettingsService)
	read := middleware.RequirePermission(auth.PermSettingsRead)
	write := middleware.RequirePermission(auth.PermSettingsWrite)

	group := rg.Group("/settings")
	group.GET("", read, h.List)
	group.PUT("", write, h.UpsertMany)
	group.GET("/:key", read, h.Get)
	group.PUT("/:key", write, h.Upsert)
	group.DELETE("/:key", write, h.Delete)
}

func registerReportRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewReportsHandler(base, cfg.ReportsService)
	read := middleware.RequirePermission(auth.PermReportsRead)

	group := rg.Group("/reports")
	group.GET("/monthly", read, h.Monthly)
	group.GET("/dashboard", read, h.Dashboard)
	group.GET("/trends", read, h.Trends)
	group.GET("/residents-distribution", read, h.Distribution)
	group.GET("/unpaid", read, h.Unpaid)
	group.GET("/export/:kind", read, h.Export)
}
