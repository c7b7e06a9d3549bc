package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"mercadopago-checkout/internal/config"
	"mercadopago-checkout/internal/constants"
	"mercadopago-checkout/internal/handlers"
	"mercadopago-checkout/internal/middleware"
	"mercadopago-checkout/internal/models"
	"mercadopago-checkout/internal/payments"
	"mercadopago-checkout/internal/payments/mercadopago"
	"mercadopago-checkout/internal/repository"
	"mercadopago-checkout/internal/service"
	"mercadopago-checkout/pkg/cache"
	"mercadopago-checkout/pkg/logger"
)

// Options overrides collaborators, mainly for tests.
type Options struct {
	// Provider replaces the Mercado Pago client built from config.
	Provider payments.Provider
	// DB replaces the connection opened from config. Migrations still run.
	DB *gorm.DB
}

type Application struct {
	cfg     *config.Config
	options Options

	db       *gorm.DB
	cache    *cache.Cache
	provider payments.Provider

	orderPayments repository.OrderPaymentRepository
	services      serviceContainer
	handlers      handlerContainer

	rateLimits *middleware.RateLimitManager
	router     *gin.Engine
	server     *http.Server
}

type serviceContainer struct {
	Checkout      *service.CheckoutService
	Webhook       *service.WebhookService
	Landing       *service.LandingService
	OrderPayments *service.OrderPaymentService
}

type handlerContainer struct {
	Checkout      *handlers.CheckoutHandler
	Webhook       *handlers.WebhookHandler
	Landing       *handlers.LandingHandler
	OrderPayments *handlers.OrderPaymentHandler
}

func New(cfg *config.Config, opts Options) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	app := &Application{
		cfg:     cfg,
		options: opts,
	}

	if err := app.initProvider(); err != nil {
		return nil, err
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initCache(); err != nil {
		app.closeResources()
		return nil, err
	}

	app.initServices()
	app.initHandlers()
	app.initRouter()

	app.server = &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        app.router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	return app, nil
}

func (a *Application) Run() error {
	logger.Info("Server starting", map[string]interface{}{
		"port":        a.cfg.Port,
		"environment": a.cfg.Environment,
		"sandbox":     a.cfg.MercadoPagoSandbox,
	})

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *Application) Shutdown(ctx context.Context) error {
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			return err
		}
	}

	a.closeResources()
	return nil
}

func (a *Application) Router() *gin.Engine {
	return a.router
}

func (a *Application) closeResources() {
	if a.rateLimits != nil {
		_ = a.rateLimits.Shutdown()
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			logger.Error(err, "Failed to close cache connection", nil)
		}
	}

	if a.db != nil && a.options.DB == nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

func (a *Application) initProvider() error {
	if a.options.Provider != nil {
		a.provider = a.options.Provider
		return nil
	}

	token := strings.TrimSpace(a.cfg.MercadoPagoAccessToken)
	switch {
	case token == "" && strings.TrimSpace(a.cfg.MercadoPagoClientID) == "":
		logger.Warn("No Mercado Pago credentials configured, provider calls will be rejected", nil)
	case token != "" && !mercadopago.IsAccessToken(token):
		logger.Warn("Mercado Pago access token has an unexpected format", nil)
	case token != "" && mercadopago.IsTestAccessToken(token) && !a.cfg.MercadoPagoSandbox:
		logger.Warn("Test access token used without MERCADOPAGO_SANDBOX", nil)
	}

	provider, err := mercadopago.NewProvider(mercadopago.Config{
		ClientID:     a.cfg.MercadoPagoClientID,
		ClientSecret: a.cfg.MercadoPagoClientSecret,
		AccessToken:  a.cfg.MercadoPagoAccessToken,
		APIBaseURL:   a.cfg.MercadoPagoAPIURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize mercadopago provider: %w", err)
	}

	a.provider = provider
	return nil
}

func (a *Application) initDatabase() error {
	if a.options.DB != nil {
		a.db = a.options.DB
		return a.runMigrations()
	}

	if !a.cfg.EnableDatabase {
		logger.Info("Database disabled, payments are only logged", nil)
		return nil
	}

	var dialector gorm.Dialector
	switch a.cfg.DBDriver {
	case "sqlite":
		dialector = sqlite.Open(a.cfg.DBPath)
	default:
		dialector = postgres.Open(a.cfg.DatabaseURL)
	}

	logger.Info("Connecting to database", map[string]interface{}{"driver": a.cfg.DBDriver})

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormLogger(),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if a.cfg.DBDriver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	a.db = db
	return a.runMigrations()
}

func (a *Application) runMigrations() error {
	logger.Info("Running database migrations", nil)

	if err := a.db.AutoMigrate(&models.OrderPayment{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	a.orderPayments = repository.NewOrderPaymentRepository(a.db)
	return nil
}

func (a *Application) initCache() error {
	c, err := cache.NewCache(a.cfg.RedisURL, a.cfg.EnableRedis)
	if err != nil {
		return err
	}
	a.cache = c
	return nil
}

func (a *Application) initServices() {
	var store service.OrderStore
	var reader service.OrderPaymentReader
	if a.orderPayments != nil {
		store = a.orderPayments
		reader = a.orderPayments
	}

	var tracker service.DeliveryTracker
	var records service.PaymentRecordCache
	if a.cache.Enabled() {
		tracker = a.cache
		records = a.cache
	}

	a.services = serviceContainer{
		Checkout: service.NewCheckoutService(a.provider, service.NewPreferenceBuilder(), service.CheckoutConfig{
			Sandbox: a.cfg.MercadoPagoSandbox,
		}),
		Webhook: service.NewWebhookService(a.provider, store, tracker, service.WebhookConfig{
			Secret:    a.cfg.MercadoPagoWebhookSecret,
			DedupeTTL: time.Duration(a.cfg.DedupeTTL) * time.Second,
		}),
		Landing:       service.NewLandingService(a.provider, a.cfg.LandingVerifyPayment, records),
		OrderPayments: service.NewOrderPaymentService(reader),
	}
}

func (a *Application) initHandlers() {
	a.handlers = handlerContainer{
		Checkout: handlers.NewCheckoutHandler(a.services.Checkout, a.cfg.SiteURL),
		Webhook:  handlers.NewWebhookHandler(a.services.Webhook),
		Landing:  handlers.NewLandingHandler(a.services.Landing),

		OrderPayments: handlers.NewOrderPaymentHandler(a.services.OrderPayments),
	}
}

func (a *Application) initRouter() {
	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	a.rateLimits = middleware.NewRateLimitManager(context.Background())

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(logger.GinLogger())
	if a.cfg.EnableMetrics {
		router.Use(middleware.MetricsMiddleware())
	}
	router.Use(middleware.RateLimitManagerMiddleware(a.rateLimits))
	router.Use(middleware.RateLimitMiddleware(a.cfg))

	router.Use(cors.New(a.corsConfig()))

	router.Use(middleware.OptionalAuthMiddleware(a.cfg.JWTSecret))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	if a.cfg.EnableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	a.registerPaymentRoutes(&router.RouterGroup)

	api := router.Group("/api/v1/payments")
	a.registerPaymentRoutes(api)
	api.GET("/orders/:reference/payments", a.handlers.OrderPayments.ListByReference)
	api.GET("/records/:payment_id", a.handlers.OrderPayments.GetPayment)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Route not found",
			"path":  c.Request.URL.Path,
		})
	})

	a.router = router
}

func (a *Application) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowOrigins:     a.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", constants.HeaderIdempotencyKey, constants.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", constants.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowOrigins = nil
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	}
	return cfg
}

func (a *Application) registerPaymentRoutes(group *gin.RouterGroup) {
	group.POST("/create-mercadopago-preference", a.handlers.Checkout.CreatePreference)

	group.GET(service.NotificationPath, a.handlers.Webhook.Receive)
	group.POST(service.NotificationPath, a.handlers.Webhook.Receive)

	group.GET(service.SuccessPath, a.handlers.Landing.Success)
	group.GET(service.FailurePath, a.handlers.Landing.Failure)
	group.GET(service.PendingPath, a.handlers.Landing.Pending)
}
