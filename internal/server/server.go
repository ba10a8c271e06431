// Package server
//
// @title TradeKit API
// @version 1.0
// @description Digital-product storefront API
// @host localhost:8080
// @BasePath /
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tradekit-dev/tradekit/internal/auth"
	"github.com/tradekit-dev/tradekit/internal/config"
	"github.com/tradekit-dev/tradekit/internal/discounts"
	"github.com/tradekit-dev/tradekit/internal/entitlements"
	"github.com/tradekit-dev/tradekit/internal/models"
	"github.com/tradekit-dev/tradekit/internal/payments"
	"github.com/tradekit-dev/tradekit/internal/provider"
	"github.com/tradekit-dev/tradekit/internal/seed"
	"github.com/tradekit-dev/tradekit/internal/storage"
	"github.com/tradekit-dev/tradekit/internal/tickets"
)

// Server represents the HTTP server
type Server struct {
	router              *gin.Engine
	db                  *gorm.DB
	config              *config.Config
	logger              zerolog.Logger
	validator           *validator.Validate
	asynqClient         *asynq.Client
	providerClient      *provider.Client
	providerVerifier    *provider.Verifier
	paymentsService     *payments.Service
	discountsService    *discounts.Service
	ticketsService      *tickets.Service
	entitlementsService *entitlements.Service
	imageStore          *storage.Store
	version             string
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	// Initialize database with production settings
	db, err := initDatabase(cfg, zlog)
	if err != nil {
		return nil, err
	}

	// Run database migrations
	if err := models.AutoMigrate(db); err != nil {
		return nil, err
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	auth.InitializeJWT(cfg.Auth.JWTSecret)

	// Apply catalog seed if configured
	if cfg.SeedFile != "" {
		if err := seed.Apply(db, cfg.SeedFile, zlog); err != nil {
			return nil, fmt.Errorf("failed to apply seed file: %w", err)
		}
	}

	// Initialize validator
	validate := validator.New()

	// Register custom validators
	validate.RegisterValidation("alphanumdash", func(fl validator.FieldLevel) bool {
		// Allow alphanumeric, hyphens, and underscores only
		value := fl.Field().String()
		for _, char := range value {
			if !((char >= 'a' && char <= 'z') ||
				(char >= 'A' && char <= 'Z') ||
				(char >= '0' && char <= '9') ||
				char == '-' ||
				char == '_') {
				return false
			}
		}
		return true
	})

	// Initialize Asynq client for enqueueing tasks
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: cfg.Redis.Address,
	})

	// External auth provider client; token verification is optional and only
	// enabled when an issuer is configured
	providerClient := provider.New(cfg.Provider.URL)

	var providerVerifier *provider.Verifier
	if cfg.Provider.Issuer != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		providerVerifier, err = provider.NewVerifier(ctx, cfg.Provider.Issuer)
		if err != nil {
			zlog.Warn().Err(err).Msg("Failed to initialize provider token verifier - provider tokens will be rejected")
			providerVerifier = nil
		}
	}

	// Ticket image storage
	imageStore, err := storage.New(cfg.Storage.Dir, cfg.Storage.PublicURL)
	if err != nil {
		return nil, err
	}

	// Domain services
	discountsService := discounts.NewService(db, zlog)
	paymentsService := payments.NewService(db, cfg, discountsService, asynqClient, zlog)
	ticketsService := tickets.NewService(db, zlog)
	entitlementsService := entitlements.NewService(db, zlog)

	server := &Server{
		db:                  db,
		config:              cfg,
		logger:              zlog,
		validator:           validate,
		asynqClient:         asynqClient,
		providerClient:      providerClient,
		providerVerifier:    providerVerifier,
		paymentsService:     paymentsService,
		discountsService:    discountsService,
		ticketsService:      ticketsService,
		entitlementsService: entitlementsService,
		imageStore:          imageStore,
		version:             version,
	}

	// Setup router
	server.setupRouter()

	return server, nil
}

// initDatabase initializes the database connection with production settings
func initDatabase(cfg *config.Config, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns    = 8
		maxIdleConns    = 4
		connMaxLifetime = 300 // seconds
		busyTimeout     = 5000
		cacheSize       = 10000     // 10MB
		mmapSize        = 134217728 // 128MB
	)

	db, err := gorm.Open(sqlite.Open(cfg.Database.URL), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Apply SQLite pragmas directly (connection string pragmas may not work with all drivers)
	// WAL mode must be set first for optimal concurrency
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		fmt.Sprintf("PRAGMA cache_size=-%d", cacheSize),
		"PRAGMA foreign_keys=1",
		"PRAGMA temp_store=2",
		fmt.Sprintf("PRAGMA mmap_size=%d", mmapSize),
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	return db, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	// CORS middleware; the landing site is the only browser origin
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{s.config.API.LandingURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Cache-Control"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint (no auth required)
	s.router.GET("/health", s.healthCheck)

	// Public auth endpoints
	s.router.POST("/api/auth/register", s.register)
	s.router.POST("/api/auth/login", s.login)
	s.router.POST("/api/auth/verify-email", s.verifyEmail)

	// Public catalog
	s.router.GET("/api/products", s.listProducts)
	s.router.GET("/api/products/:id", s.getProduct)
	s.router.GET("/api/categories", s.listCategories)
	s.router.GET("/api/courses", s.listCourses)

	// File serving authenticates inside the handler: free files are public and
	// media elements pass the token as a query parameter instead of a header
	s.router.GET("/api/files/:id/serve", s.serveFile)

	// Uploaded ticket images are public by URL
	s.router.Static("/storage/ticket-images", s.imageStore.Dir())

	// Authenticated API routes (bearer token required)
	api := s.router.Group("/api")
	api.Use(AuthMiddleware(s.db, s.providerVerifier, s.logger))
	{
		api.GET("/auth/me", s.getCurrentUser)

		api.GET("/users/:id", s.getUser)
		api.PATCH("/users/:id", s.updateUser)
		api.GET("/users/:id/courses", s.getUserCourses)
		api.GET("/users/:id/files", s.getUserFiles)

		api.POST("/payments/initiate", s.initiatePayment)
		api.GET("/transactions", s.listTransactions)
		api.GET("/transactions/owned", s.listOwnedProducts)
		api.GET("/transactions/:id", s.getTransaction)

		api.POST("/discounts/validate", s.validateDiscount)

		api.GET("/tickets", s.listTickets)
		api.POST("/tickets", s.createTicket)
		api.GET("/tickets/statistics", s.ticketStatistics)
		api.GET("/tickets/reference/:ref", s.getTicketByReference)
		api.GET("/tickets/:id", s.getTicket)
		api.PATCH("/tickets/:id", s.updateTicket)
		api.GET("/tickets/:id/messages", s.listTicketMessages)
		api.POST("/tickets/:id/messages", s.createTicketMessage)
		api.POST("/tickets/upload-image", s.uploadTicketImage)

		// Operator endpoints
		admin := api.Group("/admin")
		admin.Use(AdminOnlyMiddleware(s.logger))
		{
			admin.POST("/transactions/:id/confirm", s.confirmTransaction)
			admin.POST("/discounts", s.createDiscount)
		}
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "tradekit-api",
	})
}

// GetDB returns the database connection for use by workers
func (s *Server) GetDB() *gorm.DB {
	return s.db
}

// Router returns the configured handler, for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	port := ":8080"

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:    port,
		Handler: s.router,
		// Generous write timeout: file serving streams large downloads
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      180 * time.Second,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       300 * time.Second,
	}

	go func() {
		s.logger.Info().Str("port", port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	// Close Asynq client
	if err := s.asynqClient.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Error closing Asynq client")
	}

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	// Close database connection to flush WAL writes
	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Error closing database")
		}
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}
