package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"roadmap-service/internal/handler"
	"roadmap-service/internal/middleware"
	"roadmap-service/internal/repository"
	"roadmap-service/pkg/config"
	"roadmap-service/pkg/database"
	"roadmap-service/pkg/jwtutil"
	"roadmap-service/pkg/logger"
	"roadmap-service/prometheus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	if err := logger.InitLogger(cfg); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting roadmap service", cfg.LogConfig()...)

	// Connect to the database and run migrations
	db, err := database.InitDB(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Wire repositories
	tenants := repository.NewTenantStore(db)
	users := repository.NewUserStore(db)
	goals := repository.NewGoalStore(db)
	initiatives := repository.NewInitiativeStore(db)
	ideas := repository.NewIdeaStore(db)
	feedback := repository.NewFeedbackStore(db)
	customers := repository.NewCustomerStore(db)
	comments := repository.NewCommentStore(db)

	jwtUtil := jwtutil.NewJWTUtil(&cfg.JWT)

	// Wire handlers
	authHandler := handler.NewAuthHandler(users, tenants, jwtUtil, cfg.IsProduction())
	tenantHandler := handler.NewTenantHandler(tenants)
	userHandler := handler.NewUserHandler(users, tenants)
	goalHandler := handler.NewGoalHandler(goals)
	initiativeHandler := handler.NewInitiativeHandler(initiatives, goals)
	ideaHandler := handler.NewIdeaHandler(ideas, initiatives, customers)
	feedbackHandler := handler.NewFeedbackHandler(feedback, customers, initiatives)
	customerHandler := handler.NewCustomerHandler(customers)
	commentHandler := handler.NewCommentHandler(comments)

	e := echo.New()
	e.HideBanner = true

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	// Public routes
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/refresh", authHandler.Refresh)
	e.POST("/auth/register-tenant", authHandler.RegisterTenant)
	e.GET("/auth/logout", authHandler.Logout)

	authRequired := middleware.JWTAuth(jwtUtil, users)

	e.POST("/auth/register-user", authHandler.RegisterUser, authRequired)

	// Tenant-scoped API
	api := e.Group("/api", authRequired)

	api.GET("/tenant", tenantHandler.Get)
	api.PUT("/tenant", tenantHandler.Update)
	api.DELETE("/tenant", tenantHandler.Delete)

	api.GET("/users", userHandler.List)
	api.POST("/users", userHandler.Create)
	api.GET("/users/:id", userHandler.Get)
	api.PUT("/users/:id", userHandler.Update)
	api.DELETE("/users/:id", userHandler.Delete)

	api.GET("/goals", goalHandler.List)
	api.POST("/goals", goalHandler.Create)
	api.GET("/goals/:id", goalHandler.Get)
	api.PUT("/goals/:id", goalHandler.Update)
	api.DELETE("/goals/:id", goalHandler.Delete)

	api.GET("/initiatives", initiativeHandler.List)
	api.POST("/initiatives", initiativeHandler.Create)
	api.GET("/initiatives/:id", initiativeHandler.Get)
	api.PUT("/initiatives/:id", initiativeHandler.Update)
	api.DELETE("/initiatives/:id", initiativeHandler.Delete)

	api.GET("/ideas", ideaHandler.List)
	api.POST("/ideas", ideaHandler.Create)
	api.GET("/ideas/:id", ideaHandler.Get)
	api.PUT("/ideas/:id", ideaHandler.Update)
	api.DELETE("/ideas/:id", ideaHandler.Delete)
	api.POST("/ideas/:id/customers/:customer_id", ideaHandler.LinkCustomer)
	api.DELETE("/ideas/:id/customers/:customer_id", ideaHandler.UnlinkCustomer)

	api.GET("/feedback", feedbackHandler.List)
	api.POST("/feedback", feedbackHandler.Create)
	api.GET("/feedback/:id", feedbackHandler.Get)
	api.PUT("/feedback/:id", feedbackHandler.Update)
	api.DELETE("/feedback/:id", feedbackHandler.Delete)
	api.POST("/feedback/:id/customers/:customer_id", feedbackHandler.LinkCustomer)
	api.DELETE("/feedback/:id/customers/:customer_id", feedbackHandler.UnlinkCustomer)
	api.POST("/feedback/:id/initiatives/:initiative_id", feedbackHandler.LinkInitiative)
	api.DELETE("/feedback/:id/initiatives/:initiative_id", feedbackHandler.UnlinkInitiative)

	api.GET("/customers", customerHandler.List)
	api.POST("/customers", customerHandler.Create)
	api.GET("/customers/:id", customerHandler.Get)
	api.PUT("/customers/:id", customerHandler.Update)
	api.DELETE("/customers/:id", customerHandler.Delete)

	api.GET("/comments", commentHandler.List)
	api.POST("/comments", commentHandler.Create)
	api.GET("/comments/:id", commentHandler.Get)
	api.PUT("/comments/:id", commentHandler.Update)
	api.DELETE("/comments/:id", commentHandler.Delete)

	// Start the server; shut down gracefully on SIGINT/SIGTERM
	go func() {
		addr := ":" + cfg.Server.Port
		log.Info("Server listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
}
