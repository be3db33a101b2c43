package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	auditapp "github.com/fmca/voucher-backend/internal/application/audit"
	identityapp "github.com/fmca/voucher-backend/internal/application/identity"
	voucherapp "github.com/fmca/voucher-backend/internal/application/voucher"
	"github.com/fmca/voucher-backend/internal/infrastructure/auth"
	"github.com/fmca/voucher-backend/internal/infrastructure/cache"
	"github.com/fmca/voucher-backend/internal/infrastructure/config"
	"github.com/fmca/voucher-backend/internal/infrastructure/logger"
	"github.com/fmca/voucher-backend/internal/infrastructure/persistence"
	"github.com/fmca/voucher-backend/internal/interfaces/http/handler"
	"github.com/fmca/voucher-backend/internal/interfaces/http/middleware"
	"github.com/fmca/voucher-backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting voucher backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("active_year", cfg.Voucher.ActiveYear),
	)

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to migrate schema", zap.Error(err))
	}
	log.Info("Database ready")

	// Allocation lock: redis when reachable, in-process fallback otherwise
	var allocLock voucherapp.AllocationLock
	redisLock, err := cache.NewRedisAllocationLock(cache.RedisConfig{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis unavailable, using in-process allocation lock", zap.Error(err))
		allocLock = cache.NewLocalAllocationLock()
	} else {
		defer func() { _ = redisLock.Close() }()
		allocLock = redisLock
	}

	// Repositories
	voucherRepo := persistence.NewGormVoucherRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	categoryRepo := persistence.NewGormCategoryCatalog(db.DB)
	cnRepo := persistence.NewGormControlNumberRepository(db.DB)
	auditTrail := persistence.NewGormAuditTrail(db.DB)

	// Services
	jwtService := auth.NewJWTService(cfg.JWT)
	activeYear := cfg.Voucher.ActiveYear
	allocator := voucherapp.NewControlNumberAllocator(cnRepo, allocLock, cfg.Voucher.ControlNumberFormat)

	voucherService := voucherapp.NewService(voucherRepo, categoryRepo, auditTrail, log, activeYear)
	statusService := voucherapp.NewStatusService(voucherRepo, auditTrail, log, activeYear)
	deletionService := voucherapp.NewDeletionService(voucherRepo, auditTrail, log, activeYear)
	releaseService := voucherapp.NewReleaseService(voucherRepo, allocator, auditTrail, log, activeYear)
	revalidationService := voucherapp.NewRevalidationService(voucherRepo, log, activeYear)
	authService := identityapp.NewAuthService(userRepo, jwtService, log)
	userService := identityapp.NewUserService(userRepo, auditTrail, log)
	auditService := auditapp.NewService(auditTrail)

	// HTTP engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders

	engine.Use(
		middleware.RequestID(),
		middleware.RequestLogger(log),
		middleware.Recovery(log),
		middleware.CORSWithConfig(corsCfg),
		middleware.JWTAuthMiddleware(jwtService,
			"/api/v1/health",
			"/api/v1/auth/login",
			"/api/v1/auth/refresh",
		),
	)

	r := router.NewRouter(engine)
	r.Register(handler.NewRPCHandler(
		voucherService, statusService, deletionService,
		releaseService, revalidationService, categoryRepo, auditService,
	))
	r.Register(handler.NewAuthHandler(authService))
	r.Register(handler.NewUserHandler(userService))
	r.Register(handler.NewSystemHandler(db))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
