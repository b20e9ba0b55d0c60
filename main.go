package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pizza-order-service/apperrors"
	"pizza-order-service/auth"
	"pizza-order-service/controllers"
	"pizza-order-service/database"
	"pizza-order-service/events"
	"pizza-order-service/hub"
	"pizza-order-service/kafka"
	"pizza-order-service/logger"
	"pizza-order-service/metrics"
	"pizza-order-service/middleware"
	awspkg "pizza-order-service/pkg/aws"
	"pizza-order-service/repository"
	"pizza-order-service/routes"
	"pizza-order-service/services"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Config load failed: %v", err)
	}

	// --- AWS (optional) ---
	var awsCfg *sdkaws.Config
	if cfg.CloudWatchEnabled || cfg.SNSTopicARN != "" {
		loaded, err := awspkg.LoadAWSConfig(context.Background())
		if err != nil {
			log.Fatalf("Failed to load AWS config: %v", err)
		}
		awsCfg = &loaded
	}

	var cwWriter io.Writer
	if cfg.CloudWatchEnabled {
		cwLogs, err := awspkg.NewCloudWatchLogsClient(context.Background(), *awsCfg, cfg.CloudWatchLogGroup, cfg.ServiceName)
		if err != nil {
			log.Printf("CloudWatch logs client init failed (non-fatal): %v", err)
		} else {
			cwWriter = cwLogs
		}
	}

	zapLogger, err := logger.New(cfg.Environment, cwWriter)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer zapLogger.Sync()

	var metricsClient *awspkg.MetricsClient
	if awsCfg != nil {
		metricsClient = awspkg.NewMetricsClient(*awsCfg, cfg.MetricsNamespace, cfg.CloudWatchEnabled)
	}

	// --- Database ---
	db, err := database.Connect(cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zapLogger.Fatal("Migration failed", zap.Error(err))
	}

	policy, err := services.PolicyByName(cfg.StatusPolicy)
	if err != nil {
		zapLogger.Fatal("Invalid status policy", zap.Error(err))
	}

	orderRepo := repository.NewGormOrderRepository(db)
	orderService := services.NewOrderService(orderRepo, services.OrderServiceConfig{
		BasePrice: cfg.BasePrice,
		Location:  cfg.OperatorTimezone,
		Policy:    policy,
	}, zapLogger)

	// --- Real-time hub ---
	registry := metrics.NewRegistry()
	hubCfg := hub.DefaultConfig()
	hubCfg.SendBuffer = cfg.WSSendBuffer
	orderHub := hub.New(orderService, hubCfg, registry, zapLogger)

	hubCtx, stopHub := context.WithCancel(context.Background())
	go orderHub.Run(hubCtx)

	// --- Event mirrors ---
	var sinks []events.Sink
	var producer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = kafka.NewProducer(cfg.KafkaBrokers, cfg.OrderEventsTopic, zapLogger)
		sinks = append(sinks, producer)
	}
	if awsCfg != nil {
		if sink := events.NewSNSSink(awspkg.NewSNSClient(*awsCfg), cfg.SNSTopicARN); sink != nil {
			sinks = append(sinks, sink)
		}
	}
	if sink := events.NewMetricsSink(metricsClient, cfg.ServiceName); sink != nil {
		sinks = append(sinks, sink)
	}
	dispatcher := events.NewDispatcher(orderHub, registry, zapLogger, sinks...)

	// --- Auth ---
	var revocations auth.RevocationStore = auth.NewMemoryRevocationStore()
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("Invalid REDIS_URL", zap.Error(err))
		}
		redisClient = redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			zapLogger.Fatal("Redis not reachable", zap.Error(err))
		}
		revocations = auth.NewRedisRevocationStore(redisClient)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL, revocations)
	if err != nil {
		zapLogger.Fatal("Token service init failed", zap.Error(err))
	}
	passwordHash := []byte(cfg.AdminPasswordHash)
	if len(passwordHash) == 0 {
		zapLogger.Warn("ADMIN_PASSWORD_HASH not set, hashing ADMIN_PASSWORD at startup")
		if passwordHash, err = auth.HashPassword(cfg.AdminPassword); err != nil {
			zapLogger.Fatal("Failed to hash admin password", zap.Error(err))
		}
	}
	authService := auth.NewAuthService(cfg.AdminEmail, passwordHash, tokens, zapLogger)

	// --- HTTP router ---
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(zapLogger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.MetricsMiddleware(metricsClient, cfg.ServiceName),
		middleware.Timeout(30*time.Second),
		apperrors.ErrorMiddleware(cfg.Environment),
	)

	routes.Register(r, routes.Handlers{
		Orders:      controllers.NewOrderController(orderService, dispatcher, cfg.Environment),
		Auth:        controllers.NewAuthController(authService, cfg.Environment),
		WebSocket:   orderHub.ServeWS(hub.NewUpgrader(cfg.AllowedOrigins)),
		RequireAuth: middleware.AuthMiddleware(authService),
		LoginLimit:  middleware.RateLimitMiddleware(cfg.LoginRateLimit, cfg.LoginRateLimit),
		WSAuth:      cfg.WSRequireAuth,
	})

	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DEGRADED", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "OK", "ws_clients": orderHub.ConnectedClients()})
	})
	r.GET("/metrics", gin.WrapH(registry.Handler()))

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	go func() {
		zapLogger.Info("Pizza Order Service starting", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down Pizza Order Service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	stopHub()
	dispatcher.Wait()

	if producer != nil {
		if err := producer.Close(); err != nil {
			zapLogger.Warn("Kafka producer close failed", zap.Error(err))
		}
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if err := database.Close(db); err != nil {
		zapLogger.Warn("Database close failed", zap.Error(err))
	}

	zapLogger.Info("Pizza Order Service stopped gracefully")
}
