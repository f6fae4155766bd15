package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/example/maintdesk/backend/internal/auth"
	"github.com/example/maintdesk/backend/internal/config"
	"github.com/example/maintdesk/backend/internal/db"
	httpserver "github.com/example/maintdesk/backend/internal/http"
	"github.com/example/maintdesk/backend/internal/mq"
	"github.com/example/maintdesk/backend/internal/repository"
	"github.com/example/maintdesk/backend/internal/service"
)

func main() {
	cfg := config.Load()

	store := openStore(cfg)

	var publisher mq.Publisher
	rabbit, err := mq.NewRabbitPublisher(cfg.MQURL, cfg.MQEventExchange)
	if err != nil {
		log.Printf("warning: rabbitmq unavailable (%v), continuing without events", err)
	} else {
		publisher = rabbit
	}

	reference := service.NewReferenceService(store)
	if cfg.SeedReferenceData {
		if err := reference.Seed(context.Background()); err != nil {
			log.Fatalf("seed reference data: %v", err)
		}
	}

	secret := cfg.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		log.Println("warning: JWT_SECRET not set, sessions will not survive a restart")
	}
	tokens := auth.NewJWTService(secret, cfg.SessionTTL)
	tenants := service.NewTenantService(store)
	limiter, rdb := openLimiter(cfg)
	sessions := service.NewAuthService(tenants, staffAccounts(cfg), limiter, tokens)
	complaints := service.NewComplaintService(store, publisher)
	apiServer := httpserver.NewServer(complaints, reference, tenants, sessions, tokens, cfg.CORSAllowedOrigins)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{
		Addr:    cfg.HTTPPort,
		Handler: apiServer.Engine,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutdown initiated")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if rabbit != nil {
		_ = rabbit.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Println("bye")
}

func openStore(cfg config.Config) repository.Store {
	if cfg.StoreDriver == "memory" {
		log.Println("using in-memory store, data is lost on exit")
		return repository.NewMemoryStore()
	}
	database, err := db.New(cfg.DatabaseURL, cfg.DBLogLevel)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	if err := db.AutoMigrate(database); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	return repository.NewGormStore(database)
}

// openLimiter prefers Redis so limits hold across replicas.
func openLimiter(cfg config.Config) (auth.LoginLimiter, *redis.Client) {
	if cfg.RedisURL == "" {
		return auth.NewMemoryLimiter(auth.DefaultLimiterPolicy), nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("warning: invalid REDIS_URL (%v), using in-memory login limiter", err)
		return auth.NewMemoryLimiter(auth.DefaultLimiterPolicy), nil
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("warning: redis unavailable (%v), using in-memory login limiter", err)
		_ = rdb.Close()
		return auth.NewMemoryLimiter(auth.DefaultLimiterPolicy), nil
	}
	return auth.NewRedisLimiter(rdb, auth.DefaultLimiterPolicy, "maintdesk:login:"), rdb
}

// staffAccounts hashes the configured staff passwords. An account without a
// password cannot log in.
func staffAccounts(cfg config.Config) map[auth.Role]service.StaffAccount {
	accounts := map[auth.Role]service.StaffAccount{}
	for role, creds := range map[auth.Role][2]string{
		auth.RoleAdmin:      {cfg.AdminUsername, cfg.AdminPassword},
		auth.RoleSupervisor: {cfg.SupervisorUsername, cfg.SupervisorPassword},
	} {
		if creds[1] == "" {
			log.Printf("warning: no password configured for %s, login disabled", role)
			continue
		}
		hash, err := auth.HashPassword(creds[1])
		if err != nil {
			log.Fatalf("hash %s password: %v", role, err)
		}
		accounts[role] = service.StaffAccount{Username: creds[0], PasswordHash: hash}
	}
	return accounts
}

func init() {
	if mode := os.Getenv("GIN_MODE"); mode == "" {
		gin.SetMode(gin.ReleaseMode)
	}
}
