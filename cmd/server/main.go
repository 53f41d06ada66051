package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/drshelkeabhijeet/Studentattendance/internal/authstate"
	"github.com/drshelkeabhijeet/Studentattendance/internal/config"
	internalhttp "github.com/drshelkeabhijeet/Studentattendance/internal/http"
	"github.com/drshelkeabhijeet/Studentattendance/internal/identity"
	"github.com/drshelkeabhijeet/Studentattendance/internal/login"
	"github.com/drshelkeabhijeet/Studentattendance/internal/profile"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connection failed: %v", err)
	}
	defer pool.Close()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			log.Fatalf("redis ping failed: %v", err)
		}
		cancel()
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Printf("redis close error: %v", err)
			}
		}()
	}

	store := identity.NewClient(identity.Options{
		BaseURL:       cfg.IdentityBaseURL,
		ServiceKey:    cfg.IdentityServiceKey,
		JWTSecret:     cfg.JWTSecret,
		JWTIssuer:     cfg.JWTIssuer,
		HTTPClient:    &http.Client{Timeout: cfg.HTTPClientTimeout},
		Redis:         redisClient,
		SessionTTL:    cfg.SessionTTL,
		RefreshMargin: cfg.TokenRefreshMargin,
	})
	store.StartAutoRefresh(ctx)

	profiles := profile.NewPGRepository(pool)

	coordinator := authstate.New(store, profiles)
	coordinator.Start(ctx)
	defer coordinator.Close()

	flows := login.NewOrchestrator(coordinator, login.Options{
		PollInterval:      cfg.ProfilePollInterval,
		PollAttempts:      cfg.ProfilePollAttempts,
		DefaultDepartment: cfg.DefaultDepartment,
	})

	server := internalhttp.NewServer(flows, coordinator)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("auth-gateway http listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
