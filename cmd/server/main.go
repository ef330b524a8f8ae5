package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"allinconnect/backoffice/internal/audit"
	"allinconnect/backoffice/internal/config"
	"allinconnect/backoffice/internal/dashboard"
	"allinconnect/backoffice/internal/gateway"
	memgw "allinconnect/backoffice/internal/gateway/memory"
	"allinconnect/backoffice/internal/gateway/remote"
	"allinconnect/backoffice/internal/httpapi"
	"allinconnect/backoffice/internal/session"
)

func main() {
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 2)

	var sessionStore session.Store
	if cfg.RedisAddr != "" {
		redisStore := session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisStore.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using in-memory session store", err)
			sessionStore = session.NewMemoryStore()
		} else {
			sessionStore = redisStore
			closers = append(closers, redisStore.Close)
			log.Println("session store: redis")
		}
	} else {
		sessionStore = session.NewMemoryStore()
		log.Println("session store: in-memory")
	}
	sess := session.New(sessionStore)

	var gateways gateway.Set
	if cfg.APIBaseURL != "" {
		client := remote.NewClient(cfg.APIBaseURL, time.Duration(cfg.RequestTimeoutSeconds)*time.Second, sess)
		gateways = remote.Gateways(client)
		log.Printf("gateways: remote (%s)", cfg.APIBaseURL)
	} else {
		if cfg.OperatorPassword == "" {
			log.Fatalf("OPERATOR_PASSWORD must be set when API_BASE_URL is empty")
		}
		svc, err := memgw.NewSeeded(cfg.OperatorEmail, cfg.OperatorPassword)
		if err != nil {
			log.Fatalf("seed in-memory gateways: %v", err)
		}
		gateways = svc.Set()
		log.Println("gateways: in-memory")
	}

	var journal audit.Recorder
	if cfg.DatabaseURL != "" {
		pg, err := audit.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with in-memory fallback", err)
		}
		journal = pg
		closers = append(closers, pg.Close)
		log.Println("audit journal: postgres")
	} else {
		journal = audit.NewMemory()
		log.Println("audit journal: in-memory")
	}

	ctrl := dashboard.New(gateways, journal)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute)
	api := httpapi.New(ctrl, gateways, sess, auth, journal, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("backoffice console listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	return nil
}
