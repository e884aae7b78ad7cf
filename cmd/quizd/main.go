package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	api "github.com/mind-engage/mindengage-quiz/internal/api/http"
	"github.com/mind-engage/mindengage-quiz/internal/assessment"
	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/config"
	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/lock"
	"github.com/mind-engage/mindengage-quiz/internal/store"
	"github.com/mind-engage/mindengage-quiz/internal/sweeper"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	var (
		dbh    *sql.DB
		st     store.Store
		events syncx.Log
	)
	if cfg.DBDriver == "memory" {
		st = store.NewMemoryStore()
		events = syncx.NewMemoryLog()
	} else {
		openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		h, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
		cancel()
		if err != nil {
			log.Fatalf("db open failed: %v", err)
		}
		defer h.Close()
		dbh = h
		st = store.NewSQLStore(dbh, db.Driver(cfg.DBDriver))
		events = syncx.NewEventRepo(dbh)
	}

	// --- Locks (Redis when configured, so several replicas agree) ---
	var locks lock.Locker = lock.NewMemoryLocker()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatalf("redis ping failed: %v", err)
		}
		locks = lock.NewRedisLocker(rdb, time.Duration(cfg.LockTTLSec)*time.Second)
	}

	svc := assessment.NewService(st, locks, events)

	if cfg.SweepSchedule != "" {
		c, err := sweeper.Start(cfg.SweepSchedule, svc, svc.Now)
		if err != nil {
			log.Fatalf("sweeper: %v", err)
		}
		defer c.Stop()
	}

	// --- Auth (local JWT) ---
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret, auth.Options{
		AdminUser:     cfg.AdminUser,
		AdminPassHash: cfg.AdminPassHash,
		DevLogin:      cfg.EnableDevLogin,
	})

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc))
	api.Mount(r, svc, authSvc)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if dbh != nil {
			if err := dbh.PingContext(r.Context()); err != nil {
				http.Error(w, "db unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	log.Printf("listening on %s (mode=%s, db=%s, redis=%t)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver, cfg.RedisAddr != "")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("http: %v", err)
	}
}
