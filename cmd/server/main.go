package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/terminal-bench/casgen/internal/cache"
	"github.com/terminal-bench/casgen/internal/gateway"
	"github.com/terminal-bench/casgen/internal/pipeline"
	"github.com/terminal-bench/casgen/internal/refdata"
	"github.com/terminal-bench/casgen/internal/store"
	"github.com/terminal-bench/casgen/pkg/messaging"
)

type Config struct {
	Port              string
	NATSUrl           string
	RedisURL          string
	DatabaseURL       string
	OutputDir         string
	MaxConcurrentJobs int
	MemoryCeilingMB   int
	JobTimeout        time.Duration
	CacheTTL          time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	RateLimitMax      int
	RateLimitWindow   time.Duration
}

func loadConfig() *Config {
	return &Config{
		Port:              getEnv("PORT", "8080"),
		NATSUrl:           getEnv("NATS_URL", ""),
		RedisURL:          getEnv("REDIS_URL", ""),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		OutputDir:         getEnv("OUTPUT_DIR", "output"),
		MaxConcurrentJobs: getEnvInt("MAX_CONCURRENT_JOBS", 4),
		MemoryCeilingMB:   getEnvInt("MEMORY_CEILING_MB", 512),
		JobTimeout:        time.Duration(getEnvInt("JOB_TIMEOUT_SECONDS", 600)) * time.Second,
		CacheTTL:          time.Duration(getEnvInt("CACHE_TTL_SECONDS", 3600)) * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		RateLimitMax:      100,
		RateLimitWindow:   time.Minute,
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func main() {
	cfg := loadConfig()

	ref := refdata.Load()
	log.Printf("server: loaded reference data (%d warfare patterns, %d nationalities, %d injuries)",
		len(ref.Patterns), len(ref.Nationalities), len(ref.Injuries))

	lookupCache := cache.New(cfg.RedisURL, cfg.CacheTTL, 1024)

	var msgClient *messaging.Client
	if cfg.NATSUrl != "" {
		var err error
		msgClient, err = messaging.NewClient(messaging.Config{
			URL:            cfg.NATSUrl,
			Name:           "casgen-server",
			ReconnectWait:  2 * time.Second,
			MaxReconnects:  10,
			ConnectTimeout: 5 * time.Second,
		})
		if err != nil {
			log.Printf("server: NATS unavailable, events disabled: %v", err)
		} else {
			defer msgClient.Close()
		}
	}

	var jobStore store.JobStore
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Printf("server: database unavailable, persistence disabled: %v", err)
		} else {
			defer db.Close()
			pg := store.NewPostgresStore(db)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := pg.EnsureSchema(ctx); err != nil {
				log.Printf("server: schema setup failed, persistence disabled: %v", err)
			} else {
				jobStore = pg
			}
			cancel()
		}
	}

	var gw *gateway.Gateway
	pipe := pipeline.New(ref, lookupCache, msgClient, jobStore, pipeline.Options{
		MaxConcurrentJobs: cfg.MaxConcurrentJobs,
		MemoryCeiling:     int64(cfg.MemoryCeilingMB) << 20,
		JobTimeout:        cfg.JobTimeout,
		OutputDir:         cfg.OutputDir,
		OnProgress: func(jobID uuid.UUID, phase pipeline.Phase, fraction float64, message string) {
			if gw != nil {
				gw.BroadcastProgress(jobID, phase, fraction, message)
			}
		},
	})

	gw = gateway.New(gateway.Config{
		Port:            cfg.Port,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		RateLimitMax:    cfg.RateLimitMax,
		RateLimitWindow: cfg.RateLimitWindow,
	}, pipe, msgClient)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      gw.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		log.Printf("server: listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("server: shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	gw.Shutdown(ctx)
	if msgClient.IsConnected() {
		if err := msgClient.Drain(); err != nil {
			log.Printf("server: broker drain: %v", err)
		}
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server: forced shutdown: %v", err)
	}
}
