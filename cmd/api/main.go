// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	_ "document-worker-service/docs"
	"document-worker-service/internal/metrics"
	"document-worker-service/internal/repository/memory"
	"document-worker-service/internal/repository/postgresql"
	"document-worker-service/internal/service"
	httptransport "document-worker-service/internal/transport/http"
)

type jobStore interface {
	service.JobRepository
	ReclaimStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// @title Document Worker Service API
// @version 1.0
// @description Queueing API for asynchronous company-document processing. Jobs are created here and claimed by ephemeral workers.
// @BasePath /
func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpAddr := envOr("HTTP_ADDR", ":8080")
	redisAddr := mustEnv("REDIS_ADDR")
	storeDriver := envOr("STORE_DRIVER", "postgres")
	staleAfter := envDurOr("STALE_CLAIM_AFTER", 10*time.Minute)
	reapEvery := envDurOr("REAP_INTERVAL", 30*time.Second)

	var (
		jobs jobStore
		docs httptransport.DocumentLister
	)
	switch storeDriver {
	case "memory":
		mem := memory.NewStore()
		jobs, docs = mem, mem
	default:
		pgDSN := mustEnv("POSTGRES_DSN")
		pool, err := postgresql.NewPool(ctx, pgDSN)
		if err != nil {
			log.Fatalf("pg: %v", err)
		}
		defer pool.Close()
		if err := postgresql.EnsureSchema(ctx, pool); err != nil {
			log.Fatalf("pg schema: %v", err)
		}
		jobs = postgresql.NewJobRepository(pool)
		docs = postgresql.NewDocumentRepository(pool)
		log.Printf("[api] postgres connected dsn=%s", redactDSN(pgDSN))
	}

	// Redis
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis: %v", err)
	}
	bridge := metrics.NewBridge(rdb, envOr("METRICS_KEY", ""))

	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewQueueCollector(jobs, bridge))

	svc := service.NewJobService(jobs)
	h := httptransport.NewHandler(svc, docs)
	router := httptransport.Routes(h, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// Reaper: claims of crashed workers expire after staleAfter and go back
	// to pending for a fresh worker.
	go func() {
		ticker := time.NewTicker(reapEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := jobs.ReclaimStale(ctx, staleAfter)
				if err != nil {
					log.Printf("[api] reclaim error=%v", err)
					continue
				}
				if n > 0 {
					log.Printf("[api] reclaimed %d stale claims", n)
				}
			}
		}
	}()

	srv := &http.Server{Addr: httpAddr, Handler: router}
	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()

	log.Printf("[api] listening addr=%s store=%s stale_after=%s", httpAddr, storeDriver, staleAfter)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("http: %v", err)
	}
	log.Println("api stopped")
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("missing env: %s", key)
	}
	return v
}

func envOr(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envDurOr(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if sec, err := strconv.Atoi(v); err == nil {
		return time.Duration(sec) * time.Second
	}
	return def
}

func redactDSN(dsn string) string {
	// user:pass@ -> user:****@, leaves DSNs without a password alone
	re := regexp.MustCompile(`://([^:/?#]+):([^@/]+)@`)
	return re.ReplaceAllString(dsn, `://$1:****@`)
}
