// cmd/worker/main.go
//
// One-shot worker: claims at most one job, processes it, pushes its terminal
// metrics and exits. The exit code is a contract with the scaling controller:
// 0 = processed a job, 2 = no job available, 1 = failure.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"document-worker-service/internal/metrics"
	"document-worker-service/internal/repository/memory"
	"document-worker-service/internal/repository/postgresql"
	"document-worker-service/internal/storage"
	"document-worker-service/internal/worker"
)

func main() {
	os.Exit(run())
}

// run is split out so defers fire before os.Exit.
func run() int {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisAddr := mustEnv("REDIS_ADDR")
	storeDriver := envOr("STORE_DRIVER", "postgres")
	workerID := envOr("WORKER_ID", defaultWorkerID())
	maxAttempts := envIntOr("MAX_ATTEMPTS", 2)
	claimBatch := envIntOr("CLAIM_BATCH", 10)

	var (
		store worker.Store
		docs  worker.DocumentWriter
	)
	switch storeDriver {
	case "memory":
		mem := memory.NewStore()
		store, docs = mem, mem
	default:
		pool, err := postgresql.NewPool(ctx, mustEnv("POSTGRES_DSN"))
		if err != nil {
			log.Printf("pg: %v", err)
			return 1
		}
		defer pool.Close()
		if err := postgresql.EnsureSchema(ctx, pool); err != nil {
			log.Printf("pg schema: %v", err)
			return 1
		}
		store = postgresql.NewJobRepository(pool)
		docs = postgresql.NewDocumentRepository(pool)
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("redis: %v", err)
		return 1
	}
	bridge := metrics.NewBridge(rdb, envOr("METRICS_KEY", ""))

	uploader := storage.NewLocal(envOr("UPLOAD_DIR", "uploads"))

	claimer := worker.NewClaimer(store, workerID, claimBatch)
	processor := worker.NewProcessor(docs, uploader, worker.ProcessorConfig{
		MinDocuments: envIntOr("DOCS_MIN", 10),
		MaxDocuments: envIntOr("DOCS_MAX", 20),
		StepDelay:    envDurOr("DOC_STEP_DELAY", 500*time.Millisecond),
	})
	runner := worker.NewRunner(store, claimer, processor, bridge, workerID, maxAttempts)

	log.Printf("[worker] starting worker_id=%s store=%s max_attempts=%d", workerID, storeDriver, maxAttempts)
	return runner.Run(ctx).ExitCode()
}

func defaultWorkerID() string {
	host, _ := os.Hostname()
	if host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
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

func envIntOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
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
