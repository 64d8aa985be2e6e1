package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ilramdhan/formula-solver/config"
	"github.com/ilramdhan/formula-solver/internal/bootstrap"
	"github.com/ilramdhan/formula-solver/internal/domain/entity"
	"github.com/ilramdhan/formula-solver/internal/modules/evaluation"
)

const pendingPageSize = 10

func main() {
	godotenv.Load()

	cfg := config.Load()
	if cfg.App.Storage == bootstrap.StorageMemory {
		log.Fatalf("Worker needs shared storage; STORAGE=memory jobs run inside the API")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("Starting worker service with %d workers and batch size %d",
		cfg.Worker.Count, cfg.Worker.BatchSize)

	services, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer services.Close()

	log.Printf("Worker service ready. Polling for jobs every %s", cfg.Worker.PollInterval)

	ticker := time.NewTicker(cfg.Worker.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Shutting down worker service...")
			return

		case <-ticker.C:
			jobs, err := services.Jobs.ListPending(ctx, pendingPageSize)
			if err != nil {
				log.Printf("Failed to list jobs: %v", err)
				continue
			}
			for _, job := range jobs {
				if ctx.Err() != nil {
					break
				}
				processJob(ctx, services.Pool, job)
			}
		}
	}
}

func processJob(ctx context.Context, pool *evaluation.WorkerPool, job *entity.BatchJob) {
	startTime := time.Now()
	log.Printf("Starting %s job %s at %s", job.JobType, job.ID, startTime.Format(time.RFC3339))

	summary, err := pool.Run(ctx, job)
	if errors.Is(err, evaluation.ErrJobNotPending) {
		log.Printf("Job %s already taken", job.ID)
		return
	}
	if err != nil {
		log.Printf("Job %s failed: %v", job.ID, err)
		return
	}

	log.Printf("Job %s completed in %v: processed=%d failed=%d total=%d",
		job.ID, time.Since(startTime), summary.Processed, summary.Failed, summary.Total)
}
