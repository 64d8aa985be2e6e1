package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/ilramdhan/formula-solver/config"
	"github.com/ilramdhan/formula-solver/internal/domain/entity"
	"github.com/ilramdhan/formula-solver/internal/domain/repository"
	"github.com/ilramdhan/formula-solver/internal/infrastructure/persistence"
	"github.com/ilramdhan/formula-solver/pkg/database"
)

var (
	formulaCount = flag.Int("formulas", 10000, "Number of generated formulas")
	prefix       = flag.String("prefix", "gen", "Name prefix of generated formulas")
	maxNesting   = flag.Int("nesting", 3, "Maximum nesting of generated formulas")
	seed         = flag.Int64("seed", 1, "Random seed of the formula generator")
	batchSize    = flag.Int("batch", 5000, "Batch size for COPY operations")
	workerCount  = flag.Int("workers", 10, "Number of parallel workers")
	queueJob     = flag.Bool("evaluate", false, "Queue an EVALUATE_ALL job once seeding is done")
)

func main() {
	flag.Parse()
	godotenv.Load()

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║             FORMULA SOLVER - DATA SEEDER                      ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Println()

	log.Printf("Configuration:")
	log.Printf("  Formulas:    %d", *formulaCount)
	log.Printf("  Name Prefix: %s", *prefix)
	log.Printf("  Nesting:     %d", *maxNesting)
	log.Printf("  Seed:        %d", *seed)
	log.Printf("  Batch Size:  %d", *batchSize)
	log.Printf("  Workers:     %d", *workerCount)
	log.Printf("  CPU Cores:   %d", runtime.NumCPU())
	fmt.Println()

	cfg := config.Load()
	ctx := context.Background()

	pool, err := database.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	overallStart := time.Now()
	var metrics PerformanceMetrics

	// Phase 1: named samples
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	phaseStart := time.Now()
	metrics.Samples, err = seedSamples(ctx, pool)
	if err != nil {
		log.Fatalf("Failed to seed samples: %v", err)
	}
	metrics.SampleTime = time.Since(phaseStart)

	// Phase 2: generated formulas
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	phaseStart = time.Now()
	metrics.Generated, metrics.Failed = seedGenerated(ctx, pool)
	metrics.GeneratedTime = time.Since(phaseStart)

	if *queueJob {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		job := entity.NewBatchJob(entity.JobTypeEvaluateAll, map[string]interface{}{"source": "seeder"})
		if err := persistence.NewBatchJobRepository(pool).Create(ctx, job); err != nil {
			log.Fatalf("Failed to queue evaluation job: %v", err)
		}
		log.Printf("Queued job %s; start cmd/worker to process it", job.ID)
	}

	metrics.TotalTime = time.Since(overallStart)
	printPerformanceSummary(metrics)
}

// PerformanceMetrics holds timing and throughput data
type PerformanceMetrics struct {
	Samples       int64
	Generated     int64
	Failed        int64
	SampleTime    time.Duration
	GeneratedTime time.Duration
	TotalTime     time.Duration
}

func printPerformanceSummary(m PerformanceMetrics) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                  PERFORMANCE SUMMARY                          ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════════╣")
	fmt.Printf("║  %-20s %38v ║\n", "Total Time:", m.TotalTime.Round(time.Millisecond))
	fmt.Println("╠───────────────────────────────────────────────────────────────╣")
	fmt.Printf("║  %-20s %38v ║\n", "Samples:", m.SampleTime.Round(time.Millisecond))
	fmt.Printf("║  %-20s %38v ║\n", "Generated:", m.GeneratedTime.Round(time.Millisecond))
	fmt.Println("╠───────────────────────────────────────────────────────────────╣")
	fmt.Printf("║  %-20s %38s ║\n", "Sample Formulas:", formatNumber(m.Samples))
	fmt.Printf("║  %-20s %38s ║\n", "Generated Formulas:", formatNumber(m.Generated))
	fmt.Printf("║  %-20s %38s ║\n", "Failed Inserts:", formatNumber(m.Failed))
	fmt.Println("╠───────────────────────────────────────────────────────────────╣")

	if m.GeneratedTime.Seconds() > 0 {
		perSec := float64(m.Generated) / m.GeneratedTime.Seconds()
		fmt.Printf("║  %-20s %34.0f /s ║\n", "Throughput:", perSec)
	}

	fmt.Println("╠───────────────────────────────────────────────────────────────╣")
	fmt.Printf("║  %-20s %35s MB ║\n", "Memory Allocated:", formatNumber(int64(memStats.Alloc/1024/1024)))
	fmt.Printf("║  %-20s %35s MB ║\n", "Total Allocated:", formatNumber(int64(memStats.TotalAlloc/1024/1024)))
	fmt.Printf("║  %-20s %38d ║\n", "GC Cycles:", memStats.NumGC)
	fmt.Printf("║  %-20s %38d ║\n", "Goroutines:", runtime.NumGoroutine())
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
}

func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.2fM", float64(n)/1000000)
}

// seedSamples inserts the hand-written samples one by one, skipping names
// that already exist so the seeder can be re-run.
func seedSamples(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	log.Println("Seeding sample formulas...")

	repo := persistence.NewFormulaRepository(pool)
	var created int64
	for _, s := range samples {
		existing, err := repo.GetByName(ctx, s.Name)
		if err == nil {
			log.Printf("  skip %-22s already exists (%s)", s.Name, existing.ID)
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return created, fmt.Errorf("failed to look up sample %s: %w", s.Name, err)
		}

		now := time.Now()
		f := &entity.FormulaDefinition{
			ID:          uuid.New(),
			Name:        s.Name,
			Expression:  s.Expression,
			Variables:   s.Variables,
			Description: s.Description,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		err = repo.Create(ctx, f)
		if errors.Is(err, repository.ErrDuplicate) {
			log.Printf("  skip %-22s created concurrently", s.Name)
			continue
		}
		if err != nil {
			return created, fmt.Errorf("failed to insert sample %s: %w", s.Name, err)
		}
		created++
	}

	log.Printf("Created %d of %d samples", created, len(samples))
	return created, nil
}

func seedGenerated(ctx context.Context, pool *pgxpool.Pool) (int64, int64) {
	log.Println("Seeding generated formulas...")

	repo := persistence.NewFormulaRepository(pool)
	total := int64(*formulaCount)

	numWorkers := *workerCount
	indexChan := make(chan int, numWorkers*2)

	var (
		completed int64
		failed    int64
		wg        sync.WaitGroup
	)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c := atomic.LoadInt64(&completed)
				log.Printf("Progress: formulas=%d/%d (%.1f%%)", c, total, float64(c)/float64(total)*100)
			}
		}
	}()

	flush := func(workerID int, batch []*entity.FormulaDefinition) {
		if _, err := repo.CreateBatch(ctx, batch); err != nil {
			log.Printf("Worker %d: failed to insert %d formulas: %v", workerID, len(batch), err)
			atomic.AddInt64(&failed, int64(len(batch)))
			return
		}
		atomic.AddInt64(&completed, int64(len(batch)))
	}

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			gen := newGenerator(*seed+int64(workerID), *maxNesting)
			batch := make([]*entity.FormulaDefinition, 0, *batchSize)

			for idx := range indexChan {
				now := time.Now()
				batch = append(batch, &entity.FormulaDefinition{
					ID:         uuid.New(),
					Name:       fmt.Sprintf("%s-%06d", *prefix, idx),
					Expression: gen.Formula().String(),
					Variables:  generatedVariables,
					IsActive:   true,
					CreatedAt:  now,
					UpdatedAt:  now,
				})

				if len(batch) >= *batchSize {
					flush(workerID, batch)
					batch = batch[:0]
				}
			}

			if len(batch) > 0 {
				flush(workerID, batch)
			}
		}(w)
	}

	for i := 0; i < *formulaCount; i++ {
		indexChan <- i
	}
	close(indexChan)

	wg.Wait()
	close(done)

	log.Printf("Completed: %d formulas created, %d failed", completed, failed)
	return completed, failed
}
