package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ilramdhan/formula-solver/internal/domain/entity"
	"github.com/ilramdhan/formula-solver/internal/domain/repository"
)

var (
	// ErrUnknownJobType is returned for jobs the pool cannot run
	ErrUnknownJobType = errors.New("unknown job type")
	// ErrJobNotPending is returned when a job was already started elsewhere
	ErrJobNotPending = errors.New("job is not pending")
)

// Summary reports the outcome of a batch run
type Summary struct {
	Total     int64 `json:"total"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

// WorkerPool evaluates formulas concurrently for batch jobs
type WorkerPool struct {
	engine      *Engine
	formulaRepo repository.FormulaRepository
	evalRepo    repository.EvaluationRepository
	jobRepo     repository.BatchJobRepository
	workerCount int
	batchSize   int
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(
	engine *Engine,
	formulaRepo repository.FormulaRepository,
	evalRepo repository.EvaluationRepository,
	jobRepo repository.BatchJobRepository,
	workerCount, batchSize int,
) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	if batchSize < 1 {
		batchSize = 1
	}
	return &WorkerPool{
		engine:      engine,
		formulaRepo: formulaRepo,
		evalRepo:    evalRepo,
		jobRepo:     jobRepo,
		workerCount: workerCount,
		batchSize:   batchSize,
	}
}

// Run executes a claimed job according to its type
func (wp *WorkerPool) Run(ctx context.Context, job *entity.BatchJob) (*Summary, error) {
	switch job.JobType {
	case entity.JobTypeEvaluateAll:
		return wp.EvaluateAll(ctx, job.ID, job.Overrides())
	case entity.JobTypeEvaluateFormula:
		formulaID, ok := job.FormulaID()
		if !ok {
			err := errors.New("job metadata has no formula_id")
			wp.fail(ctx, job.ID, err)
			return nil, err
		}
		return wp.EvaluateOne(ctx, job.ID, formulaID, job.Overrides())
	}
	err := fmt.Errorf("%w: %s", ErrUnknownJobType, job.JobType)
	wp.fail(ctx, job.ID, err)
	return nil, err
}

// EvaluateOne runs a single-formula job
func (wp *WorkerPool) EvaluateOne(ctx context.Context, jobID, formulaID uuid.UUID, overrides map[string]string) (*Summary, error) {
	if err := wp.start(ctx, jobID, 1); err != nil {
		return nil, err
	}

	eval, err := wp.engine.EvaluateAndStore(ctx, formulaID, overrides)
	if err != nil {
		wp.fail(ctx, jobID, err)
		return nil, err
	}

	summary := &Summary{Total: 1, Processed: 1}
	if !eval.Succeeded {
		summary.Failed = 1
	}
	if err := wp.jobRepo.UpdateProgress(ctx, jobID, summary.Processed, summary.Failed); err != nil {
		log.Printf("Failed to update job %s progress: %v", jobID, err)
	}
	if err := wp.jobRepo.Complete(ctx, jobID); err != nil {
		return summary, fmt.Errorf("failed to complete job: %w", err)
	}
	return summary, nil
}

// EvaluateAll evaluates every active formula. A dispatcher pages formula
// IDs to the workers and a collector stores evaluations in batches,
// reporting job progress after each batch. Formulas whose solve fails are
// stored and counted as failed; formulas that cannot be loaded are only
// counted.
func (wp *WorkerPool) EvaluateAll(ctx context.Context, jobID uuid.UUID, overrides map[string]string) (*Summary, error) {
	totalCount, err := wp.formulaRepo.Count(ctx)
	if err != nil {
		wp.fail(ctx, jobID, err)
		return nil, fmt.Errorf("failed to count formulas: %w", err)
	}

	if err := wp.start(ctx, jobID, totalCount); err != nil {
		return nil, err
	}

	idChan := make(chan uuid.UUID, wp.batchSize*2)
	resultChan := make(chan *entity.Evaluation, wp.batchSize*2)
	errChan := make(chan error, 1)

	var processedCount int64
	var failedCount int64
	// Load failures not yet reported to the job
	var unreported int64

	var wg sync.WaitGroup
	for i := 0; i < wp.workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for formulaID := range idChan {
				eval, err := wp.engine.Evaluate(ctx, formulaID, overrides)
				if err != nil {
					log.Printf("Worker %d: failed to evaluate formula %s: %v", workerID, formulaID, err)
					atomic.AddInt64(&failedCount, 1)
					atomic.AddInt64(&processedCount, 1)
					atomic.AddInt64(&unreported, 1)
					continue
				}
				resultChan <- eval
			}
		}(i)
	}

	var resultWg sync.WaitGroup
	resultWg.Add(1)
	go func() {
		defer resultWg.Done()
		buffer := make([]*entity.Evaluation, 0, wp.batchSize)

		flush := func() {
			var failed int64
			for _, eval := range buffer {
				if !eval.Succeeded {
					failed++
				}
			}
			if _, err := wp.evalRepo.CreateBatch(ctx, buffer); err != nil {
				log.Printf("Failed to store evaluation batch: %v", err)
				failed = int64(len(buffer))
			}
			loadFailures := atomic.SwapInt64(&unreported, 0)
			processed := int64(len(buffer)) + loadFailures
			failed += loadFailures

			atomic.AddInt64(&processedCount, int64(len(buffer)))
			atomic.AddInt64(&failedCount, failed-loadFailures)

			if err := wp.jobRepo.UpdateProgress(ctx, jobID, processed, failed); err != nil {
				log.Printf("Failed to update job %s progress: %v", jobID, err)
			}
			buffer = buffer[:0]
		}

		for eval := range resultChan {
			buffer = append(buffer, eval)
			if len(buffer) >= wp.batchSize {
				flush()
			}
		}
		if len(buffer) > 0 || atomic.LoadInt64(&unreported) > 0 {
			flush()
		}
	}()

	go func() {
		defer close(idChan)
		offset := 0
		for {
			if err := ctx.Err(); err != nil {
				errChan <- err
				return
			}
			ids, err := wp.formulaRepo.ListIDs(ctx, wp.batchSize, offset)
			if err != nil {
				errChan <- fmt.Errorf("failed to list formula IDs: %w", err)
				return
			}
			if len(ids) == 0 {
				return
			}
			for _, id := range ids {
				select {
				case <-ctx.Done():
					errChan <- ctx.Err()
					return
				case idChan <- id:
				}
			}
			offset += len(ids)
		}
	}()

	wg.Wait()
	close(resultChan)
	resultWg.Wait()

	summary := &Summary{
		Total:     totalCount,
		Processed: atomic.LoadInt64(&processedCount),
		Failed:    atomic.LoadInt64(&failedCount),
	}

	select {
	case err := <-errChan:
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			wp.cancel(ctx, jobID, summary)
		} else {
			wp.fail(ctx, jobID, err)
		}
		return summary, err
	default:
	}

	if err := wp.jobRepo.Complete(ctx, jobID); err != nil {
		return summary, fmt.Errorf("failed to complete job: %w", err)
	}

	log.Printf("Evaluation complete: processed=%d, failed=%d, total=%d", summary.Processed, summary.Failed, summary.Total)
	return summary, nil
}

func (wp *WorkerPool) start(ctx context.Context, jobID uuid.UUID, total int64) error {
	err := wp.jobRepo.Start(ctx, jobID, total)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrJobNotPending, jobID)
	}
	if err != nil {
		return fmt.Errorf("failed to start job: %w", err)
	}
	return nil
}

// cancel stops a job at the progress it reached
func (wp *WorkerPool) cancel(ctx context.Context, jobID uuid.UUID, summary *Summary) {
	err := wp.jobRepo.UpdateStatus(context.WithoutCancel(ctx), jobID, entity.JobStatusCancelled, summary.Processed, summary.Failed)
	if err != nil {
		log.Printf("Failed to mark job %s cancelled: %v", jobID, err)
	}
}

func (wp *WorkerPool) fail(ctx context.Context, jobID uuid.UUID, cause error) {
	// The job row must still be updated when ctx was what stopped the run
	if err := wp.jobRepo.Fail(context.WithoutCancel(ctx), jobID, cause.Error()); err != nil {
		log.Printf("Failed to mark job %s failed: %v", jobID, err)
	}
}
