// Package memory implements the repositories on in-process maps. It backs
// STORAGE=memory deployments and the service tests.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ilramdhan/formula-solver/internal/domain/entity"
	"github.com/ilramdhan/formula-solver/internal/domain/repository"
)

// Store holds formulas, evaluations and jobs behind one lock
type Store struct {
	mu          sync.RWMutex
	formulas    map[uuid.UUID]*entity.FormulaDefinition
	evaluations []*entity.Evaluation
	jobs        map[uuid.UUID]*entity.BatchJob
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		formulas: make(map[uuid.UUID]*entity.FormulaDefinition),
		jobs:     make(map[uuid.UUID]*entity.BatchJob),
	}
}

// Formulas returns the store's formula repository
func (s *Store) Formulas() repository.FormulaRepository { return formulaRepo{s} }

// Evaluations returns the store's evaluation repository
func (s *Store) Evaluations() repository.EvaluationRepository { return evaluationRepo{s} }

// Jobs returns the store's batch job repository
func (s *Store) Jobs() repository.BatchJobRepository { return jobRepo{s} }

func cloneFormula(f *entity.FormulaDefinition) *entity.FormulaDefinition {
	c := *f
	c.Variables = maps.Clone(f.Variables)
	return &c
}

func cloneJob(j *entity.BatchJob) *entity.BatchJob {
	c := *j
	c.Metadata = maps.Clone(j.Metadata)
	return &c
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit >= 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

type formulaRepo struct{ s *Store }

func (r formulaRepo) Create(_ context.Context, f *entity.FormulaDefinition) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.insert(f)
}

func (r formulaRepo) insert(f *entity.FormulaDefinition) error {
	if _, ok := r.s.formulas[f.ID]; ok {
		return fmt.Errorf("%w: formulas_pkey", repository.ErrDuplicate)
	}
	for _, other := range r.s.formulas {
		if other.Name == f.Name {
			return fmt.Errorf("%w: formulas_name_key", repository.ErrDuplicate)
		}
	}
	r.s.formulas[f.ID] = cloneFormula(f)
	return nil
}

func (r formulaRepo) CreateBatch(_ context.Context, fs []*entity.FormulaDefinition) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, f := range fs {
		if err := r.insert(f); err != nil {
			// COPY is all or nothing
			for _, done := range fs[:i] {
				delete(r.s.formulas, done.ID)
			}
			return 0, err
		}
	}
	return int64(len(fs)), nil
}

func (r formulaRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.FormulaDefinition, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	f, ok := r.s.formulas[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneFormula(f), nil
}

func (r formulaRepo) GetByName(_ context.Context, name string) (*entity.FormulaDefinition, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, f := range r.s.formulas {
		if f.Name == name {
			return cloneFormula(f), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r formulaRepo) List(_ context.Context, limit, offset int) ([]*entity.FormulaDefinition, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := make([]*entity.FormulaDefinition, 0, len(r.s.formulas))
	for _, f := range r.s.formulas {
		all = append(all, cloneFormula(f))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].Name < all[j].Name
	})
	return page(all, limit, offset), nil
}

func (r formulaRepo) ListIDs(_ context.Context, limit, offset int) ([]uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var ids []uuid.UUID
	for id, f := range r.s.formulas {
		if f.IsActive {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return strings.Compare(a.String(), b.String())
	})
	return page(ids, limit, offset), nil
}

func (r formulaRepo) Count(_ context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, f := range r.s.formulas {
		if f.IsActive {
			n++
		}
	}
	return n, nil
}

func (r formulaRepo) CountAll(_ context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.formulas)), nil
}

func (r formulaRepo) Update(_ context.Context, f *entity.FormulaDefinition) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.formulas[f.ID]; !ok {
		return repository.ErrNotFound
	}
	for id, other := range r.s.formulas {
		if id != f.ID && other.Name == f.Name {
			return fmt.Errorf("%w: formulas_name_key", repository.ErrDuplicate)
		}
	}
	f.UpdatedAt = time.Now()
	r.s.formulas[f.ID] = cloneFormula(f)
	return nil
}

func (r formulaRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.formulas[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.formulas, id)
	r.s.evaluations = slices.DeleteFunc(r.s.evaluations, func(e *entity.Evaluation) bool {
		return e.FormulaID == id
	})
	return nil
}

type evaluationRepo struct{ s *Store }

func (r evaluationRepo) Create(ctx context.Context, e *entity.Evaluation) error {
	_, err := r.CreateBatch(ctx, []*entity.Evaluation{e})
	return err
}

func (r evaluationRepo) CreateBatch(_ context.Context, es []*entity.Evaluation) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range es {
		if _, ok := r.s.formulas[e.FormulaID]; !ok {
			return 0, fmt.Errorf("evaluation %s: formula %s: %w", e.ID, e.FormulaID, repository.ErrNotFound)
		}
	}
	for _, e := range es {
		c := *e
		c.Variables = maps.Clone(e.Variables)
		r.s.evaluations = append(r.s.evaluations, &c)
	}
	return int64(len(es)), nil
}

// byFormula returns a formula's evaluations newest first. Callers hold the
// read lock.
func (r evaluationRepo) byFormula(formulaID uuid.UUID) []*entity.Evaluation {
	var es []*entity.Evaluation
	for i := len(r.s.evaluations) - 1; i >= 0; i-- {
		if e := r.s.evaluations[i]; e.FormulaID == formulaID {
			c := *e
			es = append(es, &c)
		}
	}
	sort.SliceStable(es, func(i, j int) bool {
		return es[i].EvaluatedAt.After(es[j].EvaluatedAt)
	})
	return es
}

func (r evaluationRepo) ListByFormulaID(_ context.Context, formulaID uuid.UUID, limit, offset int) ([]*entity.Evaluation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return page(r.byFormula(formulaID), limit, offset), nil
}

func (r evaluationRepo) Latest(_ context.Context, formulaID uuid.UUID) (*entity.Evaluation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	es := r.byFormula(formulaID)
	if len(es) == 0 {
		return nil, repository.ErrNotFound
	}
	return es[0], nil
}

func (r evaluationRepo) CountFailed(_ context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, e := range r.s.evaluations {
		if !e.Succeeded {
			n++
		}
	}
	return n, nil
}

type jobRepo struct{ s *Store }

func (r jobRepo) Create(_ context.Context, job *entity.BatchJob) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.jobs[job.ID]; ok {
		return fmt.Errorf("%w: batch_jobs_pkey", repository.ErrDuplicate)
	}
	r.s.jobs[job.ID] = cloneJob(job)
	return nil
}

func (r jobRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.BatchJob, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	job, ok := r.s.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneJob(job), nil
}

// update applies fn to a stored job under the write lock
func (r jobRepo) update(id uuid.UUID, fn func(*entity.BatchJob) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	job, ok := r.s.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	return fn(job)
}

func (r jobRepo) Start(_ context.Context, id uuid.UUID, total int64) error {
	return r.update(id, func(job *entity.BatchJob) error {
		if job.Status != entity.JobStatusPending {
			return repository.ErrNotFound
		}
		now := time.Now()
		job.Status = entity.JobStatusRunning
		job.TotalRecords = total
		job.StartedAt = &now
		return nil
	})
}

func (r jobRepo) UpdateStatus(_ context.Context, id uuid.UUID, status entity.JobStatus, processed, failed int64) error {
	return r.update(id, func(job *entity.BatchJob) error {
		job.Status = status
		job.ProcessedRecords = processed
		job.FailedRecords = failed
		if status.Terminal() {
			now := time.Now()
			job.FinishedAt = &now
		}
		return nil
	})
}

func (r jobRepo) UpdateProgress(_ context.Context, id uuid.UUID, processed, failed int64) error {
	return r.update(id, func(job *entity.BatchJob) error {
		job.ProcessedRecords += processed
		job.FailedRecords += failed
		return nil
	})
}

func (r jobRepo) Complete(_ context.Context, id uuid.UUID) error {
	return r.update(id, func(job *entity.BatchJob) error {
		now := time.Now()
		job.Status = entity.JobStatusCompleted
		job.FinishedAt = &now
		return nil
	})
}

func (r jobRepo) Fail(_ context.Context, id uuid.UUID, errorMsg string) error {
	return r.update(id, func(job *entity.BatchJob) error {
		now := time.Now()
		job.Status = entity.JobStatusFailed
		job.ErrorMessage = errorMsg
		job.FinishedAt = &now
		return nil
	})
}

func (r jobRepo) sorted(keep func(*entity.BatchJob) bool, newestFirst bool) []*entity.BatchJob {
	var jobs []*entity.BatchJob
	for _, job := range r.s.jobs {
		if keep(job) {
			jobs = append(jobs, cloneJob(job))
		}
	}
	sort.Slice(jobs, func(i, j int) bool {
		if newestFirst {
			return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
		}
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs
}

func (r jobRepo) ListRecent(_ context.Context, limit int) ([]*entity.BatchJob, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := func(*entity.BatchJob) bool { return true }
	return page(r.sorted(all, true), limit, 0), nil
}

func (r jobRepo) ListPending(_ context.Context, limit int) ([]*entity.BatchJob, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	pending := func(job *entity.BatchJob) bool { return job.Status == entity.JobStatusPending }
	return page(r.sorted(pending, false), limit, 0), nil
}
