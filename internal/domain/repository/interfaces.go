package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/ilramdhan/formula-solver/internal/domain/entity"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a unique key such as a formula name is taken
var ErrDuplicate = errors.New("record already exists")

// FormulaRepository defines the interface for formula definition operations
type FormulaRepository interface {
	// Create creates a new formula definition
	Create(ctx context.Context, f *entity.FormulaDefinition) error
	// CreateBatch creates multiple definitions using COPY protocol
	CreateBatch(ctx context.Context, fs []*entity.FormulaDefinition) (int64, error)
	// GetByID retrieves a definition by ID
	GetByID(ctx context.Context, id uuid.UUID) (*entity.FormulaDefinition, error)
	// GetByName retrieves a definition by its unique name
	GetByName(ctx context.Context, name string) (*entity.FormulaDefinition, error)
	// List retrieves definitions with pagination
	List(ctx context.Context, limit, offset int) ([]*entity.FormulaDefinition, error)
	// ListIDs retrieves active definition IDs with pagination (for batch processing)
	ListIDs(ctx context.Context, limit, offset int) ([]uuid.UUID, error)
	// Count returns the number of active definitions
	Count(ctx context.Context) (int64, error)
	// CountAll returns the number of definitions, active or not
	CountAll(ctx context.Context) (int64, error)
	// Update updates a definition
	Update(ctx context.Context, f *entity.FormulaDefinition) error
	// Delete deletes a definition and its evaluations
	Delete(ctx context.Context, id uuid.UUID) error
}

// EvaluationRepository defines the interface for evaluation history operations
type EvaluationRepository interface {
	// Create stores a single evaluation
	Create(ctx context.Context, e *entity.Evaluation) error
	// CreateBatch stores multiple evaluations using COPY protocol
	CreateBatch(ctx context.Context, es []*entity.Evaluation) (int64, error)
	// ListByFormulaID retrieves evaluations of a formula, newest first
	ListByFormulaID(ctx context.Context, formulaID uuid.UUID, limit, offset int) ([]*entity.Evaluation, error)
	// Latest retrieves the newest evaluation of a formula
	Latest(ctx context.Context, formulaID uuid.UUID) (*entity.Evaluation, error)
	// CountFailed returns the number of failed evaluations
	CountFailed(ctx context.Context) (int64, error)
}

// BatchJobRepository defines the interface for batch job operations
type BatchJobRepository interface {
	// Create creates a new batch job
	Create(ctx context.Context, job *entity.BatchJob) error
	// GetByID retrieves a job by ID
	GetByID(ctx context.Context, id uuid.UUID) (*entity.BatchJob, error)
	// Start marks a job as running with its total record count
	Start(ctx context.Context, id uuid.UUID, total int64) error
	// UpdateStatus sets a job's status and absolute progress; terminal
	// statuses also stamp the finish time
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.JobStatus, processed, failed int64) error
	// UpdateProgress updates a job's progress atomically
	UpdateProgress(ctx context.Context, id uuid.UUID, processed, failed int64) error
	// Complete marks a job as completed
	Complete(ctx context.Context, id uuid.UUID) error
	// Fail marks a job as failed
	Fail(ctx context.Context, id uuid.UUID, errorMsg string) error
	// ListRecent retrieves recent jobs
	ListRecent(ctx context.Context, limit int) ([]*entity.BatchJob, error)
	// ListPending retrieves the oldest pending jobs
	ListPending(ctx context.Context, limit int) ([]*entity.BatchJob, error)
}
