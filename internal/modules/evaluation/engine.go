package evaluation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ilramdhan/formula-solver/internal/domain/entity"
	"github.com/ilramdhan/formula-solver/internal/domain/repository"
	"github.com/ilramdhan/formula-solver/pkg/formula"
)

// Error kinds recorded on failed evaluations and returned by the API
const (
	KindParse     = "parse"
	KindOperation = "operation"
	KindLimit     = "limit"
)

// ErrInactive is returned when evaluating a deactivated formula
var ErrInactive = errors.New("formula is inactive")

// ErrorKind classifies a solver error for callers that report it
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, formula.ErrDepthExceeded):
		return KindLimit
	case formula.IsOperationError(err):
		return KindOperation
	case formula.IsParseError(err):
		return KindParse
	}
	return ""
}

// Engine solves stored formula definitions and records the outcome
type Engine struct {
	formulaRepo repository.FormulaRepository
	evalRepo    repository.EvaluationRepository
	solver      *formula.Solver
}

// NewEngine creates a new evaluation engine
func NewEngine(
	formulaRepo repository.FormulaRepository,
	evalRepo repository.EvaluationRepository,
	solver *formula.Solver,
) *Engine {
	if solver == nil {
		solver = formula.DefaultSolver
	}
	return &Engine{
		formulaRepo: formulaRepo,
		evalRepo:    evalRepo,
		solver:      solver,
	}
}

// Solver returns the solver used by the engine
func (e *Engine) Solver() *formula.Solver {
	return e.solver
}

// Evaluate loads a formula definition and solves it with overrides merged
// over its stored variables. A solve failure is reported on the returned
// Evaluation; only storage errors are returned as errors.
func (e *Engine) Evaluate(ctx context.Context, formulaID uuid.UUID, overrides map[string]string) (*entity.Evaluation, error) {
	def, err := e.formulaRepo.GetByID(ctx, formulaID)
	if err != nil {
		return nil, fmt.Errorf("failed to get formula: %w", err)
	}
	if !def.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrInactive, def.Name)
	}
	return e.EvaluateDefinition(def, overrides), nil
}

// EvaluateDefinition solves def without touching storage
func (e *Engine) EvaluateDefinition(def *entity.FormulaDefinition, overrides map[string]string) *entity.Evaluation {
	vars := def.MergedVariables(overrides)

	start := time.Now()
	result, err := e.solver.Solve(def.Expression, vars)
	elapsed := time.Since(start)

	eval := &entity.Evaluation{
		ID:          uuid.New(),
		FormulaID:   def.ID,
		Variables:   vars,
		Result:      result,
		Succeeded:   err == nil,
		ContextHash: entity.ContextHash(def.Expression, vars),
		DurationUS:  elapsed.Microseconds(),
		EvaluatedAt: start,
	}
	if err != nil {
		eval.ErrorMessage = err.Error()
		eval.ErrorKind = ErrorKind(err)
	}
	return eval
}

// EvaluateAndStore evaluates a formula and persists the evaluation
func (e *Engine) EvaluateAndStore(ctx context.Context, formulaID uuid.UUID, overrides map[string]string) (*entity.Evaluation, error) {
	eval, err := e.Evaluate(ctx, formulaID, overrides)
	if err != nil {
		return nil, err
	}
	if err := e.evalRepo.Create(ctx, eval); err != nil {
		return nil, fmt.Errorf("failed to store evaluation: %w", err)
	}
	return eval, nil
}
