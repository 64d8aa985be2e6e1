// Package bootstrap wires repositories, the solver and the evaluation
// engine from configuration for the api and worker commands.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/ilramdhan/formula-solver/config"
	"github.com/ilramdhan/formula-solver/internal/domain/repository"
	"github.com/ilramdhan/formula-solver/internal/infrastructure/memory"
	"github.com/ilramdhan/formula-solver/internal/infrastructure/persistence"
	"github.com/ilramdhan/formula-solver/internal/modules/evaluation"
	"github.com/ilramdhan/formula-solver/pkg/database"
	"github.com/ilramdhan/formula-solver/pkg/formula"
)

// Storage backends
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

const (
	connectAttempts = 10
	connectWait     = 2 * time.Second
)

// Services holds everything a command needs to serve formulas
type Services struct {
	Solver      *formula.Solver
	Formulas    repository.FormulaRepository
	Evaluations repository.EvaluationRepository
	Jobs        repository.BatchJobRepository
	Engine      *evaluation.Engine
	Pool        *evaluation.WorkerPool

	close func()
}

// Close releases the storage backend
func (s *Services) Close() {
	if s.close != nil {
		s.close()
	}
}

// Open builds the services for cfg.App.Storage
func Open(ctx context.Context, cfg *config.Config) (*Services, error) {
	s := &Services{
		Solver: formula.NewSolver(formula.WithMaxDepth(cfg.Solver.MaxDepth)),
	}

	switch cfg.App.Storage {
	case StorageMemory:
		store := memory.NewStore()
		s.Formulas = store.Formulas()
		s.Evaluations = store.Evaluations()
		s.Jobs = store.Jobs()
	case StoragePostgres, "":
		pool, err := database.Connect(ctx, &cfg.Database, connectAttempts, connectWait)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		s.Formulas = persistence.NewFormulaRepository(pool)
		s.Evaluations = persistence.NewEvaluationRepository(pool)
		s.Jobs = persistence.NewBatchJobRepository(pool)
		s.close = func() { database.Close(pool) }
	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.App.Storage)
	}

	s.Engine = evaluation.NewEngine(s.Formulas, s.Evaluations, s.Solver)
	s.Pool = evaluation.NewWorkerPool(s.Engine, s.Formulas, s.Evaluations, s.Jobs, cfg.Worker.Count, cfg.Worker.BatchSize)
	return s, nil
}
