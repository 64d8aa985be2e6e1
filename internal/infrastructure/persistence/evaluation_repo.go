package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ilramdhan/formula-solver/internal/domain/entity"
	"github.com/ilramdhan/formula-solver/internal/domain/repository"
	"github.com/ilramdhan/formula-solver/pkg/database"
)

const evaluationColumns = "id, formula_id, variables, result, error_message, error_kind, succeeded, context_hash, duration_us, evaluated_at"

// evaluationRepo implements repository.EvaluationRepository
type evaluationRepo struct {
	db database.DB
}

// NewEvaluationRepository creates a new evaluation history repository
func NewEvaluationRepository(db database.DB) repository.EvaluationRepository {
	return &evaluationRepo{db: db}
}

func (r *evaluationRepo) Create(ctx context.Context, e *entity.Evaluation) error {
	query := `
		INSERT INTO evaluations (` + evaluationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	variables, err := e.VariablesJSON()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query,
		e.ID, e.FormulaID, variables, e.Result, e.ErrorMessage, e.ErrorKind, e.Succeeded, e.ContextHash, e.DurationUS, e.EvaluatedAt)
	return translate(err)
}

// CreateBatch uses PostgreSQL COPY protocol; evaluations are append-only so
// no temp table merge is needed
func (r *evaluationRepo) CreateBatch(ctx context.Context, es []*entity.Evaluation) (int64, error) {
	if len(es) == 0 {
		return 0, nil
	}
	columns := []string{"id", "formula_id", "variables", "result", "error_message", "error_kind", "succeeded", "context_hash", "duration_us", "evaluated_at"}

	i := 0
	src := pgx.CopyFromFunc(func() ([]any, error) {
		if i == len(es) {
			return nil, nil
		}
		e := es[i]
		i++
		variables, err := e.VariablesJSON()
		if err != nil {
			return nil, err
		}
		return []any{e.ID, e.FormulaID, variables, e.Result, e.ErrorMessage, e.ErrorKind, e.Succeeded, e.ContextHash, e.DurationUS, e.EvaluatedAt}, nil
	})

	copyCount, err := r.db.CopyFrom(ctx, pgx.Identifier{"evaluations"}, columns, src)
	if err != nil {
		return 0, fmt.Errorf("failed to copy evaluations: %w", err)
	}
	return copyCount, nil
}

func (r *evaluationRepo) ListByFormulaID(ctx context.Context, formulaID uuid.UUID, limit, offset int) ([]*entity.Evaluation, error) {
	query := `
		SELECT ` + evaluationColumns + `
		FROM evaluations WHERE formula_id = $1
		ORDER BY evaluated_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, formulaID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var es []*entity.Evaluation
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		es = append(es, e)
	}
	return es, rows.Err()
}

func (r *evaluationRepo) Latest(ctx context.Context, formulaID uuid.UUID) (*entity.Evaluation, error) {
	query := `
		SELECT ` + evaluationColumns + `
		FROM evaluations WHERE formula_id = $1
		ORDER BY evaluated_at DESC LIMIT 1
	`
	return scanEvaluation(r.db.QueryRow(ctx, query, formulaID))
}

func (r *evaluationRepo) CountFailed(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM evaluations WHERE succeeded = false").Scan(&count)
	return count, err
}

func scanEvaluation(row pgx.Row) (*entity.Evaluation, error) {
	var e entity.Evaluation
	err := row.Scan(&e.ID, &e.FormulaID, &e.Variables, &e.Result, &e.ErrorMessage, &e.ErrorKind, &e.Succeeded, &e.ContextHash, &e.DurationUS, &e.EvaluatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &e, nil
}
