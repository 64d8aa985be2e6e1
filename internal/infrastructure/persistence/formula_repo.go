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

const formulaColumns = "id, name, expression, variables, description, is_active, created_at, updated_at"

// formulaRepo implements repository.FormulaRepository
type formulaRepo struct {
	db database.DB
}

// NewFormulaRepository creates a new formula definition repository
func NewFormulaRepository(db database.DB) repository.FormulaRepository {
	return &formulaRepo{db: db}
}

func (r *formulaRepo) Create(ctx context.Context, f *entity.FormulaDefinition) error {
	query := `
		INSERT INTO formulas (` + formulaColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	variables, err := f.VariablesJSON()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query,
		f.ID, f.Name, f.Expression, variables, f.Description, f.IsActive, f.CreatedAt, f.UpdatedAt)
	return translate(err)
}

// CreateBatch uses PostgreSQL COPY protocol for bulk inserts
func (r *formulaRepo) CreateBatch(ctx context.Context, fs []*entity.FormulaDefinition) (int64, error) {
	if len(fs) == 0 {
		return 0, nil
	}
	columns := []string{"id", "name", "expression", "variables", "description", "is_active", "created_at", "updated_at"}

	rows := make([][]interface{}, len(fs))
	for i, f := range fs {
		variables, err := f.VariablesJSON()
		if err != nil {
			return 0, fmt.Errorf("formula %q: %w", f.Name, err)
		}
		rows[i] = []interface{}{
			f.ID, f.Name, f.Expression, variables, f.Description, f.IsActive, f.CreatedAt, f.UpdatedAt,
		}
	}

	copyCount, err := r.db.CopyFrom(ctx, pgx.Identifier{"formulas"}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("failed to copy formulas: %w", translate(err))
	}
	return copyCount, nil
}

func (r *formulaRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.FormulaDefinition, error) {
	query := `SELECT ` + formulaColumns + ` FROM formulas WHERE id = $1`
	return scanFormula(r.db.QueryRow(ctx, query, id))
}

func (r *formulaRepo) GetByName(ctx context.Context, name string) (*entity.FormulaDefinition, error) {
	query := `SELECT ` + formulaColumns + ` FROM formulas WHERE name = $1`
	return scanFormula(r.db.QueryRow(ctx, query, name))
}

func (r *formulaRepo) List(ctx context.Context, limit, offset int) ([]*entity.FormulaDefinition, error) {
	query := `
		SELECT ` + formulaColumns + `
		FROM formulas
		ORDER BY created_at DESC, name
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fs []*entity.FormulaDefinition
	for rows.Next() {
		f, err := scanFormula(rows)
		if err != nil {
			return nil, err
		}
		fs = append(fs, f)
	}
	return fs, rows.Err()
}

// ListIDs pages active formula IDs in a stable order for batch evaluation
func (r *formulaRepo) ListIDs(ctx context.Context, limit, offset int) ([]uuid.UUID, error) {
	query := `SELECT id FROM formulas WHERE is_active = true ORDER BY id LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func (r *formulaRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM formulas WHERE is_active = true").Scan(&count)
	return count, err
}

func (r *formulaRepo) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM formulas").Scan(&count)
	return count, err
}

func (r *formulaRepo) Update(ctx context.Context, f *entity.FormulaDefinition) error {
	query := `
		UPDATE formulas SET name = $2, expression = $3, variables = $4, description = $5, is_active = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	variables, err := f.VariablesJSON()
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx, query, f.ID, f.Name, f.Expression, variables, f.Description, f.IsActive).Scan(&f.UpdatedAt)
	return translate(err)
}

func (r *formulaRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM formulas WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanFormula(row pgx.Row) (*entity.FormulaDefinition, error) {
	var f entity.FormulaDefinition
	err := row.Scan(&f.ID, &f.Name, &f.Expression, &f.Variables, &f.Description, &f.IsActive, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &f, nil
}
