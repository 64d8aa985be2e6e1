package api

import (
	"context"
	"errors"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ilramdhan/formula-solver/internal/domain/entity"
	"github.com/ilramdhan/formula-solver/internal/domain/repository"
	"github.com/ilramdhan/formula-solver/pkg/formula"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type formulaRequest struct {
	Name        string            `json:"name"`
	Expression  string            `json:"expression"`
	Variables   map[string]string `json:"variables"`
	Description string            `json:"description"`
	IsActive    *bool             `json:"is_active"`
}

// formulaView is a definition together with its newest evaluation
type formulaView struct {
	*entity.FormulaDefinition
	LatestEvaluation *entity.Evaluation `json:"latest_evaluation,omitempty"`
}

type contextRequest struct {
	Context map[string]string `json:"context"`
}

func pagination(c *fiber.Ctx) (limit, offset int) {
	limit = c.QueryInt("limit", defaultLimit)
	if limit < 1 || limit > maxLimit {
		limit = defaultLimit
	}
	offset = c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func paramID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// parseContext reads an optional {"context": {...}} body
func parseContext(c *fiber.Ctx) (map[string]string, error) {
	var req contextRequest
	if len(c.Body()) == 0 {
		return nil, nil
	}
	if err := c.BodyParser(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return req.Context, nil
}

// apply checks req with the app's solver and copies it onto f. Expressions
// and variables must parse; whether they solve is only known at evaluation
// time.
func (req *formulaRequest) apply(solver *formula.Solver, f *entity.FormulaDefinition) error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || strings.TrimSpace(req.Expression) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name and expression are required")
	}
	if _, err := solver.Parse(req.Expression); err != nil {
		return err
	}
	if _, err := solver.ResolveContext(req.Variables); err != nil {
		return err
	}

	f.Name = req.Name
	f.Expression = req.Expression
	f.Variables = req.Variables
	if f.Variables == nil {
		f.Variables = map[string]string{}
	}
	f.Description = req.Description
	if req.IsActive != nil {
		f.IsActive = *req.IsActive
	}
	return nil
}

func (h *handler) listFormulas(c *fiber.Ctx) error {
	ctx := c.UserContext()
	limit, offset := pagination(c)
	formulas, err := h.Formulas.List(ctx, limit, offset)
	if err != nil {
		return err
	}
	count, err := h.Formulas.CountAll(ctx)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data":   formulas,
		"total":  count,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *handler) createFormula(c *fiber.Ctx) error {
	var req formulaRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	now := time.Now()
	f := &entity.FormulaDefinition{
		ID:        uuid.New(),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := req.apply(h.Solver, f); err != nil {
		return err
	}
	if err := h.Formulas.Create(c.UserContext(), f); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(f)
}

func (h *handler) getFormula(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	f, err := h.Formulas.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return h.view(c, f)
}

func (h *handler) getFormulaByName(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid name")
	}
	f, err := h.Formulas.GetByName(c.UserContext(), name)
	if err != nil {
		return err
	}
	return h.view(c, f)
}

func (h *handler) view(c *fiber.Ctx, f *entity.FormulaDefinition) error {
	latest, err := h.Evaluations.Latest(c.UserContext(), f.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return c.JSON(formulaView{FormulaDefinition: f, LatestEvaluation: latest})
}

func (h *handler) updateFormula(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var req formulaRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	ctx := c.UserContext()
	f, err := h.Formulas.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := req.apply(h.Solver, f); err != nil {
		return err
	}
	if err := h.Formulas.Update(ctx, f); err != nil {
		return err
	}
	return c.JSON(f)
}

func (h *handler) deleteFormula(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := h.Formulas.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// evaluateFormula solves a stored formula now, or queues an
// EVALUATE_FORMULA job when called with ?async=true
func (h *handler) evaluateFormula(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	overrides, err := parseContext(c)
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	if c.QueryBool("async") {
		if _, err := h.Formulas.GetByID(ctx, id); err != nil {
			return err
		}
		return h.enqueue(c, entity.JobTypeEvaluateFormula, map[string]interface{}{
			"formula_id": id.String(),
			"context":    overrides,
		})
	}

	eval, err := h.Engine.EvaluateAndStore(ctx, id, overrides)
	if err != nil {
		return err
	}
	return c.JSON(eval)
}

func (h *handler) listEvaluations(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	if _, err := h.Formulas.GetByID(ctx, id); err != nil {
		return err
	}
	limit, offset := pagination(c)
	evals, err := h.Evaluations.ListByFormulaID(ctx, id, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data":   evals,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *handler) evaluateAll(c *fiber.Ctx) error {
	overrides, err := parseContext(c)
	if err != nil {
		return err
	}
	return h.enqueue(c, entity.JobTypeEvaluateAll, map[string]interface{}{
		"context": overrides,
	})
}

// enqueue stores a pending job and, when the app owns a worker pool, runs
// it in the background
func (h *handler) enqueue(c *fiber.Ctx, jobType entity.JobType, metadata map[string]interface{}) error {
	job := entity.NewBatchJob(jobType, metadata)
	if err := h.Jobs.Create(c.UserContext(), job); err != nil {
		return err
	}

	if h.Pool != nil {
		go func() {
			if _, err := h.Pool.Run(context.Background(), job); err != nil {
				log.Printf("Job %s failed: %v", job.ID, err)
			}
		}()
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id":  job.ID,
		"message": "Evaluation queued",
		"status":  job.Status,
	})
}

func (h *handler) listJobs(c *fiber.Ctx) error {
	limit, _ := pagination(c)
	jobs, err := h.Jobs.ListRecent(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": jobs})
}

func (h *handler) getJob(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	job, err := h.Jobs.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"job":      job,
		"progress": job.Progress(),
	})
}

func (h *handler) stats(c *fiber.Ctx) error {
	ctx := c.UserContext()
	formulas, err := h.Formulas.Count(ctx)
	if err != nil {
		return err
	}
	failed, err := h.Evaluations.CountFailed(ctx)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"stats": entity.FormulaStats{
			Formulas:          formulas,
			FailedEvaluations: failed,
		},
		"operations": len(formula.Operations()),
		"max_depth":  h.Solver.MaxDepth(),
		"timestamp":  time.Now().Format(time.RFC3339),
	})
}
