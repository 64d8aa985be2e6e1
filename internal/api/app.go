// Package api serves the solver and the formula store over HTTP.
package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ilramdhan/formula-solver/internal/domain/repository"
	"github.com/ilramdhan/formula-solver/internal/modules/evaluation"
	"github.com/ilramdhan/formula-solver/pkg/formula"
)

// DefaultBodyLimit caps request bodies when Deps.BodyLimit is unset
const DefaultBodyLimit = 256 * 1024

// Deps are the collaborators behind the routes. Solver is required; the
// formula, evaluation and job routes are registered only when Formulas,
// Evaluations, Jobs and Engine are all set. Without a Pool, batch jobs are
// left pending for cmd/worker.
type Deps struct {
	Solver      *formula.Solver
	Formulas    repository.FormulaRepository
	Evaluations repository.EvaluationRepository
	Jobs        repository.BatchJobRepository
	Engine      *evaluation.Engine
	Pool        *evaluation.WorkerPool

	AppName       string
	BodyLimit     int
	DisableLogger bool
}

func (d Deps) hasStorage() bool {
	return d.Formulas != nil && d.Evaluations != nil && d.Jobs != nil && d.Engine != nil
}

type handler struct {
	Deps
}

// New builds the fiber app with middleware and routes
func New(deps Deps) *fiber.App {
	if deps.Solver == nil {
		deps.Solver = formula.DefaultSolver
	}
	if deps.BodyLimit <= 0 {
		deps.BodyLimit = DefaultBodyLimit
	}
	if deps.AppName == "" {
		deps.AppName = "Formula Solver API"
	}
	h := &handler{Deps: deps}

	app := fiber.New(fiber.Config{
		AppName:               deps.AppName,
		BodyLimit:             deps.BodyLimit,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           120 * time.Second,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	if !deps.DisableLogger {
		app.Use(logger.New())
	}
	app.Use(cors.New())

	app.Get("/health", h.health)

	v1 := app.Group("/api/v1")
	v1.Get("/operations", h.operations)
	v1.Post("/solve", h.solve)
	v1.Post("/validate", h.validate)

	if deps.hasStorage() {
		v1.Get("/formulas", h.listFormulas)
		v1.Post("/formulas", h.createFormula)
		v1.Get("/formulas/by-name/:name", h.getFormulaByName)
		v1.Get("/formulas/:id", h.getFormula)
		v1.Put("/formulas/:id", h.updateFormula)
		v1.Delete("/formulas/:id", h.deleteFormula)
		v1.Post("/formulas/:id/evaluate", h.evaluateFormula)
		v1.Get("/formulas/:id/evaluations", h.listEvaluations)

		v1.Post("/evaluate/all", h.evaluateAll)
		v1.Get("/jobs", h.listJobs)
		v1.Get("/jobs/:id", h.getJob)
		v1.Get("/stats", h.stats)
	}

	return app
}

// errorHandler renders every handler error as {"error": ...}. Solver
// errors also carry their kind.
func errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	body := fiber.Map{"error": err.Error()}

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		status = fe.Code
		body["error"] = fe.Message
	case evaluation.ErrorKind(err) != "":
		status = fiber.StatusUnprocessableEntity
		body["kind"] = evaluation.ErrorKind(err)
	case errors.Is(err, repository.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, repository.ErrDuplicate), errors.Is(err, evaluation.ErrInactive):
		status = fiber.StatusConflict
	}

	return c.Status(status).JSON(body)
}
