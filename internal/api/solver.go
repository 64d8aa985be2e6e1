package api

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ilramdhan/formula-solver/pkg/formula"
)

type solveRequest struct {
	Formula string            `json:"formula"`
	Context map[string]string `json:"context"`
}

func (h *handler) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"storage":   h.hasStorage(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *handler) operations(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": formula.Operations()})
}

func (h *handler) solve(c *fiber.Ctx) error {
	var req solveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Formula == "" {
		return fiber.NewError(fiber.StatusBadRequest, "formula is required")
	}

	v, err := h.Solver.SolveValue(req.Formula, req.Context)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"result": v.String(),
		"type":   v.Kind().String(),
	})
}

func (h *handler) validate(c *fiber.Ctx) error {
	var req solveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return c.JSON(fiber.Map{"valid": h.Solver.IsValid(req.Formula)})
}
