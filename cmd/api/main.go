package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ilramdhan/formula-solver/config"
	"github.com/ilramdhan/formula-solver/internal/api"
	"github.com/ilramdhan/formula-solver/internal/bootstrap"
)

func main() {
	godotenv.Load()

	cfg := config.Load()
	ctx := context.Background()

	services, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer services.Close()

	deps := api.Deps{
		Solver:      services.Solver,
		Formulas:    services.Formulas,
		Evaluations: services.Evaluations,
		Jobs:        services.Jobs,
		Engine:      services.Engine,
		BodyLimit:   cfg.App.BodyLimit,
	}
	// A memory store is invisible to cmd/worker, so its jobs always run here
	if cfg.Worker.InProcess || cfg.App.Storage == bootstrap.StorageMemory {
		deps.Pool = services.Pool
	}
	app := api.New(deps)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		app.Shutdown()
	}()

	log.Printf("Starting API server on :%s (storage=%s, max depth=%d)", cfg.App.Port, cfg.App.Storage, cfg.Solver.MaxDepth)
	if err := app.Listen(":" + cfg.App.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
