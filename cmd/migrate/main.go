package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/ilramdhan/formula-solver/config"
	"github.com/ilramdhan/formula-solver/pkg/database"
)

// migration is one versioned pair of scripts in the migrations directory
type migration struct {
	Version string
	Name    string
	Up      string
	Down    string
}

func main() {
	godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Println("Usage: migrate <command> [-dir migrations]")
		fmt.Println("Commands: up, down, status")
		os.Exit(1)
	}

	fs := flag.NewFlagSet(os.Args[1], flag.ExitOnError)
	dir := fs.String("dir", "migrations", "Directory holding NNNNNN_name.{up,down}.sql files")
	steps := fs.Int("steps", 1, "Number of migrations to roll back (down only)")
	fs.Parse(os.Args[2:])

	migrations, err := loadMigrations(*dir)
	if err != nil {
		log.Fatalf("Failed to load migrations: %v", err)
	}

	cfg := config.Load()
	ctx := context.Background()

	pool, err := database.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	ensureMigrationsTable(ctx, pool)

	switch os.Args[1] {
	case "up":
		runMigrationsUp(ctx, pool, migrations)
	case "down":
		runMigrationsDown(ctx, pool, migrations, *steps)
	case "status":
		showMigrationStatus(ctx, pool, migrations)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

// loadMigrations pairs up and down scripts by version, ordered by version
func loadMigrations(dir string) ([]migration, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, err
	}

	byVersion := make(map[string]*migration)
	for _, file := range files {
		base := filepath.Base(file)
		var direction string
		switch {
		case strings.HasSuffix(base, ".up.sql"):
			direction = "up"
		case strings.HasSuffix(base, ".down.sql"):
			direction = "down"
		default:
			continue
		}

		version := extractVersion(base)
		m, ok := byVersion[version]
		if !ok {
			name := strings.TrimSuffix(strings.TrimSuffix(base, ".sql"), "."+direction)
			m = &migration{Version: version, Name: name}
			byVersion[version] = m
		}
		if direction == "up" {
			m.Up = file
		} else {
			m.Down = file
		}
	}

	migrations := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" {
			return nil, fmt.Errorf("migration %s has no up script", m.Version)
		}
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

func extractVersion(filename string) string {
	base := filepath.Base(filename)
	version, _, found := strings.Cut(base, "_")
	if found {
		return version
	}
	return base
}

func ensureMigrationsTable(ctx context.Context, pool *pgxpool.Pool) {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		log.Fatalf("Failed to create migrations table: %v", err)
	}
}

// apply runs a script and its bookkeeping statement in one transaction
func apply(ctx context.Context, pool *pgxpool.Pool, file, bookkeeping, version string) error {
	content, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, string(content)); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, bookkeeping, version)
		return err
	})
}

func runMigrationsUp(ctx context.Context, pool *pgxpool.Pool, migrations []migration) {
	for _, m := range migrations {
		if isApplied(ctx, pool, m.Version) {
			log.Printf("Skipping %s (already applied)", m.Name)
			continue
		}

		log.Printf("Applying %s...", m.Name)
		if err := apply(ctx, pool, m.Up, "INSERT INTO schema_migrations (version) VALUES ($1)", m.Version); err != nil {
			log.Fatalf("Failed to apply %s: %v", m.Up, err)
		}
		log.Printf("Applied %s successfully", m.Name)
	}
}

func runMigrationsDown(ctx context.Context, pool *pgxpool.Pool, migrations []migration, steps int) {
	rolledBack := 0
	for i := len(migrations) - 1; i >= 0 && rolledBack < steps; i-- {
		m := migrations[i]
		if !isApplied(ctx, pool, m.Version) {
			continue
		}
		if m.Down == "" {
			log.Fatalf("Migration %s has no down script", m.Name)
		}

		log.Printf("Rolling back %s...", m.Name)
		if err := apply(ctx, pool, m.Down, "DELETE FROM schema_migrations WHERE version = $1", m.Version); err != nil {
			log.Fatalf("Failed to rollback %s: %v", m.Down, err)
		}
		log.Printf("Rolled back %s successfully", m.Name)
		rolledBack++
	}

	if rolledBack == 0 {
		log.Println("No migrations to rollback")
	}
}

func showMigrationStatus(ctx context.Context, pool *pgxpool.Pool, migrations []migration) {
	fmt.Println("Migration Status:")
	fmt.Println("=================")
	for _, m := range migrations {
		status := "PENDING"
		if isApplied(ctx, pool, m.Version) {
			status = "APPLIED"
		}
		fmt.Printf("[%s] %s\n", status, m.Name)
	}
}

func isApplied(ctx context.Context, pool *pgxpool.Pool, version string) bool {
	var count int
	err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE version = $1", version).Scan(&count)
	if err != nil {
		return false
	}
	return count > 0
}
