package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-task-manager/config"
	"github.com/oksasatya/go-task-manager/internal/application"
	"github.com/oksasatya/go-task-manager/internal/container"
	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	pginfra "github.com/oksasatya/go-task-manager/internal/infrastructure/postgres"
	"github.com/oksasatya/go-task-manager/internal/router"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
)

// seed creates a demo account with a handful of tasks. Running it twice only
// adds the tasks again.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{MaxConns: 2, MinConns: 0, MaxConnLife: cfg.DBMaxConnLife})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetPGPool(pool)

	auth := router.BuildAuthDeps().Service
	tasks := router.BuildTaskDeps().Service

	email := "demo@example.com"
	password := "password123"
	name := "Demo User"

	if _, err := auth.Register(ctx, name, email, password); err != nil && !errors.Is(err, application.ErrConflict) {
		log.Fatalf("failed to seed user: %v", err)
	}
	login, err := auth.Login(ctx, email, password)
	if err != nil {
		log.Fatalf("failed to log in seeded user: %v", err)
	}
	fmt.Printf("seeded user: id=%s email=%s password=%s\n", login.User.ID, email, password)

	id := application.Identity{UserID: login.User.ID}
	high, low := "high", "low"
	demo := []application.CreateTaskInput{
		{Title: "Pay bills", Description: "electricity and water", DueDate: "2025-01-10"},
		{Title: "Renew passport", DueDate: "2025-03-01", Priority: &high},
		{Title: "Water the plants", Description: "balcony only", DueDate: "2025-01-05", Priority: &low},
	}
	for _, in := range demo {
		t, err := tasks.CreateTask(ctx, id, in)
		if err != nil {
			log.Fatalf("failed to seed task %q: %v", in.Title, err)
		}
		fmt.Printf("seeded task: id=%s title=%q due=%s\n", t.ID, t.Title, in.DueDate)
	}
	if _, err := tasks.UpdateStatus(ctx, id, mustFirst(tasks.ListTasks(ctx, id, "")), "completed"); err != nil {
		log.Fatalf("failed to complete demo task: %v", err)
	}
}

func mustFirst(list []*entity.Task, err error) string {
	if err != nil || len(list) == 0 {
		log.Fatalf("failed to list seeded tasks: %v", err)
	}
	return list[0].ID
}
