package container

import (
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-manager/config"
	repo "github.com/oksasatya/go-task-manager/internal/domain/repository"
	"github.com/oksasatya/go-task-manager/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/go-task-manager/internal/infrastructure/postgres"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
)

// app-level container to share constructed components across packages.
// The router wires modules from these singletons; optional backends stay nil
// when disabled.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	jwtManager  *helpers.JWTManager
	rabbitPub   *helpers.RabbitPublisher
	esClient    *elasticsearch.Client

	userRepo repo.UserRepository
	taskRepo repo.TaskRepository
)

func SetConfig(c *config.Config)              { cfg = c }
func GetConfig() *config.Config               { return cfg }
func SetLogger(l *logrus.Logger)              { logger = l }
func GetLogger() *logrus.Logger               { return logger }
func SetPGPool(p *pgxpool.Pool)               { pgPool = p }
func GetPGPool() *pgxpool.Pool                { return pgPool }
func SetRedis(r *redis.Client)                { redisClient = r }
func GetRedis() *redis.Client                 { return redisClient }
func SetJWT(m *helpers.JWTManager)            { jwtManager = m }
func SetRabbitPub(p *helpers.RabbitPublisher) { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher  { return rabbitPub }
func SetES(c *elasticsearch.Client)           { esClient = c }
func GetES() *elasticsearch.Client            { return esClient }

func GetJWT() *helpers.JWTManager {
	if jwtManager == nil && cfg != nil {
		jwtManager = helpers.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	}
	return jwtManager
}

// UseMemoryStore backs both repositories with in-process maps.
func UseMemoryStore() {
	userRepo = memory.NewUserRepository()
	taskRepo = memory.NewTaskRepository()
}

// GetUserRepo returns the configured user repository, falling back to
// Postgres when a pool has been set.
func GetUserRepo() repo.UserRepository {
	if userRepo == nil && pgPool != nil {
		userRepo = pginfra.NewUserRepository(pgPool)
	}
	return userRepo
}

func GetTaskRepo() repo.TaskRepository {
	if taskRepo == nil && pgPool != nil {
		taskRepo = pginfra.NewTaskRepository(pgPool)
	}
	return taskRepo
}

// Reset clears every singleton. Used by tests.
func Reset() {
	cfg, logger, pgPool, redisClient = nil, nil, nil, nil
	jwtManager, rabbitPub, esClient = nil, nil, nil
	userRepo, taskRepo = nil, nil
}
