package router

import (
	"github.com/oksasatya/go-task-manager/internal/application"
	"github.com/oksasatya/go-task-manager/internal/container"
	"github.com/oksasatya/go-task-manager/internal/infrastructure/cache"
	"github.com/oksasatya/go-task-manager/internal/infrastructure/messaging"
	"github.com/oksasatya/go-task-manager/internal/infrastructure/search"
	handlers "github.com/oksasatya/go-task-manager/internal/interface/http"
	"github.com/oksasatya/go-task-manager/internal/router/modules"
)

type AuthModuleDeps struct {
	Service *application.AuthService
	Handler *handlers.AuthHandler
}

type TaskModuleDeps struct {
	Service *application.TaskService
	Handler *handlers.TaskHandler
}

func BuildAuthDeps() AuthModuleDeps {
	cfg := container.GetConfig()
	service := application.NewAuthService(
		container.GetUserRepo(),
		container.GetJWT(),
		container.GetLogger(),
		cfg.MinPasswordLen,
	)
	return AuthModuleDeps{
		Service: service,
		Handler: handlers.NewAuthHandler(service, container.GetLogger()),
	}
}

// BuildTaskDeps assembles the task service. Optional backends are passed as
// untyped nils when disabled so the service sees them as absent.
func BuildTaskDeps() TaskModuleDeps {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	var (
		listCache application.TaskListCache
		events    application.TaskEventPublisher
		searcher  application.TaskSearcher
	)
	if rdb := container.GetRedis(); rdb != nil {
		listCache = cache.NewTaskListCache(rdb, cfg.TaskCacheTTL, logger)
	}
	if pub := container.GetRabbitPub(); pub != nil {
		events = messaging.NewTaskEventPublisher(pub)
	}
	if es := container.GetES(); es != nil {
		searcher = search.NewTaskIndex(es, cfg.ESTasksIndex)
	}

	service := application.NewTaskService(container.GetTaskRepo(), listCache, events, searcher, logger)
	return TaskModuleDeps{
		Service: service,
		Handler: handlers.NewTaskHandler(service, logger),
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	authDeps := BuildAuthDeps()
	taskDeps := BuildTaskDeps()

	r.Add(modules.NewAuthModule(authDeps.Handler, authDeps.Service))
	r.Add(modules.NewTaskModule(taskDeps.Handler, authDeps.Service))
	if container.GetConfig().DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
