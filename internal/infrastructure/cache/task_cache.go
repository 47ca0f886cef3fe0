// Package cache keeps per-owner task lists in Redis.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-manager/internal/application"
	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
)

// unknownGen never matches a stored generation, so Set after a failed Get
// is always skipped.
const unknownGen = -1

// TaskListCache stores one Redis hash per owner, one field per status filter,
// so a single DEL invalidates every cached list of that owner. A per-owner
// counter guards writes against lists read before the last invalidation.
type TaskListCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewTaskListCache(rdb *redis.Client, ttl time.Duration, logger *logrus.Logger) *TaskListCache {
	return &TaskListCache{rdb: rdb, ttl: ttl, logger: logger}
}

func listKey(ownerID string) string {
	return "tasks:list:" + ownerID
}

func genKey(ownerID string) string {
	return "tasks:gen:" + ownerID
}

func (c *TaskListCache) Get(ctx context.Context, ownerID, filter string) ([]*entity.Task, int64, bool) {
	var tasks []*entity.Task
	ok, err := helpers.RedisHGetJSON(ctx, c.rdb, listKey(ownerID), filter, &tasks)
	if err != nil {
		c.warn(err, ownerID, "task cache read failed")
		return nil, unknownGen, false
	}
	if ok {
		if tasks == nil {
			tasks = []*entity.Task{}
		}
		return tasks, 0, true
	}
	gen, err := helpers.RedisGetInt64(ctx, c.rdb, genKey(ownerID))
	if err != nil {
		c.warn(err, ownerID, "task cache read failed")
		return nil, unknownGen, false
	}
	return nil, gen, false
}

func (c *TaskListCache) Set(ctx context.Context, ownerID, filter string, gen int64, tasks []*entity.Task) {
	if gen == unknownGen {
		return
	}
	err := helpers.RedisHSetJSONIf(ctx, c.rdb, listKey(ownerID), filter, tasks, c.ttl, genKey(ownerID), gen)
	switch {
	case errors.Is(err, helpers.ErrRedisGuardMoved):
		if c.logger != nil {
			c.logger.WithField("user_id", ownerID).Debug("task list changed while loading; not cached")
		}
	case err != nil:
		c.warn(err, ownerID, "task cache write failed")
	}
}

func (c *TaskListCache) Invalidate(ctx context.Context, ownerID string) {
	if err := helpers.RedisDelAndBump(ctx, c.rdb, listKey(ownerID), genKey(ownerID)); err != nil {
		c.warn(err, ownerID, "task cache invalidate failed")
	}
}

func (c *TaskListCache) warn(err error, ownerID, msg string) {
	if c.logger != nil {
		c.logger.WithError(err).WithField("user_id", ownerID).Warn(msg)
	}
}

var _ application.TaskListCache = (*TaskListCache)(nil)
