// Package messaging publishes task lifecycle events to RabbitMQ.
package messaging

import (
	"context"
	"time"

	"github.com/oksasatya/go-task-manager/internal/application"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
)

const publishTimeout = 3 * time.Second

// TaskEventPublisher sends every TaskEvent as one persistent JSON message.
type TaskEventPublisher struct {
	pub *helpers.RabbitPublisher
}

func NewTaskEventPublisher(pub *helpers.RabbitPublisher) *TaskEventPublisher {
	return &TaskEventPublisher{pub: pub}
}

func (p *TaskEventPublisher) Publish(ctx context.Context, ev application.TaskEvent) error {
	// The request may be finishing; the event must still go out.
	c, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	return p.pub.PublishJSON(c, ev.Type, ev)
}

var _ application.TaskEventPublisher = (*TaskEventPublisher)(nil)
