package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/oksasatya/go-task-manager/internal/application"
)

// ErrMalformedEvent marks a message that can never be processed.
var ErrMalformedEvent = errors.New("malformed task event")

// TaskSink receives task snapshots from the event stream.
type TaskSink interface {
	Index(ctx context.Context, t *application.TaskPayload) error
	Delete(ctx context.Context, taskID string) error
}

// ApplyEvent decodes one message body and forwards it to sink. Errors wrapping
// ErrMalformedEvent should be dropped; any other error is worth a retry.
func ApplyEvent(ctx context.Context, sink TaskSink, body []byte) (application.TaskEvent, error) {
	var ev application.TaskEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if ev.TaskID == "" {
		return ev, fmt.Errorf("%w: missing task_id", ErrMalformedEvent)
	}

	switch ev.Type {
	case application.EventTaskDeleted:
		return ev, sink.Delete(ctx, ev.TaskID)
	case application.EventTaskCreated, application.EventTaskUpdated, application.EventTaskStatusChanged:
		if ev.Task == nil || ev.Task.ID != ev.TaskID {
			return ev, fmt.Errorf("%w: %s without task snapshot", ErrMalformedEvent, ev.Type)
		}
		return ev, sink.Index(ctx, ev.Task)
	default:
		return ev, fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, ev.Type)
	}
}
