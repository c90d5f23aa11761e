package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"posevault/internal/service"
)

// NotifyMessage is the payload sent to the notification worker.
type NotifyMessage struct {
	Event      service.NotifyEvent `json:"event"`
	EnqueuedAt time.Time           `json:"enqueued_at"`
}

type notifyQueue interface {
	PublishNotify(ctx context.Context, body []byte) error
}

// QueuePublisher enqueues notification events instead of dispatching them
// on the request path.
type QueuePublisher struct {
	queue notifyQueue
}

func NewQueuePublisher(queue notifyQueue) *QueuePublisher {
	return &QueuePublisher{queue: queue}
}

func (p *QueuePublisher) Publish(ctx context.Context, ev service.NotifyEvent) error {
	body, err := json.Marshal(NotifyMessage{Event: ev, EnqueuedAt: time.Now()})
	if err != nil {
		return err
	}
	return p.queue.PublishNotify(ctx, body)
}

// Dispatcher is the part of service.Dispatcher the worker needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev service.NotifyEvent) (*service.DispatchResult, error)
}

// DecodeNotifyMessage parses a queued payload.
func DecodeNotifyMessage(body []byte) (NotifyMessage, error) {
	var msg NotifyMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("decode notify message: %w", err)
	}
	if msg.Event.SharedGalleryID == 0 || msg.Event.Type == "" {
		return msg, fmt.Errorf("decode notify message: missing share id or type")
	}
	return msg, nil
}

// ProcessNotifyMessage dispatches one queued event.
func ProcessNotifyMessage(ctx context.Context, d Dispatcher, msg NotifyMessage) (*service.DispatchResult, error) {
	return d.Dispatch(ctx, msg.Event)
}
