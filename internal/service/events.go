package service

import (
	"context"

	"github.com/sirupsen/logrus"
)

// NotifyEvent is a viewer activity routed to the share owner.
type NotifyEvent struct {
	SharedGalleryID uint64 `json:"sharedGalleryId"`
	Type            string `json:"type"`
	ViewerName      string `json:"viewerName,omitempty"`
	ImageID         string `json:"imageId,omitempty"`
}

// EventPublisher hands notification events to the dispatcher, directly or
// through a queue.
type EventPublisher interface {
	Publish(ctx context.Context, ev NotifyEvent) error
}

// DirectPublisher dispatches events on the caller's goroutine.
type DirectPublisher struct {
	Dispatcher *Dispatcher
}

func (p DirectPublisher) Publish(ctx context.Context, ev NotifyEvent) error {
	_, err := p.Dispatcher.Dispatch(ctx, ev)
	return err
}

// publish never fails the viewer request: a lost notification is logged.
func publish(ctx context.Context, events EventPublisher, ev NotifyEvent) {
	if events == nil {
		return
	}
	if err := events.Publish(ctx, ev); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"share_id": ev.SharedGalleryID,
			"type":     ev.Type,
		}).Warn("publish notification event failed")
	}
}
