package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"posevault/internal/errs"
	"posevault/internal/mq"
	"posevault/internal/task"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type dlqMessage struct {
	Body     json.RawMessage `json:"body"`
	Error    string          `json:"error"`
	FailedAt time.Time       `json:"failed_at"`
}

type Options struct {
	Prefetch    int
	Concurrency int
	Rate        float64
	Burst       int
}

// deadLetter is the part of mq.Client used for failed messages.
type deadLetter interface {
	PublishDLQ(ctx context.Context, body []byte) error
}

// RunNotifyWorker consumes notification events from RabbitMQ. Failed events
// go to the dead-letter queue; nothing is retried.
func RunNotifyWorker(ctx context.Context, client *mq.Client, dispatcher task.Dispatcher, opts Options) error {
	if err := client.DeclareTopology(); err != nil {
		return err
	}

	prefetch := opts.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := client.Channel.Qos(prefetch, 0, false); err != nil {
		return err
	}

	deliveries, err := client.Channel.Consume(
		mq.QueueNotify,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	limiter := NewLimiter(opts.Rate, opts.Burst)
	return consume(ctx, deliveries, opts.Concurrency, func(d amqp.Delivery) {
		if requeue := HandleNotifyMessage(ctx, client, limiter, dispatcher, d.Body); requeue {
			_ = d.Nack(false, true)
			return
		}
		_ = d.Ack(false)
	})
}

// consume runs handle for each delivery with at most concurrency in flight.
// It returns only after every started handler has finished, so acks are
// sent before the caller closes the channel.
func consume(ctx context.Context, deliveries <-chan amqp.Delivery, concurrency int, handle func(amqp.Delivery)) error {
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("notify worker: delivery channel closed")
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				_ = delivery.Nack(false, true)
				return nil
			}
			wg.Add(1)
			go func(d amqp.Delivery) {
				defer wg.Done()
				defer func() { <-sem }()
				handle(d)
			}(delivery)
		}
	}
}

// NewLimiter builds the worker pacing limiter; a non-positive rate means
// unlimited.
func NewLimiter(perSecond float64, burst int) *rate.Limiter {
	if burst <= 0 {
		burst = 1
	}
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, burst)
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// HandleNotifyMessage processes one delivery body and reports whether it
// should be requeued. Only shutdown requeues.
func HandleNotifyMessage(ctx context.Context, dlq deadLetter, limiter *rate.Limiter, d task.Dispatcher, body []byte) bool {
	msg, err := task.DecodeNotifyMessage(body)
	if err != nil {
		logrus.WithError(err).Warn("notify worker: invalid message")
		deadLetterMessage(ctx, dlq, body, err)
		return false
	}

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return true
		}
	}

	res, err := task.ProcessNotifyMessage(ctx, d, msg)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return true
		}
		logrus.WithError(err).WithFields(logrus.Fields{
			"share_id": msg.Event.SharedGalleryID,
			"type":     msg.Event.Type,
			"code":     errs.CodeOf(err),
		}).Error("notify worker: dispatch failed")
		deadLetterMessage(ctx, dlq, body, err)
		return false
	}
	if res.Skipped {
		logrus.WithFields(logrus.Fields{
			"share_id": msg.Event.SharedGalleryID,
			"type":     msg.Event.Type,
			"reason":   res.Reason,
		}).Debug("notify worker: notification skipped")
	}
	return false
}

func deadLetterMessage(ctx context.Context, dlq deadLetter, body []byte, procErr error) {
	raw := json.RawMessage(body)
	if !json.Valid(body) {
		quoted, _ := json.Marshal(string(body))
		raw = quoted
	}
	payload, err := json.Marshal(dlqMessage{
		Body:     raw,
		Error:    procErr.Error(),
		FailedAt: time.Now(),
	})
	if err != nil {
		logrus.WithError(err).Error("notify worker: encode dlq message failed")
		return
	}
	if err := dlq.PublishDLQ(ctx, payload); err != nil {
		logrus.WithError(err).Error("notify worker: dlq publish failed")
	}
}
