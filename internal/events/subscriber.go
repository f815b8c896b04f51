package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// PoisonTopic receives messages whose handler kept failing after every retry.
const PoisonTopic = "quiz.events.poison"

// HandlerFunc processes one decoded event. A returned error is retried with
// backoff; once retries run out the message is acked and set aside.
type HandlerFunc func(ctx context.Context, event *Event) error

// RetryPolicy bounds in-process redelivery of a failing handler.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:      5,
	InitialInterval: time.Second,
	MaxInterval:     30 * time.Second,
	Multiplier:      2,
}

type ConsumerOption func(*consumerOptions)

type consumerOptions struct {
	retry  RetryPolicy
	poison message.Publisher
}

func WithRetryPolicy(policy RetryPolicy) ConsumerOption {
	return func(o *consumerOptions) { o.retry = policy }
}

// WithPoisonQueue publishes exhausted messages to PoisonTopic instead of
// dropping them.
func WithPoisonQueue(publisher message.Publisher) ConsumerOption {
	return func(o *consumerOptions) { o.poison = publisher }
}

// Consumer dispatches events to handlers through a watermill router.
type Consumer struct {
	router     *message.Router
	subscriber message.Subscriber
	logger     *slog.Logger
}

func NewConsumer(sub message.Subscriber, logger *slog.Logger, opts ...ConsumerOption) (*Consumer, error) {
	o := consumerOptions{retry: DefaultRetryPolicy}
	for _, opt := range opts {
		opt(&o)
	}

	wmLogger := watermill.NewSlogLogger(logger)
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create event router: %w", err)
	}

	// First added runs outermost: give up, then retry, then recover panics
	if o.poison != nil {
		poison, err := middleware.PoisonQueue(o.poison, PoisonTopic)
		if err != nil {
			return nil, fmt.Errorf("failed to create poison queue: %w", err)
		}
		router.AddMiddleware(poison)
	} else {
		router.AddMiddleware(dropExhausted(logger))
	}
	router.AddMiddleware(
		middleware.Retry{
			MaxRetries:      o.retry.MaxRetries,
			InitialInterval: o.retry.InitialInterval,
			MaxInterval:     o.retry.MaxInterval,
			Multiplier:      o.retry.Multiplier,
			Logger:          wmLogger,
		}.Middleware,
		middleware.Recoverer,
	)

	return &Consumer{router: router, subscriber: sub, logger: logger}, nil
}

// dropExhausted acks a message whose retries are used up.
func dropExhausted(logger *slog.Logger) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			produced, err := h(msg)
			if err != nil {
				logger.Error("Dropping event after retries", "message_id", msg.UUID, "error", err)
				return nil, nil
			}
			return produced, nil
		}
	}
}

// Handle routes eventType to handler under name. Malformed messages are acked
// and dropped. Handlers must be registered before Run.
func (c *Consumer) Handle(name string, eventType EventType, handler HandlerFunc) {
	c.router.AddNoPublisherHandler(name, string(eventType), c.subscriber, func(msg *message.Message) error {
		var event Event
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			c.logger.Error("Dropping malformed event", "message_id", msg.UUID, "error", err)
			return nil
		}

		if err := handler(msg.Context(), &event); err != nil {
			c.logger.Warn("Event handler failed", "handler", name, "event_id", event.ID, "type", event.Type, "error", err)
			return err
		}
		return nil
	})
}

// Run subscribes every handler and blocks until ctx is cancelled or Close is called.
func (c *Consumer) Run(ctx context.Context) error {
	return c.router.Run(ctx)
}

// Running is closed once the router has started its handlers.
func (c *Consumer) Running() chan struct{} {
	return c.router.Running()
}

func (c *Consumer) Close() error {
	return c.router.Close()
}
