package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/quiz-service/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewEvent(t *testing.T) {
	event, err := NewEvent(AttemptSubmitted, "u-1", AttemptSubmittedData{AttemptID: 4, Score: 3, TotalPoints: 6, Percentage: 50, Passed: true})
	require.NoError(t, err)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, Source, event.Source)

	var data AttemptSubmittedData
	require.NoError(t, event.Decode(&data))
	assert.Equal(t, uint(4), data.AttemptID)
	assert.True(t, data.Passed)
}

func TestBus_GoChannelRoundTrip(t *testing.T) {
	logger := testLogger()
	bus, err := NewBus(config.KafkaConfig{}, logger)
	require.NoError(t, err)
	defer bus.Close()
	assert.Equal(t, "gochannel", bus.Transport())

	received := make(chan *Event, 1)
	consumer, err := NewConsumer(bus.Subscriber, logger)
	require.NoError(t, err)
	consumer.Handle("quiz_updated_test", QuizUpdated, func(_ context.Context, e *Event) error {
		received <- e
		return nil
	})
	ctx := runConsumer(t, consumer)

	event, err := NewEvent(QuizUpdated, "owner", QuizUpdatedData{QuizID: 9, Change: "quiz"})
	require.NoError(t, err)
	require.NoError(t, NewWatermillPublisher(bus.Publisher, logger).Publish(ctx, event))

	select {
	case got := <-received:
		assert.Equal(t, event.ID, got.ID)
		var data QuizUpdatedData
		require.NoError(t, got.Decode(&data))
		assert.Equal(t, uint(9), data.QuizID)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

var fastRetry = RetryPolicy{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond, Multiplier: 2}

// runConsumer starts consumer and stops it when the test ends.
func runConsumer(t *testing.T, consumer *Consumer) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = consumer.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		_ = consumer.Close()
	})

	select {
	case <-consumer.Running():
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not start")
	}
	return ctx
}

func TestConsumer_FailingHandlerIsRetriedThenPoisoned(t *testing.T) {
	logger := testLogger()
	ch := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer ch.Close()

	poisoned, err := ch.Subscribe(context.Background(), PoisonTopic)
	require.NoError(t, err)

	var calls atomic.Int32
	consumer, err := NewConsumer(ch, logger, WithRetryPolicy(fastRetry), WithPoisonQueue(ch))
	require.NoError(t, err)
	consumer.Handle("always_fails", AttemptSubmitted, func(context.Context, *Event) error {
		calls.Add(1)
		return errors.New("smtp unavailable")
	})
	ctx := runConsumer(t, consumer)

	event, err := NewEvent(AttemptSubmitted, "u-1", AttemptSubmittedData{AttemptID: 1})
	require.NoError(t, err)
	require.NoError(t, NewWatermillPublisher(ch, logger).Publish(ctx, event))

	select {
	case msg := <-poisoned:
		msg.Ack()
		assert.Equal(t, event.ID, msg.UUID)
	case <-time.After(2 * time.Second):
		t.Fatal("exhausted event was not sent to the poison topic")
	}

	// one delivery plus MaxRetries, and no redelivery afterwards
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(fastRetry.MaxRetries+1), calls.Load())
}

func TestConsumer_RecoversPanicsAndDropsWithoutPoisonQueue(t *testing.T) {
	logger := testLogger()
	ch := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer ch.Close()

	var calls atomic.Int32
	received := make(chan struct{}, 1)
	consumer, err := NewConsumer(ch, logger, WithRetryPolicy(fastRetry))
	require.NoError(t, err)
	consumer.Handle("panics_once", AttemptStarted, func(_ context.Context, e *Event) error {
		if calls.Add(1) == 1 {
			panic("boom")
		}
		var data AttemptStartedData
		if err := e.Decode(&data); err == nil && data.AttemptID == 2 {
			select {
			case received <- struct{}{}:
			default:
			}
		}
		return errors.New("still failing")
	})
	ctx := runConsumer(t, consumer)

	publisher := NewWatermillPublisher(ch, logger)
	first, _ := NewEvent(AttemptStarted, "u-1", AttemptStartedData{AttemptID: 1})
	second, _ := NewEvent(AttemptStarted, "u-1", AttemptStartedData{AttemptID: 2})
	require.NoError(t, publisher.Publish(ctx, first))
	require.NoError(t, publisher.Publish(ctx, second))

	// the second event is only reached once the first was given up on
	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer stalled on a failing event")
	}
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(2*(fastRetry.MaxRetries+1)), calls.Load())
}

func TestMockEventPublisher(t *testing.T) {
	mock := NewMockEventPublisher(testLogger())
	ctx := context.Background()

	e1, _ := NewEvent(AttemptStarted, "u", AttemptStartedData{AttemptID: 1})
	e2, _ := NewEvent(AttemptSubmitted, "u", AttemptSubmittedData{AttemptID: 1})
	require.NoError(t, mock.Publish(ctx, e1))
	require.NoError(t, mock.Publish(ctx, e2))

	assert.Len(t, mock.GetPublishedEvents(), 2)
	assert.Len(t, mock.EventsOfType(AttemptSubmitted), 1)

	mock.ClearEvents()
	assert.Empty(t, mock.GetPublishedEvents())
}
