package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
	block  chan struct{}
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Publish(_ context.Context, event Event) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func TestDispatcherDeliversAllQueuedEventsOnClose(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, zap.NewNop(), DispatcherOptions{Workers: 3, BufferSize: 16})

	for i := 0; i < 10; i++ {
		d.Notify(context.Background(), Event{Type: EventForStatus("submitted"), RequisitionID: "r"})
	}
	d.Close()

	events := sink.snapshot()
	require.Len(t, events, 10)
	for _, e := range events {
		assert.Equal(t, "requisition.submitted", e.Type)
		assert.False(t, e.OccurredAt.IsZero())
	}
}

func TestDispatcherDropsWhenQueueIsFull(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	sink := &recordingSink{block: make(chan struct{})}
	d := NewDispatcher(sink, zap.New(core), DispatcherOptions{Workers: 1, BufferSize: 1})

	// One event held by the blocked worker, one in the buffer, the rest dropped.
	for i := 0; i < 5; i++ {
		d.Notify(context.Background(), Event{Type: EventRequisitionCreated})
	}
	require.Eventually(t, func() bool {
		return logs.FilterMessage("notification queue full, dropping event").Len() >= 3
	}, time.Second, 10*time.Millisecond)

	close(sink.block)
	d.Close()
	assert.LessOrEqual(t, len(sink.snapshot()), 2)
}

func TestDispatcherLogsPublishFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	sink := &recordingSink{err: errors.New("broker down")}
	d := NewDispatcher(sink, zap.New(core), DispatcherOptions{Workers: 1})

	d.Notify(context.Background(), Event{Type: EventTemplatePublished})
	d.Close()

	assert.Equal(t, 1, logs.FilterMessage("failed to publish event").Len())
}

func TestNotifyAfterCloseDoesNotPanic(t *testing.T) {
	d := NewDispatcher(&recordingSink{}, zap.NewNop(), DispatcherOptions{})
	d.Close()
	d.Close()
	assert.NotPanics(t, func() { d.Notify(context.Background(), Event{Type: EventRequisitionCreated}) })
}

func TestRedisSinkPublishesJSON(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, "requisitions.events")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	sink := NewRedisSink(client, "requisitions.events")
	require.NoError(t, sink.Publish(ctx, Event{Type: "requisition.approved", RequisitionID: "req-1", CompanyID: "c-1"}))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	var got Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, "requisition.approved", got.Type)
	assert.Equal(t, "req-1", got.RequisitionID)
	assert.Equal(t, "c-1", got.CompanyID)
}
