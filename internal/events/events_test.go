package events

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	failOn string
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		if string(m.Key) == w.failOn {
			return errors.New("broker unavailable")
		}
		w.msgs = append(w.msgs, m)
	}
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type fakeOutbox struct {
	events    []Event
	published []int64
	fetchErr  error
}

func (o *fakeOutbox) Unpublished(_ context.Context, limit int) ([]Event, error) {
	if o.fetchErr != nil {
		return nil, o.fetchErr
	}
	var out []Event
	for _, e := range o.events {
		if !o.isPublished(e.ID) && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (o *fakeOutbox) MarkPublished(_ context.Context, id int64) error {
	o.published = append(o.published, id)
	return nil
}

func (o *fakeOutbox) isPublished(id int64) bool {
	for _, p := range o.published {
		if p == id {
			return true
		}
	}
	return false
}

func orderEvent(t *testing.T, id int64, orderID string) Event {
	t.Helper()
	e, err := NewEvent(orderID, TypeOrderSubmitted, OrderSubmitted{
		OrderID: orderID, CartID: "cart-1", PaymentGatewayID: "card", Currency: "MWK", Total: 20000,
		SubmittedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	e.ID = id
	return e
}

func TestPublishSetsKeyAndHeader(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisher(w)
	e := orderEvent(t, 1, "order-1")
	require.NoError(t, p.Publish(context.Background(), e))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "order-1", string(w.msgs[0].Key))
	assert.JSONEq(t, string(e.Payload), string(w.msgs[0].Value))
	assert.Equal(t, []kafka.Header{{Key: "event_type", Value: []byte(TypeOrderSubmitted)}}, w.msgs[0].Headers)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestFlushKeepsFailedEvents(t *testing.T) {
	w := &fakeWriter{failOn: "order-2"}
	outbox := &fakeOutbox{events: []Event{orderEvent(t, 1, "order-1"), orderEvent(t, 2, "order-2"), orderEvent(t, 3, "order-3")}}
	var logs bytes.Buffer
	var outcomes []string
	poller := NewPoller(outbox, NewPublisher(w), zerolog.New(&logs),
		WithPublishObserver(func(o string) { outcomes = append(outcomes, o) }))

	assert.Equal(t, 2, poller.Flush(context.Background()))
	assert.Equal(t, []int64{1, 3}, outbox.published)
	assert.Equal(t, []string{"published", "failed", "published"}, outcomes)
	assert.Contains(t, logs.String(), `"event_id":2`)

	w.failOn = ""
	assert.Equal(t, 1, poller.Flush(context.Background()))
	assert.Equal(t, []int64{1, 3, 2}, outbox.published)
}

func TestFlushFetchError(t *testing.T) {
	var logs bytes.Buffer
	poller := NewPoller(&fakeOutbox{fetchErr: errors.New("db down")}, NewPublisher(&fakeWriter{}), zerolog.New(&logs))
	assert.Zero(t, poller.Flush(context.Background()))
	assert.Contains(t, logs.String(), "db down")
}

func TestRunStopsOnCancel(t *testing.T) {
	outbox := &fakeOutbox{events: []Event{orderEvent(t, 1, "order-1")}}
	poller := NewPoller(outbox, NewPublisher(&fakeWriter{}), zerolog.Nop(), WithTick(5*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}
