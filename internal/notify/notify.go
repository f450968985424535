// Package notify holds the transient notices (toasts) produced by cart and
// checkout operations. The page shell owns a Queue and renders whatever it pops.
package notify

import (
	"sync"

	"github.com/google/uuid"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notification struct {
	ID      string `json:"id"`
	Level   Level  `json:"level"`
	Source  string `json:"source"`
	Message string `json:"message"`
}

// Sink accepts notifications. Core packages depend on this, never on Queue.
type Sink interface {
	Notify(n Notification)
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Notify(Notification) {}

const defaultCapacity = 64

// Queue is a bounded FIFO of notifications. When full, the oldest entry is dropped.
type Queue struct {
	mu          sync.Mutex
	items       []Notification
	capacity    int
	subscribers []chan Notification
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Queue{capacity: capacity}
}

// Notify implements Sink.
func (q *Queue) Notify(n Notification) {
	q.Push(n)
}

// Push enqueues n, assigning an id when missing, and fans it out to subscribers
// without blocking.
func (q *Queue) Push(n Notification) Notification {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	q.mu.Lock()
	if len(q.items) >= q.capacity {
		q.items = q.items[1:]
	}
	q.items = append(q.items, n)
	for _, ch := range q.subscribers {
		select {
		case ch <- n:
		default:
		}
	}
	q.mu.Unlock()
	return n
}

// Pop removes and returns the oldest notification.
func (q *Queue) Pop() (Notification, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Notification{}, false
	}
	n := q.items[0]
	q.items = q.items[1:]
	return n, true
}

// Drain removes and returns everything queued.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

// Dismiss removes the notification with the given id. It reports whether it was queued.
func (q *Queue) Dismiss(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, n := range q.items {
		if n.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Subscribe returns a channel receiving every pushed notification. Slow
// subscribers miss notices rather than stall producers; the queue still holds them.
func (q *Queue) Subscribe(buffer int) (<-chan Notification, func()) {
	ch := make(chan Notification, buffer)
	q.mu.Lock()
	q.subscribers = append(q.subscribers, ch)
	q.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			q.mu.Lock()
			for i, s := range q.subscribers {
				if s == ch {
					q.subscribers = append(q.subscribers[:i], q.subscribers[i+1:]...)
					break
				}
			}
			q.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func Error(source, msg string) Notification {
	return Notification{Level: LevelError, Source: source, Message: msg}
}

func Success(source, msg string) Notification {
	return Notification{Level: LevelSuccess, Source: source, Message: msg}
}

func Info(source, msg string) Notification {
	return Notification{Level: LevelInfo, Source: source, Message: msg}
}
