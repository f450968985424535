package notify

import (
	"sync"
	"time"
)

type keyedQueue struct {
	queue   *Queue
	used    time.Time
	retired bool
}

// Queues holds one Queue per page shell, keyed by the shell's cart id.
type Queues struct {
	mu       sync.Mutex
	queues   map[string]*keyedQueue
	capacity int
	now      func() time.Time
}

func NewQueues(capacity int) *Queues {
	return &Queues{queues: make(map[string]*keyedQueue), capacity: capacity, now: time.Now}
}

// For returns the queue for key, creating it on first use. Only producers
// should call it; readers use Get or Drain.
func (qs *Queues) For(key string) *Queue {
	qs.mu.Lock()
	defer qs.mu.Unlock()
	kq, ok := qs.queues[key]
	if !ok {
		kq = &keyedQueue{queue: NewQueue(qs.capacity)}
		qs.queues[key] = kq
	}
	kq.used = qs.now()
	return kq.queue
}

// Get returns the queue for key without creating one.
func (qs *Queues) Get(key string) (*Queue, bool) {
	qs.mu.Lock()
	defer qs.mu.Unlock()
	kq, ok := qs.queues[key]
	if !ok {
		return nil, false
	}
	kq.used = qs.now()
	return kq.queue, true
}

// Drain empties the queue for key. A retired queue is dropped once drained.
// Unknown keys drain to nil.
func (qs *Queues) Drain(key string) []Notification {
	qs.mu.Lock()
	kq, ok := qs.queues[key]
	if ok {
		kq.used = qs.now()
		if kq.retired {
			delete(qs.queues, key)
		}
	}
	qs.mu.Unlock()
	if !ok {
		return nil
	}
	return kq.queue.Drain()
}

// Retire marks key as finished: the queue keeps its pending notices until the
// next Drain and is then dropped.
func (qs *Queues) Retire(key string) {
	qs.mu.Lock()
	if kq, ok := qs.queues[key]; ok {
		kq.retired = true
	}
	qs.mu.Unlock()
}

func (qs *Queues) Drop(key string) {
	qs.mu.Lock()
	delete(qs.queues, key)
	qs.mu.Unlock()
}

// Sweep drops queues unused for longer than maxIdle and returns how many were
// removed.
func (qs *Queues) Sweep(maxIdle time.Duration) int {
	cutoff := qs.now().Add(-maxIdle)
	qs.mu.Lock()
	defer qs.mu.Unlock()
	n := 0
	for key, kq := range qs.queues {
		if kq.used.Before(cutoff) {
			delete(qs.queues, key)
			n++
		}
	}
	return n
}

func (qs *Queues) Len() int {
	qs.mu.Lock()
	defer qs.mu.Unlock()
	return len(qs.queues)
}
