// Package live fans out store change notifications to in-process
// subscribers. Messages carry no row data; subscribers re-query on receipt.
package live

import (
	"context"
	"sync"
	"time"
)

const (
	TablePlants        = "plants"
	TableNotifications = "notifications"
)

// Change describes a committed write. IDs is empty for table-wide writes
// such as delete-all.
type Change struct {
	Table string
	IDs   []int64
	At    time.Time
}

// Touches reports whether c may affect the row with id.
func (c Change) Touches(id int64) bool {
	if len(c.IDs) == 0 {
		return true
	}
	for _, v := range c.IDs {
		if v == id {
			return true
		}
	}
	return false
}

type Broker struct {
	mu          sync.RWMutex
	subscribers map[int64]*subscriber
	nextID      int64
	bufferSize  int
}

type subscriber struct {
	id     int64
	table  string
	stream chan Change
	once   sync.Once
}

func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[int64]*subscriber),
		bufferSize:  16,
	}
}

// Subscribe registers interest in changes to table. The returned channel is
// closed once ctx is done or the cancel func is called, whichever comes first.
func (b *Broker) Subscribe(ctx context.Context, table string) (<-chan Change, func()) {
	sub := &subscriber{
		table:  table,
		stream: make(chan Change, b.bufferSize),
	}

	b.mu.Lock()
	b.nextID++
	sub.id = b.nextID
	b.subscribers[sub.id] = sub
	b.mu.Unlock()

	done := make(chan struct{})
	cancel := func() {
		sub.once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, sub.id)
			close(sub.stream)
			b.mu.Unlock()
			close(done)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return sub.stream, cancel
}

// Publish delivers c to every subscriber of c.Table without blocking. A
// subscriber whose buffer is full misses the message; it still holds an
// undelivered change, so it will re-read current state anyway.
func (b *Broker) Publish(c Change) {
	if c.Table == "" {
		return
	}
	if c.At.IsZero() {
		c.At = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers {
		if sub.table != c.Table {
			continue
		}
		select {
		case sub.stream <- c:
		default:
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
