// Package notify is an in-process notification service. Producers publish
// events; subscribers receive them synchronously in publish order.
package notify

import (
	"sync"
	"time"
)

// Level grades a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Type names what happened.
type Type string

// Event is one notification.
type Event struct {
	Type    Type
	Level   Level
	JobID   string
	Index   int
	Message string
	Fields  map[string]any
	Time    time.Time
}

// Handler receives events. It must not call Subscribe or Publish on the same
// notifier.
type Handler func(Event)

// Notifier fans events out to its subscribers. The zero value is ready to use.
type Notifier struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]Handler
	order  []int
	now    func() time.Time
}

func New() *Notifier {
	return &Notifier{}
}

// Subscribe registers h and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (n *Notifier) Subscribe(h Handler) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = map[int]Handler{}
	}
	id := n.nextID
	n.nextID++
	n.subs[id] = h
	n.order = append(n.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.subs, id)
			for i, v := range n.order {
				if v == id {
					n.order = append(n.order[:i], n.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish stamps e and delivers it to every current subscriber in
// subscription order. A nil notifier drops the event.
func (n *Notifier) Publish(e Event) {
	if n == nil {
		return
	}
	if e.Time.IsZero() {
		if n.now != nil {
			e.Time = n.now()
		} else {
			e.Time = time.Now()
		}
	}
	if e.Level == "" {
		e.Level = LevelInfo
	}
	n.mu.RLock()
	handlers := make([]Handler, 0, len(n.order))
	for _, id := range n.order {
		handlers = append(handlers, n.subs[id])
	}
	n.mu.RUnlock()
	for _, h := range handlers {
		h(e)
	}
}

// Len reports the number of subscribers.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}
