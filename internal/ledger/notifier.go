package ledger

import (
	"sync"

	"github.com/google/uuid"
)

// Notifier fans committed changes out to live subscribers, the push half
// of the live-subscription read model. Delivery is best effort: a
// subscriber that cannot keep up misses intermediate notifications but
// always re-reads the latest snapshot, so nothing is lost semantically.
type Notifier struct {
	mu   sync.RWMutex
	next int
	subs map[int]subscriber
}

type subscriber struct {
	userID uuid.UUID
	ch     chan Change
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]subscriber)}
}

// Subscribe registers a subscriber for one user's changes. The cancel
// function unregisters and closes the channel; it is safe to call twice.
func (n *Notifier) Subscribe(userID uuid.UUID) (<-chan Change, func()) {
	ch := make(chan Change, 8)

	n.mu.Lock()
	id := n.next
	n.next++
	n.subs[id] = subscriber{userID: userID, ch: ch}
	n.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers a change to every subscriber of the change's user.
// Slow subscribers are skipped rather than blocking the writer.
func (n *Notifier) Publish(change Change) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, sub := range n.subs {
		if sub.userID != change.UserID {
			continue
		}
		select {
		case sub.ch <- change:
		default:
		}
	}
}
