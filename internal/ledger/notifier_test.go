package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func recvChange(t *testing.T, ch <-chan Change) Change {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change")
		return Change{}
	}
}

func TestNotifier_DeliversOnlyToMatchingUser(t *testing.T) {
	n := NewNotifier()
	alice := uuid.New()
	bob := uuid.New()

	aliceCh, cancelAlice := n.Subscribe(alice)
	defer cancelAlice()
	bobCh, cancelBob := n.Subscribe(bob)
	defer cancelBob()

	n.Publish(Change{UserID: alice, Collections: []Collection{CollectionEntries}})

	got := recvChange(t, aliceCh)
	assert.Equal(t, alice, got.UserID)

	select {
	case <-bobCh:
		t.Fatal("bob should not see alice's change")
	default:
	}
}

func TestNotifier_CancelStopsDelivery(t *testing.T) {
	n := NewNotifier()
	userID := uuid.New()

	ch, cancel := n.Subscribe(userID)
	cancel()
	cancel() // idempotent

	n.Publish(Change{UserID: userID, Collections: []Collection{CollectionEntries}})

	_, open := <-ch
	assert.False(t, open)
}

func TestNotifier_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	n := NewNotifier()
	userID := uuid.New()

	_, cancel := n.Subscribe(userID)
	defer cancel()

	// Never drained; the buffer fills and further publishes are dropped
	// rather than blocking the writer.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			n.Publish(Change{UserID: userID, Collections: []Collection{CollectionEntries}})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
