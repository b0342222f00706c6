package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHubPublishInSubscriptionOrder(t *testing.T) {
	var h Hub
	var got []string

	h.Subscribe(func(e Event) { got = append(got, "a:"+e.UserID) })
	h.Subscribe(func(e Event) { got = append(got, "b:"+e.UserID) })

	h.Publish(Event{Kind: SignedIn, UserID: "u1"})
	assert.Equal(t, []string{"a:u1", "b:u1"}, got)
}

func TestHubUnsubscribe(t *testing.T) {
	var h Hub
	calls := 0

	unsub := h.Subscribe(func(Event) { calls++ })
	h.Publish(Event{})
	unsub()
	unsub()
	h.Publish(Event{})

	assert.Equal(t, 1, calls)
	assert.Zero(t, h.Len())
}

func TestHubSubscriberMayUnsubscribeDuringPublish(t *testing.T) {
	var h Hub
	var unsub func()
	calls := 0
	unsub = h.Subscribe(func(Event) {
		calls++
		unsub()
	})

	h.Publish(Event{})
	h.Publish(Event{})
	assert.Equal(t, 1, calls)
}
