package session

import "ShreeMohan/internal/model"

type EventKind int

const (
	// SessionStarted follows a successful login or startup verification.
	SessionStarted EventKind = iota + 1
	// SessionInvalidated follows every logout, explicit or forced. Reason is
	// nil for an explicit logout, ErrSessionExpired or ErrNotAuthenticated
	// otherwise.
	SessionInvalidated
)

func (k EventKind) String() string {
	switch k {
	case SessionStarted:
		return "session_started"
	case SessionInvalidated:
		return "session_invalidated"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind   EventKind
	User   *model.User
	Reason error
}

const subscriberBuffer = 8

// Subscribe registers a listener for session events. The routing layer uses
// it to send the user back to the login view. Delivery never blocks the
// cache: a subscriber that falls subscriberBuffer events behind loses the
// newest ones. The returned func unsubscribes and closes the channel.
func (c *Cache) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	c.subsMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.subsMu.Unlock()

	return ch, func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		if _, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(ch)
		}
	}
}

func (c *Cache) publish(ev Event) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
			c.log.Warn("session event dropped, subscriber is full")
		}
	}
}
