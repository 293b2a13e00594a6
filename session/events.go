package session

import "sync"

// Auth change reasons carried on AuthEvent.
const (
	ReasonLogin        = "login"
	ReasonLogout       = "logout"
	ReasonTokenExpired = "token_expired"
)

// AuthEvent announces a change in authentication status. Events are
// advisory: consumers that miss one learn the truth from the next
// CheckStatus call.
type AuthEvent struct {
	Authenticated bool   `json:"isAuthenticated"`
	Email         string `json:"email,omitempty"`
	Reason        string `json:"reason"`
}

// Broadcaster fans AuthEvents out to subscribers. Sends never block:
// a subscriber that has fallen behind loses events instead of stalling
// the session manager.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan AuthEvent]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan AuthEvent]struct{})}
}

// Subscribe registers a new subscriber and returns its event channel.
func (b *Broadcaster) Subscribe() chan AuthEvent {
	ch := make(chan AuthEvent, 8)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(ch chan AuthEvent) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Send delivers the event to every subscriber that has room for it.
func (b *Broadcaster) Send(ev AuthEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber backed up; drop rather than block
		}
	}
}
