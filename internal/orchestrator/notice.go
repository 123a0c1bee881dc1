package orchestrator

import (
	"sync"
	"time"
)

// notice is the transient error message surfaced to the user. It dismisses
// itself after ttl, or earlier on the next user action.
type notice struct {
	mu      sync.Mutex
	ttl     time.Duration
	message string
	timer   *time.Timer
}

func newNotice(ttl time.Duration) *notice {
	return &notice{ttl: ttl}
}

func (n *notice) set(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
	}
	n.message = message
	n.timer = time.AfterFunc(n.ttl, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if n.message == message {
			n.message = ""
		}
	})
}

func (n *notice) clear() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.message = ""
}

func (n *notice) current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.message
}
