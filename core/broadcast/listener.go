package broadcast

import (
	"github.com/google/uuid"
)

// Default queue sizes.
const (
	StreamQueueSize = 64
	InfoQueueSize   = 256
)

// Listener is one connected client. The hub writes into its queue; the
// connection goroutine drains Messages until it is closed.
type Listener struct {
	id   string
	send chan []byte
}

// NewListener returns a listener with a queue of the given capacity.
func NewListener(queueSize int) *Listener {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Listener{
		id:   uuid.NewString(),
		send: make(chan []byte, queueSize),
	}
}

func (l *Listener) ID() string {
	return l.id
}

// Messages yields queued payloads. It is closed when the hub lets go of the
// listener, either on Unregister or because the listener stalled.
func (l *Listener) Messages() <-chan []byte {
	return l.send
}

// offer queues msg without blocking and reports whether it fit.
func (l *Listener) offer(msg []byte) bool {
	select {
	case l.send <- msg:
		return true
	default:
		return false
	}
}
