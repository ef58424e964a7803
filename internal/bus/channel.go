package bus

import (
	"sync"

	"github.com/rdorfner/EurorackSequencer/internal/errors"
	"github.com/rdorfner/EurorackSequencer/internal/logger"
)

// Channel is the inter-context message channel: two unidirectional bounded
// FIFO queues. Send never blocks; a full queue sheds its oldest message and
// counts the drop, so real-time producers are never stalled by a slow
// consumer.
type Channel struct {
	queues [2]messageQueue
	log    logger.Logger
}

type messageQueue struct {
	mu       sync.Mutex
	messages []Message
	capacity int
	drops    uint64
	signal   chan struct{} // buffered size 1, coalesces wakeups
}

// NewChannel creates a channel whose queues each hold up to capacity
// messages.
func NewChannel(capacity int, log logger.Logger) (*Channel, error) {
	if capacity < 1 {
		errFactory := errors.New()
		return nil, errFactory.WithData(ErrInvalidCapacity, capacity)
	}

	if log == nil {
		log = logger.Default()
	}

	c := &Channel{log: log}
	for i := range c.queues {
		c.queues[i].capacity = capacity
		c.queues[i].messages = make([]Message, 0, capacity)
		c.queues[i].signal = make(chan struct{}, 1)
	}

	return c, nil
}

// Send enqueues msg on the given queue. Constant-time and non-blocking:
// when the queue is at capacity the oldest message is dropped first.
func (c *Channel) Send(dir Direction, msg Message) {
	q := &c.queues[dir]

	q.mu.Lock()
	dropped := false
	var drops uint64
	if len(q.messages) >= q.capacity {
		q.messages = q.messages[1:]
		q.drops++
		dropped = true
		drops = q.drops
	}
	q.messages = append(q.messages, msg)

	// Non-blocking: the size-1 buffer coalesces repeated wakeups
	select {
	case q.signal <- struct{}{}:
	default:
	}
	q.mu.Unlock()

	if dropped {
		c.log.Debug().
			Str("queue", dir.String()).
			Str("kind", msg.Kind.String()).
			Uint64("drops", drops).
			Msg("Queue full, dropped oldest message")
	}
}

// DrainAndDispatch atomically removes every queued message, then invokes
// handler once per message in FIFO order with no lock held. Handlers may
// send on either queue; messages they enqueue on this one are delivered on
// the next drain. Returns the number of messages dispatched.
func (c *Channel) DrainAndDispatch(dir Direction, handler func(Message)) int {
	q := &c.queues[dir]

	q.mu.Lock()
	batch := q.messages
	q.messages = make([]Message, 0, q.capacity)
	q.mu.Unlock()

	for _, msg := range batch {
		handler(msg)
	}

	return len(batch)
}

// Wait returns a channel that signals when messages may be available on
// the given queue. Use it in a select alongside a context; a wakeup does
// not guarantee messages, so follow it with DrainAndDispatch.
func (c *Channel) Wait(dir Direction) <-chan struct{} {
	return c.queues[dir].signal
}

// Stats reports the current depth and lifetime drop count of one queue
func (c *Channel) Stats(dir Direction) Stats {
	q := &c.queues[dir]

	q.mu.Lock()
	defer q.mu.Unlock()

	return Stats{Depth: len(q.messages), Drops: q.drops}
}
