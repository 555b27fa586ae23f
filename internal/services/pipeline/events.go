package pipeline

import (
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/censeo/internal/interfaces"
)

// subscriberBuffer is the per-subscriber event backlog. A subscriber that
// falls further behind misses events rather than stalling the pipeline.
const subscriberBuffer = 64

// eventHub fans crawl progress events out to subscribers over buffered
// channels. Websocket connections subscribe through it.
type eventHub struct {
	logger arbor.ILogger

	mu     sync.Mutex
	subs   map[int]chan interfaces.CrawlEvent
	nextID int
	closed bool
}

// NewEventHub creates the in-process event broadcaster.
func NewEventHub(logger arbor.ILogger) interfaces.EventService {
	return &eventHub{
		logger: logger,
		subs:   make(map[int]chan interfaces.CrawlEvent),
	}
}

func (h *eventHub) Publish(event interfaces.CrawlEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	for id, ch := range h.subs {
		select {
		case ch <- event:
		default:
			h.logger.Debug().
				Int("subscriber", id).
				Str("type", string(event.Type)).
				Str("job_id", event.JobID).
				Msg("Subscriber backlog full, event dropped")
		}
	}
}

func (h *eventHub) Subscribe() (<-chan interfaces.CrawlEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan interfaces.CrawlEvent, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, unsubscribe
}

func (h *eventHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
	return nil
}
