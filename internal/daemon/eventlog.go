package daemon

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"platter/internal/events"
	"platter/internal/logging"
)

// maxBufferedEvents bounds the ring buffer; clients further behind than this
// miss events and resume from the oldest retained one.
const maxBufferedEvents = 1024

// BufferedEvent is one orchestrator event with a client-resumable sequence
// number. Payload is pre-marshaled for transport.
type BufferedEvent struct {
	Seq       int64           `json:"seq"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// eventLog subscribes to the bus and retains recent events so polling IPC
// clients can catch up and follow.
type eventLog struct {
	sub    *events.Subscription
	logger *slog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	buffer  []BufferedEvent
	nextSeq int64
	closed  bool
}

func newEventLog(bus *events.Bus, logger *slog.Logger) *eventLog {
	l := &eventLog{
		sub:     bus.Subscribe(),
		logger:  logging.NewComponentLogger(logger, "events"),
		nextSeq: 1,
	}
	l.cond = sync.NewCond(&l.mu)
	go l.consume()
	return l
}

func (l *eventLog) consume() {
	for evt := range l.sub.Events() {
		payload, err := json.Marshal(evt.Payload)
		if err != nil {
			l.logger.Warn("event payload marshal failed",
				logging.String(logging.FieldEventType, string(evt.Type)),
				logging.Error(err),
			)
			continue
		}

		l.mu.Lock()
		buffered := BufferedEvent{
			Seq:       l.nextSeq,
			Type:      string(evt.Type),
			Timestamp: evt.Timestamp,
			Payload:   payload,
		}
		l.nextSeq++
		l.buffer = append(l.buffer, buffered)
		if len(l.buffer) > maxBufferedEvents {
			l.buffer = l.buffer[len(l.buffer)-maxBufferedEvents:]
		}
		l.cond.Broadcast()
		l.mu.Unlock()
	}

	l.mu.Lock()
	l.closed = true
	l.cond.Broadcast()
	l.mu.Unlock()
}

// After returns events with Seq > afterSeq. With none pending it waits up to
// wait for new events before returning empty. The second return value is the
// sequence to resume from.
func (l *eventLog) After(ctx context.Context, afterSeq int64, wait time.Duration) ([]BufferedEvent, int64) {
	deadline := time.Now().Add(wait)

	var timer *time.Timer
	if wait > 0 {
		timer = time.AfterFunc(wait, func() {
			l.mu.Lock()
			l.cond.Broadcast()
			l.mu.Unlock()
		})
		defer timer.Stop()
	}
	stop := context.AfterFunc(ctx, func() {
		l.mu.Lock()
		l.cond.Broadcast()
		l.mu.Unlock()
	})
	defer stop()

	l.mu.Lock()
	defer l.mu.Unlock()

	for {
		pending := l.eventsAfterLocked(afterSeq)
		if len(pending) > 0 {
			return pending, pending[len(pending)-1].Seq
		}
		if l.closed || ctx.Err() != nil || wait <= 0 || !time.Now().Before(deadline) {
			return nil, afterSeq
		}
		l.cond.Wait()
	}
}

func (l *eventLog) eventsAfterLocked(afterSeq int64) []BufferedEvent {
	idx := 0
	for idx < len(l.buffer) && l.buffer[idx].Seq <= afterSeq {
		idx++
	}
	if idx >= len(l.buffer) {
		return nil
	}
	out := make([]BufferedEvent, len(l.buffer)-idx)
	copy(out, l.buffer[idx:])
	return out
}

// Close stops consuming. The underlying subscription is closed by the bus.
func (l *eventLog) Close() {
	l.sub.Close()
}
