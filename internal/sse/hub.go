package sse

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"logimatch/internal/metrics"
)

const (
	heartbeatInterval = 30 * time.Second
	maxMissedEvents   = 5
)

// Hub fans events out to open streams. A user has at most one stream; a new
// connection replaces the previous one.
type Hub struct {
	streams sync.Map // user id -> *Stream
	backlog *backlog
	logger  *zap.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewHub(logger *zap.Logger) *Hub {
	hub := newHub(logger)
	go hub.heartbeat(heartbeatInterval)
	return hub
}

func newHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		backlog: newBacklog(defaultBacklogSize),
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

func (h *Hub) Register(stream *Stream) {
	if h == nil || stream == nil || strings.TrimSpace(stream.Session.UserID) == "" {
		return
	}

	if previous, loaded := h.streams.Swap(stream.Session.UserID, stream); loaded {
		if old, ok := previous.(*Stream); ok && old != stream {
			old.Close()
		}
	}
	metrics.SetSSEClients(h.ConnectedCount())
}

// Unregister closes stream and forgets it unless a newer stream of the same
// user has already taken its place.
func (h *Hub) Unregister(stream *Stream) {
	if h == nil || stream == nil {
		return
	}

	if h.streams.CompareAndDelete(stream.Session.UserID, stream) {
		metrics.SetSSEClients(h.ConnectedCount())
	}
	stream.Close()
}

// Publish records event for replay and delivers it to every open stream in
// audience.
func (h *Hub) Publish(audience Audience, event Event) {
	if h == nil {
		return
	}

	h.backlog.append(event, audience)
	if audience.UserID != "" {
		if value, ok := h.streams.Load(audience.UserID); ok {
			if stream, ok := value.(*Stream); ok && audience.Includes(stream.Session) {
				h.deliver(stream, event)
			}
		}
		return
	}

	h.each(func(stream *Stream) {
		if audience.Includes(stream.Session) {
			h.deliver(stream, event)
		}
	})
}

// Replay returns the events after lastID that stream's session may see.
func (h *Hub) Replay(stream *Stream, lastID string) []Event {
	if h == nil || stream == nil {
		return nil
	}
	return h.backlog.after(lastID, stream.Session)
}

func (h *Hub) Close() {
	if h == nil {
		return
	}
	h.stopOnce.Do(func() {
		close(h.stopCh)
	})
}

func (h *Hub) ConnectedCount() int {
	if h == nil {
		return 0
	}

	count := 0
	h.streams.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

func (h *Hub) each(fn func(stream *Stream)) {
	h.streams.Range(func(_, value any) bool {
		if stream, ok := value.(*Stream); ok {
			fn(stream)
		}
		return true
	})
}

func (h *Hub) deliver(stream *Stream, event Event) {
	missed := stream.offer(event)
	if missed == 0 {
		return
	}

	h.logger.Warn("drop sse event due to full buffer",
		zap.String("user_id", stream.Session.UserID),
		zap.String("type", event.Type),
		zap.Int32("missed", missed),
	)
	if missed >= maxMissedEvents {
		h.logger.Warn("disconnect slow sse stream",
			zap.String("user_id", stream.Session.UserID),
			zap.Int32("missed", missed),
		)
		h.Unregister(stream)
	}
}

// heartbeat keeps idle connections open through proxies. Heartbeats are not
// kept for replay.
func (h *Hub) heartbeat(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case now := <-ticker.C:
			event := NewEvent(EventHeartbeat, map[string]string{
				"ts": now.UTC().Format(time.RFC3339Nano),
			})
			h.each(func(stream *Stream) {
				h.deliver(stream, event)
			})
		}
	}
}
