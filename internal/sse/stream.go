package sse

import (
	"sync"
	"sync/atomic"

	"logimatch/internal/model"
)

const streamBufferSize = 512

// Stream is the open /events connection of one session.
type Stream struct {
	Session model.Session
	Events  chan Event
	Done    chan struct{}

	missed    atomic.Int32
	closeOnce sync.Once
}

func NewStream(session model.Session) *Stream {
	return &Stream{
		Session: session,
		Events:  make(chan Event, streamBufferSize),
		Done:    make(chan struct{}),
	}
}

func (s *Stream) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		close(s.Done)
	})
}

// offer queues event without blocking and returns how many events in a row
// the stream has failed to take, zero when event was queued.
func (s *Stream) offer(event Event) int32 {
	select {
	case <-s.Done:
		return 0
	default:
	}

	select {
	case s.Events <- event:
		s.missed.Store(0)
		return 0
	default:
		return s.missed.Add(1)
	}
}
