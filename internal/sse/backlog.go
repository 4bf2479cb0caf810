package sse

import (
	"strconv"
	"strings"
	"sync"

	"logimatch/internal/model"
)

const defaultBacklogSize = 1000

type backlogEntry struct {
	event    Event
	audience Audience
}

// backlog keeps the most recent events for Last-Event-ID replay.
type backlog struct {
	mu      sync.RWMutex
	entries []backlogEntry
	head    int
	size    int
}

func newBacklog(capacity int) *backlog {
	if capacity <= 0 {
		capacity = defaultBacklogSize
	}
	return &backlog{entries: make([]backlogEntry, capacity)}
}

func (b *backlog) append(event Event, audience Audience) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry := backlogEntry{event: event, audience: audience}
	capacity := len(b.entries)
	if b.size < capacity {
		b.entries[(b.head+b.size)%capacity] = entry
		b.size++
		return
	}
	b.entries[b.head] = entry
	b.head = (b.head + 1) % capacity
}

// after returns the retained events newer than lastID that session may see.
// Without a usable lastID there is nothing to resume, so nothing is replayed.
func (b *backlog) after(lastID string, session model.Session) []Event {
	cursor, err := strconv.ParseInt(strings.TrimSpace(lastID), 10, 64)
	if err != nil {
		return nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Event, 0)
	capacity := len(b.entries)
	for i := 0; i < b.size; i++ {
		entry := b.entries[(b.head+i)%capacity]
		if seq, ok := entry.event.seq(); !ok || seq <= cursor {
			continue
		}
		if entry.audience.Includes(session) {
			out = append(out, entry.event)
		}
	}
	return out
}
