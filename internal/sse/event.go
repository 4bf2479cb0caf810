package sse

import (
	"encoding/json"
	"strconv"
	"sync/atomic"
)

// Event is one server-sent event. IDs increase for the lifetime of the
// process and are what clients send back as Last-Event-ID.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data string `json:"data"`
}

const (
	EventHeartbeat          = "heartbeat"
	EventNotification       = "notification"
	EventPassUpdated        = "pass.updated"
	EventPremiumStatus      = "premium.status"
	EventPremiumApplication = "premium.application"
)

var lastEventID atomic.Int64

func NewEvent(eventType string, payload any) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte("null")
	}

	return Event{
		ID:   strconv.FormatInt(lastEventID.Add(1), 10),
		Type: eventType,
		Data: string(data),
	}
}

func (e Event) seq() (int64, bool) {
	seq, err := strconv.ParseInt(e.ID, 10, 64)
	return seq, err == nil
}
