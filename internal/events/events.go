// Package events is a minimal in-process event bus: components emit
// named events with a data payload, and the event manager logs them
// structurally. Modeled on the trader's events.Manager — no subscriber
// fan-out, since nothing in this engine needs it yet beyond logging and
// the journal's own alert-dedupe table.
package events

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Type names the kind of event emitted.
type Type string

const (
	SnapshotDegraded Type = "SNAPSHOT_DEGRADED"
	SnapshotPublished Type = "SNAPSHOT_PUBLISHED"
	BrokerAuthFailed  Type = "BROKER_AUTH_FAILED"
	UserDisabled      Type = "USER_DISABLED"
	BackupCompleted   Type = "BACKUP_COMPLETED"
	BackupFailed      Type = "BACKUP_FAILED"
	MarketHaltChanged Type = "MARKET_HALT_CHANGED"
)

// Event is one emitted occurrence.
type Event struct {
	Type      Type                   `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Module    string                 `json:"module"`
	Data      map[string]interface{} `json:"data"`
}

// Manager logs every emitted event structurally. Kept separate from
// zerolog's own call sites so the scheduler/server can also expose a
// recent-events list without re-parsing log output.
type Manager struct {
	log  zerolog.Logger
	mu   chan struct{} // 1-buffered mutex avoiding an import of sync for one field
	last []Event
	cap  int
}

// NewManager constructs an event manager that also keeps the most recent
// `cap` events in memory for the status endpoint.
func NewManager(log zerolog.Logger, cap int) *Manager {
	if cap <= 0 {
		cap = 50
	}
	m := &Manager{log: log.With().Str("component", "events").Logger(), mu: make(chan struct{}, 1), cap: cap}
	m.mu <- struct{}{}
	return m
}

// Emit records and logs an event.
func (m *Manager) Emit(t Type, module string, data map[string]interface{}) {
	ev := Event{Type: t, Timestamp: time.Now(), Module: module, Data: data}

	raw, _ := json.Marshal(ev)
	m.log.Info().Str("event_type", string(t)).Str("module", module).RawJSON("event", raw).Msg("event emitted")

	<-m.mu
	m.last = append(m.last, ev)
	if len(m.last) > m.cap {
		m.last = m.last[len(m.last)-m.cap:]
	}
	m.mu <- struct{}{}
}

// Recent returns a snapshot of the most recently emitted events, newest last.
func (m *Manager) Recent() []Event {
	<-m.mu
	out := make([]Event, len(m.last))
	copy(out, m.last)
	m.mu <- struct{}{}
	return out
}
