// Package audit models the per-connection audit trail written for every
// honeypot session: a connection envelope plus a timeline of events, each
// timestamped relative to when the connection started.
package audit

import (
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EnvVar is a single environment variable observed via an "env" channel
// request, kept in the order the client sent them.
type EnvVar struct {
	Name  string
	Value string
}

func (e EnvVar) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{e.Name, e.Value})
}

// Log is the envelope written for a single SSH connection. It is built up
// over the lifetime of the connection and handed to the writer exactly
// once, when the connection closes.
type Log struct {
	ConnectionID         uuid.UUID
	Timestamp            time.Time
	PeerAddress          net.Addr
	Host                 string
	EnvironmentVariables []EnvVar
	Events               []Event

	start time.Time
	mu    sync.Mutex
}

// New starts a fresh audit log for a newly accepted connection.
func New(host string, peer net.Addr) *Log {
	now := time.Now()
	return &Log{
		ConnectionID: uuid.New(),
		Timestamp:    now,
		PeerAddress:  peer,
		Host:         host,
		start:        now,
	}
}

// PushAction appends an event timestamped at the elapsed time since the
// connection started. Safe to call concurrently from multiple channel
// goroutines on the same connection.
func (l *Log) PushAction(action Action) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Events = append(l.Events, Event{
		StartOffset: time.Since(l.start),
		Action:      action,
	})
}

// PushEnvVar records an environment variable observed via an "env"
// channel request, in the order received.
func (l *Log) PushEnvVar(v EnvVar) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.EnvironmentVariables = append(l.EnvironmentVariables, v)
}

func (l *Log) MarshalJSON() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var peer *string
	if l.PeerAddress != nil {
		s := l.PeerAddress.String()
		peer = &s
	}

	type wire struct {
		ConnectionID uuid.UUID `json:"connection_id"`
		Timestamp    time.Time `json:"ts"`
		PeerAddress  *string   `json:"peer_address"`
		Host         string    `json:"host"`
		EnvVars      []EnvVar  `json:"environment_variables,omitempty"`
		Events       []Event   `json:"events"`
	}

	return json.Marshal(wire{
		ConnectionID: l.ConnectionID,
		Timestamp:    l.Timestamp.UTC(),
		PeerAddress:  peer,
		Host:         l.Host,
		EnvVars:      l.EnvironmentVariables,
		Events:       l.Events,
	})
}

// Event is a single timestamped action within a connection's timeline.
type Event struct {
	StartOffset time.Duration
	Action      Action
}

type durationWire struct {
	Secs  int64 `json:"secs"`
	Nanos int32 `json:"nanos"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	actionJSON, err := json.Marshal(e.Action)
	if err != nil {
		return nil, err
	}

	type wire struct {
		StartOffset durationWire    `json:"start_offset"`
		Action      json.RawMessage `json:"action"`
	}

	return json.Marshal(wire{
		StartOffset: durationWire{
			Secs:  int64(e.StartOffset / time.Second),
			Nanos: int32(e.StartOffset % time.Second),
		},
		Action: actionJSON,
	})
}

// Action is any of the tagged event variants below; each implements its own
// JSON encoding so the "type" (and, for login attempts, "credential-type")
// discriminator lands inline with its fields.
type Action interface {
	json.Marshaler
}
