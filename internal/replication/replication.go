// Package replication propagates full session snapshots between clients.
//
// Every publish carries the entire session state plus a monotonic version.
// Subscribers adopt an inbound snapshot only when its version is newer than
// what they already hold, which both resolves last-writer-wins races
// deterministically and prevents feedback loops where a client re-publishes
// a state it just received.
package replication

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/photolangage/photolangage/internal/domain/session"
)

//go:generate mockgen -source=replication.go -destination=mocks/channel_mock.go -package=mocks

// SyncSentinel is the bootstrap message a freshly subscribed client sends on
// transports that have no stored current value. Peers holding an active
// session answer by publishing their snapshot.
const SyncSentinel = "REQUEST_SYNC"

var ErrNotSnapshot = errors.New("payload is not a session snapshot")

// Envelope is the unit of replication: a full state snapshot tagged with a
// monotonic version. The state is embedded so the wire form keeps the
// top-level "stage" key that distinguishes snapshots from the sync sentinel.
type Envelope struct {
	Version int64 `json:"version"`
	session.State
}

// Message is what a subscriber receives: either a snapshot envelope or a
// peer's request to be bootstrapped.
type Message struct {
	SyncRequest bool
	Envelope    Envelope
}

// Handler consumes inbound messages for one session code.
type Handler func(Message)

// Channel is the replicated key-value publish/subscribe contract. Publish is
// best effort: failures are logged by callers, never rolled back locally.
type Channel interface {
	Publish(ctx context.Context, code string, env Envelope) error
	Subscribe(code string, fn Handler) (func(), error)
	RequestSync(ctx context.Context, code string) error
}

// Encode serializes an envelope for the wire.
func Encode(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// Decode parses a wire payload. The sync sentinel is accepted both raw and
// JSON-quoted; anything else must be a snapshot, detected by the presence of
// a stage value.
func Decode(data []byte) (Message, error) {
	trimmed := bytes.TrimSpace(data)
	if string(trimmed) == SyncSentinel || string(trimmed) == `"`+SyncSentinel+`"` {
		return Message{SyncRequest: true}, nil
	}
	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return Message{}, err
	}
	if env.Stage == "" {
		return Message{}, ErrNotSnapshot
	}
	return Message{Envelope: env}, nil
}
