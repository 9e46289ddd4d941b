package capture

import (
	"time"

	"github.com/lumo-cam/lumo/internal/state"
)

// PendingOperation is the coordinator-owned record of one in-flight
// request. Created by Launch, mutated only by the coordinator,
// destroyed on every terminal outcome.
type PendingOperation struct {
	ID    string
	Kind  Kind
	Token string
	Event string

	MaxDuration int
	MediaType   string
	Multiple    bool
	MaxItems    int

	// DestPath is the OS-level destination handle for captures,
	// created only after permission is confirmed granted.
	DestPath string

	CreatedAt time.Time
}

func (op *PendingOperation) record() state.Record {
	return state.Record{
		ID:        op.ID,
		Kind:      string(op.Kind),
		Token:     op.Token,
		EventName: op.Event,
		DestPath:  op.DestPath,
		MediaType: op.MediaType,
		Multiple:  op.Multiple,
		MaxItems:  op.MaxItems,
		MaxDur:    op.MaxDuration,
		CreatedAt: op.CreatedAt,
	}
}

func fromRecord(rec state.Record) *PendingOperation {
	return &PendingOperation{
		ID:          rec.ID,
		Kind:        Kind(rec.Kind),
		Token:       rec.Token,
		Event:       rec.EventName,
		DestPath:    rec.DestPath,
		MediaType:   rec.MediaType,
		Multiple:    rec.Multiple,
		MaxItems:    rec.MaxItems,
		MaxDuration: rec.MaxDur,
		CreatedAt:   rec.CreatedAt,
	}
}

// payload builds an event payload, attaching the correlation token as
// "id" only when one was supplied. An absent token never becomes a
// null or empty field.
func (op *PendingOperation) payload(fields map[string]any) map[string]any {
	if op.Token != "" {
		fields["id"] = op.Token
	}
	return fields
}
