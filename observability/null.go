package observability

import "context"

// NullEmitter discards every event. Safe for concurrent use, zero overhead.
type NullEmitter struct{}

// NewNullEmitter returns an Emitter that discards all events.
func NewNullEmitter() *NullEmitter { return &NullEmitter{} }

func (n *NullEmitter) Emit(Event) {}

func (n *NullEmitter) EmitBatch(context.Context, []Event) error { return nil }

func (n *NullEmitter) Flush(context.Context) error { return nil }
