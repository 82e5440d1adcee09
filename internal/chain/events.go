package chain

import "log/slog"

// Event is a structured, attribute-based side effect emitted by a mutating
// operation. The shape mirrors the teacher's core/events package: a stable
// Type string plus a flat string-keyed attribute map, so off-chain indexers
// can decode events without a schema registry.
type Event struct {
	Type       string
	Attributes map[string]string
}

// Emitter receives events produced by the state machine. Components accept
// an Emitter as a constructor dependency rather than calling a global sink,
// matching the teacher's events.Emitter injection pattern.
type Emitter interface {
	Emit(Event)
}

// NoopEmitter discards every event. It is the default for components built
// without an explicit Emitter, and is what most unit tests use.
type NoopEmitter struct{}

// Emit implements Emitter.
func (NoopEmitter) Emit(Event) {}

// SlogEmitter logs every event at Info level using the supplied structured
// logger, the operator-visibility companion to on-chain event emission.
type SlogEmitter struct {
	Logger *slog.Logger
}

// Emit implements Emitter.
func (e SlogEmitter) Emit(evt Event) {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	args := make([]any, 0, len(evt.Attributes)*2)
	for k, v := range evt.Attributes {
		args = append(args, k, v)
	}
	logger.Info(evt.Type, args...)
}
