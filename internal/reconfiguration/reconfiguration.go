// Package reconfiguration implements the epoch-transition coordinator
// (spec §4.F): the single serialization point that blocks user mutations
// during a transition, applies the staged config, and drives the validator
// set's epoch processing.
package reconfiguration

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"gravity/internal/chain"
)

// Tracer is the injected tracing dependency; internal/telemetry.Telemetry
// satisfies this, wrapping the transition in a span for operator visibility.
type Tracer interface {
	StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func())
}

// ConfigApplier is the narrow config-store dependency: swapping in the
// staged record atomically (spec §4.B ApplyPendingConfig).
type ConfigApplier interface {
	ApplyPendingConfig(caller chain.Address) error
}

// ValidatorEpochProcessor is the narrow validator-manager dependency: the
// epoch transition itself (spec §4.E OnNewEpoch).
type ValidatorEpochProcessor interface {
	OnNewEpoch()
}

// ClockReader is the injected clock dependency (spec §9).
type ClockReader interface {
	NowMicros() uint64
}

// phase tracks whether a transition is currently serializing every other
// component's mutating operations (spec §4.F, §3 "NotInProgress"/"InProgress").
type phase uint8

const (
	phaseNotInProgress phase = iota
	phaseInProgress
)

// Coordinator implements spec §4.F Reconfiguration.
type Coordinator struct {
	phase                   phase
	epoch                   uint64
	lastReconfigurationTime uint64

	clock      ClockReader
	config     ConfigApplier
	validators ValidatorEpochProcessor
	emitter    chain.Emitter
	tracer     Tracer
}

// Deps bundles the injected dependencies used to construct a Coordinator.
type Deps struct {
	Clock      ClockReader
	Config     ConfigApplier
	Validators ValidatorEpochProcessor
	Emitter    chain.Emitter
	Tracer     Tracer
}

// New constructs a Coordinator not currently in a transition.
func New(deps Deps) *Coordinator {
	if deps.Emitter == nil {
		deps.Emitter = chain.NoopEmitter{}
	}
	return &Coordinator{
		clock:      deps.Clock,
		config:     deps.Config,
		validators: deps.Validators,
		emitter:    deps.Emitter,
		tracer:     deps.Tracer,
	}
}

// IsTransitionInProgress implements the gate every mutating component in
// the system consults before accepting a write (spec §4.F invariant: no
// user mutation may proceed while InProgress).
func (c *Coordinator) IsTransitionInProgress() bool {
	return c.phase == phaseInProgress
}

// CurrentEpoch returns the number of completed epochs.
func (c *Coordinator) CurrentEpoch() uint64 { return c.epoch }

// ReconfigureCtx is Reconfigure wrapped in a tracing span when a Tracer is
// configured; cmd/gravitynode and tests that don't care about tracing can
// call Reconfigure directly.
func (c *Coordinator) ReconfigureCtx(ctx context.Context, caller chain.Address) error {
	if c.tracer == nil {
		return c.Reconfigure(caller)
	}
	_, end := c.tracer.StartSpan(ctx, "reconfiguration.Reconfigure")
	defer end()
	return c.Reconfigure(caller)
}

// Reconfigure drives one epoch transition (spec §4.F reconfigure): it may
// be invoked by the Block or Governance system identity, refuses to
// re-enter while already in progress, and is idempotent for repeated calls
// bearing the same wall-clock time as the last completed transition (so a
// block replay or duplicate trigger cannot double-advance the epoch).
func (c *Coordinator) Reconfigure(caller chain.Address) error {
	if caller != chain.SystemAddress(chain.RoleBlock) && caller != chain.SystemAddress(chain.RoleGovernance) {
		return &chain.Unauthorized{Role: chain.RoleBlock}
	}
	if c.phase == phaseInProgress {
		return chain.ErrReconfigurationInProgress
	}

	now := c.clock.NowMicros()
	if c.epoch > 0 && now == c.lastReconfigurationTime {
		return nil
	}

	c.phase = phaseInProgress
	defer func() { c.phase = phaseNotInProgress }()

	if err := c.config.ApplyPendingConfig(chain.SystemAddress(chain.RoleReconfiguration)); err != nil {
		return err
	}
	c.validators.OnNewEpoch()

	c.epoch++
	c.lastReconfigurationTime = now
	c.emitter.Emit(chain.Event{Type: "NewEpoch", Attributes: map[string]string{"epoch": epochString(c.epoch)}})
	return nil
}

func epochString(epoch uint64) string {
	if epoch == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for epoch > 0 {
		i--
		buf[i] = byte('0' + epoch%10)
		epoch /= 10
	}
	return string(buf[i:])
}
