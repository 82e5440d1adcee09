package chain

import "fmt"

// Clock owns the chain's monotone wall-clock reading, expressed in
// microseconds since the Unix epoch. It is written only by the Block system
// identity (spec §4.A, §5) and read by every other component. Tests inject a
// *Clock directly instead of reading time.Now, per spec §9's testability
// note.
type Clock struct {
	nowMicros uint64
}

// NewClock constructs a Clock seeded at the given time.
func NewClock(initialMicros uint64) *Clock {
	return &Clock{nowMicros: initialMicros}
}

// NowMicros returns the current reading.
func (c *Clock) NowMicros() uint64 {
	return c.nowMicros
}

// ErrClockWentBackwards is returned when an update would move the clock
// backwards.
var ErrClockWentBackwards = fmt.Errorf("chain: clock update would move time backwards")

// UpdateGlobalTime overwrites the clock only if newMicros >= current value.
// It fails with *Unauthorized unless caller is the Block identity.
func (c *Clock) UpdateGlobalTime(caller Address, newMicros uint64) error {
	if err := RequireSystemCaller(RoleBlock, caller); err != nil {
		return err
	}
	if newMicros < c.nowMicros {
		return ErrClockWentBackwards
	}
	c.nowMicros = newMicros
	return nil
}
