package chain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressRoundTrip(t *testing.T) {
	digest := [20]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}
	addr := Address(digest)

	encoded := addr.String()
	decoded, err := ParseAddress(encoded)
	require.NoError(t, err)
	require.Equal(t, addr, decoded)
	require.False(t, addr.IsZero())
	require.True(t, ZeroAddress.IsZero())
}

func TestParseAddressRejectsWrongPrefix(t *testing.T) {
	_, err := ParseAddress("bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq")
	require.Error(t, err)
}

func TestSystemAddressesAreStableAndDistinct(t *testing.T) {
	roles := []SystemRole{RoleGenesis, RoleBlock, RoleReconfiguration, RoleGovernance, RoleVM, RoleTimelock}
	seen := make(map[Address]SystemRole)
	for _, role := range roles {
		addr := SystemAddress(role)
		require.Equal(t, addr, SystemAddress(role), "system addresses must be stable across calls")
		if other, ok := seen[addr]; ok {
			t.Fatalf("role %s collides with %s", role, other)
		}
		seen[addr] = role
	}
}

func TestRequireSystemCaller(t *testing.T) {
	err := RequireSystemCaller(RoleBlock, SystemAddress(RoleBlock))
	require.NoError(t, err)

	err = RequireSystemCaller(RoleBlock, SystemAddress(RoleGovernance))
	require.Error(t, err)
	var unauthorized *Unauthorized
	require.ErrorAs(t, err, &unauthorized)
	require.Equal(t, RoleBlock, unauthorized.Role)
}

func TestClockUpdateGlobalTime(t *testing.T) {
	clock := NewClock(1000)
	blockCaller := SystemAddress(RoleBlock)

	require.NoError(t, clock.UpdateGlobalTime(blockCaller, 2000))
	require.Equal(t, uint64(2000), clock.NowMicros())

	err := clock.UpdateGlobalTime(blockCaller, 1500)
	require.ErrorIs(t, err, ErrClockWentBackwards)
	require.Equal(t, uint64(2000), clock.NowMicros())

	err = clock.UpdateGlobalTime(SystemAddress(RoleGenesis), 3000)
	require.Error(t, err)
	require.Equal(t, uint64(2000), clock.NowMicros())
}

type recordingEmitter struct {
	events []Event
}

func (r *recordingEmitter) Emit(evt Event) {
	r.events = append(r.events, evt)
}

func TestNoopEmitterDiscardsEvents(t *testing.T) {
	NoopEmitter{}.Emit(Event{Type: "x"})
}

func TestRecordingEmitterCapturesEvents(t *testing.T) {
	rec := &recordingEmitter{}
	var emitter Emitter = rec
	emitter.Emit(Event{Type: "pool.created", Attributes: map[string]string{"pool": "abc"}})
	require.Len(t, rec.events, 1)
	require.Equal(t, "pool.created", rec.events[0].Type)
}
