package clock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPTSDiffWrap(t *testing.T) {
	// PTS wraps from 2^33-1 back to 0; the forward delta is 1 tick.
	assert.Equal(t, int64(1), PTSDiff(MaxPTS-1, 0))
	assert.Equal(t, int64(9000), PTSDiff(MaxPTS-9000, 0))
}

func TestSCRDiffWrap(t *testing.T) {
	assert.Equal(t, int64(1), SCRDiff(MaxSCR-1, 0))
}

func TestDiffSymmetry(t *testing.T) {
	// scr_diff(a, b) + scr_diff(b, a) == 0 (mod MaxSCR), and both lie in
	// [0, MaxSCR).
	cases := [][2]int64{
		{0, 0},
		{1000, 500},
		{MaxSCR - 1, 5},
		{12345678901, 98765432},
	}
	for _, c := range cases {
		a, b := c[0], c[1]
		fwd := SCRDiff(a, b)
		rev := SCRDiff(b, a)
		assert.GreaterOrEqual(t, fwd, int64(0))
		assert.Less(t, fwd, MaxSCR)
		assert.GreaterOrEqual(t, rev, int64(0))
		assert.Less(t, rev, MaxSCR)
		sum := DiffMod(0, fwd+rev, MaxSCR)
		assert.True(t, sum == 0 || (fwd == 0 && rev == 0))
	}
}

func TestTicksToMs(t *testing.T) {
	assert.Equal(t, int64(100), PTSTicksToMs(9000))
	assert.Equal(t, int64(1000), SCRTicksToMs(27_000_000))
}

func TestStreamTimeRoundTrip(t *testing.T) {
	// str_to_time -> time_to_pcr -> pcr_to_time -> time_to_str is the
	// identity for well-formed input with msecs == 0, because
	// PCRToStreamTime always zeroes the millisecond field.
	in := "1.09:52:22.0"
	vt, err := ParseStreamTime(in)
	require.NoError(t, err)
	assert.Equal(t, StreamTime{Days: 1, Hours: 9, Mins: 52, Secs: 22, Msecs: 0}, vt)

	pcr := StreamTimeToPCR(vt)
	back := PCRToStreamTime(pcr)
	assert.Equal(t, vt, back)
	assert.Equal(t, in, back.String())
}

func TestStreamTimeMsecsAlwaysZeroed(t *testing.T) {
	// Known quirk: non-zero msecs supplied on input do not survive the
	// round trip, because PCRToStreamTime discards the fractional part.
	vt, err := ParseStreamTime("0.00:00:10.500")
	require.NoError(t, err)
	pcr := StreamTimeToPCR(vt)
	back := PCRToStreamTime(pcr)
	assert.Equal(t, 0, back.Msecs)
	assert.Equal(t, 10, back.Secs)
}

func TestParseStreamTimeRejectsMalformed(t *testing.T) {
	_, err := ParseStreamTime("not-a-time")
	assert.Error(t, err)
}

func TestTrackerDrift(t *testing.T) {
	tr := NewTracker(SCRClockHz)
	assert.False(t, tr.IsEstablished())

	tr.EstablishWallclock(1_000_000, 0)
	assert.True(t, tr.IsEstablished())

	// Idempotent.
	tr.EstablishWallclock(2_000_000, 500)

	// One second of ticks elapses, and exactly one second of wallclock
	// elapses: drift should be zero.
	tr.SetTicks(SCRClockHz)
	assert.Equal(t, int64(0), tr.DriftUs(2_000_000))

	// Wallclock moved ahead of the clock: clock lags, drift negative.
	assert.Less(t, tr.DriftUs(2_500_000), int64(0))
}

func TestTrackerPTSWrapSafe(t *testing.T) {
	tr := NewTracker(PTSClockHz)
	tr.EstablishWallclock(0, MaxPTS-90000)
	tr.SetTicks(0) // wrapped forward by 90000 ticks = 1 second
	assert.Equal(t, int64(1_000_000), tr.DriftUs(0))
}
