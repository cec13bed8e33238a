package pidstate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/groovybits/ltntstools/internal/clock"
)

func TestTableIsFixedSizeAndDirectIndexed(t *testing.T) {
	tbl := NewTable()
	for _, pid := range []uint16{0, 1, 0x31, 0x1FFE, NullPID} {
		slot := tbl.Get(pid)
		assert.Equal(t, pid, slot.PID)
	}
}

func TestContinuityFreshToTracking(t *testing.T) {
	tbl := NewTable()
	slot := tbl.Get(0x100)

	assert.Equal(t, Fresh, slot.CCState)
	assert.False(t, slot.CheckContinuity(5))
	assert.Equal(t, Tracking, slot.CCState)

	// Correct next counter, no error.
	assert.False(t, slot.CheckContinuity(6))

	// Skipped counter, an error is reported and the new value is
	// accepted with no resynchronization.
	assert.True(t, slot.CheckContinuity(9))
	assert.Equal(t, uint64(1), slot.CCErrors)

	// The tracker resumes from the new value without re-flagging.
	assert.False(t, slot.CheckContinuity(10))
}

func TestContinuityWrapsModulo16(t *testing.T) {
	tbl := NewTable()
	slot := tbl.Get(0x200)
	slot.CheckContinuity(14)
	assert.False(t, slot.CheckContinuity(15))
	assert.False(t, slot.CheckContinuity(0))
}

func TestNullPIDNeverFlagged(t *testing.T) {
	tbl := NewTable()
	slot := tbl.Get(NullPID)
	slot.CheckContinuity(0)
	assert.False(t, slot.CheckContinuity(7)) // arbitrary jump, still no error
	assert.Equal(t, uint64(0), slot.CCErrors)
}

func TestTimestampStateWarmup(t *testing.T) {
	var ts TimestampState
	for i := 0; i < 16; i++ {
		accepted := ts.Observe("pts", int64(i*900), 0, 100)
		assert.False(t, accepted)
	}
	accepted := ts.Observe("pts", int64(16*900), 0, 100)
	assert.True(t, accepted)
}

func TestObserveWrapCorrectsBackwardStepIntoSmallNegativeDiff(t *testing.T) {
	var ts TimestampState
	ts.Observe("pts", 1000000, 0, 100)

	// A B-frame-reordering backward step of 1000 ticks (~11ms) lands the
	// naive diff near clock.MaxPTS; the wrap-correction should fold it
	// back into a small negative delta instead.
	ts.Observe("pts", 999000, 0, 100)

	assert.Equal(t, int64(-1000), ts.DiffTicks)
}

func TestObserveLeavesLargeForwardDiffUncorrected(t *testing.T) {
	var ts TimestampState
	ts.Observe("pts", 0, 0, 100)
	ts.Observe("pts", 9*90000, 0, 100) // 9s forward, under the 10s threshold

	assert.Equal(t, int64(9*90000), ts.DiffTicks)
	assert.Less(t, ts.DiffTicks, clock.MaxPTS)
}

func TestOrderedInsertionMaintainsSortedOrder(t *testing.T) {
	tbl := NewTable()
	slot := tbl.Get(0x31)

	slot.InsertOrdered(OrderedEntry{Nr: 1, PTS: 300})
	slot.InsertOrdered(OrderedEntry{Nr: 2, PTS: 100})
	slot.InsertOrdered(OrderedEntry{Nr: 3, PTS: 200})
	slot.InsertOrdered(OrderedEntry{Nr: 4, PTS: 400})

	var got []int64
	for el := slot.Ordered.Front(); el != nil; el = el.Next() {
		got = append(got, el.Value.(OrderedEntry).PTS)
	}
	assert.Equal(t, []int64{100, 200, 300, 400}, got)
}
