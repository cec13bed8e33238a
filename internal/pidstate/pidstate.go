// Package pidstate holds the fixed-size, per-PID state table the clock
// inspector pipeline mutates as it walks a transport stream. The table is
// owned exclusively by the ingest task; nothing else ever touches it.
package pidstate

import (
	"container/list"

	"github.com/groovybits/ltntstools/internal/clock"
	"github.com/groovybits/ltntstools/internal/trend"
)

// NumPIDs is the number of 13-bit PID values, and therefore the fixed
// size of the state table.
const NumPIDs = 8192

// NullPID is excluded from continuity-counter checking.
const NullPID = 0x1FFF

// CCState is the continuity-counter state machine's state for a PID.
type CCState int

const (
	// Fresh means no packet has yet been seen on this PID.
	Fresh CCState = iota
	// Tracking means at least one packet has been seen and the next
	// continuity counter is checked against it.
	Tracking
)

// TimestampState is the per-stream bookkeeping shared by the PTS and DTS
// subtrees: the last observed value, the diff since the prior
// observation, the SCR captured alongside it, and the clock tracker and
// trend window lazily built on first observation.
type TimestampState struct {
	Count     uint64
	Last      int64 // last observed PTS or DTS, 90kHz ticks
	DiffTicks int64 // pts_diff/dts_diff since the prior observation
	LastSCR   int64 // current_scr captured at the time Last was observed

	Clock *clock.Tracker
	Trend *trend.LinearTrend

	// warmup counts observations discarded before the trend accepts
	// samples, per 4.E's 16-sample stabilization rule.
	warmup int
}

// Observe records a new PTS or DTS value against a wrap-safe diff from
// the prior observation, lazily creating the clock tracker and trend
// window on first use. It returns false while the sample is still within
// the warmup window, in which case the caller must not insert it into
// the trend.
func (s *TimestampState) Observe(name string, ticks int64, scr int64, trendCapacity int) bool {
	first := s.Clock == nil
	if first {
		s.Clock = clock.NewTracker(clock.PTSClockHz)
		s.Trend = trend.New(name, trendCapacity)
	} else {
		s.DiffTicks = clock.PTSDiff(s.Last, ticks)
		if s.DiffTicks > 10*clock.PTSClockHz {
			s.DiffTicks -= clock.MaxPTS
		}
	}
	s.Last = ticks
	s.LastSCR = scr
	s.Count++

	if s.warmup < trend.WarmupSamples {
		s.warmup++
		return false
	}
	return true
}

// OrderedEntry is one buffered (nr, pts, filepos) observation kept by the
// ordered-PTS reorder mode.
type OrderedEntry struct {
	Nr      uint64
	PTS     int64
	FilePos int64
}

// PID holds everything the inspector tracks for a single PID.
type PID struct {
	PID uint16

	// Continuity-counter state machine.
	CCState  CCState
	LastCC   uint8
	PktCount uint64
	CCErrors uint64

	// SCR tracking.
	SCRFirst         int64
	SCRFirstWallTime int64
	SCR              int64
	SCRUpdates       uint64
	SCRSeen          bool

	// Per-PES arrival correlation.
	SCRAtPESUnitHeader   int64
	SCRAtPESUnitHeaderTs int64
	SCRLastSeen          int64
	SCRLastSeenTs        int64

	PTS TimestampState
	DTS TimestampState

	// Ordered-PTS reorder list, populated only when reorder mode is
	// active for this run.
	Ordered *list.List
}

// Table is the fixed 8192-slot per-PID state array, indexed directly by
// PID with no hashing.
type Table struct {
	slots [NumPIDs]PID
}

// NewTable creates a zero-initialized state table with each slot's PID
// field pre-populated.
func NewTable() *Table {
	t := &Table{}
	for i := range t.slots {
		t.slots[i].PID = uint16(i)
	}
	return t
}

// Get returns the state slot for pid. It never allocates: the slot
// already exists from construction.
func (t *Table) Get(pid uint16) *PID {
	return &t.slots[pid&0x1FFF]
}

// CheckContinuity applies the continuity-counter state machine to a
// newly observed counter value for a payload-bearing packet, updating
// the PID's CC bookkeeping and reporting whether this observation is an
// error. The null PID is always reported as not-an-error because it is
// excluded from continuity checking entirely.
func (p *PID) CheckContinuity(cc uint8) (isError bool) {
	if p.PID == NullPID {
		p.LastCC = cc
		return false
	}

	if p.CCState == Fresh {
		p.CCState = Tracking
		p.LastCC = cc
		return false
	}

	want := (p.LastCC + 1) & 0x0F
	isError = cc != want
	if isError {
		p.CCErrors++
	}
	p.LastCC = cc
	return isError
}

// EnableReorder lazily creates the ordered-PTS list for this PID.
func (p *PID) EnableReorder() {
	if p.Ordered == nil {
		p.Ordered = list.New()
	}
}

// InsertOrdered inserts an observation into the ordered-PTS list, walking
// from the tail backward and placing the new node immediately after the
// first node whose PTS is less than or equal to the new PTS. An empty
// list insert is O(1); near-sorted insertion (the common case, since
// arrival order is close to display order) is O(1) amortized.
func (p *PID) InsertOrdered(e OrderedEntry) {
	if p.Ordered == nil {
		p.EnableReorder()
	}
	if p.Ordered.Len() == 0 {
		p.Ordered.PushBack(e)
		return
	}
	for el := p.Ordered.Back(); el != nil; el = el.Prev() {
		if el.Value.(OrderedEntry).PTS <= e.PTS {
			p.Ordered.InsertAfter(e, el)
			return
		}
	}
	p.Ordered.PushFront(e)
}
