package clock

// Tracker associates a clock domain (27MHz PCR/SCR or 90kHz PTS/DTS) with
// an initial wallclock reference, so later observations can report drift
// between "where the clock says we are" and "where the wallclock says we
// are". It is established once, lazily, and then only ever moves forward.
type Tracker struct {
	timebaseHz   int64
	modulus      int64
	established  bool
	wallAnchorUs int64
	tickAnchor   int64
	lastTicks    int64
}

// NewTracker creates a Tracker for the given timebase (90000 for PTS/DTS,
// 27000000 for SCR/PCR). It starts unestablished.
func NewTracker(timebaseHz int64) *Tracker {
	return &Tracker{timebaseHz: timebaseHz, modulus: modulusFor(timebaseHz)}
}

// Initialize resets the tracker to its zero state for the given timebase.
func (t *Tracker) Initialize(timebaseHz int64) {
	*t = Tracker{timebaseHz: timebaseHz, modulus: modulusFor(timebaseHz)}
}

// modulusFor returns the wrap modulus for a known clock timebase, or 0
// (no wrap correction) for anything else.
func modulusFor(timebaseHz int64) int64 {
	switch timebaseHz {
	case PTSClockHz:
		return MaxPTS
	case SCRClockHz:
		return MaxSCR
	default:
		return 0
	}
}

// EstablishWallclock anchors the tracker at the first observed tick value
// against the supplied wallclock time, expressed in microseconds since
// the Unix epoch. It is idempotent: subsequent calls are no-ops.
func (t *Tracker) EstablishWallclock(nowUs int64, firstTicks int64) {
	if t.established {
		return
	}
	t.wallAnchorUs = nowUs
	t.tickAnchor = firstTicks
	t.lastTicks = firstTicks
	t.established = true
}

// IsEstablished reports whether EstablishWallclock has been called.
func (t *Tracker) IsEstablished() bool {
	return t.established
}

// SetTicks records a newly observed tick value.
func (t *Tracker) SetTicks(ticks int64) {
	t.lastTicks = ticks
}

// DriftUs returns expected_wall - actual_wall, in microseconds, computed
// from the anchors and the last recorded tick value. A negative result
// means the clock lags wallclock; a positive result means it leads.
func (t *Tracker) DriftUs(nowUs int64) int64 {
	if !t.established {
		return 0
	}
	expectedWallUs := t.tickDeltaUs() + t.wallAnchorUs
	actualWallUs := nowUs
	return expectedWallUs - actualWallUs
}

// DriftMs is DriftUs expressed in milliseconds.
func (t *Tracker) DriftMs(nowUs int64) int64 {
	return t.DriftUs(nowUs) / 1000
}

// tickDeltaUs converts the elapsed ticks since the anchor into
// microseconds at this tracker's timebase, using a wrap-safe difference
// when the timebase has a known modulus.
func (t *Tracker) tickDeltaUs() int64 {
	var delta int64
	if t.modulus != 0 {
		delta = DiffMod(t.tickAnchor, t.lastTicks, t.modulus)
	} else {
		delta = t.lastTicks - t.tickAnchor
	}
	return (delta * 1_000_000) / t.timebaseHz
}
