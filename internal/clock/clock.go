// Package clock implements the wrap-safe arithmetic for the three clock
// domains a transport stream exposes: the 27MHz system clock (PCR/SCR),
// the 90kHz presentation/decode clock (PTS/DTS), and host wallclock.
package clock

const (
	// MaxPTS is the modulus of the 90kHz PTS/DTS clock (33-bit counter).
	MaxPTS = int64(1) << 33

	// MaxSCR is the modulus of the 27MHz system clock reference. The PCR
	// field encodes a 33-bit base ticking at 90kHz plus a 9-bit extension
	// ticking at 27MHz, so the combined counter wraps at 2^33*300.
	MaxSCR = MaxPTS * 300

	// PTSClockHz is the presentation/decode clock rate in Hz.
	PTSClockHz = 90000

	// SCRClockHz is the system clock reference rate in Hz.
	SCRClockHz = 27000000
)

// DiffMod returns the smallest positive forward delta from a to b modulo
// m, i.e. (b-a) reduced into [0, m), with the modulus added when the
// naive subtraction goes negative. PTSDiff and SCRDiff are DiffMod
// specialized to their clock's modulus; every clock subtraction in this
// package routes through one of the three, never raw subtraction,
// because raw subtraction does not survive wrap.
func DiffMod(a, b, m int64) int64 {
	diff := (b - a) % m
	if diff < 0 {
		diff += m
	}
	return diff
}

// PTSDiff returns the smallest positive forward delta from a to b in the
// 90kHz domain, wrap-corrected against MaxPTS.
func PTSDiff(a, b int64) int64 {
	return DiffMod(a, b, MaxPTS)
}

// SCRDiff returns the smallest positive forward delta from a to b in the
// 27MHz domain, wrap-corrected against MaxSCR.
func SCRDiff(a, b int64) int64 {
	return DiffMod(a, b, MaxSCR)
}

// PTSTicksToMs converts a count of 90kHz ticks to milliseconds.
func PTSTicksToMs(ticks int64) int64 {
	return ticks / 90
}

// SCRTicksToMs converts a count of 27MHz ticks to milliseconds.
func SCRTicksToMs(ticks int64) int64 {
	return ticks / 27000
}

// SCRTicksToUs converts a count of 27MHz ticks to microseconds.
func SCRTicksToUs(ticks int64) int64 {
	return ticks / 27
}
