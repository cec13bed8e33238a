package clock

import (
	"fmt"
	"regexp"
	"strconv"
)

var streamTimePattern = regexp.MustCompile(`^(\d+)\.(\d{2}):(\d{2}):(\d{2})\.(\d+)$`)

// StreamTime is the human-readable decomposition of a 27MHz PCR duration
// into days, hours, minutes, seconds and milliseconds, formatted as
// "D.HH:MM:SS.mmm".
type StreamTime struct {
	Days  int
	Hours int
	Mins  int
	Secs  int
	Msecs int
}

// PCRToStreamTime decomposes a PCR duration (in 27MHz ticks) into a
// StreamTime. The millisecond field is intentionally always zero: the
// reference implementation computes a fractional remainder and then
// unconditionally discards it before returning. That observable behavior
// is preserved here rather than "fixed" (see DESIGN.md Open Questions).
func PCRToStreamTime(pcr int64) StreamTime {
	seconds := pcr / SCRClockHz

	days := seconds / (3600 * 24)
	seconds -= days * 3600 * 24

	hours := seconds / 3600
	seconds -= hours * 3600

	mins := seconds / 60
	seconds -= mins * 60

	return StreamTime{
		Days:  int(days),
		Hours: int(hours),
		Mins:  int(mins),
		Secs:  int(seconds),
		Msecs: 0,
	}
}

// StreamTimeToPCR re-encodes a StreamTime back into 27MHz PCR ticks.
func StreamTimeToPCR(vt StreamTime) int64 {
	pcr := int64(vt.Days)*3600*24 + int64(vt.Hours)*3600 + int64(vt.Mins)*60 + int64(vt.Secs)
	pcr *= SCRClockHz
	pcr += int64(vt.Msecs) * 27000
	return pcr
}

// String formats a StreamTime as "D.HH:MM:SS.mmm".
func (vt StreamTime) String() string {
	return fmt.Sprintf("%d.%02d:%02d:%02d.%d", vt.Days, vt.Hours, vt.Mins, vt.Secs, vt.Msecs)
}

// ParseStreamTime parses a "D.HH:MM:SS.mmm" string into a StreamTime.
func ParseStreamTime(s string) (StreamTime, error) {
	m := streamTimePattern.FindStringSubmatch(s)
	if m == nil {
		return StreamTime{}, fmt.Errorf("clock: invalid stream time %q", s)
	}

	var vt StreamTime
	var err error
	if vt.Days, err = strconv.Atoi(m[1]); err != nil {
		return StreamTime{}, fmt.Errorf("clock: invalid stream time %q: %w", s, err)
	}
	if vt.Hours, err = strconv.Atoi(m[2]); err != nil {
		return StreamTime{}, fmt.Errorf("clock: invalid stream time %q: %w", s, err)
	}
	if vt.Mins, err = strconv.Atoi(m[3]); err != nil {
		return StreamTime{}, fmt.Errorf("clock: invalid stream time %q: %w", s, err)
	}
	if vt.Secs, err = strconv.Atoi(m[4]); err != nil {
		return StreamTime{}, fmt.Errorf("clock: invalid stream time %q: %w", s, err)
	}
	if vt.Msecs, err = strconv.Atoi(m[5]); err != nil {
		return StreamTime{}, fmt.Errorf("clock: invalid stream time %q: %w", s, err)
	}
	return vt, nil
}
