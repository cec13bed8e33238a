package inspector

import (
	"fmt"
	"time"

	"github.com/groovybits/ltntstools/internal/clock"
	"github.com/groovybits/ltntstools/internal/logger"
	"github.com/groovybits/ltntstools/internal/metrics"
	"github.com/groovybits/ltntstools/internal/tspacket"
)

// processSCRStats latches the PCR of any PID that carries one. The
// specific PID nominated by -S is what later PTS/DTS comparisons treat
// as the authoritative system clock; any other PCR-bearing PID is
// still tracked here so a report on it shows accurate SCR-diff values.
func (ins *Inspector) processSCRStats(pkt []byte, offset uint64, now time.Time) {
	pid := tspacket.PID(pkt)
	scr, ok := tspacket.PCR(pkt)
	if !ok {
		return
	}
	if !ins.tracked(pid) {
		return
	}

	state := ins.table.Get(pid)

	var scrDiff int64
	if state.SCRSeen {
		scrDiff = clock.SCRDiff(state.SCR, scr)
	} else {
		state.SCRFirst = scr
		anchor := ins.opts.InitialWallclock
		if anchor.IsZero() {
			anchor = ins.startedAt
		}
		state.SCRFirstWallTime = anchor.Unix()
	}
	state.SCR = scr
	state.SCRSeen = true
	state.SCRUpdates++

	metrics.SCRUpdatesTotal.WithLabelValues(fmt.Sprintf("0x%04x", pid)).Inc()
	ins.sampled.DebugWithCategory(logger.CategorySCRUpdateSpam, "scr updated", map[string]interface{}{"pid": pid, "scr": scr})

	streamUnixSecs := state.SCRFirstWallTime + clock.SCRDiff(state.SCRFirst, scr)/clock.SCRClockHz
	streamTime := time.Unix(streamUnixSecs, 0).UTC()

	if ins.scrLineNr == 0 {
		fmt.Fprintf(ins.out, "+SCR Timing           filepos ------------>                   SCR  <--- SCR-DIFF ------>  SCR             Walltime ----------------------------->\n")
		fmt.Fprintf(ins.out, "+SCR Timing               Hex           Dec   PID       27MHz VAL       TICKS         uS  Timecode        Now\n")
	}
	ins.scrLineNr++
	if ins.scrLineNr > 24 {
		ins.scrLineNr = 0
	}

	vt := clock.PCRToStreamTime(scr)
	fmt.Fprintf(ins.out, "SCR #%09d -- %011x %13d  %04x  %14d  %10d  %9d  %s  %s\n",
		state.SCRUpdates,
		offset, offset,
		pid,
		scr,
		scrDiff,
		clock.SCRTicksToUs(scrDiff),
		vt.String(),
		streamTime.Format("2006-01-02 15:04:05"))
}
