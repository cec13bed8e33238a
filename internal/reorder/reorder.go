// Package reorder dumps the ordered-PTS listings accumulated per PID by
// pidstate's insertion-sorted list, in display (PTS) order, at shutdown.
package reorder

import (
	"fmt"
	"io"

	"github.com/groovybits/ltntstools/internal/clock"
	"github.com/groovybits/ltntstools/internal/pidstate"
)

const headerEvery = 25

// Dump writes the ordered-PTS listing for a single PID's accumulated
// observations to w, in coded-display order, printing a column header
// every 25 lines and a wrap-safe tick/ms diff between consecutive
// entries.
func Dump(w io.Writer, pid uint16, list *pidstate.PID) {
	if list.Ordered == nil {
		return
	}

	last := int64(-1)
	lineNr := 0

	for el := list.Ordered.Front(); el != nil; el = el.Next() {
		e := el.Value.(pidstate.OrderedEntry)

		var diffTicks int64
		if last >= 0 {
			diffTicks = clock.PTSDiff(last, e.PTS)
		}

		if lineNr == headerEvery {
			lineNr = 0
			fmt.Fprintln(w, "+PTS/DTS (ordered) filepos ------------>               PTS/DTS  <------- DIFF ------>")
			fmt.Fprintln(w, "+PTS/DTS #             Hex           Dec   PID       90KHz VAL       TICKS         MS")
		}
		lineNr++

		fmt.Fprintf(w, "PTS #%09d -- %09x %13d  %04x  %14d  %10d %10.2f\n",
			e.Nr, e.FilePos, e.FilePos, pid, e.PTS, diffTicks, float64(diffTicks)/90)

		last = e.PTS
	}
}

// DumpAll walks every PID in the table with a non-empty ordered list and
// dumps each in turn.
func DumpAll(w io.Writer, table *pidstate.Table) {
	for i := 0; i < pidstate.NumPIDs; i++ {
		slot := table.Get(uint16(i))
		if slot.Ordered != nil && slot.Ordered.Len() > 0 {
			Dump(w, uint16(i), slot)
		}
	}
}
