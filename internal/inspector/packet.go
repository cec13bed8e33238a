package inspector

import (
	"fmt"
	"sync/atomic"

	"github.com/groovybits/ltntstools/internal/logger"
	"github.com/groovybits/ltntstools/internal/metrics"
	"github.com/groovybits/ltntstools/internal/pidstate"
	"github.com/groovybits/ltntstools/internal/tspacket"
)

// processPacketStats applies the continuity-counter state machine to
// every payload-bearing packet and, when hex dumping is enabled,
// writes the packet header/body dump.
func (ins *Inspector) processPacketStats(pkt []byte, offset uint64) {
	pid := tspacket.PID(pkt)
	state := ins.table.Get(pid)
	state.PktCount++

	if ins.opts.DumpHexLevel > 0 {
		ins.dumpHex(pkt, pid, offset)
	}

	afc := tspacket.AdaptationFieldControl(pkt)
	if afc != tspacket.AFCPayloadOnly && afc != tspacket.AFCAdaptationAndPayload {
		return
	}
	if state.CCState == pidstate.Fresh && (pid != pidstate.NullPID || state.PktCount == 1) {
		// The first payload-bearing packet on a PID establishes the CC
		// baseline without being eligible for an error;
		// pidstate.CheckContinuity already encodes this via its Fresh
		// state, so just feed it. The null PID never leaves Fresh, so it
		// is counted as active on its first packet only.
		state.CheckContinuity(tspacket.ContinuityCounter(pkt))
		atomic.AddInt64(&ins.activePIDs, 1)
		return
	}

	cc := tspacket.ContinuityCounter(pkt)
	want := (state.LastCC + 1) & 0x0F
	if state.CheckContinuity(cc) {
		metrics.CCErrorsTotal.WithLabelValues(fmt.Sprintf("0x%04x", pid)).Inc()
		atomic.AddInt64(&ins.ccErrorsTotal, 1)
		fmt.Fprintf(ins.out, "!CC Error. PID %04x expected %02x got %02x\n", pid, want, cc)
		ins.sampled.DebugWithCategory(logger.CategoryCCErrorBurst, "continuity counter error", map[string]interface{}{
			"pid": pid, "expected": want, "got": cc,
		})
	}
}

func (ins *Inspector) dumpHex(pkt []byte, pid uint16, offset uint64) {
	if ins.tsLineNr == 0 {
		fmt.Fprintf(ins.out, "+TS Packet         filepos ------------>\n")
		fmt.Fprintf(ins.out, "+TS Packet             Hex           Dec   PID  Packet --------------------------------------------------------------------------------------->\n")
	}
	ins.tsLineNr++
	if ins.tsLineNr > 24 {
		ins.tsLineNr = 0
	}

	fmt.Fprintf(ins.out, "TS  #%09d -- %08x %13d  %04x  ", ins.packetsSeen, offset, offset, pid)

	dumpLen := 32
	if ins.opts.DumpHexLevel > 1 {
		dumpLen = tspacket.Size
	}
	if dumpLen > len(pkt) {
		dumpLen = len(pkt)
	}
	for _, b := range pkt[:dumpLen] {
		fmt.Fprintf(ins.out, "%02x", b)
	}
	fmt.Fprintln(ins.out)
}
