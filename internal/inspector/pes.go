package inspector

import (
	"fmt"
	"time"

	"github.com/groovybits/ltntstools/internal/clock"
	"github.com/groovybits/ltntstools/internal/logger"
	"github.com/groovybits/ltntstools/internal/metrics"
	"github.com/groovybits/ltntstools/internal/pes"
	"github.com/groovybits/ltntstools/internal/pidstate"
	"github.com/groovybits/ltntstools/internal/tspacket"
)

// processPESStats handles PES-unit-start bookkeeping (the delivery-time
// correlation used by the -Y report) and, on a unit start, extracts and
// reports the PES header's PTS/DTS.
func (ins *Inspector) processPESStats(pkt []byte, offset uint64, now time.Time) {
	pid := tspacket.PID(pkt)
	if !ins.tracked(pid) || pid == 0 {
		return
	}
	if !tspacket.HasPayload(pkt) {
		return
	}

	state := ins.table.Get(pid)
	scrState := ins.table.Get(ins.opts.SCRPID)
	pusi := tspacket.PayloadUnitStart(pkt)
	nowUs := now.UnixMicro()

	var priorDeliveryTicks int64
	var priorDeliveryUs int64
	if pusi {
		priorDeliveryTicks = clock.SCRDiff(state.SCRAtPESUnitHeader, state.SCRLastSeen)
		priorDeliveryUs = state.SCRLastSeenTs - state.SCRAtPESUnitHeaderTs
		state.SCRAtPESUnitHeader = scrState.SCR
		state.SCRAtPESUnitHeaderTs = nowUs
	} else {
		state.SCRLastSeen = scrState.SCR
		state.SCRLastSeenTs = nowUs
		return
	}

	payload := tspacket.Payload(pkt)
	if !tspacket.ContainsPESHeader(payload) {
		return
	}

	hdr, err := pes.Parse(payload)
	if err != nil {
		ins.sampled.DebugWithCategory(logger.CategoryPacketTrace, "skipping unparsable PES header", map[string]interface{}{"pid": pid, "error": err.Error()})
		return
	}

	if hdr.PTSDTSFlags == pes.FlagsPTSOnly || hdr.PTSDTSFlags == pes.FlagsPTSAndDTS {
		ins.reportPTS(state, scrState, pid, offset, hdr.PTS, now, priorDeliveryTicks, priorDeliveryUs)
	}
	if hdr.PTSDTSFlags == pes.FlagsPTSAndDTS {
		ins.reportDTS(state, scrState, pid, offset, hdr.DTS, now)
	}
}

func (ins *Inspector) reportPTS(state, scrState *pidstate.PID, pid uint16, offset uint64, pts int64, now time.Time, priorDeliveryTicks, priorDeliveryUs int64) {
	prevSCR := state.PTS.LastSCR
	hadPrior := state.PTS.Count > 0
	canTrend := state.PTS.Observe(fmt.Sprintf("pid_%04x_pts", pid), pts, scrState.SCR, ins.opts.TrendCapacity)

	var ptsSCRDiffMs int64
	if hadPrior {
		ptsSCRDiffMs = clock.SCRDiff(prevSCR, scrState.SCR) / 27000
	}

	ptsMinusSCRTicks := pts*300 - scrState.SCR
	dPtsMinusSCR := float64(ptsMinusSCRTicks) / 27000.0

	if canTrend {
		ins.insertTrend(&ins.ptsFirstX, &ins.ptsFirstY, pid, state.PTS.Trend, now, pts)
	}

	if ins.opts.EnableConformanceWarnings {
		if dPtsMinusSCR < 0 {
			metrics.ConformanceWarningsTotal.WithLabelValues("behind_pcr", fmt.Sprintf("0x%04x", pid)).Inc()
			fmt.Fprintf(ins.out, "!PTS #%09d Error. The PTS is arriving BEHIND the PCR, the PTS is late. The stream is not timing conformant.\n", state.PTS.Count)
		}
		if clock.PTSTicksToMs(state.PTS.DiffTicks) >= ins.opts.MaxAllowableDriftMs {
			metrics.ConformanceWarningsTotal.WithLabelValues("pts_drift", fmt.Sprintf("0x%04x", pid)).Inc()
			fmt.Fprintf(ins.out, "!PTS #%09d Error. Difference between previous and current 90KHz clock >= +-%dms (is %d)\n",
				state.PTS.Count, ins.opts.MaxAllowableDriftMs, clock.PTSTicksToMs(state.PTS.DiffTicks))
		}
		// Deliberately >=, never abs(): a clock running consistently
		// *behind* by exactly the threshold never trips this warning while
		// one running ahead by the same margin does.
		if ptsSCRDiffMs >= ins.opts.MaxAllowableDriftMs {
			metrics.ConformanceWarningsTotal.WithLabelValues("scr_drift", fmt.Sprintf("0x%04x", pid)).Inc()
			fmt.Fprintf(ins.out, "!PTS #%09d Error. Difference between previous and current PTS frame measured in SCR ticks >= +-%dms (is %d)\n",
				state.PTS.Count, ins.opts.MaxAllowableDriftMs, ptsSCRDiffMs)
		}
	}

	if ins.opts.ReorderPTS {
		state.EnableReorder()
		state.InsertOrdered(pidstate.OrderedEntry{Nr: state.PTS.Count, PTS: pts, FilePos: int64(offset)})
	} else {
		if ins.ptsLineNr == 0 {
			fmt.Fprintf(ins.out, "+PTS/DTS Timing       filepos ------------>               PTS/DTS  <------- DIFF ------> <---- SCR <--PTS*300--------->\n")
			fmt.Fprintf(ins.out, "+PTS/DTS Timing           Hex           Dec   PID       90KHz VAL       TICKS         MS   Diff MS  minus SCR        ms\n")
		}
		ins.ptsLineNr++
		if ins.ptsLineNr > 24 {
			ins.ptsLineNr = 0
		}
		fmt.Fprintf(ins.out, "PTS #%09d -- %011x %13d  %04x  %14d  %10d %10.2f %9d %10d %9.2f\n",
			state.PTS.Count, offset, offset, pid,
			pts, state.PTS.DiffTicks, float64(state.PTS.DiffTicks)/90,
			ptsSCRDiffMs, ptsMinusSCRTicks, dPtsMinusSCR)

		if ins.opts.EnablePESDeliveryReport {
			fmt.Fprintf(ins.out, "!PTS #%09d                              %04x took %10d SCR ticks to arrive, or %9.03f ms, %9d uS walltime\n",
				state.PTS.Count-1, pid, priorDeliveryTicks, float64(priorDeliveryTicks)/27000.0, priorDeliveryUs)
		}
	}
}

func (ins *Inspector) reportDTS(state, scrState *pidstate.PID, pid uint16, offset uint64, dts int64, now time.Time) {
	prevSCR := state.DTS.LastSCR
	hadPrior := state.DTS.Count > 0
	canTrend := state.DTS.Observe(fmt.Sprintf("pid_%04x_dts", pid), dts, scrState.SCR, ins.opts.TrendCapacity)

	var dtsSCRDiffMs int64
	if hadPrior {
		dtsSCRDiffMs = clock.SCRDiff(prevSCR, scrState.SCR) / 27000
	}

	dtsMinusSCRTicks := dts*300 - scrState.SCR
	dDtsMinusSCR := float64(dtsMinusSCRTicks) / 27000.0

	if canTrend {
		ins.insertTrend(&ins.dtsFirstX, &ins.dtsFirstY, pid, state.DTS.Trend, now, dts)
	}

	if ins.opts.EnableConformanceWarnings {
		if clock.PTSTicksToMs(state.DTS.DiffTicks) >= ins.opts.MaxAllowableDriftMs {
			metrics.ConformanceWarningsTotal.WithLabelValues("dts_drift", fmt.Sprintf("0x%04x", pid)).Inc()
			fmt.Fprintf(ins.out, "!DTS #%09d Error. Difference between previous and current 90KHz clock >= +-%dms (is %d)\n",
				state.DTS.Count, ins.opts.MaxAllowableDriftMs, clock.PTSTicksToMs(state.DTS.DiffTicks))
		}
		if dtsSCRDiffMs >= ins.opts.MaxAllowableDriftMs {
			metrics.ConformanceWarningsTotal.WithLabelValues("dts_scr_drift", fmt.Sprintf("0x%04x", pid)).Inc()
			fmt.Fprintf(ins.out, "!DTS #%09d Error. Difference between previous and current DTS frame measured in SCR ticks >= +-%dms (is %d)\n",
				state.DTS.Count, ins.opts.MaxAllowableDriftMs, dtsSCRDiffMs)
		}
	}

	fmt.Fprintf(ins.out, "DTS #%09d -- %011x %13d  %04x  %14d  %10d %10.2f %9d %10d %9.2f\n",
		state.DTS.Count, offset, offset, pid,
		dts, state.DTS.DiffTicks, float64(state.DTS.DiffTicks)/90,
		dtsSCRDiffMs, dtsMinusSCRTicks, dDtsMinusSCR)
}
