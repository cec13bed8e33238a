// Package inspector drives the per-packet pipeline:
// packet statistics (continuity-counter checking),
// SCR statistics, and PES statistics (PTS/DTS extraction, timing
// conformance warnings, trend insertion and optional PTS reordering).
// It owns the per-PID state table exclusively; nothing outside the
// ingest task mutates it.
package inspector

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/groovybits/ltntstools/internal/health"
	"github.com/groovybits/ltntstools/internal/logger"
	"github.com/groovybits/ltntstools/internal/metrics"
	"github.com/groovybits/ltntstools/internal/pidstate"
	"github.com/groovybits/ltntstools/internal/trend"
)

// Options mirrors the inspector CLI surface.
type Options struct {
	SCRPID                  uint16
	MaxAllowableDriftMs     int64
	EnableConformanceWarnings bool
	EnablePESDeliveryReport bool
	ReorderPTS              bool
	TrendCapacity           int
	DumpHexLevel            int  // 0 disabled, 1 summary, 2 full packet
	EnableSCRStats          bool
	EnablePTSStats          bool
	InitialWallclock        time.Time // anchor for -T; zero means "now"
	TrackedPIDs             map[uint16]bool // nil/empty means "all PIDs"
}

// Inspector walks a transport stream packet by packet, updating the
// per-PID state table and writing human-readable report lines to Out.
type Inspector struct {
	opts    Options
	table   *pidstate.Table
	out     io.Writer
	log     logger.Logger
	sampled *logger.SampledLogger
	heartbeat *health.IngestChecker

	// linenr counters mirror the clock_inspector.c convention of
	// reprinting the column header every 25 lines of a given report.
	ptsLineNr int
	scrLineNr int
	tsLineNr  int

	packetsSeen uint64
	startedAt   time.Time

	// offset, activePIDs and ccErrorsTotal are updated by the ingest
	// task and read, via atomics, by the optional -P progress reader
	// running on its own goroutine. They are not part of the core
	// pipeline state of the core table; they exist solely to give
	// the progress UI a concurrency-safe readout without taking the
	// per-PID table's place as shared state.
	offset        int64
	activePIDs    int64
	ccErrorsTotal int64

	// firstX/firstY anchor each PID's trend window to its own first
	// sample, the same zero-basing clock_inspector.c's first_x/first_y
	// fields apply before feeding kllineartrend_add.
	ptsFirstX, ptsFirstY map[uint16]float64
	dtsFirstX, dtsFirstY map[uint16]float64
}

// New creates an Inspector over table, ready to process packets per
// opts.
func New(opts Options, table *pidstate.Table, out io.Writer, log logger.Logger, heartbeat *health.IngestChecker) *Inspector {
	if opts.TrendCapacity <= 0 {
		opts.TrendCapacity = trendDefaultCapacity
	}
	return &Inspector{
		opts:      opts,
		table:     table,
		out:       out,
		log:       log,
		sampled:   logger.NewIngestSampledLogger(log),
		heartbeat: heartbeat,
		startedAt: time.Now(),
		ptsFirstX: make(map[uint16]float64),
		ptsFirstY: make(map[uint16]float64),
		dtsFirstX: make(map[uint16]float64),
		dtsFirstY: make(map[uint16]float64),
	}
}

const trendDefaultCapacity = 60 * 60 * 60

// Offset returns the byte offset of the most recently processed packet,
// safe to call from another goroutine while Run is in progress.
func (ins *Inspector) Offset() int64 {
	return atomic.LoadInt64(&ins.offset)
}

// PacketsSeen returns the number of packets processed so far, safe to
// call concurrently with Run.
func (ins *Inspector) PacketsSeen() uint64 {
	return atomic.LoadUint64(&ins.packetsSeen)
}

// ActivePIDs returns the number of distinct PIDs that have delivered at
// least one payload-bearing packet so far.
func (ins *Inspector) ActivePIDs() int {
	return int(atomic.LoadInt64(&ins.activePIDs))
}

// CCErrors returns the running total of continuity-counter errors
// across every PID.
func (ins *Inspector) CCErrors() uint64 {
	return uint64(atomic.LoadInt64(&ins.ccErrorsTotal))
}

// tracked reports whether pid should be processed, honoring an
// optional allow-list from -p/-s style PID selection.
func (ins *Inspector) tracked(pid uint16) bool {
	if len(ins.opts.TrackedPIDs) == 0 {
		return true
	}
	return ins.opts.TrackedPIDs[pid]
}

// ProcessPacket dispatches a single 188-byte packet at the given
// absolute file/stream offset through packet, SCR and PES statistics,
// in that order, matching a processPacketStats ->
// processSCRStats -> processPESStats pipeline ordering.
func (ins *Inspector) ProcessPacket(pkt []byte, offset uint64, now time.Time) {
	atomic.AddUint64(&ins.packetsSeen, 1)
	atomic.StoreInt64(&ins.offset, int64(offset))
	metrics.PacketsTotal.Inc()
	if ins.heartbeat != nil {
		ins.heartbeat.Heartbeat()
	}

	ins.processPacketStats(pkt, offset)

	if ins.opts.EnableSCRStats {
		ins.processSCRStats(pkt, offset, now)
	}
	if ins.opts.EnablePTSStats {
		ins.processPESStats(pkt, offset, now)
	}
}

// insertTrend feeds one (x, y) sample into a PID's linear trend window,
// zero-basing both axes against that PID's first sample: x is seconds
// of wallclock elapsed, y is the clock value expressed in seconds at
// its 90kHz timebase.
func (ins *Inspector) insertTrend(firstX, firstY *map[uint16]float64, pid uint16, tr *trend.LinearTrend, now time.Time, ticks int64) {
	x := float64(now.UnixNano()) / 1e9
	y := float64(ticks) / 90000.0

	if _, ok := (*firstX)[pid]; !ok {
		(*firstX)[pid] = x
		(*firstY)[pid] = y
	}
	tr.Insert(x-(*firstX)[pid], y-(*firstY)[pid])
}
