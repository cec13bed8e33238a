// Package reporter implements the periodic trend-snapshot task: a
// 250ms-tick loop that, once per configured report period, clones and
// prints the PTS-to-wallclock and DTS-to-wallclock linear trend for every PID that
// has one, with the verbosity levels the repeatable -L
// flag selects.
package reporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/groovybits/ltntstools/internal/pidstate"
	"github.com/groovybits/ltntstools/internal/trend"
)

// tickInterval is the loop's wakeup granularity; the report period
// itself is a multiple of this, matching a trend_report_thread-style
// usleep(250 * 1000) poll.
const tickInterval = 250 * time.Millisecond

// Verbosity levels, selected by how many times -L is repeated.
const (
	// VerbositySummary prints one slope/deviation/r2 line per trend.
	VerbositySummary = 1
	// VerbosityCSV additionally saves each trend's raw sample window to
	// a CSV file named after the trend.
	VerbosityCSV = 2
	// VerbosityDump additionally prints every raw (x, y) sample to Out.
	VerbosityDump = 3
)

// Reporter periodically snapshots and prints the trend windows held in
// a pidstate.Table.
type Reporter struct {
	table     *pidstate.Table
	period    time.Duration
	verbosity int
	out       io.Writer
	csvDir    string
}

// New creates a Reporter. period is clamped to at least tickInterval;
// csvDir is the directory CSV exports are written to at VerbosityCSV
// and above (empty means the current directory).
func New(table *pidstate.Table, period time.Duration, verbosity int, out io.Writer, csvDir string) *Reporter {
	if period < tickInterval {
		period = tickInterval
	}
	return &Reporter{table: table, period: period, verbosity: verbosity, out: out, csvDir: csvDir}
}

// Run blocks until ctx is canceled, firing a report every r.period.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	next := time.Now().Add(r.period)
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if now.Before(next) {
				continue
			}
			fmt.Fprintln(r.out, "Dumping trend report(s)")
			r.DumpAll()
			next = now.Add(r.period)
		}
	}
}

// DumpAll walks every PID slot and reports whichever PTS/DTS trends it
// holds. The table has a fixed 8192-slot layout, so this is a bounded
// O(8192) scan regardless of how many PIDs are actually active. It is
// exported so the CLI entrypoint can force one final trend report at
// shutdown, independent of the periodic ticker in Run.
func (r *Reporter) DumpAll() {
	for pid := uint16(0); pid < pidstate.NumPIDs; pid++ {
		state := r.table.Get(pid)
		if state.PTS.Trend != nil {
			r.report(pid, state.PTS.Trend)
		}
		if state.DTS.Trend != nil {
			r.report(pid, state.DTS.Trend)
		}
	}
}

func (r *Reporter) report(pid uint16, tr *trend.LinearTrend) {
	snap := tr.CloneSnapshot()

	if r.verbosity >= VerbosityCSV {
		if err := r.saveCSV(snap.Name, tr); err != nil {
			fmt.Fprintf(r.out, "failed to save trend CSV for %s: %v\n", snap.Name, err)
		}
	}
	if r.verbosity >= VerbosityDump {
		for _, s := range tr.Samples() {
			fmt.Fprintf(r.out, "%s, %.6f, %.6f\n", snap.Name, s.X, s.Y)
		}
	}

	fmt.Fprintf(r.out, "PID 0x%04x - Trend '%s', %8d entries, Slope %18.8f, Deviation is %12.2f, r2 is %12.8f @ %s\n",
		pid, snap.Name, snap.Count, snap.Slope(), snap.Deviation(), snap.RSquared(), time.Now().Format(time.RFC3339))
}

// saveCSV appends the trend's current sample window to <name>.csv,
// opening in append mode so each reporting cycle adds to the file
// rather than overwriting the previous cycle's rows.
func (r *Reporter) saveCSV(name string, tr *trend.LinearTrend) error {
	path := name + ".csv"
	if r.csvDir != "" {
		path = r.csvDir + string(os.PathSeparator) + path
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, s := range tr.Samples() {
		if err := w.Write([]string{
			strconv.FormatFloat(s.X, 'f', 6, 64),
			strconv.FormatFloat(s.Y, 'f', 6, 64),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// PidReport prints one summary line per active PID: packet count,
// continuity-counter error count, and the PID's share of the total
// packet count seen.
func PidReport(out io.Writer, table *pidstate.Table, totalPackets uint64) {
	total := float64(totalPackets)
	for pid := uint16(0); pid < pidstate.NumPIDs; pid++ {
		state := table.Get(pid)
		if state.PktCount == 0 {
			continue
		}
		using := 0.0
		if total > 0 {
			using = (float64(state.PktCount) / total) * 100.0
		}
		fmt.Fprintf(out, "pid: 0x%04x pkts: %12d discontinuities: %12d using: %7.1f%%\n",
			pid, state.PktCount, state.CCErrors, using)
	}
}
