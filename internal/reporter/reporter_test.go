package reporter

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groovybits/ltntstools/internal/pidstate"
	"github.com/groovybits/ltntstools/internal/trend"
)

func TestReportPrintsSlopeDeviationAndRSquared(t *testing.T) {
	table := pidstate.NewTable()
	state := table.Get(0x100)
	state.PTS.Trend = trend.New("pts_to_scr", 100)
	for x := 0.0; x < 10; x++ {
		state.PTS.Trend.Insert(x, 2*x+1)
	}

	var out bytes.Buffer
	r := New(table, tickInterval, VerbositySummary, &out, "")
	r.report(0x100, state.PTS.Trend)

	got := out.String()
	assert.Contains(t, got, "PID 0x0100")
	assert.Contains(t, got, "Slope")
	assert.Contains(t, got, "r2 is")
}

func TestDumpAllSkipsPIDsWithoutTrends(t *testing.T) {
	table := pidstate.NewTable()
	var out bytes.Buffer
	r := New(table, tickInterval, VerbositySummary, &out, "")
	r.DumpAll()
	assert.Empty(t, out.String())
}

func TestDumpAllReportsEachPIDUnderItsOwnName(t *testing.T) {
	table := pidstate.NewTable()
	table.Get(0x100).PTS.Trend = trend.New("pid_0100_pts", 10)
	table.Get(0x200).PTS.Trend = trend.New("pid_0200_pts", 10)

	var out bytes.Buffer
	r := New(table, tickInterval, VerbositySummary, &out, "")
	r.DumpAll()

	got := out.String()
	assert.Contains(t, got, "pid_0100_pts")
	assert.Contains(t, got, "pid_0200_pts")
}

func TestVerbosityCSVAppendsAcrossMultiplePIDsWithoutCollision(t *testing.T) {
	dir := t.TempDir()
	table := pidstate.NewTable()
	table.Get(0x100).PTS.Trend = trend.New("pid_0100_pts", 10)
	table.Get(0x100).PTS.Trend.Insert(1, 10)
	table.Get(0x200).PTS.Trend = trend.New("pid_0200_pts", 10)
	table.Get(0x200).PTS.Trend.Insert(2, 20)

	var out bytes.Buffer
	r := New(table, tickInterval, VerbosityCSV, &out, dir)
	r.DumpAll()

	a, err := os.ReadFile(filepath.Join(dir, "pid_0100_pts.csv"))
	require.NoError(t, err)
	assert.Equal(t, "1.000000,10.000000\n", string(a))

	b, err := os.ReadFile(filepath.Join(dir, "pid_0200_pts.csv"))
	require.NoError(t, err)
	assert.Equal(t, "2.000000,20.000000\n", string(b))
}

func TestSaveCSVAppendsRatherThanTruncatingOnRepeatedCalls(t *testing.T) {
	dir := t.TempDir()
	table := pidstate.NewTable()
	tr := trend.New("append_test", 10)
	tr.Insert(1, 10)

	var out bytes.Buffer
	r := New(table, tickInterval, VerbosityCSV, &out, dir)

	require.NoError(t, r.saveCSV("append_test", tr))
	require.NoError(t, r.saveCSV("append_test", tr))

	data, err := os.ReadFile(filepath.Join(dir, "append_test.csv"))
	require.NoError(t, err)
	assert.Equal(t, "1.000000,10.000000\n1.000000,10.000000\n", string(data))
}

func TestPidReportPrintsOnlyActivePIDsWithUsagePercent(t *testing.T) {
	table := pidstate.NewTable()
	table.Get(0x100).PktCount = 80
	table.Get(0x100).CCErrors = 2
	table.Get(0x200).PktCount = 20

	var out bytes.Buffer
	PidReport(&out, table, 100)

	got := out.String()
	assert.Contains(t, got, "pid: 0x0100")
	assert.Contains(t, got, "using:    80.0%")
	assert.Contains(t, got, "pid: 0x0200")
	assert.Contains(t, got, "using:    20.0%")
	assert.NotContains(t, got, "0x0300")
}

func TestVerbosityCSVWritesSampleFile(t *testing.T) {
	dir := t.TempDir()
	table := pidstate.NewTable()
	state := table.Get(0x31)
	state.PTS.Trend = trend.New("csv_test", 10)
	state.PTS.Trend.Insert(1, 10)
	state.PTS.Trend.Insert(2, 20)

	var out bytes.Buffer
	r := New(table, tickInterval, VerbosityCSV, &out, dir)
	r.report(0x31, state.PTS.Trend)

	data, err := os.ReadFile(filepath.Join(dir, "csv_test.csv"))
	require.NoError(t, err)
	assert.Equal(t, "1.000000,10.000000\n2.000000,20.000000\n", string(data))
}

func TestVerbosityDumpPrintsRawSamples(t *testing.T) {
	table := pidstate.NewTable()
	state := table.Get(0x31)
	state.PTS.Trend = trend.New("dump_test", 10)
	state.PTS.Trend.Insert(1, 10)

	var out bytes.Buffer
	r := New(table, tickInterval, VerbosityDump, &out, "")
	r.report(0x31, state.PTS.Trend)

	assert.True(t, strings.Contains(out.String(), "dump_test, 1.000000, 10.000000"))
}

func TestRunFiresAfterReportPeriodElapses(t *testing.T) {
	table := pidstate.NewTable()
	state := table.Get(0x31)
	state.PTS.Trend = trend.New("run_test", 10)
	state.PTS.Trend.Insert(1, 1)

	var out bytes.Buffer
	r := New(table, tickInterval, VerbositySummary, &out, "")

	ctx, cancel := context.WithTimeout(context.Background(), 600*time.Millisecond)
	defer cancel()
	r.Run(ctx)

	assert.Contains(t, out.String(), "Dumping trend report(s)")
}
