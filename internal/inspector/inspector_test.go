package inspector

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groovybits/ltntstools/internal/logger"
	"github.com/groovybits/ltntstools/internal/pidstate"
	"github.com/groovybits/ltntstools/internal/tspacket"
)

func tsPacket(pid uint16, pusi bool, cc uint8, payload []byte) []byte {
	buf := make([]byte, tspacket.Size)
	buf[0] = tspacket.SyncByte
	buf[1] = byte(pid >> 8)
	if pusi {
		buf[1] |= 0x40
	}
	buf[2] = byte(pid)
	buf[3] = (tspacket.AFCPayloadOnly << 4) | (cc & 0x0F)
	copy(buf[4:], payload)
	return buf
}

func pcrPacket(pid uint16, pcr int64) []byte {
	buf := make([]byte, tspacket.Size)
	buf[0] = tspacket.SyncByte
	buf[1] = byte(pid >> 8)
	buf[2] = byte(pid)
	buf[3] = (tspacket.AFCAdaptationOnly << 4) | 0x00
	buf[4] = 7
	buf[5] = 0x10
	tspacket.PutPCR(buf, pcr)
	return buf
}

func encodeTimestamp(prefix byte, ts int64) []byte {
	b := make([]byte, 5)
	b[0] = prefix<<4 | byte(ts>>29)&0x0E | 0x01
	b[1] = byte(ts >> 22)
	b[2] = byte(ts>>14)&0xFE | 0x01
	b[3] = byte(ts >> 7)
	b[4] = byte(ts<<1) | 0x01
	return b
}

func pesPayload(pts int64) []byte {
	buf := []byte{0x00, 0x00, 0x01, 0xE0, 0x00, 0x00, 0x80, 0x02 << 6, 0x00}
	buf = append(buf, encodeTimestamp(0x2, pts)...)
	return buf
}

func newTestInspector(opts Options) *Inspector {
	return New(opts, pidstate.NewTable(), &bytes.Buffer{}, logger.NewNullLogger(), nil)
}

func TestProcessPacketFlagsContinuityError(t *testing.T) {
	var out bytes.Buffer
	ins := New(Options{}, pidstate.NewTable(), &out, logger.NewNullLogger(), nil)

	ins.ProcessPacket(tsPacket(0x100, false, 0, nil), 0, time.Now())
	ins.ProcessPacket(tsPacket(0x100, false, 2, nil), 188, time.Now())

	state := ins.table.Get(0x100)
	assert.Equal(t, uint64(1), state.CCErrors)
	assert.Contains(t, out.String(), "!CC Error. PID 0100 expected 01 got 02")
}

func TestProcessPacketNullPIDNeverFlagged(t *testing.T) {
	ins := newTestInspector(Options{})
	ins.ProcessPacket(tsPacket(pidstate.NullPID, false, 0, nil), 0, time.Now())
	ins.ProcessPacket(tsPacket(pidstate.NullPID, false, 5, nil), 188, time.Now())

	state := ins.table.Get(pidstate.NullPID)
	assert.Equal(t, uint64(0), state.CCErrors)
}

func TestSCRStatsLatchesFirstAndDiffsSubsequent(t *testing.T) {
	ins := newTestInspector(Options{EnableSCRStats: true, SCRPID: 0x31})

	ins.ProcessPacket(pcrPacket(0x31, 1000), 0, time.Now())
	ins.ProcessPacket(pcrPacket(0x31, 4000), 188, time.Now())

	state := ins.table.Get(0x31)
	assert.Equal(t, int64(4000), state.SCR)
	assert.Equal(t, uint64(2), state.SCRUpdates)
}

func TestPESStatsExtractsPTSOnPUSI(t *testing.T) {
	var out bytes.Buffer
	ins := New(Options{EnableSCRStats: true, EnablePTSStats: true, SCRPID: 0x31}, pidstate.NewTable(), &out, logger.NewNullLogger(), nil)

	ins.ProcessPacket(pcrPacket(0x31, 0), 0, time.Now())
	ins.ProcessPacket(tsPacket(0x100, true, 0, pesPayload(90000)), 188, time.Now())

	state := ins.table.Get(0x100)
	assert.Equal(t, uint64(1), state.PTS.Count)
	assert.Equal(t, int64(90000), state.PTS.Last)
	assert.Contains(t, out.String(), "PTS #000000001")
}

func TestPESStatsEmitsBehindPCRWarning(t *testing.T) {
	var out bytes.Buffer
	ins := New(Options{
		EnableSCRStats:            true,
		EnablePTSStats:             true,
		EnableConformanceWarnings: true,
		SCRPID:                    0x31,
	}, pidstate.NewTable(), &out, logger.NewNullLogger(), nil)

	// SCR far ahead of the PTS about to arrive: PTS*300 - SCR < 0.
	ins.ProcessPacket(pcrPacket(0x31, 999_000_000), 0, time.Now())
	ins.ProcessPacket(tsPacket(0x100, true, 0, pesPayload(90000)), 188, time.Now())

	assert.Contains(t, out.String(), "arriving BEHIND the PCR")
}

func TestPESStatsEmitsDriftWarningOnLargePTSJump(t *testing.T) {
	var out bytes.Buffer
	ins := New(Options{
		EnableSCRStats:            true,
		EnablePTSStats:             true,
		EnableConformanceWarnings: true,
		SCRPID:                    0x31,
		MaxAllowableDriftMs:       700,
	}, pidstate.NewTable(), &out, logger.NewNullLogger(), nil)

	ins.ProcessPacket(pcrPacket(0x31, 0), 0, time.Now())
	ins.ProcessPacket(tsPacket(0x100, true, 0, pesPayload(90000)), 188, time.Now())
	// Jump far beyond the 700ms threshold.
	ins.ProcessPacket(tsPacket(0x100, true, 1, pesPayload(90000+90000*5)), 376, time.Now())

	assert.Contains(t, out.String(), "Difference between previous and current 90KHz clock")
}

func TestReorderModeBuffersInsteadOfPrinting(t *testing.T) {
	var out bytes.Buffer
	ins := New(Options{
		EnableSCRStats: true,
		EnablePTSStats: true,
		SCRPID:         0x31,
		ReorderPTS:     true,
	}, pidstate.NewTable(), &out, logger.NewNullLogger(), nil)

	ins.ProcessPacket(pcrPacket(0x31, 0), 0, time.Now())
	ins.ProcessPacket(tsPacket(0x100, true, 0, pesPayload(90000)), 188, time.Now())

	assert.NotContains(t, out.String(), "PTS #")
	state := ins.table.Get(0x100)
	require.NotNil(t, state.Ordered)
	assert.Equal(t, 1, state.Ordered.Len())
}

func TestTrackedPIDsFilterExcludesOthers(t *testing.T) {
	ins := newTestInspector(Options{TrackedPIDs: map[uint16]bool{0x31: true}})
	assert.True(t, ins.tracked(0x31))
	assert.False(t, ins.tracked(0x100))
}

func TestRunStopsOnEOF(t *testing.T) {
	stream := bytes.NewBuffer(nil)
	stream.Write(tsPacket(0x31, false, 0, nil))
	stream.Write(tsPacket(0x31, false, 1, nil))

	ins := newTestInspector(Options{})
	err := ins.Run(context.Background(), &readerSource{r: stream})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), ins.packetsSeen)
}

// readerSource adapts a bytes.Buffer to the source.Source interface for
// Run's unit test without pulling in a real file or socket.
type readerSource struct {
	r *bytes.Buffer
}

func (s *readerSource) Read(p []byte) (int, error) { return s.r.Read(p) }
func (s *readerSource) Close() error                { return nil }
