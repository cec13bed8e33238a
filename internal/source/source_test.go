package source

import (
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURLBareFilePath(t *testing.T) {
	spec, err := parseURL("/var/recordings/stream.ts")
	require.NoError(t, err)
	assert.Equal(t, "", spec.scheme)
	assert.Equal(t, "/var/recordings/stream.ts", spec.path)
}

func TestParseURLUDPWithRTPFlag(t *testing.T) {
	spec, err := parseURL("udp://239.1.1.1:5000?rtp=1")
	require.NoError(t, err)
	assert.Equal(t, "udp", spec.scheme)
	assert.Equal(t, "239.1.1.1", spec.host)
	assert.Equal(t, 5000, spec.port)
	assert.True(t, spec.rtp)
}

func TestParseURLUDPWithPayloadParameter(t *testing.T) {
	spec, err := parseURL("udp://239.1.1.1:5000?payload=33")
	require.NoError(t, err)
	assert.True(t, spec.rtp)
}

func TestParseURLUDPWithoutRTPFlag(t *testing.T) {
	spec, err := parseURL("udp://239.1.1.1:5000")
	require.NoError(t, err)
	assert.False(t, spec.rtp)
}

func TestParseURLRejectsUnknownScheme(t *testing.T) {
	_, err := parseURL("rtmp://example.com/live")
	assert.Error(t, err)
}

func TestParseURLRejectsMissingPort(t *testing.T) {
	_, err := parseURL("udp://239.1.1.1")
	assert.Error(t, err)
}

func TestFileSourceReadsToEOF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.ts")
	content := []byte("0123456789")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	src, err := Open(path)
	require.NoError(t, err)
	defer src.Close()

	buf := make([]byte, 4)
	var got []byte
	for {
		n, err := src.Read(buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, content, got)
}

func TestFileSourceOpenMissingFileIsFatal(t *testing.T) {
	_, err := Open("/nonexistent/path/to/nowhere.ts")
	assert.Error(t, err)
}

func TestUDPSourceDeliversRawDatagram(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	port := listener.LocalAddr().(*net.UDPAddr).Port
	listener.Close()

	src, err := Open("udp://127.0.0.1:" + strconv.Itoa(port))
	require.NoError(t, err)
	defer src.Close()

	payload := make([]byte, 188)
	payload[0] = 0x47
	_, err = sendTo(port, payload)
	require.NoError(t, err)

	buf := make([]byte, 256)
	n, err := waitForRead(t, src, buf)
	require.NoError(t, err)
	assert.Equal(t, payload, buf[:n])
}

func TestUDPSourceDepacketizesRTP(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	port := listener.LocalAddr().(*net.UDPAddr).Port
	listener.Close()

	src, err := Open("udp://127.0.0.1:" + strconv.Itoa(port) + "?rtp=1")
	require.NoError(t, err)
	defer src.Close()

	tsPayload := make([]byte, 188*2)
	tsPayload[0] = 0x47
	tsPayload[188] = 0x47

	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    rtpMP2TPayloadType,
			SequenceNumber: 1,
			Timestamp:      90000,
			SSRC:           0xCAFEBABE,
		},
		Payload: tsPayload,
	}
	raw, err := pkt.Marshal()
	require.NoError(t, err)

	_, err = sendTo(port, raw)
	require.NoError(t, err)

	buf := make([]byte, 512)
	n, err := waitForRead(t, src, buf)
	require.NoError(t, err)
	assert.Equal(t, tsPayload, buf[:n])
}

func TestUDPSourceWouldBlockWhenIdle(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	port := listener.LocalAddr().(*net.UDPAddr).Port
	listener.Close()

	src, err := Open("udp://127.0.0.1:" + strconv.Itoa(port))
	require.NoError(t, err)
	defer src.Close()

	buf := make([]byte, 256)
	_, err = src.Read(buf)
	assert.ErrorIs(t, err, ErrWouldBlock)
}

func sendTo(port int, payload []byte) (int, error) {
	conn, err := net.Dial("udp", "127.0.0.1:"+strconv.Itoa(port))
	if err != nil {
		return 0, err
	}
	defer conn.Close()
	return conn.Write(payload)
}

// waitForRead polls Read a bounded number of times, tolerating
// ErrWouldBlock, the same way the ingest loop is specified to.
func waitForRead(t *testing.T, src Source, buf []byte) (int, error) {
	t.Helper()
	for i := 0; i < 50; i++ {
		n, err := src.Read(buf)
		if err == ErrWouldBlock {
			continue
		}
		return n, err
	}
	t.Fatal("source never delivered data")
	return 0, nil
}

