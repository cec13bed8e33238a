package source

import (
	"fmt"
	"net"
	"time"

	"github.com/pion/rtp"
	"golang.org/x/time/rate"

	apperrors "github.com/groovybits/ltntstools/internal/errors"
	"github.com/groovybits/ltntstools/internal/metrics"
)

// rtpMP2TPayloadType is the RFC 2250 payload type for MPEG2 transport
// streams carried over RTP.
const rtpMP2TPayloadType = 33

// udpReadTimeout bounds a single blocking read so a dead or idle sender
// surfaces as a would_block retry rather than hanging the ingest loop
// forever.
const udpReadTimeout = 200 * time.Millisecond

// maxDatagramSize is large enough for a jumbo UDP datagram; typical
// MPEG-TS-over-UDP senders stay at 7*188 = 1316 bytes per datagram.
const maxDatagramSize = 65536

// udpSource reads TS packets from a UDP socket, optionally unwrapping
// an RTP envelope first. A single datagram may carry several TS
// packets; pending bytes from a datagram larger than the caller's
// buffer are held in leftover and drained before the next read.
type udpSource struct {
	spec     urlSpec
	conn     *net.UDPConn
	limiter  *rate.Limiter
	leftover []byte
	scratch  []byte
	closed   bool
}

func openUDP(spec urlSpec) (Source, error) {
	addr := &net.UDPAddr{IP: net.ParseIP(spec.host), Port: spec.port}
	if addr.IP == nil {
		// host may be a DNS name rather than a literal.
		ips, err := net.LookupIP(spec.host)
		if err != nil || len(ips) == 0 {
			return nil, apperrors.NewValidationError("cannot resolve udp source host: " + spec.host)
		}
		addr.IP = ips[0]
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, apperrors.WrapSourceError(err, fmt.Sprintf("failed to open udp source %s:%d", spec.host, spec.port))
	}

	return &udpSource{
		spec: spec,
		conn: conn,
		// One reconnect attempt per second, bursting to 3, bounds how
		// hard a dead multicast feed is hammered while still reporting
		// would_block quickly on the common transient case.
		limiter: rate.NewLimiter(rate.Limit(1), 3),
		scratch: make([]byte, maxDatagramSize),
	}, nil
}

func (s *udpSource) Read(p []byte) (int, error) {
	if len(s.leftover) > 0 {
		n := copy(p, s.leftover)
		s.leftover = s.leftover[n:]
		return n, nil
	}

	if err := s.conn.SetReadDeadline(time.Now().Add(udpReadTimeout)); err != nil {
		return 0, apperrors.WrapSourceError(err, "failed to set udp read deadline")
	}

	n, _, err := s.conn.ReadFromUDP(s.scratch)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return 0, ErrWouldBlock
		}
		return 0, s.reconnect(err)
	}

	payload := s.scratch[:n]
	if s.spec.rtp {
		payload, err = depacketizeRTP(payload)
		if err != nil {
			// A malformed RTP packet is a parse-level problem, not a
			// source-level one: skip it and let the caller poll again.
			return 0, ErrWouldBlock
		}
	}

	copied := copy(p, payload)
	if copied < len(payload) {
		s.leftover = append([]byte(nil), payload[copied:]...)
	}
	return copied, nil
}

func depacketizeRTP(datagram []byte) ([]byte, error) {
	pkt := &rtp.Packet{}
	if err := pkt.Unmarshal(datagram); err != nil {
		return nil, err
	}
	if pkt.PayloadType != rtpMP2TPayloadType {
		return nil, fmt.Errorf("source: unexpected rtp payload type %d", pkt.PayloadType)
	}
	return pkt.Payload, nil
}

// reconnect is invoked when a non-timeout read error is seen. UDP has
// no connection to re-establish, but a NIC renumbering or route flap
// can still invalidate the bound socket; closing and rebinding clears
// that state. Reconnect attempts are paced by s.limiter: once a socket
// is failing faster than the bucket refills, it is treated as
// non-recoverable and the error is surfaced as fatal.
func (s *udpSource) reconnect(cause error) error {
	if !s.limiter.Allow() {
		return apperrors.WrapSourceError(cause, "udp source read failed repeatedly, giving up")
	}

	metrics.SourceReconnectsTotal.Inc()

	_ = s.conn.Close()
	addr := &net.UDPAddr{IP: net.ParseIP(s.spec.host), Port: s.spec.port}
	if addr.IP == nil {
		if ips, err := net.LookupIP(s.spec.host); err == nil && len(ips) > 0 {
			addr.IP = ips[0]
		}
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return apperrors.WrapSourceError(err, "udp source reconnect failed")
	}
	s.conn = conn
	return ErrWouldBlock
}

func (s *udpSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
