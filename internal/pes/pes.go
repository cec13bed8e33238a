// Package pes decodes Packetized Elementary Stream header fields that the
// clock inspector needs: the PTS_DTS_flags and the PTS/DTS values
// themselves, each a 33-bit timestamp at 90kHz.
package pes

import "fmt"

// DTS/PTS flag combinations from the PES optional header, byte 7 bits 7-6.
const (
	FlagsNone   = 0x0
	FlagsForbidden = 0x1
	FlagsPTSOnly   = 0x2
	FlagsPTSAndDTS = 0x3
)

// Header holds the fields the inspector correlates against SCR.
type Header struct {
	PTSDTSFlags uint8
	PTS         int64
	DTS         int64
}

// ErrNoStartCode is returned when the supplied bytes do not begin with
// the PES packet start code prefix 00 00 01.
var ErrNoStartCode = fmt.Errorf("pes: missing start code prefix")

// ErrShortHeader is returned when the supplied bytes are too short to
// hold the fields Parse needs.
var ErrShortHeader = fmt.Errorf("pes: header too short")

// Parse decodes a PES header from buf, which must begin at the start
// code prefix (00 00 01) as found at the start of a TS payload whose
// payload_unit_start_indicator is set. It returns ErrNoStartCode or
// ErrShortHeader if buf cannot hold a usable header; stream IDs that
// never carry PTS/DTS (padding, private stream 2, ECM/EMM, DSM-CC,
// H.222.1 type E, program stream map/directory) decode successfully with
// FlagsNone.
func Parse(buf []byte) (Header, error) {
	if len(buf) < 9 {
		return Header{}, ErrShortHeader
	}
	if buf[0] != 0x00 || buf[1] != 0x00 || buf[2] != 0x01 {
		return Header{}, ErrNoStartCode
	}

	streamID := buf[3]
	if !carriesOptionalHeader(streamID) {
		return Header{}, nil
	}

	flags := (buf[7] >> 6) & 0x03
	hdr := Header{PTSDTSFlags: flags}

	offset := 9
	switch flags {
	case FlagsPTSOnly:
		if len(buf) < offset+5 {
			return Header{}, ErrShortHeader
		}
		pts, err := extractTimestamp(buf[offset : offset+5])
		if err != nil {
			return Header{}, err
		}
		hdr.PTS = pts
	case FlagsPTSAndDTS:
		if len(buf) < offset+10 {
			return Header{}, ErrShortHeader
		}
		pts, err := extractTimestamp(buf[offset : offset+5])
		if err != nil {
			return Header{}, err
		}
		dts, err := extractTimestamp(buf[offset+5 : offset+10])
		if err != nil {
			return Header{}, err
		}
		hdr.PTS = pts
		hdr.DTS = dts
	}
	return hdr, nil
}

// carriesOptionalHeader reports whether streamID identifies a PES stream
// that carries the optional PES header (and therefore PTS/DTS); program
// stream map/directory, padding, private_stream_2, ECM/EMM, DSM-CC and
// H.222.1 type E streams do not.
func carriesOptionalHeader(streamID byte) bool {
	switch streamID {
	case 0xBC, 0xBE, 0xBF, 0xF0, 0xF1, 0xFF, 0xF2, 0xF8:
		return false
	default:
		return true
	}
}

// extractTimestamp decodes a 33-bit PTS or DTS from its 5-byte field,
// per ISO/IEC 13818-1 2.4.3.7. The marker/prefix bits (0010 for PTS-only,
// 0011/0001 prefixes for the PTS/DTS pair) are not re-validated here; the
// caller has already dispatched on PTSDTSFlags.
func extractTimestamp(b []byte) (int64, error) {
	if len(b) < 5 {
		return 0, ErrShortHeader
	}
	ts := int64(b[0]&0x0E)<<29 |
		int64(b[1])<<22 |
		int64(b[2]&0xFE)<<14 |
		int64(b[3])<<7 |
		int64(b[4])>>1
	return ts, nil
}
