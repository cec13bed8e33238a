// Package pcrindex builds and queries a persistent index mapping
// transport-stream byte offsets to PCR values, so a recording's
// duration and arbitrary time-range slices can be resolved without a
// full re-scan on every run.
package pcrindex

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/groovybits/ltntstools/internal/clock"
	"github.com/groovybits/ltntstools/internal/tspacket"
)

// ChunkSize is the amount of file read per scan iteration, rounded down
// to a whole number of TS packets.
const ChunkSize = (16 << 20) / tspacket.Size * tspacket.Size

// FastQueryThreshold is the file size below which FastQuery reads
// the entire file rather than just its head and tail.
const FastQueryThreshold = 32 << 20

// HeadTailSize is the number of bytes read from each end of a large
// file by FastQuery.
const HeadTailSize = 16 << 20

// recordSize is the packed on-disk size of a single Record: 8 bytes
// byte_offset + 2 bytes pid + 8 bytes pcr.
const recordSize = 8 + 2 + 8

// Record is a single (byte_offset, pid, pcr) observation. The on-disk
// index is a packed, headerless sequence of these.
type Record struct {
	ByteOffset uint64
	PID        uint16
	PCR        int64
}

// Index is an in-memory collection of Records, monotonically
// non-decreasing in ByteOffset but not necessarily in PCR (pre-roll can
// occur around discontinuities).
type Index struct {
	Records []Record
}

// AnyPID, passed as pidFilter, matches every PID rather than a single
// one. It is out of the 13-bit PID range so it can never collide with a
// real PID value.
const AnyPID = 0x10000

// Scan reads r to completion in ChunkSize blocks (the final block may
// be shorter, rounded down to a whole packet), calling onRecord for
// every PCR-bearing packet matching pidFilter (or every PID when
// pidFilter == AnyPID). byteOffset is the absolute file offset of each
// packet.
func Scan(r io.Reader, pidFilter int, onRecord func(Record)) error {
	buf := make([]byte, ChunkSize)
	var byteOffset uint64

	br := bufio.NewReaderSize(r, ChunkSize)
	for {
		n, err := io.ReadFull(br, buf)
		if n > 0 {
			scanChunk(buf[:n], byteOffset, pidFilter, onRecord)
			byteOffset += uint64(n)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func scanChunk(chunk []byte, baseOffset uint64, pidFilter int, onRecord func(Record)) {
	aligned := len(chunk) / tspacket.Size * tspacket.Size
	for off := 0; off < aligned; off += tspacket.Size {
		pkt := chunk[off : off+tspacket.Size]
		if !tspacket.HasSync(pkt) {
			continue
		}
		pid := tspacket.PID(pkt)
		if pidFilter != AnyPID && int(pid) != pidFilter {
			continue
		}
		pcr, ok := tspacket.PCR(pkt)
		if !ok {
			continue
		}
		onRecord(Record{
			ByteOffset: baseOffset + uint64(off),
			PID:        pid,
			PCR:        pcr,
		})
	}
}

// Build scans the entire file at path and returns the resulting Index,
// appending records to a growing slice with Go's native geometric
// reallocation.
func Build(path string, pidFilter int) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	idx := &Index{}
	err = Scan(f, pidFilter, func(r Record) {
		idx.Records = append(idx.Records, r)
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// Save writes idx to path as a raw packed binary sequence, with no
// header, one recordSize-byte record per entry.
func (idx *Index) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	buf := make([]byte, recordSize)
	for _, r := range idx.Records {
		putRecord(buf, r)
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Load reads a packed binary index previously written by Save.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	count := int(info.Size() / recordSize)
	idx := &Index{Records: make([]Record, count)}

	buf := make([]byte, recordSize)
	r := bufio.NewReader(f)
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		idx.Records[i] = getRecord(buf)
	}
	return idx, nil
}

func putRecord(buf []byte, r Record) {
	binary.BigEndian.PutUint64(buf[0:8], r.ByteOffset)
	binary.BigEndian.PutUint16(buf[8:10], r.PID)
	binary.BigEndian.PutUint64(buf[10:18], uint64(r.PCR))
}

func getRecord(buf []byte) Record {
	return Record{
		ByteOffset: binary.BigEndian.Uint64(buf[0:8]),
		PID:        binary.BigEndian.Uint16(buf[8:10]),
		PCR:        int64(binary.BigEndian.Uint64(buf[10:18])),
	}
}

// LookupGE returns the first record whose PCR is greater than or equal
// to pcr, by linear scan. Indexes are modest in size (a two-hour
// recording is a few hundred thousand records), so a linear scan is
// acceptable; callers with a PCR-monotonic index may prefer to binary
// search instead.
func (idx *Index) LookupGE(pcr int64) (Record, bool) {
	for _, r := range idx.Records {
		if pcr <= r.PCR {
			return r, true
		}
	}
	return Record{}, false
}

// Duration returns the modular PCR span between the first and last
// record, i.e. how long the recording covers.
func (idx *Index) Duration() int64 {
	if len(idx.Records) == 0 {
		return 0
	}
	first := idx.Records[0].PCR
	last := idx.Records[len(idx.Records)-1].PCR
	return clock.SCRDiff(first, last)
}

// FastQueryResult is the answer to "how long is this recording", found
// without scanning the whole file.
type FastQueryResult struct {
	Begin    Record
	End      Record
	Duration int64 // 27MHz ticks, modular
	FileSize int64
}

// FastQuery answers a duration query in near-constant time: files
// smaller than FastQueryThreshold are read in full; larger files are
// resolved from just their first and last HeadTailSize bytes.
func FastQuery(path string, pidFilter int) (FastQueryResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return FastQueryResult{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return FastQueryResult{}, err
	}
	size := info.Size()

	var head, tail []Record
	if size < FastQueryThreshold {
		recs, err := scanSegment(f, 0, size, pidFilter)
		if err != nil {
			return FastQueryResult{}, err
		}
		head = recs
		tail = recs
	} else {
		headRecs, err := scanSegment(f, 0, HeadTailSize, pidFilter)
		if err != nil {
			return FastQueryResult{}, err
		}
		tailStart := size - HeadTailSize
		tailRecs, err := scanSegment(f, tailStart, HeadTailSize, pidFilter)
		if err != nil {
			return FastQueryResult{}, err
		}
		head = headRecs
		tail = tailRecs
	}

	if len(head) == 0 || len(tail) == 0 {
		return FastQueryResult{}, io.ErrUnexpectedEOF
	}

	begin := head[0]
	end := tail[len(tail)-1]
	return FastQueryResult{
		Begin:    begin,
		End:      end,
		Duration: clock.SCRDiff(begin.PCR, end.PCR),
		FileSize: size,
	}, nil
}

func scanSegment(f *os.File, offset, length int64, pidFilter int) ([]Record, error) {
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}

	var recs []Record
	scanChunk(buf[:n], uint64(offset), pidFilter, func(r Record) {
		recs = append(recs, r)
	})
	return recs, nil
}
