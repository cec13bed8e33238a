// Package slicer extracts a byte-exact range from an MPEG-TS file,
// bounded by two PCR index records. The output bytes are unmodified:
// no PCR rewriting is performed.
package slicer

import (
	"errors"
	"io"
	"os"

	"github.com/groovybits/ltntstools/internal/pcrindex"
)

// CopyBlockSize is the suggested block size for the copy loop: 64 TS
// packets.
const CopyBlockSize = 188 * 64

// ErrInvalidRange is returned when end precedes start.
var ErrInvalidRange = errors.New("slicer: end record precedes start record")

// Slice copies the byte range [start.ByteOffset, end.ByteOffset) from
// the file at inputPath to the file at outputPath, in CopyBlockSize
// blocks.
func Slice(inputPath, outputPath string, start, end pcrindex.Record) (int64, error) {
	if end.ByteOffset < start.ByteOffset {
		return 0, ErrInvalidRange
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	if _, err := in.Seek(int64(start.ByteOffset), io.SeekStart); err != nil {
		return 0, err
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	remaining := int64(end.ByteOffset - start.ByteOffset)
	return copyBlocks(out, in, remaining)
}

func copyBlocks(dst io.Writer, src io.Reader, remaining int64) (int64, error) {
	buf := make([]byte, CopyBlockSize)
	var copied int64

	for remaining > 0 {
		blockLen := int64(len(buf))
		if remaining < blockLen {
			blockLen = remaining
		}
		n, err := io.ReadFull(src, buf[:blockLen])
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return copied, werr
			}
			copied += int64(n)
			remaining -= int64(n)
		}
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return copied, nil
			}
			return copied, err
		}
	}
	return copied, nil
}
