package inspector

import (
	"context"
	"errors"
	"io"
	"time"

	apperrors "github.com/groovybits/ltntstools/internal/errors"
	"github.com/groovybits/ltntstools/internal/logger"
	"github.com/groovybits/ltntstools/internal/source"
	"github.com/groovybits/ltntstools/internal/tspacket"
)

// wouldBlockBackoff is the short sleep applied when the source signals
// ErrWouldBlock, to poll-wait rather than busy-spin.
const wouldBlockBackoff = 5 * time.Millisecond

// Run drives the ingest loop to completion: it reads 188-byte aligned
// packets from src until ctx is canceled, the source reaches EOF, or a
// source-level error occurs. Parse-level errors are never fatal; a
// source-level read error is, and is returned wrapped as an
// *errors.AppError so the CLI entrypoint can exit non-zero.
func (ins *Inspector) Run(ctx context.Context, src source.Source) error {
	buf := make([]byte, tspacket.Size)
	var filled int
	var offset uint64

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := src.Read(buf[filled:])
		filled += n

		if filled == tspacket.Size {
			if tspacket.HasSync(buf) {
				ins.ProcessPacket(buf, offset, time.Now())
			} else {
				ins.sampled.DebugWithCategory(logger.CategoryPacketTrace, "dropping unsynced packet", map[string]interface{}{"offset": offset})
			}
			offset += uint64(tspacket.Size)
			filled = 0
		}

		if err == nil {
			continue
		}
		if errors.Is(err, source.ErrWouldBlock) {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wouldBlockBackoff):
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperrors.WrapSourceError(err, "packet source read failed")
	}
}
