package source

import (
	"os"

	apperrors "github.com/groovybits/ltntstools/internal/errors"
)

// fileSource reads packets from a plain file. It never returns
// ErrWouldBlock: a file read either returns bytes, io.EOF, or a fatal
// error.
type fileSource struct {
	f *os.File
}

func openFile(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.WrapSourceError(err, "failed to open input file "+path)
	}
	return &fileSource{f: f}, nil
}

func (s *fileSource) Read(p []byte) (int, error) {
	return s.f.Read(p)
}

func (s *fileSource) Close() error {
	return s.f.Close()
}
