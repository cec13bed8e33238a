// Command tsslice is the PCR-index/slicer CLI: it builds or loads a
// persistent PCR index for an input transport-stream file, answers
// duration queries, and extracts byte-exact time slices bounded by two
// stream-time arguments.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/groovybits/ltntstools/internal/clock"
	"github.com/groovybits/ltntstools/internal/pcrindex"
	"github.com/groovybits/ltntstools/internal/slicer"
	"github.com/groovybits/ltntstools/pkg/version"
)

func main() {
	var (
		showVersion bool
		inputPath   string
		outputPath  string
		startStr    string
		endStr      string
		dumpIndex   bool
		fastQuery   string
	)

	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.StringVar(&inputPath, "i", "", "input transport-stream file (required)")
	flag.StringVar(&outputPath, "o", "", "output file for a time slice")
	flag.StringVar(&startStr, "s", "", "slice start time, D.HH:MM:SS.mmm")
	flag.StringVar(&endStr, "e", "", "slice end time, D.HH:MM:SS.mmm")
	flag.BoolVar(&dumpIndex, "l", false, "dump the index records to stdout")
	flag.StringVar(&fastQuery, "q", "", "fast duration query against the given file, without building an index")
	flag.Parse()

	if showVersion {
		fmt.Println(version.GetInfo().String())
		return
	}

	if fastQuery != "" {
		if err := runFastQuery(fastQuery); err != nil {
			fmt.Fprintf(os.Stderr, "tsslice: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if inputPath == "" {
		fmt.Fprintln(os.Stderr, "tsslice: -i is required")
		os.Exit(1)
	}

	idx, err := loadOrBuildIndex(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tsslice: %v\n", err)
		os.Exit(1)
	}

	if dumpIndex {
		dumpIndexRecords(idx)
		return
	}

	if startStr == "" || endStr == "" {
		fmt.Fprintln(os.Stderr, "tsslice: -s and -e are required unless -l or -q is given")
		os.Exit(1)
	}
	if outputPath == "" {
		fmt.Fprintln(os.Stderr, "tsslice: -o is required when slicing")
		os.Exit(1)
	}

	startRecord, endRecord, err := resolveSliceBounds(idx, startStr, endStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tsslice: %v\n", err)
		os.Exit(1)
	}

	n, err := slicer.Slice(inputPath, outputPath, startRecord, endRecord)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tsslice: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %d bytes to %s\n", n, outputPath)
}

// loadOrBuildIndex loads the sidecar <input>.idx file if present,
// falling back to a fresh scan (and a fresh sidecar write) if it is
// missing or fails to load: a corrupt index is treated the same as a
// missing one, falling through to a fresh scan.
func loadOrBuildIndex(inputPath string) (*pcrindex.Index, error) {
	idxPath := inputPath + ".idx"

	if idx, err := pcrindex.Load(idxPath); err == nil {
		return idx, nil
	}

	idx, err := pcrindex.Build(inputPath, pcrindex.AnyPID)
	if err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}
	if err := idx.Save(idxPath); err != nil {
		return nil, fmt.Errorf("saving index: %w", err)
	}
	return idx, nil
}

func resolveSliceBounds(idx *pcrindex.Index, startStr, endStr string) (pcrindex.Record, pcrindex.Record, error) {
	startTime, err := clock.ParseStreamTime(startStr)
	if err != nil {
		return pcrindex.Record{}, pcrindex.Record{}, fmt.Errorf("-s: %w", err)
	}
	endTime, err := clock.ParseStreamTime(endStr)
	if err != nil {
		return pcrindex.Record{}, pcrindex.Record{}, fmt.Errorf("-e: %w", err)
	}

	if len(idx.Records) == 0 {
		return pcrindex.Record{}, pcrindex.Record{}, fmt.Errorf("index has no records")
	}
	base := idx.Records[0].PCR

	startPCR := base + clock.StreamTimeToPCR(startTime)
	endPCR := base + clock.StreamTimeToPCR(endTime)

	startRecord, ok := idx.LookupGE(startPCR)
	if !ok {
		return pcrindex.Record{}, pcrindex.Record{}, fmt.Errorf("-s: no record at or after the requested time")
	}
	endRecord, ok := idx.LookupGE(endPCR)
	if !ok {
		return pcrindex.Record{}, pcrindex.Record{}, fmt.Errorf("-e: no record at or after the requested time")
	}
	return startRecord, endRecord, nil
}

func dumpIndexRecords(idx *pcrindex.Index) {
	for _, r := range idx.Records {
		fmt.Printf("offset=%d pid=0x%04x pcr=%d (%s)\n", r.ByteOffset, r.PID, r.PCR, clock.PCRToStreamTime(r.PCR).String())
	}
}

func runFastQuery(path string) error {
	result, err := pcrindex.FastQuery(path, pcrindex.AnyPID)
	if err != nil {
		return err
	}
	fmt.Printf("file size: %d bytes\n", result.FileSize)
	fmt.Printf("begin: offset=%d pcr=%d (%s)\n", result.Begin.ByteOffset, result.Begin.PCR, clock.PCRToStreamTime(result.Begin.PCR).String())
	fmt.Printf("end:   offset=%d pcr=%d (%s)\n", result.End.ByteOffset, result.End.PCR, clock.PCRToStreamTime(result.End.PCR).String())
	fmt.Printf("duration: %d ticks (%s)\n", result.Duration, clock.PCRToStreamTime(result.Duration).String())
	return nil
}
