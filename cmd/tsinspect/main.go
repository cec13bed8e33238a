// Command tsinspect is the clock-inspector CLI: it opens a packet
// source (file or udp://, optionally RTP-encapsulated), drives the
// ingest pipeline in internal/inspector, and prints TS/SCR/PTS/DTS
// report lines plus periodic trend reports until the source reaches
// EOF, -t elapses, or SIGINT/SIGTERM is received.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/groovybits/ltntstools/internal/config"
	apperrors "github.com/groovybits/ltntstools/internal/errors"
	"github.com/groovybits/ltntstools/internal/health"
	"github.com/groovybits/ltntstools/internal/inspector"
	"github.com/groovybits/ltntstools/internal/logger"
	"github.com/groovybits/ltntstools/internal/metrics"
	"github.com/groovybits/ltntstools/internal/pidstate"
	"github.com/groovybits/ltntstools/internal/progress"
	"github.com/groovybits/ltntstools/internal/reorder"
	"github.com/groovybits/ltntstools/internal/reporter"
	"github.com/groovybits/ltntstools/internal/source"
	"github.com/groovybits/ltntstools/pkg/version"
)

// repeatFlag counts how many times its flag was passed, the idiomatic
// way to implement repeatable -d/-p/-L flags with
// the standard flag package.
type repeatFlag int

func (r *repeatFlag) String() string   { return strconv.Itoa(int(*r)) }
func (r *repeatFlag) Set(string) error { *r++; return nil }
func (r *repeatFlag) IsBoolFlag() bool { return true }

func main() {
	var (
		configPath    string
		showVersion   bool
		inputURL      string
		anchorStr     string
		dumpHex       repeatFlag
		enableSCR     bool
		scrPIDStr     string
		enablePTS     repeatFlag
		driftMs       int64
		reorderPTS    bool
		progressUI    bool
		suppressWarn  bool
		trendVerbose  repeatFlag
		pesDelivery   bool
		stopAfterSecs int64
		trendCapacity int
		reportPeriod  int64
	)

	flag.StringVar(&configPath, "config", "", "path to an optional YAML configuration file")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.StringVar(&inputURL, "i", "", "packet source: a file path or udp://host:port?rtp=1 (required)")
	flag.StringVar(&anchorStr, "T", "", "initial wallclock anchor, YYYYMMDDHHMMSS")
	flag.Var(&dumpHex, "d", "hex dump packets (repeat for full 188-byte dump)")
	flag.BoolVar(&enableSCR, "s", false, "enable SCR/PCR statistics")
	flag.StringVar(&scrPIDStr, "S", "0x31", "SCR PID, as 0xNNNN")
	flag.Var(&enablePTS, "p", "enable PTS/DTS statistics")
	flag.Int64Var(&driftMs, "D", 700, "drift threshold in milliseconds")
	flag.BoolVar(&reorderPTS, "R", false, "buffer and reorder PTS into display order")
	flag.BoolVar(&progressUI, "P", false, "show a progress indicator instead of report lines on stdout")
	flag.BoolVar(&suppressWarn, "Z", false, "suppress timing-conformance warnings")
	flag.Var(&trendVerbose, "L", "print periodic trend reports (repeat for CSV export, repeat again to dump samples)")
	flag.BoolVar(&pesDelivery, "Y", false, "report PES unit delivery timing")
	flag.Int64Var(&stopAfterSecs, "t", 0, "stop after N seconds (0 means run until EOF or signal)")
	flag.IntVar(&trendCapacity, "A", 216000, "trend window size in samples (minimum 60)")
	flag.Int64Var(&reportPeriod, "B", 15, "trend report period in seconds (minimum 5)")
	flag.Parse()

	if showVersion {
		fmt.Println(version.GetInfo().String())
		return
	}
	if inputURL == "" {
		fmt.Fprintln(os.Stderr, "tsinspect: -i is required")
		os.Exit(1)
	}
	if trendCapacity < 60 {
		trendCapacity = 60
	}
	if reportPeriod < 5 {
		reportPeriod = 5
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tsinspect: loading config: %v\n", err)
		os.Exit(1)
	}

	rawLog, err := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "tsinspect: initializing logger: %v\n", err)
		os.Exit(1)
	}
	runID := uuid.New().String()
	log := logger.NewLogrusAdapter(logger.WithComponent(rawLog, "inspector")).WithField("run_id", runID)

	scrPID, err := parsePID(scrPIDStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tsinspect: -S: %v\n", err)
		os.Exit(1)
	}

	var anchor time.Time
	if anchorStr != "" {
		anchor, err = time.Parse("20060102150405", anchorStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "tsinspect: -T: %v\n", err)
			os.Exit(1)
		}
	}

	opts := inspector.Options{
		SCRPID:                    scrPID,
		MaxAllowableDriftMs:       driftMs,
		EnableConformanceWarnings: !suppressWarn,
		EnablePESDeliveryReport:   pesDelivery,
		ReorderPTS:                reorderPTS,
		TrendCapacity:             trendCapacity,
		DumpHexLevel:              int(dumpHex),
		EnableSCRStats:            enableSCR,
		EnablePTSStats:            int(enablePTS) > 0,
		InitialWallclock:          anchor,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithRequestID(ctx, runID)
	ctx = logger.WithLogger(ctx, logger.WithComponent(rawLog, "inspector").WithField("run_id", runID))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.WithField("signal", sig).Info("received shutdown signal")
		cancel()
	}()

	if stopAfterSecs > 0 {
		go func() {
			select {
			case <-time.After(time.Duration(stopAfterSecs) * time.Second):
				log.WithField("seconds", stopAfterSecs).Info("stop duration elapsed")
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	heartbeat := health.NewIngestChecker(10 * time.Second)

	if cfg.Metrics.Enabled {
		manager := health.NewManager(rawLog)
		manager.Register(heartbeat)
		handler := health.NewHandler(manager)
		srv := metrics.NewServer(cfg.Metrics.Addr, cfg.Metrics.Path, handler, rawLog)
		go func() {
			if err := srv.Start(ctx); err != nil {
				log.WithError(err).Error("metrics server stopped")
			}
		}()
	}

	src, err := source.Open(inputURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tsinspect: opening source: %v\n", err)
		os.Exit(1)
	}
	defer src.Close()

	table := pidstate.NewTable()

	// When the progress UI owns the terminal, report lines move to
	// stderr so the two never interleave on the same stream.
	out := os.Stdout
	if progressUI {
		out = os.Stderr
	}
	ins := inspector.New(opts, table, out, log, heartbeat)

	rep := reporter.New(table, time.Duration(reportPeriod)*time.Second, int(trendVerbose), out, "")

	reporterDone := make(chan struct{})
	go func() {
		defer close(reporterDone)
		if int(trendVerbose) > 0 {
			rep.Run(ctx)
		} else {
			<-ctx.Done()
		}
	}()

	if progressUI {
		totalSize := fileSizeOf(inputURL)
		go func() {
			_ = progress.Run(ctx, inputURL, func() progress.Snapshot {
				return progress.Snapshot{
					Offset:           ins.Offset(),
					TotalSize:        totalSize,
					PacketsProcessed: ins.PacketsSeen(),
					CCErrors:         ins.CCErrors(),
					ActivePIDs:       ins.ActivePIDs(),
				}
			})
		}()
	}

	runErr := ins.Run(ctx, src)

	cancel()
	<-reporterDone

	fmt.Fprintln(out, "Dumping final pid report(s)")
	reporter.PidReport(out, table, ins.PacketsSeen())
	if int(trendVerbose) > 0 {
		fmt.Fprintln(out, "Dumping final trend report(s)")
		rep.DumpAll()
	}

	if opts.ReorderPTS {
		reorder.DumpAll(out, table)
	}

	if runErr != nil {
		if appErr, ok := runErr.(*apperrors.AppError); ok {
			log.WithError(appErr).Error("ingest stopped on a source error")
		} else {
			log.WithError(runErr).Error("ingest stopped with an error")
		}
		os.Exit(1)
	}
}

func parsePID(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid PID %q: %w", s, err)
	}
	return uint16(v), nil
}

func fileSizeOf(path string) int64 {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return 0
	}
	return info.Size()
}
