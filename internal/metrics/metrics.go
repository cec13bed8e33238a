// Package metrics exposes the inspector and indexer's Prometheus
// counters and gauges.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PacketsTotal counts every TS packet the inspector has processed.
	PacketsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tsinspect_packets_total",
		Help: "Total TS packets processed by the inspector pipeline",
	})

	// CCErrorsTotal counts continuity-counter mismatches per PID.
	CCErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tsinspect_cc_errors_total",
		Help: "Total continuity counter errors observed, by PID",
	}, []string{"pid"})

	// SCRUpdatesTotal counts PCR/SCR observations per PID.
	SCRUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tsinspect_scr_updates_total",
		Help: "Total SCR/PCR observations, by PID",
	}, []string{"pid"})

	// PTSDriftMs reports the clock tracker's latest PTS drift, in
	// milliseconds, per PID.
	PTSDriftMs = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tsinspect_pts_drift_milliseconds",
		Help: "Latest PTS wallclock drift in milliseconds, by PID",
	}, []string{"pid"})

	// ConformanceWarningsTotal counts emitted timing-conformance
	// warnings, by kind (behind_pcr, pts_drift, scr_drift, dts_drift,
	// dts_scr_drift).
	ConformanceWarningsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tsinspect_conformance_warnings_total",
		Help: "Total timing-conformance warnings emitted, by kind",
	}, []string{"kind", "pid"})

	// IndexRecordsTotal counts PcrPosition records written during a
	// single index build.
	IndexRecordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tsindex_records_total",
		Help: "Total PcrPosition records written by the most recent index build",
	})

	// IndexBuildDurationSeconds observes wall-clock time spent building
	// a PCR index.
	IndexBuildDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tsindex_build_duration_seconds",
		Help:    "Time spent building a PCR index",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	// SliceBytesTotal counts bytes copied by the file slicer.
	SliceBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tsslice_bytes_total",
		Help: "Total bytes copied by the file slicer",
	})

	// SourceReconnectsTotal counts packet-source reconnect attempts.
	SourceReconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tsinspect_source_reconnects_total",
		Help: "Total packet source reconnect attempts",
	})
)
