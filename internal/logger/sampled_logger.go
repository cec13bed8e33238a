package logger

import (
	"sync"
	"sync/atomic"
	"time"
)

// SampledLogger wraps a Logger with frequency-aware sampling for a set
// of named categories, so a pathological stream (a misaligned UDP
// source dropping every packet, a PID in a continuous CC-error burst,
// an SCR updating at line rate) cannot flood stderr with one ambient
// debug line per packet. It is never used for the stable-schema report
// lines themselves, only for the structured ambient log lines that
// accompany them.
type SampledLogger struct {
	base          Logger
	samplers      map[string]*logSampler
	samplersMutex sync.RWMutex
}

type logSampler struct {
	maxFrequency   time.Duration
	burstAllowance int
	sampleRate     float64

	lastLogTime  int64
	messageCount int64
	burstCounter int64

	totalMessages   int64
	sampledMessages int64
	droppedMessages int64
}

// NewSampledLogger creates a SampledLogger with no categories configured;
// any category without a WithSampler call always logs.
func NewSampledLogger(base Logger) *SampledLogger {
	return &SampledLogger{base: base, samplers: make(map[string]*logSampler)}
}

// WithSampler configures sampling for category: after burstAllowance
// messages within maxFrequency, subsequent messages are logged at
// sampleRate (0 disables further logging until maxFrequency elapses).
func (s *SampledLogger) WithSampler(category string, maxFrequency time.Duration, burstAllowance int, sampleRate float64) *SampledLogger {
	s.samplersMutex.Lock()
	defer s.samplersMutex.Unlock()
	s.samplers[category] = &logSampler{
		maxFrequency:   maxFrequency,
		burstAllowance: burstAllowance,
		sampleRate:     sampleRate,
	}
	return s
}

func (s *SampledLogger) shouldLog(category string) bool {
	s.samplersMutex.RLock()
	sampler, ok := s.samplers[category]
	s.samplersMutex.RUnlock()
	if !ok {
		return true
	}

	now := time.Now().UnixNano()
	atomic.AddInt64(&sampler.totalMessages, 1)

	if now-atomic.LoadInt64(&sampler.lastLogTime) < sampler.maxFrequency.Nanoseconds() {
		if atomic.LoadInt64(&sampler.burstCounter) < int64(sampler.burstAllowance) {
			atomic.AddInt64(&sampler.burstCounter, 1)
			atomic.StoreInt64(&sampler.lastLogTime, now)
			atomic.AddInt64(&sampler.sampledMessages, 1)
			return true
		}
		if sampler.sampleRate <= 0 {
			atomic.AddInt64(&sampler.droppedMessages, 1)
			return false
		}
		count := atomic.AddInt64(&sampler.messageCount, 1)
		if float64(count)*sampler.sampleRate >= 1.0 {
			atomic.StoreInt64(&sampler.messageCount, 0)
			atomic.StoreInt64(&sampler.lastLogTime, now)
			atomic.AddInt64(&sampler.sampledMessages, 1)
			return true
		}
		atomic.AddInt64(&sampler.droppedMessages, 1)
		return false
	}

	atomic.StoreInt64(&sampler.burstCounter, 1)
	atomic.StoreInt64(&sampler.lastLogTime, now)
	atomic.AddInt64(&sampler.sampledMessages, 1)
	return true
}

// DebugWithCategory logs msg at debug level, subject to category's sampler.
func (s *SampledLogger) DebugWithCategory(category, msg string, fields map[string]interface{}) {
	if !s.shouldLog(category) {
		return
	}
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["category"] = category
	s.base.WithFields(fields).Debug(msg)
}

// WarnWithCategory logs msg at warn level, subject to category's sampler.
func (s *SampledLogger) WarnWithCategory(category, msg string, fields map[string]interface{}) {
	if !s.shouldLog(category) {
		return
	}
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["category"] = category
	s.base.WithFields(fields).Warn(msg)
}

// Categories sampled by NewIngestSampledLogger.
const (
	// CategoryPacketTrace covers per-packet debug trace lines: unsynced
	// packet drops, skipped/unparsable PES headers.
	CategoryPacketTrace = "packet_trace"
	// CategoryCCErrorBurst covers the ambient debug line accompanying
	// each continuity-counter error, distinct from the wire-contract
	// "!CC Error" report line, which is never sampled.
	CategoryCCErrorBurst = "cc_error_burst"
	// CategorySCRUpdateSpam covers the ambient debug line accompanying
	// each SCR update on a high-bitrate or multi-PCR-PID stream.
	CategorySCRUpdateSpam = "scr_update_spam"
)

// NewIngestSampledLogger builds the SampledLogger the inspector pipeline
// uses for its high-frequency ambient categories: packet-level trace
// logging, continuity-counter error bursts, and SCR update spam. None
// of these sampling rules touch the stable-schema report lines, which
// are always written in full.
func NewIngestSampledLogger(base Logger) *SampledLogger {
	return NewSampledLogger(base).
		WithSampler(CategoryPacketTrace, 200*time.Millisecond, 5, 0.05).
		WithSampler(CategoryCCErrorBurst, 500*time.Millisecond, 3, 0.1).
		WithSampler(CategorySCRUpdateSpam, 200*time.Millisecond, 2, 0.02)
}
