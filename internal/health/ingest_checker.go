package health

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// IngestChecker reports the ingest task as down if it has not touched
// its heartbeat within staleAfter. The inspector's ingest pipeline calls
// Heartbeat once per processed packet; nothing else needs to poll it.
type IngestChecker struct {
	lastBeatUnixNano int64
	staleAfter       time.Duration
}

// NewIngestChecker creates a checker considering the ingest task dead if
// it has not beaten in staleAfter.
func NewIngestChecker(staleAfter time.Duration) *IngestChecker {
	c := &IngestChecker{staleAfter: staleAfter}
	c.Heartbeat()
	return c
}

// Heartbeat records that the ingest task is still making progress.
func (c *IngestChecker) Heartbeat() {
	atomic.StoreInt64(&c.lastBeatUnixNano, time.Now().UnixNano())
}

// Name implements Checker.
func (c *IngestChecker) Name() string { return "ingest" }

// Check implements Checker.
func (c *IngestChecker) Check(ctx context.Context) error {
	last := time.Unix(0, atomic.LoadInt64(&c.lastBeatUnixNano))
	if age := time.Since(last); age > c.staleAfter {
		return fmt.Errorf("no packet processed in %s (stale after %s)", age.Round(time.Millisecond), c.staleAfter)
	}
	return nil
}
