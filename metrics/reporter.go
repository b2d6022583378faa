// Package metrics wires the two metrics libraries the teacher's
// dependency set pulls in: github.com/VictoriaMetrics/metrics for the
// counters pushed to a local agent, and github.com/rcrowley/go-metrics
// for per-operation latency histograms kept in-process. It is grounded
// on the teacher's rpc/transport/http client for the "plain net/http
// POST on an interval" push style.
package metrics

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
	gometrics "github.com/rcrowley/go-metrics"

	"github.com/distkv-io/partikv/internal/logging"
)

const defaultPushAddr = "http://127.0.0.1:1988/metrics/job/partikv"

// Reporter collects per-call counters and latencies and, if enabled,
// periodically pushes them to a local metrics agent.
type Reporter struct {
	enabled  bool
	tags     string
	interval time.Duration
	pushAddr string

	set      *metrics.Set
	timers   gometrics.Registry
	client   *http.Client
	stopCh   chan struct{}
}

// New creates a Reporter. Counters and latencies are always recorded
// in-process; enabled only gates whether Start actually pushes them to
// a local agent.
func New(enabled bool, tags string, interval time.Duration) *Reporter {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Reporter{
		enabled:  enabled,
		tags:     tags,
		interval: interval,
		pushAddr: defaultPushAddr,
		set:      metrics.NewSet(),
		timers:   gometrics.NewRegistry(),
		client:   &http.Client{Timeout: 5 * time.Second},
		stopCh:   make(chan struct{}),
	}
}

// IncrRequests increments the per-opcode request counter.
func (r *Reporter) IncrRequests(opName string) {
	r.set.GetOrCreateCounter(fmt.Sprintf(`partikv_requests_total{op=%q}`, opName)).Inc()
}

// IncrErrors increments the per-opcode, per-kind error counter.
func (r *Reporter) IncrErrors(opName, kind string) {
	r.set.GetOrCreateCounter(fmt.Sprintf(`partikv_errors_total{op=%q,kind=%q}`, opName, kind)).Inc()
}

// ObserveLatency records how long one opName operation took.
// router.Handler passes the time from the operation's start to its
// completion, across every attempt.
func (r *Reporter) ObserveLatency(opName string, d time.Duration) {
	r.timers.GetOrRegister("op."+opName, gometrics.NewTimer()).(gometrics.Timer).Update(d)
	r.set.GetOrCreateHistogram(fmt.Sprintf(`partikv_latency_seconds{op=%q}`, opName)).Update(d.Seconds())
}

// Start launches the periodic push loop if the reporter is enabled. It
// returns immediately; call Stop to terminate the loop.
func (r *Reporter) Start() {
	if !r.enabled {
		return
	}
	go r.pushLoop()
}

// Stop terminates the push loop. Safe to call even if Start was never
// called or the reporter is disabled.
func (r *Reporter) Stop() {
	if !r.enabled {
		return
	}
	close(r.stopCh)
}

func (r *Reporter) pushLoop() {
	log := logging.Get("partikv/metrics")
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := r.push(); err != nil {
				log.Warningf("metrics push failed: %v", err)
			}
		case <-r.stopCh:
			return
		}
	}
}

func (r *Reporter) push() error {
	var buf bytes.Buffer
	r.set.WritePrometheus(&buf)

	ctx, cancel := context.WithTimeout(context.Background(), r.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.pushAddr, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain; version=0.0.4")
	if r.tags != "" {
		req.Header.Set("X-Partikv-Tags", r.tags)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("metrics: push agent returned status %d", resp.StatusCode)
	}
	return nil
}
