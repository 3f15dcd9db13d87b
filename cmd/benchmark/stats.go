package main

import (
	"encoding/json"
	"net/http"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/punchamoorthee/rentledger/internal/logging"
)

type stats struct {
	mu        sync.Mutex
	ok        uint64
	notFound  uint64
	conflicts uint64 // retries exhausted in the store
	errors    uint64
	latencies []time.Duration
}

func (s *stats) observe(code int, err error, took time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err != nil:
		s.errors++
		return
	case code == http.StatusOK:
		s.ok++
	case code == http.StatusNotFound:
		s.notFound++
	case code == http.StatusConflict:
		s.conflicts++
	default:
		s.errors++
	}
	s.latencies = append(s.latencies, took)
}

type result struct {
	Workload        string  `json:"workload"`
	DurationSec     float64 `json:"duration_sec"`
	TotalRequests   uint64  `json:"total_requests"`
	ThroughputTPS   float64 `json:"throughput_tps"`
	Success         uint64  `json:"success"`
	NotFound        uint64  `json:"not_found"`
	Conflicts       uint64  `json:"conflicts"`
	ConflictRatePct float64 `json:"conflict_rate_pct"`
	Errors          uint64  `json:"errors"`
	P50Ms           float64 `json:"p50_ms"`
	P99Ms           float64 `json:"p99_ms"`
}

func (s *stats) result(workload string, d time.Duration) result {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.ok + s.notFound + s.conflicts + s.errors
	r := result{
		Workload:      workload,
		DurationSec:   d.Seconds(),
		TotalRequests: total,
		ThroughputTPS: float64(total) / d.Seconds(),
		Success:       s.ok,
		NotFound:      s.notFound,
		Conflicts:     s.conflicts,
		Errors:        s.errors,
	}
	if total > 0 {
		r.ConflictRatePct = float64(s.conflicts) / float64(total) * 100
	}
	lat := slices.Clone(s.latencies)
	slices.Sort(lat)
	r.P50Ms = percentile(lat, 0.50)
	r.P99Ms = percentile(lat, 0.99)
	return r
}

// percentile expects sorted input and returns milliseconds.
func percentile(sorted []time.Duration, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	i := int(q * float64(len(sorted)-1))
	return float64(sorted[i].Microseconds()) / 1000
}

func (r result) report(path string) error {
	logging.Logger.WithFields(logrus.Fields{
		"requests":  humanize.Comma(int64(r.TotalRequests)),
		"tps":       humanize.FtoaWithDigits(r.ThroughputTPS, 1),
		"conflicts": humanize.FtoaWithDigits(r.ConflictRatePct, 2) + "%",
		"p99_ms":    r.P99Ms,
	}).Info("Benchmark finished")

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		logging.Logger.WithError(err).Warn("Unable to save results")
		return nil
	}
	defer file.Close()
	return json.NewEncoder(file).Encode(r)
}
