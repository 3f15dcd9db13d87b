package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/punchamoorthee/rentledger/internal/domain"
	"github.com/punchamoorthee/rentledger/internal/logging"
	"github.com/punchamoorthee/rentledger/internal/models"
)

const (
	workloadUniform = "uniform"
	workloadHotspot = "hotspot"
	workloadMixed   = "mixed"
)

type options struct {
	baseURL  string
	workers  int
	duration time.Duration
	workload string
	out      string
}

func (o options) validate() error {
	switch o.workload {
	case workloadUniform, workloadHotspot, workloadMixed:
	default:
		return fmt.Errorf("unknown workload %q", o.workload)
	}
	if o.workers < 1 {
		return errors.New("--workers must be at least 1")
	}
	return nil
}

// target is one rent period; deposits go to its rental.
type target struct {
	RentalID  string
	PaymentID string
}

func run(ctx context.Context, opts options) error {
	log := logging.Logger
	client := &http.Client{Timeout: 5 * time.Second}

	targets, err := loadTargets(ctx, client, opts.baseURL)
	if err != nil {
		return fmt.Errorf("listing periods: %w", err)
	}
	if len(targets) == 0 {
		return errors.New("no periods to pay, run `rentctl seed` first")
	}
	log.WithFields(logrus.Fields{
		"workload": opts.workload,
		"workers":  opts.workers,
		"duration": opts.duration,
		"periods":  len(targets),
	}).Info("Starting benchmark")

	st := &stats{}
	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < opts.workers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			w := &worker{
				client:  client,
				baseURL: opts.baseURL,
				rng:     rand.New(rand.NewSource(seed)),
				pick:    picker(opts.workload, targets),
				mixed:   opts.workload == workloadMixed,
				stats:   st,
			}
			w.loop(ctx)
		}(start.UnixNano() + int64(i))
	}
	wg.Wait()

	res := st.result(opts.workload, time.Since(start))
	out := opts.out
	if out == "" {
		out = fmt.Sprintf("results_%s.json", opts.workload)
	}
	return res.report(out)
}

func loadTargets(ctx context.Context, client *http.Client, baseURL string) ([]target, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/clients", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET /api/clients: %s", resp.Status)
	}

	var clients []domain.Client
	if err := json.NewDecoder(resp.Body).Decode(&clients); err != nil {
		return nil, err
	}
	var targets []target
	for _, c := range clients {
		for _, r := range c.Rentals {
			for _, p := range r.Payments {
				targets = append(targets, target{RentalID: r.ID, PaymentID: p.ID})
			}
		}
	}
	return targets, nil
}

// picker returns the target chooser for a workload. Hotspot sends 90% of
// the traffic to one period so every write contends on the same client.
func picker(workload string, targets []target) func(*rand.Rand) target {
	if workload == workloadHotspot {
		return func(rng *rand.Rand) target {
			if rng.Float32() < 0.90 {
				return targets[0]
			}
			return targets[rng.Intn(len(targets))]
		}
	}
	return func(rng *rand.Rand) target { return targets[rng.Intn(len(targets))] }
}

type worker struct {
	client  *http.Client
	baseURL string
	rng     *rand.Rand
	pick    func(*rand.Rand) target
	mixed   bool
	stats   *stats
}

func (w *worker) loop(ctx context.Context) {
	one := decimal.NewFromInt(1)
	for ctx.Err() == nil {
		t := w.pick(w.rng)
		path, payload := "/api/payments", any(models.PaymentRequest{RentalID: t.RentalID, PaymentID: t.PaymentID, Amount: one})
		if w.mixed && w.rng.Intn(4) == 0 {
			path, payload = "/api/deposits", models.DepositRequest{RentalID: t.RentalID, Amount: one}
		}

		began := time.Now()
		code, err := w.post(ctx, path, payload)
		if ctx.Err() != nil {
			return
		}
		w.stats.observe(code, err, time.Since(began))
	}
}

func (w *worker) post(ctx context.Context, path string, payload any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
