package steam

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"pzwatch/internal/telemetry"
)

// FetcherConfig bounds the Fetcher's batching and retry behavior.
type FetcherConfig struct {
	// BatchSize is the maximum number of ids per API request.
	BatchSize int
	// MaxAttempts is the total number of tries per batch, first attempt
	// included. On exhaustion the batch degrades to StatusTransient instead of
	// failing the run.
	MaxAttempts int
	// BatchPause is the idle gap between consecutive batch requests.
	BatchPause time.Duration
}

type Fetcher struct {
	backend Backend
	cfg     FetcherConfig
	log     *slog.Logger
	tel     *telemetry.Logger
	runID   string

	// retry pacing, overridable by tests
	initialInterval time.Duration
	maxInterval     time.Duration
}

func NewFetcher(backend Backend, cfg FetcherConfig, log *slog.Logger, tel *telemetry.Logger, runID string) *Fetcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Fetcher{
		backend:         backend,
		cfg:             cfg,
		log:             log,
		tel:             tel,
		runID:           runID,
		initialInterval: time.Second,
		maxInterval:     30 * time.Second,
	}
}

// Fetch covers every input id: ok, not-found, or transient after retries ran
// out. Only an outright API rejection (ErrUnauthorized) or a dead context
// fails the fetch as a whole.
func (f *Fetcher) Fetch(ctx context.Context, ids []string) (FetchResult, error) {
	out := make(FetchResult, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	f.log.Info("fetching workshop metadata", "backend", f.backend.Name(), "mods", len(ids), "batch_size", f.cfg.BatchSize)

	for i := 0; i < len(ids); i += f.cfg.BatchSize {
		end := min(i+f.cfg.BatchSize, len(ids))
		batch := ids[i:end]
		batchNo := i/f.cfg.BatchSize + 1

		res, err := f.fetchBatch(ctx, batch)
		if err != nil {
			if errors.Is(err, ErrUnauthorized) || ctx.Err() != nil {
				return nil, err
			}
			f.log.Warn("batch failed after all attempts, marking mods transient",
				"batch", batchNo, "mods", len(batch), "err", err)
			f.tel.Log(telemetry.Record{RunID: f.runID, Type: "fetch_batch", Backend: f.backend.Name(), Batch: batchNo, Count: len(batch), Message: "exhausted: " + err.Error()})
			for _, id := range batch {
				out[id] = Result{Status: StatusTransient}
			}
		} else {
			f.tel.Log(telemetry.Record{RunID: f.runID, Type: "fetch_batch", Backend: f.backend.Name(), Batch: batchNo, Count: len(batch)})
			for id, r := range res {
				out[id] = r
			}
		}

		if end < len(ids) && f.cfg.BatchPause > 0 {
			if err := sleepCtx(ctx, f.cfg.BatchPause); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (f *Fetcher) fetchBatch(ctx context.Context, batch []string) (FetchResult, error) {
	var res FetchResult
	op := func() error {
		r, err := f.backend.FetchBatch(ctx, batch)
		if err != nil {
			if errors.Is(err, ErrUnauthorized) {
				return backoff.Permanent(err)
			}
			f.log.Warn("batch attempt failed", "backend", f.backend.Name(), "err", err)
			return err
		}
		res = r
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = f.initialInterval
	eb.MaxInterval = f.maxInterval
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(f.cfg.MaxAttempts-1)), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return res, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
