package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Veraticus/smsflow/internal/common"
	"github.com/Veraticus/smsflow/internal/metrics"
	"github.com/Veraticus/smsflow/internal/model"
	"github.com/Veraticus/smsflow/internal/source"
	"golang.org/x/sync/errgroup"
)

// Import stages reported to Progress.
const (
	StageClassify = "Classifying messages"
	StageLink     = "Linking transfers"
)

// ImportStats summarizes one import run.
type ImportStats struct {
	Read       int
	Malformed  int
	Rejected   int
	Dropped    int
	Duplicates int
	Stored     int
	Ignored    int
	Linked     int
	Duration   time.Duration
}

type classified struct {
	txn      *model.Transaction
	rejected bool
}

// Import reads every message from src and imports it. Malformed rows are skipped.
func (e *Engine) Import(ctx context.Context, src source.Source) (*ImportStats, error) {
	malformed := 0
	msgs, err := source.ReadAll(ctx, src, func(err error) {
		malformed++
		slog.Warn("Skipping malformed message", "error", err)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	stats, err := e.ImportMessages(ctx, msgs)
	if stats != nil {
		stats.Malformed = malformed
	}
	return stats, err
}

// ImportMessages classifies msgs in parallel, stores the new transactions and links
// them in chronological order. Records committed before a cancellation are kept; the
// link state they were left in is repaired by Reprocess.
func (e *Engine) ImportMessages(ctx context.Context, msgs []model.RawMessage) (*ImportStats, error) {
	start := time.Now()
	stats := &ImportStats{Read: len(msgs)}

	results, err := e.classifyAll(ctx, msgs)
	if err != nil {
		return stats, err
	}

	candidates := make([]model.Transaction, 0, len(results))
	for _, r := range results {
		switch {
		case r.rejected:
			stats.Rejected++
		case r.txn == nil:
			stats.Dropped++
		default:
			candidates = append(candidates, *r.txn)
		}
	}

	stored, err := e.store.InsertAll(ctx, candidates)
	if err != nil {
		return stats, fmt.Errorf("failed to store transactions: %w", err)
	}
	stats.Stored = len(stored)
	stats.Duplicates = len(candidates) - len(stored)
	for _, t := range stored {
		if t.IsIgnored {
			stats.Ignored++
		}
	}

	e.record(metrics.OutcomeRejected, stats.Rejected)
	e.record(metrics.OutcomeDropped, stats.Dropped)
	e.record(metrics.OutcomeDuplicate, stats.Duplicates)
	e.record(metrics.OutcomeStored, stats.Stored)

	linked, err := e.linkAll(ctx, stored)
	stats.Linked = linked
	stats.Duration = time.Since(start)
	if err != nil {
		return stats, err
	}

	common.LogInfo("Import complete", common.Fields{
		"read":       stats.Read,
		"malformed":  stats.Malformed,
		"rejected":   stats.Rejected,
		"dropped":    stats.Dropped,
		"duplicates": stats.Duplicates,
		"stored":     stats.Stored,
		"linked":     stats.Linked,
		"duration":   stats.Duration,
	})
	return stats, nil
}

// classifyAll runs the pipeline over msgs with a bounded number of workers. Output
// order matches input order.
func (e *Engine) classifyAll(ctx context.Context, msgs []model.RawMessage) ([]classified, error) {
	results := make([]classified, len(msgs))

	e.progress.Start(StageClassify, len(msgs))
	defer e.progress.Finish()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range msgs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			defer e.progress.Add(1)

			res, err := e.pipeline.Process(gctx, msgs[i])
			if err != nil {
				return fmt.Errorf("failed to classify message from %s: %w", msgs[i].Sender, err)
			}
			if res.Rejected {
				results[i] = classified{rejected: true}
				return nil
			}
			if res.Txn == nil {
				return nil
			}

			txn, err := e.pipeline.ToTransaction(gctx, res.Txn)
			if err != nil {
				return err
			}
			results[i] = classified{txn: &txn}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// linkAll runs the detector over txns oldest first and returns how many decisions
// wrote a link.
func (e *Engine) linkAll(ctx context.Context, txns []model.Transaction) (int, error) {
	sortChronological(txns)

	e.progress.Start(StageLink, len(txns))
	defer e.progress.Finish()

	linked := 0
	for i := range txns {
		if err := ctx.Err(); err != nil {
			return linked, err
		}
		dec, err := e.detector.Process(ctx, &txns[i])
		if err != nil {
			return linked, fmt.Errorf("failed to link transaction %s: %w", txns[i].ID, err)
		}
		if dec.Applied() {
			linked++
		}
		e.progress.Add(1)
	}
	return linked, nil
}

func sortChronological(txns []model.Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		if !txns[i].Timestamp.Equal(txns[j].Timestamp) {
			return txns[i].Timestamp.Before(txns[j].Timestamp)
		}
		return txns[i].ID < txns[j].ID
	})
}
