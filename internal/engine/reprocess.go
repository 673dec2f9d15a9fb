package engine

import (
	"context"
	"fmt"
	"log/slog"
)

// ReprocessStats summarizes a relink pass.
type ReprocessStats struct {
	Processed int
	Linked    int
}

// Reprocess runs the detector over every record in chronological order. With reset,
// all link fields and learned patterns are cleared first.
func (e *Engine) Reprocess(ctx context.Context, reset bool) (*ReprocessStats, error) {
	if reset {
		if err := e.checkpoint(ctx, "relink"); err != nil {
			return nil, err
		}
		if err := e.store.ClearLinks(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear links: %w", err)
		}
		if err := e.store.DeleteAllPatterns(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear learned patterns: %w", err)
		}
	}

	all, err := e.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	linked, err := e.linkAll(ctx, all)
	stats := &ReprocessStats{Processed: len(all), Linked: linked}
	if err != nil {
		return stats, err
	}
	slog.Info("Reprocessed transactions", "processed", stats.Processed, "linked", stats.Linked, "reset", reset)
	return stats, nil
}

// Reset deletes every transaction record. With patterns, learned link patterns are
// deleted too. Overrides and self recipients are kept.
func (e *Engine) Reset(ctx context.Context, patterns bool) error {
	if err := e.checkpoint(ctx, "reset"); err != nil {
		return err
	}
	if err := e.store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to delete transactions: %w", err)
	}
	if patterns {
		if err := e.store.DeleteAllPatterns(ctx); err != nil {
			return fmt.Errorf("failed to delete learned patterns: %w", err)
		}
	}
	slog.Info("Reset database", "patterns", patterns)
	return nil
}
