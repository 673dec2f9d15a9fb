package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/smsflow/internal/common"
	"github.com/Veraticus/smsflow/internal/config"
	"github.com/Veraticus/smsflow/internal/engine"
	"github.com/Veraticus/smsflow/internal/metrics"
	"github.com/Veraticus/smsflow/internal/service"
	"github.com/Veraticus/smsflow/internal/storage"
)

// app bundles what a command needs to talk to the database.
type app struct {
	store   *storage.SQLiteStorage
	metrics *metrics.Metrics
	engine  *engine.Engine
}

// initStorage opens the configured database and runs migrations.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	var dbPath string
	if appConfig != nil {
		dbPath = appConfig.Database.Path
	} else {
		resolved, err := config.DatabasePath(config.DefaultDatabasePath)
		if err != nil {
			return nil, err
		}
		dbPath = resolved
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// openApp opens storage and builds an engine with metrics and, for file databases,
// automatic checkpoints.
func openApp(ctx context.Context, opts ...engine.Option) (*app, error) {
	store, err := initStorage(ctx)
	if err != nil {
		return nil, err
	}
	return newApp(store, opts...), nil
}

func newApp(store *storage.SQLiteStorage, opts ...engine.Option) *app {
	m := metrics.New()

	engineOpts := []engine.Option{engine.WithRecorder(m)}
	if store.Path() != storage.MemoryPath {
		manager, err := store.NewCheckpointManager()
		if err != nil {
			slog.Warn("Automatic checkpoints disabled", "error", err)
		} else {
			engineOpts = append(engineOpts, engine.WithCheckpointer(manager))
		}
	}
	engineOpts = append(engineOpts, opts...)

	cfg := engine.DefaultConfig()
	if appConfig != nil {
		cfg.Linking = appConfig.Linking.Detector()
		cfg.Workers = appConfig.Import.Workers
	}

	return &app{
		store:   store,
		metrics: m,
		engine:  engine.New(store, cfg, engineOpts...),
	}
}

// Close writes the metrics file when one was requested and closes the database.
func (a *app) Close() {
	if metricsFile != "" {
		if err := a.metrics.WriteTextfile(metricsFile); err != nil {
			common.LogError(err, "Failed to write metrics file", common.Fields{"path": metricsFile})
		}
	}
	if err := a.store.Close(); err != nil {
		common.LogError(err, "Failed to close database", nil)
	}
}

// resolveID accepts a full transaction id or a unique prefix of one.
func resolveID(ctx context.Context, store service.TransactionStore, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", common.NewUserError("a transaction id is required", common.ErrNotFound)
	}

	txn, err := store.GetByID(ctx, ref)
	if err == nil {
		return txn.ID, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return "", err
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		return "", err
	}
	var matches []string
	for _, t := range all {
		if strings.HasPrefix(t.ID, ref) {
			matches = append(matches, t.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", common.NewUserError(fmt.Sprintf("no transaction matches %q", ref), common.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", common.NewUserError(
			fmt.Sprintf("%q matches %d transactions, use a longer prefix", ref, len(matches)), nil)
	}
}

const dateLayout = "2006-01-02"

// timeNow is replaced in tests.
var timeNow = time.Now

// parseDateRange parses --from/--to values. Empty values default to the current
// month. The end date is inclusive.
func parseDateRange(from, to string, now time.Time) (time.Time, time.Time, error) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 1, 0)

	if from != "" {
		t, err := time.ParseInLocation(dateLayout, from, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, common.NewUserError("invalid --from date, use YYYY-MM-DD", err)
		}
		start = t
	}
	if to != "" {
		t, err := time.ParseInLocation(dateLayout, to, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, common.NewUserError("invalid --to date, use YYYY-MM-DD", err)
		}
		end = t.AddDate(0, 0, 1)
	}
	end = end.Add(-time.Millisecond)

	if end.Before(start) {
		return time.Time{}, time.Time{}, common.NewUserError("--to is before --from", nil)
	}
	return start, end, nil
}

// confirm asks a yes/no question. Anything but y or yes is a no.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	if _, err := fmt.Fprintf(out, "%s [y/N]: ", question); err != nil {
		return false, err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read input: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func formatRelativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}
