// Package engine runs imports, user corrections and reprocessing over the
// classification pipeline, the link detector and the store.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/smsflow/internal/linking"
	"github.com/Veraticus/smsflow/internal/model"
	"github.com/Veraticus/smsflow/internal/pipeline"
	"github.com/Veraticus/smsflow/internal/service"
	"github.com/Veraticus/smsflow/internal/storage"
)

// Recorder receives message outcomes and applied link rules.
type Recorder interface {
	MessageN(outcome string, n int)
	LinkApplied(rule string)
}

// Checkpointer snapshots the database before destructive operations.
type Checkpointer interface {
	AutoCheckpoint(ctx context.Context, operation string) (*storage.CheckpointInfo, error)
}

// Progress reports the progress of a long running stage.
// Implementations must be safe for concurrent Add calls.
type Progress interface {
	Start(stage string, total int)
	Add(n int)
	Finish()
}

// Config holds engine settings.
type Config struct {
	Linking linking.Config
	Workers int
}

// DefaultConfig returns the default engine settings.
func DefaultConfig() Config {
	return Config{
		Linking: linking.DefaultConfig(),
		Workers: 4,
	}
}

// Engine orchestrates classification, persistence and linking.
type Engine struct {
	store       service.Storage
	pipeline    *pipeline.Pipeline
	detector    *linking.Detector
	recorder    Recorder
	checkpoints Checkpointer
	progress    Progress
	workers     int
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder reports outcomes and link rules to r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithCheckpointer enables automatic checkpoints before relink and reset.
func WithCheckpointer(c Checkpointer) Option {
	return func(e *Engine) { e.checkpoints = c }
}

// WithProgress reports stage progress to p.
func WithProgress(p Progress) Option {
	return func(e *Engine) { e.progress = p }
}

// New creates an engine over store.
func New(store service.Storage, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		pipeline: pipeline.New(store),
		workers:  max(cfg.Workers, 1),
		progress: noProgress{},
	}
	for _, opt := range opts {
		opt(e)
	}

	detectorOpts := []linking.Option{linking.WithSelfRecipients(store)}
	if e.recorder != nil {
		detectorOpts = append(detectorOpts, linking.WithRecorder(e.recorder))
	}
	e.detector = linking.NewDetector(store, store, cfg.Linking, detectorOpts...)
	return e
}

// Detector exposes the link detector for manual links.
func (e *Engine) Detector() *linking.Detector {
	return e.detector
}

// Explain runs one message through the pipeline without storing anything.
func (e *Engine) Explain(ctx context.Context, raw model.RawMessage) (pipeline.Result, error) {
	return e.pipeline.Process(ctx, raw)
}

func (e *Engine) record(outcome string, n int) {
	if e.recorder != nil {
		e.recorder.MessageN(outcome, n)
	}
}

func (e *Engine) checkpoint(ctx context.Context, operation string) error {
	if e.checkpoints == nil {
		return nil
	}
	info, err := e.checkpoints.AutoCheckpoint(ctx, operation)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint before %s: %w", operation, err)
	}
	slog.Info("Created checkpoint", "id", info.ID, "operation", operation)
	return nil
}

type noProgress struct{}

func (noProgress) Start(string, int) {}
func (noProgress) Add(int)           {}
func (noProgress) Finish()           {}
