package intent

import (
	"context"
	"fmt"

	"github.com/chraibi/ZoteroTidy/internal/record"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Writer is the set of mutating remote calls the executor needs.
type Writer interface {
	Update(ctx context.Context, r record.Record) error
	Delete(ctx context.Context, r record.Record) error
	AddTags(ctx context.Context, r record.Record, tags []string) (bool, error)
	RemoveTagGlobally(ctx context.Context, tag string) error
}

// Checker gates a mutation run, typically a guard.Guard.
type Checker interface {
	Check(ctx context.Context) error
}

// Executor applies intents against a remote library.
type Executor struct {
	writer  Writer
	checker Checker
	logger  zerolog.Logger
	dryRun  bool
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithLogger sets the logger used to audit each applied intent.
func WithLogger(l zerolog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithDryRun makes Apply report what it would do without contacting the writer.
func WithDryRun(dryRun bool) ExecutorOption {
	return func(e *Executor) {
		e.dryRun = dryRun
	}
}

// NewExecutor creates an executor that checks checker before any write.
func NewExecutor(w Writer, checker Checker, opts ...ExecutorOption) *Executor {
	e := &Executor{
		writer:  w,
		checker: checker,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result describes the outcome of an Apply run.
type Result struct {
	RunID   string   `json:"run_id" yaml:"run_id"`
	DryRun  bool     `json:"dry_run" yaml:"dry_run"`
	Planned []Intent `json:"planned" yaml:"planned"`
	Applied int      `json:"applied" yaml:"applied"`
	Skipped int      `json:"skipped" yaml:"skipped"` // tag intents with nothing new to add
	Failed  *Intent  `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// Changed reports whether the run modified (or, in dry-run, would modify) the library.
func (r Result) Changed() bool {
	if r.DryRun {
		return len(r.Planned) > 0
	}
	return r.Applied > 0
}

// Apply runs intents in phase order. The checker is consulted once, right
// before the first write; a stale library aborts the run with no writes.
// The first failing write halts the run and is returned unmodified.
func (e *Executor) Apply(ctx context.Context, intents []Intent) (Result, error) {
	ordered := Ordered(intents)
	res := Result{
		RunID:   uuid.NewString(),
		DryRun:  e.dryRun,
		Planned: ordered,
	}
	log := e.logger.With().Str("run", res.RunID).Logger()

	if len(ordered) == 0 {
		log.Debug().Msg("nothing to apply")
		return res, nil
	}

	if e.dryRun {
		for _, in := range ordered {
			log.Info().Str("op", in.Op.String()).Str("key", in.Key).Msg("dry-run: " + in.String())
		}
		return res, nil
	}

	if e.checker != nil {
		if err := e.checker.Check(ctx); err != nil {
			return res, err
		}
	}

	for i := range ordered {
		in := ordered[i]
		changed, err := e.apply(ctx, in)
		if err != nil {
			res.Failed = &ordered[i]
			log.Error().Err(err).Str("op", in.Op.String()).Str("key", in.Key).Msg("write failed, halting")
			return res, fmt.Errorf("%s: %w", in, err)
		}
		if !changed {
			res.Skipped++
			continue
		}
		res.Applied++
		log.Info().Str("op", in.Op.String()).Str("key", in.Key).Str("title", in.Title).Msg(in.String())
	}

	return res, nil
}

func (e *Executor) apply(ctx context.Context, in Intent) (bool, error) {
	switch in.Op {
	case OpReparent:
		child := in.Record
		child.ParentKey = in.NewParent
		return true, e.writer.Update(ctx, child)
	case OpTag:
		return e.writer.AddTags(ctx, in.Record, in.Tags)
	case OpDelete:
		return true, e.writer.Delete(ctx, in.Record)
	case OpRemoveTag:
		return true, e.writer.RemoveTagGlobally(ctx, in.Tag)
	default:
		return false, fmt.Errorf("unsupported op %v", in.Op)
	}
}
