// Package pipeline orchestrates batch application: parse, resolve, chunk,
// validate, commit, notify. A batch either applies in full or is rejected;
// rejected batches regenerate through the producer within a bounded retry
// budget.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"archloom/loom/internal/chunk"
	"archloom/loom/internal/diff"
	"archloom/loom/internal/producer"
	"archloom/loom/internal/resolve"
	"archloom/loom/internal/rules"
	"archloom/loom/internal/store"
	"archloom/loom/internal/track"
)

// Phase names the pipeline stage a batch is in, for logs and error context.
type Phase string

const (
	PhaseGenerating Phase = "generating"
	PhaseParsing    Phase = "parsing"
	PhaseResolving  Phase = "resolving"
	PhaseChunking   Phase = "chunking"
	PhaseValidating Phase = "validating"
	PhaseCommitting Phase = "committing"
	PhaseNotifying  Phase = "notifying"
)

// Outcome is the terminal state of one Apply call.
type Outcome string

const (
	OutcomeApplied  Outcome = "applied"
	OutcomeRejected Outcome = "rejected"
)

// DefaultMaxRetries bounds producer regeneration: a batch gets one initial
// attempt plus this many retries.
const DefaultMaxRetries = 2

// Config tunes a pipeline. Zero values take defaults.
type Config struct {
	// MaxRetries is the regeneration budget after the initial attempt.
	// Negative disables retries entirely.
	MaxRetries int

	Rules  *rules.Registry
	Logger *zap.Logger
}

// Result reports the terminal state of one Apply call.
type Result struct {
	Outcome  Outcome
	Attempts int
	Seq      uint64

	// Records covers the applied batch only, baseline taken at attempt
	// start. Empty when rejected.
	Records []track.ChangeRecord

	// Violations carries warnings from the applied attempt, or the error
	// violations of the final rejected attempt.
	Violations []rules.Violation

	// RejectReason is the semantic failure of the last attempt when the
	// retry budget ran out.
	RejectReason error
}

// Pipeline applies producer batches to one graph store. Commits are
// serialized per pipeline so concurrent Apply calls cannot interleave chunks.
type Pipeline struct {
	store  store.Store
	rules  *rules.Registry
	logger *zap.Logger

	maxRetries int

	mu        sync.Mutex // serializes resolve-through-notify per graph
	seq       uint64
	observers []Observer
}

// New builds a pipeline over the given store.
func New(st store.Store, cfg Config) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Rules == nil {
		cfg.Rules = rules.NewRegistry(rules.DefaultTable())
	}
	retries := cfg.MaxRetries
	if retries == 0 {
		retries = DefaultMaxRetries
	}
	if retries < 0 {
		retries = 0
	}
	return &Pipeline{
		store:      st,
		rules:      cfg.Rules,
		logger:     cfg.Logger,
		maxRetries: retries,
	}
}

// Subscribe registers an observer for applied batches.
func (p *Pipeline) Subscribe(obs Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, obs)
}

// Apply drives the full loop: generate a diff from the prompt, run it through
// the pipeline, and on semantic failure re-prompt with the aggregated
// feedback, up to the retry budget. Infrastructure failures abort
// immediately; a half-applied batch is never retried blindly.
func (p *Pipeline) Apply(ctx context.Context, prompt string, prod producer.Producer) (*Result, error) {
	attempts := 1 + p.maxRetries
	current := prompt

	var lastErr error
	var lastViolations []rules.Violation

	for attempt := 1; attempt <= attempts; attempt++ {
		p.logger.Info("generating diff",
			zap.Int("attempt", attempt),
			zap.Int("budget", attempts))

		text, err := prod.Generate(ctx, current)
		if err != nil {
			return nil, &InfrastructureError{Phase: PhaseGenerating, Err: fmt.Errorf("producer: %w", err)}
		}

		res, violations, err := p.applyOnce(ctx, text)
		if err == nil {
			res.Attempts = attempt
			return res, nil
		}
		if !semanticFailure(err) {
			return nil, err
		}

		lastErr = err
		lastViolations = violations
		p.logger.Warn("batch rejected",
			zap.Int("attempt", attempt),
			zap.Error(err))
		current = prompt + "\n\n" + feedbackFor(err)
	}

	return &Result{
		Outcome:      OutcomeRejected,
		Attempts:     attempts,
		Violations:   lastViolations,
		RejectReason: lastErr,
	}, nil
}

// ApplyDiff runs one already-written diff through the pipeline, with no
// producer and no retry. Semantic failures come back as the typed errors of
// the failing phase.
func (p *Pipeline) ApplyDiff(ctx context.Context, text string) (*Result, error) {
	res, _, err := p.applyOnce(ctx, text)
	if err != nil {
		return nil, err
	}
	res.Attempts = 1
	return res, nil
}

// Check runs the pure phases only: parse, resolve, chunk, validate. Nothing
// commits, so it is safe against a live graph and is what sandboxed callers
// use to test a diff. All violations are returned, warnings included.
func (p *Pipeline) Check(ctx context.Context, text string) ([]rules.Violation, error) {
	ops, err := diff.Parse(text)
	if err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return nil, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	batch, err := resolve.Resolve(ops, p.store)
	if err != nil {
		return nil, classifyResolve(err)
	}
	chunks, err := chunk.Order(batch.Ops)
	if err != nil {
		return nil, err
	}
	snap, err := p.store.Snapshot(ctx)
	if err != nil {
		return nil, &InfrastructureError{Phase: PhaseValidating, Err: err}
	}
	violations, err := p.rules.Check(chunk.Flatten(chunks), snap)
	if err != nil {
		return violations, err
	}
	return violations, nil
}

// applyOnce runs one diff through every phase. On success the returned
// violations are the warnings of the accepted batch; on semantic failure they
// are the rejecting violations, for feedback.
func (p *Pipeline) applyOnce(ctx context.Context, text string) (*Result, []rules.Violation, error) {
	ops, err := diff.Parse(text)
	if err != nil {
		return nil, nil, err
	}
	if len(ops) == 0 {
		return nil, nil, &diff.ParseError{Line: 1, Text: text, Why: "diff contains no operations"}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	batch, err := resolve.Resolve(ops, p.store)
	if err != nil {
		return nil, nil, classifyResolve(err)
	}

	chunks, err := chunk.Order(batch.Ops)
	if err != nil {
		return nil, nil, err
	}

	before, err := p.store.Snapshot(ctx)
	if err != nil {
		return nil, nil, &InfrastructureError{Phase: PhaseValidating, Err: err}
	}

	violations, err := p.rules.Check(chunk.Flatten(chunks), before)
	if err != nil {
		return nil, violations, err
	}

	for i, c := range chunks {
		if err := p.store.CommitChunk(ctx, c, batch); err != nil {
			p.logger.Error("chunk commit failed",
				zap.Int("chunk", i+1),
				zap.Int("chunks", len(chunks)),
				zap.Error(err))
			return nil, nil, &InfrastructureError{Phase: PhaseCommitting, Err: err}
		}
		p.logger.Debug("chunk committed",
			zap.Int("chunk", i+1),
			zap.Int("chunks", len(chunks)),
			zap.Int("ops", len(c)))
	}

	after, err := p.store.Snapshot(ctx)
	if err != nil {
		return nil, nil, &InfrastructureError{Phase: PhaseNotifying, Err: err}
	}

	t := track.New()
	t.CaptureBaseline(before)
	var records []track.ChangeRecord
	for _, rec := range t.Changes(after) {
		if rec.Status != track.StatusUnchanged {
			records = append(records, rec)
		}
	}

	p.seq++
	seq := p.seq
	for _, obs := range p.observers {
		obs.OnCommitted(records, seq)
	}

	return &Result{
		Outcome:    OutcomeApplied,
		Seq:        seq,
		Records:    records,
		Violations: violations,
	}, violations, nil
}
