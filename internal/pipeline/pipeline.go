// Package pipeline orchestrates a full Veracall run: structural QA, external
// context inference, evidence validation, parallel per-segment editing,
// transformation tracing, and alias suggestion.
//
// The orchestrator owns the degradation policy. Context inference is the
// only blocking external call of a run; when it fails after its bounded
// retries the run continues in context-free mode — deterministic transforms
// only, with the failure recorded as a QA warning — rather than aborting.
// The orchestrator also owns the all-or-nothing guarantee: the output
// document is constructed only after every segment has been edited, so a
// cancelled run never exposes partial edits.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/veracall/veracall/internal/contextinfer"
	"github.com/veracall/veracall/internal/editor"
	"github.com/veracall/veracall/internal/evidence"
	"github.com/veracall/veracall/internal/observe"
	"github.com/veracall/veracall/internal/qa"
	"github.com/veracall/veracall/internal/suggest"
	"github.com/veracall/veracall/pkg/types"
)

// ErrInvalidInput indicates the input document failed a transcript-level
// structural check (e.g., no messages at all). This is the only fatal input
// condition past parsing; everything else degrades to report entries.
var ErrInvalidInput = errors.New("pipeline: invalid input document")

// Result is the outcome of one pipeline run.
type Result struct {
	// Output is the completed output document.
	Output *types.OutputDocument

	// Degraded is true when context inference failed and the run fell back
	// to context-free editing.
	Degraded bool

	// Evidence summarises the evidence-validation pass. Nil in context-free
	// runs.
	Evidence *evidence.Report

	// CorrelationID is the trace ID of the run, for joining logs, traces and
	// the run archive. Empty when tracing is not initialised.
	CorrelationID string
}

// Option is a functional option for configuring an [Orchestrator].
type Option func(*Orchestrator)

// WithInferencer sets the context-inference collaborator. Without one the
// pipeline always runs context-free.
func WithInferencer(inf contextinfer.Inferencer) Option {
	return func(o *Orchestrator) {
		o.inferencer = inf
	}
}

// WithSuggester enables report-only alias suggestions.
func WithSuggester(s *suggest.Suggester) Option {
	return func(o *Orchestrator) {
		o.suggester = s
	}
}

// WithQAConfig overrides the QA thresholds. Default: qa.DefaultConfig().
func WithQAConfig(cfg qa.Config) Option {
	return func(o *Orchestrator) {
		o.qaCfg = cfg
	}
}

// WithEditorConfig overrides the editing confidence gates.
// Default: editor.DefaultConfig().
func WithEditorConfig(cfg editor.Config) Option {
	return func(o *Orchestrator) {
		o.editCfg = cfg
	}
}

// WithMetrics sets the metrics instance. Default: observe.DefaultMetrics().
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithWorkers bounds the per-segment editing concurrency.
// Default: runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// Orchestrator runs the full transcript pipeline. Safe for concurrent use;
// each Run owns its transcript exclusively.
type Orchestrator struct {
	inferencer contextinfer.Inferencer
	suggester  *suggest.Suggester
	qaCfg      qa.Config
	editCfg    editor.Config
	metrics    *observe.Metrics
	workers    int
}

// New returns an Orchestrator configured with the supplied options.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		qaCfg:   qa.DefaultConfig(),
		editCfg: editor.DefaultConfig(),
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}
	return o
}

// Run executes the pipeline on doc and returns the completed result, or an
// error when the input is structurally unusable or the run was cancelled.
// The input document is never modified.
func (o *Orchestrator) Run(ctx context.Context, doc *types.Document) (*Result, error) {
	ctx, span := observe.StartSpan(ctx, "pipeline.run")
	defer span.End()
	logger := observe.Logger(ctx)

	o.metrics.ActiveRuns.Add(ctx, 1)
	defer o.metrics.ActiveRuns.Add(ctx, -1)
	runStart := time.Now()
	defer func() {
		o.metrics.PipelineDuration.Record(ctx, time.Since(runStart).Seconds())
	}()

	// --- Stage 1: QA ---
	_, qaSpan := observe.StartSpan(ctx, "pipeline.qa")
	qaStart := time.Now()
	report := qa.Check(doc, o.qaCfg)
	o.metrics.QADuration.Record(ctx, time.Since(qaStart).Seconds())
	qaSpan.End()
	if !report.OK {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, report.Errors)
	}
	recordSegmentCounts(ctx, o.metrics, report)
	logger.Info("qa complete",
		"transcript_id", doc.TranscriptID,
		"total_segments", report.TotalSegments,
		"valid_segments", report.ValidSegments,
		"omission_suspects", len(report.OmissionSuspects))

	tr := types.NewTranscript(doc)

	// --- Stage 2: context inference (the only external call) ---
	var (
		bundle   *types.ContextBundle
		degraded bool
		evReport *evidence.Report
	)
	if o.inferencer != nil {
		infCtx, infSpan := observe.StartSpan(ctx, "pipeline.inference")
		infStart := time.Now()
		b, err := o.inferencer.Infer(infCtx, doc)
		o.metrics.InferenceDuration.Record(ctx, time.Since(infStart).Seconds())
		infSpan.End()
		switch {
		case err == nil:
			bundle = b
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			degraded = true
			o.metrics.InferenceFailures.Add(ctx, 1)
			report.AddWarning("context inference failed after retries; editing without context")
			logger.Warn("context inference failed; degrading to context-free editing",
				"transcript_id", doc.TranscriptID,
				"error", err)
		}
	}

	// --- Stage 3: evidence validation ---
	if bundle != nil {
		_, evSpan := observe.StartSpan(ctx, "pipeline.evidence")
		evReport = evidence.Validate(tr, bundle)
		evSpan.End()
		for i := 0; i < evReport.DemotedHypotheses; i++ {
			o.metrics.RecordDemotion(ctx, "hypothesis")
		}
		logger.Info("evidence validation complete",
			"transcript_id", doc.TranscriptID,
			"hypotheses", evReport.TotalHypotheses,
			"validated", evReport.ValidatedHypotheses,
			"demoted", evReport.DemotedHypotheses)
	}

	// --- Stage 4: parallel per-segment editing ---
	ed := editor.New(o.editCfg, bundle)
	editCtx, editSpan := observe.StartSpan(ctx, "pipeline.edit")
	editStart := time.Now()
	if err := o.editSegments(editCtx, ed, tr); err != nil {
		editSpan.End()
		return nil, err
	}
	o.metrics.EditDuration.Record(ctx, time.Since(editStart).Seconds())
	editSpan.End()

	// --- Stage 5: trace ---
	transform := editor.BuildReport(tr, ed.Policy())
	for _, sr := range transform.Segments {
		for _, op := range sr.Ops {
			o.metrics.RecordOp(ctx, string(op.Kind))
		}
	}

	// --- Stage 6: report-only alias suggestions ---
	var suggestions []types.AliasSuggestion
	if o.suggester != nil && bundle != nil {
		suggestions = o.suggester.Suggest(tr, bundle)
	}

	out := buildOutput(doc, tr, report, bundle, transform, suggestions)
	logger.Info("pipeline run complete",
		"transcript_id", doc.TranscriptID,
		"segments_modified", transform.SegmentsModified,
		"degraded", degraded,
		"duration", time.Since(runStart))

	return &Result{
		Output:        out,
		Degraded:      degraded,
		Evidence:      evReport,
		CorrelationID: observe.CorrelationID(ctx),
	}, nil
}

// editSegments applies the editor to every segment concurrently, bounded by
// the worker limit. On cancellation the error propagates and no output is
// built — partial edits stay invisible to the caller.
func (o *Orchestrator) editSegments(ctx context.Context, ed *editor.Editor, tr *types.Transcript) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(o.workers)

	for i := range tr.Segments {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			ed.Apply(&tr.Segments[i])
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return fmt.Errorf("pipeline: edit segments: %w", err)
	}
	return ctx.Err()
}

// buildOutput assembles the output document. Messages keep their original
// speaker and timestamps; only content carries the edits.
func buildOutput(
	doc *types.Document,
	tr *types.Transcript,
	report *types.QAReport,
	bundle *types.ContextBundle,
	transform *types.TransformationReport,
	suggestions []types.AliasSuggestion,
) *types.OutputDocument {
	messages := make([]types.Message, len(doc.Messages))
	for i, m := range doc.Messages {
		messages[i] = types.Message{
			Speaker:   m.Speaker,
			StartTime: m.StartTime,
			EndTime:   m.EndTime,
			Content:   tr.Segments[i].EditedContent,
		}
	}
	return &types.OutputDocument{
		TranscriptID:         doc.TranscriptID,
		Messages:             messages,
		QAReport:             report,
		Context:              bundle,
		TransformationReport: transform,
		AliasSuggestions:     suggestions,
	}
}

// recordSegmentCounts records per-status segment counters from a QA report.
func recordSegmentCounts(ctx context.Context, m *observe.Metrics, report *types.QAReport) {
	for i := 0; i < report.ValidSegments; i++ {
		m.RecordSegment(ctx, "valid")
	}
	for i := 0; i < len(report.InvalidSegments); i++ {
		m.RecordSegment(ctx, "invalid")
	}
}
