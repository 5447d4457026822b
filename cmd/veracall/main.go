// Command veracall validates and safely edits machine-generated call
// transcripts. It reads a transcript JSON document, runs the QA /
// context-inference / evidence-gated editing pipeline, and writes the output
// document with the full QA and transformation reports.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/veracall/veracall/internal/archive"
	"github.com/veracall/veracall/internal/config"
	"github.com/veracall/veracall/internal/contextinfer"
	"github.com/veracall/veracall/internal/editor"
	"github.com/veracall/veracall/internal/observe"
	"github.com/veracall/veracall/internal/pipeline"
	"github.com/veracall/veracall/internal/qa"
	"github.com/veracall/veracall/internal/suggest"
	"github.com/veracall/veracall/pkg/provider/llm"
	"github.com/veracall/veracall/pkg/provider/llm/anyllm"
	oaillm "github.com/veracall/veracall/pkg/provider/llm/openai"
	"github.com/veracall/veracall/pkg/types"
)

// apiKeyEnv is the generic credential variable consulted when the config file
// carries no api_key. Provider-native variables (OPENAI_API_KEY, ...) are
// still honoured by the backends themselves.
const apiKeyEnv = "VERACALL_API_KEY"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	inPath := flag.String("in", "-", `input transcript JSON ("-" for stdin)`)
	outPath := flag.String("out", "-", `output document JSON ("-" for stdout)`)
	configPath := flag.String("config", "", "path to the YAML configuration file (optional)")
	listRuns := flag.Int("list-runs", 0, "list the N most recent archived runs and exit")
	showRun := flag.String("show-run", "", "print the archived output document for a run ID and exit")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := loadConfig(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "veracall: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "veracall: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Logging.Level)
	slog.SetDefault(logger)

	// ── Archive queries (no pipeline run) ─────────────────────────────────────
	if *listRuns > 0 || *showRun != "" {
		return queryArchive(cfg.Archive.Path, *listRuns, *showRun)
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Inference provider ────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerLLMProviders(reg)

	inferencer, err := buildInferencer(cfg, reg)
	if err != nil {
		slog.Error("failed to build inference provider", "err", err)
		return 1
	}

	// ── Input ─────────────────────────────────────────────────────────────────
	doc, err := readInput(*inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "veracall: %v\n", err)
		return 1
	}
	slog.Info("transcript loaded",
		"transcript_id", doc.TranscriptID,
		"segments", len(doc.Messages),
		"source", *inPath,
	)

	// ── Pipeline ──────────────────────────────────────────────────────────────
	opts := []pipeline.Option{
		pipeline.WithQAConfig(qa.Config{
			GapThreshold:         cfg.QA.GapThresholdSeconds,
			LongSegmentThreshold: cfg.QA.LongSegmentThresholdSeconds,
		}),
		pipeline.WithEditorConfig(editor.Config{
			GlossaryThreshold: cfg.Editor.GlossaryThreshold,
			LanguageThreshold: cfg.Editor.LanguageThreshold,
		}),
	}
	if inferencer != nil {
		opts = append(opts, pipeline.WithInferencer(inferencer))
	}
	if cfg.Suggest.SuggestEnabled() {
		opts = append(opts, pipeline.WithSuggester(suggest.New(
			suggest.WithPhoneticThreshold(cfg.Suggest.PhoneticThreshold),
			suggest.WithFuzzyThreshold(cfg.Suggest.FuzzyThreshold),
			suggest.WithMinTokenLength(cfg.Suggest.MinTokenLength),
		)))
	}

	res, err := pipeline.New(opts...).Run(ctx, doc)
	if err != nil {
		slog.Error("pipeline run failed", "err", err)
		return 1
	}

	// ── Run archive (best effort) ─────────────────────────────────────────────
	archiveRun(ctx, cfg.Archive.Path, res)

	// ── Output ────────────────────────────────────────────────────────────────
	if err := writeOutput(*outPath, res.Output); err != nil {
		slog.Error("failed to write output", "err", err)
		return 1
	}

	slog.Info("done",
		"transcript_id", res.Output.TranscriptID,
		"segments_modified", res.Output.TransformationReport.SegmentsModified,
		"degraded", res.Degraded,
		"run_correlation", res.CorrelationID,
	)
	return 0
}

// queryArchive serves the -list-runs and -show-run flags against the SQLite
// run archive, bypassing the pipeline entirely.
func queryArchive(path string, listN int, runID string) int {
	if path == "" {
		fmt.Fprintln(os.Stderr, "veracall: archive queries require archive.path in the config")
		return 1
	}
	store, err := archive.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "veracall: %v\n", err)
		return 1
	}
	defer store.Close()
	ctx := context.Background()

	if runID != "" {
		_, out, err := store.GetRun(ctx, runID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "veracall: %v\n", err)
			return 1
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(os.Stderr, "veracall: %v\n", err)
			return 1
		}
		return 0
	}

	runs, err := store.ListRuns(ctx, listN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "veracall: %v\n", err)
		return 1
	}
	for _, r := range runs {
		fmt.Printf("%s  %s  %s  degraded=%t  modified=%d/%d  ops=%d\n",
			r.RunID,
			r.CreatedAt.Format(time.RFC3339),
			r.TranscriptID,
			r.Degraded,
			r.SegmentsModified,
			r.SegmentsTotal,
			r.OpsApplied,
		)
	}
	return 0
}

// loadConfig loads the YAML config from path, or returns the built-in
// defaults when no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerLLMProviders wires the built-in LLM provider factories into reg.
func registerLLMProviders(reg *config.Registry) {
	// openai, anthropic, gemini, deepseek, mistral, groq, llamacpp, llamafile
	// all share the same pattern: optional APIKey + optional BaseURL.
	for _, providerName := range []string{
		"openai", "anthropic", "gemini",
		"deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	// openai-direct bypasses any-llm-go and uses the official SDK, for
	// deployments that need its request options (organization, HTTP timeout).
	reg.RegisterLLM("openai-direct", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []oaillm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(entry.BaseURL))
		}
		if org := optString(entry.Options, "organization"); org != "" {
			opts = append(opts, oaillm.WithOrganization(org))
		}
		return oaillm.New(entry.APIKey, entry.Model, opts...)
	})
}

// buildInferencer creates the context-inference collaborator from cfg, or
// returns nil when no provider is configured (context-free mode).
func buildInferencer(cfg *config.Config, reg *config.Registry) (contextinfer.Inferencer, error) {
	entry := cfg.Inference.Provider
	if entry.Name == "" {
		slog.Info("no inference provider configured; running context-free")
		return nil, nil
	}
	if entry.APIKey == "" {
		entry.APIKey = os.Getenv(apiKeyEnv)
	}

	p, err := reg.CreateLLM(entry)
	if err != nil {
		return nil, fmt.Errorf("create llm provider %q: %w", entry.Name, err)
	}
	slog.Info("inference provider created", "name", entry.Name, "model", entry.Model)

	return contextinfer.New(p,
		contextinfer.WithTemperature(cfg.Inference.Temperature),
		contextinfer.WithMaxAttempts(cfg.Inference.MaxAttempts),
		contextinfer.WithBackoff(secondsToDuration(cfg.Inference.BackoffSeconds)),
		contextinfer.WithAttemptTimeout(secondsToDuration(cfg.Inference.TimeoutSeconds)),
	), nil
}

// ── I/O ───────────────────────────────────────────────────────────────────────

// readInput decodes the input document from path, or stdin when path is "-".
// A document that cannot be parsed is the fatal input condition.
func readInput(path string) (*types.Document, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return types.DecodeDocument(r)
}

// writeOutput writes the output document as indented JSON to path, or stdout
// when path is "-".
func writeOutput(path string, out *types.OutputDocument) error {
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// archiveRun records the completed run in the SQLite archive. Archive errors
// are logged and swallowed: a run that cannot be archived still succeeds.
func archiveRun(ctx context.Context, path string, res *pipeline.Result) {
	if path == "" {
		return
	}
	store, err := archive.Open(path)
	if err != nil {
		slog.Warn("run archive unavailable", "path", path, "err", err)
		return
	}
	defer store.Close()

	runID, err := store.SaveRun(ctx, res.Output, res.Degraded)
	if err != nil {
		slog.Warn("failed to archive run", "err", err)
		return
	}
	slog.Info("run archived", "run_id", runID, "path", path)
}

// ── Logger ────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// secondsToDuration converts a fractional seconds value to a time.Duration.
func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
