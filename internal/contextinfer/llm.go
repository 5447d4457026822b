package contextinfer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/veracall/veracall/internal/observe"
	"github.com/veracall/veracall/pkg/provider/llm"
	"github.com/veracall/veracall/pkg/types"
)

const (
	defaultTemperature    = 0.1
	defaultMaxAttempts    = 3
	defaultBackoff        = 2 * time.Second
	defaultAttemptTimeout = 30 * time.Second
)

// systemPrompt instructs the model to behave as a strict, evidence-citing
// extractor. French, because the product processes French call transcripts.
const systemPrompt = `Vous êtes un extracteur d'informations strict pour les transcriptions d'appels.

Règles:
- NE PAS inventer de faits.
- NE PAS paraphraser ou réécrire la transcription.
- La sortie DOIT être un objet JSON respectant exactement le schéma demandé (pas de markdown, pas de prose).
- Chaque hypothèse DOIT inclure 1 à 3 evidence_quotes qui sont des sous-chaînes EXACTES de la transcription.
- En cas d'incertitude: définir une confiance faible et laisser evidence_quotes vide.
- Pour les erreurs de langue: signaler UNIQUEMENT les erreurs claires, PAS les expressions familières ou les structures du langage parlé naturel.`

// userPromptTemplate carries the speaker list, the verbatim transcript, and
// the task list including the exact JSON shape expected back.
const userPromptTemplate = `Intervenants de la transcription: %s

Transcription (verbatim):
%s

Tâches:
1) Deviner le domaine parmi: sales, support, recruiting, healthcare, other.
2) Deviner les rôles des intervenants (agent/client, interviewer/candidate, other) si possible.
3) Extraire les candidats du glossaire: noms propres, acronymes, noms de produits/outils; inclure aliases_found uniquement s'ils sont vus.
4) Détecter les erreurs de français (orthographe, grammaire, conjugaison, accord, absence d'accent ou d'apostrophe).

NE PAS signaler:
- Les expressions familières
- Les phrases incomplètes (naturelles à l'oral)
- Les hésitations normales du langage parlé

Répondre UNIQUEMENT avec un objet JSON de cette forme exacte:
{
  "domain_guess": {"label": "...", "confidence": 0.0, "evidence_quotes": ["..."]},
  "participants_guess": [{"mapped_from_speaker": "speaker_0", "role": "...", "confidence": 0.0, "evidence_quotes": ["..."]}],
  "glossary_candidates": [{"term": "...", "aliases_found": ["..."], "confidence": 0.0, "evidence_quotes": ["..."]}],
  "language_errors": [{"error_type": "spelling", "incorrect_text": "...", "correct_form": "...", "explanation": "...", "confidence": 0.0, "evidence_quote": "..."}],
  "constraints": ["no_invention", "no_paraphrase", "preserve_timestamps"]
}

Important:
- evidence_quotes doit contenir des sous-chaînes EXACTES de la transcription
- Pour language_errors: evidence_quote doit contenir la phrase complète avec l'erreur
- incorrect_text doit être le mot/phrase exact qui est incorrect
- Signaler uniquement les erreurs dont vous êtes sûr (confidence >= 0.7)`

// extraction is the wire schema the collaborator must return.
type extraction struct {
	DomainGuess struct {
		Label          string   `json:"label"`
		Confidence     float64  `json:"confidence"`
		EvidenceQuotes []string `json:"evidence_quotes"`
	} `json:"domain_guess"`
	ParticipantsGuess []struct {
		MappedFromSpeaker string   `json:"mapped_from_speaker"`
		Role              string   `json:"role"`
		Confidence        float64  `json:"confidence"`
		EvidenceQuotes    []string `json:"evidence_quotes"`
	} `json:"participants_guess"`
	GlossaryCandidates []struct {
		Term           string   `json:"term"`
		AliasesFound   []string `json:"aliases_found"`
		Confidence     float64  `json:"confidence"`
		EvidenceQuotes []string `json:"evidence_quotes"`
	} `json:"glossary_candidates"`
	LanguageErrors []struct {
		ErrorType     string  `json:"error_type"`
		IncorrectText string  `json:"incorrect_text"`
		CorrectForm   string  `json:"correct_form"`
		Explanation   string  `json:"explanation"`
		Confidence    float64 `json:"confidence"`
		EvidenceQuote string  `json:"evidence_quote"`
	} `json:"language_errors"`
	Constraints []string `json:"constraints"`
}

var errorTypes = map[string]bool{
	"spelling":    true,
	"grammar":     true,
	"conjugation": true,
	"agreement":   true,
}

// Option is a functional option for configuring an [LLMInferencer].
type Option func(*LLMInferencer)

// WithTemperature sets the sampling temperature. Default: 0.1.
func WithTemperature(temp float64) Option {
	return func(i *LLMInferencer) {
		i.temperature = temp
	}
}

// WithMaxAttempts bounds the number of inference attempts. Default: 3.
func WithMaxAttempts(n int) Option {
	return func(i *LLMInferencer) {
		if n > 0 {
			i.maxAttempts = n
		}
	}
}

// WithBackoff sets the fixed delay between attempts. Default: 2s.
func WithBackoff(d time.Duration) Option {
	return func(i *LLMInferencer) {
		i.backoff = d
	}
}

// WithAttemptTimeout sets the per-attempt deadline. Default: 30s.
func WithAttemptTimeout(d time.Duration) Option {
	return func(i *LLMInferencer) {
		i.attemptTimeout = d
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(i *LLMInferencer) {
		i.logger = logger
	}
}

// WithMetrics sets the metrics instance. Default: observe.DefaultMetrics().
func WithMetrics(m *observe.Metrics) Option {
	return func(i *LLMInferencer) {
		i.metrics = m
	}
}

// LLMInferencer implements [Inferencer] on top of an [llm.Provider].
// Safe for concurrent use.
type LLMInferencer struct {
	llm            llm.Provider
	temperature    float64
	maxAttempts    int
	backoff        time.Duration
	attemptTimeout time.Duration
	logger         *slog.Logger
	metrics        *observe.Metrics
}

// Ensure LLMInferencer implements Inferencer at compile time.
var _ Inferencer = (*LLMInferencer)(nil)

// New returns an LLMInferencer backed by the given provider.
func New(provider llm.Provider, opts ...Option) *LLMInferencer {
	i := &LLMInferencer{
		llm:            provider,
		temperature:    defaultTemperature,
		maxAttempts:    defaultMaxAttempts,
		backoff:        defaultBackoff,
		attemptTimeout: defaultAttemptTimeout,
		logger:         slog.Default(),
	}
	for _, o := range opts {
		o(i)
	}
	if i.metrics == nil {
		i.metrics = observe.DefaultMetrics()
	}
	return i
}

// Infer asks the collaborator for a context bundle, retrying with fixed
// backoff up to the configured attempt count. A malformed response counts as
// a failed attempt like a transport error does. When every attempt fails the
// last error is returned and the caller is expected to degrade to
// context-free editing.
func (i *LLMInferencer) Infer(ctx context.Context, doc *types.Document) (*types.ContextBundle, error) {
	req := llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Temperature:  i.temperature,
		Messages: []llm.Message{
			{Role: "user", Content: buildUserPrompt(doc)},
		},
	}

	var lastErr error
	for attempt := 1; attempt <= i.maxAttempts; attempt++ {
		if attempt > 1 {
			i.metrics.InferenceRetries.Add(ctx, 1)
			i.logger.Warn("context inference retrying",
				"attempt", attempt,
				"max_attempts", i.maxAttempts,
				"error", lastErr)
			select {
			case <-time.After(i.backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		bundle, err := i.attempt(ctx, req)
		if err == nil {
			return bundle, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("contextinfer: %d attempts exhausted: %w", i.maxAttempts, lastErr)
}

func (i *LLMInferencer) attempt(ctx context.Context, req llm.CompletionRequest) (*types.ContextBundle, error) {
	actx, cancel := context.WithTimeout(ctx, i.attemptTimeout)
	defer cancel()

	resp, err := i.llm.Complete(actx, req)
	if err != nil {
		return nil, fmt.Errorf("contextinfer: complete: %w", err)
	}
	return parseBundle(resp.Content)
}

// buildUserPrompt assembles the user message: the speaker list in first
// appearance order plus the newline-joined verbatim transcript.
func buildUserPrompt(doc *types.Document) string {
	contents := make([]string, len(doc.Messages))
	for i, m := range doc.Messages {
		contents[i] = m.Content
	}
	return fmt.Sprintf(userPromptTemplate,
		strings.Join(doc.Speakers(), ", "),
		strings.Join(contents, "\n"))
}

// parseBundle strictly decodes and validates the collaborator's response and
// maps it to the internal bundle shape. Any violation yields
// [ErrMalformedBundle].
func parseBundle(content string) (*types.ContextBundle, error) {
	cleaned := stripMarkdown(content)

	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.DisallowUnknownFields()
	var ex extraction
	if err := dec.Decode(&ex); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrMalformedBundle, err)
	}

	if err := validateExtraction(&ex); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBundle, err)
	}

	bundle := &types.ContextBundle{
		Domain:           ex.DomainGuess.Label,
		DomainConfidence: ex.DomainGuess.Confidence,
		DomainEvidence:   quotes(ex.DomainGuess.EvidenceQuotes),
		Constraints:      ex.Constraints,
	}
	if len(ex.ParticipantsGuess) > 0 {
		bundle.RoleMapping = make(map[string]string, len(ex.ParticipantsGuess))
		for _, p := range ex.ParticipantsGuess {
			bundle.RoleMapping[p.MappedFromSpeaker] = p.Role
		}
	}
	for _, g := range ex.GlossaryCandidates {
		bundle.Glossary = append(bundle.Glossary, types.GlossaryCandidate{
			Term:       g.Term,
			Aliases:    g.AliasesFound,
			Confidence: g.Confidence,
			Evidence:   quotes(g.EvidenceQuotes),
		})
	}
	for _, e := range ex.LanguageErrors {
		le := types.LanguageError{
			ErrorType:     e.ErrorType,
			IncorrectText: e.IncorrectText,
			CorrectForm:   e.CorrectForm,
			Explanation:   e.Explanation,
			Confidence:    e.Confidence,
		}
		if e.EvidenceQuote != "" {
			le.Evidence = quotes([]string{e.EvidenceQuote})
		}
		bundle.LanguageErrors = append(bundle.LanguageErrors, le)
	}
	return bundle, nil
}

// validateExtraction enforces the schema contract: required fields present,
// enums respected, confidences within [0, 1].
func validateExtraction(ex *extraction) error {
	if ex.DomainGuess.Label == "" {
		return fmt.Errorf("domain_guess.label missing")
	}
	if !inRange(ex.DomainGuess.Confidence) {
		return fmt.Errorf("domain_guess.confidence out of range: %v", ex.DomainGuess.Confidence)
	}
	for _, p := range ex.ParticipantsGuess {
		if p.MappedFromSpeaker == "" || p.Role == "" {
			return fmt.Errorf("participants_guess entry missing speaker or role")
		}
		if !inRange(p.Confidence) {
			return fmt.Errorf("participants_guess confidence out of range: %v", p.Confidence)
		}
	}
	for _, g := range ex.GlossaryCandidates {
		if strings.TrimSpace(g.Term) == "" {
			return fmt.Errorf("glossary candidate with empty term")
		}
		if !inRange(g.Confidence) {
			return fmt.Errorf("glossary candidate %q confidence out of range: %v", g.Term, g.Confidence)
		}
	}
	for _, e := range ex.LanguageErrors {
		if !errorTypes[e.ErrorType] {
			return fmt.Errorf("unknown error_type %q", e.ErrorType)
		}
		if strings.TrimSpace(e.IncorrectText) == "" || strings.TrimSpace(e.CorrectForm) == "" {
			return fmt.Errorf("language error missing incorrect_text or correct_form")
		}
		if !inRange(e.Confidence) {
			return fmt.Errorf("language error %q confidence out of range: %v", e.IncorrectText, e.Confidence)
		}
	}
	return nil
}

func inRange(c float64) bool {
	return c >= 0 && c <= 1
}

// quotes wraps raw quote strings as uncited evidence quotes. The wire format
// does not carry segment citations; uncited quotes validate against the full
// transcript text.
func quotes(raw []string) []types.EvidenceQuote {
	if len(raw) == 0 {
		return nil
	}
	out := make([]types.EvidenceQuote, 0, len(raw))
	for _, q := range raw {
		if q == "" {
			continue
		}
		out = append(out, types.EvidenceQuote{Text: q, SegmentIndex: types.UncitedSegment})
	}
	return out
}

// stripMarkdown removes optional markdown code fences that some models wrap
// around JSON output.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}
