// Package editor applies the safe, auditable text transforms to transcript
// segments: glossary normalization, language-error correction, repetition
// collapse, and light punctuation — always in that order.
//
// The stage order is a design invariant. Glossary terms are canonicalized
// first so that language corrections anchor on canonical spans; repetition
// collapse runs after corrections so a correction cannot re-introduce a
// duplicate; punctuation runs strictly last because every earlier stage may
// move a sentence boundary.
//
// The two context-derived stages only ever act on hypotheses that passed
// evidence validation AND meet their confidence gate. Without a context
// bundle (degraded mode) those stages are absent entirely, not merely inert.
// Every change is recorded as a [types.Operation]; the editor never touches
// speaker labels, timestamps, or OriginalContent.
package editor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/veracall/veracall/pkg/types"
)

const (
	// DefaultGlossaryThreshold gates glossary substitution. A validated
	// candidate below this confidence is never applied.
	DefaultGlossaryThreshold = 0.9

	// DefaultLanguageThreshold gates language-error correction.
	DefaultLanguageThreshold = 0.80

	repetitionConfidence  = 0.9
	punctuationConfidence = 0.8
)

// Config holds the confidence gates for the context-derived transforms.
type Config struct {
	GlossaryThreshold float64
	LanguageThreshold float64
}

// DefaultConfig returns the standard gates (glossary 0.9, language 0.80).
func DefaultConfig() Config {
	return Config{
		GlossaryThreshold: DefaultGlossaryThreshold,
		LanguageThreshold: DefaultLanguageThreshold,
	}
}

// substitution is one prepared from → to replacement with its provenance.
type substitution struct {
	from       string
	to         string
	confidence float64
}

// Editor applies the four transforms to segments. Construct once per run with
// the validated context bundle (or nil for degraded, context-free mode);
// afterwards it is read-only and safe for concurrent use across segments.
type Editor struct {
	cfg        Config
	aliases    []substitution
	fixes      []substitution
	contextual bool
}

// New prepares an editor from the validated bundle. Only hypotheses with
// Validated=true that meet their confidence gate are compiled into
// substitutions; everything else in the bundle is ignored. A nil bundle
// yields a degraded editor that runs the deterministic stages only.
func New(cfg Config, bundle *types.ContextBundle) *Editor {
	e := &Editor{cfg: cfg}
	if bundle == nil {
		return e
	}
	e.contextual = true

	for _, c := range bundle.Glossary {
		if !c.Validated || c.Confidence < cfg.GlossaryThreshold {
			continue
		}
		term := strings.TrimSpace(c.Term)
		if term == "" {
			continue
		}
		// The canonical term maps to itself so that case variants of the
		// term are normalized too.
		e.aliases = append(e.aliases, substitution{from: term, to: term, confidence: c.Confidence})
		for _, a := range c.Aliases {
			if a = strings.TrimSpace(a); a != "" {
				e.aliases = append(e.aliases, substitution{from: a, to: term, confidence: c.Confidence})
			}
		}
	}
	sortSubstitutions(e.aliases)

	for _, le := range bundle.LanguageErrors {
		if !le.Validated || le.Confidence < cfg.LanguageThreshold {
			continue
		}
		from := strings.TrimSpace(le.IncorrectText)
		to := strings.TrimSpace(le.CorrectForm)
		if from == "" || to == "" {
			continue
		}
		e.fixes = append(e.fixes, substitution{from: from, to: to, confidence: le.Confidence})
	}
	sortSubstitutions(e.fixes)

	return e
}

// sortSubstitutions orders longest-from first so that a longer alias is never
// shadowed by one of its own substrings, with a lexicographic tie-break for
// determinism.
func sortSubstitutions(subs []substitution) {
	sort.SliceStable(subs, func(i, j int) bool {
		if len(subs[i].from) != len(subs[j].from) {
			return len(subs[i].from) > len(subs[j].from)
		}
		return subs[i].from < subs[j].from
	})
}

// Contextual reports whether the context-derived stages are active.
func (e *Editor) Contextual() bool {
	return e.contextual
}

// Policy describes which stages this editor runs.
func (e *Editor) Policy() types.EditPolicy {
	return types.EditPolicy{
		GlossaryNormalization:   e.contextual,
		LanguageErrorCorrection: e.contextual,
		RepetitionCollapse:      true,
		Punctuation:             true,
		TimestampsPreserved:     true,
		SpeakerLabelsPreserved:  true,
	}
}

// Apply runs the full transform pipeline on one segment, starting from its
// OriginalContent, and stores the result in EditedContent together with the
// ordered operation list. Speaker and timestamps are untouched.
func (e *Editor) Apply(seg *types.Segment) {
	text := seg.OriginalContent
	var ops []types.Operation

	for _, sub := range e.aliases {
		next, matches := replaceTokenBounded(text, sub.from, sub.to)
		for _, m := range matches {
			ops = append(ops, types.Operation{
				Kind:       types.OpGlossaryNormalize,
				Before:     m.before,
				After:      m.after,
				Confidence: sub.confidence,
				Source:     types.OpSourceContextBundle,
				Detail:     fmt.Sprintf("'%s' → '%s'", sub.from, sub.to),
			})
		}
		text = next
	}

	// Corrections anchor on the current (post-glossary) text. A span that no
	// longer matches — because an earlier substitution already rewrote that
	// region — is silently skipped: the earlier stage wins.
	for _, sub := range e.fixes {
		next, matches := replaceTokenBounded(text, sub.from, sub.to)
		for _, m := range matches {
			ops = append(ops, types.Operation{
				Kind:       types.OpLanguageCorrect,
				Before:     m.before,
				After:      m.after,
				Confidence: sub.confidence,
				Source:     types.OpSourceContextBundle,
				Detail:     fmt.Sprintf("'%s' → '%s'", sub.from, sub.to),
			})
		}
		text = next
	}

	text, repOps := CollapseRepetitions(text)
	ops = append(ops, repOps...)

	text, puncOps := Punctuate(text)
	ops = append(ops, puncOps...)

	seg.EditedContent = text
	seg.Ops = ops
}
