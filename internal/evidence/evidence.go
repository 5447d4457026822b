// Package evidence implements the grounding gate between context inference
// and editing: every hypothesis in a context bundle must prove itself with
// literal quotes from the source transcript before any edit may be derived
// from it.
//
// Validation is deliberately strict. A quote matches only as an exact
// substring of the text it is checked against — no fuzzy matching, no
// case folding, no whitespace normalisation. A hypothesis with a failing or
// absent quote is demoted (Validated=false, Confidence=0) but never removed
// from the bundle, so the output document still shows what the producer
// claimed and why it was rejected.
package evidence

import (
	"strings"

	"github.com/veracall/veracall/pkg/types"
)

// Report summarises one validation pass over a context bundle.
type Report struct {
	// TotalHypotheses counts glossary candidates plus language errors.
	TotalHypotheses int `json:"total_hypotheses"`

	// ValidatedHypotheses counts hypotheses whose every quote matched and that
	// carried at least one quote.
	ValidatedHypotheses int `json:"validated_hypotheses"`

	// DemotedHypotheses counts hypotheses rejected for a failed quote.
	DemotedHypotheses int `json:"demoted_hypotheses"`

	// MissingQuotes counts hypotheses demoted because they carried no quotes
	// at all. Included in DemotedHypotheses.
	MissingQuotes int `json:"missing_quotes"`

	// QuotesChecked counts every individual quote examined, including the
	// informational domain evidence.
	QuotesChecked int `json:"quotes_checked"`

	// QuotesFailed counts quotes that did not match their reference text.
	QuotesFailed int `json:"quotes_failed"`
}

// Validate annotates every hypothesis of bundle in place against the original
// content of t and returns the pass summary.
//
// Cited quotes (SegmentIndex >= 0) match only against that segment's
// OriginalContent; a citation of a segment that does not exist fails. Uncited
// quotes match against the newline-joined original transcript text. Edited
// content is never consulted: evidence grounds hypotheses in what was
// actually said, not in what earlier edits produced.
func Validate(t *types.Transcript, bundle *types.ContextBundle) *Report {
	report := &Report{}
	if bundle == nil {
		return report
	}

	full := t.FullText()

	// Domain evidence is informational: quotes get annotated, but a failing
	// domain quote demotes nothing because the domain never drives edits.
	for i := range bundle.DomainEvidence {
		checkQuote(t, full, &bundle.DomainEvidence[i], report)
	}

	for i := range bundle.Glossary {
		c := &bundle.Glossary[i]
		report.TotalHypotheses++
		if validateQuotes(t, full, c.Evidence, report) {
			c.Validated = true
			report.ValidatedHypotheses++
			continue
		}
		demote(&c.Validated, &c.Confidence, len(c.Evidence), report)
	}

	for i := range bundle.LanguageErrors {
		e := &bundle.LanguageErrors[i]
		report.TotalHypotheses++
		if validateQuotes(t, full, e.Evidence, report) {
			e.Validated = true
			report.ValidatedHypotheses++
			continue
		}
		demote(&e.Validated, &e.Confidence, len(e.Evidence), report)
	}

	return report
}

// validateQuotes checks every quote of one hypothesis and reports whether the
// hypothesis as a whole is grounded: at least one quote, and all of them
// matching.
func validateQuotes(t *types.Transcript, full string, quotes []types.EvidenceQuote, report *Report) bool {
	if len(quotes) == 0 {
		return false
	}
	ok := true
	for i := range quotes {
		if !checkQuote(t, full, &quotes[i], report) {
			ok = false
		}
	}
	return ok
}

// checkQuote validates a single quote in place and records it on the report.
func checkQuote(t *types.Transcript, full string, q *types.EvidenceQuote, report *Report) bool {
	report.QuotesChecked++

	ref := full
	if q.SegmentIndex != types.UncitedSegment {
		if q.SegmentIndex < 0 || q.SegmentIndex >= len(t.Segments) {
			q.Validated = false
			report.QuotesFailed++
			return false
		}
		ref = t.Segments[q.SegmentIndex].OriginalContent
	}

	q.Validated = q.Text != "" && strings.Contains(ref, q.Text)
	if !q.Validated {
		report.QuotesFailed++
	}
	return q.Validated
}

// demote marks a hypothesis as rejected. Confidence drops to zero so that no
// downstream threshold can resurrect it.
func demote(validated *bool, confidence *float64, quoteCount int, report *Report) {
	*validated = false
	*confidence = 0
	report.DemotedHypotheses++
	if quoteCount == 0 {
		report.MissingQuotes++
	}
}
