// Package types defines the shared data model for the Veracall transcript
// validation-and-safe-editing engine: transcripts and their segments, the
// context bundle produced by the inference collaborator, the QA report, and
// the per-segment transformation trace.
//
// The model enforces a strict separation between immutable input state and
// auditable edits: a [Segment] keeps OriginalContent untouched for the whole
// pipeline lifetime while all edits accumulate in EditedContent together with
// an ordered [Operation] list describing exactly what changed, with what
// confidence, and on whose authority.
package types

// OpKind identifies which editing stage produced an [Operation].
type OpKind string

const (
	// OpGlossaryNormalize is an alias → canonical-term substitution sourced
	// from a validated glossary candidate.
	OpGlossaryNormalize OpKind = "glossary_normalize"

	// OpLanguageCorrect is a spelling/grammar span replacement sourced from a
	// validated language-error hypothesis.
	OpLanguageCorrect OpKind = "language_correct"

	// OpRepetitionCollapse removes immediately repeated words ("de de" → "de").
	OpRepetitionCollapse OpKind = "repetition_collapse"

	// OpPunctuate capitalises the first letter and adds terminal punctuation.
	OpPunctuate OpKind = "punctuate"
)

// OpSource records the provenance of an [Operation].
type OpSource string

const (
	// OpSourceRule marks operations produced by the deterministic rule
	// transforms that need no external input.
	OpSourceRule OpSource = "rule"

	// OpSourceContextBundle marks operations derived from a context-bundle
	// hypothesis. Such operations are only legal when the hypothesis passed
	// evidence validation.
	OpSourceContextBundle OpSource = "context_bundle"
)

// Operation is one recorded atomic text transformation applied to a segment.
type Operation struct {
	// Kind identifies the editing stage. Never empty.
	Kind OpKind `json:"kind"`

	// Before is the text span as it read immediately before this operation.
	Before string `json:"before"`

	// After is the replacement span.
	After string `json:"after"`

	// Confidence is the confidence in this edit, in [0, 1]. Rule transforms
	// carry a fixed confidence; context-bundle operations carry the
	// hypothesis confidence.
	Confidence float64 `json:"confidence"`

	// Source records whether the edit came from a deterministic rule or from
	// the context bundle.
	Source OpSource `json:"source"`

	// Detail is an optional human-readable description of the substitution
	// (e.g. "'CRM' → 'Customer Relationship Management'").
	Detail string `json:"detail,omitempty"`
}

// Segment is one diarised utterance of a [Transcript]. Speaker, StartTime,
// EndTime and OriginalContent are invariant for the entire pipeline lifetime;
// only EditedContent and Ops may change.
type Segment struct {
	// Speaker is an opaque diarisation label (e.g. "speaker_0").
	Speaker string `json:"speaker"`

	// StartTime is the utterance start in seconds from the call start.
	// Always >= 0 for valid segments.
	StartTime float64 `json:"start_time"`

	// EndTime is the utterance end in seconds. Always > StartTime for valid
	// segments.
	EndTime float64 `json:"end_time"`

	// OriginalContent is the raw machine-generated text. Immutable once set.
	OriginalContent string `json:"original_content"`

	// EditedContent starts as a copy of OriginalContent and accumulates the
	// applied transforms.
	EditedContent string `json:"edited_content"`

	// Ops is the ordered list of operations applied to this segment, in
	// application order.
	Ops []Operation `json:"ops,omitempty"`
}

// Duration returns the segment length in seconds.
func (s *Segment) Duration() float64 {
	return s.EndTime - s.StartTime
}

// Transcript is an ordered sequence of segments. Order is semantically
// meaningful: approximate chronological order of speech. The segment count
// never changes after construction.
type Transcript struct {
	ID       string    `json:"transcript_id"`
	Segments []Segment `json:"segments"`
}

// FullText joins the original content of all segments with newlines. This is
// the reference text for uncited evidence-quote lookups.
func (t *Transcript) FullText() string {
	n := 0
	for i := range t.Segments {
		n += len(t.Segments[i].OriginalContent) + 1
	}
	b := make([]byte, 0, n)
	for i := range t.Segments {
		if i > 0 {
			b = append(b, '\n')
		}
		b = append(b, t.Segments[i].OriginalContent...)
	}
	return string(b)
}

// EvidenceQuote is a literal text span a hypothesis cites as proof of its
// grounding in the source transcript.
type EvidenceQuote struct {
	// Text is the quoted span. Validation requires an exact substring match —
	// no fuzzy matching, no normalisation.
	Text string `json:"text"`

	// SegmentIndex is the index of the segment the quote claims to originate
	// from, or UncitedSegment when the producer did not cite one. Cited
	// quotes are checked against that segment's OriginalContent only;
	// uncited quotes are checked against the joined transcript text.
	SegmentIndex int `json:"segment_index"`

	// Validated is set by the evidence validator.
	Validated bool `json:"validated"`
}

// UncitedSegment is the SegmentIndex value for quotes that do not cite a
// specific segment.
const UncitedSegment = -1

// GlossaryCandidate is an inferred alias → canonical-term hypothesis.
type GlossaryCandidate struct {
	// Term is the canonical spelling (e.g. "Customer Relationship Management").
	Term string `json:"term"`

	// Aliases are forms observed in the transcript that should normalise to
	// Term (e.g. "CRM").
	Aliases []string `json:"aliases,omitempty"`

	// Confidence is the producer's confidence, demoted to 0 when evidence
	// validation fails.
	Confidence float64 `json:"confidence"`

	// Evidence is the list of quotes backing this hypothesis.
	Evidence []EvidenceQuote `json:"evidence_quotes,omitempty"`

	// Validated is true only when every evidence quote checked out and at
	// least one quote was supplied.
	Validated bool `json:"validated"`
}

// LanguageError is an inferred spelling/grammar error hypothesis.
type LanguageError struct {
	// ErrorType is one of "spelling", "grammar", "conjugation", "agreement".
	ErrorType string `json:"error_type"`

	// IncorrectText is the exact erroneous span as it appears in the
	// transcript.
	IncorrectText string `json:"incorrect_text"`

	// CorrectForm is the proposed replacement.
	CorrectForm string `json:"correct_form"`

	// Explanation is a brief producer-supplied justification.
	Explanation string `json:"explanation,omitempty"`

	// Confidence is the producer's confidence, demoted to 0 when evidence
	// validation fails.
	Confidence float64 `json:"confidence"`

	// Evidence is the list of quotes backing this hypothesis.
	Evidence []EvidenceQuote `json:"evidence_quotes,omitempty"`

	// Validated is true only when every evidence quote checked out and at
	// least one quote was supplied.
	Validated bool `json:"validated"`
}

// ContextBundle is the structured, evidence-backed metadata inferred from a
// transcript by the external context-inference collaborator. The bundle is
// read-only during segment editing; the only mutation it ever receives is the
// evidence-validation annotation pass.
type ContextBundle struct {
	// Domain is the inferred call domain (e.g. "sales", "support").
	Domain string `json:"domain"`

	// DomainConfidence is the producer's confidence in Domain.
	DomainConfidence float64 `json:"domain_confidence"`

	// DomainEvidence backs the domain guess. Informational only — the domain
	// never drives edits.
	DomainEvidence []EvidenceQuote `json:"domain_evidence,omitempty"`

	// RoleMapping maps speaker labels to inferred roles (e.g. "speaker_0" →
	// "agent"). Informational only.
	RoleMapping map[string]string `json:"role_mapping,omitempty"`

	// Glossary lists alias → canonical-term hypotheses.
	Glossary []GlossaryCandidate `json:"glossary_candidates,omitempty"`

	// LanguageErrors lists spelling/grammar hypotheses.
	LanguageErrors []LanguageError `json:"language_errors,omitempty"`

	// Constraints echoes the producer's self-declared constraints
	// (e.g. "no_invention", "no_paraphrase", "preserve_timestamps").
	Constraints []string `json:"constraints,omitempty"`
}

// InvalidSegment records a structurally invalid segment. The segment is
// retained unmodified — this is a report entry, never a deletion.
type InvalidSegment struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// Gap records the silence between two consecutive (analysis-ordered)
// segments. Gaps at or above the configured threshold are omission suspects.
type Gap struct {
	PrevIndex  int     `json:"prev_index"`
	NextIndex  int     `json:"next_index"`
	PrevEnd    float64 `json:"prev_end"`
	NextStart  float64 `json:"next_start"`
	GapSeconds float64 `json:"gap_s"`
}

// Overlap records two consecutive segments whose time ranges intersect.
type Overlap struct {
	PrevIndex      int     `json:"prev_index"`
	NextIndex      int     `json:"next_index"`
	PrevEnd        float64 `json:"prev_end"`
	NextStart      float64 `json:"next_start"`
	OverlapSeconds float64 `json:"overlap_s"`
}

// LongSegment records a segment whose duration meets the long-segment
// threshold. Long segments are surfaced as omission suspects because a single
// very long utterance often hides dropped speaker turns.
type LongSegment struct {
	Index           int     `json:"index"`
	StartTime       float64 `json:"start_time"`
	EndTime         float64 `json:"end_time"`
	DurationSeconds float64 `json:"duration_s"`
}

// QAThresholds echoes the thresholds the QA pass ran with.
type QAThresholds struct {
	GapSeconds         float64 `json:"gap_threshold_s"`
	LongSegmentSeconds float64 `json:"long_segment_threshold_s"`
}

// QAReport is the structural/temporal quality report for a transcript. It is
// purely descriptive: nothing in it ever causes content deletion or edits.
type QAReport struct {
	// OK is false only on transcript-level fatal errors (e.g. no messages at
	// all). Invalid segments, overlaps and gaps are warnings, not errors.
	OK bool `json:"ok"`

	TotalSegments int `json:"total_segments"`
	ValidSegments int `json:"valid_segments"`

	// InvalidSegments lists segments that failed structural or temporal
	// checks, keyed by index. They are retained in the transcript.
	InvalidSegments []InvalidSegment `json:"invalid_segments"`

	// OmissionSuspects lists inter-segment gaps at or above the gap
	// threshold. Informational only — never auto-repaired.
	OmissionSuspects []Gap `json:"omission_suspects"`

	Overlaps     []Overlap     `json:"overlaps"`
	LongSegments []LongSegment `json:"long_segments"`

	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`

	Thresholds QAThresholds `json:"thresholds"`

	// SortedForAnalysis is true when the timeline analysis re-ordered valid
	// segments by start time. The transcript itself is never reordered.
	SortedForAnalysis bool `json:"sorted_for_analysis"`
}

// AddWarning appends a warning message to the report.
func (r *QAReport) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// SegmentReport is the transformation trace for one segment.
type SegmentReport struct {
	Index           int         `json:"index"`
	Speaker         string      `json:"speaker"`
	StartTime       float64     `json:"start_time"`
	EndTime         float64     `json:"end_time"`
	OriginalContent string      `json:"original_content"`
	EditedContent   string      `json:"edited_content"`
	Changed         bool        `json:"changed"`
	Ops             []Operation `json:"operations"`
}

// EditPolicy echoes which transform stages were active for a run. In degraded
// (context-free) mode the two context-derived stages are absent entirely.
type EditPolicy struct {
	GlossaryNormalization   bool `json:"glossary_normalization"`
	LanguageErrorCorrection bool `json:"language_error_correction"`
	RepetitionCollapse      bool `json:"repetition_collapse"`
	Punctuation             bool `json:"punctuation"`
	TimestampsPreserved     bool `json:"timestamps_preserved"`
	SpeakerLabelsPreserved  bool `json:"speaker_labels_preserved"`
}

// TransformationReport aggregates the per-segment transformation traces for a
// whole run.
type TransformationReport struct {
	Policy           EditPolicy      `json:"policy"`
	TotalSegments    int             `json:"total_segments"`
	SegmentsModified int             `json:"segments_modified"`
	Segments         []SegmentReport `json:"segment_reports"`
}

// AliasSuggestion is a report-only hint that a transcript token is
// phonetically close to a known glossary term. Suggestions never cause edits;
// they exist for human review.
type AliasSuggestion struct {
	SegmentIndex int     `json:"segment_index"`
	Token        string  `json:"token"`
	Term         string  `json:"term"`
	Score        float64 `json:"score"`
}
