package evidence_test

import (
	"testing"

	"github.com/veracall/veracall/internal/evidence"
	"github.com/veracall/veracall/pkg/types"
)

func transcript(contents ...string) *types.Transcript {
	t := &types.Transcript{ID: "t-1", Segments: make([]types.Segment, len(contents))}
	for i, c := range contents {
		t.Segments[i] = types.Segment{
			Speaker:         "speaker_0",
			StartTime:       float64(i),
			EndTime:         float64(i) + 1,
			OriginalContent: c,
			EditedContent:   c,
		}
	}
	return t
}

func TestValidate_ExactSubstringPasses(t *testing.T) {
	t.Parallel()

	tr := transcript("on utilise le CRM tous les jours")
	bundle := &types.ContextBundle{
		Glossary: []types.GlossaryCandidate{{
			Term:       "Customer Relationship Management",
			Aliases:    []string{"CRM"},
			Confidence: 0.95,
			Evidence: []types.EvidenceQuote{
				{Text: "le CRM tous", SegmentIndex: 0},
			},
		}},
	}

	report := evidence.Validate(tr, bundle)

	if !bundle.Glossary[0].Validated {
		t.Error("Validated=false, want true for exact substring quote")
	}
	if bundle.Glossary[0].Confidence != 0.95 {
		t.Errorf("Confidence=%v, want 0.95 preserved", bundle.Glossary[0].Confidence)
	}
	if !bundle.Glossary[0].Evidence[0].Validated {
		t.Error("quote Validated=false, want true")
	}
	if report.ValidatedHypotheses != 1 || report.DemotedHypotheses != 0 {
		t.Errorf("report=%+v, want 1 validated, 0 demoted", report)
	}
}

func TestValidate_NoFuzzyMatching(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		quote string
	}{
		{"case differs", "LE CRM"},
		{"whitespace differs", "le  CRM"},
		{"paraphrase", "ils utilisent le CRM"},
		{"empty quote", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tr := transcript("on utilise le CRM tous les jours")
			bundle := &types.ContextBundle{
				Glossary: []types.GlossaryCandidate{{
					Term:       "Customer Relationship Management",
					Confidence: 0.95,
					Evidence: []types.EvidenceQuote{
						{Text: tt.quote, SegmentIndex: 0},
					},
				}},
			}

			evidence.Validate(tr, bundle)

			c := bundle.Glossary[0]
			if c.Validated {
				t.Errorf("Validated=true for quote %q, want false", tt.quote)
			}
			if c.Confidence != 0 {
				t.Errorf("Confidence=%v after demotion, want 0", c.Confidence)
			}
		})
	}
}

func TestValidate_CitedQuoteCheckedAgainstCitedSegmentOnly(t *testing.T) {
	t.Parallel()

	tr := transcript("bonjour madame", "le dossier est prêt")
	bundle := &types.ContextBundle{
		LanguageErrors: []types.LanguageError{{
			ErrorType:     "spelling",
			IncorrectText: "dossier",
			CorrectForm:   "dossier",
			Confidence:    0.9,
			// Quote exists in segment 1, but the citation says segment 0.
			Evidence: []types.EvidenceQuote{
				{Text: "le dossier", SegmentIndex: 0},
			},
		}},
	}

	evidence.Validate(tr, bundle)

	if bundle.LanguageErrors[0].Validated {
		t.Error("Validated=true for quote citing the wrong segment, want false")
	}
}

func TestValidate_UncitedQuoteCheckedAgainstFullText(t *testing.T) {
	t.Parallel()

	tr := transcript("bonjour madame", "le dossier est prêt")
	bundle := &types.ContextBundle{
		LanguageErrors: []types.LanguageError{{
			ErrorType:     "grammar",
			IncorrectText: "est prêt",
			CorrectForm:   "est prêt",
			Confidence:    0.8,
			Evidence: []types.EvidenceQuote{
				{Text: "le dossier est prêt", SegmentIndex: types.UncitedSegment},
			},
		}},
	}

	evidence.Validate(tr, bundle)

	if !bundle.LanguageErrors[0].Validated {
		t.Error("Validated=false for uncited quote present in full text, want true")
	}
}

func TestValidate_OutOfRangeCitationFails(t *testing.T) {
	t.Parallel()

	tr := transcript("bonjour")
	bundle := &types.ContextBundle{
		Glossary: []types.GlossaryCandidate{{
			Term:       "x",
			Confidence: 0.9,
			Evidence:   []types.EvidenceQuote{{Text: "bonjour", SegmentIndex: 7}},
		}},
	}

	report := evidence.Validate(tr, bundle)

	if bundle.Glossary[0].Validated {
		t.Error("Validated=true for out-of-range citation, want false")
	}
	if report.QuotesFailed != 1 {
		t.Errorf("QuotesFailed=%d, want 1", report.QuotesFailed)
	}
}

func TestValidate_NoQuotesMeansDemotion(t *testing.T) {
	t.Parallel()

	tr := transcript("bonjour")
	bundle := &types.ContextBundle{
		Glossary: []types.GlossaryCandidate{{
			Term:       "x",
			Confidence: 0.99,
		}},
	}

	report := evidence.Validate(tr, bundle)

	c := bundle.Glossary[0]
	if c.Validated || c.Confidence != 0 {
		t.Errorf("hypothesis without quotes: Validated=%v Confidence=%v, want false/0", c.Validated, c.Confidence)
	}
	if report.MissingQuotes != 1 {
		t.Errorf("MissingQuotes=%d, want 1", report.MissingQuotes)
	}
}

func TestValidate_OneBadQuoteDemotesWholeHypothesis(t *testing.T) {
	t.Parallel()

	tr := transcript("on utilise le CRM")
	bundle := &types.ContextBundle{
		Glossary: []types.GlossaryCandidate{{
			Term:       "Customer Relationship Management",
			Confidence: 0.95,
			Evidence: []types.EvidenceQuote{
				{Text: "le CRM", SegmentIndex: 0},
				{Text: "not in transcript", SegmentIndex: 0},
			},
		}},
	}

	evidence.Validate(tr, bundle)

	c := bundle.Glossary[0]
	if c.Validated {
		t.Error("Validated=true with one failing quote, want false")
	}
	if !c.Evidence[0].Validated {
		t.Error("first quote should still be individually marked validated")
	}
	if c.Evidence[1].Validated {
		t.Error("second quote wrongly marked validated")
	}
}

func TestValidate_ChecksOriginalContentNotEdited(t *testing.T) {
	t.Parallel()

	tr := transcript("on utilise le CRM")
	tr.Segments[0].EditedContent = "on utilise le Customer Relationship Management"
	bundle := &types.ContextBundle{
		Glossary: []types.GlossaryCandidate{{
			Term:       "x",
			Confidence: 0.9,
			Evidence: []types.EvidenceQuote{
				{Text: "le Customer Relationship", SegmentIndex: 0},
			},
		}},
	}

	evidence.Validate(tr, bundle)

	if bundle.Glossary[0].Validated {
		t.Error("quote matched edited content; evidence must check original content only")
	}
}

func TestValidate_DomainEvidenceAnnotatedButNeverDemotes(t *testing.T) {
	t.Parallel()

	tr := transcript("bonjour")
	bundle := &types.ContextBundle{
		Domain:           "support",
		DomainConfidence: 0.7,
		DomainEvidence: []types.EvidenceQuote{
			{Text: "nowhere", SegmentIndex: types.UncitedSegment},
		},
	}

	report := evidence.Validate(tr, bundle)

	if bundle.DomainEvidence[0].Validated {
		t.Error("domain quote wrongly validated")
	}
	if bundle.DomainConfidence != 0.7 {
		t.Errorf("DomainConfidence=%v, want 0.7 untouched", bundle.DomainConfidence)
	}
	if report.DemotedHypotheses != 0 {
		t.Errorf("DemotedHypotheses=%d, want 0 for domain-only bundle", report.DemotedHypotheses)
	}
}

func TestValidate_NilBundle(t *testing.T) {
	t.Parallel()

	report := evidence.Validate(transcript("a"), nil)
	if report.TotalHypotheses != 0 || report.QuotesChecked != 0 {
		t.Errorf("report=%+v, want empty for nil bundle", report)
	}
}
