package suggest_test

import (
	"testing"

	"github.com/veracall/veracall/internal/suggest"
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

func glossary(terms ...string) *types.ContextBundle {
	b := &types.ContextBundle{}
	for _, t := range terms {
		b.Glossary = append(b.Glossary, types.GlossaryCandidate{Term: t, Confidence: 0.9, Validated: true})
	}
	return b
}

func TestSuggest_PhoneticNearMiss(t *testing.T) {
	t.Parallel()

	s := suggest.New()
	got := s.Suggest(transcript("on déploie sur cubernetes demain"), glossary("kubernetes"))

	if len(got) != 1 {
		t.Fatalf("got %d suggestions, want 1: %+v", len(got), got)
	}
	sg := got[0]
	if sg.Token != "cubernetes" || sg.Term != "kubernetes" {
		t.Errorf("suggestion=%+v, want cubernetes → kubernetes", sg)
	}
	if sg.SegmentIndex != 0 {
		t.Errorf("SegmentIndex=%d, want 0", sg.SegmentIndex)
	}
	if sg.Score < 0.70 || sg.Score > 1 {
		t.Errorf("Score=%v, want within (0.70, 1]", sg.Score)
	}
}

func TestSuggest_ExactTermNotSuggested(t *testing.T) {
	t.Parallel()

	s := suggest.New()
	got := s.Suggest(transcript("on déploie sur kubernetes demain"), glossary("kubernetes"))

	if len(got) != 0 {
		t.Errorf("got %d suggestions for a verbatim term, want 0: %+v", len(got), got)
	}
}

func TestSuggest_KnownAliasNotSuggested(t *testing.T) {
	t.Parallel()

	b := glossary("kubernetes")
	b.Glossary[0].Aliases = []string{"cubernetes"}

	s := suggest.New()
	got := s.Suggest(transcript("on déploie sur cubernetes demain"), b)

	if len(got) != 0 {
		t.Errorf("got %d suggestions for a known alias, want 0: %+v", len(got), got)
	}
}

func TestSuggest_UnrelatedTokensProduceNothing(t *testing.T) {
	t.Parallel()

	s := suggest.New()
	got := s.Suggest(transcript("bonjour madame merci beaucoup"), glossary("kubernetes"))

	if len(got) != 0 {
		t.Errorf("got %d suggestions, want 0: %+v", len(got), got)
	}
}

func TestSuggest_DedupAcrossSegments(t *testing.T) {
	t.Parallel()

	s := suggest.New()
	got := s.Suggest(
		transcript("cubernetes est lent", "toujours cubernetes"),
		glossary("kubernetes"),
	)

	if len(got) != 1 {
		t.Errorf("got %d suggestions for a repeated token, want 1: %+v", len(got), got)
	}
}

func TestSuggest_PunctuationStripped(t *testing.T) {
	t.Parallel()

	s := suggest.New()
	got := s.Suggest(transcript("on passe à cubernetes."), glossary("kubernetes"))

	if len(got) != 1 {
		t.Fatalf("got %d suggestions, want 1: %+v", len(got), got)
	}
	if got[0].Token != "cubernetes" {
		t.Errorf("Token=%q, want trailing punctuation stripped", got[0].Token)
	}
}

func TestSuggest_NilBundle(t *testing.T) {
	t.Parallel()

	s := suggest.New()
	if got := s.Suggest(transcript("peu importe"), nil); got != nil {
		t.Errorf("got %v for nil bundle, want nil", got)
	}
}
