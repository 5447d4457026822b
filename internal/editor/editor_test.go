package editor_test

import (
	"testing"

	"github.com/veracall/veracall/internal/editor"
	"github.com/veracall/veracall/pkg/types"
)

func segment(content string) *types.Segment {
	return &types.Segment{
		Speaker:         "speaker_0",
		StartTime:       1.5,
		EndTime:         4.2,
		OriginalContent: content,
		EditedContent:   content,
	}
}

func glossaryBundle(term string, confidence float64, aliases ...string) *types.ContextBundle {
	return &types.ContextBundle{
		Glossary: []types.GlossaryCandidate{{
			Term:       term,
			Aliases:    aliases,
			Confidence: confidence,
			Validated:  true,
		}},
	}
}

func TestApply_GlossaryNormalization(t *testing.T) {
	t.Parallel()

	e := editor.New(editor.DefaultConfig(), glossaryBundle("Customer Relationship Management", 0.95, "CRM"))
	seg := segment("on utilise le CRM")
	e.Apply(seg)

	if seg.EditedContent != "On utilise le Customer Relationship Management." {
		t.Errorf("EditedContent=%q", seg.EditedContent)
	}

	var glossaryOps []types.Operation
	for _, op := range seg.Ops {
		if op.Kind == types.OpGlossaryNormalize {
			glossaryOps = append(glossaryOps, op)
		}
	}
	if len(glossaryOps) != 1 {
		t.Fatalf("got %d glossary ops, want 1: %+v", len(glossaryOps), seg.Ops)
	}
	op := glossaryOps[0]
	if op.Before != "CRM" || op.After != "Customer Relationship Management" {
		t.Errorf("op spans=(%q,%q)", op.Before, op.After)
	}
	if op.Confidence != 0.95 {
		t.Errorf("op Confidence=%v, want hypothesis confidence 0.95", op.Confidence)
	}
	if op.Source != types.OpSourceContextBundle {
		t.Errorf("op Source=%q, want context_bundle", op.Source)
	}
}

func TestApply_GlossaryOneOpPerOccurrence(t *testing.T) {
	t.Parallel()

	e := editor.New(editor.DefaultConfig(), glossaryBundle("Customer Relationship Management", 0.95, "CRM"))
	seg := segment("le CRM et encore le CRM")
	e.Apply(seg)

	n := 0
	for _, op := range seg.Ops {
		if op.Kind == types.OpGlossaryNormalize {
			n++
		}
	}
	if n != 2 {
		t.Errorf("got %d glossary ops for two occurrences, want 2", n)
	}
}

func TestApply_GlossaryBelowThresholdNeverApplied(t *testing.T) {
	t.Parallel()

	// Validated but below the 0.9 gate.
	e := editor.New(editor.DefaultConfig(), glossaryBundle("Customer Relationship Management", 0.85, "CRM"))
	seg := segment("on utilise le CRM")
	e.Apply(seg)

	if seg.EditedContent != "On utilise le CRM." {
		t.Errorf("EditedContent=%q, below-threshold candidate was applied", seg.EditedContent)
	}
}

func TestApply_UnvalidatedGlossaryNeverApplied(t *testing.T) {
	t.Parallel()

	bundle := glossaryBundle("Customer Relationship Management", 0.99, "CRM")
	bundle.Glossary[0].Validated = false
	e := editor.New(editor.DefaultConfig(), bundle)
	seg := segment("on utilise le CRM")
	e.Apply(seg)

	if seg.EditedContent != "On utilise le CRM." {
		t.Errorf("EditedContent=%q, unvalidated candidate was applied", seg.EditedContent)
	}
}

func TestApply_GlossaryTokenBoundary(t *testing.T) {
	t.Parallel()

	e := editor.New(editor.DefaultConfig(), glossaryBundle("Customer Relationship Management", 0.95, "CRM"))
	seg := segment("le CRMX reste intact")
	e.Apply(seg)

	if seg.EditedContent != "Le CRMX reste intact." {
		t.Errorf("EditedContent=%q, alias matched inside a longer word", seg.EditedContent)
	}
}

func TestApply_GlossaryPreservesLeadingCase(t *testing.T) {
	t.Parallel()

	e := editor.New(editor.DefaultConfig(), glossaryBundle("visioconférence", 0.95, "visio"))
	seg := segment("Visio demain matin")
	e.Apply(seg)

	if seg.EditedContent != "Visioconférence demain matin." {
		t.Errorf("EditedContent=%q, want capitalized canonical form", seg.EditedContent)
	}
}

func TestApply_LanguageCorrection(t *testing.T) {
	t.Parallel()

	bundle := &types.ContextBundle{
		LanguageErrors: []types.LanguageError{{
			ErrorType:     "conjugation",
			IncorrectText: "ils sava",
			CorrectForm:   "ils savaient",
			Confidence:    0.9,
			Validated:     true,
		}},
	}
	e := editor.New(editor.DefaultConfig(), bundle)
	seg := segment("ils sava pas quoi faire")
	e.Apply(seg)

	if seg.EditedContent != "Ils savaient pas quoi faire." {
		t.Errorf("EditedContent=%q", seg.EditedContent)
	}

	found := false
	for _, op := range seg.Ops {
		if op.Kind == types.OpLanguageCorrect {
			found = true
			if op.Confidence != 0.9 {
				t.Errorf("op Confidence=%v, want 0.9", op.Confidence)
			}
		}
	}
	if !found {
		t.Error("no language_correct operation recorded")
	}
}

func TestApply_LanguageBelowGateNeverApplied(t *testing.T) {
	t.Parallel()

	bundle := &types.ContextBundle{
		LanguageErrors: []types.LanguageError{{
			ErrorType:     "spelling",
			IncorrectText: "sava",
			CorrectForm:   "savait",
			Confidence:    0.79,
			Validated:     true,
		}},
	}
	e := editor.New(editor.DefaultConfig(), bundle)
	seg := segment("il sava")
	e.Apply(seg)

	if seg.EditedContent != "Il sava." {
		t.Errorf("EditedContent=%q, correction below 0.80 was applied", seg.EditedContent)
	}
}

func TestApply_EarlierStageWinsOnOverlappingSpans(t *testing.T) {
	t.Parallel()

	// The glossary rewrites "CRM"; the language correction anchored on
	// "le CRM" then no longer matches and must be skipped without an op.
	bundle := glossaryBundle("Customer Relationship Management", 0.95, "CRM")
	bundle.LanguageErrors = []types.LanguageError{{
		ErrorType:     "grammar",
		IncorrectText: "le CRM",
		CorrectForm:   "la CRM",
		Confidence:    0.9,
		Validated:     true,
	}}
	e := editor.New(editor.DefaultConfig(), bundle)
	seg := segment("on utilise le CRM")
	e.Apply(seg)

	if seg.EditedContent != "On utilise le Customer Relationship Management." {
		t.Errorf("EditedContent=%q", seg.EditedContent)
	}
	for _, op := range seg.Ops {
		if op.Kind == types.OpLanguageCorrect {
			t.Errorf("language op recorded for a span consumed by the glossary stage: %+v", op)
		}
	}
}

func TestApply_DegradedModeRunsRuleStagesOnly(t *testing.T) {
	t.Parallel()

	e := editor.New(editor.DefaultConfig(), nil)

	policy := e.Policy()
	if policy.GlossaryNormalization || policy.LanguageErrorCorrection {
		t.Errorf("degraded policy has context stages active: %+v", policy)
	}
	if !policy.RepetitionCollapse || !policy.Punctuation {
		t.Errorf("degraded policy lost rule stages: %+v", policy)
	}

	seg := segment("oui oui je confirme")
	e.Apply(seg)
	if seg.EditedContent != "Oui je confirme." {
		t.Errorf("EditedContent=%q", seg.EditedContent)
	}
	for _, op := range seg.Ops {
		if op.Source != types.OpSourceRule {
			t.Errorf("degraded mode emitted non-rule op: %+v", op)
		}
	}
}

func TestApply_PreservesSegmentIdentity(t *testing.T) {
	t.Parallel()

	e := editor.New(editor.DefaultConfig(), glossaryBundle("Customer Relationship Management", 0.95, "CRM"))
	seg := segment("le CRM le CRM")
	e.Apply(seg)

	if seg.Speaker != "speaker_0" || seg.StartTime != 1.5 || seg.EndTime != 4.2 {
		t.Errorf("segment identity mutated: %+v", seg)
	}
	if seg.OriginalContent != "le CRM le CRM" {
		t.Errorf("OriginalContent mutated: %q", seg.OriginalContent)
	}
}

func TestApply_OpsInApplicationOrder(t *testing.T) {
	t.Parallel()

	e := editor.New(editor.DefaultConfig(), glossaryBundle("Customer Relationship Management", 0.95, "CRM"))
	seg := segment("le le CRM")
	e.Apply(seg)

	var kinds []types.OpKind
	for _, op := range seg.Ops {
		kinds = append(kinds, op.Kind)
	}
	want := []types.OpKind{types.OpGlossaryNormalize, types.OpRepetitionCollapse, types.OpPunctuate}
	if len(kinds) != len(want) {
		t.Fatalf("got kinds %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("got kinds %v, want %v", kinds, want)
		}
	}
	for _, op := range seg.Ops {
		if op.Confidence < 0 || op.Confidence > 1 {
			t.Errorf("op confidence out of range: %+v", op)
		}
		if op.Kind == "" {
			t.Errorf("op with empty kind: %+v", op)
		}
	}
}

func TestCollapseRepetitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		ops  int
	}{
		{"oui oui je confirme", "oui je confirme", 1},
		{"de de de la part", "de la part", 1},
		{"Oui, oui je vois", "Oui, je vois", 1},
		{"oui oui. Bon", "oui. Bon", 1},
		{"oui oui ", "oui ", 1},
		{"bon bon.  ", "bon.  ", 1},
		{"rien à collapser", "rien à collapser", 0},
		{"de de et et", "de et", 2},
		{"", "", 0},
	}
	for _, tt := range tests {
		got, ops := editor.CollapseRepetitions(tt.in)
		if got != tt.want {
			t.Errorf("CollapseRepetitions(%q)=%q, want %q", tt.in, got, tt.want)
		}
		if len(ops) != tt.ops {
			t.Errorf("CollapseRepetitions(%q): %d ops, want %d", tt.in, len(ops), tt.ops)
		}
	}
}

func TestApply_CollapsesFinalWordInWhitespaceTerminatedText(t *testing.T) {
	t.Parallel()

	// A duplicate at the very end of whitespace-terminated input must still
	// collapse; the punctuator then trims and terminates the single word.
	e := editor.New(editor.DefaultConfig(), nil)
	seg := segment("oui oui ")
	e.Apply(seg)

	if seg.EditedContent != "Oui." {
		t.Errorf("EditedContent=%q, want %q", seg.EditedContent, "Oui.")
	}
	n := 0
	for _, op := range seg.Ops {
		if op.Kind == types.OpRepetitionCollapse {
			n++
		}
	}
	if n != 1 {
		t.Errorf("got %d repetition ops, want 1: %+v", n, seg.Ops)
	}
}

func TestCollapseRepetitions_Idempotent(t *testing.T) {
	t.Parallel()

	once, _ := editor.CollapseRepetitions("oui oui oui je je confirme")
	twice, ops := editor.CollapseRepetitions(once)
	if twice != once {
		t.Errorf("second pass changed text: %q → %q", once, twice)
	}
	if len(ops) != 0 {
		t.Errorf("second pass emitted %d ops, want 0", len(ops))
	}
}

func TestPunctuate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		ops  int
	}{
		{"oui je confirme", "Oui je confirme.", 1},
		{"déjà ponctué !", "Déjà ponctué !", 1},
		{"Rien à faire.", "Rien à faire.", 0},
		{"fin en deux-points :", "Fin en deux-points :", 1},
		{"  espace autour  ", "Espace autour.", 1},
		{"", "", 0},
		{"   ", "   ", 0},
	}
	for _, tt := range tests {
		got, ops := editor.Punctuate(tt.in)
		if got != tt.want {
			t.Errorf("Punctuate(%q)=%q, want %q", tt.in, got, tt.want)
		}
		if len(ops) != tt.ops {
			t.Errorf("Punctuate(%q): %d ops, want %d", tt.in, len(ops), tt.ops)
		}
	}
}

func TestPunctuate_Idempotent(t *testing.T) {
	t.Parallel()

	once, _ := editor.Punctuate("oui je confirme")
	twice, ops := editor.Punctuate(once)
	if twice != once {
		t.Errorf("second pass changed text: %q → %q", once, twice)
	}
	if len(ops) != 0 {
		t.Errorf("second pass emitted %d ops, want 0", len(ops))
	}
}

func TestBuildReport(t *testing.T) {
	t.Parallel()

	tr := &types.Transcript{ID: "t-1", Segments: []types.Segment{
		*segment("oui oui"),
		*segment("Rien à signaler."),
	}}
	e := editor.New(editor.DefaultConfig(), nil)
	for i := range tr.Segments {
		e.Apply(&tr.Segments[i])
	}

	report := editor.BuildReport(tr, e.Policy())

	if report.TotalSegments != 2 {
		t.Errorf("TotalSegments=%d, want 2", report.TotalSegments)
	}
	if report.SegmentsModified != 1 {
		t.Errorf("SegmentsModified=%d, want 1", report.SegmentsModified)
	}
	if len(report.Segments) != 2 {
		t.Fatalf("got %d segment reports, want 2", len(report.Segments))
	}
	first := report.Segments[0]
	if !first.Changed || first.OriginalContent != "oui oui" || first.EditedContent != "Oui." {
		t.Errorf("first report=%+v", first)
	}
	if len(first.Ops) != 2 {
		t.Errorf("first report has %d ops, want collapse + punctuate", len(first.Ops))
	}
	if report.Segments[1].Changed {
		t.Error("unchanged segment reported as changed")
	}
}
