package types_test

import (
	"strings"
	"testing"

	"github.com/veracall/veracall/pkg/types"
)

func TestDecodeDocument(t *testing.T) {
	t.Parallel()

	in := `{
		"transcript_id": "t-1",
		"messages": [
			{"speaker": "speaker_0", "start_time": 0, "end_time": 2.5, "content": "bonjour"},
			{"speaker": "speaker_1", "start_time": 3, "end_time": 4, "content": "bonjour à vous"}
		]
	}`
	doc, err := types.DecodeDocument(strings.NewReader(in))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	if doc.TranscriptID != "t-1" || len(doc.Messages) != 2 {
		t.Errorf("doc = %+v", doc)
	}
	if doc.Messages[1].StartTime != 3 || doc.Messages[1].Content != "bonjour à vous" {
		t.Errorf("Messages[1] = %+v", doc.Messages[1])
	}
}

func TestDecodeDocument_Unparsable(t *testing.T) {
	t.Parallel()

	if _, err := types.DecodeDocument(strings.NewReader("{not json")); err == nil {
		t.Fatal("DecodeDocument accepted unparsable input")
	}
}

func TestNewTranscript_CopiesContent(t *testing.T) {
	t.Parallel()

	doc := &types.Document{
		TranscriptID: "t-2",
		Messages: []types.Message{
			{Speaker: "speaker_0", StartTime: 0, EndTime: 1, Content: "oui"},
		},
	}
	tr := types.NewTranscript(doc)
	if tr.ID != "t-2" || len(tr.Segments) != 1 {
		t.Fatalf("transcript = %+v", tr)
	}
	s := tr.Segments[0]
	if s.OriginalContent != "oui" || s.EditedContent != "oui" {
		t.Errorf("segment contents = %q / %q, want both \"oui\"", s.OriginalContent, s.EditedContent)
	}
	if s.Speaker != "speaker_0" || s.StartTime != 0 || s.EndTime != 1 {
		t.Errorf("segment identity = %+v", s)
	}
}

func TestFullText_JoinsOriginals(t *testing.T) {
	t.Parallel()

	tr := &types.Transcript{Segments: []types.Segment{
		{OriginalContent: "première ligne", EditedContent: "Première ligne."},
		{OriginalContent: "deuxième ligne", EditedContent: "Deuxième ligne."},
	}}
	want := "première ligne\ndeuxième ligne"
	if got := tr.FullText(); got != want {
		t.Errorf("FullText() = %q, want %q", got, want)
	}
}

func TestSpeakers_FirstAppearanceOrder(t *testing.T) {
	t.Parallel()

	doc := &types.Document{Messages: []types.Message{
		{Speaker: "speaker_1"},
		{Speaker: "speaker_0"},
		{Speaker: "speaker_1"},
	}}
	got := doc.Speakers()
	if len(got) != 2 || got[0] != "speaker_1" || got[1] != "speaker_0" {
		t.Errorf("Speakers() = %v", got)
	}
}

func TestSegmentDuration(t *testing.T) {
	t.Parallel()

	s := &types.Segment{StartTime: 1.5, EndTime: 4}
	if got := s.Duration(); got != 2.5 {
		t.Errorf("Duration() = %v, want 2.5", got)
	}
}
