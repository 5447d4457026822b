package archive_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/veracall/veracall/internal/archive"
	"github.com/veracall/veracall/pkg/types"
)

func openTestStore(t *testing.T) *archive.Store {
	t.Helper()
	s, err := archive.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleOutput(transcriptID string) *types.OutputDocument {
	return &types.OutputDocument{
		TranscriptID: transcriptID,
		Messages: []types.Message{
			{Speaker: "speaker_0", StartTime: 0, EndTime: 2, Content: "Oui je confirme."},
		},
		QAReport: &types.QAReport{OK: true, TotalSegments: 1, ValidSegments: 1},
		TransformationReport: &types.TransformationReport{
			TotalSegments:    1,
			SegmentsModified: 1,
			Segments: []types.SegmentReport{{
				Index:           0,
				OriginalContent: "oui oui je confirme",
				EditedContent:   "Oui je confirme.",
				Changed:         true,
				Ops: []types.Operation{
					{Kind: types.OpRepetitionCollapse, Confidence: 0.9, Source: types.OpSourceRule},
					{Kind: types.OpPunctuate, Confidence: 0.8, Source: types.OpSourceRule},
				},
			}},
		},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	runID, err := s.SaveRun(ctx, sampleOutput("t-42"), false)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if runID == "" {
		t.Fatal("SaveRun returned empty run ID")
	}

	rec, out, err := s.GetRun(ctx, runID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if rec.TranscriptID != "t-42" {
		t.Errorf("TranscriptID = %q, want t-42", rec.TranscriptID)
	}
	if rec.Degraded {
		t.Error("Degraded = true, want false")
	}
	if rec.SegmentsTotal != 1 || rec.SegmentsModified != 1 || rec.OpsApplied != 2 {
		t.Errorf("counts = %+v", rec)
	}
	if out.TranscriptID != "t-42" || len(out.Messages) != 1 {
		t.Errorf("round-tripped output = %+v", out)
	}
	if out.Messages[0].Content != "Oui je confirme." {
		t.Errorf("Content = %q", out.Messages[0].Content)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, _, err := s.GetRun(context.Background(), "missing")
	if !errors.Is(err, archive.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListRuns_MostRecentFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"t-1", "t-2", "t-3"} {
		if _, err := s.SaveRun(ctx, sampleOutput(id), id == "t-2"); err != nil {
			t.Fatalf("SaveRun(%s): %v", id, err)
		}
	}

	runs, err := s.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}

	degraded := 0
	for _, r := range runs {
		if r.Degraded {
			degraded++
		}
	}
	if degraded != 1 {
		t.Errorf("got %d degraded runs, want 1", degraded)
	}

	limited, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns(2): %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d runs with limit 2, want 2", len(limited))
	}
}
