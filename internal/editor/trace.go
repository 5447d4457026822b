package editor

import "github.com/veracall/veracall/pkg/types"

// BuildReport assembles the run-level transformation report from the edited
// transcript. It is a pure recorder: every operation a segment accumulated is
// carried over in application order, with no filtering or reordering.
func BuildReport(t *types.Transcript, policy types.EditPolicy) *types.TransformationReport {
	report := &types.TransformationReport{
		Policy:        policy,
		TotalSegments: len(t.Segments),
		Segments:      make([]types.SegmentReport, len(t.Segments)),
	}
	for i := range t.Segments {
		s := &t.Segments[i]
		changed := s.EditedContent != s.OriginalContent
		if changed {
			report.SegmentsModified++
		}
		report.Segments[i] = types.SegmentReport{
			Index:           i,
			Speaker:         s.Speaker,
			StartTime:       s.StartTime,
			EndTime:         s.EndTime,
			OriginalContent: s.OriginalContent,
			EditedContent:   s.EditedContent,
			Changed:         changed,
			Ops:             s.Ops,
		}
	}
	return report
}
