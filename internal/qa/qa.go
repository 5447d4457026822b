// Package qa implements the structural/temporal quality checks and the
// omission-suspicion heuristics that run before any editing.
//
// Both passes are pure and non-mutating: invalid segments are retained with a
// report entry keyed by index, overlaps and gaps become warnings, and nothing
// here ever removes or rewrites content. The only fatal condition is a
// document with no messages at all, reported as a transcript-level error.
package qa

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/veracall/veracall/pkg/types"
)

const (
	// DefaultGapThreshold is the inter-segment silence, in seconds, at or
	// above which a gap becomes an omission suspect.
	DefaultGapThreshold = 2.0

	// DefaultLongSegmentThreshold is the segment duration, in seconds, at or
	// above which a segment is flagged as suspiciously long.
	DefaultLongSegmentThreshold = 25.0
)

// Config holds the omission-detection thresholds. Both boundaries are
// inclusive: a gap of exactly GapThreshold seconds is a suspect.
type Config struct {
	GapThreshold         float64
	LongSegmentThreshold float64
}

// DefaultConfig returns the standard thresholds (2.0s gap, 25.0s segment).
func DefaultConfig() Config {
	return Config{
		GapThreshold:         DefaultGapThreshold,
		LongSegmentThreshold: DefaultLongSegmentThreshold,
	}
}

// timedSegment pairs a segment index with its numeric timestamps for the
// timeline analysis. Only structurally valid segments participate.
type timedSegment struct {
	index int
	start float64
	end   float64
}

// Check runs segment validation followed by omission detection and returns
// the combined QA report. The document is never modified.
func Check(doc *types.Document, cfg Config) *types.QAReport {
	report := Validate(doc)
	DetectOmissions(doc, report, cfg)
	return report
}

// Validate performs per-segment structural and temporal checks plus the
// timeline overlap analysis. Invalid segments are recorded with a reason and
// retained; the report's OK flag clears only when the document carries no
// messages at all.
func Validate(doc *types.Document) *types.QAReport {
	report := &types.QAReport{
		OK:               true,
		InvalidSegments:  []types.InvalidSegment{},
		OmissionSuspects: []types.Gap{},
		Overlaps:         []types.Overlap{},
		LongSegments:     []types.LongSegment{},
		Warnings:         []string{},
		Errors:           []string{},
	}

	if doc == nil || len(doc.Messages) == 0 {
		report.OK = false
		report.Errors = append(report.Errors, "messages missing/empty")
		return report
	}
	report.TotalSegments = len(doc.Messages)

	valid := validSegments(doc, report)
	report.ValidSegments = len(valid)

	analyzed, reordered := sortForAnalysis(valid)
	report.SortedForAnalysis = true
	if reordered {
		report.AddWarning("segments were out of chronological order; sorted for analysis")
	}

	// Overlap check on adjacent analyzed pairs. Gaps belong to
	// DetectOmissions.
	for i := 1; i < len(analyzed); i++ {
		prev, next := analyzed[i-1], analyzed[i]
		if next.start < prev.end {
			report.Overlaps = append(report.Overlaps, types.Overlap{
				PrevIndex:      prev.index,
				NextIndex:      next.index,
				PrevEnd:        prev.end,
				NextStart:      next.start,
				OverlapSeconds: round3(prev.end - next.start),
			})
		}
	}

	if n := len(report.InvalidSegments); n > 0 {
		report.AddWarning(fmt.Sprintf("%d invalid segments detected (not removed)", n))
	}
	if n := len(report.Overlaps); n > 0 {
		report.AddWarning(fmt.Sprintf("%d overlaps detected", n))
	}

	return report
}

// DetectOmissions scans the valid segments of doc for large inter-segment
// gaps and unusually long segments and records them in report. Boundary
// values count: gap == threshold and duration == threshold are flagged.
// Purely additive; neither doc nor existing report entries are touched.
func DetectOmissions(doc *types.Document, report *types.QAReport, cfg Config) {
	report.Thresholds = types.QAThresholds{
		GapSeconds:         cfg.GapThreshold,
		LongSegmentSeconds: cfg.LongSegmentThreshold,
	}
	if doc == nil || len(doc.Messages) == 0 {
		return
	}

	valid := validSegments(doc, nil)
	analyzed, _ := sortForAnalysis(valid)

	for i := 1; i < len(analyzed); i++ {
		prev, next := analyzed[i-1], analyzed[i]
		if next.start < prev.end {
			continue // overlap, not a gap
		}
		if g := next.start - prev.end; g >= cfg.GapThreshold {
			report.OmissionSuspects = append(report.OmissionSuspects, types.Gap{
				PrevIndex:  prev.index,
				NextIndex:  next.index,
				PrevEnd:    prev.end,
				NextStart:  next.start,
				GapSeconds: round3(g),
			})
		}
	}

	for _, s := range valid {
		if dur := s.end - s.start; dur >= cfg.LongSegmentThreshold {
			report.LongSegments = append(report.LongSegments, types.LongSegment{
				Index:           s.index,
				StartTime:       s.start,
				EndTime:         s.end,
				DurationSeconds: round3(dur),
			})
		}
	}

	if n := len(report.OmissionSuspects); n > 0 {
		report.AddWarning(fmt.Sprintf("%d large gaps detected (>= %gs)", n, cfg.GapThreshold))
	}
	if n := len(report.LongSegments); n > 0 {
		report.AddWarning(fmt.Sprintf("%d long segments detected (>= %gs)", n, cfg.LongSegmentThreshold))
	}
}

// validSegments applies the per-segment structural checks and returns the
// segments that passed. When report is non-nil, failures are recorded on it.
func validSegments(doc *types.Document, report *types.QAReport) []timedSegment {
	var valid []timedSegment
	for i, m := range doc.Messages {
		reason := ""
		switch {
		case strings.TrimSpace(m.Speaker) == "":
			reason = "missing/invalid speaker"
		case strings.TrimSpace(m.Content) == "":
			reason = "missing/invalid content"
		case math.IsNaN(m.StartTime) || math.IsNaN(m.EndTime):
			reason = "missing/invalid timestamps"
		case m.StartTime < 0 || m.EndTime <= m.StartTime:
			reason = "invalid timestamps"
		}
		if reason != "" {
			if report != nil {
				report.InvalidSegments = append(report.InvalidSegments, types.InvalidSegment{
					Index:  i,
					Reason: reason,
				})
			}
			continue
		}
		valid = append(valid, timedSegment{index: i, start: m.StartTime, end: m.EndTime})
	}
	return valid
}

// sortForAnalysis returns the segments ordered by (start, end) and whether
// the order differed from input order. The input slice is not modified.
func sortForAnalysis(segs []timedSegment) (sorted []timedSegment, reordered bool) {
	sorted = make([]timedSegment, len(segs))
	copy(sorted, segs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].start != sorted[j].start {
			return sorted[i].start < sorted[j].start
		}
		return sorted[i].end < sorted[j].end
	})
	for i := range sorted {
		if sorted[i].index != segs[i].index {
			return sorted, true
		}
	}
	return sorted, false
}

// round3 rounds to millisecond precision for report readability.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
