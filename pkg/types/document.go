package types

import (
	"encoding/json"
	"fmt"
	"io"
)

// Message is one entry of the external input document's messages list, in the
// wire shape produced by upstream transcription tooling.
type Message struct {
	Speaker   string  `json:"speaker"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Content   string  `json:"content"`
}

// Document is the external JSON input consumed by the pipeline.
type Document struct {
	TranscriptID string    `json:"transcript_id"`
	Messages     []Message `json:"messages"`
}

// OutputDocument is the external JSON output produced by the pipeline: the
// transcript with edited content plus the QA report, the (optionally)
// validated context, and the transformation trace.
type OutputDocument struct {
	TranscriptID         string                `json:"transcript_id"`
	Messages             []Message             `json:"messages"`
	QAReport             *QAReport             `json:"qa_report"`
	Context              *ContextBundle        `json:"context_inferred,omitempty"`
	TransformationReport *TransformationReport `json:"transformation_report"`
	AliasSuggestions     []AliasSuggestion     `json:"alias_suggestions,omitempty"`
}

// DecodeDocument reads a JSON input document from r. A document that cannot
// be parsed at all is the single fatal input condition of the pipeline;
// structurally questionable but parsable documents are left for QA to report
// on.
func DecodeDocument(r io.Reader) (*Document, error) {
	dec := json.NewDecoder(r)
	doc := &Document{}
	if err := dec.Decode(doc); err != nil {
		return nil, fmt.Errorf("types: decode input document: %w", err)
	}
	return doc, nil
}

// NewTranscript builds a [Transcript] from an input document. Every segment's
// EditedContent starts as a copy of its OriginalContent.
func NewTranscript(doc *Document) *Transcript {
	t := &Transcript{
		ID:       doc.TranscriptID,
		Segments: make([]Segment, len(doc.Messages)),
	}
	for i, m := range doc.Messages {
		t.Segments[i] = Segment{
			Speaker:         m.Speaker,
			StartTime:       m.StartTime,
			EndTime:         m.EndTime,
			OriginalContent: m.Content,
			EditedContent:   m.Content,
		}
	}
	return t
}

// Speakers returns the distinct speaker labels of the document, in first
// appearance order.
func (d *Document) Speakers() []string {
	seen := make(map[string]struct{}, 4)
	var out []string
	for _, m := range d.Messages {
		if _, ok := seen[m.Speaker]; ok {
			continue
		}
		seen[m.Speaker] = struct{}{}
		out = append(out, m.Speaker)
	}
	return out
}
