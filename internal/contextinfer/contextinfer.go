// Package contextinfer talks to the external context-inference collaborator:
// a language model asked to extract, with verbatim evidence, the call domain,
// speaker roles, glossary candidates, and language errors from a transcript.
//
// The collaborator is untrusted by design. Its output is strictly
// schema-validated here (shape, enums, confidence ranges) and then
// evidence-validated downstream; nothing it returns reaches a transcript
// without passing both gates. The inference call is the single blocking
// external I/O of a pipeline run, so it carries an explicit per-attempt
// timeout and a bounded fixed-backoff retry before the caller degrades to
// context-free editing.
package contextinfer

import (
	"context"
	"errors"

	"github.com/veracall/veracall/pkg/types"
)

// ErrMalformedBundle indicates the collaborator returned a response that
// failed strict schema validation.
var ErrMalformedBundle = errors.New("contextinfer: malformed context bundle")

// Inferencer produces a context bundle for a transcript document.
// Implementations must honour ctx cancellation.
type Inferencer interface {
	Infer(ctx context.Context, doc *types.Document) (*types.ContextBundle, error)
}
