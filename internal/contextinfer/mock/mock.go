// Package mock provides a test double for the contextinfer.Inferencer
// interface so pipeline tests can run without a live LLM backend.
package mock

import (
	"context"
	"sync"

	"github.com/veracall/veracall/internal/contextinfer"
	"github.com/veracall/veracall/pkg/types"
)

// InferCall records a single invocation of Infer.
type InferCall struct {
	Ctx context.Context
	Doc *types.Document
}

// Inferencer is a mock implementation of contextinfer.Inferencer.
type Inferencer struct {
	mu sync.Mutex

	// Bundle is returned by Infer when Err is nil.
	Bundle *types.ContextBundle

	// Err, if non-nil, is returned as the error from Infer.
	Err error

	// InferCalls records every invocation of Infer in order.
	InferCalls []InferCall
}

// Infer records the call and returns the configured bundle/error pair.
func (m *Inferencer) Infer(ctx context.Context, doc *types.Document) (*types.ContextBundle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InferCalls = append(m.InferCalls, InferCall{Ctx: ctx, Doc: doc})
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Bundle, nil
}

// Ensure Inferencer implements contextinfer.Inferencer at compile time.
var _ contextinfer.Inferencer = (*Inferencer)(nil)
