// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify the prompts the inference layer sends
// and to feed controlled responses without a live LLM backend. All fields are
// safe to set before calling any method; mutating them during a concurrent
// call is the caller's responsibility.
//
// Example:
//
//	p := &mock.Provider{
//	    CompleteResponse: &llm.CompletionResponse{Content: `{"domain_guess": ...}`},
//	}
//	resp, err := p.Complete(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/veracall/veracall/pkg/provider/llm"
)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Req is the CompletionRequest passed to Complete.
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider.
// Zero values for response fields cause Complete to return nil, nil.
// Set CompleteErr to inject an error; set Responses to script a sequence of
// distinct replies across calls (useful for retry tests).
type Provider struct {
	mu sync.Mutex

	// CompleteResponse is returned by Complete when Responses is empty.
	CompleteResponse *llm.CompletionResponse

	// CompleteErr, if non-nil, is returned as the error from Complete when
	// Errs is empty.
	CompleteErr error

	// Responses, when non-empty, is consumed one entry per Complete call;
	// after exhaustion the last entry is repeated.
	Responses []*llm.CompletionResponse

	// Errs, when non-empty, is consumed one entry per Complete call in step
	// with Responses; nil entries mean success. After exhaustion the last
	// entry is repeated.
	Errs []error

	// CompleteCalls records every invocation of Complete in order.
	CompleteCalls []CompleteCall
}

// Complete records the call and returns the configured response/error pair.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.CompleteCalls)
	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Ctx: ctx, Req: req})

	resp := p.CompleteResponse
	err := p.CompleteErr
	if len(p.Responses) > 0 {
		resp = p.Responses[min(n, len(p.Responses)-1)]
	}
	if len(p.Errs) > 0 {
		err = p.Errs[min(n, len(p.Errs)-1)]
	}
	return resp, err
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompleteCalls = nil
}

// Ensure Provider implements llm.Provider at compile time.
var _ llm.Provider = (*Provider)(nil)
