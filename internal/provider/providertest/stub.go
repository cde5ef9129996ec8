// Package providertest provides scripted provider clients for tests.
package providertest

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/taskplanner/internal/provider"
)

// Reply is one scripted outcome: either Content or Err.
type Reply struct {
	Content string
	Err     error
	// Panic makes the call panic with this value.
	Panic any
}

// Text returns a successful reply.
func Text(s string) Reply { return Reply{Content: s} }

// Fail returns a reply failing with the given kind.
func Fail(kind provider.Kind) Reply {
	return Reply{Err: &provider.Failure{Kind: kind, Message: "scripted failure"}}
}

// Stub is a provider.Client that plays back a script of replies in order.
// When the script runs out the last reply repeats. Safe for concurrent use.
type Stub struct {
	name  string
	model string

	mu       sync.Mutex
	script   []Reply
	requests []provider.Request
}

// New creates a stub named name that answers with the given replies.
func New(name string, replies ...Reply) *Stub {
	return &Stub{name: name, model: name + "-test", script: replies}
}

func (s *Stub) Name() string  { return s.name }
func (s *Stub) Model() string { return s.model }

// Complete implements provider.Client.
func (s *Stub) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	s.mu.Lock()
	idx := len(s.requests)
	s.requests = append(s.requests, *req)
	var r Reply
	switch {
	case len(s.script) == 0:
		r = Fail(provider.KindUnavailable)
	case idx < len(s.script):
		r = s.script[idx]
	default:
		r = s.script[len(s.script)-1]
	}
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.Panic != nil {
		panic(r.Panic)
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return &provider.Response{Content: r.Content, Model: s.model}, nil
}

// Calls returns the number of Complete calls so far.
func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Requests returns a copy of every request received.
func (s *Stub) Requests() []provider.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]provider.Request(nil), s.requests...)
}

// Func adapts a function to provider.Client.
type Func struct {
	ProviderName string
	Fn           func(ctx context.Context, req *provider.Request) (*provider.Response, error)
}

func (f Func) Name() string  { return f.ProviderName }
func (f Func) Model() string { return f.ProviderName + "-test" }

func (f Func) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	return f.Fn(ctx, req)
}
