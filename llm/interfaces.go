package llm

import (
	"context"
)

// Provider generates model responses for one provider namespace.
// Implementations live in the provider subpackages and handle encoding,
// transport, and decoding internally; callers only ever see normalized
// types.
type Provider interface {
	// ID returns the namespace this provider serves, e.g. "anthropic".
	ID() string

	// Complete sends a request and returns the full response.
	Complete(ctx context.Context, req *Request) (*Response, error)

	// Stream sends a request and returns a normalized chunk stream.
	// The caller must drain or Close the returned stream.
	Stream(ctx context.Context, req *Request) (*StreamResponse, error)
}

// Middleware provides hooks for decorating Provider calls with cross-cutting
// concerns such as logging or retries.
type Middleware interface {
	// BeforeRequest is called before a request is sent. It can modify the
	// request or return an error to abort.
	BeforeRequest(ctx context.Context, req *Request) (*Request, error)

	// AfterResponse is called after a complete response is received, and
	// after a stream is fully assembled.
	AfterResponse(ctx context.Context, req *Request, resp *Response) (*Response, error)

	// OnError is called when a call fails. It can replace the error.
	OnError(ctx context.Context, req *Request, err error) error
}

// StreamMiddleware extends Middleware with per-chunk hooks. Middleware
// implementations that also implement StreamMiddleware are invoked for each
// normalized chunk.
type StreamMiddleware interface {
	// OnChunk is called for each chunk. Returning nil drops the chunk;
	// returning an error terminates the stream.
	OnChunk(ctx context.Context, req *Request, chunk Chunk) (Chunk, error)
}

// MiddlewareFunc adapts plain functions into a Middleware.
type MiddlewareFunc struct {
	BeforeRequestFunc func(ctx context.Context, req *Request) (*Request, error)
	AfterResponseFunc func(ctx context.Context, req *Request, resp *Response) (*Response, error)
	OnErrorFunc       func(ctx context.Context, req *Request, err error) error
}

func (f MiddlewareFunc) BeforeRequest(ctx context.Context, req *Request) (*Request, error) {
	if f.BeforeRequestFunc != nil {
		return f.BeforeRequestFunc(ctx, req)
	}
	return req, nil
}

func (f MiddlewareFunc) AfterResponse(ctx context.Context, req *Request, resp *Response) (*Response, error) {
	if f.AfterResponseFunc != nil {
		return f.AfterResponseFunc(ctx, req, resp)
	}
	return resp, nil
}

func (f MiddlewareFunc) OnError(ctx context.Context, req *Request, err error) error {
	if f.OnErrorFunc != nil {
		return f.OnErrorFunc(ctx, req, err)
	}
	return err
}

// WrapWithMiddleware wraps a Provider with middleware. Middleware runs in
// order for BeforeRequest and in reverse order for AfterResponse.
func WrapWithMiddleware(provider Provider, middleware ...Middleware) Provider {
	if len(middleware) == 0 {
		return provider
	}
	return &providerWithMiddleware{
		provider:   provider,
		middleware: middleware,
	}
}

type providerWithMiddleware struct {
	provider   Provider
	middleware []Middleware
}

func (p *providerWithMiddleware) ID() string {
	return p.provider.ID()
}

func (p *providerWithMiddleware) Complete(ctx context.Context, req *Request) (*Response, error) {
	for _, mw := range p.middleware {
		var err error
		req, err = mw.BeforeRequest(ctx, req)
		if err != nil {
			return nil, err
		}
	}

	resp, err := p.provider.Complete(ctx, req)
	if err != nil {
		for _, mw := range p.middleware {
			err = mw.OnError(ctx, req, err)
			if err == nil {
				break
			}
		}
		return nil, err
	}

	for i := len(p.middleware) - 1; i >= 0; i-- {
		resp, err = p.middleware[i].AfterResponse(ctx, req, resp)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (p *providerWithMiddleware) Stream(ctx context.Context, req *Request) (*StreamResponse, error) {
	for _, mw := range p.middleware {
		var err error
		req, err = mw.BeforeRequest(ctx, req)
		if err != nil {
			return nil, err
		}
	}

	stream, err := p.provider.Stream(ctx, req)
	if err != nil {
		for _, mw := range p.middleware {
			err = mw.OnError(ctx, req, err)
			if err == nil {
				break
			}
		}
		return nil, err
	}

	// Rewrap the inner chunk stream so the StreamResponse keeps assembling
	// from the chunks middleware actually lets through.
	filtered := &chunkFilterStream{
		inner:      stream.stream,
		middleware: p.middleware,
		req:        req,
		ctx:        ctx,
	}
	wrapped := NewStreamResponse(stream.providerID, stream.modelID, stream.providerModelName, filtered)
	wrapped.onResponse = func(resp *Response) (*Response, error) {
		for i := len(p.middleware) - 1; i >= 0; i-- {
			var err error
			resp, err = p.middleware[i].AfterResponse(ctx, req, resp)
			if err != nil {
				return nil, err
			}
		}
		return resp, nil
	}
	return wrapped, nil
}

// chunkFilterStream applies StreamMiddleware hooks to each chunk of an inner
// stream, skipping chunks a middleware drops.
type chunkFilterStream struct {
	inner      ChunkStream
	middleware []Middleware
	req        *Request
	ctx        context.Context
	chunk      Chunk
	err        error
}

func (s *chunkFilterStream) Next() bool {
	if s.err != nil {
		return false
	}
next:
	for s.inner.Next() {
		chunk := s.inner.Chunk()
		for _, mw := range s.middleware {
			smw, ok := mw.(StreamMiddleware)
			if !ok {
				continue
			}
			var err error
			chunk, err = smw.OnChunk(s.ctx, s.req, chunk)
			if err != nil {
				s.err = err
				return false
			}
			if chunk == nil {
				continue next
			}
		}
		s.chunk = chunk
		return true
	}
	return false
}

func (s *chunkFilterStream) Chunk() Chunk {
	return s.chunk
}

func (s *chunkFilterStream) Err() error {
	if s.err != nil {
		return s.err
	}
	return s.inner.Err()
}

func (s *chunkFilterStream) Close() error {
	return s.inner.Close()
}

var _ ChunkStream = (*chunkFilterStream)(nil)
var _ Provider = (*providerWithMiddleware)(nil)
