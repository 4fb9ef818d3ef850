package llm

import (
	"context"
	"errors"
	"testing"
)

func TestWrapWithMiddlewareOrder(t *testing.T) {
	var order []string
	provider := &fakeProvider{id: "anthropic"}

	first := MiddlewareFunc{
		BeforeRequestFunc: func(ctx context.Context, req *Request) (*Request, error) {
			order = append(order, "before-1")
			return req, nil
		},
		AfterResponseFunc: func(ctx context.Context, req *Request, resp *Response) (*Response, error) {
			order = append(order, "after-1")
			return resp, nil
		},
	}
	second := MiddlewareFunc{
		BeforeRequestFunc: func(ctx context.Context, req *Request) (*Request, error) {
			order = append(order, "before-2")
			return req, nil
		},
		AfterResponseFunc: func(ctx context.Context, req *Request, resp *Response) (*Response, error) {
			order = append(order, "after-2")
			return resp, nil
		},
	}

	wrapped := WrapWithMiddleware(provider, first, second)
	if _, err := wrapped.Complete(context.Background(), &Request{Model: "anthropic/claude-sonnet-4-5"}); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	want := []string{"before-1", "before-2", "after-2", "after-1"}
	if len(order) != len(want) {
		t.Fatalf("Expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, order)
			break
		}
	}
}

func TestWrapWithMiddlewareNoMiddleware(t *testing.T) {
	provider := &fakeProvider{id: "anthropic"}
	if WrapWithMiddleware(provider) != Provider(provider) {
		t.Error("Expected provider returned unwrapped when no middleware given")
	}
}

func TestMiddlewareBeforeRequestAborts(t *testing.T) {
	provider := &fakeProvider{id: "anthropic"}
	abort := errors.New("denied")
	wrapped := WrapWithMiddleware(provider, MiddlewareFunc{
		BeforeRequestFunc: func(ctx context.Context, req *Request) (*Request, error) {
			return nil, abort
		},
	})
	if _, err := wrapped.Complete(context.Background(), &Request{}); !errors.Is(err, abort) {
		t.Errorf("Expected abort error, got %v", err)
	}
	if provider.lastReq != nil {
		t.Error("Expected provider never called after abort")
	}
}

type dropTextMiddleware struct {
	MiddlewareFunc
}

func (dropTextMiddleware) OnChunk(ctx context.Context, req *Request, chunk Chunk) (Chunk, error) {
	if _, ok := chunk.(TextChunk); ok {
		return nil, nil
	}
	return chunk, nil
}

func TestStreamMiddlewareDropsChunks(t *testing.T) {
	inner := &sliceChunkStream{chunks: []Chunk{
		TextStartChunk{},
		TextChunk{Delta: "Hello"},
		TextEndChunk{},
		FinishReasonChunk{FinishReason: FinishReasonStop},
	}}
	provider := &streamingFakeProvider{id: "openai", stream: inner}
	wrapped := WrapWithMiddleware(provider, dropTextMiddleware{})

	sr, err := wrapped.Stream(context.Background(), &Request{Model: "openai/gpt-4o"})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	var kinds []string
	for sr.Next() {
		switch sr.Chunk().(type) {
		case TextChunk:
			t.Error("Expected text chunks dropped by middleware")
		case TextStartChunk:
			kinds = append(kinds, "start")
		case TextEndChunk:
			kinds = append(kinds, "end")
		case FinishReasonChunk:
			kinds = append(kinds, "finish")
		}
	}
	if len(kinds) != 3 {
		t.Errorf("Expected 3 surviving chunks, got %v", kinds)
	}
}

type streamingFakeProvider struct {
	id     string
	stream ChunkStream
}

func (p *streamingFakeProvider) ID() string { return p.id }

func (p *streamingFakeProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	return &Response{Message: NewAssistantMessage("ok")}, nil
}

func (p *streamingFakeProvider) Stream(ctx context.Context, req *Request) (*StreamResponse, error) {
	return NewStreamResponse(p.id, "gpt-4o", "gpt-4o", p.stream), nil
}

func TestStreamAfterResponseRunsOnAssembly(t *testing.T) {
	inner := &sliceChunkStream{chunks: []Chunk{
		TextStartChunk{},
		TextChunk{Delta: "Hello"},
		TextEndChunk{},
		FinishReasonChunk{FinishReason: FinishReasonStop},
	}}
	provider := &streamingFakeProvider{id: "openai", stream: inner}

	var order []string
	mw := func(name string) MiddlewareFunc {
		return MiddlewareFunc{
			AfterResponseFunc: func(ctx context.Context, req *Request, resp *Response) (*Response, error) {
				order = append(order, name)
				if resp.Text() != "Hello" {
					t.Errorf("Expected assembled text in AfterResponse, got %q", resp.Text())
				}
				return resp, nil
			},
		}
	}
	wrapped := WrapWithMiddleware(provider, mw("first"), mw("second"))

	sr, err := wrapped.Stream(context.Background(), &Request{Model: "openai/gpt-4o"})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if len(order) != 0 {
		t.Fatalf("Expected AfterResponse deferred until assembly, got %v", order)
	}
	resp, err := sr.Response()
	if err != nil {
		t.Fatalf("Response failed: %v", err)
	}
	if resp.Text() != "Hello" {
		t.Errorf("Expected assembled text, got %q", resp.Text())
	}
	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Errorf("Expected reverse-order AfterResponse, got %v", order)
	}
}

func TestStreamMiddlewareErrorTerminates(t *testing.T) {
	inner := &sliceChunkStream{chunks: []Chunk{
		TextStartChunk{},
		TextChunk{Delta: "Hello"},
	}}
	provider := &streamingFakeProvider{id: "openai", stream: inner}
	boom := errors.New("boom")
	wrapped := WrapWithMiddleware(provider, failingChunkMiddleware{err: boom})

	sr, err := wrapped.Stream(context.Background(), &Request{Model: "openai/gpt-4o"})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	for sr.Next() {
	}
	if !errors.Is(sr.Err(), boom) {
		t.Errorf("Expected middleware error from stream, got %v", sr.Err())
	}
}

type failingChunkMiddleware struct {
	MiddlewareFunc
	err error
}

func (m failingChunkMiddleware) OnChunk(ctx context.Context, req *Request, chunk Chunk) (Chunk, error) {
	if _, ok := chunk.(TextChunk); ok {
		return nil, m.err
	}
	return chunk, nil
}
