package ollama

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ollama/ollama/api"

	"github.com/modelwire/modelwire/llm"
)

type openSegment int

const (
	openNone openSegment = iota
	openText
	openThought
)

// chunkStream adapts the chat API's push-style callback to the pull-based
// chunk protocol. A goroutine runs the request and feeds responses over a
// channel; Close cancels its context.
type chunkStream struct {
	responses <-chan api.ChatResponse
	errc      <-chan error
	cancel    context.CancelFunc

	pending []llm.Chunk
	current llm.Chunk

	open       openSegment
	text       string
	thinking   string
	toolCalls  []api.ToolCall
	model      string
	finished   bool
	emittedRaw bool
	err        error
}

var _ llm.ChunkStream = (*chunkStream)(nil)

// newChunkStream starts the streaming request.
func newChunkStream(ctx context.Context, client *api.Client, chatReq *api.ChatRequest) *chunkStream {
	ctx, cancel := context.WithCancel(ctx)
	responses := make(chan api.ChatResponse)
	errc := make(chan error, 1)

	go func() {
		defer close(responses)
		errc <- client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
			select {
			case responses <- resp:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	return &chunkStream{responses: responses, errc: errc, cancel: cancel}
}

func (s *chunkStream) Next() bool {
	for {
		if len(s.pending) > 0 {
			s.current = s.pending[0]
			s.pending = s.pending[1:]
			return true
		}
		if s.err != nil || s.emittedRaw {
			return false
		}

		resp, ok := <-s.responses
		if !ok {
			if err := <-s.errc; err != nil && err != context.Canceled {
				s.err = err
				return false
			}
			s.closeOpen()
			s.emitFinal()
			continue
		}
		s.apply(&resp)
	}
}

func (s *chunkStream) Chunk() llm.Chunk { return s.current }

func (s *chunkStream) Err() error { return s.err }

func (s *chunkStream) Close() error {
	s.cancel()
	return nil
}

func (s *chunkStream) apply(resp *api.ChatResponse) {
	if raw, err := json.Marshal(resp); err == nil {
		s.emit(llm.RawStreamEventChunk{Raw: raw})
	}
	if resp.Model != "" {
		s.model = resp.Model
	}

	// The API streams incremental deltas, not cumulative content.
	if resp.Message.Thinking != "" {
		if s.open != openThought {
			s.closeOpen()
			s.open = openThought
			s.emit(llm.ThoughtStartChunk{})
		}
		s.emit(llm.ThoughtChunk{Delta: resp.Message.Thinking})
		s.thinking += resp.Message.Thinking
	}

	if resp.Message.Content != "" {
		if s.open != openText {
			s.closeOpen()
			s.open = openText
			s.emit(llm.TextStartChunk{})
		}
		s.emit(llm.TextChunk{Delta: resp.Message.Content})
		s.text += resp.Message.Content
	}

	for _, call := range resp.Message.ToolCalls {
		s.closeOpen()
		args := "{}"
		if len(call.Function.Arguments) > 0 {
			b, err := json.Marshal(call.Function.Arguments)
			if err != nil {
				s.err = fmt.Errorf("encoding tool call arguments: %w", err)
				return
			}
			args = string(b)
		}
		s.emit(
			llm.ToolCallStartChunk{ID: UnknownToolCallID, Name: call.Function.Name},
			llm.ToolCallChunk{ID: UnknownToolCallID, Delta: args},
			llm.ToolCallEndChunk{ID: UnknownToolCallID},
		)
		s.toolCalls = append(s.toolCalls, call)
	}

	if resp.Done {
		s.closeOpen()
		usage := decodeUsage(resp)
		if usage.InputTokens > 0 || usage.OutputTokens > 0 {
			s.emit(llm.UsageDeltaChunk{
				InputTokens:  usage.InputTokens,
				OutputTokens: usage.OutputTokens,
			})
		}
		if reason := decodeFinishReasonStream(resp, len(s.toolCalls) > 0); reason != nil {
			s.emit(llm.FinishReasonChunk{FinishReason: *reason})
		}
		s.finished = true
	}
}

// decodeFinishReasonStream is the streaming variant of decodeFinishReason:
// tool calls arrive on earlier responses, so presence is tracked externally.
func decodeFinishReasonStream(resp *api.ChatResponse, sawToolCalls bool) *llm.FinishReason {
	var reason llm.FinishReason
	switch {
	case sawToolCalls || len(resp.Message.ToolCalls) > 0:
		reason = llm.FinishReasonToolCalls
	case resp.DoneReason == "stop":
		reason = llm.FinishReasonStop
	case resp.DoneReason == "length":
		reason = llm.FinishReasonMaxTokens
	default:
		return nil
	}
	return &reason
}

func (s *chunkStream) closeOpen() {
	switch s.open {
	case openText:
		s.emit(llm.TextEndChunk{})
	case openThought:
		s.emit(llm.ThoughtEndChunk{})
	}
	s.open = openNone
}

func (s *chunkStream) emitFinal() {
	if s.emittedRaw {
		return
	}
	s.emittedRaw = true
	msg := api.Message{
		Role:      "assistant",
		Content:   s.text,
		Thinking:  s.thinking,
		ToolCalls: s.toolCalls,
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		s.err = err
		return
	}
	s.emit(llm.RawMessageChunk{Raw: raw})
}

func (s *chunkStream) emit(chunks ...llm.Chunk) {
	s.pending = append(s.pending, chunks...)
}
