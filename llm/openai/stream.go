package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/modelwire/modelwire/llm"
)

type openSegment int

const (
	openNone openSegment = iota
	openText
	openThought
	openToolCall
)

// recvStream is the part of the SDK stream the chunk stream consumes.
// Narrowed to an interface so tests can feed canned responses.
type recvStream interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
	Close() error
}

// chunkStream adapts a chat completion stream into normalized chunks.
// Deltas arrive without explicit segment boundaries, so boundaries are
// synthesized: a segment opens on the first delta of its kind and closes
// when a different kind, a new tool call index, or the finish reason
// arrives. The assistant message is accumulated alongside so the final
// chunk can carry a reconstructed raw message.
type chunkStream struct {
	stream recvStream

	pending    []llm.Chunk
	current    llm.Chunk
	open       openSegment
	toolCallID string
	toolIndex  int

	text      strings.Builder
	reasoning strings.Builder
	toolCalls []openai.ToolCall

	prevUsage  llm.Usage
	finished   bool
	emittedRaw bool
	err        error
}

func newChunkStream(stream recvStream) *chunkStream {
	return &chunkStream{stream: stream, toolIndex: -1}
}

func (s *chunkStream) Next() bool {
	if s.err != nil {
		return false
	}
	for len(s.pending) == 0 {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			if !s.emittedRaw {
				s.closeOpen()
				s.emitFinal()
				continue
			}
			return false
		}
		if err != nil {
			s.err = mapError(err)
			return false
		}
		if err := s.apply(resp); err != nil {
			s.err = err
			return false
		}
	}
	s.current = s.pending[0]
	s.pending = s.pending[1:]
	return true
}

func (s *chunkStream) Chunk() llm.Chunk { return s.current }

func (s *chunkStream) Err() error { return s.err }

func (s *chunkStream) Close() error { return s.stream.Close() }

func (s *chunkStream) apply(resp openai.ChatCompletionStreamResponse) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	s.emit(llm.RawStreamEventChunk{Raw: raw})

	if resp.Usage != nil {
		if err := s.applyUsage(*resp.Usage); err != nil {
			return err
		}
	}
	if len(resp.Choices) == 0 {
		return nil
	}
	choice := resp.Choices[0]

	if choice.Delta.ReasoningContent != "" {
		if s.open != openThought {
			s.closeOpen()
			s.open = openThought
			s.emit(llm.ThoughtStartChunk{})
		}
		s.reasoning.WriteString(choice.Delta.ReasoningContent)
		s.emit(llm.ThoughtChunk{Delta: choice.Delta.ReasoningContent})
	}

	if choice.Delta.Content != "" {
		if s.open != openText {
			s.closeOpen()
			s.open = openText
			s.emit(llm.TextStartChunk{})
		}
		s.text.WriteString(choice.Delta.Content)
		s.emit(llm.TextChunk{Delta: choice.Delta.Content})
	}

	for _, call := range choice.Delta.ToolCalls {
		index := 0
		if call.Index != nil {
			index = *call.Index
		}
		if s.open != openToolCall || index != s.toolIndex {
			s.closeOpen()
			s.open = openToolCall
			s.toolIndex = index
			s.toolCallID = call.ID
			s.toolCalls = append(s.toolCalls, openai.ToolCall{
				ID:       call.ID,
				Type:     openai.ToolTypeFunction,
				Function: openai.FunctionCall{Name: call.Function.Name},
			})
			s.emit(llm.ToolCallStartChunk{ID: call.ID, Name: call.Function.Name})
		}
		if call.Function.Arguments != "" {
			last := &s.toolCalls[len(s.toolCalls)-1]
			last.Function.Arguments += call.Function.Arguments
			s.emit(llm.ToolCallChunk{ID: s.toolCallID, Delta: call.Function.Arguments})
		}
	}

	if choice.FinishReason != "" && !s.finished {
		s.closeOpen()
		s.finished = true
		if reason, ok := finishReasons[choice.FinishReason]; ok {
			s.emit(llm.FinishReasonChunk{FinishReason: reason})
		}
	}
	return nil
}

// applyUsage emits the increase over the previously reported cumulative
// usage. The API reports totals, not deltas; a decrease means the stream is
// corrupt.
func (s *chunkStream) applyUsage(usage openai.Usage) error {
	current := decodeUsage(usage)
	delta := llm.UsageDeltaChunk{
		InputTokens:      current.InputTokens - s.prevUsage.InputTokens,
		OutputTokens:     current.OutputTokens - s.prevUsage.OutputTokens,
		CacheReadTokens:  current.CacheReadTokens - s.prevUsage.CacheReadTokens,
		CacheWriteTokens: current.CacheWriteTokens - s.prevUsage.CacheWriteTokens,
		ReasoningTokens:  current.ReasoningTokens - s.prevUsage.ReasoningTokens,
	}
	if delta.InputTokens < 0 || delta.OutputTokens < 0 || delta.ReasoningTokens < 0 ||
		delta.CacheReadTokens < 0 || delta.CacheWriteTokens < 0 {
		return fmt.Errorf("cumulative usage decreased: %+v -> %+v", s.prevUsage, current)
	}
	s.prevUsage = current
	if delta != (llm.UsageDeltaChunk{}) {
		s.emit(delta)
	}
	return nil
}

func (s *chunkStream) emitFinal() {
	if s.emittedRaw {
		return
	}
	s.emittedRaw = true
	msg := openai.ChatCompletionMessage{
		Role:             openai.ChatMessageRoleAssistant,
		Content:          s.text.String(),
		ReasoningContent: s.reasoning.String(),
		ToolCalls:        s.toolCalls,
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return
	}
	s.emit(llm.RawMessageChunk{Raw: raw})
}

func (s *chunkStream) closeOpen() {
	switch s.open {
	case openText:
		s.emit(llm.TextEndChunk{})
	case openThought:
		s.emit(llm.ThoughtEndChunk{})
	case openToolCall:
		s.emit(llm.ToolCallEndChunk{ID: s.toolCallID})
		s.toolCallID = ""
		s.toolIndex = -1
	}
	s.open = openNone
}

func (s *chunkStream) emit(chunk llm.Chunk) {
	s.pending = append(s.pending, chunk)
}

var _ llm.ChunkStream = (*chunkStream)(nil)
