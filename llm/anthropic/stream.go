package anthropic

import (
	"encoding/json"
	"fmt"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/modelwire/modelwire/llm"
)

// openSegment tracks which normalized segment kind is currently open.
type openSegment int

const (
	openNone openSegment = iota
	openText
	openThought
	openToolCall
)

// chunkStream adapts the SDK's SSE stream into normalized chunks. Each
// provider event first yields a RawStreamEventChunk, then whatever
// normalized chunks it implies. Events are simultaneously accumulated into a
// Message so the final chunk can carry the reconstructed raw assistant turn.
type chunkStream struct {
	stream *ssestream.Stream[anthropic.MessageStreamEventUnion]

	acc        anthropic.Message
	pending    []llm.Chunk
	current    llm.Chunk
	open       openSegment
	toolCallID string
	prevOutput int64
	finished   bool
	emittedRaw bool
	err        error
}

func newChunkStream(stream *ssestream.Stream[anthropic.MessageStreamEventUnion]) *chunkStream {
	return &chunkStream{stream: stream}
}

func (s *chunkStream) Next() bool {
	if s.err != nil {
		return false
	}
	for len(s.pending) == 0 {
		if !s.stream.Next() {
			if err := s.stream.Err(); err != nil {
				s.err = mapError(err)
				return false
			}
			if !s.emittedRaw {
				s.emitFinal()
				continue
			}
			return false
		}
		event := s.stream.Current()
		if err := s.acc.Accumulate(event); err != nil {
			s.err = err
			return false
		}
		if err := s.apply(event); err != nil {
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

func (s *chunkStream) apply(event anthropic.MessageStreamEventUnion) error {
	s.emit(llm.RawStreamEventChunk{Raw: json.RawMessage(event.RawJSON())})

	switch evt := event.AsAny().(type) {
	case anthropic.MessageStartEvent:
		s.emitUsage(evt.Message.Usage.InputTokens, evt.Message.Usage.OutputTokens,
			evt.Message.Usage.CacheReadInputTokens, evt.Message.Usage.CacheCreationInputTokens)

	case anthropic.ContentBlockStartEvent:
		s.closeOpen()
		switch block := evt.ContentBlock.AsAny().(type) {
		case anthropic.TextBlock:
			s.open = openText
			s.emit(llm.TextStartChunk{})
		case anthropic.ThinkingBlock:
			s.open = openThought
			s.emit(llm.ThoughtStartChunk{})
		case anthropic.ToolUseBlock:
			s.open = openToolCall
			s.toolCallID = block.ID
			s.emit(llm.ToolCallStartChunk{ID: block.ID, Name: block.Name})
		case nil:
			// An empty union carries nothing to either keep or reject.
		default:
			return fmt.Errorf("decoding %q block: not implemented", evt.ContentBlock.Type)
		}

	case anthropic.ContentBlockDeltaEvent:
		switch delta := evt.Delta.AsAny().(type) {
		case anthropic.TextDelta:
			if delta.Text != "" {
				s.emit(llm.TextChunk{Delta: delta.Text})
			}
		case anthropic.ThinkingDelta:
			if delta.Thinking != "" {
				s.emit(llm.ThoughtChunk{Delta: delta.Thinking})
			}
		case anthropic.InputJSONDelta:
			if delta.PartialJSON != "" {
				s.emit(llm.ToolCallChunk{ID: s.toolCallID, Delta: delta.PartialJSON})
			}
		}

	case anthropic.ContentBlockStopEvent:
		s.closeOpen()

	case anthropic.MessageDeltaEvent:
		s.closeOpen()
		if reason, ok := stopReasons[anthropic.StopReason(evt.Delta.StopReason)]; ok && !s.finished {
			s.finished = true
			s.emit(llm.FinishReasonChunk{FinishReason: reason})
		}
		// Output tokens arrive cumulatively; emit the increase.
		delta := evt.Usage.OutputTokens - s.prevOutput
		if delta < 0 {
			return fmt.Errorf("cumulative output tokens decreased from %d to %d", s.prevOutput, evt.Usage.OutputTokens)
		}
		if delta > 0 {
			s.prevOutput = evt.Usage.OutputTokens
			s.emit(llm.UsageDeltaChunk{OutputTokens: delta})
		}

	case anthropic.MessageStopEvent:
		s.closeOpen()
		s.emitFinal()
	}
	return nil
}

func (s *chunkStream) emitFinal() {
	if s.emittedRaw {
		return
	}
	s.emittedRaw = true
	raw, err := json.Marshal(s.acc.ToParam())
	if err != nil {
		return
	}
	s.emit(llm.RawMessageChunk{Raw: raw})
}

func (s *chunkStream) emitUsage(input, output, cacheRead, cacheWrite int64) {
	s.prevOutput = output
	if input == 0 && output == 0 && cacheRead == 0 && cacheWrite == 0 {
		return
	}
	s.emit(llm.UsageDeltaChunk{
		InputTokens:      input,
		OutputTokens:     output,
		CacheReadTokens:  cacheRead,
		CacheWriteTokens: cacheWrite,
	})
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
	}
	s.open = openNone
}

func (s *chunkStream) emit(chunk llm.Chunk) {
	s.pending = append(s.pending, chunk)
}

var _ llm.ChunkStream = (*chunkStream)(nil)
