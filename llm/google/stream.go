package google

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/modelwire/modelwire/llm"
)

type openSegment int

const (
	openNone openSegment = iota
	openText
	openThought
)

// chunkStream adapts a streamGenerateContent SSE body to the normalized
// chunk protocol. Function calls arrive whole in a single event, so each one
// becomes an atomic start/args/end triple.
type chunkStream struct {
	dec  *sseDecoder
	body io.Closer

	pending []llm.Chunk
	current llm.Chunk

	open         openSegment
	parts        []apiPart
	modelVersion string
	prev         llm.Usage
	finished     bool
	emittedRaw   bool
	err          error
}

var _ llm.ChunkStream = (*chunkStream)(nil)

func newChunkStream(body io.ReadCloser) *chunkStream {
	return &chunkStream{dec: newSSEDecoder(body), body: body}
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

		data, err := s.dec.Next()
		if err == io.EOF {
			s.closeOpen()
			s.emitFinal()
			continue
		}
		if err != nil {
			s.err = err
			return false
		}

		var resp apiResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			s.err = fmt.Errorf("decoding stream event: %w", err)
			return false
		}
		s.apply(data, &resp)
	}
}

func (s *chunkStream) Chunk() llm.Chunk { return s.current }

func (s *chunkStream) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}

func (s *chunkStream) Close() error { return s.body.Close() }

func (s *chunkStream) apply(raw []byte, resp *apiResponse) {
	s.emit(llm.RawStreamEventChunk{Raw: json.RawMessage(append([]byte(nil), raw...))})

	if resp.ModelVersion != "" {
		s.modelVersion = resp.ModelVersion
	}
	if resp.UsageMetadata != nil {
		s.applyUsage(resp.UsageMetadata)
		if s.err != nil {
			return
		}
	}
	if len(resp.Candidates) == 0 {
		return
	}
	candidate := resp.Candidates[0]

	for _, part := range candidate.Content.Parts {
		if kind := unsupportedPartKind(part); kind != "" {
			s.err = fmt.Errorf("decoding %s part: not implemented", kind)
			return
		}
		switch {
		case part.FunctionCall != nil:
			s.closeOpen()
			args := string(part.FunctionCall.Args)
			if args == "" {
				args = "{}"
			}
			s.emit(
				llm.ToolCallStartChunk{ID: UnknownToolCallID, Name: part.FunctionCall.Name},
				llm.ToolCallChunk{ID: UnknownToolCallID, Delta: args},
				llm.ToolCallEndChunk{ID: UnknownToolCallID},
			)
			s.accumulate(part)

		case part.Thought:
			if s.open != openThought {
				s.closeOpen()
				s.open = openThought
				s.emit(llm.ThoughtStartChunk{})
			}
			s.emit(llm.ThoughtChunk{Delta: part.Text})
			s.accumulate(part)

		case part.Text != "":
			if s.open != openText {
				s.closeOpen()
				s.open = openText
				s.emit(llm.TextStartChunk{})
			}
			s.emit(llm.TextChunk{Delta: part.Text})
			s.accumulate(part)
		}
	}

	if candidate.FinishReason != "" {
		s.closeOpen()
		if reason, ok := finishReasons[candidate.FinishReason]; ok {
			s.emit(llm.FinishReasonChunk{FinishReason: reason})
		}
		s.finished = true
	}
}

// applyUsage diffs the latest cumulative usage report against the previous
// one. The API repeats full counts on every event that carries metadata.
func (s *chunkStream) applyUsage(meta *apiUsageMeta) {
	usage := decodeUsage(meta)
	delta := llm.UsageDeltaChunk{
		InputTokens:     usage.InputTokens - s.prev.InputTokens,
		OutputTokens:    usage.OutputTokens - s.prev.OutputTokens,
		CacheReadTokens: usage.CacheReadTokens - s.prev.CacheReadTokens,
		ReasoningTokens: usage.ReasoningTokens - s.prev.ReasoningTokens,
	}
	if delta.InputTokens < 0 || delta.OutputTokens < 0 || delta.CacheReadTokens < 0 || delta.ReasoningTokens < 0 {
		s.err = fmt.Errorf("cumulative token counts decreased mid-stream")
		return
	}
	s.prev = usage
	if delta != (llm.UsageDeltaChunk{}) {
		s.emit(delta)
	}
}

// accumulate collects parts for the final raw message, merging consecutive
// plain text parts so the reconstructed content matches what a non-streaming
// call would have returned.
func (s *chunkStream) accumulate(part apiPart) {
	if part.Text != "" && !part.Thought && len(s.parts) > 0 {
		last := &s.parts[len(s.parts)-1]
		if last.Text != "" && !last.Thought && last.FunctionCall == nil {
			last.Text += part.Text
			return
		}
	}
	part.FunctionCall = cloneFunctionCall(part.FunctionCall)
	s.parts = append(s.parts, part)
}

func cloneFunctionCall(call *apiFunctionCall) *apiFunctionCall {
	if call == nil {
		return nil
	}
	clone := *call
	clone.Args = append(json.RawMessage(nil), call.Args...)
	return &clone
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
	raw, err := json.Marshal(apiContent{Role: "model", Parts: s.parts})
	if err != nil {
		s.err = err
		return
	}
	s.emit(llm.RawMessageChunk{Raw: raw})
}

func (s *chunkStream) emit(chunks ...llm.Chunk) {
	s.pending = append(s.pending, chunks...)
}
