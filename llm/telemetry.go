package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TelemetryMiddleware logs provider calls with normalized gen_ai fields:
// the model invoked, token usage, finish reason, and call latency.
type TelemetryMiddleware struct {
	logger zerolog.Logger
}

// NewTelemetryMiddleware creates a telemetry middleware logging to the given
// logger.
func NewTelemetryMiddleware(logger zerolog.Logger) *TelemetryMiddleware {
	return &TelemetryMiddleware{logger: logger}
}

type telemetryStartKey struct{}

func (t *TelemetryMiddleware) BeforeRequest(ctx context.Context, req *Request) (*Request, error) {
	t.logger.Debug().
		Str("gen_ai.request.model", req.Model).
		Int("gen_ai.request.messages", len(req.Messages)).
		Int("gen_ai.request.tools", len(req.Tools)).
		Msg("llm request")
	return req, nil
}

func (t *TelemetryMiddleware) AfterResponse(ctx context.Context, req *Request, resp *Response) (*Response, error) {
	ev := t.logger.Info().
		Str("gen_ai.request.model", req.Model).
		Int64("gen_ai.usage.input_tokens", resp.Usage.InputTokens).
		Int64("gen_ai.usage.output_tokens", resp.Usage.OutputTokens)
	if resp.Usage.ReasoningTokens > 0 {
		ev = ev.Int64("gen_ai.usage.reasoning_tokens", resp.Usage.ReasoningTokens)
	}
	if resp.FinishReason != nil {
		ev = ev.Str("gen_ai.response.finish_reason", string(*resp.FinishReason))
	}
	if start, ok := ctx.Value(telemetryStartKey{}).(time.Time); ok {
		ev = ev.Dur("duration", time.Since(start))
	}
	ev.Msg("llm response")
	return resp, nil
}

func (t *TelemetryMiddleware) OnError(ctx context.Context, req *Request, err error) error {
	t.logger.Error().
		Err(err).
		Str("gen_ai.request.model", req.Model).
		Msg("llm request failed")
	return err
}

// WithCallStart stamps the call start time into ctx so AfterResponse can log
// latency. Callers that want duration telemetry wrap their context before
// invoking the provider.
func WithCallStart(ctx context.Context) context.Context {
	return context.WithValue(ctx, telemetryStartKey{}, time.Now())
}

// LogUntrackedParams emits a warning naming parameters that were set on a
// request but ignored by the targeted provider. Provider clients call this
// after encoding; parameters silently dropped without a trace make tuning
// bugs invisible.
func LogUntrackedParams(logger zerolog.Logger, providerID, modelID string, untracked []string) {
	if len(untracked) == 0 {
		return
	}
	logger.Warn().
		Str("gen_ai.provider.name", providerID).
		Str("gen_ai.request.model", modelID).
		Strs("untracked_params", untracked).
		Msg("request parameters not supported by provider")
}

var _ Middleware = (*TelemetryMiddleware)(nil)
