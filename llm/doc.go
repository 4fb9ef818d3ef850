// Package llm provides a provider-neutral abstraction layer for Large
// Language Model (LLM) APIs.
//
// It defines a common content model, request/response types, and streaming
// protocol that let callers target Anthropic, OpenAI, Google, and Ollama
// through one interface while still round-tripping provider-native payloads
// losslessly.
//
// # Core Concepts
//
//  1. Messages: the Message type carries a role plus ordered ContentPart
//     values (text, images, audio, documents, tool calls, tool outputs, and
//     thoughts). Assistant messages decoded from a provider additionally
//     carry provenance fields (ProviderID, ModelID, ProviderModelName,
//     RawMessage) so a later request to the same provider and model can
//     resend the provider-native form verbatim.
//
//  2. Tools: ToolDefinition describes a callable tool with a JSON schema;
//     schemas can be derived from Go structs via SchemaFor. The generic Call
//     helper dispatches a decoded ToolCallPart to a typed handler.
//
//  3. Formats: Format requests structured output in one of three modes
//     (strict, tool, json), resolved per model via ResolveFormat. Explicitly
//     requesting a mode a model cannot honor fails with
//     FeatureNotSupportedError rather than degrading silently.
//
//  4. Streaming: Provider.Stream returns a StreamResponse over normalized
//     Chunk values. Segments arrive delimited by start/end chunks, usage is
//     reported as per-chunk deltas, and the final RawMessageChunk carries a
//     reconstructed provider-native message. StreamResponse accumulates as
//     it is consumed, so Response() never issues a second request.
//
//  5. Routing: Registry maps namespace-prefixed model IDs, e.g.
//     "anthropic/claude-sonnet-4-5", to registered providers.
//
//  6. Middleware: WrapWithMiddleware decorates a Provider with cross-cutting
//     concerns. Middleware implementing StreamMiddleware also sees each
//     normalized chunk.
//
// # Usage
//
//	anthropicProvider, err := anthropic.New(apiKey, logger)
//	if err != nil {
//	    return err
//	}
//	provider := llm.WrapWithMiddleware(
//	    anthropicProvider,
//	    llm.NewTelemetryMiddleware(logger),
//	)
//
//	resp, err := provider.Complete(ctx, &llm.Request{
//	    Model: "anthropic/claude-sonnet-4-5",
//	    Messages: []llm.Message{
//	        llm.NewUserMessage("Hello!"),
//	    },
//	})
package llm
