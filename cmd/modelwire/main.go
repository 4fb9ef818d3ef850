// Command modelwire sends a prompt to any configured provider and streams
// the reply to stdout. It is a smoke-test harness for the llm package more
// than a full chat client.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/modelwire/modelwire/config"
	"github.com/modelwire/modelwire/llm"
	"github.com/modelwire/modelwire/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		model      = flag.String("model", "", "Provider-qualified model, e.g. anthropic/claude-sonnet-4-5")
		system     = flag.String("system", "", "System prompt")
		configPath = flag.String("config", config.GetConfigPath(), "Path to config file")
		noStream   = flag.Bool("no-stream", false, "Wait for the complete response instead of streaming")
		timeout    = flag.Duration("timeout", 2*time.Minute, "Request timeout")
		logFile    = flag.String("logfile", "modelwire.log", "Path to log file")
	)
	flag.Parse()

	prompt := strings.Join(flag.Args(), " ")
	if prompt == "" {
		return fmt.Errorf("usage: modelwire [flags] <prompt>")
	}

	log, err := logger.InitWithOptions(*logFile, false)
	if err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	modelName := *model
	if modelName == "" {
		modelName = cfg.DefaultModel
	}
	if modelName == "" {
		return fmt.Errorf("no model given; pass --model or set default_model in %s", *configPath)
	}

	registry, err := config.BuildRegistry(cfg, log)
	if err != nil {
		return err
	}

	providerID, _, err := llm.SplitModel(modelName)
	if err != nil {
		return err
	}
	provider, err := registry.Provider(providerID)
	if err != nil {
		return err
	}
	provider = llm.WrapWithMiddleware(provider, llm.NewTelemetryMiddleware(log))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var messages []llm.Message
	if *system != "" {
		messages = append(messages, llm.NewSystemMessage(*system))
	}
	messages = append(messages, llm.NewUserMessage(prompt))

	req := &llm.Request{Model: modelName, Messages: messages}

	if *noStream {
		resp, err := provider.Complete(ctx, req)
		if err != nil {
			return err
		}
		fmt.Println(resp.Text())
		return nil
	}

	stream, err := provider.Stream(ctx, req)
	if err != nil {
		return err
	}
	defer stream.Close()

	for stream.Next() {
		switch c := stream.Chunk().(type) {
		case llm.TextChunk:
			fmt.Print(c.Delta)
		case llm.ToolCallStartChunk:
			fmt.Printf("\n[tool call: %s]\n", c.Name)
		}
	}
	fmt.Println()
	if err := stream.Err(); err != nil {
		return err
	}

	resp, err := stream.Response()
	if err != nil {
		return err
	}
	log.Info().
		Int64("input_tokens", resp.Usage.InputTokens).
		Int64("output_tokens", resp.Usage.OutputTokens).
		Msg("Stream complete")
	return nil
}
