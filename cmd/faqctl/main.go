// Command faqctl loads, indexes and queries the legal FAQ knowledge base.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/legalqa/assistant/internal/bootstrap"
	"github.com/legalqa/assistant/internal/config"
	"github.com/legalqa/assistant/internal/observability"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(openComponents)
	root.SetContext(ctx)
	root.SetOut(os.Stdout)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)

		return 1
	}

	return 0
}

// openComponents wires the real services from the environment.
func openComponents(ctx context.Context, probeEmbeddings bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger := observability.NewLogger(os.Stderr, cfg.LogLevel)

	c, err := bootstrap.Build(ctx, cfg, bootstrap.Options{Logger: logger, SkipEmbeddingProbe: !probeEmbeddings})
	if err != nil {
		return nil, err
	}

	return &env{faqs: c.FAQs, pipeline: c.Pipeline, close: c.Close}, nil
}
