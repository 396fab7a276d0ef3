package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/poiesic/policyrag/ai/crossencoder"
	"github.com/poiesic/policyrag/rerank"
	"github.com/urfave/cli/v2"
)

// rerankWorkerCommand answers exactly one request on stdin and exits.
// A failure has already been written to stdout as an error response; the
// returned error only sets the exit status.
func rerankWorkerCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aiCfg, err := aiConfig(c)
	if err != nil {
		return writeWorkerError(err)
	}
	client, err := crossencoder.New(aiCfg)
	if err != nil {
		return writeWorkerError(err)
	}
	return rerank.Serve(ctx, os.Stdin, os.Stdout, client, c.Int("batch-size"))
}

func writeWorkerError(err error) error {
	_ = rerank.WriteError(os.Stdout, err)
	return err
}
