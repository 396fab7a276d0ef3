package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/poiesic/policyrag/core"
	"github.com/urfave/cli/v2"
)

func queryCommand(c *cli.Context) error {
	ctx := context.Background()

	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("query text is required")
	}

	store, retriever, err := openRetriever(ctx, c)
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := retriever.Retrieve(ctx, query)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	printResults(c.App.Writer, results)
	return nil
}

func printResults(w io.Writer, results []core.Result) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}
	for i, r := range results {
		fmt.Fprintf(w, "%d. [%s %.4f] %s\n", i+1, r.Signal, r.Score, r.Provenance.Citation)
		for _, line := range strings.Split(r.Text, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				fmt.Fprintf(w, "   %s\n", line)
			}
		}
		fmt.Fprintln(w)
	}
}
