package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/poiesic/policyrag"
	"github.com/poiesic/policyrag/core"
	"github.com/urfave/cli/v2"
)

func infoCommand(c *cli.Context) error {
	store, err := policyrag.OpenStore(c.String("db"), policyrag.ReadOnly())
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer store.Close()

	manifest, err := store.Manifest(context.Background())
	if err != nil {
		return err
	}
	printManifest(c.App.Writer, manifest)
	return nil
}

func printManifest(w io.Writer, m *core.Manifest) {
	fmt.Fprintf(w, "Build:           %s\n", m.BuildID)
	fmt.Fprintf(w, "Created:         %s\n", m.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Embedding model: %s\n", m.EmbeddingModel)
	fmt.Fprintf(w, "Dimension:       %d\n", m.Dimension)
	fmt.Fprintf(w, "Chunks:          %d\n", m.ChunkCount)
	fmt.Fprintf(w, "Triples:         %d\n", m.TripleCount)
	fmt.Fprintf(w, "Variants:        %s\n", strings.Join(variantNames(m.Variants), ", "))
	fmt.Fprintf(w, "Fingerprint:     %016x\n", uint64(m.Fingerprint))
}
