package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/policyrag"
	"github.com/poiesic/policyrag/ai/mock"
	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/indexing"
	"github.com/poiesic/policyrag/metrics"
	"github.com/poiesic/policyrag/search"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

var testDocs = []core.Document{
	{ID: "handbook.pdf", Blocks: []core.Block{
		{Heading: "Leave", Paragraphs: []core.Paragraph{{Text: "Annual leave accrues monthly."}}},
		{Heading: "Travel", Paragraphs: []core.Paragraph{{Text: "Travel requires manager approval."}}},
	}},
}

func buildStore(t *testing.T, store *policyrag.Store) {
	t.Helper()
	_, err := store.Build(context.Background(), mock.NewMockProvider(), testDocs,
		indexing.WithSummaries(false), indexing.WithTriples(false), indexing.WithPoolSize(2))
	require.NoError(t, err)
}

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func TestCommands(t *testing.T) {
	app := newApp()
	for _, name := range []string{"build", "query", "serve", "rerank-worker", "info"} {
		t.Run(name, func(t *testing.T) {
			cmd := findCommand(t, app, name)
			assert.NotNil(t, cmd.Action)
		})
	}

	t.Run("rerank-worker is hidden", func(t *testing.T) {
		assert.True(t, findCommand(t, app, "rerank-worker").Hidden)
	})

	t.Run("worker batch size comes from the reranker environment", func(t *testing.T) {
		cmd := findCommand(t, app, "rerank-worker")
		var batch *cli.IntFlag
		for _, flag := range cmd.Flags {
			if f, ok := flag.(*cli.IntFlag); ok && f.Name == "batch-size" {
				batch = f
			}
		}
		require.NotNil(t, batch)
		assert.Equal(t, 8, batch.Value)
		assert.Equal(t, []string{"POLICYRAG_RERANK_BATCH_SIZE"}, batch.EnvVars)
	})
}

func TestRequiredFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"build needs db", []string{"policyrag", "build", "docs.json"}, "db"},
		{"query needs db", []string{"policyrag", "query", "leave"}, "db"},
		{"info needs db", []string{"policyrag", "info"}, "db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("POLICYRAG_DB", "")
			require.NoError(t, os.Unsetenv("POLICYRAG_DB"))
			err := newApp().Run(tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBuildCommand_Validation(t *testing.T) {
	dir := t.TempDir()

	t.Run("needs one path", func(t *testing.T) {
		err := newApp().Run([]string{"policyrag", "build", "--db", dir})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected one documents file or directory")
	})

	t.Run("unknown variant", func(t *testing.T) {
		docs := filepath.Join(dir, "docs.json")
		data, err := json.Marshal(testDocs)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(docs, data, 0644))

		err = newApp().Run([]string{"policyrag", "build", "--db", dir, "--variants", "semantic", docs})
		assert.ErrorIs(t, err, core.ErrInvalidVariant)
	})
}

func TestInfoCommand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	store, err := policyrag.OpenStore(dir)
	require.NoError(t, err)
	buildStore(t, store)
	require.NoError(t, store.Close())

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	require.NoError(t, app.Run([]string{"policyrag", "info", "--db", dir}))

	assert.Contains(t, out.String(), "Embedding model: mock-embedding")
	assert.Contains(t, out.String(), "Chunks:          2")
	assert.Contains(t, out.String(), "Variants:        content, keyword, prefix")
}

func TestLoadDocuments(t *testing.T) {
	dir := t.TempDir()
	single, err := json.Marshal(testDocs[0])
	require.NoError(t, err)
	list, err := json.Marshal([]core.Document{
		{ID: "a.pdf", Blocks: []core.Block{{Paragraphs: []core.Paragraph{{Text: "A."}}}}},
		{ID: "b.pdf", Blocks: []core.Block{{Paragraphs: []core.Paragraph{{Text: "B."}}}}},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2-list.json"), list, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1-single.json"), single, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	t.Run("directory in name order", func(t *testing.T) {
		docs, err := loadDocuments(dir)
		require.NoError(t, err)
		require.Len(t, docs, 3)
		assert.Equal(t, "handbook.pdf", docs[0].ID)
		assert.Equal(t, "a.pdf", docs[1].ID)
		assert.Equal(t, "b.pdf", docs[2].ID)
	})

	t.Run("single file", func(t *testing.T) {
		docs, err := loadDocuments(filepath.Join(dir, "2-list.json"))
		require.NoError(t, err)
		assert.Len(t, docs, 2)
	})

	t.Run("empty directory", func(t *testing.T) {
		_, err := loadDocuments(t.TempDir())
		assert.ErrorContains(t, err, "no documents found")
	})

	t.Run("invalid JSON", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
		_, err := loadDocuments(bad)
		assert.ErrorContains(t, err, "bad.json")
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := loadDocuments(filepath.Join(dir, "missing"))
		assert.Error(t, err)
	})
}

func TestPrintResults(t *testing.T) {
	var out bytes.Buffer
	printResults(&out, nil)
	assert.Equal(t, "No results.\n", out.String())

	out.Reset()
	printResults(&out, []core.Result{{
		Text:       "Travel\n\nTravel requires manager approval.",
		Score:      0.75,
		Signal:     "rerank",
		Provenance: core.Provenance{Citation: "handbook.pdf – block 1"},
	}})
	assert.Equal(t, "1. [rerank 0.7500] handbook.pdf – block 1\n   Travel\n   Travel requires manager approval.\n\n", out.String())
}

func newTestRouter(t *testing.T) (*gin.Engine, *search.Retriever) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := policyrag.OpenStore("", policyrag.InMemory())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	buildStore(t, store)

	retriever, err := store.NewRetriever(context.Background(), mock.NewMockEmbedder(), search.WithDefaultVariant(core.VariantContent))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	return newRouter(retriever, metrics.New(reg), reg), retriever
}

func postRetrieve(router http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/retrieve", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_Retrieve(t *testing.T) {
	router, retriever := newTestRouter(t)
	travel, ok := retriever.Snapshot().Chunk(1)
	require.True(t, ok)

	body, err := json.Marshal(retrieveRequest{Query: travel.Text, TopK: 1})
	require.NoError(t, err)
	w := postRetrieve(router, string(body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp retrieveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 1, resp.Results[0].ChunkID)
	assert.Equal(t, "dense", resp.Results[0].Signal)
	assert.Equal(t, "handbook.pdf – block 1", resp.Results[0].Provenance.Citation)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, resp.RequestID, w.Header().Get(requestIDHeader))
}

func TestRouter_RequestIDPassthrough(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/retrieve", strings.NewReader(`{"query":"leave"}`))
	req.Header.Set(requestIDHeader, "req-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-42", w.Header().Get(requestIDHeader))
}

func TestRouter_RetrieveErrors(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed body", `{"query":`, http.StatusBadRequest, "invalid_request"},
		{"empty query", `{"query":"   "}`, http.StatusBadRequest, "invalid_request"},
		{"unknown variant", `{"query":"leave","variant":"semantic"}`, http.StatusBadRequest, "invalid_variant"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postRetrieve(router, tt.body)
			assert.Equal(t, tt.status, w.Code)

			var resp struct {
				Error apiError `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestRouter_RetrieveVariantMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store, err := policyrag.OpenStore("", policyrag.InMemory())
	require.NoError(t, err)
	defer store.Close()
	_, err = store.Build(context.Background(), mock.NewMockProvider(), testDocs,
		indexing.WithSummaries(false), indexing.WithTriples(false), indexing.WithVariants(core.VariantContent))
	require.NoError(t, err)

	retriever, err := store.NewRetriever(context.Background(), mock.NewMockEmbedder(), search.WithDefaultVariant(core.VariantContent))
	require.NoError(t, err)
	router := newRouter(retriever, metrics.New(nil), prometheus.NewRegistry())

	w := postRetrieve(router, `{"query":"leave","variant":"keyword"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "variant_missing")
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, float64(2), health["chunks"])

	postRetrieve(router, `{"query":"leave"}`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `policyrag_http_requests_total{route="/v1/retrieve",status="200"} 1`)
	assert.Contains(t, w.Body.String(), `policyrag_http_requests_total{route="/healthz",status="200"} 1`)
}

func TestSetupLogger(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		testCases := []struct {
			input    string
			expected slog.Level
		}{
			{"debug", slog.LevelDebug},
			{"info", slog.LevelInfo},
			{"warn", slog.LevelWarn},
			{"error", slog.LevelError},
			{"DEBUG", slog.LevelDebug},
			{"WaRn", slog.LevelWarn},
		}

		for _, tc := range testCases {
			t.Run(tc.input, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "log-level", Value: "info"},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error {
						return nil
					},
				}

				require.NoError(t, app.Run([]string{"test", "--log-level", tc.input}))
				assert.True(t, slog.Default().Enabled(context.Background(), tc.expected))
				if tc.expected > slog.LevelDebug {
					assert.False(t, slog.Default().Enabled(context.Background(), tc.expected-1))
				}
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		app := &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "log-level", Value: "info"},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error {
				return nil
			},
		}

		err := app.Run([]string{"test", "--log-level", "invalid"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("log level from environment", func(t *testing.T) {
		t.Setenv("POLICYRAG_LOG_LEVEL", "verbose")
		app := newApp()
		err := app.Run([]string{"policyrag", "info", "--db", t.TempDir()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestAIConfig(t *testing.T) {
	app := &cli.App{
		Name:  "test",
		Flags: newApp().Flags,
		Action: func(c *cli.Context) error {
			cfg, err := aiConfig(c)
			require.NoError(t, err)
			assert.Equal(t, "http://embed:11434/v1", cfg.EmbeddingHost)
			assert.Equal(t, "http://embed:11434/v1", cfg.ExtractorHost, "extractor host defaults to the embedding host")
			assert.Equal(t, "http://rerank:8080", cfg.RerankerHost)
			return nil
		},
	}
	require.NoError(t, app.Run([]string{"test", "--embedding-host", "http://embed:11434", "--reranker-host", "http://rerank:8080/"}))
}

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	os.Exit(m.Run())
}
