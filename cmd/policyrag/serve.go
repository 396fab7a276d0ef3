package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/poiesic/policyrag/core"
	"github.com/poiesic/policyrag/index"
	"github.com/poiesic/policyrag/metrics"
	"github.com/poiesic/policyrag/search"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

const (
	requestIDHeader = "X-Request-Id"
	shutdownTimeout = 10 * time.Second
)

type retrieveRequest struct {
	Query   string `json:"query"`
	TopK    int    `json:"top_k,omitempty"`
	Variant string `json:"variant,omitempty"`
	Graph   *bool  `json:"graph,omitempty"`
	Rerank  *bool  `json:"rerank,omitempty"`
}

type retrieveResponse struct {
	RequestID string        `json:"request_id"`
	Results   []core.Result `json:"results"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store, retriever, err := openRetriever(ctx, c, search.WithMonitor(m.Monitor()))
	if err != nil {
		return err
	}
	defer store.Close()
	m.UpdateIndexStats(retriever.Snapshot().Manifest())

	srv := &http.Server{
		Addr:              c.String("addr"),
		Handler:           newRouter(retriever, m, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("serving retrieval", "addr", srv.Addr, "chunks", retriever.Snapshot().Len())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(retriever *search.Retriever, m *metrics.Metrics, gatherer prometheus.Gatherer) *gin.Engine {
	h := &handler{retriever: retriever, logger: slog.Default().With("component", "http")}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(observe(m))

	router.GET("/healthz", h.health)
	router.POST("/v1/retrieve", h.retrieve)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	return router
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Writer.Header().Set(requestIDHeader, reqID)
		c.Set("request_id", reqID)
		c.Next()
	}
}

func observe(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

type handler struct {
	retriever *search.Retriever
	logger    *slog.Logger
}

func (h *handler) health(c *gin.Context) {
	manifest := h.retriever.Snapshot().Manifest()
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"build":    manifest.BuildID,
		"chunks":   manifest.ChunkCount,
		"triples":  manifest.TripleCount,
		"model":    manifest.EmbeddingModel,
		"variants": variantNames(manifest.Variants),
	})
}

func (h *handler) retrieve(c *gin.Context) {
	reqID := c.GetString("request_id")

	var req retrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeError(c, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}

	var opts []search.QueryOption
	if req.Variant != "" {
		v, err := core.ParseVariant(req.Variant)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid_variant", err.Error())
			return
		}
		opts = append(opts, search.WithVariant(v))
	}
	if req.TopK > 0 {
		opts = append(opts, search.WithTopK(req.TopK))
	}
	if req.Graph != nil {
		opts = append(opts, search.WithGraphSearch(*req.Graph))
	}
	if req.Rerank != nil {
		opts = append(opts, search.WithRerank(*req.Rerank))
	}

	results, err := h.retriever.Retrieve(c.Request.Context(), req.Query, opts...)
	if err != nil {
		h.logger.Error("retrieval failed", "request_id", reqID, "err", err)
		switch {
		case errors.Is(err, index.ErrVariantMissing):
			writeError(c, http.StatusBadRequest, "variant_missing", err.Error())
		case errors.Is(err, search.ErrEmbeddingFailed):
			writeError(c, http.StatusBadGateway, "embedding_failed", err.Error())
		default:
			writeError(c, http.StatusInternalServerError, "internal", err.Error())
		}
		return
	}

	h.logger.Debug("retrieved", "request_id", reqID, "results", len(results))
	c.JSON(http.StatusOK, retrieveResponse{RequestID: reqID, Results: results})
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": apiError{Code: code, Message: message}})
}

func variantNames(variants []core.Variant) []string {
	names := make([]string, len(variants))
	for i, v := range variants {
		names[i] = v.String()
	}
	return names
}
