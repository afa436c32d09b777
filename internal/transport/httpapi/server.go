// Package httpapi serves the judge over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/programme-lv/judge/api"
	"github.com/programme-lv/judge/internal/gatherer"
	"github.com/programme-lv/judge/internal/judge"
	"github.com/programme-lv/judge/internal/toolchain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Judge interface {
	Evaluate(ctx context.Context, req api.ExecReq, gath gatherer.ResultGatherer) (*api.ExecResponse, error)
	Run(ctx context.Context, req api.RunReq) (*api.RunResponse, error)
}

type Options struct {
	Judge     Judge
	Languages []toolchain.Spec
	// Metrics is served on /metrics when set.
	Metrics prometheus.Gatherer
	Limiter *Limiter
	Logger  *slog.Logger
}

type handler struct {
	judge     Judge
	languages []languageView
	logger    *slog.Logger
}

type languageView struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Aliases   []string `json:"aliases,omitempty"`
	Extension string   `json:"extension"`
	Compiled  bool     `json:"compiled"`
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{judge: opts.Judge, logger: logger}
	for _, l := range opts.Languages {
		h.languages = append(h.languages, languageView{
			ID:        l.ID,
			Name:      l.Name,
			Aliases:   l.Aliases,
			Extension: l.Extension,
			Compiled:  l.Compiled(),
		})
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/health", h.health)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Metrics, promhttp.HandlerOpts{})))
	}

	code := r.Group("/api", opts.Limiter.Middleware())
	{
		code.GET("/languages", h.listLanguages)
		code.POST("/code/submit", h.submit)
		code.POST("/code/run", h.run)
	}
	return r
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"client", c.ClientIP(),
			"ms", time.Since(start).Milliseconds(),
		)
	}
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) listLanguages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"languages": h.languages})
}

// submit judges the request. Hidden tests are redacted unless
// ?reveal=true is given.
func (h *handler) submit(c *gin.Context) {
	var req api.ExecReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.Language == "" || req.SourceCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "language and sourceCode are required"})
		return
	}

	resp, err := h.judge.Evaluate(c.Request.Context(), req, nil)
	if err != nil {
		h.fail(c, err)
		return
	}
	if c.Query("reveal") != "true" {
		redacted := resp.Redacted()
		resp = &redacted
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) run(c *gin.Context) {
	var req api.RunReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.Language == "" || req.SourceCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "language and sourceCode are required"})
		return
	}

	resp, err := h.judge.Run(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) fail(c *gin.Context, err error) {
	if judge.IsCallerError(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if errors.Is(err, context.Canceled) {
		// client went away
		c.Status(499)
		return
	}
	h.logger.Error("request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "system": true})
}
