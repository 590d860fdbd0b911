package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"property-pipeline/internal/jobs"
)

// bindOptional decodes a JSON body into dst. An empty body keeps dst as is.
func bindOptional(c *gin.Context, dst any) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// RunJob launches one external enrichment job and waits for it
func (h *Handler) RunJob(c *gin.Context) {
	kind := jobs.Kind(c.Param("kind"))
	run, ok := h.jobFor(c, kind)
	if !ok {
		return
	}

	res, err := run(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type jobFunc func(ctx context.Context) (*jobs.Result, error)

// jobFor binds the request options for kind. It writes the error response
// itself when the kind or the body is invalid.
func (h *Handler) jobFor(c *gin.Context, kind jobs.Kind) (jobFunc, bool) {
	switch kind {
	case jobs.KindGmail:
		var opts jobs.GmailOptions
		if !bindOptional(c, &opts) {
			return nil, false
		}
		return func(ctx context.Context) (*jobs.Result, error) { return h.runner.GmailImport(ctx, opts) }, true

	case jobs.KindCompass:
		opts := jobs.CompassOptions{Headless: true}
		if !bindOptional(c, &opts) {
			return nil, false
		}
		return func(ctx context.Context) (*jobs.Result, error) { return h.runner.CompassEnrich(ctx, opts) }, true

	case jobs.KindWalkScore:
		return func(ctx context.Context) (*jobs.Result, error) {
			return h.runner.WalkScoreEnrich(ctx, jobs.WalkScoreOptions{})
		}, true

	case jobs.KindCashflow:
		var opts jobs.CashflowOptions
		if !bindOptional(c, &opts) {
			return nil, false
		}
		return func(ctx context.Context) (*jobs.Result, error) { return h.runner.CashflowEnrich(ctx, opts) }, true

	case jobs.KindCashflowAnalyzer:
		opts := jobs.DefaultAnalyzerOptions("")
		if !bindOptional(c, &opts) {
			return nil, false
		}
		return func(ctx context.Context) (*jobs.Result, error) { return h.runner.CashflowAnalyze(ctx, opts) }, true

	case jobs.KindInitDB:
		return func(ctx context.Context) (*jobs.Result, error) {
			return h.runner.InitDB(ctx, jobs.InitDBOptions{})
		}, true
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "unknown job " + string(kind)})
	return nil, false
}
