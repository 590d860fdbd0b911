// Package handlers exposes the listing store, enrichment and jobs over HTTP.
package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"property-pipeline/internal/database"
	"property-pipeline/internal/filter"
	"property-pipeline/internal/jobs"
	"property-pipeline/internal/metrics"
	"property-pipeline/internal/models"
	"property-pipeline/internal/ratelimit"
	"property-pipeline/internal/scheduler"
)

// ListingStore is the store surface the API needs.
type ListingStore interface {
	Ping(ctx context.Context) error
	GetAll(ctx context.Context, limit int) ([]models.Listing, error)
	GetFiltered(ctx context.Context, spec filter.Spec) ([]models.Listing, error)
	GetByID(ctx context.Context, id int64) (*models.Listing, error)
	GetByIDs(ctx context.Context, ids []int64) ([]models.Listing, error)
	GetFavorites(ctx context.Context) ([]models.Listing, error)
	SetFavorite(ctx context.Context, id int64, favorite bool) error
	AddToBlacklist(ctx context.Context, address string, reason *string) (bool, error)
	RemoveFromBlacklist(ctx context.Context, address string) (bool, error)
	ListBlacklist(ctx context.Context) ([]models.BlacklistEntry, error)
	RentalHistory(ctx context.Context, listingID int64) ([]models.RentalHistoryPoint, error)
	ListingChanges(ctx context.Context, listingID int64) ([]models.ListingChange, error)
	SummaryStats(ctx context.Context) (*database.Stats, error)
	HasColumn(ctx context.Context, column string) (bool, error)
}

// Searcher is the full-text index.
type Searcher interface {
	SearchIDs(query string, limit int64) ([]int64, error)
	Reindex(listings []models.Listing) error
	DeleteByAddress(address string) error
}

// EnrichmentScheduler runs the enrichment pass on demand.
type EnrichmentScheduler interface {
	RunNow(ctx context.Context) (*scheduler.Report, error)
	Breakers() []scheduler.BreakerStatus
}

// Options carries the optional collaborators. Nil members disable the
// routes that need them.
type Options struct {
	Search       Searcher
	Scheduler    EnrichmentScheduler
	Metrics      *metrics.Metrics
	JobLimits    *ratelimit.KeyedLimiter
	DefaultLimit int
}

// Handler serves the dashboard API
type Handler struct {
	store  ListingStore
	runner jobs.Runner
	opts   Options
}

// New creates a handler
func New(store ListingStore, runner jobs.Runner, opts Options) *Handler {
	return &Handler{store: store, runner: runner, opts: opts}
}

// RouterConfig configures the gin engine around the handler.
type RouterConfig struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
	LogRequests    bool
}

// NewRouter builds the engine with CORS, recovery and every route.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.LogRequests {
		r.Use(gin.Logger())
	}

	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
			AllowHeaders:     []string{"Origin", "Content-Type"},
			AllowCredentials: true,
		}))
	}
	if cfg.RequestTimeout > 0 {
		r.Use(timeoutMiddleware(cfg.RequestTimeout, jobRoutes...))
	}

	h.Register(r)
	return r
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.Health)
	if h.opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.opts.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		api.GET("/listings", h.GetListings)
		api.GET("/listings/filter", h.FilterListings)
		api.GET("/listings/:id", h.GetListing)
		api.PUT("/listings/:id/favorite", h.SetFavorite)
		api.GET("/listings/:id/rent-history", h.GetRentHistory)
		api.GET("/listings/:id/changes", h.GetListingChanges)
		api.GET("/favorites", h.GetFavorites)

		api.GET("/blacklist", h.ListBlacklist)
		api.POST("/blacklist", h.AddToBlacklist)
		api.DELETE("/blacklist", h.RemoveFromBlacklist)

		api.GET("/stats", h.GetStats)
		api.GET("/analytics/top-yield", h.GetTopYield)
		api.GET("/analytics/groups", h.GetGroupAverages)
		api.GET("/analytics/map", h.GetMapPoints)

		api.GET("/enrichment/needs", h.GetEnrichmentNeeds)
		api.POST("/enrichment/run", h.RunEnrichment)
		api.GET("/enrichment/breakers", h.GetBreakers)

		api.POST("/jobs/:kind", h.RunJob)
		api.GET("/jobs/limits", h.GetJobLimits)

		api.GET("/export", h.Export)

		api.GET("/search", h.Search)
		api.POST("/search/reindex", h.Reindex)
	}
}

// jobRoutes run external scripts under their own per-job timeouts and are
// exempt from the request timeout.
var jobRoutes = []string{"/api/jobs/:kind", "/api/enrichment/run"}

// timeoutMiddleware bounds the request context, so store calls give up
// when the client would have. Routes in skip keep the unbounded context.
func timeoutMiddleware(d time.Duration, skip ...string) gin.HandlerFunc {
	exempt := make(map[string]bool, len(skip))
	for _, p := range skip {
		exempt[p] = true
	}
	return func(c *gin.Context) {
		if exempt[c.FullPath()] {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Health pings the store
func (h *Handler) Health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondError maps domain errors to status codes.
func respondError(c *gin.Context, err error) {
	var (
		invalid *filter.InvalidFilterError
		timeout *jobs.TimeoutError
		failed  *jobs.FailedError
	)

	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": invalid.Field})
	case errors.Is(err, jobs.ErrInvalidOptions), errors.Is(err, database.ErrEmptyAddress):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, database.ErrListingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, jobs.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.As(err, &timeout):
		c.JSON(http.StatusGatewayTimeout, jobBody(err, timeout.Result))
	case errors.As(err, &failed):
		c.JSON(http.StatusBadGateway, jobBody(err, failed.Result))
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	case errors.Is(err, database.ErrStoreUnavailable):
		log.Printf("[API] store error path=%s: %v", c.FullPath(), err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		log.Printf("[API] unexpected error path=%s: %v", c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func jobBody(err error, res *jobs.Result) gin.H {
	body := gin.H{"error": err.Error()}
	if res != nil {
		body["job"] = res.Job
		body["run_id"] = res.RunID
		body["exit_code"] = res.ExitCode
		body["stdout"] = res.Stdout
		body["stderr"] = res.Stderr
	}
	return body
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing id"})
		return 0, false
	}
	return id, true
}

// queryInt reads a non-negative integer query parameter.
func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return n, true
}

func (h *Handler) observeQuery(mode string, err error) {
	if h.opts.Metrics == nil {
		return
	}
	outcome := metrics.OutcomeSuccess
	var invalid *filter.InvalidFilterError
	switch {
	case err == nil:
	case errors.As(err, &invalid):
		outcome = metrics.OutcomeInvalid
	default:
		outcome = metrics.OutcomeError
	}
	h.opts.Metrics.ObserveQuery(mode, outcome)
}
