package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"property-pipeline/internal/enrichment"
)

// GetStats returns the dashboard summary statistics
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.store.SummaryStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListBlacklist returns every blacklisted address
func (h *Handler) ListBlacklist(c *gin.Context) {
	entries, err := h.store.ListBlacklist(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

type blacklistRequest struct {
	Address string  `json:"address" binding:"required"`
	Reason  *string `json:"reason"`
}

// AddToBlacklist hides an address from every listing view
func (h *Handler) AddToBlacklist(c *gin.Context) {
	var req blacklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	added, err := h.store.AddToBlacklist(c.Request.Context(), req.Address, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.opts.Search != nil {
		if err := h.opts.Search.DeleteByAddress(req.Address); err != nil {
			log.Printf("[API] failed to drop %q from search index: %v", req.Address, err)
		}
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"address": strings.TrimSpace(req.Address), "added": added})
}

// RemoveFromBlacklist makes an address visible again
func (h *Handler) RemoveFromBlacklist(c *gin.Context) {
	address := c.Query("address")
	if strings.TrimSpace(address) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address is required"})
		return
	}

	removed, err := h.store.RemoveFromBlacklist(c.Request.Context(), address)
	if err != nil {
		respondError(c, err)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "address is not blacklisted"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": address, "removed": true})
}

// GetEnrichmentNeeds reports which listings each enrichment job still has
// to process
func (h *Handler) GetEnrichmentNeeds(c *gin.Context) {
	ctx := c.Request.Context()

	listings, err := h.store.GetAll(ctx, 0)
	h.observeQuery("all", err)
	if err != nil {
		respondError(c, err)
		return
	}
	tracked, err := h.store.HasColumn(ctx, "estimated_monthly_cashflow")
	if err != nil {
		respondError(c, err)
		return
	}

	needs := enrichment.Analyze(enrichment.Enrich(listings), enrichment.AnalyzeOptions{CashflowTracked: tracked})
	c.JSON(http.StatusOK, gin.H{
		"counts": needs.Counts(len(listings)),
		"ids": gin.H{
			"walkscore_missing": enrichment.IDs(needs.WalkScoreMissing),
			"transit_missing":   enrichment.IDs(needs.TransitMissing),
			"bike_missing":      enrichment.IDs(needs.BikeMissing),
			"mls_missing":       enrichment.IDs(needs.MLSMissing),
			"tax_missing":       enrichment.IDs(needs.TaxMissing),
			"cashflow_missing":  enrichment.IDs(needs.CashflowMissing),
		},
	})
}

// RunEnrichment triggers the scheduled enrichment pass immediately
func (h *Handler) RunEnrichment(c *gin.Context) {
	if h.opts.Scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler not configured"})
		return
	}

	report, err := h.opts.Scheduler.RunNow(c.Request.Context())
	if report == nil {
		respondError(c, err)
		return
	}
	body := gin.H{"report": report}
	if err != nil {
		body["error"] = err.Error()
	}
	c.JSON(http.StatusOK, body)
}

// GetBreakers returns the state of the scheduled job breakers
func (h *Handler) GetBreakers(c *gin.Context) {
	if h.opts.Scheduler == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}
	c.JSON(http.StatusOK, h.opts.Scheduler.Breakers())
}

// GetJobLimits returns the launch budget of every job kind used so far
func (h *Handler) GetJobLimits(c *gin.Context) {
	if h.opts.JobLimits == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}
	c.JSON(http.StatusOK, h.opts.JobLimits.AllStats())
}
