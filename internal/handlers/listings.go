package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"property-pipeline/internal/analytics"
	"property-pipeline/internal/enrichment"
	"property-pipeline/internal/filter"
	"property-pipeline/internal/models"
)

// GetListings returns every visible listing, most recently updated first
func (h *Handler) GetListings(c *gin.Context) {
	limit, ok := queryInt(c, "limit", h.opts.DefaultLimit)
	if !ok {
		return
	}

	listings, err := h.store.GetAll(c.Request.Context(), limit)
	h.observeQuery("all", err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, enrichment.Enrich(listings))
}

// FilterListings applies min_/max_/has/equality query constraints
func (h *Handler) FilterListings(c *gin.Context) {
	spec, err := filter.ParseQuery(c.Request.URL.Query())
	if err != nil {
		h.observeQuery("filtered", err)
		respondError(c, err)
		return
	}

	listings, err := h.store.GetFiltered(c.Request.Context(), spec)
	h.observeQuery("filtered", err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, enrichment.Enrich(listings))
}

// GetListing returns one listing with its derived fields
func (h *Handler) GetListing(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	listing, err := h.store.GetByID(c.Request.Context(), id)
	h.observeQuery("by_id", err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, enrichment.Enrich([]models.Listing{*listing})[0])
}

type favoriteRequest struct {
	Favorite *bool `json:"favorite" binding:"required"`
}

// SetFavorite stars or unstars a listing
func (h *Handler) SetFavorite(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req favoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.SetFavorite(c.Request.Context(), id, *req.Favorite); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "favorite": *req.Favorite})
}

// GetFavorites returns the starred listings
func (h *Handler) GetFavorites(c *gin.Context) {
	listings, err := h.store.GetFavorites(c.Request.Context())
	h.observeQuery("favorites", err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, enrichment.Enrich(listings))
}

// GetRentHistory returns the raw rent observations and their trend
func (h *Handler) GetRentHistory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	period, err := analytics.ParsePeriod(c.Query("period"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	points, err := h.store.RentalHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"listing_id": id,
		"period":     period,
		"history":    points,
		"trend":      analytics.RentTrend(points, period),
	})
}

// GetListingChanges returns the audit trail of a listing, newest first
func (h *Handler) GetListingChanges(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	changes, err := h.store.ListingChanges(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, changes)
}

// GetTopYield returns the n best rent yields, 10 by default
func (h *Handler) GetTopYield(c *gin.Context) {
	n, ok := queryInt(c, "n", 10)
	if !ok {
		return
	}
	listings, err := h.store.GetAll(c.Request.Context(), 0)
	h.observeQuery("all", err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analytics.TopByYield(enrichment.Enrich(listings), n))
}

var groupKeys = map[string]analytics.GroupKey{
	"city":     analytics.ByCity,
	"mls_type": analytics.ByMLSType,
	"beds":     analytics.ByBeds,
}

var groupMetrics = map[string]analytics.Metric{
	"rent_yield":     analytics.RentYieldMetric,
	"price":          analytics.PriceMetric,
	"price_per_sqft": analytics.PricePerSqftMetric,
}

// GetGroupAverages averages a metric per city, MLS type or bedroom count
func (h *Handler) GetGroupAverages(c *gin.Context) {
	key, ok := groupKeys[c.DefaultQuery("by", "city")]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "by must be city, mls_type or beds"})
		return
	}
	metric, ok := groupMetrics[c.DefaultQuery("metric", "rent_yield")]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "metric must be rent_yield, price or price_per_sqft"})
		return
	}
	minCount, ok := queryInt(c, "min_count", 1)
	if !ok {
		return
	}

	listings, err := h.store.GetAll(c.Request.Context(), 0)
	h.observeQuery("all", err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analytics.GroupAverage(enrichment.Enrich(listings), key, metric, minCount))
}

// GetMapPoints returns the listings with coordinates
func (h *Handler) GetMapPoints(c *gin.Context) {
	listings, err := h.store.GetAll(c.Request.Context(), 0)
	h.observeQuery("all", err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analytics.MapPoints(listings))
}
