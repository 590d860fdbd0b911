package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"property-pipeline/internal/enrichment"
)

// Search resolves a free-text query to listings through the index
func (h *Handler) Search(c *gin.Context) {
	if h.opts.Search == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search is disabled"})
		return
	}
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return
	}

	ids, err := h.opts.Search.SearchIDs(query, int64(limit))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	// the store drops blacklisted ids the index may still hold
	listings, err := h.store.GetByIDs(c.Request.Context(), ids)
	h.observeQuery("search", err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, enrichment.Enrich(listings))
}

// Reindex rebuilds the search index from the store
func (h *Handler) Reindex(c *gin.Context) {
	if h.opts.Search == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search is disabled"})
		return
	}

	listings, err := h.store.GetAll(c.Request.Context(), 0)
	h.observeQuery("all", err)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.opts.Search.Reindex(enrichment.Enrich(listings)); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"indexed": len(listings)})
}
