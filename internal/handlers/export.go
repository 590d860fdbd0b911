package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"property-pipeline/internal/enrichment"
	"property-pipeline/internal/export"
	"property-pipeline/internal/filter"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Export downloads the filtered, enriched listings as CSV, Excel or JSON
func (h *Handler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" && format != "json" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv, xlsx or json"})
		return
	}

	spec, err := filter.ParseQuery(c.Request.URL.Query(), "format")
	if err != nil {
		h.observeQuery("export", err)
		respondError(c, err)
		return
	}
	listings, err := h.store.GetFiltered(c.Request.Context(), spec)
	h.observeQuery("export", err)
	if err != nil {
		respondError(c, err)
		return
	}
	listings = enrichment.Enrich(listings)

	name := fmt.Sprintf("listings-%s.%s", time.Now().Format("20060102-150405"), format)
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	if format == "json" {
		c.JSON(http.StatusOK, listings)
		return
	}

	if format == "csv" {
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Status(http.StatusOK)
		err = export.WriteCSV(c.Writer, listings)
	} else {
		c.Header("Content-Type", xlsxContentType)
		c.Status(http.StatusOK)
		err = export.WriteExcel(c.Writer, listings)
	}
	if err != nil {
		// headers are gone; all we can do is log and abort
		c.Error(err)
		c.Abort()
	}
}
