package handlers

import (
	"net/http"

	"github.com/Conceptual-Machines/songsmith-api/internal/catalog"
	"github.com/gin-gonic/gin"
)

// GetCatalog returns the static creative catalog
func GetCatalog(cat *catalog.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, cat)
	}
}
