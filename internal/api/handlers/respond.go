package handlers

import (
	"errors"
	"net/http"

	"github.com/Conceptual-Machines/songsmith-api/internal/credential"
	"github.com/Conceptual-Machines/songsmith-api/internal/logger"
	"github.com/Conceptual-Machines/songsmith-api/internal/models"
	"github.com/Conceptual-Machines/songsmith-api/internal/store"
	"github.com/Conceptual-Machines/songsmith-api/internal/studio"
	"github.com/gin-gonic/gin"
)

// PersistenceWarningHeader carries the reason a change applied in memory was not stored
const PersistenceWarningHeader = "X-Persistence-Warning"

// respond writes body with status. A persistence failure alongside a result
// is downgraded to a warning header; any other error is mapped by respondError.
func respond(c *gin.Context, status int, body interface{}, err error, facet models.Facet) {
	if err != nil {
		if !store.IsPersistenceFailure(err) || body == nil {
			respondError(c, facet, err)
			return
		}
		c.Header(PersistenceWarningHeader, err.Error())
	}
	c.JSON(status, body)
}

// respondError maps domain errors to HTTP status codes
func respondError(c *gin.Context, facet models.Facet, err error) {
	var verification *credential.VerificationFailure

	fields := logger.WithContext(c).Merge(logger.Fields{"error": err.Error()})
	if facet != "" {
		fields["facet"] = string(facet)
	}

	switch {
	case studio.IsValidation(err),
		errors.Is(err, credential.ErrEmptyCredential),
		errors.Is(err, studio.ErrTemplateUnknown):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.As(err, &verification):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "state": verification.State})

	case errors.Is(err, studio.ErrNoCredential):
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": err.Error()})

	case errors.Is(err, studio.ErrProjectNotFound), errors.Is(err, studio.ErrBlockNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, studio.ErrSuperseded), errors.Is(err, credential.ErrRunSuperseded):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case studio.IsGenerationError(err):
		logger.Warn("Generation failed", fields)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "facet": facet})

	default:
		logger.Error("Request failed", err, fields)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// bindJSON decodes the body into dst, answering 400 on failure
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}
