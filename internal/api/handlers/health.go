package handlers

import (
	"net/http"

	"github.com/Conceptual-Machines/songsmith-api/internal/credential"
	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	verifier *credential.Verifier
	backend  string
}

func NewHealthHandler(verifier *credential.Verifier, backend string) *HealthHandler {
	return &HealthHandler{verifier: verifier, backend: backend}
}

// HealthCheck returns the health status of the API and its store
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	storeStatus := "ok"
	stored, err := h.verifier.Stored(c.Request.Context())
	if err != nil {
		storeStatus = "unavailable"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            "healthy",
		"backend":           h.backend,
		"store":             storeStatus,
		"credential_stored": stored,
		"trust":             h.verifier.State().Aggregate,
	})
}
