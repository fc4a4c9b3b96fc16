package handlers

import (
	"net/http"

	"github.com/Conceptual-Machines/songsmith-api/internal/credential"
	"github.com/Conceptual-Machines/songsmith-api/internal/logger"
	"github.com/gin-gonic/gin"
)

type CredentialHandler struct {
	verifier *credential.Verifier
}

func NewCredentialHandler(verifier *credential.Verifier) *CredentialHandler {
	return &CredentialHandler{verifier: verifier}
}

type VerifyRequest struct {
	Credential string `json:"credential" binding:"required"`
}

// GetState returns the latest trust state and whether a credential is stored
func (h *CredentialHandler) GetState(c *gin.Context) {
	stored, err := h.verifier.Stored(c.Request.Context())
	if err != nil {
		c.Header(PersistenceWarningHeader, err.Error())
	}
	c.JSON(http.StatusOK, gin.H{
		"state":  h.verifier.State(),
		"stored": stored,
	})
}

// Verify probes the submitted credential. The credential itself is never logged.
func (h *CredentialHandler) Verify(c *gin.Context) {
	var req VerifyRequest
	if !bindJSON(c, &req) {
		return
	}

	logger.Info("Credential verification requested", logger.WithContext(c))
	state, err := h.verifier.Verify(c.Request.Context(), req.Credential)
	if err != nil {
		respondError(c, "", err)
		return
	}
	if state.Warning != "" {
		c.Header(PersistenceWarningHeader, state.Warning)
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

// Delete forgets the stored credential
func (h *CredentialHandler) Delete(c *gin.Context) {
	state, err := h.verifier.Delete(c.Request.Context())
	respond(c, http.StatusOK, gin.H{"state": state}, err, "")
}
