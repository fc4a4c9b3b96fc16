package handlers

import (
	"net/http"

	"github.com/Conceptual-Machines/songsmith-api/internal/models"
	"github.com/Conceptual-Machines/songsmith-api/internal/studio"
	"github.com/gin-gonic/gin"
)

// SettingsHandler serves the auxiliary settings. Store failures are
// reported as a persistence warning.
type SettingsHandler struct {
	svc *studio.Service
}

func NewSettingsHandler(svc *studio.Service) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

func (h *SettingsHandler) GetSamplePrompts(c *gin.Context) {
	prompts, err := h.svc.SamplePrompts(c.Request.Context())
	respond(c, http.StatusOK, gin.H{"prompts": prompts}, err, "")
}

func (h *SettingsHandler) PutSamplePrompts(c *gin.Context) {
	var req struct {
		Prompts []models.SamplePrompt `json:"prompts"`
	}
	if !bindJSON(c, &req) {
		return
	}
	err := h.svc.SetSamplePrompts(c.Request.Context(), req.Prompts)
	respond(c, http.StatusOK, gin.H{"prompts": req.Prompts}, err, "")
}

func (h *SettingsHandler) GetInstrumentPresets(c *gin.Context) {
	presets, err := h.svc.InstrumentPresets(c.Request.Context())
	respond(c, http.StatusOK, gin.H{"presets": presets}, err, "")
}

func (h *SettingsHandler) PutInstrumentPresets(c *gin.Context) {
	var req struct {
		Presets []models.InstrumentPreset `json:"presets"`
	}
	if !bindJSON(c, &req) {
		return
	}
	err := h.svc.SetInstrumentPresets(c.Request.Context(), req.Presets)
	respond(c, http.StatusOK, gin.H{"presets": req.Presets}, err, "")
}

func (h *SettingsHandler) GetLegibility(c *gin.Context) {
	enabled, err := h.svc.Legibility(c.Request.Context())
	respond(c, http.StatusOK, gin.H{"enabled": enabled}, err, "")
}

func (h *SettingsHandler) PutLegibility(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	err := h.svc.SetLegibility(c.Request.Context(), *req.Enabled)
	respond(c, http.StatusOK, gin.H{"enabled": *req.Enabled}, err, "")
}
