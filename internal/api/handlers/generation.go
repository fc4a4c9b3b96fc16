package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/Conceptual-Machines/songsmith-api/internal/models"
	"github.com/Conceptual-Machines/songsmith-api/internal/prompt"
	"github.com/Conceptual-Machines/songsmith-api/internal/studio"
	"github.com/gin-gonic/gin"
)

const audioFormField = "audio"

type GenerationHandler struct {
	gen           *studio.Generator
	maxAudioBytes int64
}

func NewGenerationHandler(gen *studio.Generator, maxAudioBytes int64) *GenerationHandler {
	return &GenerationHandler{gen: gen, maxAudioBytes: maxAudioBytes}
}

// bindOptional decodes an optional JSON body; an empty body keeps the zero value
func bindOptional(c *gin.Context, dst interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return bindJSON(c, dst)
}

func (h *GenerationHandler) ThemePacks(c *gin.Context) {
	var opts prompt.ThemePackOptions
	if !bindOptional(c, &opts) {
		return
	}
	packs, err := h.gen.ThemePacks(c.Request.Context(), c.Param("id"), opts)
	if err != nil {
		respondError(c, models.FacetThemePacks, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"themePacks": packs})
}

func (h *GenerationHandler) Titles(c *gin.Context) {
	p, err := h.gen.Titles(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, projectBody(p), err, models.FacetTitles)
}

func (h *GenerationHandler) References(c *gin.Context) {
	refs, err := h.gen.References(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, models.FacetReferences, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"references": refs})
}

func (h *GenerationHandler) Lyrics(c *gin.Context) {
	var opts prompt.LyricsOptions
	if !bindOptional(c, &opts) {
		return
	}
	res, err := h.gen.Lyrics(c.Request.Context(), c.Param("id"), opts)
	var body interface{}
	if res != nil {
		body = res
	}
	respond(c, http.StatusOK, body, err, models.FacetLyrics)
}

func (h *GenerationHandler) Variations(c *gin.Context) {
	var opts prompt.VariationOptions
	if !bindOptional(c, &opts) {
		return
	}
	p, err := h.gen.Variations(c.Request.Context(), c.Param("id"), opts)
	respond(c, http.StatusOK, projectBody(p), err, models.FacetVariations)
}

func (h *GenerationHandler) SoundPrompt(c *gin.Context) {
	var opts prompt.SoundOptions
	if !bindOptional(c, &opts) {
		return
	}
	p, err := h.gen.SoundPrompt(c.Request.Context(), c.Param("id"), opts)
	respond(c, http.StatusOK, projectBody(p), err, models.FacetSoundPrompt)
}

func (h *GenerationHandler) CompositionAdvice(c *gin.Context) {
	p, err := h.gen.CompositionAdvice(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, projectBody(p), err, models.FacetCompositionAdvice)
}

// Tempo reads the clip from the "audio" multipart field
func (h *GenerationHandler) Tempo(c *gin.Context) {
	file, header, err := c.Request.FormFile(audioFormField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio file is required"})
		return
	}
	defer file.Close()

	limit := h.maxAudioBytes
	if limit <= 0 {
		limit = header.Size
	}
	// One byte over the limit is enough for the generator to reject it
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read audio file"})
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	p, err := h.gen.Tempo(c.Request.Context(), c.Param("id"), mimeType, data)
	respond(c, http.StatusOK, projectBody(p), err, models.FacetTempo)
}

func (h *GenerationHandler) CoverArt(c *gin.Context) {
	var req studio.CoverArtRequest
	if !bindOptional(c, &req) {
		return
	}
	res, err := h.gen.CoverArt(c.Request.Context(), c.Param("id"), req)
	var body interface{}
	if res != nil {
		body = res
	}
	respond(c, http.StatusOK, body, err, models.FacetCoverArt)
}
