package handlers

import (
	"net/http"
	"strconv"

	"github.com/Conceptual-Machines/songsmith-api/internal/models"
	"github.com/Conceptual-Machines/songsmith-api/internal/studio"
	"github.com/gin-gonic/gin"
)

type ProjectHandler struct {
	svc *studio.Service
}

func NewProjectHandler(svc *studio.Service) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

func (h *ProjectHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.List())
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var seed models.ProjectSeed
	if !bindJSON(c, &seed) {
		return
	}
	p, err := h.svc.CreateProject(c.Request.Context(), seed)
	respond(c, http.StatusCreated, projectBody(p), err, "")
}

func (h *ProjectHandler) Import(c *gin.Context) {
	var imported models.Project
	if !bindJSON(c, &imported) {
		return
	}
	p, err := h.svc.ImportProject(c.Request.Context(), &imported)
	respond(c, http.StatusCreated, projectBody(p), err, "")
}

func (h *ProjectHandler) Get(c *gin.Context) {
	p, err := h.svc.Get(c.Param("id"))
	respond(c, http.StatusOK, projectBody(p), err, "")
}

func (h *ProjectHandler) Update(c *gin.Context) {
	var patch models.ProjectPatch
	if !bindJSON(c, &patch) {
		return
	}
	p, err := h.svc.UpdateProject(c.Request.Context(), c.Param("id"), patch)
	respond(c, http.StatusOK, projectBody(p), err, "")
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	err := h.svc.DeleteProject(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, gin.H{"deleted": c.Param("id")}, err, "")
}

func (h *ProjectHandler) Remix(c *gin.Context) {
	p, err := h.svc.RemixProject(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusCreated, projectBody(p), err, "")
}

// Pending lists the facets with a generation in flight
func (h *ProjectHandler) Pending(c *gin.Context) {
	if _, err := h.svc.Get(c.Param("id")); err != nil {
		respondError(c, "", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": h.svc.Pending(c.Param("id"))})
}

type ReplaceVariationsRequest struct {
	Variations []models.LyricVariation `json:"variations"`
}

func (h *ProjectHandler) ReplaceVariations(c *gin.Context) {
	var req ReplaceVariationsRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.ReplaceVariations(c.Request.Context(), c.Param("id"), req.Variations)
	respond(c, http.StatusOK, projectBody(p), err, "")
}

func (h *ProjectHandler) ApplyVariation(c *gin.Context) {
	index, ok := intParam(c, "index")
	if !ok {
		return
	}
	p, err := h.svc.ApplyVariation(c.Request.Context(), c.Param("id"), index)
	respond(c, http.StatusOK, projectBody(p), err, "")
}

type InsertBlockRequest struct {
	Position    *int   `json:"position"`
	Type        string `json:"type" binding:"required"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
}

// InsertBlock adds a block; a missing position appends
func (h *ProjectHandler) InsertBlock(c *gin.Context) {
	var req InsertBlockRequest
	if !bindJSON(c, &req) {
		return
	}
	position := -1
	if req.Position != nil {
		position = *req.Position
	}
	p, err := h.svc.InsertBlock(c.Request.Context(), c.Param("id"), position, models.SongBlock{
		Type:        req.Type,
		Description: req.Description,
		Duration:    req.Duration,
	})
	respond(c, http.StatusOK, projectBody(p), err, "")
}

type ReorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (h *ProjectHandler) ReorderBlock(c *gin.Context) {
	var req ReorderRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.ReorderBlock(c.Request.Context(), c.Param("id"), req.From, req.To)
	respond(c, http.StatusOK, projectBody(p), err, "")
}

type MoveRequest struct {
	Index int `json:"index"`
	Delta int `json:"delta"`
}

func (h *ProjectHandler) MoveBlock(c *gin.Context) {
	var req MoveRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.MoveBlock(c.Request.Context(), c.Param("id"), req.Index, req.Delta)
	respond(c, http.StatusOK, projectBody(p), err, "")
}

type DescribeBlockRequest struct {
	Description string `json:"description"`
}

func (h *ProjectHandler) DescribeBlock(c *gin.Context) {
	var req DescribeBlockRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.UpdateBlockDescription(c.Request.Context(), c.Param("id"), c.Param("blockID"), req.Description)
	respond(c, http.StatusOK, projectBody(p), err, "")
}

func (h *ProjectHandler) RemoveBlock(c *gin.Context) {
	p, err := h.svc.RemoveBlock(c.Request.Context(), c.Param("id"), c.Param("blockID"))
	respond(c, http.StatusOK, projectBody(p), err, "")
}

type TemplateRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *ProjectHandler) ApplyTemplate(c *gin.Context) {
	var req TemplateRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.ApplyTemplate(c.Request.Context(), c.Param("id"), req.Name)
	respond(c, http.StatusOK, projectBody(p), err, "")
}

// projectBody keeps a nil project from being encoded as a JSON null body
func projectBody(p *models.Project) interface{} {
	if p == nil {
		return nil
	}
	return p
}

func intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}
