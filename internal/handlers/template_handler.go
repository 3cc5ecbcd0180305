package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/hr-requisitions/internal/dtos"
	"github.com/justsurfingit/hr-requisitions/internal/services"
)

type TemplateHandler struct {
	Templates *services.TemplateService
}

func NewTemplateHandler(templates *services.TemplateService) *TemplateHandler {
	return &TemplateHandler{Templates: templates}
}

// Active is GET /templates/:companyId/active. 204 when the company has no
// template.
func (h *TemplateHandler) Active(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	tpl, err := h.Templates.ActiveForPrincipal(c.Request.Context(), p, c.Param("companyId"))
	if err != nil {
		fail(c, err)
		return
	}
	if tpl == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, dtos.TemplateResponse{Template: tpl})
}

// Publish is POST /templates/:companyId
func (h *TemplateHandler) Publish(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req dtos.PublishTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body: "+err.Error(), err)
		return
	}
	tpl, err := h.Templates.PublishTemplate(c.Request.Context(), p, c.Param("companyId"), req.Sections)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dtos.TemplateResponse{Template: tpl})
}

func (h *TemplateHandler) History(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	items, err := h.Templates.History(c.Request.Context(), p, c.Param("companyId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos.TemplateHistoryResponse{Templates: items})
}
