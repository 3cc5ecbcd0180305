package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/hr-requisitions/internal/auth"
	"github.com/justsurfingit/hr-requisitions/internal/common"
	"github.com/justsurfingit/hr-requisitions/internal/dtos"
	"github.com/justsurfingit/hr-requisitions/internal/models"
	"github.com/justsurfingit/hr-requisitions/internal/permissions"
	"github.com/justsurfingit/hr-requisitions/internal/services"
)

type RequisitionHandler struct {
	Requisitions *services.RequisitionService
}

func NewRequisitionHandler(requisitions *services.RequisitionService) *RequisitionHandler {
	return &RequisitionHandler{Requisitions: requisitions}
}

// Create is POST /requisitions
func (h *RequisitionHandler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req dtos.CreateRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body: "+err.Error(), err)
		return
	}
	created, err := h.Requisitions.CreateDraft(c.Request.Context(), p, services.DraftInput{
		CompanyID:       req.CompanyID,
		FixedFields:     req.FixedFields,
		CustomResponses: req.CustomResponses,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dtos.RequisitionResponse{Requisition: created})
}

// Update is PATCH /requisitions/:id
func (h *RequisitionHandler) Update(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req dtos.UpdateRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body: "+err.Error(), err)
		return
	}
	updated, err := h.Requisitions.UpdateDraft(c.Request.Context(), c.Param("id"), p, services.DraftPatch{
		Version:         req.Version,
		CompanyID:       req.CompanyID,
		FixedFields:     req.FixedFields,
		CustomResponses: req.CustomResponses,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos.RequisitionResponse{Requisition: updated})
}

// Submit is POST /requisitions/:id/submit. The body is optional.
func (h *RequisitionHandler) Submit(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req dtos.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid JSON body: "+err.Error(), err)
		return
	}
	submitted, err := h.Requisitions.Submit(c.Request.Context(), c.Param("id"), p, req.Version)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos.RequisitionResponse{Requisition: submitted})
}

// Transition is POST /requisitions/:id/transition
func (h *RequisitionHandler) Transition(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req dtos.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body: "+err.Error(), err)
		return
	}
	target := models.Status(req.Target)
	if !target.Valid() {
		badRequest(c, "unknown target status "+req.Target, nil)
		return
	}
	moved, err := h.Requisitions.Transition(c.Request.Context(), c.Param("id"), p, target, services.TransitionOptions{
		Version: req.Version,
		Note:    req.Note,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos.RequisitionResponse{Requisition: moved})
}

// Reopen is POST /requisitions/:id/reopen
func (h *RequisitionHandler) Reopen(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	reopened, err := h.Requisitions.Reopen(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dtos.RequisitionResponse{Requisition: reopened})
}

func (h *RequisitionHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	req, err := h.Requisitions.Get(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos.RequisitionResponse{Requisition: req})
}

func (h *RequisitionHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var q dtos.ListRequisitionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query: "+err.Error(), err)
		return
	}
	statuses := make([]models.Status, 0, len(q.Status))
	for _, s := range q.Status {
		statuses = append(statuses, models.Status(s))
	}
	items, err := h.Requisitions.List(c.Request.Context(), p, q.CompanyID, statuses)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos.RequisitionListResponse{Requisitions: items})
}

func (h *RequisitionHandler) Events(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	events, err := h.Requisitions.Events(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos.RequisitionEventsResponse{Events: events})
}

func principal(c *gin.Context) (*permissions.Principal, bool) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		fail(c, common.NewError(common.CodeUnauthorized, "authentication required", nil))
	}
	return p, ok
}
