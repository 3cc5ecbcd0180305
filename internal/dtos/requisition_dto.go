package dtos

import (
	"github.com/justsurfingit/hr-requisitions/internal/common"
	"github.com/justsurfingit/hr-requisitions/internal/forms"
	"github.com/justsurfingit/hr-requisitions/internal/models"
	"github.com/justsurfingit/hr-requisitions/internal/permissions"
)

type CreateRequisitionRequest struct {
	CompanyID       string             `json:"company_id" binding:"required"`
	FixedFields     models.FixedFields `json:"fixed_fields"`
	CustomResponses forms.Responses    `json:"custom_responses"`
}

// UpdateRequisitionRequest must carry the version the client last read.
// Omitted members are left unchanged.
type UpdateRequisitionRequest struct {
	Version         int                 `json:"version" binding:"required,gte=1"`
	CompanyID       *string             `json:"company_id"`
	FixedFields     *models.FixedFields `json:"fixed_fields"`
	CustomResponses forms.Responses     `json:"custom_responses"`
}

type SubmitRequest struct {
	Version *int `json:"version" binding:"omitempty,gte=1"`
}

type TransitionRequest struct {
	Target  string `json:"target" binding:"required"`
	Version *int   `json:"version" binding:"omitempty,gte=1"`
	Note    string `json:"note" binding:"max=1000"`
}

type ListRequisitionsQuery struct {
	CompanyID string   `form:"company_id"`
	Status    []string `form:"status"`
}

type PublishTemplateRequest struct {
	Sections []forms.Section `json:"sections" binding:"required,min=1"`
}

type RequisitionResponse struct {
	Requisition *models.Requisition `json:"requisition"`
}

type RequisitionListResponse struct {
	Requisitions []models.Requisition `json:"requisitions"`
}

type RequisitionEventsResponse struct {
	Events []models.RequisitionEvent `json:"events"`
}

type TemplateResponse struct {
	Template *models.FormTemplate `json:"template"`
}

type TemplateHistoryResponse struct {
	Templates []models.FormTemplate `json:"templates"`
}

type CompaniesResponse struct {
	Companies []models.Company `json:"companies"`
}

type MeResponse struct {
	Principal  *permissions.Principal `json:"principal"`
	Visibility permissions.Visibility `json:"visibility"`
}

type ErrorBody struct {
	Code       common.Code        `json:"code"`
	Message    string             `json:"message"`
	Violations []common.Violation `json:"violations,omitempty"`
	Current    string             `json:"current,omitempty"`
	Target     string             `json:"target,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
