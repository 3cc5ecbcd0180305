package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/justsurfingit/hr-requisitions/internal/common"
	"github.com/justsurfingit/hr-requisitions/internal/models"
)

type RequisitionRepository struct {
	db *gorm.DB
}

type RequisitionFilter struct {
	CompanyIDs []string
	Statuses   []models.Status
}

func (r *RequisitionRepository) Create(ctx context.Context, req *models.Requisition) error {
	now := time.Now().UTC()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Version = 1
	req.CreatedAt = now
	req.UpdatedAt = now
	if req.StatusChangedAt.IsZero() {
		req.StatusChangedAt = now
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(req).Error; err != nil {
		return common.NewError(common.CodeInternal, "failed to create requisition", err)
	}
	return r.replaceResponses(ctx, req)
}

func (r *RequisitionRepository) FindByID(ctx context.Context, id string) (*models.Requisition, error) {
	var req models.Requisition
	err := r.db.WithContext(ctx).
		Preload("CustomResponses", func(db *gorm.DB) *gorm.DB { return db.Order("section_id") }).
		First(&req, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "requisition")
	}
	return &req, nil
}

func (r *RequisitionRepository) ListByCompany(ctx context.Context, companyID string, statuses ...models.Status) ([]models.Requisition, error) {
	return r.List(ctx, RequisitionFilter{CompanyIDs: []string{companyID}, Statuses: statuses})
}

func (r *RequisitionRepository) List(ctx context.Context, filter RequisitionFilter) ([]models.Requisition, error) {
	if len(filter.CompanyIDs) == 0 {
		return []models.Requisition{}, nil
	}
	q := r.db.WithContext(ctx).
		Preload("CustomResponses", func(db *gorm.DB) *gorm.DB { return db.Order("section_id") }).
		Where("company_id IN ?", filter.CompanyIDs)
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	items := []models.Requisition{}
	if err := q.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list requisitions", err)
	}
	return items, nil
}

// SaveDraft writes the editable columns and replaces the custom responses.
// The write only applies while the stored row is still a draft at
// expectedVersion; otherwise ConcurrentModification is returned and nothing
// changes. Call it inside a transaction.
func (r *RequisitionRepository) SaveDraft(ctx context.Context, req *models.Requisition, expectedVersion int) error {
	now := time.Now().UTC()
	row := models.Requisition{
		CompanyID:        req.CompanyID,
		FixedFields:      req.FixedFields,
		TemplateSnapshot: req.TemplateSnapshot,
		Version:          expectedVersion + 1,
		UpdatedAt:        now,
	}
	res := r.db.WithContext(ctx).
		Model(&models.Requisition{}).
		Where("id = ? AND version = ? AND status = ?", req.ID, expectedVersion, models.StatusDraft).
		Select("company_id", "fixed_fields", "template_snapshot", "version", "updated_at").
		Updates(&row)
	if res.Error != nil {
		return common.NewError(common.CodeInternal, "failed to save requisition", res.Error)
	}
	if res.RowsAffected == 0 {
		return common.NewConcurrentModification("requisition was modified by someone else; reload and retry")
	}
	req.Version = row.Version
	req.UpdatedAt = now
	return r.replaceResponses(ctx, req)
}

// ApplyTransition moves req from status `from` to req.Status, conditioned on
// the stored row still being at (from, expectedVersion). The template
// snapshot is written only when leaving draft; afterwards it is never
// touched again.
func (r *RequisitionRepository) ApplyTransition(ctx context.Context, req *models.Requisition, from models.Status, expectedVersion int) error {
	now := time.Now().UTC()
	row := models.Requisition{
		Status:           req.Status,
		Version:          expectedVersion + 1,
		StatusChangedAt:  now,
		SubmittedAt:      req.SubmittedAt,
		UpdatedAt:        now,
		TemplateSnapshot: req.TemplateSnapshot,
	}
	columns := []string{"status", "version", "status_changed_at", "submitted_at", "updated_at"}
	if from == models.StatusDraft {
		columns = append(columns, "template_snapshot")
	}
	res := r.db.WithContext(ctx).
		Model(&models.Requisition{}).
		Where("id = ? AND status = ? AND version = ?", req.ID, from, expectedVersion).
		Select(columns).
		Updates(&row)
	if res.Error != nil {
		return common.NewError(common.CodeInternal, "failed to update requisition status", res.Error)
	}
	if res.RowsAffected == 0 {
		return common.NewConcurrentModification("requisition status changed concurrently; reload and retry")
	}
	req.Version = row.Version
	req.StatusChangedAt = now
	req.UpdatedAt = now
	return nil
}

func (r *RequisitionRepository) AppendEvent(ctx context.Context, event *models.RequisitionEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return common.NewError(common.CodeInternal, "failed to record requisition event", err)
	}
	return nil
}

func (r *RequisitionRepository) Events(ctx context.Context, requisitionID string) ([]models.RequisitionEvent, error) {
	items := []models.RequisitionEvent{}
	err := r.db.WithContext(ctx).
		Where("requisition_id = ?", requisitionID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list requisition events", err)
	}
	return items, nil
}

func (r *RequisitionRepository) replaceResponses(ctx context.Context, req *models.Requisition) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("requisition_id = ?", req.ID).Delete(&models.CustomResponse{}).Error; err != nil {
		return common.NewError(common.CodeInternal, "failed to clear custom responses", err)
	}
	if len(req.CustomResponses) == 0 {
		return nil
	}
	for i := range req.CustomResponses {
		req.CustomResponses[i].ID = uuid.NewString()
		req.CustomResponses[i].RequisitionID = req.ID
	}
	if err := db.Create(&req.CustomResponses).Error; err != nil {
		return common.NewError(common.CodeInternal, "failed to save custom responses", err)
	}
	return nil
}
