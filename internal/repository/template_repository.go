package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/justsurfingit/hr-requisitions/internal/common"
	"github.com/justsurfingit/hr-requisitions/internal/forms"
	"github.com/justsurfingit/hr-requisitions/internal/models"
)

type TemplateRepository struct {
	db *gorm.DB
}

// Active returns the company's active template, or nil when none is
// configured. Finding more than one is a data-integrity failure.
func (r *TemplateRepository) Active(ctx context.Context, companyID string) (*models.FormTemplate, error) {
	var items []models.FormTemplate
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND is_active = ?", companyID, true).
		Limit(2).
		Find(&items).Error
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to load active template", err)
	}
	switch len(items) {
	case 0:
		return nil, nil
	case 1:
		tpl := items[0]
		forms.SortSections(tpl.Sections)
		return &tpl, nil
	default:
		return nil, common.NewError(common.CodeTemplateInconsistency,
			fmt.Sprintf("company %s has more than one active template", companyID), nil)
	}
}

func (r *TemplateRepository) FindByID(ctx context.Context, id string) (*models.FormTemplate, error) {
	var tpl models.FormTemplate
	if err := r.db.WithContext(ctx).First(&tpl, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "template")
	}
	forms.SortSections(tpl.Sections)
	return &tpl, nil
}

// History lists every version for a company, newest first.
func (r *TemplateRepository) History(ctx context.Context, companyID string) ([]models.FormTemplate, error) {
	items := []models.FormTemplate{}
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("version DESC").
		Find(&items).Error
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list templates", err)
	}
	for i := range items {
		forms.SortSections(items[i].Sections)
	}
	return items, nil
}

// DeactivateActive clears the active flag for the company. Only meaningful
// inside the publish transaction.
func (r *TemplateRepository) DeactivateActive(ctx context.Context, companyID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.FormTemplate{}).
		Where("company_id = ? AND is_active = ?", companyID, true).
		Update("is_active", false)
	if res.Error != nil {
		return 0, common.NewError(common.CodeInternal, "failed to deactivate template", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *TemplateRepository) NextVersion(ctx context.Context, companyID string) (int, error) {
	var current int
	err := r.db.WithContext(ctx).
		Model(&models.FormTemplate{}).
		Where("company_id = ?", companyID).
		Select("COALESCE(MAX(version), 0)").
		Row().
		Scan(&current)
	if err != nil {
		return 0, common.NewError(common.CodeInternal, "failed to read template version", err)
	}
	return current + 1, nil
}

func (r *TemplateRepository) Create(ctx context.Context, tpl *models.FormTemplate) error {
	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(tpl).Error; err != nil {
		if isUniqueViolation(err) {
			return common.NewConcurrentModification("another template was published for this company at the same time")
		}
		return common.NewError(common.CodeInternal, "failed to create template", err)
	}
	return nil
}
