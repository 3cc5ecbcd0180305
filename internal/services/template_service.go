package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/justsurfingit/hr-requisitions/internal/common"
	"github.com/justsurfingit/hr-requisitions/internal/forms"
	"github.com/justsurfingit/hr-requisitions/internal/metrics"
	"github.com/justsurfingit/hr-requisitions/internal/models"
	"github.com/justsurfingit/hr-requisitions/internal/notify"
	"github.com/justsurfingit/hr-requisitions/internal/permissions"
	"github.com/justsurfingit/hr-requisitions/internal/repository"
)

type TemplateService struct {
	store    *repository.Store
	scope    *ScopeService
	notifier notify.Notifier
	logger   *zap.Logger
}

func NewTemplateService(store *repository.Store, scope *ScopeService, notifier notify.Notifier, logger *zap.Logger) *TemplateService {
	return &TemplateService{store: store, scope: scope, notifier: notifier, logger: logger}
}

// GetActiveTemplate returns the company's active template with sections and
// fields ordered by position, or nil when none is configured.
func (s *TemplateService) GetActiveTemplate(ctx context.Context, companyID string) (*models.FormTemplate, error) {
	tpl, err := s.store.Templates().Active(ctx, companyID)
	if err != nil {
		s.logInconsistency(err, companyID)
		return nil, err
	}
	return tpl, nil
}

// ActiveForPrincipal is GetActiveTemplate behind the scope check.
func (s *TemplateService) ActiveForPrincipal(ctx context.Context, p *permissions.Principal, companyID string) (*models.FormTemplate, error) {
	if err := s.canView(ctx, p, companyID); err != nil {
		return nil, err
	}
	return s.GetActiveTemplate(ctx, companyID)
}

func (s *TemplateService) History(ctx context.Context, p *permissions.Principal, companyID string) ([]models.FormTemplate, error) {
	if err := s.canView(ctx, p, companyID); err != nil {
		return nil, err
	}
	return s.store.Templates().History(ctx, companyID)
}

// ValidateResponses checks responses against the template. It is pure; a nil
// template has no custom fields and therefore never fails.
func (s *TemplateService) ValidateResponses(tpl *models.FormTemplate, responses forms.Responses) []common.Violation {
	if tpl == nil {
		return nil
	}
	return forms.ValidateResponses(tpl.Sections, responses)
}

// PublishTemplate creates the next template version for the company and makes
// it the only active one. Deactivating the previous version and inserting
// the new one happen in one transaction, serialized per company by a row
// lock, so readers never see zero or two active templates.
func (s *TemplateService) PublishTemplate(ctx context.Context, p *permissions.Principal, companyID string, sections []forms.Section) (*models.FormTemplate, error) {
	if !permissions.IsAdminClass(p) {
		return nil, common.NewError(common.CodeForbidden, "only administrators can publish templates", nil)
	}
	prepared, violations := forms.PrepareSections(sections)
	if len(violations) > 0 {
		return nil, common.NewValidationError("invalid template definition", violations)
	}

	var published *models.FormTemplate
	var previous int64
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := s.scope.within(tx).EnsureInScope(ctx, p, companyID); err != nil {
			return err
		}
		if _, err := tx.Companies().LockByID(ctx, companyID); err != nil {
			return err
		}
		deactivated, err := tx.Templates().DeactivateActive(ctx, companyID)
		if err != nil {
			return err
		}
		if deactivated > 1 {
			return common.NewError(common.CodeTemplateInconsistency, "company had more than one active template", nil)
		}
		previous = deactivated
		version, err := tx.Templates().NextVersion(ctx, companyID)
		if err != nil {
			return err
		}
		tpl := &models.FormTemplate{
			CompanyID: companyID,
			Version:   version,
			IsActive:  true,
			Sections:  prepared,
			CreatedBy: p.ID,
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.Templates().Create(ctx, tpl); err != nil {
			return err
		}
		published = tpl
		return nil
	})
	if err != nil {
		if common.Is(err, common.CodeConcurrentModification) {
			metrics.ObserveConflict("publish_template")
		}
		s.logInconsistency(err, companyID)
		return nil, err
	}

	metrics.ObserveTemplatePublish()
	s.logger.Info("template published",
		zap.String("company_id", companyID),
		zap.String("template_id", published.ID),
		zap.Int("version", published.Version),
		zap.Bool("replaced_previous", previous > 0),
		zap.String("actor_id", p.ID))
	s.notifier.Notify(ctx, notify.Event{
		Type:       notify.EventTemplatePublished,
		TemplateID: published.ID,
		CompanyID:  companyID,
		ActorID:    p.ID,
	})
	return published, nil
}

func (s *TemplateService) canView(ctx context.Context, p *permissions.Principal, companyID string) error {
	if !permissions.IsAdminClass(p) && !permissions.CanPerform(p, permissions.CapViewTemplates) {
		return common.NewError(common.CodeForbidden, "not allowed to view templates", nil)
	}
	return s.scope.EnsureInScope(ctx, p, companyID)
}

func (s *TemplateService) logInconsistency(err error, companyID string) {
	if common.Is(err, common.CodeTemplateInconsistency) {
		s.logger.Error("template invariant violated", zap.String("company_id", companyID), zap.Error(err))
	}
}
