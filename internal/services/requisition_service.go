package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/justsurfingit/hr-requisitions/internal/common"
	"github.com/justsurfingit/hr-requisitions/internal/forms"
	"github.com/justsurfingit/hr-requisitions/internal/metrics"
	"github.com/justsurfingit/hr-requisitions/internal/models"
	"github.com/justsurfingit/hr-requisitions/internal/notify"
	"github.com/justsurfingit/hr-requisitions/internal/permissions"
	"github.com/justsurfingit/hr-requisitions/internal/repository"
)

// RequisitionService owns the requisition lifecycle. Every write re-checks
// company scope and role inside the same transaction that performs it.
type RequisitionService struct {
	store     *repository.Store
	scope     *ScopeService
	templates *TemplateService
	notifier  notify.Notifier
	logger    *zap.Logger
	validate  *validator.Validate
}

func NewRequisitionService(store *repository.Store, scope *ScopeService, templates *TemplateService, notifier notify.Notifier, logger *zap.Logger) *RequisitionService {
	return &RequisitionService{
		store:     store,
		scope:     scope,
		templates: templates,
		notifier:  notifier,
		logger:    logger,
		validate:  newFixedFieldValidator(),
	}
}

type DraftInput struct {
	CompanyID       string
	FixedFields     models.FixedFields
	CustomResponses forms.Responses
}

// DraftPatch carries the version the caller last read. Nil members are left
// unchanged.
type DraftPatch struct {
	Version         int
	CompanyID       *string
	FixedFields     *models.FixedFields
	CustomResponses forms.Responses
}

type TransitionOptions struct {
	// Version, when set, must match the stored version.
	Version *int
	Note    string
}

func (s *RequisitionService) CreateDraft(ctx context.Context, p *permissions.Principal, in DraftInput) (*models.Requisition, error) {
	if err := requireActive(p); err != nil {
		return nil, err
	}
	if !permissions.CanPerform(p, permissions.CapCreateRequisition) {
		return nil, common.NewError(common.CodeForbidden, "not allowed to create requisitions", nil)
	}

	var created *models.Requisition
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := s.scope.within(tx).EnsureInScope(ctx, p, in.CompanyID); err != nil {
			return err
		}
		tpl, err := tx.Templates().Active(ctx, in.CompanyID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		req := &models.Requisition{
			CompanyID:        in.CompanyID,
			Status:           models.StatusDraft,
			FixedFields:      in.FixedFields,
			TemplateSnapshot: tpl.Snapshot(now),
			CreatedBy:        p.ID,
			StatusChangedAt:  now,
		}
		req.CustomResponses = responsesFor(req.TemplateSnapshot, in.CustomResponses)
		if err := shapeCheck(req); err != nil {
			return err
		}
		if err := tx.Requisitions().Create(ctx, req); err != nil {
			return err
		}
		if err := tx.Requisitions().AppendEvent(ctx, &models.RequisitionEvent{
			RequisitionID: req.ID,
			ToStatus:      models.StatusDraft,
			ActorID:       p.ID,
		}); err != nil {
			return err
		}
		created = req
		return nil
	})
	if err != nil {
		return nil, s.fail(err, "create_draft")
	}

	s.logger.Info("requisition draft created",
		zap.String("requisition_id", created.ID),
		zap.String("company_id", created.CompanyID),
		zap.String("actor_id", p.ID))
	s.emit(ctx, notify.EventRequisitionCreated, created, p)
	return created, nil
}

// UpdateDraft applies patch to a draft. If the company's active template has
// changed since the draft was last saved, the snapshot is refreshed so a
// long-lived draft always answers the current template.
func (s *RequisitionService) UpdateDraft(ctx context.Context, id string, p *permissions.Principal, patch DraftPatch) (*models.Requisition, error) {
	if err := requireActive(p); err != nil {
		return nil, err
	}

	var updated *models.Requisition
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		scope := s.scope.within(tx)
		req, err := s.loadEditable(ctx, tx, scope, id, p)
		if err != nil {
			return err
		}
		if req.Status != models.StatusDraft {
			return common.NewRequisitionClosed(string(req.Status))
		}
		if patch.Version != req.Version {
			return common.NewConcurrentModification("requisition was modified by someone else; reload and retry")
		}

		responses := req.Responses()
		if patch.CustomResponses != nil {
			responses = patch.CustomResponses
		}
		if patch.CompanyID != nil && *patch.CompanyID != req.CompanyID {
			if err := scope.EnsureInScope(ctx, p, *patch.CompanyID); err != nil {
				return err
			}
			req.CompanyID = *patch.CompanyID
		}
		if patch.FixedFields != nil {
			req.FixedFields = *patch.FixedFields
		}

		tpl, err := tx.Templates().Active(ctx, req.CompanyID)
		if err != nil {
			return err
		}
		if !req.TemplateSnapshot.SameTemplate(tpl) {
			req.TemplateSnapshot = tpl.Snapshot(time.Now().UTC())
		}
		req.CustomResponses = responsesFor(req.TemplateSnapshot, responses)
		if err := shapeCheck(req); err != nil {
			return err
		}
		if err := tx.Requisitions().SaveDraft(ctx, req, patch.Version); err != nil {
			return err
		}
		updated = req
		return nil
	})
	if err != nil {
		return nil, s.fail(err, "update_draft")
	}
	return updated, nil
}

// Submit validates the draft against the template active right now and, on
// success, freezes that snapshot and moves the requisition to submitted. On
// failure nothing is written and the complete violation list is returned.
func (s *RequisitionService) Submit(ctx context.Context, id string, p *permissions.Principal, version *int) (*models.Requisition, error) {
	if err := requireActive(p); err != nil {
		return nil, err
	}

	var submitted *models.Requisition
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		req, err := s.loadEditable(ctx, tx, s.scope.within(tx), id, p)
		if err != nil {
			return err
		}
		if err := checkTransition(req.Status, models.StatusSubmitted); err != nil {
			return err
		}
		if version != nil && *version != req.Version {
			return common.NewConcurrentModification("requisition was modified by someone else; reload and retry")
		}

		tpl, err := tx.Templates().Active(ctx, req.CompanyID)
		if err != nil {
			return err
		}
		if !req.TemplateSnapshot.SameTemplate(tpl) {
			req.TemplateSnapshot = tpl.Snapshot(time.Now().UTC())
			req.CustomResponses = responsesFor(req.TemplateSnapshot, req.Responses())
			if err := tx.Requisitions().SaveDraft(ctx, req, req.Version); err != nil {
				return err
			}
		}

		violations := fixedFieldViolations(s.validate, req.FixedFields)
		if req.TemplateSnapshot != nil {
			violations = append(violations, forms.ValidateResponses(req.TemplateSnapshot.Sections, req.Responses())...)
		}
		if len(violations) > 0 {
			metrics.ObserveValidationFailure()
			return common.NewValidationError("requisition is incomplete", violations)
		}

		now := time.Now().UTC()
		req.Status = models.StatusSubmitted
		req.SubmittedAt = &now
		if err := s.applyTransition(ctx, tx, req, models.StatusDraft, p, ""); err != nil {
			return err
		}
		submitted = req
		return nil
	})
	if err != nil {
		return nil, s.fail(err, "submit")
	}

	s.afterTransition(ctx, submitted, models.StatusDraft, p)
	return submitted, nil
}

// Transition moves a requisition along the lifecycle table. Moves past
// draft are reserved for admin-class principals; draft -> submitted goes
// through Submit.
func (s *RequisitionService) Transition(ctx context.Context, id string, p *permissions.Principal, target models.Status, opts TransitionOptions) (*models.Requisition, error) {
	if err := requireActive(p); err != nil {
		return nil, err
	}
	if target == models.StatusSubmitted {
		return s.Submit(ctx, id, p, opts.Version)
	}

	var moved *models.Requisition
	var from models.Status
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		req, err := tx.Requisitions().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.scope.within(tx).EnsureInScope(ctx, p, req.CompanyID); err != nil {
			return err
		}
		if !permissions.IsAdminClass(p) {
			return common.NewError(common.CodeForbidden, "only administrators can change requisition status", nil)
		}
		if err := checkTransition(req.Status, target); err != nil {
			return err
		}
		if opts.Version != nil && *opts.Version != req.Version {
			return common.NewConcurrentModification("requisition was modified by someone else; reload and retry")
		}
		from = req.Status
		req.Status = target
		if err := s.applyTransition(ctx, tx, req, from, p, opts.Note); err != nil {
			return err
		}
		moved = req
		return nil
	})
	if err != nil {
		return nil, s.fail(err, "transition")
	}

	s.afterTransition(ctx, moved, from, p)
	return moved, nil
}

// Reopen starts a brand-new draft from a rejected or cancelled requisition.
// The original row is left untouched.
func (s *RequisitionService) Reopen(ctx context.Context, id string, p *permissions.Principal) (*models.Requisition, error) {
	if err := requireActive(p); err != nil {
		return nil, err
	}
	if !permissions.CanPerform(p, permissions.CapCreateRequisition) {
		return nil, common.NewError(common.CodeForbidden, "not allowed to create requisitions", nil)
	}

	var reopened *models.Requisition
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		original, err := s.loadEditable(ctx, tx, s.scope.within(tx), id, p)
		if err != nil {
			return err
		}
		if original.Status != models.StatusRejected && original.Status != models.StatusCancelled {
			return common.NewInvalidTransition(string(original.Status), string(models.StatusDraft))
		}
		tpl, err := tx.Templates().Active(ctx, original.CompanyID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		sourceID := original.ID
		req := &models.Requisition{
			CompanyID:        original.CompanyID,
			Status:           models.StatusDraft,
			FixedFields:      original.FixedFields,
			TemplateSnapshot: tpl.Snapshot(now),
			CreatedBy:        p.ID,
			StatusChangedAt:  now,
			ReopenedFrom:     &sourceID,
		}
		req.CustomResponses = responsesFor(req.TemplateSnapshot, original.Responses())
		if err := tx.Requisitions().Create(ctx, req); err != nil {
			return err
		}
		if err := tx.Requisitions().AppendEvent(ctx, &models.RequisitionEvent{
			RequisitionID: req.ID,
			ToStatus:      models.StatusDraft,
			ActorID:       p.ID,
			Note:          "reopened from " + sourceID,
		}); err != nil {
			return err
		}
		reopened = req
		return nil
	})
	if err != nil {
		return nil, s.fail(err, "reopen")
	}

	s.emit(ctx, notify.EventRequisitionReopened, reopened, p)
	return reopened, nil
}

func (s *RequisitionService) Get(ctx context.Context, id string, p *permissions.Principal) (*models.Requisition, error) {
	if err := requireActive(p); err != nil {
		return nil, err
	}
	req, err := s.store.Requisitions().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.canView(ctx, p, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *RequisitionService) Events(ctx context.Context, id string, p *permissions.Principal) ([]models.RequisitionEvent, error) {
	if _, err := s.Get(ctx, id, p); err != nil {
		return nil, err
	}
	return s.store.Requisitions().Events(ctx, id)
}

// List returns requisitions in the principal's scope, optionally narrowed to
// one company and a set of statuses.
func (s *RequisitionService) List(ctx context.Context, p *permissions.Principal, companyID string, statuses []models.Status) ([]models.Requisition, error) {
	if err := requireActive(p); err != nil {
		return nil, err
	}
	for _, st := range statuses {
		if !st.Valid() {
			return nil, common.NewError(common.CodeBadRequest, "unknown status "+string(st), nil)
		}
	}
	scoped, err := s.scope.ScopedCompanyIDs(ctx, p)
	if err != nil {
		return nil, err
	}
	var ids []string
	if companyID != "" {
		if _, ok := scoped[companyID]; !ok {
			return nil, common.NewError(common.CodeOutOfScope, "company is outside your scope", nil)
		}
		ids = []string{companyID}
	} else {
		for id := range scoped {
			ids = append(ids, id)
		}
	}

	items, err := s.store.Requisitions().List(ctx, repository.RequisitionFilter{CompanyIDs: ids, Statuses: statuses})
	if err != nil {
		return nil, err
	}
	if permissions.IsAdminClass(p) || permissions.CanPerform(p, permissions.CapViewRequisition) {
		return items, nil
	}
	own := items[:0]
	for _, item := range items {
		if item.CreatedBy == p.ID {
			own = append(own, item)
		}
	}
	return own, nil
}

// loadEditable loads the requisition and checks scope and edit rights: the
// owner holding requisitions.edit, or any admin-class principal.
func (s *RequisitionService) loadEditable(ctx context.Context, tx *repository.Store, scope *ScopeService, id string, p *permissions.Principal) (*models.Requisition, error) {
	req, err := tx.Requisitions().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := scope.EnsureInScope(ctx, p, req.CompanyID); err != nil {
		return nil, err
	}
	if permissions.IsAdminClass(p) {
		return req, nil
	}
	if req.CreatedBy != p.ID || !permissions.CanPerform(p, permissions.CapEditRequisition) {
		return nil, common.NewError(common.CodeForbidden, "not allowed to edit this requisition", nil)
	}
	return req, nil
}

func (s *RequisitionService) canView(ctx context.Context, p *permissions.Principal, req *models.Requisition) error {
	if err := s.scope.EnsureInScope(ctx, p, req.CompanyID); err != nil {
		return err
	}
	if permissions.IsAdminClass(p) || req.CreatedBy == p.ID || permissions.CanPerform(p, permissions.CapViewRequisition) {
		return nil
	}
	return common.NewError(common.CodeForbidden, "not allowed to view this requisition", nil)
}

func (s *RequisitionService) applyTransition(ctx context.Context, tx *repository.Store, req *models.Requisition, from models.Status, p *permissions.Principal, note string) error {
	if err := tx.Requisitions().ApplyTransition(ctx, req, from, req.Version); err != nil {
		return err
	}
	return tx.Requisitions().AppendEvent(ctx, &models.RequisitionEvent{
		RequisitionID: req.ID,
		FromStatus:    from,
		ToStatus:      req.Status,
		ActorID:       p.ID,
		Note:          note,
	})
}

func (s *RequisitionService) afterTransition(ctx context.Context, req *models.Requisition, from models.Status, p *permissions.Principal) {
	metrics.ObserveTransition(string(from), string(req.Status))
	s.logger.Info("requisition transitioned",
		zap.String("requisition_id", req.ID),
		zap.String("from", string(from)),
		zap.String("to", string(req.Status)),
		zap.Int("version", req.Version),
		zap.String("actor_id", p.ID))
	s.emit(ctx, notify.EventForStatus(string(req.Status)), req, p)
}

func (s *RequisitionService) emit(ctx context.Context, eventType string, req *models.Requisition, p *permissions.Principal) {
	s.notifier.Notify(ctx, notify.Event{
		Type:          eventType,
		RequisitionID: req.ID,
		CompanyID:     req.CompanyID,
		ActorID:       p.ID,
	})
}

func (s *RequisitionService) fail(err error, operation string) error {
	switch {
	case common.Is(err, common.CodeConcurrentModification):
		metrics.ObserveConflict(operation)
	case common.Is(err, common.CodeTemplateInconsistency):
		s.logger.Error("template invariant violated", zap.String("operation", operation), zap.Error(err))
	}
	return err
}

func requireActive(p *permissions.Principal) error {
	if p == nil {
		return common.NewError(common.CodeUnauthorized, "authentication required", nil)
	}
	if !p.IsActive {
		return common.NewError(common.CodeForbidden, "account is inactive", nil)
	}
	return nil
}

// responsesFor builds one CustomResponse per snapshot section, carrying over
// answers by section id. Answers for sections the snapshot does not have are
// dropped.
func responsesFor(snapshot *models.TemplateSnapshot, responses forms.Responses) []models.CustomResponse {
	if snapshot == nil {
		return nil
	}
	responses = responses.Clone()
	out := make([]models.CustomResponse, 0, len(snapshot.Sections))
	for _, section := range snapshot.Sections {
		answers := responses[section.ID]
		if answers == nil {
			answers = map[string]json.RawMessage{}
		}
		out = append(out, models.CustomResponse{SectionID: section.ID, Responses: answers})
	}
	return out
}

// shapeCheck rejects answers whose type does not fit the field while the
// requisition is still a draft. Missing required answers are only enforced
// on submit.
func shapeCheck(req *models.Requisition) error {
	if req.TemplateSnapshot == nil {
		return nil
	}
	var bad []common.Violation
	for _, v := range forms.ValidateResponses(req.TemplateSnapshot.Sections, req.Responses()) {
		if v.Reason != common.ReasonMissingRequired {
			bad = append(bad, v)
		}
	}
	if len(bad) > 0 {
		return common.NewValidationError("invalid responses", bad)
	}
	return nil
}
