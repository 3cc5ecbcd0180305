package services

import (
	"context"

	"github.com/justsurfingit/hr-requisitions/internal/common"
	"github.com/justsurfingit/hr-requisitions/internal/models"
	"github.com/justsurfingit/hr-requisitions/internal/permissions"
	"github.com/justsurfingit/hr-requisitions/internal/repository"
)

// ScopeService resolves which companies a principal may act on. The same
// computation feeds the company picker and every write-time check.
type ScopeService struct {
	store *repository.Store
}

func NewScopeService(store *repository.Store) *ScopeService {
	return &ScopeService{store: store}
}

func (s *ScopeService) within(tx *repository.Store) *ScopeService {
	return &ScopeService{store: tx}
}

// ListScopedCompanies returns every active company for admin-class
// principals, and otherwise only the active companies the principal has an
// active association with. Inactive principals get nothing.
func (s *ScopeService) ListScopedCompanies(ctx context.Context, p *permissions.Principal) ([]models.Company, error) {
	if p == nil || !p.IsActive {
		return []models.Company{}, nil
	}
	if permissions.IsAdminClass(p) {
		return s.store.Companies().ListActive(ctx)
	}
	ids := make([]string, 0, len(p.Companies))
	for _, assoc := range p.Companies {
		if assoc.IsActive {
			ids = append(ids, assoc.CompanyID)
		}
	}
	return s.store.Companies().ListActiveByIDs(ctx, ids)
}

func (s *ScopeService) ScopedCompanyIDs(ctx context.Context, p *permissions.Principal) (map[string]struct{}, error) {
	companies, err := s.ListScopedCompanies(ctx, p)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(companies))
	for _, c := range companies {
		ids[c.ID] = struct{}{}
	}
	return ids, nil
}

// EnsureInScope fails with OutOfScope unless companyID is in the resolved
// scope.
func (s *ScopeService) EnsureInScope(ctx context.Context, p *permissions.Principal, companyID string) error {
	ids, err := s.ScopedCompanyIDs(ctx, p)
	if err != nil {
		return err
	}
	if _, ok := ids[companyID]; !ok {
		return common.NewError(common.CodeOutOfScope, "company is outside your scope", nil)
	}
	return nil
}
