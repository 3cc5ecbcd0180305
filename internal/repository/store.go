package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/justsurfingit/hr-requisitions/internal/common"
)

// Store groups the repositories over one *gorm.DB. Inside Transaction every
// repository handed to fn shares the same transaction.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for health checks and maintenance.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) Requisitions() *RequisitionRepository {
	return &RequisitionRepository{db: s.db}
}

func (s *Store) Templates() *TemplateRepository {
	return &TemplateRepository{db: s.db}
}

func (s *Store) Companies() *CompanyRepository {
	return &CompanyRepository{db: s.db}
}

func (s *Store) Profiles() *ProfileRepository {
	return &ProfileRepository{db: s.db}
}

func (s *Store) Roles() *RoleRepository {
	return &RoleRepository{db: s.db}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return common.NewError(common.CodeNotFound, what+" not found", err)
	}
	return common.NewError(common.CodeInternal, "failed to load "+what, err)
}
