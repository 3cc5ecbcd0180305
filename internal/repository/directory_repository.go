package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/justsurfingit/hr-requisitions/internal/common"
	"github.com/justsurfingit/hr-requisitions/internal/models"
	"github.com/justsurfingit/hr-requisitions/internal/permissions"
)

type CompanyRepository struct {
	db *gorm.DB
}

func (r *CompanyRepository) Create(ctx context.Context, company *models.Company) error {
	if company.ID == "" {
		company.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(company).Error; err != nil {
		return common.NewError(common.CodeInternal, "failed to create company", err)
	}
	return nil
}

// FirstOrCreateByName is used by seeding.
func (r *CompanyRepository) FirstOrCreateByName(ctx context.Context, name string, active bool) (*models.Company, error) {
	var company models.Company
	err := r.db.WithContext(ctx).
		Where(models.Company{Name: name}).
		Attrs(models.Company{ID: uuid.NewString(), IsActive: active}).
		FirstOrCreate(&company).Error
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to upsert company", err)
	}
	return &company, nil
}

func (r *CompanyRepository) FindByID(ctx context.Context, id string) (*models.Company, error) {
	var company models.Company
	if err := r.db.WithContext(ctx).First(&company, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "company")
	}
	return &company, nil
}

// LockByID reads the company row with FOR UPDATE so that concurrent
// template publishes for the same company serialize. sqlite ignores the
// locking clause and serializes writers on its own.
func (r *CompanyRepository) LockByID(ctx context.Context, id string) (*models.Company, error) {
	var company models.Company
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&company, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "company")
	}
	return &company, nil
}

func (r *CompanyRepository) ListActive(ctx context.Context) ([]models.Company, error) {
	return r.listActive(ctx, nil)
}

// ListActiveByIDs returns the subset of ids whose company is active.
func (r *CompanyRepository) ListActiveByIDs(ctx context.Context, ids []string) ([]models.Company, error) {
	if len(ids) == 0 {
		return []models.Company{}, nil
	}
	return r.listActive(ctx, ids)
}

func (r *CompanyRepository) listActive(ctx context.Context, ids []string) ([]models.Company, error) {
	q := r.db.WithContext(ctx).Where("is_active = ?", true)
	if ids != nil {
		q = q.Where("id IN ?", ids)
	}
	items := []models.Company{}
	if err := q.Order("name ASC").Find(&items).Error; err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list companies", err)
	}
	return items, nil
}

type ProfileRepository struct {
	db *gorm.DB
}

func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	for i := range profile.Companies {
		if profile.Companies[i].ID == "" {
			profile.Companies[i].ID = uuid.NewString()
		}
	}
	if err := r.db.WithContext(ctx).Omit("Role").Create(profile).Error; err != nil {
		return common.NewError(common.CodeInternal, "failed to create profile", err)
	}
	return nil
}

// FindByID loads the profile together with its role and company associations.
func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).
		Preload("Role").
		Preload("Companies").
		First(&profile, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "profile")
	}
	return &profile, nil
}

func (r *ProfileRepository) FindByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).
		Preload("Role").
		Preload("Companies").
		First(&profile, "email = ?", email).Error
	if err != nil {
		return nil, notFoundOr(err, "profile")
	}
	return &profile, nil
}

type RoleRepository struct {
	db *gorm.DB
}

func (r *RoleRepository) FindByName(ctx context.Context, name permissions.RoleName) (*models.Role, error) {
	var role models.Role
	if err := r.db.WithContext(ctx).First(&role, "name = ?", name).Error; err != nil {
		return nil, notFoundOr(err, "role")
	}
	return &role, nil
}

// Upsert inserts the role or replaces the permissions of an existing one.
// Roles are reference data and are never deleted here.
func (r *RoleRepository) Upsert(ctx context.Context, role *models.Role) error {
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	role.UpdatedAt = time.Now().UTC()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"permissions", "updated_at"}),
	}).Create(role).Error
	if err != nil {
		return common.NewError(common.CodeInternal, "failed to upsert role", err)
	}
	stored, err := r.FindByName(ctx, role.Name)
	if err != nil {
		return err
	}
	*role = *stored
	return nil
}
