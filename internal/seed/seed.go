// Package seed loads reference data (roles, companies and optional bootstrap
// profiles) from YAML. Applying the same file twice is a no-op apart from
// role permissions, which are overwritten.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/justsurfingit/hr-requisitions/internal/common"
	"github.com/justsurfingit/hr-requisitions/internal/models"
	"github.com/justsurfingit/hr-requisitions/internal/permissions"
	"github.com/justsurfingit/hr-requisitions/internal/repository"
)

//go:embed default.yaml
var defaultData []byte

type Data struct {
	Roles     []RoleSpec    `yaml:"roles"`
	Companies []CompanySpec `yaml:"companies"`
	Profiles  []ProfileSpec `yaml:"profiles"`
}

type RoleSpec struct {
	Name        permissions.RoleName `yaml:"name"`
	Permissions permissions.Set      `yaml:"permissions"`
}

type CompanySpec struct {
	Name   string `yaml:"name"`
	Active *bool  `yaml:"active"`
}

type ProfileSpec struct {
	Email     string               `yaml:"email"`
	Role      permissions.RoleName `yaml:"role"`
	Active    *bool                `yaml:"active"`
	Companies []MembershipSpec     `yaml:"companies"`
}

type MembershipSpec struct {
	Name          string `yaml:"name"`
	RoleInCompany string `yaml:"role_in_company"`
}

type Result struct {
	Roles     int
	Companies int
	Profiles  []models.Profile
}

// Default returns the embedded role set.
func Default() (*Data, error) {
	return Parse(defaultData)
}

func LoadFile(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes seed YAML, rejecting unknown keys and unknown role names.
func Parse(raw []byte) (*Data, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	var data Data
	if err := dec.Decode(&data); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("seed: decode: %w", err)
	}
	for _, r := range data.Roles {
		if !permissions.IsKnownRole(r.Name) {
			return nil, fmt.Errorf("seed: unknown role %q", r.Name)
		}
	}
	for _, p := range data.Profiles {
		if p.Email == "" {
			return nil, errors.New("seed: profile without email")
		}
		if !permissions.IsKnownRole(p.Role) {
			return nil, fmt.Errorf("seed: profile %s has unknown role %q", p.Email, p.Role)
		}
	}
	return &data, nil
}

// Apply writes data in one transaction.
func Apply(ctx context.Context, store *repository.Store, data *Data, logger *zap.Logger) (*Result, error) {
	result := &Result{}
	err := store.Transaction(ctx, func(tx *repository.Store) error {
		roles := make(map[permissions.RoleName]*models.Role, len(data.Roles))
		for _, spec := range data.Roles {
			role := &models.Role{Name: spec.Name, Permissions: spec.Permissions}
			if err := tx.Roles().Upsert(ctx, role); err != nil {
				return err
			}
			roles[role.Name] = role
			result.Roles++
		}

		companies := make(map[string]*models.Company, len(data.Companies))
		for _, spec := range data.Companies {
			company, err := tx.Companies().FirstOrCreateByName(ctx, spec.Name, enabled(spec.Active))
			if err != nil {
				return err
			}
			companies[company.Name] = company
			result.Companies++
		}

		for _, spec := range data.Profiles {
			profile, err := applyProfile(ctx, tx, spec, roles, companies)
			if err != nil {
				return err
			}
			result.Profiles = append(result.Profiles, *profile)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("seed applied",
		zap.Int("roles", result.Roles),
		zap.Int("companies", result.Companies),
		zap.Int("profiles", len(result.Profiles)))
	return result, nil
}

func applyProfile(ctx context.Context, tx *repository.Store, spec ProfileSpec, roles map[permissions.RoleName]*models.Role, companies map[string]*models.Company) (*models.Profile, error) {
	existing, err := tx.Profiles().FindByEmail(ctx, spec.Email)
	if err == nil {
		return existing, nil
	}
	if !common.Is(err, common.CodeNotFound) {
		return nil, err
	}

	role, ok := roles[spec.Role]
	if !ok {
		if role, err = tx.Roles().FindByName(ctx, spec.Role); err != nil {
			return nil, err
		}
	}
	profile := &models.Profile{Email: spec.Email, RoleID: role.ID, IsActive: enabled(spec.Active)}
	for _, m := range spec.Companies {
		company, ok := companies[m.Name]
		if !ok {
			return nil, fmt.Errorf("seed: profile %s references unknown company %q", spec.Email, m.Name)
		}
		profile.Companies = append(profile.Companies, models.CompanyAssociation{
			CompanyID:     company.ID,
			RoleInCompany: m.RoleInCompany,
			IsActive:      true,
		})
	}
	if err := tx.Profiles().Create(ctx, profile); err != nil {
		return nil, err
	}
	profile.Role = role
	return profile, nil
}

func enabled(b *bool) bool {
	return b == nil || *b
}
