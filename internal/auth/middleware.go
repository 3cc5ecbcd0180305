package auth

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/justsurfingit/hr-requisitions/internal/common"
	"github.com/justsurfingit/hr-requisitions/internal/models"
	"github.com/justsurfingit/hr-requisitions/internal/permissions"
)

const principalKey = "principal"

// ProfileLoader is satisfied by repository.ProfileRepository.
type ProfileLoader interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
}

// Middleware resolves the bearer token to a Principal once per request and
// stores it on the gin context. Failures are recorded with c.Error and the
// chain is aborted; the router's error renderer writes the response.
func Middleware(tokens *Tokens, profiles ProfileLoader, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if header == "" || len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abort(c, common.NewError(common.CodeUnauthorized, "missing or malformed authorization header", nil))
			return
		}
		profileID, err := tokens.Verify(strings.TrimSpace(parts[1]))
		if err != nil {
			abort(c, common.NewError(common.CodeUnauthorized, "invalid token", err))
			return
		}
		profile, err := profiles.FindByID(c.Request.Context(), profileID)
		if err != nil {
			if common.Is(err, common.CodeNotFound) {
				abort(c, common.NewError(common.CodeUnauthorized, "unknown principal", err))
				return
			}
			logger.Error("failed to load principal", zap.String("profile_id", profileID), zap.Error(err))
			abort(c, err)
			return
		}
		principal := PrincipalFromProfile(profile)
		if !principal.IsActive {
			abort(c, common.NewError(common.CodeForbidden, "account is inactive", nil))
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

// PrincipalFrom returns the principal stored by Middleware.
func PrincipalFrom(c *gin.Context) (*permissions.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*permissions.Principal)
	return p, ok && p != nil
}

// PrincipalFromProfile projects the stored profile onto the evaluator's view.
func PrincipalFromProfile(profile *models.Profile) *permissions.Principal {
	p := &permissions.Principal{
		ID:       profile.ID,
		IsActive: profile.IsActive,
	}
	if profile.Role != nil {
		p.Role = &permissions.Role{Name: profile.Role.Name, Permissions: profile.Role.Permissions}
	}
	for _, assoc := range profile.Companies {
		p.Companies = append(p.Companies, permissions.CompanyAssociation{
			CompanyID:     assoc.CompanyID,
			RoleInCompany: assoc.RoleInCompany,
			IsActive:      assoc.IsActive,
		})
	}
	return p
}

func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
