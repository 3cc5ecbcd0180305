package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/justsurfingit/hr-requisitions/internal/common"
	"github.com/justsurfingit/hr-requisitions/internal/models"
	"github.com/justsurfingit/hr-requisitions/internal/permissions"
)

const secret = "test-secret-0123456789"

type stubProfiles map[string]*models.Profile

func (s stubProfiles) FindByID(_ context.Context, id string) (*models.Profile, error) {
	if p, ok := s[id]; ok {
		return p, nil
	}
	return nil, common.NewError(common.CodeNotFound, "profile not found", nil)
}

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens(secret)
	token, err := tokens.Issue("p-1", time.Hour)
	require.NoError(t, err)

	id, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "p-1", id)

	_, err = NewTokens("another-secret-987654").Verify(token)
	assert.Error(t, err)

	expired, err := tokens.Issue("p-1", -time.Minute)
	require.NoError(t, err)
	_, err = tokens.Verify(expired)
	assert.Error(t, err)
}

func TestPrincipalFromProfile(t *testing.T) {
	p := PrincipalFromProfile(&models.Profile{
		ID:       "p-1",
		IsActive: true,
		Role: &models.Role{Name: permissions.RolePartner, Permissions: permissions.Set{
			CanDo: []string{permissions.CapCreateRequisition},
		}},
		Companies: []models.CompanyAssociation{{CompanyID: "c-1", RoleInCompany: "hr", IsActive: true}},
	})
	assert.Equal(t, "p-1", p.ID)
	assert.True(t, permissions.CanPerform(p, permissions.CapCreateRequisition))
	assert.Equal(t, []permissions.CompanyAssociation{{CompanyID: "c-1", RoleInCompany: "hr", IsActive: true}}, p.Companies)

	noRole := PrincipalFromProfile(&models.Profile{ID: "p-2", IsActive: true})
	assert.Nil(t, noRole.Role)
	assert.False(t, permissions.CanPerform(noRole, permissions.CapCreateRequisition))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := NewTokens(secret)
	profiles := stubProfiles{
		"active":   {ID: "active", IsActive: true, Role: &models.Role{Name: permissions.RoleAdmin}},
		"inactive": {ID: "inactive", IsActive: false, Role: &models.Role{Name: permissions.RoleAdmin}},
	}

	var lastErr error
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Next()
		lastErr = nil
		if len(c.Errors) > 0 {
			lastErr = c.Errors.Last().Err
			c.Status(http.StatusTeapot)
		}
	})
	r.Use(Middleware(tokens, profiles, zap.NewNop()))
	r.GET("/me", func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		require.True(t, ok)
		c.String(http.StatusOK, p.ID)
	})

	bearer := func(id string) string {
		token, err := tokens.Issue(id, time.Hour)
		require.NoError(t, err)
		return "Bearer " + token
	}
	tests := []struct {
		name   string
		header string
		code   common.Code
	}{
		{"missing header", "", common.CodeUnauthorized},
		{"wrong scheme", "Basic abc", common.CodeUnauthorized},
		{"garbage token", "Bearer nope", common.CodeUnauthorized},
		{"unknown profile", bearer("ghost"), common.CodeUnauthorized},
		{"inactive profile", bearer("inactive"), common.CodeForbidden},
		{"active profile", bearer("active"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if tt.code == "" {
				assert.Equal(t, http.StatusOK, w.Code)
				assert.Equal(t, "active", w.Body.String())
				return
			}
			var appErr *common.Error
			require.True(t, errors.As(lastErr, &appErr))
			assert.Equal(t, tt.code, appErr.Code)
		})
	}
}
