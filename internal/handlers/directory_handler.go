package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/hr-requisitions/internal/dtos"
	"github.com/justsurfingit/hr-requisitions/internal/permissions"
	"github.com/justsurfingit/hr-requisitions/internal/services"
)

type DirectoryHandler struct {
	Scope *services.ScopeService
}

func NewDirectoryHandler(scope *services.ScopeService) *DirectoryHandler {
	return &DirectoryHandler{Scope: scope}
}

// Companies is GET /companies: the company picker, already scoped.
func (h *DirectoryHandler) Companies(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	companies, err := h.Scope.ListScopedCompanies(c.Request.Context(), p)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos.CompaniesResponse{Companies: companies})
}

// Me returns the principal together with the evaluated module and
// capability visibility the UI uses to hide what the API would reject.
func (h *DirectoryHandler) Me(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dtos.MeResponse{
		Principal:  p,
		Visibility: permissions.Evaluate(p, permissions.AllModules, permissions.AllCapabilities),
	})
}

// HealthCheck reports liveness and, when ping is set, database reachability.
func HealthCheck(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			if err := ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
