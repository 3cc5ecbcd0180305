package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func principalWith(role RoleName, canDo ...string) *Principal {
	return &Principal{
		ID:       "p-1",
		IsActive: true,
		Role: &Role{
			Name:        role,
			Permissions: Set{Modules: map[string]bool{ModuleRequisitions: true}, CanDo: canDo},
		},
	}
}

func TestCanPerformSuperadminBypassesCapabilityList(t *testing.T) {
	p := principalWith(RoleSuperadmin)
	for _, capability := range []string{CapCreateRequisition, "templates.delete", "anything.at.all", ""} {
		assert.True(t, CanPerform(p, capability), capability)
	}
}

func TestCanPerformRequiresMembershipForOtherRoles(t *testing.T) {
	for _, role := range []RoleName{RoleAdmin, RolePartner, RoleCandidate} {
		p := principalWith(role, CapViewRequisition)
		assert.True(t, CanPerform(p, CapViewRequisition), role)
		assert.False(t, CanPerform(p, CapCreateRequisition), role)
	}
}

func TestUnknownOrMissingRoleFailsClosed(t *testing.T) {
	unknown := principalWith("auditor", CapViewRequisition)
	assert.False(t, CanPerform(unknown, CapViewRequisition))
	assert.False(t, HasRole(unknown, "auditor"))
	assert.False(t, CanSeeModule(unknown, ModuleRequisitions))

	assert.False(t, CanPerform(&Principal{ID: "x"}, CapViewRequisition))
	assert.False(t, HasRole(nil, RoleAdmin))
}

func TestHasRole(t *testing.T) {
	assert.True(t, HasRole(principalWith(RoleAdmin), AdminClass...))
	assert.True(t, IsAdminClass(principalWith(RoleSuperadmin)))
	assert.False(t, IsAdminClass(principalWith(RolePartner)))
	assert.False(t, HasRole(principalWith(RolePartner)))
}

func TestEvaluateMatchesDirectChecks(t *testing.T) {
	p := principalWith(RolePartner, CapCreateRequisition)
	v := Evaluate(p, AllModules, AllCapabilities)

	assert.False(t, v.AdminClass)
	assert.True(t, v.Modules[ModuleRequisitions])
	assert.False(t, v.Modules[ModuleTemplates])
	for _, c := range AllCapabilities {
		assert.Equal(t, CanPerform(p, c), v.Capabilities[c], c)
	}
}
