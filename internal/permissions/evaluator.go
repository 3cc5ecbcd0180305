// Package permissions is the single place where role and capability checks
// are decided. HTTP middleware, the /me visibility payload and the services
// all call into it so what a screen hides and what the backend rejects never
// drift apart.
package permissions

type RoleName string

const (
	RoleSuperadmin RoleName = "superadmin"
	RoleAdmin      RoleName = "admin"
	RolePartner    RoleName = "partner"
	RoleCandidate  RoleName = "candidate"
)

// Capabilities checked by the requisition core.
const (
	CapCreateRequisition = "requisitions.create"
	CapEditRequisition   = "requisitions.edit"
	CapViewRequisition   = "requisitions.view"
	CapViewTemplates     = "templates.view"
)

// Module ids used for UI visibility.
const (
	ModuleRequisitions = "requisitions"
	ModuleTemplates    = "templates"
	ModuleCompanies    = "companies"
	ModuleUsers        = "users"
)

var knownRoles = map[RoleName]struct{}{
	RoleSuperadmin: {},
	RoleAdmin:      {},
	RolePartner:    {},
	RoleCandidate:  {},
}

// AdminClass lists the roles with cross-company scope.
var AdminClass = []RoleName{RoleAdmin, RoleSuperadmin}

type Set struct {
	Modules map[string]bool `json:"modules" yaml:"modules"`
	CanDo   []string        `json:"can_do" yaml:"can_do"`
}

type Role struct {
	Name        RoleName `json:"name"`
	Permissions Set      `json:"permissions"`
}

type CompanyAssociation struct {
	CompanyID     string `json:"company_id"`
	RoleInCompany string `json:"role_in_company"`
	IsActive      bool   `json:"is_active"`
}

// Principal is the identity projection of the authenticated actor.
type Principal struct {
	ID        string               `json:"id"`
	Role      *Role                `json:"role"`
	IsActive  bool                 `json:"is_active"`
	Companies []CompanyAssociation `json:"companies"`
}

func IsKnownRole(name RoleName) bool {
	_, ok := knownRoles[name]
	return ok
}

func roleName(p *Principal) (RoleName, bool) {
	if p == nil || p.Role == nil || !IsKnownRole(p.Role.Name) {
		return "", false
	}
	return p.Role.Name, true
}

// CanPerform reports whether the principal holds the capability. Superadmin
// satisfies every capability regardless of its explicit list.
func CanPerform(p *Principal, capability string) bool {
	name, ok := roleName(p)
	if !ok {
		return false
	}
	if name == RoleSuperadmin {
		return true
	}
	for _, c := range p.Role.Permissions.CanDo {
		if c == capability {
			return true
		}
	}
	return false
}

// HasRole is true iff the principal's role is one of allowed. Absent or
// unknown roles fail closed.
func HasRole(p *Principal, allowed ...RoleName) bool {
	name, ok := roleName(p)
	if !ok {
		return false
	}
	for _, a := range allowed {
		if a == name {
			return true
		}
	}
	return false
}

func IsAdminClass(p *Principal) bool {
	return HasRole(p, AdminClass...)
}

// CanSeeModule drives menu visibility. Superadmin sees everything.
func CanSeeModule(p *Principal, module string) bool {
	name, ok := roleName(p)
	if !ok {
		return false
	}
	if name == RoleSuperadmin {
		return true
	}
	return p.Role.Permissions.Modules[module]
}

// Visibility is the evaluated permission view handed to the UI.
type Visibility struct {
	Modules      map[string]bool `json:"modules"`
	Capabilities map[string]bool `json:"capabilities"`
	AdminClass   bool            `json:"admin_class"`
}

func Evaluate(p *Principal, modules []string, capabilities []string) Visibility {
	v := Visibility{
		Modules:      make(map[string]bool, len(modules)),
		Capabilities: make(map[string]bool, len(capabilities)),
		AdminClass:   IsAdminClass(p),
	}
	for _, m := range modules {
		v.Modules[m] = CanSeeModule(p, m)
	}
	for _, c := range capabilities {
		v.Capabilities[c] = CanPerform(p, c)
	}
	return v
}

var (
	AllModules      = []string{ModuleRequisitions, ModuleTemplates, ModuleCompanies, ModuleUsers}
	AllCapabilities = []string{CapCreateRequisition, CapEditRequisition, CapViewRequisition, CapViewTemplates}
)
