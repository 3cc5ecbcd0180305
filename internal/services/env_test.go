package services

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/justsurfingit/hr-requisitions/internal/database"
	"github.com/justsurfingit/hr-requisitions/internal/forms"
	"github.com/justsurfingit/hr-requisitions/internal/models"
	"github.com/justsurfingit/hr-requisitions/internal/notify"
	"github.com/justsurfingit/hr-requisitions/internal/permissions"
	"github.com/justsurfingit/hr-requisitions/internal/repository"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(_ context.Context, event notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	store        *repository.Store
	scope        *ScopeService
	templates    *TemplateService
	requisitions *RequisitionService
	notifier     *recordingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "requisitions.db") + "?_pragma=busy_timeout(5000)"
	db, err := database.Connect(database.Options{
		Driver:       database.DriverSQLite,
		DSN:          dsn,
		MaxOpenConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, zap.NewNop()))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	logger := zaptest.NewLogger(t)
	store := repository.NewStore(db)
	notifier := &recordingNotifier{}
	scope := NewScopeService(store)
	templates := NewTemplateService(store, scope, notifier, logger)
	return &testEnv{
		store:        store,
		scope:        scope,
		templates:    templates,
		requisitions: NewRequisitionService(store, scope, templates, notifier, logger),
		notifier:     notifier,
	}
}

func (e *testEnv) company(t *testing.T, name string, active bool) *models.Company {
	t.Helper()
	c := &models.Company{Name: name, IsActive: active}
	require.NoError(t, e.store.Companies().Create(context.Background(), c))
	return c
}

func (e *testEnv) publish(t *testing.T, companyID string, sections ...forms.Section) *models.FormTemplate {
	t.Helper()
	tpl, err := e.templates.PublishTemplate(context.Background(), superadmin(), companyID, sections)
	require.NoError(t, err)
	return tpl
}

func superadmin() *permissions.Principal {
	return &permissions.Principal{
		ID:       "u-root",
		IsActive: true,
		Role:     &permissions.Role{Name: permissions.RoleSuperadmin},
	}
}

func admin() *permissions.Principal {
	return &permissions.Principal{
		ID:       "u-admin",
		IsActive: true,
		Role: &permissions.Role{
			Name: permissions.RoleAdmin,
			Permissions: permissions.Set{
				CanDo: []string{permissions.CapCreateRequisition, permissions.CapEditRequisition, permissions.CapViewRequisition, permissions.CapViewTemplates},
			},
		},
	}
}

func partner(id string, companyIDs ...string) *permissions.Principal {
	p := &permissions.Principal{
		ID:       id,
		IsActive: true,
		Role: &permissions.Role{
			Name: permissions.RolePartner,
			Permissions: permissions.Set{
				Modules: map[string]bool{permissions.ModuleRequisitions: true},
				CanDo:   []string{permissions.CapCreateRequisition, permissions.CapEditRequisition, permissions.CapViewTemplates},
			},
		},
	}
	for _, id := range companyIDs {
		p.Companies = append(p.Companies, permissions.CompanyAssociation{CompanyID: id, RoleInCompany: "hiring_manager", IsActive: true})
	}
	return p
}

func deptSection() forms.Section {
	return forms.Section{
		ID:       "general",
		Title:    "General",
		Position: 1,
		Fields:   []forms.Field{{Name: "dept", Label: "Department", Type: forms.TypeText, Required: true, Position: 1}},
	}
}

func validFixedFields() models.FixedFields {
	return models.FixedFields{
		Position:     "Account Executive",
		Department:   "Commercial",
		VacancyCount: 2,
		ReasonForOpening: models.ReasonForOpening{
			Growth: true,
		},
		ComputerSkills: []models.ComputerSkill{{Name: "Excel", Level: "intermediate"}},
	}
}

func answers(t *testing.T, section string, values map[string]any) forms.Responses {
	t.Helper()
	out := forms.Responses{section: {}}
	for k, v := range values {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		out[section][k] = b
	}
	return out
}
