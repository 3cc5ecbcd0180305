package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justsurfingit/hr-requisitions/internal/common"
	"github.com/justsurfingit/hr-requisitions/internal/forms"
	"github.com/justsurfingit/hr-requisitions/internal/models"
	"github.com/justsurfingit/hr-requisitions/internal/repository"
)

// The sqlite test pool has one connection, so these publishes queue rather
// than interleave. On postgres the company row lock serializes them and the
// partial unique index rejects a second active row, which
// repository.TestSecondActiveTemplateIsRejectedByIndex checks directly.
func TestPublishFromManyCallersLeavesOneActiveTemplate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	company := env.company(t, "Acme", true)

	const publishers = 8
	var wg sync.WaitGroup
	errs := make([]error, publishers)
	for i := 0; i < publishers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			section := forms.Section{ID: "general", Title: fmt.Sprintf("Rev %d", i), Fields: []forms.Field{
				{Name: "dept", Type: forms.TypeText, Required: true, Position: 1},
			}}
			_, errs[i] = env.templates.PublishTemplate(ctx, superadmin(), company.ID, []forms.Section{section})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, common.Is(err, common.CodeConcurrentModification), err)
	}
	require.Positive(t, succeeded)

	history, err := env.store.Templates().History(ctx, company.ID)
	require.NoError(t, err)
	var active []models.FormTemplate
	for _, tpl := range history {
		if tpl.IsActive {
			active = append(active, tpl)
		}
	}
	require.Len(t, active, 1)
	assert.Len(t, history, succeeded)
	assert.Equal(t, succeeded, history[0].Version)
	assert.True(t, history[0].IsActive)
}

func TestPublishReplacesActiveAndKeepsHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	company := env.company(t, "Acme", true)

	none, err := env.templates.GetActiveTemplate(ctx, company.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	t1 := env.publish(t, company.ID, deptSection())
	t2 := env.publish(t, company.ID, deptSection())
	assert.Equal(t, 1, t1.Version)
	assert.Equal(t, 2, t2.Version)

	active, err := env.templates.GetActiveTemplate(ctx, company.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, t2.ID, active.ID)

	history, err := env.templates.History(ctx, admin(), company.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, t2.ID, history[0].ID)
	assert.False(t, history[1].IsActive)
}

func TestPublishIsAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	company := env.company(t, "Acme", true)

	_, err := env.templates.PublishTemplate(context.Background(), partner("u-p", company.ID), company.ID, []forms.Section{deptSection()})
	assert.True(t, common.Is(err, common.CodeForbidden))
}

func TestPublishRejectsBadDefinition(t *testing.T) {
	env := newTestEnv(t)
	company := env.company(t, "Acme", true)

	_, err := env.templates.PublishTemplate(context.Background(), admin(), company.ID, []forms.Section{{
		ID: "general",
		Fields: []forms.Field{
			{Name: "shift", Type: forms.TypeSelect, Position: 1},
			{Name: "shift", Type: "date", Position: 1},
		},
	}})
	appErr, ok := common.As(err)
	require.True(t, ok)
	assert.Equal(t, common.CodeValidation, appErr.Code)
	assert.ElementsMatch(t, []common.Violation{
		{SectionID: "general", Field: "shift", Reason: common.ReasonMissingOptions},
		{SectionID: "general", Field: "shift", Reason: common.ReasonDuplicateField},
		{SectionID: "general", Field: "shift", Reason: common.ReasonDuplicatePosition},
		{SectionID: "general", Field: "shift", Reason: common.ReasonInvalidType},
	}, appErr.Violations)

	history, err := env.store.Templates().History(context.Background(), company.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestActiveTemplateRequiresScope(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mine := env.company(t, "Mine", true)
	other := env.company(t, "Other", true)
	env.publish(t, other.ID, deptSection())
	p := partner("u-p", mine.ID)

	_, err := env.templates.ActiveForPrincipal(ctx, p, other.ID)
	assert.True(t, common.Is(err, common.CodeOutOfScope))

	tpl, err := env.templates.ActiveForPrincipal(ctx, p, mine.ID)
	require.NoError(t, err)
	assert.Nil(t, tpl)
}

func TestTwoActiveTemplatesSurfaceAsInconsistency(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	company := env.company(t, "Acme", true)
	env.publish(t, company.ID, deptSection())

	// Simulate corrupted data that bypassed the partial index.
	require.NoError(t, env.store.Transaction(ctx, func(tx *repository.Store) error {
		return tx.Templates().Create(ctx, &models.FormTemplate{CompanyID: company.ID, Version: 2, IsActive: false})
	}))
	require.NoError(t, env.store.DB().Exec("DROP INDEX ux_form_templates_active").Error)
	require.NoError(t, env.store.DB().Exec("UPDATE form_templates SET is_active = true").Error)

	_, err := env.templates.GetActiveTemplate(ctx, company.ID)
	assert.True(t, common.Is(err, common.CodeTemplateInconsistency))
}

func TestValidateResponsesWithoutTemplate(t *testing.T) {
	env := newTestEnv(t)
	assert.Nil(t, env.templates.ValidateResponses(nil, forms.Responses{"x": nil}))
}
