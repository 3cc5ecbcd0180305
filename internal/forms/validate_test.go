package forms

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justsurfingit/hr-requisitions/internal/common"
)

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func hiringSections() []Section {
	return []Section{
		{
			ID:       "general",
			Title:    "General",
			Position: 1,
			Fields: []Field{
				{Name: "dept", Label: "Department", Type: TypeText, Required: true, Position: 1},
				{Name: "shift", Label: "Shift", Type: TypeSelect, Options: []string{"day", "night"}, Position: 2},
				{Name: "budget", Label: "Budget", Type: TypeNumber, Position: 3},
				{Name: "languages", Label: "Languages", Type: TypeMultiselect, Options: []string{"en", "es", "pt"}, Position: 4},
			},
		},
		{
			ID:       "extras",
			Title:    "Extras",
			Position: 2,
			Fields: []Field{
				{Name: "travel", Label: "Requires travel", Type: TypeCheckbox, Position: 1},
				{Name: "tasks", Label: "Tasks", Type: TypeList, Position: 2},
				{Name: "notes", Label: "Notes", Type: TypeRichtext, Position: 3},
			},
		},
	}
}

func TestValidateResponsesSingleMissingRequired(t *testing.T) {
	sections := []Section{{ID: "s1", Fields: []Field{{Name: "dept", Type: TypeText, Required: true, Position: 1}}}}

	got := ValidateResponses(sections, Responses{})

	require.Len(t, got, 1)
	assert.Equal(t, common.Violation{SectionID: "s1", Field: "dept", Reason: common.ReasonMissingRequired}, got[0])
}

func TestValidateResponsesReportsEveryViolation(t *testing.T) {
	responses := Responses{
		"general": {
			"dept":      raw(t, "   "),
			"shift":     raw(t, "evening"),
			"budget":    raw(t, "ten thousand"),
			"languages": raw(t, []string{"en", "fr"}),
		},
		"extras": {
			"tasks": raw(t, "not-a-list"),
		},
	}

	got := ValidateResponses(hiringSections(), responses)

	assert.Equal(t, []common.Violation{
		{SectionID: "general", Field: "dept", Reason: common.ReasonMissingRequired},
		{SectionID: "general", Field: "shift", Reason: common.ReasonInvalidOption},
		{SectionID: "general", Field: "budget", Reason: common.ReasonInvalidNumber},
		{SectionID: "general", Field: "languages", Reason: common.ReasonInvalidOption},
		{SectionID: "extras", Field: "tasks", Reason: common.ReasonInvalidType},
	}, got)
}

func TestValidateResponsesAcceptsWellTypedAnswers(t *testing.T) {
	responses := Responses{
		"general": {
			"dept":      raw(t, "Sales"),
			"shift":     raw(t, "night"),
			"budget":    raw(t, "12500.50"),
			"languages": raw(t, []string{"en", "pt"}),
		},
		"extras": {
			"travel": raw(t, true),
			"tasks":  raw(t, []string{"prospecting", "demos"}),
			"notes":  raw(t, "<p>urgent</p>"),
		},
	}

	assert.Empty(t, ValidateResponses(hiringSections(), responses))
}

func TestNumberAcceptsJSONNumbers(t *testing.T) {
	field := Field{Name: "budget", Type: TypeNumber}

	ans, reason := Decode(field, json.RawMessage(`42.5`))
	require.Empty(t, reason)
	assert.Equal(t, 42.5, ans.Number)

	_, reason = Decode(field, json.RawMessage(`true`))
	assert.Equal(t, common.ReasonInvalidNumber, reason)

	ans, reason = Decode(field, json.RawMessage(`""`))
	require.Empty(t, reason)
	assert.True(t, ans.Empty())
}

func TestNumberRejectsNonDecimalStrings(t *testing.T) {
	sections := []Section{{ID: "s", Fields: []Field{{Name: "headcount", Type: TypeNumber, Required: true}}}}

	for _, in := range []string{"NaN", "Inf", "-infinity", "0x1p4", "1e400", "12 apples", "1 2"} {
		t.Run(in, func(t *testing.T) {
			got := ValidateResponses(sections, Responses{"s": {"headcount": raw(t, in)}})
			require.Len(t, got, 1)
			assert.Equal(t, common.Violation{SectionID: "s", Field: "headcount", Reason: common.ReasonInvalidNumber}, got[0])
		})
	}

	ans, reason := Decode(Field{Name: "headcount", Type: TypeNumber}, raw(t, " 3.5e1 "))
	require.Empty(t, reason)
	assert.Equal(t, 35.0, ans.Number)
}

func TestRequiredCheckboxMustBeChecked(t *testing.T) {
	sections := []Section{{ID: "s", Fields: []Field{{Name: "consent", Type: TypeCheckbox, Required: true}}}}

	got := ValidateResponses(sections, Responses{"s": {"consent": json.RawMessage(`false`)}})
	require.Len(t, got, 1)
	assert.Equal(t, common.ReasonMissingRequired, got[0].Reason)

	assert.Empty(t, ValidateResponses(sections, Responses{"s": {"consent": json.RawMessage(`true`)}}))
}

func TestValidateResponsesIsSafeForConcurrentUse(t *testing.T) {
	sections := hiringSections()
	responses := Responses{"general": {"dept": raw(t, "Ops")}}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Empty(t, ValidateResponses(sections, responses))
		}()
	}
	wg.Wait()
}

func TestPrepareSectionsRenumbersAndSorts(t *testing.T) {
	input := []Section{
		{ID: "second", Position: 20, Fields: []Field{{Name: "b", Type: TypeText, Position: 9}, {Name: "a", Type: TypeText, Position: 3}}},
		{ID: "", Position: 5, Fields: []Field{{Name: "only", Label: "Only", Type: TypeNumber, Position: 40}}},
	}

	got, violations := PrepareSections(input)

	require.Empty(t, violations)
	require.Len(t, got, 2)
	assert.NotEmpty(t, got[0].ID)
	assert.Equal(t, 1, got[0].Position)
	assert.Equal(t, 1, got[0].Fields[0].Position)
	assert.Equal(t, "second", got[1].ID)
	assert.Equal(t, 2, got[1].Position)
	assert.Equal(t, []string{"a", "b"}, []string{got[1].Fields[0].Name, got[1].Fields[1].Name})
	assert.Equal(t, []int{1, 2}, []int{got[1].Fields[0].Position, got[1].Fields[1].Position})
	assert.Equal(t, "a", got[1].Fields[0].Label)

	// input untouched
	assert.Equal(t, 9, input[0].Fields[0].Position)
}

func TestPrepareSectionsRejectsBadDefinitions(t *testing.T) {
	input := []Section{
		{ID: "s", Fields: []Field{
			{Name: "a", Type: TypeText, Position: 1},
			{Name: "a", Type: TypeText, Position: 2},
			{Name: "b", Type: TypeText, Position: 2},
			{Name: "c", Type: "date", Position: 3},
			{Name: "d", Type: TypeSelect, Position: 4},
		}},
		{ID: "s"},
	}

	_, violations := PrepareSections(input)

	assert.ElementsMatch(t, []common.Violation{
		{SectionID: "s", Field: "a", Reason: common.ReasonDuplicateField},
		{SectionID: "s", Field: "b", Reason: common.ReasonDuplicatePosition},
		{SectionID: "s", Field: "c", Reason: common.ReasonInvalidType},
		{SectionID: "s", Field: "d", Reason: common.ReasonMissingOptions},
		{SectionID: "s", Field: "", Reason: common.ReasonDuplicateSection},
	}, violations)
}

func TestCloneSectionsIsDeep(t *testing.T) {
	original := hiringSections()
	clone := CloneSections(original)
	clone[0].Fields[1].Options[0] = "changed"
	clone[0].Fields[0].Name = "changed"

	assert.Equal(t, "day", original[0].Fields[1].Options[0])
	assert.Equal(t, "dept", original[0].Fields[0].Name)
}
