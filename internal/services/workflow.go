package services

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/justsurfingit/hr-requisitions/internal/common"
	"github.com/justsurfingit/hr-requisitions/internal/models"
)

// FixedSection is the section id used for violations on the fixed business
// fields.
const FixedSection = "fixed"

var transitions = map[models.Status][]models.Status{
	models.StatusDraft:     {models.StatusSubmitted},
	models.StatusSubmitted: {models.StatusInReview, models.StatusCancelled},
	models.StatusInReview:  {models.StatusApproved, models.StatusRejected, models.StatusCancelled},
	models.StatusApproved:  {models.StatusFilled},
}

// CanTransition reports whether from -> to is in the lifecycle table.
func CanTransition(from, to models.Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// checkTransition classifies a requested move. Allowed moves return nil.
// Approved only leaves through filled; every other request out of a terminal
// state is RequisitionClosed.
func checkTransition(from, to models.Status) error {
	if CanTransition(from, to) {
		return nil
	}
	if from.Terminal() {
		return common.NewRequisitionClosed(string(from))
	}
	return common.NewInvalidTransition(string(from), string(to))
}

func newFixedFieldValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func fixedFieldViolations(v *validator.Validate, fields models.FixedFields) []common.Violation {
	err := v.Struct(fields)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []common.Violation{{SectionID: FixedSection, Reason: common.ReasonInvalidValue}}
	}
	out := make([]common.Violation, 0, len(verrs))
	for _, fe := range verrs {
		// Namespace is "FixedFields.computer_skills[0].level"; drop the struct name.
		name := fe.Namespace()
		if i := strings.Index(name, "."); i >= 0 {
			name = name[i+1:]
		}
		reason := common.ReasonInvalidValue
		if fe.Tag() == "required" {
			reason = common.ReasonMissingRequired
		}
		out = append(out, common.Violation{SectionID: FixedSection, Field: name, Reason: reason})
	}
	return out
}
