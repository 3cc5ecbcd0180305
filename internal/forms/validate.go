package forms

import (
	"strings"

	"github.com/google/uuid"

	"github.com/justsurfingit/hr-requisitions/internal/common"
)

// ValidateResponses checks every field of every section and returns all
// violations found, in template order. An empty result means the responses
// satisfy the template.
func ValidateResponses(sections []Section, responses Responses) []common.Violation {
	var violations []common.Violation
	for _, section := range sections {
		answers := responses[section.ID]
		for _, field := range section.Fields {
			ans, reason := Decode(field, answers[field.Name])
			if reason != "" {
				violations = append(violations, violation(section.ID, field.Name, reason))
				continue
			}
			if ans.Empty() {
				if field.Required {
					violations = append(violations, violation(section.ID, field.Name, common.ReasonMissingRequired))
				}
				continue
			}
			switch field.Type {
			case TypeSelect:
				if !field.allows(ans.Text) {
					violations = append(violations, violation(section.ID, field.Name, common.ReasonInvalidOption))
				}
			case TypeMultiselect:
				for _, v := range ans.Values {
					if !field.allows(v) {
						violations = append(violations, violation(section.ID, field.Name, common.ReasonInvalidOption))
						break
					}
				}
			}
		}
	}
	return violations
}

func violation(sectionID, field, reason string) common.Violation {
	return common.Violation{SectionID: sectionID, Field: field, Reason: reason}
}

// PrepareSections validates a template definition before publish and returns a
// normalized copy: sections and fields sorted by position and renumbered from
// 1 without gaps, missing section ids generated, empty labels defaulted to the
// field name.
func PrepareSections(input []Section) ([]Section, []common.Violation) {
	sections := CloneSections(input)
	var violations []common.Violation

	seenSections := make(map[string]struct{}, len(sections))
	for i := range sections {
		s := &sections[i]
		s.ID = strings.TrimSpace(s.ID)
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if _, dup := seenSections[s.ID]; dup {
			violations = append(violations, violation(s.ID, "", common.ReasonDuplicateSection))
		}
		seenSections[s.ID] = struct{}{}

		names := make(map[string]struct{}, len(s.Fields))
		positions := make(map[int]struct{}, len(s.Fields))
		for j := range s.Fields {
			f := &s.Fields[j]
			f.Name = strings.TrimSpace(f.Name)
			if f.Name == "" {
				violations = append(violations, violation(s.ID, "", common.ReasonMissingRequired))
				continue
			}
			if _, dup := names[f.Name]; dup {
				violations = append(violations, violation(s.ID, f.Name, common.ReasonDuplicateField))
			}
			names[f.Name] = struct{}{}
			if _, dup := positions[f.Position]; dup {
				violations = append(violations, violation(s.ID, f.Name, common.ReasonDuplicatePosition))
			}
			positions[f.Position] = struct{}{}
			if !f.Type.Valid() {
				violations = append(violations, violation(s.ID, f.Name, common.ReasonInvalidType))
			} else if f.Type.HasOptions() && len(f.Options) == 0 {
				violations = append(violations, violation(s.ID, f.Name, common.ReasonMissingOptions))
			}
			if strings.TrimSpace(f.Label) == "" {
				f.Label = f.Name
			}
		}
	}
	if len(violations) > 0 {
		return nil, violations
	}

	SortSections(sections)
	for i := range sections {
		sections[i].Position = i + 1
		for j := range sections[i].Fields {
			sections[i].Fields[j].Position = j + 1
		}
	}
	return sections, nil
}
