// Package forms holds the template building blocks (sections and typed
// fields) and the pure validation of answers against them. Nothing in this
// package touches storage, so validation can run concurrently across
// requisitions.
package forms

import (
	"sort"
)

type FieldType string

const (
	TypeText        FieldType = "text"
	TypeTextarea    FieldType = "textarea"
	TypeNumber      FieldType = "number"
	TypeSelect      FieldType = "select"
	TypeMultiselect FieldType = "multiselect"
	TypeCheckbox    FieldType = "checkbox"
	TypeList        FieldType = "list"
	TypeRichtext    FieldType = "richtext"
)

func (t FieldType) Valid() bool {
	switch t {
	case TypeText, TypeTextarea, TypeNumber, TypeSelect, TypeMultiselect, TypeCheckbox, TypeList, TypeRichtext:
		return true
	default:
		return false
	}
}

// HasOptions reports whether answers must come from Field.Options.
func (t FieldType) HasOptions() bool {
	return t == TypeSelect || t == TypeMultiselect
}

type Field struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Options  []string  `json:"options,omitempty"`
	Position int       `json:"position"`
}

func (f Field) allows(value string) bool {
	for _, o := range f.Options {
		if o == value {
			return true
		}
	}
	return false
}

type Section struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Position int     `json:"position"`
	Fields   []Field `json:"fields"`
}

// CloneSections returns a deep copy so snapshots never share slices with the
// live template.
func CloneSections(sections []Section) []Section {
	if sections == nil {
		return nil
	}
	out := make([]Section, len(sections))
	for i, s := range sections {
		out[i] = s
		if s.Fields != nil {
			out[i].Fields = make([]Field, len(s.Fields))
			for j, f := range s.Fields {
				out[i].Fields[j] = f
				if f.Options != nil {
					out[i].Fields[j].Options = append([]string(nil), f.Options...)
				}
			}
		}
	}
	return out
}

// SortSections orders sections and their fields by position in place.
// Positions need not be contiguous.
func SortSections(sections []Section) {
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].Position < sections[j].Position
	})
	for i := range sections {
		fields := sections[i].Fields
		sort.SliceStable(fields, func(a, b int) bool {
			return fields[a].Position < fields[b].Position
		})
	}
}

// FindSection returns the section with the given id.
func FindSection(sections []Section, id string) (Section, bool) {
	for _, s := range sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}
