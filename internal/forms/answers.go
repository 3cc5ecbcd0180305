package forms

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/justsurfingit/hr-requisitions/internal/common"
)

// Responses maps section id -> field name -> raw answer as received.
type Responses map[string]map[string]json.RawMessage

// Clone returns a deep copy of r.
func (r Responses) Clone() Responses {
	if r == nil {
		return nil
	}
	out := make(Responses, len(r))
	for sectionID, answers := range r {
		copied := make(map[string]json.RawMessage, len(answers))
		for name, raw := range answers {
			copied[name] = append(json.RawMessage(nil), raw...)
		}
		out[sectionID] = copied
	}
	return out
}

// Answer is the typed value of one field. Which member is meaningful is
// decided by Type:
//
//	text, textarea, richtext, select -> Text
//	number                          -> Number
//	multiselect, list               -> Values
//	checkbox                        -> Checked
type Answer struct {
	Type    FieldType
	Present bool
	Text    string
	Number  float64
	Values  []string
	Checked bool
}

// Empty reports whether the answer counts as not provided for required checks.
// A checkbox is only considered answered when it is checked.
func (a Answer) Empty() bool {
	if !a.Present {
		return true
	}
	switch a.Type {
	case TypeMultiselect, TypeList:
		return len(a.Values) == 0
	case TypeCheckbox:
		return !a.Checked
	case TypeNumber:
		return false
	default:
		return strings.TrimSpace(a.Text) == ""
	}
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// numberLiteral accepts s only when it is a JSON number literal, so NaN,
// Inf and hex floats are rejected even though strconv would parse them.
func numberLiteral(s string) (json.Number, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return "", false
	}
	n, ok := v.(json.Number)
	return n, ok
}

// Decode converts a raw answer into its typed form. A non-empty reason is
// returned when the JSON shape does not fit the field type.
func Decode(field Field, raw json.RawMessage) (Answer, string) {
	ans := Answer{Type: field.Type}
	if isNull(raw) {
		return ans, ""
	}
	switch field.Type {
	case TypeText, TypeTextarea, TypeRichtext, TypeSelect:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ans, common.ReasonInvalidType
		}
		ans.Text = s
		ans.Present = strings.TrimSpace(s) != ""
	case TypeNumber:
		var n json.Number
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return ans, common.ReasonInvalidNumber
		}
		switch typed := v.(type) {
		case json.Number:
			n = typed
		case string:
			if strings.TrimSpace(typed) == "" {
				return ans, ""
			}
			literal, ok := numberLiteral(strings.TrimSpace(typed))
			if !ok {
				return ans, common.ReasonInvalidNumber
			}
			n = literal
		default:
			return ans, common.ReasonInvalidNumber
		}
		f, err := strconv.ParseFloat(string(n), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return ans, common.ReasonInvalidNumber
		}
		ans.Number = f
		ans.Present = true
	case TypeMultiselect, TypeList:
		var values []string
		if err := json.Unmarshal(raw, &values); err != nil {
			return ans, common.ReasonInvalidType
		}
		for _, v := range values {
			if strings.TrimSpace(v) != "" {
				ans.Values = append(ans.Values, v)
			}
		}
		ans.Present = len(ans.Values) > 0
	case TypeCheckbox:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return ans, common.ReasonInvalidType
		}
		ans.Checked = b
		ans.Present = true
	default:
		return ans, common.ReasonInvalidType
	}
	return ans, ""
}
