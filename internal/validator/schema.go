package validator

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"
)

// Kind identifies the expected type of a schema field.
type Kind int

const (
	String Kind = iota
	Int
	Date
	StringList
)

// dateLayout is the accepted format for date fields (date-only, no time part).
const dateLayout = "2006-01-02"

// Rule declares the shape of a single field: its type, whether it must be
// present, and any bounds or enumerated value set. Rules are plain data so
// that request shapes can be declared once and inspected in tests.
type Rule struct {
	Kind     Kind
	Required bool
	MaxLen   int      // maximum length for String fields (0 = unbounded)
	Min      int      // minimum value for Int fields
	Max      int      // maximum value for Int fields (0 = unbounded)
	Enum     []string // permitted values for String fields (nil = any)
}

// Schema maps field names to their declared rules. It is evaluated against
// raw input to produce a normalized value map or a field-indexed error set.
// Fields present in the input but absent from the schema are ignored for
// forward compatibility.
type Schema map[string]Rule

// ValidateQuery evaluates the schema against URL query parameters.
// String-to-number and string-to-date coercion is permitted here, since
// query parameters are always strings on the wire. The returned map holds
// normalized values (string, int, time.Time or []string) keyed by field
// name, containing only fields that were present and valid.
func (s Schema) ValidateQuery(qs url.Values) (map[string]any, *Validator) {
	v := New()
	out := make(map[string]any, len(s))

	for field, rule := range s {
		raw := qs.Get(field)
		if raw == "" {
			if rule.Required {
				v.AddError(field, "must be provided")
			}
			continue
		}

		switch rule.Kind {
		case Int:
			n, err := strconv.Atoi(raw)
			if err != nil {
				v.AddError(field, "must be an integer value")
				continue
			}
			s.checkInt(v, field, rule, n)
			out[field] = n
		case Date:
			t, err := time.Parse(dateLayout, raw)
			if err != nil {
				v.AddError(field, "must be a date in YYYY-MM-DD format")
				continue
			}
			out[field] = t
		default:
			s.checkString(v, field, rule, raw)
			out[field] = raw
		}
	}

	return out, v
}

// ValidateBody evaluates the schema against a decoded JSON object. Unlike
// query parameters, body fields must match their declared types exactly:
// a string is not coerced into a number and vice versa. The returned map
// contains only fields that were present in the body, which lets callers
// distinguish "absent" from "set to the zero value" for partial updates.
func (s Schema) ValidateBody(body map[string]any) (map[string]any, *Validator) {
	v := New()
	out := make(map[string]any, len(s))

	for field, rule := range s {
		raw, present := body[field]
		if !present || raw == nil {
			if rule.Required {
				v.AddError(field, "must be provided")
			}
			continue
		}

		switch rule.Kind {
		case Int:
			// encoding/json decodes all JSON numbers as float64.
			f, ok := raw.(float64)
			if !ok || f != math.Trunc(f) {
				v.AddError(field, "must be an integer value")
				continue
			}
			n := int(f)
			s.checkInt(v, field, rule, n)
			out[field] = n
		case Date:
			str, ok := raw.(string)
			if !ok {
				v.AddError(field, "must be a date string")
				continue
			}
			t, err := time.Parse(dateLayout, str)
			if err != nil {
				v.AddError(field, "must be a date in YYYY-MM-DD format")
				continue
			}
			out[field] = t
		case StringList:
			items, ok := raw.([]any)
			if !ok {
				v.AddError(field, "must be an array of strings")
				continue
			}
			list := make([]string, 0, len(items))
			for _, item := range items {
				str, ok := item.(string)
				if !ok {
					v.AddError(field, "must be an array of strings")
					break
				}
				list = append(list, str)
			}
			if len(list) == len(items) {
				out[field] = list
			}
		default:
			str, ok := raw.(string)
			if !ok {
				v.AddError(field, "must be a string")
				continue
			}
			s.checkString(v, field, rule, str)
			out[field] = str
		}
	}

	return out, v
}

func (s Schema) checkString(v *Validator, field string, rule Rule, value string) {
	if value == "" && rule.Required {
		v.AddError(field, "must not be empty")
		return
	}
	if rule.MaxLen > 0 && len(value) > rule.MaxLen {
		v.AddError(field, fmt.Sprintf("must not be more than %d characters long", rule.MaxLen))
	}
	if len(rule.Enum) > 0 && !In(value, rule.Enum...) {
		v.AddError(field, fmt.Sprintf("must be one of %v", rule.Enum))
	}
}

func (s Schema) checkInt(v *Validator, field string, rule Rule, value int) {
	if value < rule.Min {
		v.AddError(field, fmt.Sprintf("must be at least %d", rule.Min))
	}
	if rule.Max > 0 && value > rule.Max {
		v.AddError(field, fmt.Sprintf("must not be greater than %d", rule.Max))
	}
}
