// internal/app/system/inputval/validate.go
package inputval

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"
)

// FieldError is one failed rule on one field.
type FieldError struct {
	Field   string
	Message string
}

// Result collects the errors from Validate in field order.
type Result struct {
	Errors []FieldError
}

// HasErrors reports whether any rule failed.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first error message, or "".
func (r *Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every error message with "; ".
func (r *Result) All() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the string fields of struct v against their `validate`
// tags. Supported rules: required, min=N, max=N (in characters), email,
// objectid, httpurl. The `label` tag names the field in messages.
// Optional fields that are empty skip the remaining rules.
// Only the first failing rule per field is reported.
func Validate(v any) *Result {
	res := &Result{}
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct {
		return res
	}
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		tag := f.Tag.Get("validate")
		if tag == "" || f.Type.Kind() != reflect.String {
			continue
		}
		label := f.Tag.Get("label")
		if label == "" {
			label = f.Name
		}
		if msg := check(rv.Field(i).String(), strings.Split(tag, ","), label); msg != "" {
			res.Errors = append(res.Errors, FieldError{Field: f.Name, Message: msg})
		}
	}
	return res
}

func check(val string, rules []string, label string) string {
	trimmed := strings.TrimSpace(val)
	for _, rule := range rules {
		name, arg, _ := strings.Cut(rule, "=")
		switch name {
		case "required":
			if trimmed == "" {
				return label + " is required."
			}
		default:
			if trimmed == "" {
				return ""
			}
		}

		switch name {
		case "max":
			if n, err := strconv.Atoi(arg); err == nil && utf8.RuneCountInString(trimmed) > n {
				return fmt.Sprintf("%s must be at most %d characters.", label, n)
			}
		case "min":
			if n, err := strconv.Atoi(arg); err == nil && utf8.RuneCountInString(trimmed) < n {
				return fmt.Sprintf("%s must be at least %d characters.", label, n)
			}
		case "email":
			if !IsValidEmail(trimmed) {
				return "A valid email address is required."
			}
		case "objectid":
			if !IsValidObjectID(trimmed) {
				return label + " must be a valid id."
			}
		case "httpurl":
			if !IsValidHTTPURL(trimmed) {
				return label + " must be a valid http or https URL."
			}
		}
	}
	return ""
}
