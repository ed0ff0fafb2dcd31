// Package validate provides pure field validation rules over records.
// A Rule inspects a record and reports field-keyed messages; rules never
// mutate the record and never panic on malformed shapes.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/propdesk/formflow/record"
	"github.com/propdesk/formflow/types"
)

// Rule maps a record to field-keyed error messages. An empty result means
// the rule passes.
type Rule func(r record.Record) types.ErrorMap

// Advisory produces non-blocking step warnings. Advisories never block
// navigation or submission.
type Advisory func(r record.Record) []string

// Rules combines rules into one, merging their results.
func Rules(rules ...Rule) Rule {
	return func(r record.Record) types.ErrorMap {
		out := types.ErrorMap{}
		for _, rule := range rules {
			out.Merge(rule(r))
		}
		return out
	}
}

// isSet distinguishes "unset" from "zero": nil, a missing path, and a blank
// string are unset; the number 0 and the empty array are set.
func isSet(r record.Record, path string) bool {
	v, ok := r.Get(path)
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// RequiredString fails when the field is absent or blank after trimming.
func RequiredString(path, label string) Rule {
	return func(r record.Record) types.ErrorMap {
		s, ok := r.StringAt(path)
		if !ok || strings.TrimSpace(s) == "" {
			return types.ErrorMap{path: label + " is required"}
		}
		return nil
	}
}

// RequiredNumber fails when the field is unset, non-numeric, or outside the
// inclusive [min, max] range. The unset check runs before the range check so
// zero stays a valid value for fields whose minimum is zero or below.
func RequiredNumber(path, label string, min, max float64) Rule {
	return func(r record.Record) types.ErrorMap {
		if !isSet(r, path) {
			return types.ErrorMap{path: label + " is required"}
		}
		n, ok := r.NumberAt(path)
		if !ok {
			return types.ErrorMap{path: label + " must be a number"}
		}
		if n < min || n > max {
			return types.ErrorMap{path: fmt.Sprintf("%s must be between %s and %s", label, trimFloat(min), trimFloat(max))}
		}
		return nil
	}
}

// NumberInRange checks the range only when the field is set.
func NumberInRange(path, label string, min, max float64) Rule {
	return func(r record.Record) types.ErrorMap {
		if !isSet(r, path) {
			return nil
		}
		n, ok := r.NumberAt(path)
		if !ok {
			return types.ErrorMap{path: label + " must be a number"}
		}
		if n < min || n > max {
			return types.ErrorMap{path: fmt.Sprintf("%s must be between %s and %s", label, trimFloat(min), trimFloat(max))}
		}
		return nil
	}
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%g", f)
	return s
}

// Pattern fails when a set field does not match re. Unset fields pass, so
// optional fields carry shape checks without becoming required.
func Pattern(path, label string, re *regexp.Regexp, hint string) Rule {
	return func(r record.Record) types.ErrorMap {
		if !isSet(r, path) {
			return nil
		}
		s, ok := r.StringAt(path)
		if !ok {
			return types.ErrorMap{path: label + " must be text"}
		}
		if !re.MatchString(strings.TrimSpace(s)) {
			msg := label + " format is invalid"
			if hint != "" {
				msg += " (" + hint + ")"
			}
			return types.ErrorMap{path: msg}
		}
		return nil
	}
}

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	urlRe   = regexp.MustCompile(`^https?://[^\s]+$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9][0-9\s\-()]{6,19}$`)
	areaRe  = regexp.MustCompile(`^[0-9][0-9,.]*\s*(sq\s?ft|sqft|sqm|m2|ft2)$`)
)

// Email is a shape check for email fields.
func Email(path, label string) Rule {
	return Pattern(path, label, emailRe, "name@example.com")
}

// URL is a shape check for http(s) URL fields.
func URL(path, label string) Rule {
	return Pattern(path, label, urlRe, "https://...")
}

// Phone is a shape check for phone fields.
func Phone(path, label string) Rule {
	return Pattern(path, label, phoneRe, "")
}

// Area is a shape check for area strings such as "1000 sq ft".
func Area(path, label string) Rule {
	return Pattern(path, label, areaRe, `"1000 sq ft"`)
}

// Condition gates a rule on record state.
type Condition func(r record.Record) bool

// When applies rule only while cond holds.
func When(cond Condition, rule Rule) Rule {
	return func(r record.Record) types.ErrorMap {
		if !cond(r) {
			return nil
		}
		return rule(r)
	}
}

// AnyPresent holds when any of the listed fields is set. Used for
// all-or-nothing groups such as agent contact details.
func AnyPresent(paths ...string) Condition {
	return func(r record.Record) bool {
		for _, p := range paths {
			if isSet(r, p) {
				return true
			}
		}
		return false
	}
}

// FlagSet holds when the boolean field at path is true.
func FlagSet(path string) Condition {
	return func(r record.Record) bool {
		return r.BoolAt(path)
	}
}

// EachRow applies rowRule to every element of the array at itemsPath,
// prefixing resulting error keys with "itemsPath.<index>.". rowRule receives
// the element as a record; non-object rows are skipped.
func EachRow(itemsPath string, rowRule Rule) Rule {
	return func(r record.Record) types.ErrorMap {
		rows, ok := r.SliceAt(itemsPath)
		if !ok {
			return nil
		}
		out := types.ErrorMap{}
		for i, row := range rows {
			m, isMap := row.(map[string]any)
			if !isMap {
				continue
			}
			for k, v := range rowRule(record.Record(m)) {
				out[fmt.Sprintf("%s.%d.%s", itemsPath, i, k)] = v
			}
		}
		return out
	}
}

// PercentSum warns when the given numeric field summed across the array at
// itemsPath exceeds limit. The warning names no individual row; it is a
// whole-step advisory and does not block submission.
func PercentSum(itemsPath, field, label string, limit float64) Advisory {
	return func(r record.Record) []string {
		rows, ok := r.SliceAt(itemsPath)
		if !ok {
			return nil
		}
		var sum float64
		for _, row := range rows {
			m, isMap := row.(map[string]any)
			if !isMap {
				continue
			}
			if n, numOK := record.Record(m).NumberAt(field); numOK {
				sum += n
			}
		}
		if sum > limit {
			return []string{fmt.Sprintf("%s add up to %s%%, which exceeds %s%%", label, trimFloat(sum), trimFloat(limit))}
		}
		return nil
	}
}
