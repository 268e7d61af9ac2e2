package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go-psa/internal/models"
	"go-psa/pkg/utils"
)

// applyTransform runs one transform rule. raw is the full source row, for
// transforms that read multiple fields.
func applyTransform(value interface{}, raw map[string]interface{}, rule *models.TransformRule, now func() time.Time) (interface{}, error) {
	switch rule.Kind {
	case models.TransformStatic:
		return rule.Value, nil
	case models.TransformFunction:
		return applyFunction(rule.Value, value)
	case models.TransformLookup:
		key := toString(value)
		if out, ok := rule.Lookup[key]; ok {
			return out, nil
		}
		if rule.LookupDefault != "" {
			return rule.LookupDefault, nil
		}
		return value, nil
	case models.TransformConcatenate:
		parts := make([]string, 0, len(rule.Fields))
		for _, f := range rule.Fields {
			parts = append(parts, toString(raw[f]))
		}
		return strings.Join(parts, rule.Separator), nil
	case models.TransformSplit:
		if rule.Delimiter == "" {
			return nil, fmt.Errorf("split transform requires a delimiter")
		}
		segments := strings.Split(toString(value), rule.Delimiter)
		if rule.Index < 0 || rule.Index >= len(segments) {
			return nil, fmt.Errorf("split index %d out of range (%d segments)", rule.Index, len(segments))
		}
		return segments[rule.Index], nil
	case models.TransformFormat:
		return applyFormat(rule.Value, value, raw, now), nil
	}
	return nil, fmt.Errorf("unknown transform kind: %q", rule.Kind)
}

func applyFunction(name string, value interface{}) (interface{}, error) {
	s := toString(value)
	switch name {
	case "lowercase":
		return strings.ToLower(s), nil
	case "uppercase":
		return strings.ToUpper(s), nil
	case "trim":
		return strings.TrimSpace(s), nil
	case "parseInt":
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			// Accept values like "12.0" that came through a float column.
			f, ferr := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if ferr != nil {
				return nil, fmt.Errorf("parseInt: %q is not a number", s)
			}
			return int64(f), nil
		}
		return n, nil
	case "parseFloat":
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("parseFloat: %q is not a number", s)
		}
		return f, nil
	case "formatDate":
		t, err := parseAnyTime(value)
		if err != nil {
			return nil, fmt.Errorf("formatDate: %v", err)
		}
		return t.Format("2006-01-02"), nil
	case "formatCurrency":
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("formatCurrency: %q is not a number", s)
		}
		return fmt.Sprintf("$%.2f", f), nil
	case "slugify":
		return utils.Slugify(s), nil
	}
	return nil, fmt.Errorf("unknown transform function: %q", name)
}

// applyFormat substitutes tokens in a template: {value} for the current
// value, {now} for the injected clock, {field} for any source field, and
// the date tokens YYYY MM DD HH mm ss when the value parses as a time.
func applyFormat(template string, value interface{}, raw map[string]interface{}, now func() time.Time) string {
	out := strings.ReplaceAll(template, "{value}", toString(value))
	if strings.Contains(out, "{now}") {
		out = strings.ReplaceAll(out, "{now}", now().Format(time.RFC3339))
	}

	if t, err := parseAnyTime(value); err == nil {
		replacer := strings.NewReplacer(
			"YYYY", t.Format("2006"),
			"MM", t.Format("01"),
			"DD", t.Format("02"),
			"HH", t.Format("15"),
			"mm", t.Format("04"),
			"ss", t.Format("05"),
		)
		out = replacer.Replace(out)
	}

	for field, v := range raw {
		out = strings.ReplaceAll(out, "{"+field+"}", toString(v))
	}
	return out
}

func parseAnyTime(value interface{}) (time.Time, error) {
	if t, ok := value.(time.Time); ok {
		return t, nil
	}
	s := strings.TrimSpace(toString(value))
	for _, layout := range append(append([]string{}, datetimeParseLayouts...), dateParseLayouts...) {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a recognized date", s)
}

var datetimeParseLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

var dateParseLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"2006/01/02",
}

// toString renders any source value for string-oriented transforms.
// Floats that carry integral values print without a trailing ".0" so CSV
// and JSON numbers behave alike.
func toString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// isEmpty reports whether a value counts as empty for default substitution
// and required-field checks.
func isEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
