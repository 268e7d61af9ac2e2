package importer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"go-psa/internal/models"
)

var patternCache sync.Map // pattern string -> *regexp.Regexp

// applyValidation evaluates one rule against a value. It returns ok=false
// with a human-readable message on failure. The custom kind is a reserved
// extension point and always passes.
func applyValidation(value interface{}, rule models.ValidationRule) (bool, string) {
	switch rule.Kind {
	case models.ValidationRequired:
		if isEmpty(value) {
			return false, failMessage(rule, "value is required")
		}
	case models.ValidationMinLength:
		if len(toString(value)) < rule.MinLength {
			return false, failMessage(rule, fmt.Sprintf("must be at least %d characters", rule.MinLength))
		}
	case models.ValidationMaxLength:
		if len(toString(value)) > rule.MaxLength {
			return false, failMessage(rule, fmt.Sprintf("must be at most %d characters", rule.MaxLength))
		}
	case models.ValidationPattern:
		re, err := compiledPattern(rule.Pattern)
		if err != nil {
			return false, failMessage(rule, fmt.Sprintf("invalid pattern %q: %v", rule.Pattern, err))
		}
		if !re.MatchString(toString(value)) {
			return false, failMessage(rule, fmt.Sprintf("does not match pattern %s", rule.Pattern))
		}
	case models.ValidationRange:
		f, err := strconv.ParseFloat(strings.TrimSpace(toString(value)), 64)
		if err != nil {
			return false, failMessage(rule, "is not a number")
		}
		if f < rule.Min || f > rule.Max {
			return false, failMessage(rule, fmt.Sprintf("must be between %v and %v", rule.Min, rule.Max))
		}
	case models.ValidationEnum:
		s := toString(value)
		for _, allowed := range rule.Values {
			if s == allowed {
				return true, ""
			}
		}
		return false, failMessage(rule, fmt.Sprintf("must be one of %s", strings.Join(rule.Values, ", ")))
	case models.ValidationCustom:
		return true, ""
	}
	return true, ""
}

func failMessage(rule models.ValidationRule, fallback string) string {
	if rule.Message != "" {
		return rule.Message
	}
	return fallback
}

func compiledPattern(pattern string) (*regexp.Regexp, error) {
	if cached, ok := patternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patternCache.Store(pattern, re)
	return re, nil
}
