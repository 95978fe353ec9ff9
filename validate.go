package zipdemographics

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Rule describes the constraints applied to a single parameter before a
// request is dispatched. Unset pointer fields mean the check is skipped.
type Rule struct {
	// Type is one of "string", "integer", "number", "boolean" or "array".
	Type string

	// Required rejects absent values (missing key, nil, or empty string).
	Required bool

	// Min and Max bound numeric values inclusively.
	Min *float64
	Max *float64

	// MinLength and MaxLength bound string lengths inclusively.
	MinLength *int
	MaxLength *int

	// Format names a registered pattern: "email", "url", "ip", "date" or
	// "hexColor".
	Format string

	// Enum restricts the value's string form to a closed set.
	Enum []string
}

// RuleSet maps parameter names to their rules. It is fixed at client
// construction and never mutated afterwards.
type RuleSet map[string]Rule

// ParameterBag holds the caller-supplied parameters for one call.
type ParameterBag map[string]any

var formatPatterns = map[string]*regexp.Regexp{
	"email":    regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`),
	"url":      regexp.MustCompile(`^https?://.+`),
	"ip":       regexp.MustCompile(`^(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)$|^([0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}$`),
	"date":     regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
	"hexColor": regexp.MustCompile(`^#?([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`),
}

// Validate checks bag against rules and returns every violation found, not
// just the first. An empty slice means the bag is valid. The bag is never
// mutated and no I/O is performed.
//
// Rules are walked in sorted name order so the returned list is
// deterministic; the violation set itself does not depend on iteration
// order.
func Validate(bag ParameterBag, rules RuleSet) []string {
	if len(rules) == 0 {
		return nil
	}

	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)

	var violations []string
	for _, name := range names {
		rule := rules[name]
		value, ok := bag[name]

		if absent(value) || !ok {
			if rule.Required {
				violations = append(violations, fmt.Sprintf("Required parameter [%s] is missing", name))
			}
			continue
		}

		switch rule.Type {
		case "integer", "number":
			num, err := coerceNumber(value)
			if err != nil || math.IsInf(num, 0) || math.IsNaN(num) {
				violations = append(violations, fmt.Sprintf("Parameter [%s] must be a valid %s", name, rule.Type))
				break
			}
			if rule.Type == "integer" && num != math.Trunc(num) {
				violations = append(violations, fmt.Sprintf("Parameter [%s] must be a valid integer", name))
				break
			}
			if rule.Min != nil && num < *rule.Min {
				violations = append(violations, fmt.Sprintf("Parameter [%s] must be at least %s", name, formatNumber(*rule.Min)))
			}
			if rule.Max != nil && num > *rule.Max {
				violations = append(violations, fmt.Sprintf("Parameter [%s] must be at most %s", name, formatNumber(*rule.Max)))
			}

		case "string":
			str, ok := value.(string)
			if !ok {
				violations = append(violations, fmt.Sprintf("Parameter [%s] must be a valid string", name))
				break
			}
			if rule.MinLength != nil && len(str) < *rule.MinLength {
				violations = append(violations, fmt.Sprintf("Parameter [%s] must be at least %d characters", name, *rule.MinLength))
			}
			if rule.MaxLength != nil && len(str) > *rule.MaxLength {
				violations = append(violations, fmt.Sprintf("Parameter [%s] must be at most %d characters", name, *rule.MaxLength))
			}
			if rule.Format != "" {
				pattern, known := formatPatterns[rule.Format]
				if known && !pattern.MatchString(str) {
					violations = append(violations, fmt.Sprintf("Parameter [%s] must be a valid %s", name, rule.Format))
				}
			}

		case "boolean":
			if !isBoolean(value) {
				violations = append(violations, fmt.Sprintf("Parameter [%s] must be a valid boolean", name))
			}

		case "array":
			if !isSequence(value) {
				violations = append(violations, fmt.Sprintf("Parameter [%s] must be a valid array", name))
			}
		}

		// Enum membership is checked on the string form regardless of type.
		if len(rule.Enum) > 0 && !containsString(rule.Enum, fmt.Sprint(value)) {
			violations = append(violations, fmt.Sprintf("Parameter [%s] must be one of: %s", name, strings.Join(rule.Enum, ", ")))
		}
	}

	return violations
}

// absent reports whether a value counts as not supplied.
func absent(value any) bool {
	if value == nil {
		return true
	}
	if str, ok := value.(string); ok && str == "" {
		return true
	}
	return false
}

func coerceNumber(value any) (float64, error) {
	switch v := value.(type) {
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("not a number: %T", value)
	}
}

func isBoolean(value any) bool {
	switch v := value.(type) {
	case bool:
		return true
	case string:
		return v == "true" || v == "false"
	default:
		return false
	}
}

func isSequence(value any) bool {
	kind := reflect.ValueOf(value).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
