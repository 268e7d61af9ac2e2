package connectors

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"go-psa/internal/models"
)

// typeSampleLimit bounds how many values per field the inference looks at.
const typeSampleLimit = 100

var dateLayouts = []string{"2006-01-02", "02/01/2006", "01/02/2006", "2006/01/02"}

var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006 15:04:05",
}

// inferTable derives a SourceTable for an untyped source (CSV, JSON, API)
// from its materialized rows. When headers is non-nil it fixes the field
// order; otherwise field names are collected from the rows and sorted for
// a stable result.
func inferTable(name string, headers []string, rows []map[string]interface{}) models.SourceTable {
	if headers == nil {
		seen := map[string]bool{}
		for _, row := range rows {
			for k := range row {
				if !seen[k] {
					seen[k] = true
					headers = append(headers, k)
				}
			}
		}
		sort.Strings(headers)
	}

	fields := make([]models.SourceField, 0, len(headers))
	for _, h := range headers {
		fields = append(fields, inferField(h, rows))
	}

	return models.SourceTable{
		Name:        name,
		Fields:      fields,
		RecordCount: int64(len(rows)),
	}
}

// inferField classifies a field by majority vote over up to 100 sampled
// values, ignoring nulls and empties. Ties go to the type counted first,
// which is stable but arbitrary.
func inferField(name string, rows []map[string]interface{}) models.SourceField {
	var order []models.FieldType
	tally := map[models.FieldType]int{}
	nullable := false
	maxLength := 0
	sampled := 0

	for _, row := range rows {
		if sampled >= typeSampleLimit {
			break
		}
		v, ok := row[name]
		if !ok || v == nil || v == "" {
			nullable = true
			continue
		}
		sampled++

		if s, ok := v.(string); ok && len(s) > maxLength {
			maxLength = len(s)
		}

		t := classifyValue(v)
		if _, seen := tally[t]; !seen {
			order = append(order, t)
		}
		tally[t]++
	}

	best := models.FieldTypeString
	bestCount := -1
	for _, t := range order {
		if tally[t] > bestCount {
			best = t
			bestCount = tally[t]
		}
	}

	return models.SourceField{
		Name:      name,
		Type:      best,
		Nullable:  nullable,
		MaxLength: maxLength,
	}
}

func classifyValue(v interface{}) models.FieldType {
	switch val := v.(type) {
	case bool:
		return models.FieldTypeBoolean
	case float64, float32, int, int32, int64:
		return models.FieldTypeNumber
	case time.Time:
		return models.FieldTypeDateTime
	case map[string]interface{}, []interface{}:
		return models.FieldTypeJSON
	case string:
		return classifyString(val)
	}
	return models.FieldTypeString
}

func classifyString(s string) models.FieldType {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return models.FieldTypeString
	}

	switch strings.ToLower(trimmed) {
	case "true", "false":
		return models.FieldTypeBoolean
	}

	if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return models.FieldTypeNumber
	}

	for _, layout := range datetimeLayouts {
		if _, err := time.Parse(layout, trimmed); err == nil {
			return models.FieldTypeDateTime
		}
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, trimmed); err == nil {
			return models.FieldTypeDate
		}
	}

	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if json.Valid([]byte(trimmed)) {
			return models.FieldTypeJSON
		}
	}

	return models.FieldTypeString
}
