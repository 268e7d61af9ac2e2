package importer

import (
	"fmt"
	"time"

	"go-psa/internal/models"
)

// Processor applies a mapping set to source rows. ProcessRecord is a pure
// function of its inputs; the only ambient input, the clock, is injected
// so tests can pin it.
type Processor struct {
	Now func() time.Time
}

func NewProcessor() *Processor {
	return &Processor{Now: time.Now}
}

// ProcessRecord maps one source row. All mappings are evaluated even
// after errors: the union of errors decides whether the row is accepted,
// and the transformed map is always fully populated so failures can be
// inspected field by field.
func (p *Processor) ProcessRecord(raw map[string]interface{}, mappings []models.FieldMapping, index int) *models.ProcessedRecord {
	rec := &models.ProcessedRecord{
		Index:       index,
		Original:    raw,
		Transformed: make(map[string]interface{}, len(mappings)),
	}

	// A row whose every source field is empty carries no data; skip it
	// rather than failing it. A row with data anywhere in the record
	// still runs the mappings, so a required field left empty fails the
	// record instead of hiding behind a skip.
	empty := true
	for _, v := range raw {
		if !isEmpty(v) {
			empty = false
			break
		}
	}
	if empty {
		rec.Skip = true
		rec.Warnings = append(rec.Warnings, models.ImportWarning{
			RecordIndex: &rec.Index,
			Message:     "row skipped: every source field is empty",
		})
		return rec
	}

	for _, m := range mappings {
		p.processMapping(rec, raw, m)
	}

	return rec
}

func (p *Processor) processMapping(rec *models.ProcessedRecord, raw map[string]interface{}, m models.FieldMapping) {
	value := raw[m.SourceField]
	if isEmpty(value) && m.DefaultValue != "" {
		value = m.DefaultValue
	}

	if m.Transform != nil {
		transformed, err := applyTransform(value, raw, m.Transform, p.Now)
		if err != nil {
			rec.Errors = append(rec.Errors, models.ImportError{
				RecordIndex: &rec.Index,
				Field:       m.TargetField,
				Message:     fmt.Sprintf("transform failed: %v", err),
			})
			// Keep the untransformed value so the output map stays
			// fully populated.
		} else {
			value = transformed
		}
	}

	for _, rule := range m.Validations {
		ok, msg := applyValidation(value, rule)
		if ok {
			continue
		}
		if m.Required || rule.Kind == models.ValidationRequired {
			rec.Errors = append(rec.Errors, models.ImportError{
				RecordIndex: &rec.Index,
				Field:       m.TargetField,
				Message:     msg,
			})
		} else {
			rec.Warnings = append(rec.Warnings, models.ImportWarning{
				RecordIndex: &rec.Index,
				Field:       m.TargetField,
				Message:     msg,
			})
		}
		break
	}

	// Independent required check, beyond any configured required rule: a
	// required target field must never end up empty after transform.
	if m.Required && isEmpty(value) {
		rec.Errors = append(rec.Errors, models.ImportError{
			RecordIndex: &rec.Index,
			Field:       m.TargetField,
			Message:     fmt.Sprintf("required field %q is empty", m.TargetField),
		})
	}

	rec.Transformed[m.TargetField] = value
}
