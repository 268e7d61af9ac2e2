package models

type FieldType string

const (
	FieldTypeString   FieldType = "string"
	FieldTypeNumber   FieldType = "number"
	FieldTypeBoolean  FieldType = "boolean"
	FieldTypeDate     FieldType = "date"
	FieldTypeDateTime FieldType = "datetime"
	FieldTypeJSON     FieldType = "json"
	FieldTypeBinary   FieldType = "binary"
)

// SourceField describes one column/attribute of a source table.
type SourceField struct {
	Name         string    `json:"name" bson:"name"`
	Type         FieldType `json:"type" bson:"type"`
	Nullable     bool      `json:"nullable" bson:"nullable"`
	MaxLength    int       `json:"max_length,omitempty" bson:"max_length,omitempty"`
	IsPrimaryKey bool      `json:"is_primary_key" bson:"is_primary_key"`
	IsForeignKey bool      `json:"is_foreign_key" bson:"is_foreign_key"`
}

// SourceTable is one table (or file/endpoint treated as a table) of a source.
type SourceTable struct {
	Name        string        `json:"name" bson:"name"`
	Fields      []SourceField `json:"fields" bson:"fields"`
	RecordCount int64         `json:"record_count" bson:"record_count"`
}

// FindField returns the field with the given name, or nil.
func (t *SourceTable) FindField(name string) *SourceField {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i]
		}
	}
	return nil
}

// SourceSchema is the derived, read-only description of a source. It is
// recomputed on every connection test and never cached across executions:
// the source structure may change between runs.
type SourceSchema struct {
	Tables []SourceTable `json:"tables" bson:"tables"`
}

// FindTable returns the table with the given name, or nil.
func (s *SourceSchema) FindTable(name string) *SourceTable {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}
