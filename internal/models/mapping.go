package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TransformKind string

const (
	TransformStatic      TransformKind = "static"
	TransformFunction    TransformKind = "function"
	TransformLookup      TransformKind = "lookup"
	TransformConcatenate TransformKind = "concatenate"
	TransformSplit       TransformKind = "split"
	TransformFormat      TransformKind = "format"
)

// TransformRule configures one transform. Which fields are meaningful
// depends on Kind:
//
//	static      Value is the constant to emit
//	function    Value names a primitive (lowercase, uppercase, trim,
//	            parseInt, parseFloat, formatDate, formatCurrency, slugify)
//	lookup      Lookup maps input to output, LookupDefault on miss
//	concatenate Fields lists source fields, Separator joins them
//	split       Delimiter splits the input, Index picks the segment
//	format      Value is a token template ({value}, {field}, date tokens)
type TransformRule struct {
	Kind          TransformKind     `json:"kind" bson:"kind"`
	Value         string            `json:"value,omitempty" bson:"value,omitempty"`
	Lookup        map[string]string `json:"lookup,omitempty" bson:"lookup,omitempty"`
	LookupDefault string            `json:"lookup_default,omitempty" bson:"lookup_default,omitempty"`
	Fields        []string          `json:"fields,omitempty" bson:"fields,omitempty"`
	Separator     string            `json:"separator,omitempty" bson:"separator,omitempty"`
	Delimiter     string            `json:"delimiter,omitempty" bson:"delimiter,omitempty"`
	Index         int               `json:"index,omitempty" bson:"index,omitempty"`
}

type ValidationKind string

const (
	ValidationRequired  ValidationKind = "required"
	ValidationMinLength ValidationKind = "minLength"
	ValidationMaxLength ValidationKind = "maxLength"
	ValidationPattern   ValidationKind = "pattern"
	ValidationRange     ValidationKind = "range"
	ValidationEnum      ValidationKind = "enum"
	ValidationCustom    ValidationKind = "custom" // reserved, always passes
)

type ValidationRule struct {
	Kind      ValidationKind `json:"kind" bson:"kind"`
	MinLength int            `json:"min_length,omitempty" bson:"min_length,omitempty"`
	MaxLength int            `json:"max_length,omitempty" bson:"max_length,omitempty"`
	Pattern   string         `json:"pattern,omitempty" bson:"pattern,omitempty"`
	Min       float64        `json:"min,omitempty" bson:"min,omitempty"`
	Max       float64        `json:"max,omitempty" bson:"max,omitempty"`
	Values    []string       `json:"values,omitempty" bson:"values,omitempty"`
	Message   string         `json:"message,omitempty" bson:"message,omitempty"`
}

// FieldMapping maps one source field to one target field. DefaultValue is
// substituted when the source value is empty, before the transform runs.
type FieldMapping struct {
	SourceField  string           `json:"source_field" bson:"source_field"`
	TargetField  string           `json:"target_field" bson:"target_field"`
	Transform    *TransformRule   `json:"transform,omitempty" bson:"transform,omitempty"`
	Validations  []ValidationRule `json:"validations,omitempty" bson:"validations,omitempty"`
	Required     bool             `json:"required" bson:"required"`
	DefaultValue string           `json:"default_value,omitempty" bson:"default_value,omitempty"`
}

// MappingSet is the configured import for one target entity: where the
// rows come from (single table or virtual joined table) and how each
// source field maps to the entity's fields. Immutable during a run.
type MappingSet struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name         string             `json:"name" bson:"name"`
	ConnectionID primitive.ObjectID `json:"connection_id" bson:"connection_id"`
	TargetEntity string             `json:"target_entity" bson:"target_entity"`
	SourceTable  string             `json:"source_table,omitempty" bson:"source_table,omitempty"`
	JoinedTable  *JoinedTableConfig `json:"joined_table,omitempty" bson:"joined_table,omitempty"`
	Where        []WhereCondition   `json:"where,omitempty" bson:"where,omitempty"`
	Mappings     []FieldMapping     `json:"mappings" bson:"mappings"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at"`
}
