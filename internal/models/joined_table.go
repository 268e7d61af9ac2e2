package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type JoinType string

const (
	JoinInner JoinType = "inner"
	JoinLeft  JoinType = "left"
	JoinRight JoinType = "right"
	JoinFull  JoinType = "full"
)

// JoinCondition links one field of a joined table to one field of the
// primary table. SourceField belongs to the primary table, TargetField to
// the joined table.
type JoinCondition struct {
	SourceField string `json:"source_field" bson:"source_field"`
	TargetField string `json:"target_field" bson:"target_field"`
	Operator    string `json:"operator" bson:"operator"`
}

// JoinedTable is one spoke of the join star.
type JoinedTable struct {
	Table      string          `json:"table" bson:"table"`
	Type       JoinType        `json:"type" bson:"type"`
	Conditions []JoinCondition `json:"conditions" bson:"conditions"`
	Alias      string          `json:"alias,omitempty" bson:"alias,omitempty"`
}

// Name returns the alias if set, otherwise the table name.
func (j *JoinedTable) Name() string {
	if j.Alias != "" {
		return j.Alias
	}
	return j.Table
}

// WhereCondition filters rows of the assembled result.
type WhereCondition struct {
	Field    string      `json:"field" bson:"field"`
	Operator string      `json:"operator" bson:"operator"`
	Value    interface{} `json:"value" bson:"value"`
}

// JoinedTableConfig defines a virtual table: one primary table with N
// joined tables, each attached directly to the primary (a star, not a
// chain — joined-to-joined conditions are not modeled). Field references
// are not checked statically; violations surface as errors at preview or
// execution time.
type JoinedTableConfig struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name           string             `json:"name" bson:"name"`
	PrimaryTable   string             `json:"primary_table" bson:"primary_table"`
	Joins          []JoinedTable      `json:"joins" bson:"joins"`
	SelectedFields []string           `json:"selected_fields,omitempty" bson:"selected_fields,omitempty"`
	Where          []WhereCondition   `json:"where,omitempty" bson:"where,omitempty"`
}
