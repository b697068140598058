package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Plan holds the schema definition for the Plan entity (C10).
type Plan struct {
	ent.Schema
}

// Fields of the Plan.
func (Plan) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("plan_id").
			Unique().
			Immutable(),
		field.String("context_id").
			Immutable().
			Comment("TaskContext this plan belongs to"),
		field.Enum("status").
			Values("PENDING", "RUNNING", "COMPLETED", "FAILED", "FINALIZED").
			Default("PENDING"),
		field.Text("original_question"),
		field.Text("english_question"),
		field.String("original_language"),
		field.Text("context_summary").
			Optional().
			Nillable(),
		field.Text("final_answer").
			Optional().
			Nillable().
			Comment("Only set once the plan reaches a terminal status"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
		field.Time("deleted_at").
			Optional().
			Nillable().
			Comment("Soft-delete marker set by retention cleanup; terminal plans only"),
	}
}

// Edges of the Plan.
func (Plan) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("steps", PlanStep.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the Plan.
func (Plan) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("context_id"),
		index.Fields("status"),
	}
}
