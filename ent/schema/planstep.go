package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// PlanStep holds the schema definition for the PlanStep entity (C10).
// Steps of a Plan execute strictly in order.
type PlanStep struct {
	ent.Schema
}

// Fields of the PlanStep.
func (PlanStep) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("plan_step_id").
			Unique().
			Immutable(),
		field.String("plan_id").
			Immutable(),
		field.Int("order").
			Immutable(),
		field.String("tool_name"),
		field.Text("instruction"),
		field.Enum("status").
			Values("PENDING", "DONE", "FAILED").
			Default("PENDING"),
		field.JSON("tool_result", map[string]interface{}{}).
			Optional(),
	}
}

// Edges of the PlanStep.
func (PlanStep) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("plan", Plan.Type).
			Ref("steps").
			Field("plan_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the PlanStep.
func (PlanStep) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("plan_id", "order").
			Unique(),
	}
}
