package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// PollingState holds the schema definition for the PollingState entity.
// Tracks the incremental cursor for one (connection, tool) pair.
type PollingState struct {
	ent.Schema
}

// Fields of the PollingState.
func (PollingState) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("polling_state_id").
			Unique().
			Immutable(),
		field.String("connection_id").
			Immutable(),
		field.String("tool").
			Immutable().
			Comment("e.g. 'jira', 'confluence', 'git-main'"),
		field.Time("last_seen_updated_at").
			Optional().
			Nillable().
			Comment("High-water mark of the source's own updatedAt field"),
		field.Time("last_polled_at").
			Optional().
			Nillable().
			Comment("Updated only after a successful poll"),
	}
}

// Edges of the PollingState.
func (PollingState) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("connection", Connection.Type).
			Ref("polling_states").
			Field("connection_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the PollingState.
func (PollingState) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("connection_id", "tool").
			Unique(),
	}
}
