package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Connection holds the schema definition for the Connection entity (C1).
// Persists a source endpoint, its auth material, and validity state.
type Connection struct {
	ent.Schema
}

// Fields of the Connection.
func (Connection) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("connection_id").
			Unique().
			Immutable(),
		field.String("kind").
			Comment("e.g. 'git', 'jira', 'confluence', 'mail'"),
		field.String("base_url"),
		field.Enum("auth_type").
			Values("BASIC", "BEARER", "OAUTH2"),
		field.String("credentials").
			Sensitive().
			Comment("Opaque, encrypted-at-rest secret material; shape depends on auth_type"),
		field.Enum("state").
			Values("VALID", "INVALID").
			Default("VALID").
			Comment("Set to INVALID by C2 on any observed auth failure"),
		field.String("client_id"),
		field.String("project_id").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("invalidated_at").
			Optional().
			Nillable(),
	}
}

// Edges of the Connection.
func (Connection) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("polling_states", PollingState.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the Connection.
func (Connection) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("state"),
		index.Fields("kind"),
		index.Fields("client_id"),
	}
}
