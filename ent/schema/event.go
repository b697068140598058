package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Event holds the schema definition for the Event entity.
// Durable log backing WebSocket catchup: every persistent event published
// through pkg/events is inserted here in the same transaction as its
// pg_notify, so a client that reconnects after missing NOTIFYs can replay
// everything since its last seen id.
type Event struct {
	ent.Schema
}

// Fields of the Event.
func (Event) Fields() []ent.Field {
	return []ent.Field{
		field.String("subject_id").
			Immutable().
			Comment("Owning entity ID the event is about (plan_id, project_id, connection_id, ...)"),
		field.String("channel").
			Immutable().
			Comment("pg_notify channel this event was broadcast on"),
		field.JSON("payload", map[string]interface{}{}),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the Event.
func (Event) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("channel", "id"),
		index.Fields("subject_id"),
	}
}
