package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// WorkItem holds the schema definition for the WorkItem entity (C3).
// An append-only queue entry keyed by sourceUrn.
type WorkItem struct {
	ent.Schema
}

// Fields of the WorkItem.
func (WorkItem) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("task_id").
			Unique().
			Immutable(),
		field.String("source_urn").
			Unique().
			Immutable().
			Comment("Globally unique within a source; enqueue() is idempotent on this"),
		field.String("client_id"),
		field.String("project_id").
			Optional().
			Nillable(),
		field.String("kind").
			Comment("e.g. 'git-commit', 'jira-issue', 'confluence-page', 'mail-message'"),
		field.Enum("state").
			Values("NEW", "IN_PROGRESS", "INDEXED", "FAILED").
			Default("NEW"),
		field.Int("attempts").
			Default(0),
		field.Int("priority").
			Default(0),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("last_attempt_at").
			Optional().
			Nillable(),
		field.String("worker_id").
			Optional().
			Nillable(),
		field.String("error").
			Optional().
			Nillable(),
		field.JSON("payload", map[string]interface{}{}).
			Optional().
			Comment("Normalized item body handed off by C2/C5"),
		field.Time("source_updated_at").
			Optional().
			Nillable().
			Comment("Upstream content's last-modified time as of the fetch that produced this row; compared against a re-enqueue's fetched time to decide whether to refresh a stale row"),
	}
}

// Indexes of the WorkItem.
func (WorkItem) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("state"),
		index.Fields("state", "priority", "created_at"),
		// supports the lease-timeout re-eligibility scan
		index.Fields("state", "last_attempt_at"),
		index.Fields("client_id"),
	}
}
