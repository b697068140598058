package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// IndexingStatus holds the schema definition for the IndexingStatus entity (C7).
// Per-file record of what is currently in the vector store for that file;
// exactly one record exists per (project_id, file_path).
type IndexingStatus struct {
	ent.Schema
}

// Fields of the IndexingStatus.
func (IndexingStatus) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("indexing_status_id").
			Unique().
			Immutable(),
		field.String("project_id").
			Immutable(),
		field.String("file_path").
			Immutable().
			Comment("Logical key; includes symbol path for code symbols"),
		field.String("git_commit_hash").
			Optional().
			Nillable(),
		field.JSON("vector_ids", []string{}).
			Optional(),
		field.JSON("contents", []map[string]interface{}{}).
			Optional().
			Comment("Per-vector entries: {vectorId, contentHash, len, description}"),
		field.Enum("state").
			Values("PENDING", "INDEXING", "INDEXED", "FAILED").
			Default("PENDING"),
		field.String("error").
			Optional().
			Nillable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Indexes of the IndexingStatus.
func (IndexingStatus) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("project_id", "file_path").
			Unique(),
		index.Fields("project_id", "state"),
	}
}
