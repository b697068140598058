package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// GitCommitRecord holds the schema definition for the GitCommitRecord entity.
// Branches never mix: a commit hash is unique per (project, branch).
type GitCommitRecord struct {
	ent.Schema
}

// Fields of the GitCommitRecord.
func (GitCommitRecord) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("commit_record_id").
			Unique().
			Immutable(),
		field.String("client_id").
			Immutable(),
		field.String("project_id").
			Immutable(),
		field.String("branch").
			Immutable(),
		field.String("hash").
			Immutable().
			Comment("Full commit SHA"),
		field.String("author"),
		field.Text("message"),
		field.Time("commit_date"),
		field.Enum("state").
			Values("NEW", "INDEXED", "FAILED").
			Default("NEW"),
		field.Int("attempts").
			Default(0),
	}
}

// Indexes of the GitCommitRecord.
func (GitCommitRecord) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("project_id", "branch", "hash").
			Unique(),
		index.Fields("project_id", "branch", "state"),
	}
}
