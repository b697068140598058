package database

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql"
)

// CreateGINIndexes creates full-text search GIN indexes for PostgreSQL.
// These indexes enable efficient full-text search over past plan questions
// and answers, used by the dialog history lookup (C12).
func CreateGINIndexes(ctx context.Context, driver *sql.Driver) error {
	db := driver.DB()

	// GIN index for original_question full-text search
	_, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_plans_original_question_gin
		ON plans USING gin(to_tsvector('english', original_question))`)
	if err != nil {
		return fmt.Errorf("failed to create original_question GIN index: %w", err)
	}

	// GIN index for final_answer full-text search
	_, err = db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_plans_final_answer_gin
		ON plans USING gin(to_tsvector('english', COALESCE(final_answer, '')))`)
	if err != nil {
		return fmt.Errorf("failed to create final_answer GIN index: %w", err)
	}

	return nil
}
