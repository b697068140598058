package config

import "time"

// PlanExecutorConfig holds C10 plan executor and C12 dialog coordinator
// settings. Tool resolution reuses MCPServerRegistry — plan-executor tools
// (RAG_SEARCH, TRAVERSE, PURGE, FINALIZER) are configured as MCP servers.
type PlanExecutorConfig struct {
	// FinalizationLLMProvider names the LLM provider used to render the
	// user-facing answer during the finalization pass.
	FinalizationLLMProvider string `yaml:"finalization_llm_provider"`

	// MaxStepsPerPlan bounds runaway plans; exceeding it fails the plan.
	MaxStepsPerPlan int `yaml:"max_steps_per_plan" validate:"omitempty,min=1"`

	// DialogTimeout is how long the user-dialog coordinator (C12) waits
	// before resolving an unanswered dialog as "closed by user".
	DialogTimeout time.Duration `yaml:"dialog_timeout"`
}

// DefaultPlanExecutorConfig returns the built-in plan executor defaults.
func DefaultPlanExecutorConfig() *PlanExecutorConfig {
	return &PlanExecutorConfig{
		MaxStepsPerPlan: 50,
		DialogTimeout:   15 * time.Minute,
	}
}
