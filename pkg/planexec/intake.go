package planexec

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jandamek/jervis/pkg/llmgateway"
)

const planDecompositionPromptType = "plan-decomposition"

// plannedStep is one step the decomposition LLM call proposes.
type plannedStep struct {
	Tool        string `json:"tool"`
	Instruction string `json:"instruction"`
}

type planDecomposition struct {
	EnglishQuestion string        `json:"englishQuestion"`
	Steps           []plannedStep `json:"steps"`
}

// planStepsSchema bounds a decomposition response to a non-empty ordered
// step list plus the question translated to English for downstream prompts.
var planStepsSchema = []byte(`{
	"type": "object",
	"required": ["englishQuestion", "steps"],
	"properties": {
		"englishQuestion": {"type": "string"},
		"steps": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["tool", "instruction"],
				"properties": {
					"tool": {"type": "string"},
					"instruction": {"type": "string"}
				}
			}
		}
	}
}`)

// CreatePlan decomposes question into an ordered tool-call plan and persists
// it (and its steps) as PENDING, ready for RunContext. contextID groups
// related plans (e.g. a multi-turn chat session); callers that have no
// existing context should mint a fresh uuid.
func (e *Executor) CreatePlan(ctx context.Context, gateway *llmgateway.Gateway, contextID, originalQuestion, originalLanguage string) (string, error) {
	resp, err := llmgateway.CallLLM[planDecomposition](ctx, gateway, planDecompositionPromptType, planStepsSchema, false,
		map[string]any{"question": originalQuestion}, originalLanguage, false)
	if err != nil {
		return "", fmt.Errorf("planexec: decompose question: %w", err)
	}

	planID := uuid.NewString()
	_, err = e.client.Plan.Create().
		SetID(planID).
		SetContextID(contextID).
		SetOriginalQuestion(originalQuestion).
		SetEnglishQuestion(resp.Value.EnglishQuestion).
		SetOriginalLanguage(originalLanguage).
		Save(ctx)
	if err != nil {
		return "", fmt.Errorf("planexec: persist plan: %w", err)
	}

	for i, step := range resp.Value.Steps {
		if _, err := e.client.PlanStep.Create().
			SetID(uuid.NewString()).
			SetPlanID(planID).
			SetOrder(i).
			SetToolName(step.Tool).
			SetInstruction(step.Instruction).
			Save(ctx); err != nil {
			return "", fmt.Errorf("planexec: persist step %d for plan %s: %w", i, planID, err)
		}
	}

	return planID, nil
}
