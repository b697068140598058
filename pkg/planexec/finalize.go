package planexec

import (
	"context"
	"fmt"
	"strings"

	"github.com/jandamek/jervis/ent"
	"github.com/jandamek/jervis/ent/plan"
	"github.com/jandamek/jervis/ent/planstep"
	"github.com/jandamek/jervis/pkg/llmgateway"
)

const planFinalizationPromptType = "plan-finalization"

// finalAnswerSchema is the JSON schema plan-finalization responses must
// satisfy: a single "answer" field holding the user-facing text.
var finalAnswerSchema = []byte(`{
	"type": "object",
	"required": ["answer"],
	"properties": {
		"answer": {"type": "string"}
	}
}`)

type finalAnswer struct {
	Answer string `json:"answer"`
}

// Finalize resolves a user-facing answer for every plan in COMPLETED or
// FAILED status and stamps it FINALIZED. It is a separate pass from
// RunContext: a plan can sit COMPLETED/FAILED for a while (e.g. waiting for
// its context's other plans to finish) before its answer is worth paying
// for an LLM call to render.
func (e *Executor) Finalize(ctx context.Context, gateway *llmgateway.Gateway) error {
	plans, err := e.client.Plan.Query().
		Where(plan.StatusIn(plan.StatusCOMPLETED, plan.StatusFAILED)).
		All(ctx)
	if err != nil {
		return fmt.Errorf("planexec: query finalizable plans: %w", err)
	}

	for _, p := range plans {
		if err := e.finalizePlan(ctx, gateway, p); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) finalizePlan(ctx context.Context, gateway *llmgateway.Gateway, p *ent.Plan) error {
	// A FAILED plan already has a final answer set by failPlan; finalizing
	// just promotes its status without another LLM round-trip.
	if p.Status == plan.StatusFAILED && p.FinalAnswer != nil {
		_, err := e.client.Plan.UpdateOneID(p.ID).SetStatus(plan.StatusFINALIZED).Save(ctx)
		if err != nil {
			return fmt.Errorf("planexec: finalize failed plan %s: %w", p.ID, err)
		}
		e.notify(ctx, fmt.Sprintf(":x: Plan `%s` finalized as FAILED: %s", p.ID, *p.FinalAnswer))
		return e.publishPlanStatus(ctx, p.ID, plan.StatusFINALIZED)
	}

	steps, err := p.QuerySteps().Order(ent.Asc(planstep.FieldOrder)).All(ctx)
	if err != nil {
		return fmt.Errorf("planexec: query steps for plan %s: %w", p.ID, err)
	}

	summaries := make([]string, 0, len(steps))
	for _, step := range steps {
		summaries = append(summaries, summarizeStep(step))
	}

	resp, err := llmgateway.CallLLM[finalAnswer](ctx, gateway, planFinalizationPromptType, finalAnswerSchema, false,
		map[string]any{
			"question":      p.EnglishQuestion,
			"status":        string(p.Status),
			"stepSummaries": strings.Join(summaries, "\n"),
		},
		p.OriginalLanguage, false)
	if err != nil {
		return fmt.Errorf("planexec: finalize plan %s: %w", p.ID, err)
	}

	if _, err := e.client.Plan.UpdateOneID(p.ID).
		SetStatus(plan.StatusFINALIZED).
		SetFinalAnswer(resp.Value.Answer).
		Save(ctx); err != nil {
		return fmt.Errorf("planexec: persist finalized plan %s: %w", p.ID, err)
	}
	e.notify(ctx, fmt.Sprintf(":white_check_mark: Plan `%s` finalized: %s", p.ID, resp.Value.Answer))
	return e.publishPlanStatus(ctx, p.ID, plan.StatusFINALIZED)
}

// GetPlan returns a single plan by id, for callers (e.g. the chat
// completions handler) that need to read back its status or final answer
// after driving it through RunContext/Finalize.
func (e *Executor) GetPlan(ctx context.Context, planID string) (*ent.Plan, error) {
	return e.client.Plan.Get(ctx, planID)
}
