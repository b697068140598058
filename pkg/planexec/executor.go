// Package planexec is C10, the plan executor: it walks the pending plans of
// a task context, runs each plan's steps strictly in order against the MCP
// tool registry, and persists the outcome after every step. A separate
// Finalize pass turns terminal plans into a user-facing answer via the LLM
// gateway.
package planexec

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jandamek/jervis/ent"
	"github.com/jandamek/jervis/ent/plan"
	"github.com/jandamek/jervis/ent/planstep"
	"github.com/jandamek/jervis/pkg/events"
	"github.com/jandamek/jervis/pkg/mcp"
)

// Publisher is the subset of *events.EventPublisher the executor needs to
// broadcast plan lifecycle and step-completion events.
type Publisher interface {
	PublishPlanStatus(ctx context.Context, payload events.PlanStatusPayload) error
	PublishPlanStep(ctx context.Context, payload events.PlanStepPayload) error
}

// Notifier is the subset of *slack.Service the executor needs to announce
// plan finalization outcomes. Nil-safe implementations (like slack.Service
// itself) are expected; a nil Notifier on the Executor disables the
// notification entirely.
type Notifier interface {
	NotifyText(ctx context.Context, text string) error
}

// defaultMaxStepsPerPlan matches config.DefaultPlanExecutorConfig: a plan
// with more steps than this is treated as runaway, not executed.
const defaultMaxStepsPerPlan = 50

// Executor is C10.
type Executor struct {
	client    *ent.Client
	tools     mcp.ToolExecutorInterface
	publisher Publisher
	notifier  Notifier
	maxSteps  int
}

// New creates a plan executor. maxStepsPerPlan bounds runaway plans (see
// config.PlanExecutorConfig.MaxStepsPerPlan); 0 uses the built-in default.
func New(client *ent.Client, tools mcp.ToolExecutorInterface, publisher Publisher, maxStepsPerPlan int) *Executor {
	if maxStepsPerPlan <= 0 {
		maxStepsPerPlan = defaultMaxStepsPerPlan
	}
	return &Executor{client: client, tools: tools, publisher: publisher, maxSteps: maxStepsPerPlan}
}

// SetNotifier wires a Slack (or other) notifier for plan-finalization
// announcements. Optional: a nil notifier (the default) disables them.
func (e *Executor) SetNotifier(notifier Notifier) {
	e.notifier = notifier
}

// notify sends a best-effort notification; failures are logged by the
// Notifier implementation itself (slack.Service is fail-open) and never
// propagated, since a finalized plan's outcome must persist regardless of
// whether anyone heard about it.
func (e *Executor) notify(ctx context.Context, text string) {
	if e.notifier == nil {
		return
	}
	_ = e.notifier.NotifyText(ctx, text)
}

// RunContext processes every plan belonging to contextID that is not yet in
// a terminal status. Plans are processed sequentially; within a plan, steps
// run strictly in order.
func (e *Executor) RunContext(ctx context.Context, contextID string) error {
	plans, err := e.client.Plan.Query().
		Where(
			plan.ContextIDEQ(contextID),
			plan.StatusNotIn(plan.StatusCOMPLETED, plan.StatusFAILED, plan.StatusFINALIZED),
		).
		All(ctx)
	if err != nil {
		return fmt.Errorf("planexec: query pending plans for %s: %w", contextID, err)
	}

	for _, p := range plans {
		if err := e.runPlan(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) runPlan(ctx context.Context, p *ent.Plan) error {
	if p.Status == plan.StatusPENDING {
		if err := e.transitionPlan(ctx, p, plan.StatusRUNNING); err != nil {
			return err
		}
	}

	steps, err := p.QuerySteps().Order(ent.Asc(planstep.FieldOrder)).All(ctx)
	if err != nil {
		return fmt.Errorf("planexec: query steps for plan %s: %w", p.ID, err)
	}
	if len(steps) > e.maxSteps {
		_, err := e.client.Plan.UpdateOneID(p.ID).
			SetStatus(plan.StatusFAILED).
			SetFinalAnswer(fmt.Sprintf("Plan exceeds the maximum of %d steps (has %d)", e.maxSteps, len(steps))).
			Save(ctx)
		if err != nil {
			return fmt.Errorf("planexec: fail runaway plan %s: %w", p.ID, err)
		}
		return e.publishPlanStatus(ctx, p.ID, plan.StatusFAILED)
	}

	var priorSummaries []string
	for _, step := range steps {
		if step.Status == planstep.StatusDONE {
			priorSummaries = append(priorSummaries, summarizeStep(step))
			continue
		}
		if step.Status == planstep.StatusFAILED {
			// A previously failed step means the plan was already marked
			// FAILED; RunContext wouldn't have selected it. Defensive only.
			return nil
		}

		terminal, err := e.runStep(ctx, p, step, priorSummaries)
		if err != nil {
			return err
		}
		if terminal {
			return nil
		}
		priorSummaries = append(priorSummaries, summarizeStep(step))
	}

	return e.transitionPlan(ctx, p, plan.StatusCOMPLETED)
}

// runStep invokes step's tool, interprets the result, and persists the new
// step/plan state. It returns terminal=true when the plan must stop (the
// step failed or asked to stop) — the caller does not continue to later
// steps in that case.
func (e *Executor) runStep(ctx context.Context, p *ent.Plan, step *ent.PlanStep, priorSummaries []string) (terminal bool, err error) {
	stepContext := strings.Join(priorSummaries, "\n")

	result, callErr := e.tools.Execute(ctx, mcp.ToolCall{
		ID:        step.ID,
		Name:      step.ToolName,
		Arguments: encodeInvocation(p, step, stepContext),
	})
	if callErr != nil {
		return true, e.failPlan(ctx, p, step, fmt.Sprintf("Step failed: %s", callErr.Error()))
	}

	outcome := interpretResult(result)
	switch outcome.kind {
	case outcomeOk, outcomeAsk:
		if err := e.completeStep(ctx, step, result); err != nil {
			return true, err
		}
		return false, e.publishStep(ctx, p, step, "completed")

	case outcomeError:
		return true, e.failPlan(ctx, p, step, fmt.Sprintf("Step failed: %s", outcome.reason))

	case outcomeStop:
		return true, e.failPlan(ctx, p, step, outcome.reason)

	default:
		return true, e.failPlan(ctx, p, step, fmt.Sprintf("Step failed: unrecognized tool outcome %q", outcome.kind))
	}
}

func (e *Executor) completeStep(ctx context.Context, step *ent.PlanStep, result *mcp.ToolResult) error {
	_, err := e.client.PlanStep.UpdateOneID(step.ID).
		SetStatus(planstep.StatusDONE).
		SetToolResult(resultToMap(result)).
		Save(ctx)
	if err != nil {
		return fmt.Errorf("planexec: persist step %s: %w", step.ID, err)
	}
	step.Status = planstep.StatusDONE
	return nil
}

// failPlan marks step FAILED, the plan FAILED with finalAnswer message, and
// publishes both transitions. It always returns nil unless persistence
// itself fails, so callers can propagate it directly as runStep's error.
func (e *Executor) failPlan(ctx context.Context, p *ent.Plan, step *ent.PlanStep, finalAnswer string) error {
	if _, err := e.client.PlanStep.UpdateOneID(step.ID).
		SetStatus(planstep.StatusFAILED).
		SetToolResult(map[string]interface{}{"error": finalAnswer}).
		Save(ctx); err != nil {
		return fmt.Errorf("planexec: persist failed step %s: %w", step.ID, err)
	}
	if err := e.publishStep(ctx, p, step, "failed"); err != nil {
		return err
	}

	if _, err := e.client.Plan.UpdateOneID(p.ID).
		SetStatus(plan.StatusFAILED).
		SetFinalAnswer(finalAnswer).
		Save(ctx); err != nil {
		return fmt.Errorf("planexec: persist failed plan %s: %w", p.ID, err)
	}
	return e.publishPlanStatus(ctx, p.ID, plan.StatusFAILED)
}

func (e *Executor) transitionPlan(ctx context.Context, p *ent.Plan, status plan.Status) error {
	updated, err := e.client.Plan.UpdateOneID(p.ID).SetStatus(status).Save(ctx)
	if err != nil {
		return fmt.Errorf("planexec: transition plan %s to %s: %w", p.ID, status, err)
	}
	*p = *updated
	return e.publishPlanStatus(ctx, p.ID, status)
}

func (e *Executor) publishPlanStatus(ctx context.Context, planID string, status plan.Status) error {
	if e.publisher == nil {
		return nil
	}
	return e.publisher.PublishPlanStatus(ctx, events.PlanStatusPayload{
		Type:      events.EventTypePlanStatus,
		PlanID:    planID,
		Status:    string(status),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (e *Executor) publishStep(ctx context.Context, p *ent.Plan, step *ent.PlanStep, status string) error {
	if e.publisher == nil {
		return nil
	}
	return e.publisher.PublishPlanStep(ctx, events.PlanStepPayload{
		Type:      events.EventTypePlanStep,
		PlanID:    p.ID,
		StepID:    step.ID,
		Tool:      step.ToolName,
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// summarizeStep renders a short, single-line summary of a completed step's
// tool result for inclusion in later steps' context strings.
func summarizeStep(step *ent.PlanStep) string {
	content := ""
	if v, ok := step.ToolResult["content"].(string); ok {
		content = v
	}
	const maxLen = 280
	if len(content) > maxLen {
		content = content[:maxLen] + "..."
	}
	return fmt.Sprintf("[%s] %s", step.ToolName, content)
}

func resultToMap(result *mcp.ToolResult) map[string]interface{} {
	return map[string]interface{}{
		"content": result.Content,
		"isError": result.IsError,
	}
}

type toolInvocation struct {
	Instruction string `json:"instruction"`
	Context     string `json:"context"`
	PlanID      string `json:"planId"`
}

func encodeInvocation(p *ent.Plan, step *ent.PlanStep, stepContext string) string {
	raw, err := json.Marshal(toolInvocation{
		Instruction: step.Instruction,
		Context:     stepContext,
		PlanID:      p.ID,
	})
	if err != nil {
		// Marshaling a struct of plain strings cannot fail; kept as a
		// typed error path only so callers never see a silent empty call.
		return fmt.Sprintf(`{"instruction":%q,"context":%q,"planId":%q}`, step.Instruction, stepContext, p.ID)
	}
	return string(raw)
}
