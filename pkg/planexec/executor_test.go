package planexec

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jandamek/jervis/ent"
	"github.com/jandamek/jervis/ent/plan"
	"github.com/jandamek/jervis/ent/planstep"
	"github.com/jandamek/jervis/pkg/events"
	"github.com/jandamek/jervis/pkg/mcp"
	testdb "github.com/jandamek/jervis/test/database"
)

// stubTools scripts one ToolResult (or error) per call, keyed by tool name.
type stubTools struct {
	results map[string]*mcp.ToolResult
	errs    map[string]error
	calls   []mcp.ToolCall
}

func (s *stubTools) Execute(ctx context.Context, call mcp.ToolCall) (*mcp.ToolResult, error) {
	s.calls = append(s.calls, call)
	if err, ok := s.errs[call.Name]; ok {
		return nil, err
	}
	return s.results[call.Name], nil
}

func (s *stubTools) ListTools(ctx context.Context) ([]mcp.ToolDefinition, error) {
	return nil, nil
}

// recordingPublisher captures every published event for assertions.
type recordingPublisher struct {
	statuses []events.PlanStatusPayload
	steps    []events.PlanStepPayload
}

func (r *recordingPublisher) PublishPlanStatus(ctx context.Context, payload events.PlanStatusPayload) error {
	r.statuses = append(r.statuses, payload)
	return nil
}

func (r *recordingPublisher) PublishPlanStep(ctx context.Context, payload events.PlanStepPayload) error {
	r.steps = append(r.steps, payload)
	return nil
}

func seedPlan(t *testing.T, client *ent.Client, contextID string, steps []struct {
	Tool        string
	Instruction string
}) *ent.Plan {
	t.Helper()
	ctx := context.Background()

	p, err := client.Plan.Create().
		SetID(uuid.NewString()).
		SetContextID(contextID).
		SetOriginalQuestion("What broke the build?").
		SetEnglishQuestion("What broke the build?").
		SetOriginalLanguage("en").
		Save(ctx)
	require.NoError(t, err)

	for i, s := range steps {
		_, err := client.PlanStep.Create().
			SetID(uuid.NewString()).
			SetPlanID(p.ID).
			SetOrder(i).
			SetToolName(s.Tool).
			SetInstruction(s.Instruction).
			Save(ctx)
		require.NoError(t, err)
	}
	return p
}

func TestExecutor_RunContext_CompletesPlanWhenAllStepsOk(t *testing.T) {
	client := testdb.NewTestClient(t)
	p := seedPlan(t, client.Client, "ctx-1", []struct {
		Tool        string
		Instruction string
	}{
		{Tool: "logs.search", Instruction: "find the failing job"},
		{Tool: "ci.status", Instruction: "check pipeline state"},
	})

	tools := &stubTools{results: map[string]*mcp.ToolResult{
		"logs.search": {Content: "found OOM error in job 42"},
		"ci.status":   {Content: "pipeline red"},
	}}
	pub := &recordingPublisher{}
	e := New(client.Client, tools, pub, 0)

	require.NoError(t, e.RunContext(context.Background(), "ctx-1"))

	got, err := client.Client.Plan.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.StatusCOMPLETED, got.Status)

	stepsOut, err := got.QuerySteps().Order(ent.Asc(planstep.FieldOrder)).All(context.Background())
	require.NoError(t, err)
	require.Len(t, stepsOut, 2)
	assert.Equal(t, planstep.StatusDONE, stepsOut[0].Status)
	assert.Equal(t, planstep.StatusDONE, stepsOut[1].Status)
	assert.Len(t, tools.calls, 2)

	assert.Equal(t, string(plan.StatusCOMPLETED), pub.statuses[len(pub.statuses)-1].Status)
}

func TestExecutor_RunContext_StopsOnFirstFailure(t *testing.T) {
	client := testdb.NewTestClient(t)
	seedPlan(t, client.Client, "ctx-2", []struct {
		Tool        string
		Instruction string
	}{
		{Tool: "logs.search", Instruction: "find the failing job"},
		{Tool: "ci.status", Instruction: "check pipeline state"},
	})

	tools := &stubTools{results: map[string]*mcp.ToolResult{
		"logs.search": {Content: "no access to that repository", IsError: true},
	}}
	e := New(client.Client, tools, nil, 0)

	require.NoError(t, e.RunContext(context.Background(), "ctx-2"))

	plans, err := client.Client.Plan.Query().Where(plan.ContextIDEQ("ctx-2")).All(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, plan.StatusFAILED, plans[0].Status)
	require.NotNil(t, plans[0].FinalAnswer)
	assert.Contains(t, *plans[0].FinalAnswer, "no access to that repository")

	// Second step never ran: the tool was only called once.
	assert.Len(t, tools.calls, 1)
}

func TestExecutor_RunContext_StopEnvelopeHaltsWithoutRunningRemainingSteps(t *testing.T) {
	client := testdb.NewTestClient(t)
	seedPlan(t, client.Client, "ctx-3", []struct {
		Tool        string
		Instruction string
	}{
		{Tool: "dangerous.delete", Instruction: "delete the staging namespace"},
		{Tool: "logs.search", Instruction: "unreachable"},
	})

	tools := &stubTools{results: map[string]*mcp.ToolResult{
		"dangerous.delete": {Content: `{"outcome":"stop","reason":"destructive action requires human approval"}`},
	}}
	e := New(client.Client, tools, nil, 0)

	require.NoError(t, e.RunContext(context.Background(), "ctx-3"))

	plans, err := client.Client.Plan.Query().Where(plan.ContextIDEQ("ctx-3")).All(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, plan.StatusFAILED, plans[0].Status)
	assert.Equal(t, "destructive action requires human approval", *plans[0].FinalAnswer)
	assert.Len(t, tools.calls, 1)
}

func TestExecutor_RunContext_AskEnvelopeContinuesToNextStep(t *testing.T) {
	client := testdb.NewTestClient(t)
	seedPlan(t, client.Client, "ctx-4", []struct {
		Tool        string
		Instruction string
	}{
		{Tool: "dialog.ask", Instruction: "confirm the deploy target"},
		{Tool: "ci.status", Instruction: "check pipeline state"},
	})

	tools := &stubTools{results: map[string]*mcp.ToolResult{
		"dialog.ask": {Content: `{"outcome":"ask","reason":"which environment?"}`},
		"ci.status":  {Content: "pipeline green"},
	}}
	e := New(client.Client, tools, nil, 0)

	require.NoError(t, e.RunContext(context.Background(), "ctx-4"))

	plans, err := client.Client.Plan.Query().Where(plan.ContextIDEQ("ctx-4")).All(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, plan.StatusCOMPLETED, plans[0].Status)
	assert.Len(t, tools.calls, 2)
}

func TestExecutor_RunContext_FailsRunawayPlanOverStepLimit(t *testing.T) {
	client := testdb.NewTestClient(t)
	steps := make([]struct {
		Tool        string
		Instruction string
	}, 3)
	for i := range steps {
		steps[i] = struct {
			Tool        string
			Instruction string
		}{Tool: "logs.search", Instruction: "keep searching"}
	}
	seedPlan(t, client.Client, "ctx-6", steps)

	tools := &stubTools{results: map[string]*mcp.ToolResult{"logs.search": {Content: "ok"}}}
	e := New(client.Client, tools, nil, 2)

	require.NoError(t, e.RunContext(context.Background(), "ctx-6"))

	plans, err := client.Client.Plan.Query().Where(plan.ContextIDEQ("ctx-6")).All(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, plan.StatusFAILED, plans[0].Status)
	assert.Contains(t, *plans[0].FinalAnswer, "exceeds the maximum")
	assert.Empty(t, tools.calls)
}

func TestExecutor_RunContext_SkipsAlreadyTerminalPlans(t *testing.T) {
	client := testdb.NewTestClient(t)
	p := seedPlan(t, client.Client, "ctx-5", []struct {
		Tool        string
		Instruction string
	}{
		{Tool: "logs.search", Instruction: "find the failing job"},
	})
	_, err := client.Client.Plan.UpdateOneID(p.ID).SetStatus(plan.StatusCOMPLETED).Save(context.Background())
	require.NoError(t, err)

	tools := &stubTools{}
	e := New(client.Client, tools, nil, 0)

	require.NoError(t, e.RunContext(context.Background(), "ctx-5"))
	assert.Empty(t, tools.calls)
}
