package planexec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jandamek/jervis/ent/plan"
	"github.com/jandamek/jervis/pkg/llmgateway"
	"github.com/jandamek/jervis/pkg/mcp"
	testdb "github.com/jandamek/jervis/test/database"
)

// fakeNotifier records every text it's asked to send, standing in for
// *slack.Service in tests.
type fakeNotifier struct {
	sent []string
}

func (n *fakeNotifier) NotifyText(ctx context.Context, text string) error {
	n.sent = append(n.sent, text)
	return nil
}

// scriptedCandidate answers with one fixed JSON body regardless of prompt.
type scriptedCandidate struct {
	body string
}

func (c *scriptedCandidate) Name() string       { return "test-model" }
func (c *scriptedCandidate) ContextTokens() int { return 100000 }
func (c *scriptedCandidate) Complete(ctx context.Context, req llmgateway.CompletionRequest) (string, error) {
	return c.body, nil
}

func TestExecutor_Finalize_RendersAnswerForCompletedPlan(t *testing.T) {
	client := testdb.NewTestClient(t)
	seedPlan(t, client.Client, "ctx-fin-1", []struct {
		Tool        string
		Instruction string
	}{
		{Tool: "logs.search", Instruction: "find the failing job"},
	})

	tools := &stubTools{results: map[string]*mcp.ToolResult{
		"logs.search": {Content: "found OOM error in job 42"},
	}}
	e := New(client.Client, tools, nil, 0)
	notifier := &fakeNotifier{}
	e.SetNotifier(notifier)
	require.NoError(t, e.RunContext(context.Background(), "ctx-fin-1"))

	templates := llmgateway.NewTemplateRegistry(llmgateway.BuiltinTemplates())
	gateway := llmgateway.New(templates, []llmgateway.Candidate{
		&scriptedCandidate{body: `{"answer":"Job 42 failed due to an out-of-memory error."}`},
	})

	require.NoError(t, e.Finalize(context.Background(), gateway))

	plans, err := client.Client.Plan.Query().Where(plan.ContextIDEQ("ctx-fin-1")).All(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, plan.StatusFINALIZED, plans[0].Status)
	require.NotNil(t, plans[0].FinalAnswer)
	assert.Contains(t, *plans[0].FinalAnswer, "out-of-memory")

	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0], "out-of-memory")
}

func TestExecutor_Finalize_PromotesFailedPlanWithoutCallingGateway(t *testing.T) {
	client := testdb.NewTestClient(t)
	seedPlan(t, client.Client, "ctx-fin-2", []struct {
		Tool        string
		Instruction string
	}{
		{Tool: "logs.search", Instruction: "find the failing job"},
	})

	tools := &stubTools{results: map[string]*mcp.ToolResult{
		"logs.search": {Content: "no access", IsError: true},
	}}
	e := New(client.Client, tools, nil, 0)
	notifier := &fakeNotifier{}
	e.SetNotifier(notifier)
	require.NoError(t, e.RunContext(context.Background(), "ctx-fin-2"))

	gateway := llmgateway.New(llmgateway.NewTemplateRegistry(llmgateway.BuiltinTemplates()), nil)
	require.NoError(t, e.Finalize(context.Background(), gateway))

	plans, err := client.Client.Plan.Query().Where(plan.ContextIDEQ("ctx-fin-2")).All(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, plan.StatusFINALIZED, plans[0].Status)
	assert.Contains(t, *plans[0].FinalAnswer, "no access")

	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0], "no access")
}
