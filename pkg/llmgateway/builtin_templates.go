package llmgateway

// builtinTemplateSource mirrors the anonymous struct NewTemplateRegistry
// expects, named here so the builtin table reads cleanly.
type builtinTemplateSource = struct{ System, User string }

// BuiltinTemplates returns the promptType table the rest of the service
// renders against: the class-analysis summarizer the embedding pipeline's
// third lane calls, the plan decomposition pass that turns an incoming
// question into an ordered tool-call plan, the plan finalization pass that
// turns a completed or failed plan into a user-facing answer, and the
// passthrough template backing the OpenAI-compatible /completions endpoint.
func BuiltinTemplates() map[string]builtinTemplateSource {
	return map[string]builtinTemplateSource{
		"completion": {
			System: `You are {{.Assistant}}, an enterprise knowledge assistant. Respond in ` +
				`{{.OutputLanguage}}. Output a JSON object matching the provided schema.`,
			User: `{{.Values.prompt}}`,
		},
		"plan-decomposition": {
			System: `You are {{.Assistant}}, an enterprise knowledge assistant. Break the user's ` +
				`question into an ordered list of tool calls against the knowledge base (RAG_SEARCH, ` +
				`TRAVERSE, PURGE) needed to answer it, and translate the question to English if it ` +
				`isn't already. Output a JSON object matching the provided schema. Each step's ` +
				`"instruction" field must itself be a JSON object encoded as a string, holding exactly ` +
				`the parameters that tool's schema requires: {"query": "..."} for RAG_SEARCH, ` +
				`{"nodeId": "...", "direction": "..."} for TRAVERSE, {"filePath": "..."} for PURGE. ` +
				`Keep the plan as short as the question allows; never invent a tool outside the known set.`,
			User: `{{.Values.question}}`,
		},
		"class-analysis-summary": {
			System: `You are a code documentation assistant for {{.Assistant}}. Summarize the ` +
				`given class or module so a retrieval system can match it against natural-language ` +
				`questions. Output a JSON object matching the provided schema: a list of short, ` +
				`independent summary chunks, each covering one cohesive aspect of the symbol ` +
				`(purpose, public surface, notable dependencies). Never invent behavior the code ` +
				`does not show.`,
			User: `Symbol: {{.Values.symbol}}
File: {{.Values.filePath}}

{{.Values.source}}`,
		},
		"plan-finalization": {
			System: `You are {{.Assistant}}, an enterprise knowledge assistant. The investigation ` +
				`below has finished. Write a final answer for the user in {{.OutputLanguage}}, ` +
				`grounded only in the recorded step results. If the plan failed, say so plainly and ` +
				`explain what was attempted. Output a JSON object matching the provided schema.`,
			User: `Original question: {{.Values.question}}

Plan status: {{.Values.status}}

Step results:
{{.Values.stepSummaries}}`,
		},
	}
}
