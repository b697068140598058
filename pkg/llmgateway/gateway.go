// Package llmgateway is the single entry point pipeline stages and the plan
// executor use to call an LLM: resolve a prompt template, pick an ordered
// list of candidate models, validate the JSON response against a caller
// supplied schema, and retry each candidate with backoff before giving up.
// There are no silent fallbacks — if every candidate fails the gateway
// raises with the last provider error attached.
package llmgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jandamek/jervis/pkg/ingesterrors"
)

// CompletionRequest is the provider-agnostic shape every Candidate accepts.
type CompletionRequest struct {
	System    string
	User      string
	MaxTokens int
}

// Candidate is one callable model. Implementations wrap a single provider
// SDK (Anthropic, OpenAI, Bedrock) behind this narrow interface so the
// gateway never depends on SDK types directly.
type Candidate interface {
	Name() string
	ContextTokens() int
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ParsedResponse is callLlm's return value: the schema-validated value,
// any "think" preamble the model emitted ahead of its answer, and the raw
// text the winning candidate returned.
type ParsedResponse[T any] struct {
	Value T
	Think string
	Raw   string
}

// Gateway holds the ordered candidate lists and the prompt template
// registry. It keeps no other state — candidate ordering is fixed at
// construction time, not learned from runtime failures.
type Gateway struct {
	candidates      []Candidate
	quickCandidates []Candidate
	templates       *TemplateRegistry
	retryBudget     time.Duration
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithQuickCandidates overrides the candidate order used when quick is
// true. If unset, quick calls use the same order as normal calls.
func WithQuickCandidates(candidates ...Candidate) Option {
	return func(g *Gateway) { g.quickCandidates = candidates }
}

// WithRetryBudget overrides the per-candidate backoff.MaxElapsedTime.
func WithRetryBudget(d time.Duration) Option {
	return func(g *Gateway) { g.retryBudget = d }
}

const defaultRetryBudget = 20 * time.Second

// New builds a Gateway. candidates is the ordered fallback list used for
// non-quick calls; earlier entries are tried first.
func New(templates *TemplateRegistry, candidates []Candidate, opts ...Option) *Gateway {
	g := &Gateway{
		candidates:  candidates,
		templates:   templates,
		retryBudget: defaultRetryBudget,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.quickCandidates == nil {
		g.quickCandidates = candidates
	}
	return g
}

func (g *Gateway) candidateOrder(quick bool) []Candidate {
	if quick {
		return g.quickCandidates
	}
	return g.candidates
}

// CallLLM is the single entry point: resolve promptType's template, render
// it with mappingValues, select candidates, chunk the prompt if it would
// overflow every candidate's context, validate the winning response(s)
// against responseSchema and unmarshal into T. Cancelling ctx cancels the
// in-flight provider call.
//
// CallLLM is a free function rather than a *Gateway method because Go
// methods cannot introduce their own type parameters.
func CallLLM[T any](ctx context.Context, g *Gateway, promptType string, responseSchema []byte, quick bool, mappingValues map[string]any, outputLanguage string, backgroundMode bool) (ParsedResponse[T], error) {
	var zero ParsedResponse[T]

	rendered, err := g.templates.Render(promptType, mappingValues, outputLanguage, backgroundMode)
	if err != nil {
		return zero, fmt.Errorf("llmgateway: render prompt %q: %w", promptType, err)
	}

	schema, err := compileSchema(responseSchema)
	if err != nil {
		return zero, fmt.Errorf("llmgateway: compile response schema: %w", err)
	}

	candidates := g.candidateOrder(quick)
	if len(candidates) == 0 {
		return zero, ingesterrors.NewGatewayError("llm", fmt.Errorf("no candidates configured"))
	}

	largestContext := 0
	for _, c := range candidates {
		if c.ContextTokens() > largestContext {
			largestContext = c.ContextTokens()
		}
	}

	estimated := EstimateTokens(rendered.System) + EstimateTokens(rendered.User)

	var raw string
	if estimated > largestContext {
		raw, err = g.runSelective(ctx, candidates, rendered)
	} else {
		raw, err = g.runSequential(ctx, candidates, CompletionRequest{System: rendered.System, User: rendered.User})
	}
	if err != nil {
		return zero, err
	}

	think, body := splitThinkPreamble(raw)

	var payload any
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return zero, ingesterrors.NewGatewayError("llm", fmt.Errorf("response is not valid JSON: %w", err))
	}
	if err := schema.Validate(payload); err != nil {
		return zero, ingesterrors.NewGatewayError("llm", fmt.Errorf("response failed schema validation: %w", err))
	}

	var value T
	if err := json.Unmarshal([]byte(body), &value); err != nil {
		return zero, ingesterrors.NewGatewayError("llm", fmt.Errorf("decode response into target type: %w", err))
	}

	return ParsedResponse[T]{Value: value, Think: think, Raw: raw}, nil
}

// runSequential tries each candidate, with backoff retry per candidate,
// until one succeeds. No silent fallback: the returned error chains the
// last candidate's failure.
func (g *Gateway) runSequential(ctx context.Context, candidates []Candidate, req CompletionRequest) (string, error) {
	var lastErr error
	for _, c := range candidates {
		out, err := g.callWithRetry(ctx, c, req)
		if err == nil {
			return out, nil
		}
		if ingesterrors.IsCancellation(err) {
			return "", err
		}
		lastErr = fmt.Errorf("candidate %s: %w", c.Name(), err)
	}
	return "", ingesterrors.NewGatewayError("llm", lastErr)
}

// callWithRetry retries a single candidate call with exponential backoff,
// bounded by the gateway's retry budget and the caller's context.
func (g *Gateway) callWithRetry(ctx context.Context, c Candidate, req CompletionRequest) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = g.retryBudget

	var out string
	op := func() error {
		resp, err := c.Complete(ctx, req)
		if err != nil {
			if ingesterrors.IsCancellation(err) {
				return backoff.Permanent(err)
			}
			// Only a caller-classified TransientError earns a retry;
			// anything else (bad request, rate limit, empty response)
			// fails this candidate immediately and falls through to the
			// next one in the ordered list.
			if _, ok := ingesterrors.AsTransientError(err); ok {
				return err
			}
			return backoff.Permanent(err)
		}
		out = resp
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return "", err
	}
	return out, nil
}
