// Package agent answers free-text questions about stored medical records.
//
// The agent runs a bounded tool-dispatch loop: the model is offered the
// records tool catalogue, each tool call it issues is executed in-process,
// and the results are appended to the conversation until the model produces
// a plain answer or the iteration budget runs out. When the budget is
// exhausted the agent forces one final completion without tools so callers
// always get an answer grounded in whatever was gathered.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/voice2vital/voice2vital/internal/observe"
	"github.com/voice2vital/voice2vital/internal/toolserver"
	"github.com/voice2vital/voice2vital/pkg/provider/llm"
)

// systemPrompt frames the model as a records assistant. The model must look
// records up rather than recall them: everything it reports has to come from
// a tool result in the current conversation.
const systemPrompt = `You are a medical records assistant for a clinical practice.

You answer questions about doctors, patients, and archived clinical notes
using the provided tools. Rules:

1. Never answer from memory. Every fact about a record must come from a tool
   result in this conversation.
2. Names are looked up fuzzily: use search_patients or search_doctors first
   to resolve a name to an ID, then fetch details with the ID.
3. Use search_notes when the question is about clinical content (symptoms,
   diagnoses, medications) rather than a specific person.
4. If the records do not contain the answer, say so plainly. Do not guess.
5. Quote clinical details exactly as they appear in the notes.`

// Defaults for the dispatch loop.
const (
	defaultMaxIterations = 8
	defaultTemperature   = 0.2
)

// Tools is the tool catalogue the agent dispatches against.
// *toolserver.Server satisfies it.
type Tools interface {
	Definitions() []llm.ToolDefinition
	Execute(ctx context.Context, name string, args []byte) (string, error)
}

var _ Tools = (*toolserver.Server)(nil)

// Answer is the agent's reply to one question.
type Answer struct {
	// Content is the model's final textual answer.
	Content string

	// ToolCalls is the number of tool invocations made while answering.
	ToolCalls int

	// Usage is the token accounting accumulated over all completions.
	Usage llm.Usage
}

// Agent is the records question-answering loop.
//
// The zero value is not usable; create instances with [New]. Agent is safe
// for concurrent use; each Ask call keeps its own conversation.
type Agent struct {
	llm     llm.Provider
	tools   Tools
	metrics *observe.Metrics

	maxIterations int
	temperature   float64
	maxTokens     int
}

// Option configures an Agent.
type Option func(*Agent)

// WithMaxIterations caps the number of completion rounds per question.
// Defaults to 8.
func WithMaxIterations(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

// WithTemperature sets the sampling temperature. Defaults to 0.2.
func WithTemperature(t float64) Option {
	return func(a *Agent) { a.temperature = t }
}

// WithMaxTokens caps completion tokens per round. Zero uses the provider
// default.
func WithMaxTokens(n int) Option {
	return func(a *Agent) { a.maxTokens = n }
}

// WithMetrics overrides the metrics instance. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *Agent) { a.metrics = m }
}

// New creates an Agent over the given model and tool catalogue.
func New(provider llm.Provider, tools Tools, opts ...Option) *Agent {
	a := &Agent{
		llm:           provider,
		tools:         tools,
		maxIterations: defaultMaxIterations,
		temperature:   defaultTemperature,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Ask answers one free-text question about the records.
//
// Returns an error if the provider does not support tool calling, if any
// completion fails, or if ctx is cancelled. Tool execution failures do not
// abort the loop — the error text is fed back to the model, which can retry
// with different arguments or report the problem.
func (a *Agent) Ask(ctx context.Context, question string) (*Answer, error) {
	if !a.llm.Capabilities().SupportsToolCalling {
		return nil, fmt.Errorf("agent: provider does not support tool calling")
	}

	m := a.meter()
	m.ActiveAgentSessions.Add(ctx, 1)
	defer m.ActiveAgentSessions.Add(ctx, -1)

	start := time.Now()
	defs := a.tools.Definitions()
	msgs := []llm.Message{{Role: "user", Content: question}}
	answer := &Answer{}

	for range a.maxIterations {
		resp, err := a.llm.Complete(ctx, llm.CompletionRequest{
			SystemPrompt: systemPrompt,
			Messages:     msgs,
			Tools:        defs,
			Temperature:  a.temperature,
			MaxTokens:    a.maxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("agent: complete: %w", err)
		}
		addUsage(&answer.Usage, resp.Usage)

		if len(resp.ToolCalls) == 0 {
			answer.Content = resp.Content
			slog.DebugContext(ctx, "agent answered",
				"tool_calls", answer.ToolCalls, "duration", time.Since(start))
			return answer, nil
		}

		msgs = append(msgs, llm.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			msgs = append(msgs, a.dispatch(ctx, call))
			answer.ToolCalls++
		}
	}

	// Budget exhausted: force a final answer from what was gathered.
	msgs = append(msgs, llm.Message{
		Role:    "user",
		Content: "Answer now using only the information gathered so far.",
	})
	resp, err := a.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages:     msgs,
		Temperature:  a.temperature,
		MaxTokens:    a.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("agent: final complete: %w", err)
	}
	addUsage(&answer.Usage, resp.Usage)
	answer.Content = resp.Content
	slog.WarnContext(ctx, "agent hit tool-call budget",
		"iterations", a.maxIterations, "tool_calls", answer.ToolCalls)
	return answer, nil
}

// dispatch executes one tool call and wraps the outcome as a tool message.
func (a *Agent) dispatch(ctx context.Context, call llm.ToolCall) llm.Message {
	out, err := a.tools.Execute(ctx, call.Name, []byte(call.Arguments))
	if err != nil {
		out = "error: " + err.Error()
	}
	return llm.Message{
		Role:       "tool",
		Name:       call.Name,
		ToolCallID: call.ID,
		Content:    out,
	}
}

func (a *Agent) meter() *observe.Metrics {
	if a.metrics != nil {
		return a.metrics
	}
	return observe.DefaultMetrics()
}

func addUsage(total *llm.Usage, u llm.Usage) {
	total.PromptTokens += u.PromptTokens
	total.CompletionTokens += u.CompletionTokens
	total.TotalTokens += u.TotalTokens
}
