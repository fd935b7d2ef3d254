// Package toolserver exposes the medical records store as a set of LLM
// tools.
//
// The same tool catalogue is served two ways: over the Model Context
// Protocol (stdio or streamable-HTTP transports, for external MCP clients
// such as desktop assistants) and in-process via [Server.Execute], which is
// how the records Q&A agent dispatches native tool calls without a
// transport round trip.
//
// Every tool takes a JSON object argument and returns a JSON document as
// text content, so results can be fed back to a model verbatim.
package toolserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/metric"

	"github.com/voice2vital/voice2vital/internal/observe"
	"github.com/voice2vital/voice2vital/internal/records"
	"github.com/voice2vital/voice2vital/pkg/provider/llm"
)

// Records is the slice of the records store the tools need. *records.Store
// satisfies it; tests substitute a fake.
type Records interface {
	SearchPatients(ctx context.Context, query string, limit int) ([]records.PersonMatch[records.Patient], error)
	SearchDoctors(ctx context.Context, query string, limit int) ([]records.PersonMatch[records.Doctor], error)
	Patient(ctx context.Context, id uuid.UUID) (records.Patient, error)
	Doctor(ctx context.Context, id uuid.UUID) (records.Doctor, error)
	NotesForPatient(ctx context.Context, patientID uuid.UUID) ([]records.NoteRecord, error)
	SearchNotes(ctx context.Context, query string, topK int) ([]records.NoteSearchResult, error)
	ListTables(ctx context.Context) ([]string, error)
	TableColumns(ctx context.Context, table string) ([]records.Column, error)
}

var _ Records = (*records.Store)(nil)

// handler executes one tool call. args is the raw JSON argument object;
// the returned string is a JSON document.
type handler func(ctx context.Context, args []byte) (string, error)

// toolEntry pairs a tool's wire description with its implementation.
type toolEntry struct {
	name        string
	description string
	schema      *jsonschema.Schema
	run         handler
}

// Server is the records tool catalogue.
//
// The zero value is not usable; create instances with [New].
type Server struct {
	store   Records
	metrics *observe.Metrics

	mcp   *mcpsdk.Server
	tools []toolEntry
	index map[string]int // tool name → position in tools
}

// Option configures a [Server].
type Option func(*Server)

// WithMetrics overrides the metrics instance used for tool-call accounting.
// Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New builds a Server over the given store and registers the full tool
// catalogue on an embedded MCP server.
func New(store Records, opts ...Option) *Server {
	s := &Server{
		store: store,
		index: make(map[string]int),
		mcp: mcpsdk.NewServer(
			&mcpsdk.Implementation{Name: "voice2vital-records", Version: "1.0.0"},
			nil,
		),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, entry := range s.catalogue() {
		s.index[entry.name] = len(s.tools)
		s.tools = append(s.tools, entry)
		s.registerMCP(entry)
	}
	return s
}

// registerMCP wires one tool entry into the embedded MCP server.
func (s *Server) registerMCP(entry toolEntry) {
	s.mcp.AddTool(
		&mcpsdk.Tool{
			Name:        entry.name,
			Description: entry.description,
			InputSchema: entry.schema,
		},
		func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
			out, err := s.Execute(ctx, entry.name, rawArguments(req))
			if err != nil {
				return &mcpsdk.CallToolResult{
					Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
					IsError: true,
				}, nil
			}
			return &mcpsdk.CallToolResult{
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: out}},
			}, nil
		},
	)
}

// rawArguments normalises the SDK's argument payload to raw JSON bytes.
func rawArguments(req *mcpsdk.CallToolRequest) []byte {
	if len(req.Params.Arguments) == 0 {
		return []byte("{}")
	}
	return []byte(req.Params.Arguments)
}

// Execute runs the named tool with the given JSON argument object and
// returns its JSON result. Unknown tool names and handler failures are
// returned as errors; both are counted against the tool-call metrics.
func (s *Server) Execute(ctx context.Context, name string, args []byte) (string, error) {
	i, ok := s.index[name]
	if !ok {
		s.meter().RecordToolCall(ctx, name, "unknown")
		return "", fmt.Errorf("toolserver: unknown tool %q", name)
	}
	if len(args) == 0 {
		args = []byte("{}")
	}

	start := time.Now()
	out, err := s.tools[i].run(ctx, args)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	m := s.meter()
	m.RecordToolCall(ctx, name, status)
	m.ToolExecutionDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(observe.Attr("tool", name)))

	if err != nil {
		slog.WarnContext(ctx, "records tool failed",
			"tool", name, "duration", elapsed, "error", err)
		return "", err
	}
	slog.DebugContext(ctx, "records tool executed", "tool", name, "duration", elapsed)
	return out, nil
}

// Definitions returns the tool catalogue as LLM tool definitions, in
// registration order, for providers with native tool calling.
func (s *Server) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(s.tools))
	for _, entry := range s.tools {
		defs = append(defs, llm.ToolDefinition{
			Name:        entry.name,
			Description: entry.description,
			Parameters:  schemaMap(entry.schema),
		})
	}
	return defs
}

// schemaMap converts a JSON schema to the generic map form tool definitions
// carry.
func schemaMap(schema *jsonschema.Schema) map[string]any {
	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{"type": "object"}
	}
	return m
}

// HTTPHandler returns a streamable-HTTP handler serving the embedded MCP
// server, for mounting on an HTTP mux.
func (s *Server) HTTPHandler() http.Handler {
	return mcpsdk.NewStreamableHTTPHandler(
		func(*http.Request) *mcpsdk.Server { return s.mcp },
		nil,
	)
}

// Run serves the embedded MCP server over the given transport until ctx is
// cancelled. Used by the standalone tool-server binary with a stdio
// transport.
func (s *Server) Run(ctx context.Context, transport mcpsdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}

// Connect attaches the embedded MCP server to a single transport and
// returns the live session. Mainly useful with in-memory transports.
func (s *Server) Connect(ctx context.Context, transport mcpsdk.Transport) (*mcpsdk.ServerSession, error) {
	return s.mcp.Connect(ctx, transport, nil)
}

func (s *Server) meter() *observe.Metrics {
	if s.metrics != nil {
		return s.metrics
	}
	return observe.DefaultMetrics()
}
