// Package mcp exposes an Arbor app to agents over the Model Context Protocol.
//
// Agents address a session explicitly (default "mcp") and post partial field
// updates; unspecified fields keep their current Store values, so a missing toggle
// is not read as "unchecked" the way an HTML form post would be.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/coerce"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/render"
	"github.com/aretw0/arbor/pkg/runner"
	"github.com/aretw0/arbor/pkg/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DefaultSession is used when a tool call names no session.
const DefaultSession = "mcp"

// TreeURI is the resource serving the JSON view of the default session.
const TreeURI = "arbor://tree"

// ActionView describes an invocable action.
type ActionView struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Scope string `json:"scope,omitempty"`
}

// StateResponse is returned by every tool.
type StateResponse struct {
	SessionID  string         `json:"session_id" jsonschema_description:"Session the call ran against"`
	Store      map[string]any `json:"store" jsonschema_description:"Current session state"`
	Fields     []string       `json:"fields" jsonschema_description:"Top-level field keys accepted by update_fields"`
	Actions    []ActionView   `json:"actions" jsonschema_description:"Actions of the current tree"`
	Forms      []string       `json:"forms" jsonschema_description:"Scoped forms accepted by submit_form"`
	Changed    []string       `json:"changed,omitempty" jsonschema_description:"Store keys changed by the call"`
	Unresolved string         `json:"unresolved,omitempty" jsonschema_description:"Target that no longer exists in the tree"`
	Error      string         `json:"error,omitempty" jsonschema_description:"Contained handler failure"`
}

// ToolArgs are the arguments shared by the tools.
type ToolArgs struct {
	SessionID string         `json:"session_id,omitempty"`
	ActionID  string         `json:"action_id,omitempty"`
	Form      string         `json:"form,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Server wraps an Engine and exposes it as an MCP Server.
type Server struct {
	engine    ports.Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server for engine.
func NewServer(engine ports.Engine, version string, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("arbor-"+engine.Name(), strings.TrimSpace(version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP SSE transport until ctx ends.
func (s *Server) ServeSSE(ctx context.Context, port int, opts ...runner.Option) error {
	baseURL := fmt.Sprintf("http://localhost:%d", port)
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	opts = append([]runner.Option{runner.WithPortRange(port, 1), runner.WithLogger(s.logger)}, opts...)
	return runner.Serve(ctx, mux, opts...)
}

func (s *Server) registerTools() {
	session := mcp.WithString("session_id", mcp.Description("Session to address (default \"mcp\")"))
	fields := mcp.WithObject("fields", mcp.Description("Field values keyed by field name: strings, booleans or lists of strings"))

	s.mcpServer.AddTool(mcp.NewTool("get_state",
		mcp.WithDescription("Load (or create) the session and return its state, fields, actions and forms."),
		session,
		mcp.WithOutputSchema[StateResponse](),
	), mcp.NewStructuredToolHandler(s.handleGetState))

	s.mcpServer.AddTool(mcp.NewTool("list_actions",
		mcp.WithDescription("List the actions of the session's current tree as {id, label}."),
		session,
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := s.handleGetState(ctx, request, ToolArgs{SessionID: request.GetString("session_id", "")})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		data, _ := json.Marshal(resp.Actions)
		return mcp.NewToolResultText(string(data)), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("update_fields",
		mcp.WithDescription("Merge field values into the session. Omitted fields keep their value. No action runs."),
		session,
		fields,
		mcp.WithOutputSchema[StateResponse](),
	), mcp.NewStructuredToolHandler(s.handleUpdateFields))

	s.mcpServer.AddTool(mcp.NewTool("invoke_action",
		mcp.WithDescription("Merge optional field values, then run the action with the given id."),
		session,
		mcp.WithString("action_id", mcp.Required(), mcp.Description("Stable action identifier, e.g. greet_1")),
		fields,
		mcp.WithOutputSchema[StateResponse](),
	), mcp.NewStructuredToolHandler(s.handleInvokeAction))

	s.mcpServer.AddTool(mcp.NewTool("submit_form",
		mcp.WithDescription("Commit a scoped form with the given field values and run its submit handler."),
		session,
		mcp.WithString("form", mcp.Required(), mcp.Description("Name of the scoped form")),
		fields,
		mcp.WithOutputSchema[StateResponse](),
	), mcp.NewStructuredToolHandler(s.handleSubmitForm))
}

func (s *Server) handleGetState(ctx context.Context, _ mcp.CallToolRequest, args ToolArgs) (StateResponse, error) {
	sid := sessionOf(args)
	res, err := s.engine.Page(ctx, sid)
	if err != nil {
		return StateResponse{}, fmt.Errorf("get_state failed: %w", err)
	}
	return respond(sid, res), nil
}

func (s *Server) handleUpdateFields(ctx context.Context, _ mcp.CallToolRequest, args ToolArgs) (StateResponse, error) {
	sid := sessionOf(args)
	values, err := s.merged(ctx, sid, "", args.Fields)
	if err != nil {
		return StateResponse{}, err
	}
	res, err := s.engine.Sync(ctx, sid, values)
	if err != nil {
		return StateResponse{}, fmt.Errorf("update_fields failed: %w", err)
	}
	return respond(sid, res), nil
}

func (s *Server) handleInvokeAction(ctx context.Context, _ mcp.CallToolRequest, args ToolArgs) (StateResponse, error) {
	sid := sessionOf(args)
	values, err := s.merged(ctx, sid, "", args.Fields)
	if err != nil {
		return StateResponse{}, err
	}
	res, err := s.engine.Act(ctx, sid, args.ActionID, values)
	if err != nil {
		return StateResponse{}, fmt.Errorf("invoke_action failed: %w", err)
	}
	if res.Unresolved != "" {
		s.logger.Info("MCP: Unresolved action", "action_id", args.ActionID, "session_id", sid)
	}
	return respond(sid, res), nil
}

func (s *Server) handleSubmitForm(ctx context.Context, _ mcp.CallToolRequest, args ToolArgs) (StateResponse, error) {
	sid := sessionOf(args)
	values, err := s.merged(ctx, sid, args.Form, args.Fields)
	if err != nil {
		return StateResponse{}, err
	}
	res, err := s.engine.SubmitForm(ctx, sid, args.Form, values)
	if err != nil {
		return StateResponse{}, fmt.Errorf("submit_form failed: %w", err)
	}
	return respond(sid, res), nil
}

// merged returns the current values of the session (top-level, or the buffer of
// scope) overridden by fields, encoded the way a full form post would be.
func (s *Server) merged(ctx context.Context, sid, scope string, fields map[string]any) (url.Values, error) {
	res, err := s.engine.Page(ctx, sid)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	current := map[string]any(res.Store)
	if scope != "" {
		current = res.Store.Map(scope)
	}
	if err := validateFields(res.Tree, scope, fields); err != nil {
		return nil, err
	}

	values := url.Values{}
	add := func(key string, v any) {
		name := coerce.FieldName(scope, key)
		delete(values, name)
		for _, e := range encode(v) {
			values.Add(name, e)
		}
	}
	for k, v := range current {
		if _, isForm := v.(map[string]any); !isForm {
			add(k, v)
		}
	}
	for k, v := range fields {
		add(k, v)
	}
	clean, err := coerce.SanitizeValues(values)
	if err != nil {
		return nil, fmt.Errorf("input rejected: %w", err)
	}
	return clean, nil
}

// validateFields checks fields against the types bound by the tree (top-level, or
// inside the scoped form). Unknown keys are left to the coercion step, which drops them.
func validateFields(tree *domain.Tree, scope string, fields map[string]any) error {
	s := schema.FromTree(tree)
	if scope != "" {
		obj, ok := s[scope].(*schema.ObjectType)
		if !ok {
			return nil
		}
		s = obj.Fields()
	} else {
		for k, t := range s {
			if _, isForm := t.(*schema.ObjectType); isForm {
				if _, given := fields[k]; given {
					return fmt.Errorf("%q is a scoped form: use submit_form", k)
				}
				delete(s, k)
			}
		}
	}
	if err := schema.Validate(s, fields); err != nil {
		return fmt.Errorf("invalid fields: %w", err)
	}
	return nil
}

// encode turns a JSON value into posted strings. An empty list posts the empty
// marker so it coerces to an empty list rather than being ignored.
func encode(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return []string{t}
	case bool:
		return []string{strconv.FormatBool(t)}
	case float64:
		return []string{strconv.FormatFloat(t, 'f', -1, 64)}
	case []string:
		if len(t) == 0 {
			return []string{""}
		}
		return t
	case []any:
		if len(t) == 0 {
			return []string{""}
		}
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, fmt.Sprint(e))
		}
		return out
	default:
		return []string{fmt.Sprint(t)}
	}
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(TreeURI, "Component tree of the default session",
		mcp.WithMIMEType("application/json"),
	), s.readTree)
}

func (s *Server) readTree(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	res, err := s.engine.Page(ctx, DefaultSession)
	if err != nil {
		return nil, fmt.Errorf("failed to build tree: %w", err)
	}
	var buf bytes.Buffer
	if err := (&render.JSON{}).Render(&buf, render.Page{Title: s.engine.Name(), Tree: res.Tree, Store: res.Store}); err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      TreeURI,
			MIMEType: "application/json",
			Text:     buf.String(),
		},
	}, nil
}

func sessionOf(args ToolArgs) string {
	if args.SessionID == "" {
		return DefaultSession
	}
	return args.SessionID
}

func respond(sid string, res *domain.Result) StateResponse {
	resp := StateResponse{
		SessionID:  sid,
		Store:      res.Store,
		Fields:     []string{},
		Actions:    []ActionView{},
		Forms:      []string{},
		Changed:    res.Changed,
		Unresolved: res.Unresolved,
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	for _, n := range res.Tree.Bindings() {
		resp.Fields = append(resp.Fields, n.Key)
	}
	for _, n := range res.Tree.Actions() {
		resp.Actions = append(resp.Actions, ActionView{ID: n.ID, Label: n.Label, Scope: n.Scope})
	}
	for _, f := range res.Tree.Forms() {
		resp.Forms = append(resp.Forms, f.Key)
	}
	sort.Strings(resp.Forms)
	return resp
}
