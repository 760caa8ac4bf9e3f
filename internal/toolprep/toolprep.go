// Package toolprep resolves the merged tool list available to an agent
// node invocation (spec §4.8): MCP server connections scoped per node,
// inline tool merge with name-collision override, legacy schema
// conversion, and render_node injection when a plan is present.
//
// Grounded on tools/registry.go's ToolRegistry /
// registry.BaseRegistry[T] generic repository pattern, generalized from
// hector's heterogeneous tool repositories (local/remote/plugin) to
// Smithers's inline-vs-remote collision policy. hector's own
// tools/registry.go imports a top-level "registry" package that was never
// part of this snapshot of the teacher repository (confirmed absent from
// the pristine copy too) — the real generic registry lives at
// pkg/registry, which is what this package imports instead.
package toolprep

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/invopop/jsonschema"

	"github.com/evmts/smithers/internal/node"
	"github.com/evmts/smithers/internal/scheduler"
)

// RenderNodeFunc executes the subtree rooted at path (spec §4.3 path
// format) and reports its outcome. Supplied by the wiring layer that owns
// the running Scheduler, since toolprep itself has no reference to a live
// scheduler instance — only the node tree it was asked to prepare tools
// for.
type RenderNodeFunc func(ctx context.Context, path string) (result any, nodeType string, err error)

// Preparer implements scheduler.ToolPreparer.
type Preparer struct {
	pool *serverPool

	// RenderNode executes a render_node tool invocation. If nil,
	// render_node is not injected even when a plan is present.
	RenderNode RenderNodeFunc
}

// NewPreparer builds a Preparer with a fresh, run-scoped MCP connection
// pool.
func NewPreparer() *Preparer {
	return &Preparer{pool: newServerPool()}
}

var _ scheduler.ToolPreparer = (*Preparer)(nil)

// Prepare implements scheduler.ToolPreparer (spec §4.8 steps 1-5, plus the
// render_node injection described after step 5).
func (p *Preparer) Prepare(ctx context.Context, t *node.Tree, n *node.Node) ([]scheduler.PreparedTool, error) {
	var prepared []scheduler.PreparedTool

	servers := parseServerConfigs(n)
	for _, cfg := range servers {
		conn, err := p.pool.connect(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("toolprep: %w", err)
		}
		conn.mu.Lock()
		tools := conn.tools
		conn.mu.Unlock()
		for _, mt := range tools {
			mt := mt
			conn := conn
			prepared = append(prepared, scheduler.PreparedTool{
				Name:        mt.Name,
				Description: mt.Description,
				InputSchema: convertSchema(mt.InputSchema),
				Invoke: func(ctx context.Context, args map[string]any) (string, error) {
					return conn.call(ctx, mt.Name, args)
				},
			})
		}
	}

	prepared = mergeInline(prepared, parseInlineTools(n))

	if hasPlanChildren(t, n) && p.RenderNode != nil {
		prepared = append(prepared, renderNodeTool(p.RenderNode))
	}

	return prepared, nil
}

// mergeInline appends inline tools to remote, applying the override
// collision policy (spec §4.8 step 3: inline wins, remove all remote tools
// of the same name, iterate backward to avoid index skew, warn).
func mergeInline(remote []scheduler.PreparedTool, inline []scheduler.PreparedTool) []scheduler.PreparedTool {
	for _, it := range inline {
		for i := len(remote) - 1; i >= 0; i-- {
			if remote[i].Name == it.Name {
				slog.Warn("toolprep: inline tool overrides remote tool of the same name", "tool", it.Name)
				remote = append(remote[:i], remote[i+1:]...)
			}
		}
		remote = append(remote, it)
	}
	return remote
}

// parseServerConfigs reads the node's `mcpServers` prop, a list of
// {name, command, args, env} maps, scoped strictly to this node's
// declaration (spec §4.8 step 2 "no tool leakage from prior nodes").
func parseServerConfigs(n *node.Node) []ServerConfig {
	raw, ok := n.Prop("mcpServers")
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	var out []ServerConfig
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		cfg := ServerConfig{
			Name:    asString(m["name"]),
			Command: asString(m["command"]),
		}
		if cfg.Name == "" || cfg.Command == "" {
			continue
		}
		if args, ok := m["args"].([]any); ok {
			for _, a := range args {
				cfg.Args = append(cfg.Args, asString(a))
			}
		}
		if env, ok := m["env"].(map[string]any); ok {
			cfg.Env = make(map[string]string, len(env))
			for k, v := range env {
				cfg.Env[k] = asString(v)
			}
		}
		out = append(out, cfg)
	}
	return out
}

// parseInlineTools reads the node's `tools` prop (spec §4.8 step 3/5):
// each entry declares name, description, and either input_schema (or the
// legacy parameters shape, converted once with a deprecation warning).
func parseInlineTools(n *node.Node) []scheduler.PreparedTool {
	raw, ok := n.Prop("tools")
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]scheduler.PreparedTool, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name := asString(m["name"])
		if name == "" {
			continue
		}
		schema := inputSchemaOf(m, name)
		out = append(out, scheduler.PreparedTool{
			Name:        name,
			Description: asString(m["description"]),
			InputSchema: schema,
		})
	}
	return out
}

// inputSchemaOf extracts a tool's input_schema, converting the legacy
// `parameters` shape once with a deprecation warning (spec §4.8 step 5).
func inputSchemaOf(m map[string]any, toolName string) map[string]any {
	if s, ok := m["input_schema"].(map[string]any); ok {
		return s
	}
	if legacy, ok := m["parameters"].(map[string]any); ok {
		slog.Warn("toolprep: tool uses deprecated `parameters` shape, converting to input_schema", "tool", toolName)
		converted := map[string]any{"type": "object"}
		if props, ok := legacy["properties"]; ok {
			converted["properties"] = props
		}
		if req, ok := legacy["required"]; ok {
			converted["required"] = req
		}
		return converted
	}
	return nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// hasPlanChildren reports whether n has any non-TEXT child, mirroring
// internal/executor's prompt-splitting rule (spec §4.5 step 1): such a
// node is driving a plan, so render_node should be offered.
func hasPlanChildren(t *node.Tree, n *node.Node) bool {
	for _, cid := range n.Children {
		if t.Get(cid).Type != node.TypeText {
			return true
		}
	}
	return false
}

// renderNodeInput is the render_node tool's argument shape, used only to
// derive its JSON Schema via reflection (spec §4.8 "Its input schema is
// {node_path: string}").
type renderNodeInput struct {
	NodePath string `json:"node_path" jsonschema:"required,description=Path of the node to execute"`
}

func renderNodeSchema() map[string]any {
	r := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	schema := r.Reflect(&renderNodeInput{})
	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{
			"type":       "object",
			"properties": map[string]any{"node_path": map[string]any{"type": "string"}},
			"required":   []string{"node_path"},
		}
	}
	var m map[string]any
	if json.Unmarshal(data, &m) != nil {
		return nil
	}
	delete(m, "$schema")
	delete(m, "$id")
	return m
}

func renderNodeTool(fn RenderNodeFunc) scheduler.PreparedTool {
	return scheduler.PreparedTool{
		Name:        "render_node",
		Description: "Execute a specific plan node by its path and report the outcome.",
		InputSchema: renderNodeSchema(),
		Invoke: func(ctx context.Context, args map[string]any) (string, error) {
			path := asString(args["node_path"])
			if path == "" {
				return "", fmt.Errorf("render_node: node_path is required")
			}
			result, nodeType, err := fn(ctx, path)
			envelope := map[string]any{
				"node_type": nodeType,
				"node_path": path,
			}
			if err != nil {
				envelope["success"] = false
				envelope["error"] = err.Error()
			} else {
				envelope["success"] = true
				envelope["result"] = result
			}
			data, merr := json.Marshal(envelope)
			if merr != nil {
				return "", merr
			}
			return string(data), nil
		},
	}
}
