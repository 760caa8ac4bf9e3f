package toolprep

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/evmts/smithers/pkg/registry"
)

// ServerConfig describes one entry of a node's `mcpServers` prop (spec
// §4.8 step 1). Only the stdio transport is implemented directly; sse and
// streamable-http are intentionally out of scope here (spec §1 treats the
// MCP transport itself as opaque) and are left for a future transport, the
// way mcptoolset.go splits connectStdio/connectHTTP into two code paths
// behind the same Toolset.
type ServerConfig struct {
	Name    string
	Command string
	Args    []string
	Env     map[string]string
}

// mcpConn is a live, named connection to one MCP tool server. Connections
// survive across nodes that declare the same server name (spec §4.8 step 1
// "connections survive across nodes that share a server").
type mcpConn struct {
	name string

	mu        sync.Mutex
	client    *client.Client
	tools     []mcp.Tool
	connected bool
}

// serverPool holds every mcpConn opened so far, keyed by server name. It
// is shared across every Preparer.Prepare call for the lifetime of a run,
// mirroring the lazy-connect-once semantics of mcptoolset.Toolset but
// scoped to the whole scheduler run rather than to a single Toolset value.
type serverPool struct {
	reg *registry.BaseRegistry[*mcpConn]
}

func newServerPool() *serverPool {
	return &serverPool{reg: registry.NewBaseRegistry[*mcpConn]()}
}

// connect returns the named connection, opening it on first use. Register
// races are resolved by re-fetching: BaseRegistry.Register errors on a
// duplicate name, which here just means another goroutine won the race to
// create it first.
func (p *serverPool) connect(ctx context.Context, cfg ServerConfig) (*mcpConn, error) {
	if existing, ok := p.reg.Get(cfg.Name); ok {
		if err := existing.ensureConnected(ctx, cfg); err != nil {
			return nil, err
		}
		return existing, nil
	}

	conn := &mcpConn{name: cfg.Name}
	if err := p.reg.Register(cfg.Name, conn); err != nil {
		conn, _ = p.reg.Get(cfg.Name)
	}
	if err := conn.ensureConnected(ctx, cfg); err != nil {
		return nil, err
	}
	return conn, nil
}

func (c *mcpConn) ensureConnected(ctx context.Context, cfg ServerConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return nil
	}

	mcpClient, err := client.NewStdioMCPClient(cfg.Command, envSlice(cfg.Env), cfg.Args...)
	if err != nil {
		return fmt.Errorf("mcp server %q: create client: %w", cfg.Name, err)
	}
	if err := mcpClient.Start(ctx); err != nil {
		return fmt.Errorf("mcp server %q: start: %w", cfg.Name, err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: "smithers", Version: "0.1.0"}
	initReq.Params.ProtocolVersion = "2024-11-05"
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return fmt.Errorf("mcp server %q: initialize: %w", cfg.Name, err)
	}

	listResp, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		mcpClient.Close()
		return fmt.Errorf("mcp server %q: list tools: %w", cfg.Name, err)
	}

	c.client = mcpClient
	c.tools = listResp.Tools
	c.connected = true
	return nil
}

// call invokes a tool by name on this server, mapping the response's text
// content back to a single string (spec §4.8 step 4 "maps the server's
// text content back to a string result; a non-success response raises an
// error").
func (c *mcpConn) call(ctx context.Context, name string, args map[string]any) (string, error) {
	c.mu.Lock()
	mcpClient := c.client
	c.mu.Unlock()
	if mcpClient == nil {
		return "", fmt.Errorf("mcp server %q: not connected", c.name)
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	resp, err := mcpClient.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("mcp tool %q: call: %w", name, err)
	}
	if resp.IsError {
		for _, content := range resp.Content {
			if tc, ok := content.(mcp.TextContent); ok {
				return "", fmt.Errorf("mcp tool %q: %s", name, tc.Text)
			}
		}
		return "", fmt.Errorf("mcp tool %q: unknown error", name)
	}

	var texts []string
	for _, content := range resp.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	joined := ""
	for i, t := range texts {
		if i > 0 {
			joined += "\n"
		}
		joined += t
	}
	return joined, nil
}

func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

func convertSchema(schema mcp.ToolInputSchema) map[string]any {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var result map[string]any
	if json.Unmarshal(data, &result) != nil {
		return nil
	}
	return result
}
