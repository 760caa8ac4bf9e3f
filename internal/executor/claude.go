package executor

import (
	"context"
	"fmt"

	"github.com/evmts/smithers/a2a"
	"github.com/google/uuid"

	"github.com/evmts/smithers/internal/node"
	"github.com/evmts/smithers/internal/scheduler"
)

// Claude is the claude executor variant: Agent SDK mode, dispatched as an
// A2A protocol task against a configured agent endpoint rather than a raw
// chat-completion call (spec §4.5: built-in tool configuration, sub-agents,
// structured output via `schema`, `resume`). Grounded on
// agent/a2a_agent.go's A2AAgent, generalized from a fixed discovered
// AgentCard to one resolved per node from the node's own `agentURL` prop
// (or a shared default), since Smithers nodes address agents dynamically
// rather than through a static card registry.
type Claude struct {
	Client     *a2a.Client
	DefaultURL string
	cards      map[string]*a2a.AgentCard
}

// NewClaude builds a Claude executor over a fresh A2A client.
func NewClaude(defaultAgentURL string, auth *a2a.AuthCredentials) *Claude {
	return &Claude{
		Client:     a2a.NewClient(&a2a.ClientConfig{Auth: auth}),
		DefaultURL: defaultAgentURL,
		cards:      make(map[string]*a2a.AgentCard),
	}
}

// Execute implements scheduler.AgentExecutor for the claude node type.
func (c *Claude) Execute(ctx context.Context, t *node.Tree, n *node.Node, path string, opts scheduler.ExecuteOptions, tools []scheduler.PreparedTool) (scheduler.Result, error) {
	if opts.MockMode {
		return scheduler.Result{Text: "mock:" + path}, nil
	}

	prompt := BuildPrompt(t, n)
	agentURL := n.PropString("agentURL", c.DefaultURL)
	if agentURL == "" {
		return scheduler.Result{}, &Error{Kind: KindAPIError, NodePath: path, Message: "no agentURL configured for claude node and no default set"}
	}

	card, err := c.cardFor(ctx, agentURL)
	if err != nil {
		return scheduler.Result{}, &Error{Kind: KindAPIError, NodePath: path, Message: err.Error(), Cause: err}
	}

	params := map[string]any{
		"model":             n.PropString("model", ""),
		"maxTurns":          n.PropInt("maxTurns", 0),
		"maxBudgetUsd":      n.PropFloat("maxBudgetUsd", 0),
		"maxThinkingTokens": n.PropInt("maxThinkingTokens", 0),
		"permissionMode":    n.PropString("permissionMode", ""),
		"cwd":               n.PropString("cwd", ""),
		"resume":            n.PropString("resume", ""),
		"allowedTools":      toCSV(firstProp(n, "allowedTools")),
		"disallowedTools":   toCSV(firstProp(n, "disallowedTools")),
		"tools":             toolNames(tools),
	}
	if schema, ok := n.Prop("schema"); ok {
		params["schema"] = schema
	}

	req := &a2a.TaskRequest{
		TaskID:     uuid.NewString(),
		Input:      a2a.TaskInput{Type: "text/plain", Content: prompt.Body},
		Parameters: params,
		Context: &a2a.TaskContext{
			Metadata: map[string]string{"system": prompt.System, "nodePath": path},
		},
	}

	resp, err := c.Client.ExecuteTaskRequest(ctx, card, req)
	if err != nil {
		return scheduler.Result{}, &Error{Kind: KindAPIError, NodePath: path, Message: err.Error(), Cause: err}
	}
	if resp.Status == a2a.TaskStatusFailed && resp.Error != nil {
		return scheduler.Result{}, &Error{Kind: KindAPIError, NodePath: path, Message: resp.Error.Message}
	}

	text := a2a.ExtractOutputText(resp.Output)
	usage := estimatedUsage(n.PropString("model", ""), prompt.System+prompt.Body, text)
	if _, hasSchema := n.Prop("schema"); hasSchema && resp.Output != nil {
		return scheduler.Result{Text: text, Structured: resp.Output.Content, Usage: usage}, nil
	}
	return scheduler.Result{Text: text, Usage: usage}, nil
}

func (c *Claude) cardFor(ctx context.Context, agentURL string) (*a2a.AgentCard, error) {
	if card, ok := c.cards[agentURL]; ok {
		return card, nil
	}
	card, err := c.Client.DiscoverAgent(ctx, agentURL)
	if err != nil {
		return nil, fmt.Errorf("discover agent at %s: %w", agentURL, err)
	}
	c.cards[agentURL] = card
	return card, nil
}

func firstProp(n *node.Node, key string) any {
	v, _ := n.Prop(key)
	return v
}

func toolNames(tools []scheduler.PreparedTool) []string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return names
}
