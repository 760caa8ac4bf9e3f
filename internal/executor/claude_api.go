package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/evmts/smithers/internal/node"
	"github.com/evmts/smithers/internal/scheduler"
	"github.com/evmts/smithers/pkg/httpclient"
)

const defaultMaxToolIterations = 10

// ClaudeAPI is the claude-api executor variant: a direct chat-completion
// call against the Anthropic Messages API with a hand-rolled tool loop
// (spec §4.5). Grounded on llms/anthropic.go's AnthropicRequest/Response
// shapes and retry strategy, reusing pkg/httpclient (the teacher's own
// extracted retry/backoff/header-parsing client) instead of re-deriving the
// request loop hector keeps inline in AnthropicProvider.makeRequest.
type ClaudeAPI struct {
	APIKey       string
	BaseURL      string // defaults to https://api.anthropic.com
	DefaultModel string
	HTTP         *httpclient.Client
}

// NewClaudeAPI builds a ClaudeAPI executor with an Anthropic-tuned
// httpclient.Client (SmartRetry on 429/503 via ParseAnthropicHeaders,
// ConservativeRetry on 5xx, matching spec §4.5 "Retry / backoff": up to 3
// attempts, 1000*2^attempt ms backoff).
func NewClaudeAPI(apiKey string) *ClaudeAPI {
	return &ClaudeAPI{
		APIKey:       apiKey,
		BaseURL:      "https://api.anthropic.com",
		DefaultModel: "claude-sonnet-4-5-20250929",
		HTTP: httpclient.New(
			httpclient.WithMaxRetries(3),
			httpclient.WithBaseDelay(1*time.Second),
			httpclient.WithHeaderParser(httpclient.ParseAnthropicHeaders),
		),
	}
}

type apiMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type apiTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system,omitempty"`
	Messages  []apiMessage `json:"messages"`
	Tools     []apiTool    `json:"tools,omitempty"`
}

type apiContentBlock struct {
	Type      string         `json:"type"`
	Text      string         `json:"text,omitempty"`
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Content   string         `json:"content,omitempty"`
	IsError   bool           `json:"is_error,omitempty"`
}

type apiResponse struct {
	Content    []apiContentBlock `json:"content"`
	StopReason string            `json:"stop_reason"`
	Usage      *apiUsage         `json:"usage,omitempty"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// apiUsage is the Anthropic Messages API's reported token accounting,
// consumed by the rate/budget provider (spec §4.9) via scheduler.Result.Usage.
type apiUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Execute implements scheduler.AgentExecutor for the claude-api node type.
func (c *ClaudeAPI) Execute(ctx context.Context, t *node.Tree, n *node.Node, path string, opts scheduler.ExecuteOptions, tools []scheduler.PreparedTool) (scheduler.Result, error) {
	if opts.MockMode {
		return scheduler.Result{Text: "mock:" + path}, nil
	}

	prompt := BuildPrompt(t, n)
	model := n.PropString("model", c.DefaultModel)
	maxTokens := n.PropInt("maxTokens", 4096)
	maxIterations := n.PropInt("maxToolIterations", defaultMaxToolIterations)

	req := apiRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    prompt.System,
		Messages:  []apiMessage{{Role: "user", Content: prompt.Body}},
		Tools:     toAPITools(tools),
	}

	var totalUsage scheduler.Usage
	for iter := 0; iter < maxIterations; iter++ {
		resp, err := c.send(ctx, req)
		if err != nil {
			return scheduler.Result{}, &Error{Kind: KindAPIError, NodePath: path, Message: err.Error(), Cause: err}
		}
		if resp.Error != nil {
			return scheduler.Result{}, &Error{Kind: KindAPIError, NodePath: path, Message: fmt.Sprintf("Anthropic API error (%s): %s", resp.Error.Type, resp.Error.Message)}
		}

		var text string
		var toolUses []apiContentBlock
		for _, block := range resp.Content {
			switch block.Type {
			case "text":
				text += block.Text
				if opts.OnStream != nil {
					opts.OnStream(scheduler.StreamEvent{Type: "text", Text: block.Text})
				}
			case "tool_use":
				toolUses = append(toolUses, block)
				if opts.OnStream != nil {
					opts.OnStream(scheduler.StreamEvent{Type: "tool_use", ToolUse: &scheduler.ToolUseEvent{ID: block.ID, Name: block.Name, Input: block.Input}})
				}
			}
		}

		if resp.Usage != nil {
			totalUsage.InputTokens += resp.Usage.InputTokens
			totalUsage.OutputTokens += resp.Usage.OutputTokens
			totalUsage.CostUSD += estimateCostUSD(model, resp.Usage.InputTokens, resp.Usage.OutputTokens)
		} else {
			// The API omitted usage (unexpected but not fatal): fall back to
			// a tiktoken-go estimate so the budget provider still has
			// something to debit.
			est := estimatedUsage(model, prompt.System+prompt.Body, text)
			totalUsage.InputTokens += est.InputTokens
			totalUsage.OutputTokens += est.OutputTokens
			totalUsage.CostUSD += est.CostUSD
		}

		if resp.StopReason == "end_turn" || len(toolUses) == 0 {
			return scheduler.Result{Text: text, Usage: totalUsage}, nil
		}

		assistantContent := make([]apiContentBlock, 0, len(toolUses)+1)
		if text != "" {
			assistantContent = append(assistantContent, apiContentBlock{Type: "text", Text: text})
		}
		assistantContent = append(assistantContent, toolUses...)
		req.Messages = append(req.Messages, apiMessage{Role: "assistant", Content: assistantContent})

		results := make([]apiContentBlock, 0, len(toolUses))
		for _, tu := range toolUses {
			results = append(results, c.invokeTool(ctx, tu, tools))
		}
		req.Messages = append(req.Messages, apiMessage{Role: "user", Content: results})

		if iter == maxIterations-1 {
			return scheduler.Result{Text: text, Usage: totalUsage}, nil // cap hit: warn-and-return, not throw (spec §4.5)
		}
	}

	return scheduler.Result{}, &Error{Kind: KindAPIError, NodePath: path, Message: "unreachable: tool loop exited without a result"}
}

func (c *ClaudeAPI) invokeTool(ctx context.Context, tu apiContentBlock, tools []scheduler.PreparedTool) apiContentBlock {
	for _, tool := range tools {
		if tool.Name != tu.Name {
			continue
		}
		if tool.Invoke == nil {
			return apiContentBlock{Type: "tool_result", ToolUseID: tu.ID, Content: "tool has no executor", IsError: true}
		}
		out, err := tool.Invoke(ctx, tu.Input)
		if err != nil {
			return apiContentBlock{Type: "tool_result", ToolUseID: tu.ID, Content: err.Error(), IsError: true}
		}
		return apiContentBlock{Type: "tool_result", ToolUseID: tu.ID, Content: out}
	}
	return apiContentBlock{Type: "tool_result", ToolUseID: tu.ID, Content: fmt.Sprintf("no tool named %q", tu.Name), IsError: true}
}

func (c *ClaudeAPI) send(ctx context.Context, body apiRequest) (*apiResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/messages", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if re, ok := err.(*httpclient.RetryableError); ok {
			return nil, &Error{Kind: KindRateLimit, Message: re.Error(), RetryAfter: re.RetryAfter, Cause: re}
		}
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed apiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &parsed, nil
}

func toAPITools(tools []scheduler.PreparedTool) []apiTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]apiTool, len(tools))
	for i, t := range tools {
		out[i] = apiTool{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema}
	}
	return out
}
