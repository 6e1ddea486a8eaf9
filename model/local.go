package model

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/jellydator/ttlcache/v3"

	afm "github.com/peridot-sh/afm"
	"github.com/peridot-sh/afm/tool"
)

// availabilityTTL bounds how long a probe result is trusted before the
// runtime is asked again.
const availabilityTTL = time.Minute

// maxToolRounds caps the number of tool-call rounds within one exchange so a
// misbehaving model cannot loop forever.
const maxToolRounds = 8

// Local talks to an OpenAI-compatible runtime server on this machine.
type Local struct {
	baseURL      string
	apiKey       string
	model        string
	taggingModel string
	maxTokens    int
	temperature  float64
	client       *http.Client
	logger       *slog.Logger

	avail *ttlcache.Cache[afm.Capability, afm.Availability]
}

// NewLocal creates a runtime binding from config.
func NewLocal(cfg *afm.Config, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := time.Duration(cfg.Runtime.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	avail := ttlcache.New[afm.Capability, afm.Availability](
		ttlcache.WithTTL[afm.Capability, afm.Availability](availabilityTTL),
		ttlcache.WithDisableTouchOnHit[afm.Capability, afm.Availability](),
	)
	return &Local{
		baseURL:      strings.TrimRight(afm.ResolveBaseURL(cfg), "/"),
		apiKey:       afm.ResolveAPIKey(cfg),
		model:        afm.ResolveModel(cfg),
		taggingModel: afm.ResolveTaggingModel(cfg),
		maxTokens:    cfg.Runtime.MaxTokens,
		temperature:  cfg.Runtime.Temperature,
		client:       &http.Client{Timeout: timeout},
		logger:       logger,
		avail:        avail,
	}
}

// NewConversation opens a conversation bound to the given instructions and
// tools.
func (l *Local) NewConversation(ctx context.Context, opts ConversationOptions) (Conversation, error) {
	c := &localConversation{rt: l, tools: opts.Tools}
	if opts.Instructions != "" {
		c.messages = append(c.messages, chatMessage{Role: "system", Content: opts.Instructions})
	}
	return c, nil
}

// --- Availability ---

type modelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Check probes one capability against the runtime's model list. Results are
// cached for a short time.
func (l *Local) Check(ctx context.Context, cap afm.Capability) afm.Availability {
	if item := l.avail.Get(cap); item != nil {
		return item.Value()
	}
	a := l.probe(ctx, cap)
	l.avail.Set(cap, a, ttlcache.DefaultTTL)
	return a
}

func (l *Local) probe(ctx context.Context, cap afm.Capability) afm.Availability {
	name := l.model
	if cap == afm.CapabilityTagging {
		name = l.taggingModel
		if name == "" {
			return afm.Availability{Available: false, Reason: afm.ReasonFeatureDisabled}
		}
	}

	req, err := http.NewRequestWithContext(ctx, "GET", l.baseURL+"/models", nil)
	if err != nil {
		return afm.Availability{Available: false, Reason: afm.ReasonUnknown}
	}
	l.setHeaders(req)

	resp, err := l.client.Do(req)
	if err != nil {
		// The runtime is not reachable at all.
		l.logger.Debug("availability probe failed", "capability", cap, "error", err)
		return afm.Availability{Available: false, Reason: afm.ReasonFeatureDisabled}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return afm.Availability{Available: false, Reason: afm.ReasonAssetsPreparing}
	case resp.StatusCode != http.StatusOK:
		return afm.Availability{Available: false, Reason: afm.ReasonUnknown}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return afm.Availability{Available: false, Reason: afm.ReasonUnknown}
	}
	var models modelsResponse
	if err := json.Unmarshal(body, &models); err != nil {
		return afm.Availability{Available: false, Reason: afm.ReasonUnknown}
	}
	for _, m := range models.Data {
		if m.ID == name {
			return afm.Availability{Available: true}
		}
	}
	return afm.Availability{Available: false, Reason: afm.ReasonDeviceIneligible}
}

// --- Chat Completions wire types ---

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature,omitempty"`
	Stream         bool            `json:"stream,omitempty"`
	Tools          []toolDef       `json:"tools,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type toolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function functionCall `json:"function"`
}

type functionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type toolDef struct {
	Type     string      `json:"type"`
	Function functionDef `json:"function"`
}

type functionDef struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

type responseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *jsonSchemaFormat `json:"json_schema,omitempty"`
}

type jsonSchemaFormat struct {
	Name   string             `json:"name"`
	Strict bool               `json:"strict"`
	Schema *jsonschema.Schema `json:"schema"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// --- Conversation ---

// localConversation accumulates message history across exchanges.
type localConversation struct {
	rt       *Local
	messages []chatMessage
	tools    []tool.Handle
}

// Respond runs one exchange, driving tool calls until the model produces a
// final answer.
func (c *localConversation) Respond(ctx context.Context, prompt string) (string, error) {
	c.messages = append(c.messages, chatMessage{Role: "user", Content: prompt})

	for round := 0; round < maxToolRounds; round++ {
		req := chatRequest{
			Model:       c.rt.model,
			Messages:    c.messages,
			MaxTokens:   c.rt.maxTokens,
			Temperature: c.rt.temperature,
			Tools:       c.toolDefs(),
		}
		resp, err := c.rt.complete(ctx, req)
		if err != nil {
			return "", err
		}

		msg := resp.Choices[0].Message
		c.messages = append(c.messages, msg)

		if len(msg.ToolCalls) == 0 {
			return msg.Content, nil
		}
		if err := c.runToolCalls(ctx, msg.ToolCalls); err != nil {
			return "", err
		}
	}
	return "", &GenerationError{Message: fmt.Sprintf("no final answer after %d tool rounds", maxToolRounds)}
}

// RespondStructured runs one exchange constrained to the given schema.
// Tool calls are not offered during structured generation.
func (c *localConversation) RespondStructured(ctx context.Context, prompt string, schema *jsonschema.Schema) (json.RawMessage, error) {
	c.messages = append(c.messages, chatMessage{Role: "user", Content: prompt})

	req := chatRequest{
		Model:       c.rt.model,
		Messages:    c.messages,
		MaxTokens:   c.rt.maxTokens,
		Temperature: c.rt.temperature,
		ResponseFormat: &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchemaFormat{
				Name:   "response",
				Strict: true,
				Schema: schema,
			},
		},
	}
	resp, err := c.rt.complete(ctx, req)
	if err != nil {
		return nil, err
	}

	msg := resp.Choices[0].Message
	c.messages = append(c.messages, msg)
	return json.RawMessage(msg.Content), nil
}

// StreamRespond streams one exchange, delivering cumulative snapshots of the
// output to fn as deltas arrive.
func (c *localConversation) StreamRespond(ctx context.Context, prompt string, fn func(snapshot string) error) (string, error) {
	c.messages = append(c.messages, chatMessage{Role: "user", Content: prompt})

	req := chatRequest{
		Model:       c.rt.model,
		Messages:    c.messages,
		MaxTokens:   c.rt.maxTokens,
		Temperature: c.rt.temperature,
		Stream:      true,
	}
	data, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.rt.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	c.rt.setHeaders(httpReq)

	resp, err := c.rt.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &GenerationError{Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &GenerationError{Message: fmt.Sprintf("API error (status %d): %s", resp.StatusCode, string(body))}
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return "", &GenerationError{Message: "failed to parse stream chunk", Cause: err}
		}
		if chunk.Error != nil {
			return "", &GenerationError{Message: chunk.Error.Message}
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}

		full.WriteString(chunk.Choices[0].Delta.Content)
		if err := fn(full.String()); err != nil {
			return "", err
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &GenerationError{Message: "stream read failed", Cause: err}
	}

	text := full.String()
	c.messages = append(c.messages, chatMessage{Role: "assistant", Content: text})
	return text, nil
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

// toolDefs renders the bound tools in the wire format.
func (c *localConversation) toolDefs() []toolDef {
	if len(c.tools) == 0 {
		return nil
	}
	defs := make([]toolDef, len(c.tools))
	for i, h := range c.tools {
		defs[i] = toolDef{
			Type: "function",
			Function: functionDef{
				Name:        h.Name,
				Description: h.Description,
				Parameters:  h.Schema,
			},
		}
	}
	return defs
}

// runToolCalls invokes each requested tool and appends the results to the
// conversation.
func (c *localConversation) runToolCalls(ctx context.Context, calls []toolCall) error {
	for _, call := range calls {
		handle, ok := c.findTool(call.Function.Name)
		if !ok {
			return &tool.InvocationError{
				Tool: call.Function.Name,
				Err:  fmt.Errorf("not bound to this conversation"),
			}
		}
		c.rt.logger.Debug("invoking tool", "tool", call.Function.Name)
		out, err := handle.Invoke(ctx, json.RawMessage(call.Function.Arguments))
		if err != nil {
			return &tool.InvocationError{Tool: call.Function.Name, Err: err}
		}
		c.messages = append(c.messages, chatMessage{
			Role:       "tool",
			Content:    out,
			ToolCallID: call.ID,
		})
	}
	return nil
}

func (c *localConversation) findTool(name string) (tool.Handle, bool) {
	for _, h := range c.tools {
		if h.Name == name {
			return h, true
		}
	}
	return tool.Handle{}, false
}

// complete sends one non-streaming chat completion request.
func (l *Local) complete(ctx context.Context, req chatRequest) (*chatResponse, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", l.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	l.setHeaders(httpReq)

	resp, err := l.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &GenerationError{Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GenerationError{Message: "failed to read response", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &GenerationError{Message: fmt.Sprintf("API error (status %d): %s", resp.StatusCode, string(body))}
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &GenerationError{Message: fmt.Sprintf("failed to parse response (body: %s)", string(body)), Cause: err}
	}
	if result.Error != nil {
		return nil, &GenerationError{Message: result.Error.Message}
	}
	if len(result.Choices) == 0 {
		return nil, &GenerationError{Message: "no choices in response"}
	}
	return &result, nil
}

// setHeaders sets common headers for API requests.
func (l *Local) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if l.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+l.apiKey)
	}
}
