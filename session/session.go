// Package session orchestrates generation requests over a reusable runtime
// conversation: create-or-reuse policy, batch and structured generation, and
// streaming relay with incremental diffing.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/peridot-sh/afm/model"
	"github.com/peridot-sh/afm/tool"
)

// Options configure one generation call.
type Options struct {
	// Instructions seed a newly created conversation. On a reused
	// conversation they are logged and ignored.
	Instructions string
	// Tools to bind. A non-empty set always forces a fresh conversation,
	// because tool bindings are immutable per conversation.
	Tools []tool.Handle
}

// DecodeError reports structured output that did not conform to the
// requested schema.
type DecodeError struct {
	Raw json.RawMessage
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("structured output does not conform to schema: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Client owns one conversation context and applies the session reuse policy.
// A Client is not safe for concurrent use; the CLI issues at most one
// generation call at a time.
type Client struct {
	runtime model.Runtime
	logger  *slog.Logger
	convo   model.Conversation
}

// New creates a session client on top of the given runtime.
func New(rt model.Runtime, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{runtime: rt, logger: logger}
}

// acquire returns the conversation for this call per the reuse policy:
// a non-empty tool set always constructs a fresh conversation; without tools
// an existing conversation is reused and new instructions are only logged.
// The asymmetry (tool changes force a new session, instruction changes on a
// no-tool session do not) is deliberate and covered by tests.
func (c *Client) acquire(ctx context.Context, opts Options) (model.Conversation, error) {
	if len(opts.Tools) > 0 {
		convo, err := c.runtime.NewConversation(ctx, model.ConversationOptions{
			Instructions: opts.Instructions,
			Tools:        opts.Tools,
		})
		if err != nil {
			return nil, err
		}
		c.logger.Debug("created tool-bound session", "tools", len(opts.Tools))
		c.convo = convo
		return convo, nil
	}

	if c.convo != nil {
		if opts.Instructions != "" {
			c.logger.Debug("reusing session; new instructions ignored",
				"instructions", opts.Instructions)
		}
		return c.convo, nil
	}

	convo, err := c.runtime.NewConversation(ctx, model.ConversationOptions{
		Instructions: opts.Instructions,
	})
	if err != nil {
		return nil, err
	}
	c.logger.Debug("created session")
	c.convo = convo
	return convo, nil
}

// Generate runs a single request/response exchange and returns the full text.
func (c *Client) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	convo, err := c.acquire(ctx, opts)
	if err != nil {
		return "", err
	}
	return convo.Respond(ctx, prompt)
}

// GenerateStructured requests schema-conformant output and decodes it into
// out. Output that does not validate against the schema or does not decode
// produces a *DecodeError.
func (c *Client) GenerateStructured(ctx context.Context, prompt string, schema *jsonschema.Schema, out any, opts Options) error {
	convo, err := c.acquire(ctx, opts)
	if err != nil {
		return err
	}

	raw, err := convo.RespondStructured(ctx, prompt, schema)
	if err != nil {
		return err
	}

	resolved, err := schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("cannot resolve schema: %w", err)
	}
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return &DecodeError{Raw: raw, Err: err}
	}
	if err := resolved.Validate(instance); err != nil {
		return &DecodeError{Raw: raw, Err: err}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &DecodeError{Raw: raw, Err: err}
	}
	return nil
}

// Stream opens a streaming exchange. The runtime delivers cumulative
// snapshots; onUpdate receives only the newly appended suffix of each, in
// arrival order, non-overlapping. When ctx is cancelled mid-stream no
// further updates are delivered and the ctx error is returned. The final
// aggregated text is returned after the stream completes.
func (c *Client) Stream(ctx context.Context, prompt string, opts Options, onUpdate func(delta string)) (string, error) {
	convo, err := c.acquire(ctx, opts)
	if err != nil {
		return "", err
	}

	var emitted int // length of the cumulative text already relayed
	final, err := convo.StreamRespond(ctx, prompt, func(snapshot string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(snapshot) <= emitted {
			return nil
		}
		delta := snapshot[emitted:]
		emitted = len(snapshot)
		onUpdate(delta)
		return nil
	})
	if err != nil {
		return "", err
	}
	return final, nil
}
