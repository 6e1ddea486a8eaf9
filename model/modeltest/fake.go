// Package modeltest provides a scripted fake runtime for tests that exercise
// the orchestration layer without a real model.
package modeltest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	afm "github.com/peridot-sh/afm"
	"github.com/peridot-sh/afm/model"
)

// Fake implements model.Runtime with scripted responses. The zero value
// reports every capability available and echoes prompts back.
type Fake struct {
	// Avail overrides capability probes. Missing keys report available.
	Avail map[afm.Capability]afm.Availability

	// RespondFunc produces batch responses. Nil echoes the prompt.
	RespondFunc func(prompt string) (string, error)
	// StructuredFunc produces structured responses. Nil returns "{}".
	StructuredFunc func(prompt string) (json.RawMessage, error)
	// Snapshots is the scripted sequence of cumulative stream snapshots.
	Snapshots []string

	// Conversations counts NewConversation calls; each conversation carries
	// its ordinal as ID so tests can assert reuse vs. recreation.
	Conversations int
	// Prompts records every prompt any conversation received.
	Prompts []string
	// NewConversationErr, when set, fails conversation creation.
	NewConversationErr error
}

// NewConversation returns a fresh scripted conversation.
func (f *Fake) NewConversation(ctx context.Context, opts model.ConversationOptions) (model.Conversation, error) {
	if f.NewConversationErr != nil {
		return nil, f.NewConversationErr
	}
	f.Conversations++
	return &Conversation{Fake: f, ID: f.Conversations, Opts: opts}, nil
}

// Check reports scripted availability, defaulting to available.
func (f *Fake) Check(ctx context.Context, cap afm.Capability) afm.Availability {
	if a, ok := f.Avail[cap]; ok {
		return a
	}
	return afm.Availability{Available: true}
}

// Conversation is a scripted model.Conversation handed out by Fake.
type Conversation struct {
	Fake *Fake
	// ID is the conversation's creation ordinal, starting at 1.
	ID int
	// Opts are the options the conversation was created with.
	Opts model.ConversationOptions
}

func (c *Conversation) Respond(ctx context.Context, prompt string) (string, error) {
	c.Fake.Prompts = append(c.Fake.Prompts, prompt)
	if c.Fake.RespondFunc != nil {
		return c.Fake.RespondFunc(prompt)
	}
	return "echo: " + prompt, nil
}

func (c *Conversation) RespondStructured(ctx context.Context, prompt string, schema *jsonschema.Schema) (json.RawMessage, error) {
	c.Fake.Prompts = append(c.Fake.Prompts, prompt)
	if c.Fake.StructuredFunc != nil {
		return c.Fake.StructuredFunc(prompt)
	}
	return json.RawMessage("{}"), nil
}

func (c *Conversation) StreamRespond(ctx context.Context, prompt string, fn func(snapshot string) error) (string, error) {
	c.Fake.Prompts = append(c.Fake.Prompts, prompt)
	if len(c.Fake.Snapshots) == 0 {
		return "", fmt.Errorf("modeltest: no snapshots scripted")
	}
	for _, s := range c.Fake.Snapshots {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := fn(s); err != nil {
			return "", err
		}
	}
	return c.Fake.Snapshots[len(c.Fake.Snapshots)-1], nil
}
