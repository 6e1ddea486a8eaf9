// Package model abstracts the on-device generation runtime. The
// orchestration layer talks to the Runtime and Conversation interfaces only,
// so it can be exercised against a fake; Local binds them to an
// OpenAI-compatible local runtime server.
package model

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"golang.org/x/sync/errgroup"

	afm "github.com/peridot-sh/afm"
	"github.com/peridot-sh/afm/tool"
)

// ConversationOptions configures a new conversation. Tools are bound for the
// conversation's whole lifetime.
type ConversationOptions struct {
	Instructions string
	Tools        []tool.Handle
}

// Runtime is the external generation capability this layer delegates to.
type Runtime interface {
	// NewConversation opens a fresh conversation context.
	NewConversation(ctx context.Context, opts ConversationOptions) (Conversation, error)
	// Check probes one capability. Absence of the capability is a normal
	// result, never an error.
	Check(ctx context.Context, cap afm.Capability) afm.Availability
}

// Conversation is one bound conversational context. Implementations
// accumulate history across calls.
type Conversation interface {
	// Respond runs a single request/response exchange.
	Respond(ctx context.Context, prompt string) (string, error)
	// RespondStructured requests output conforming to the given schema and
	// returns the raw JSON value.
	RespondStructured(ctx context.Context, prompt string, schema *jsonschema.Schema) (json.RawMessage, error)
	// StreamRespond opens a streaming exchange. fn receives cumulative
	// snapshots of the output, each a prefix extension of the previous.
	// Returning an error from fn aborts the stream. The final aggregated
	// text is returned after the stream completes.
	StreamRespond(ctx context.Context, prompt string, fn func(snapshot string) error) (string, error)
}

// GenerationError is a runtime-reported generation failure (content
// filtered, context too large, server-side error). It is opaque to the
// orchestration layer and never retried.
type GenerationError struct {
	Message string
	Cause   error
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("generation failed: %s: %v", e.Message, e.Cause)
	}
	return "generation failed: " + e.Message
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// UnavailableError reports that a required capability is absent. It is fatal
// for the invocation.
type UnavailableError struct {
	Capability afm.Capability
	Reason     afm.Reason
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("model capability %q is unavailable (%s)", e.Capability, e.Reason)
}

// CheckAll probes both capabilities concurrently.
func CheckAll(ctx context.Context, rt Runtime) afm.AvailabilityInfo {
	var info afm.AvailabilityInfo
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		info.Default = rt.Check(ctx, afm.CapabilityDefault)
		return nil
	})
	g.Go(func() error {
		info.Tagging = rt.Check(ctx, afm.CapabilityTagging)
		return nil
	})
	_ = g.Wait() // probes never return errors
	return info
}
