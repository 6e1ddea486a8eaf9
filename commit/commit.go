// Package commit synthesizes a conventional-commit-style message from the
// staged git diff via structured generation.
package commit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	afm "github.com/peridot-sh/afm"
	"github.com/peridot-sh/afm/session"
	"github.com/peridot-sh/afm/shell"
)

// ErrNoStagedChanges is returned when `git diff --staged` produces no output.
var ErrNoStagedChanges = errors.New("no staged changes")

// instructions is the fixed instruction text for commit message generation.
const instructions = `Generate a commit message from the input data.
The input is a git diff of the staged changes. Pick the commit type that best
matches the change, keep the summary under 50 characters, and keep the
description under 250 characters.`

// Synthesizer combines git diff extraction with structured generation.
type Synthesizer struct {
	runner  shell.Runner
	session *session.Client
	logger  *slog.Logger
}

// New creates a synthesizer.
func New(runner shell.Runner, sess *session.Client, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{runner: runner, session: sess, logger: logger}
}

// Synthesize reads the staged diff and generates a commit message for it.
func (s *Synthesizer) Synthesize(ctx context.Context) (afm.CommitMessage, error) {
	diff, err := s.runner.Run(ctx, "git", "diff", "--staged")
	if err != nil {
		return afm.CommitMessage{}, fmt.Errorf("cannot read staged diff: %w", err)
	}
	if strings.TrimSpace(diff) == "" {
		return afm.CommitMessage{}, ErrNoStagedChanges
	}

	s.logger.Debug("synthesizing commit message", "diff_bytes", len(diff))

	var msg afm.CommitMessage
	err = s.session.GenerateStructured(ctx, diff, MessageSchema(), &msg, session.Options{
		Instructions: instructions,
	})
	if err != nil {
		return afm.CommitMessage{}, err
	}
	return msg, nil
}

// MessageSchema is the structured-output schema for commit messages.
func MessageSchema() *jsonschema.Schema {
	types := afm.CommitTypes()
	enum := make([]any, len(types))
	for i, t := range types {
		enum[i] = string(t)
	}
	return &jsonschema.Schema{
		Type:     "object",
		Required: []string{"commitType", "summary", "description"},
		Properties: map[string]*jsonschema.Schema{
			"commitType": {
				Type:        "string",
				Enum:        enum,
				Description: "Category of the change.",
			},
			"summary": {
				Type:        "string",
				Description: "One-line summary of the change, at most 50 characters.",
			},
			"description": {
				Type:        "string",
				Description: "Short explanation of the change, at most 250 characters.",
			},
		},
	}
}
