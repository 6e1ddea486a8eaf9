package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	afm "github.com/peridot-sh/afm"
	"github.com/peridot-sh/afm/model"
	"github.com/peridot-sh/afm/model/modeltest"
	"github.com/peridot-sh/afm/tool"
)

// scriptRunner satisfies shell.Runner with canned output.
type scriptRunner struct {
	out  string
	err  error
	argv []string
}

func (r *scriptRunner) Run(ctx context.Context, argv ...string) (string, error) {
	r.argv = argv
	return r.out, r.err
}

// run executes the command tree against a fully injected app and returns
// stdout plus the command error.
func run(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app.Out = &out
	app.ErrOut = io.Discard
	if app.Config == nil {
		app.Config = afm.DefaultConfig()
	}
	if app.Logger == nil {
		app.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if app.Tools == nil {
		app.Tools = tool.NewRegistry()
	}

	cmd := NewRootCmd(app)
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGenerateUnavailableModelFailsBeforeGeneration(t *testing.T) {
	fake := &modeltest.Fake{
		Avail: map[afm.Capability]afm.Availability{
			afm.CapabilityDefault: {Available: false, Reason: afm.ReasonDeviceIneligible},
		},
	}
	app := &App{Runtime: fake, Runner: &scriptRunner{}}

	_, err := run(t, app, "generate", "hello")
	var unavailErr *model.UnavailableError
	if !errors.As(err, &unavailErr) {
		t.Fatalf("expected *model.UnavailableError, got %v", err)
	}
	if fake.Conversations != 0 || len(fake.Prompts) != 0 {
		t.Errorf("no generation must run: conversations=%d prompts=%v",
			fake.Conversations, fake.Prompts)
	}
}

func TestGeneratePrintsResponse(t *testing.T) {
	fake := &modeltest.Fake{
		RespondFunc: func(prompt string) (string, error) { return "a haiku", nil },
	}
	app := &App{Runtime: fake, Runner: &scriptRunner{}}

	out, err := run(t, app, "generate", "write a haiku")
	if err != nil {
		t.Fatal(err)
	}
	if out != "a haiku\n" {
		t.Errorf("expected response on stdout, got %q", out)
	}
	if len(fake.Prompts) != 1 || fake.Prompts[0] != "write a haiku" {
		t.Errorf("unexpected prompts %v", fake.Prompts)
	}
}

func TestGenerateWritesOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	fake := &modeltest.Fake{
		RespondFunc: func(prompt string) (string, error) { return "file content", nil },
	}
	app := &App{Runtime: fake, Runner: &scriptRunner{}}

	out, err := run(t, app, "generate", "p", "-o", path)
	if err != nil {
		t.Fatal(err)
	}
	if out != "" {
		t.Errorf("nothing should print when writing to a file, got %q", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "file content\n" {
		t.Errorf("unexpected file content %q", data)
	}
}

func TestChatOneShot(t *testing.T) {
	fake := &modeltest.Fake{}
	app := &App{Runtime: fake, Runner: &scriptRunner{}}

	out, err := run(t, app, "chat", "hi")
	if err != nil {
		t.Fatal(err)
	}
	if out != "echo: hi\n" {
		t.Errorf("expected echoed response, got %q", out)
	}
}

func TestChatOneShotStreaming(t *testing.T) {
	fake := &modeltest.Fake{Snapshots: []string{"Hel", "Hello", "Hello!"}}
	app := &App{Runtime: fake, Runner: &scriptRunner{}}

	out, err := run(t, app, "chat", "greet", "--stream")
	if err != nil {
		t.Fatal(err)
	}
	if out != "Hello!\n" {
		t.Errorf("expected streamed deltas to add up to %q, got %q", "Hello!\n", out)
	}
}

func TestChatCheckAvailability(t *testing.T) {
	fake := &modeltest.Fake{}
	app := &App{Runtime: fake, Runner: &scriptRunner{}}

	out, err := run(t, app, "chat", "--check-availability")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, afm.DescribeHeader) {
		t.Errorf("expected availability report, got %q", out)
	}
	if fake.Conversations != 0 {
		t.Error("check-availability must not open a conversation")
	}
}

func TestChatCheckAvailabilityUnavailable(t *testing.T) {
	fake := &modeltest.Fake{
		Avail: map[afm.Capability]afm.Availability{
			afm.CapabilityDefault: {Available: false, Reason: afm.ReasonAssetsPreparing},
		},
	}
	app := &App{Runtime: fake, Runner: &scriptRunner{}}

	out, err := run(t, app, "chat", "--check-availability")
	var unavailErr *model.UnavailableError
	if !errors.As(err, &unavailErr) {
		t.Fatalf("expected *model.UnavailableError, got %v", err)
	}
	// The report still prints before the failure.
	if !strings.HasPrefix(out, afm.DescribeHeader) {
		t.Errorf("expected availability report, got %q", out)
	}
}

func TestStatusJSON(t *testing.T) {
	fake := &modeltest.Fake{
		Avail: map[afm.Capability]afm.Availability{
			afm.CapabilityTagging: {Available: false, Reason: afm.ReasonFeatureDisabled},
		},
	}
	app := &App{Runtime: fake, Runner: &scriptRunner{}}

	out, err := run(t, app, "status", "--json")
	if err != nil {
		t.Fatal(err)
	}

	var got struct {
		Status  afm.Status       `json:"status"`
		Default afm.Availability `json:"default"`
		Tagging afm.Availability `json:"tagging"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if got.Status != afm.StatusAvailable {
		t.Errorf("expected available status, got %q", got.Status)
	}
	if got.Tagging.Available || got.Tagging.Reason != afm.ReasonFeatureDisabled {
		t.Errorf("unexpected tagging availability %+v", got.Tagging)
	}
}

func TestStatusText(t *testing.T) {
	fake := &modeltest.Fake{}
	app := &App{Runtime: fake, Runner: &scriptRunner{}}

	out, err := run(t, app, "status")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, afm.DescribeHeader) {
		t.Errorf("expected the describe header first, got %q", out)
	}
	if !strings.Contains(out, "status: available") {
		t.Errorf("expected the summary line, got %q", out)
	}
}

func TestGitCommit(t *testing.T) {
	runner := &scriptRunner{out: "diff --git a/x.txt b/x.txt\n+line"}
	fake := &modeltest.Fake{
		StructuredFunc: func(prompt string) (json.RawMessage, error) {
			return json.RawMessage(`{"commitType":"add","summary":"add line","description":"adds a line to x"}`), nil
		},
	}
	app := &App{Runtime: fake, Runner: runner}

	out, err := run(t, app, "git-commit")
	if err != nil {
		t.Fatal(err)
	}
	want := "add: add line\n\n\nadds a line to x\n"
	if out != want {
		t.Errorf("expected %q, got %q", want, out)
	}
	if len(runner.argv) == 0 || runner.argv[0] != "git" {
		t.Errorf("expected a git invocation, got %v", runner.argv)
	}
}

func TestGitCommitNoStagedChanges(t *testing.T) {
	runner := &scriptRunner{out: ""}
	fake := &modeltest.Fake{}
	app := &App{Runtime: fake, Runner: runner}

	_, err := run(t, app, "git-commit")
	if err == nil || !strings.Contains(err.Error(), "no staged changes") {
		t.Fatalf("expected no-staged-changes failure, got %v", err)
	}
	if fake.Conversations != 0 {
		t.Error("no generation must run for an empty diff")
	}
}

func TestGitCommitWritesOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "msg.txt")
	runner := &scriptRunner{out: "diff --git a/x.txt b/x.txt\n+line"}
	fake := &modeltest.Fake{
		StructuredFunc: func(prompt string) (json.RawMessage, error) {
			return json.RawMessage(`{"commitType":"fix","summary":"s","description":"d"}`), nil
		},
	}
	app := &App{Runtime: fake, Runner: runner}

	if _, err := run(t, app, "git-commit", "-o", path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "fix: s\n\n\nd\n" {
		t.Errorf("unexpected file content %q", data)
	}
}

func TestRenderErrorUnavailable(t *testing.T) {
	err := &model.UnavailableError{
		Capability: afm.CapabilityDefault,
		Reason:     afm.ReasonAssetsPreparing,
	}
	got := renderError(err)
	if !strings.Contains(got, "assets") {
		t.Errorf("expected the reason in the rendering, got %q", got)
	}
}

func TestRenderErrorClassified(t *testing.T) {
	got := renderError(&model.GenerationError{Message: "boom"})
	if !strings.Contains(got, "generation error") {
		t.Errorf("expected the category label, got %q", got)
	}
}
