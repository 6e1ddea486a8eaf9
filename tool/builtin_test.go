package tool

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// recordingRunner records the argv it was asked to run.
type recordingRunner struct {
	argv []string
	out  string
	err  error
}

func (r *recordingRunner) Run(ctx context.Context, argv ...string) (string, error) {
	r.argv = argv
	return r.out, r.err
}

func TestBuiltinsRegisterAllTools(t *testing.T) {
	r := Builtins(&recordingRunner{}, nil)
	want := []string{"currentTime", "getEnv", "listFiles", "readFile", "runCommand"}
	got := r.ListNames()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
			break
		}
	}
}

func TestCurrentTime(t *testing.T) {
	r := Builtins(&recordingRunner{}, nil)
	h, _ := r.Find("currentTime")
	out, err := h.Invoke(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	if out == "" {
		t.Error("expected non-empty timestamp")
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	if err := os.WriteFile(path, []byte("contents"), 0644); err != nil {
		t.Fatal(err)
	}

	r := Builtins(&recordingRunner{}, nil)
	h, _ := r.Find("readFile")
	args, _ := json.Marshal(ReadFileInput{Path: path})
	out, err := h.Invoke(context.Background(), args)
	if err != nil {
		t.Fatal(err)
	}
	if out != "contents" {
		t.Errorf("expected file contents, got %q", out)
	}
}

func TestGetEnvBlocksSensitiveNames(t *testing.T) {
	r := Builtins(&recordingRunner{}, nil)
	h, _ := r.Find("getEnv")

	for _, name := range []string{"API_KEY", "MY_SECRET", "AUTH_TOKEN", "DB_PASSWORD"} {
		args, _ := json.Marshal(GetEnvInput{Name: name})
		if _, err := h.Invoke(context.Background(), args); err == nil {
			t.Errorf("expected %q to be blocked", name)
		}
	}

	t.Setenv("AFM_TEST_PLAIN", "value")
	args, _ := json.Marshal(GetEnvInput{Name: "AFM_TEST_PLAIN"})
	out, err := h.Invoke(context.Background(), args)
	if err != nil {
		t.Fatal(err)
	}
	if out != "value" {
		t.Errorf("expected %q, got %q", "value", out)
	}
}

func TestRunCommandBlocksDangerous(t *testing.T) {
	runner := &recordingRunner{}
	r := Builtins(runner, nil)
	h, _ := r.Find("runCommand")

	for _, cmd := range []string{"rm -rf /", "sudo ls", "dd if=/dev/zero"} {
		args, _ := json.Marshal(RunCommandInput{Command: cmd})
		if _, err := h.Invoke(context.Background(), args); err == nil {
			t.Errorf("expected %q to be blocked", cmd)
		}
	}
	if runner.argv != nil {
		t.Errorf("blocked command must not reach the runner, got %v", runner.argv)
	}
}

func TestRunCommandSplitsAndRuns(t *testing.T) {
	runner := &recordingRunner{out: "M  file.go"}
	r := Builtins(runner, nil)
	h, _ := r.Find("runCommand")

	args, _ := json.Marshal(RunCommandInput{Command: `git status --short`})
	out, err := h.Invoke(context.Background(), args)
	if err != nil {
		t.Fatal(err)
	}
	if out != "M  file.go" {
		t.Errorf("expected runner output, got %q", out)
	}
	if strings.Join(runner.argv, " ") != "git status --short" {
		t.Errorf("unexpected argv %v", runner.argv)
	}
}
