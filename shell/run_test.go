package shell

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestRunCapturesTrimmedOutput(t *testing.T) {
	out, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "printf ' hello \n'")
	if err != nil {
		t.Fatal(err)
	}
	if out != "hello" {
		t.Errorf("expected trimmed %q, got %q", "hello", out)
	}
}

func TestRunNonZeroExitReturnsCommandError(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "echo oops >&2; exit 3")
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected *CommandError, got %T", err)
	}
	if cmdErr.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", cmdErr.ExitCode)
	}
	if cmdErr.Output != "oops" {
		t.Errorf("expected captured output %q, got %q", "oops", cmdErr.Output)
	}
}

func TestRunEmptyArgv(t *testing.T) {
	if _, err := (ExecRunner{}).Run(context.Background()); err == nil {
		t.Error("expected error for empty argv")
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    []string
	}{
		{"simple", "git status", []string{"git", "status"}},
		{"quoted", `git commit -m "two words"`, []string{"git", "commit", "-m", "two words"}},
		{"single quotes", "echo 'a b' c", []string{"echo", "a b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Split(tt.command)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split(%q) = %v, want %v", tt.command, got, tt.want)
			}
		})
	}
}

func TestSplitUnterminatedQuote(t *testing.T) {
	if _, err := Split(`echo "unterminated`); err == nil {
		t.Error("expected error for unterminated quote")
	}
}
