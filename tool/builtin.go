package tool

// builtin.go defines the built-in tools offered to chat sessions:
//
//   - currentTime: formatted local timestamp
//   - readFile: read a file's contents
//   - listFiles: list a directory
//   - getEnv: read an environment variable (sensitive names are blocked)
//   - runCommand: execute a command (dangerous commands are blocked)

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/peridot-sh/afm/shell"
)

// maxFileToolBytes caps the output of readFile so a large file cannot blow
// up the model context.
const maxFileToolBytes = 64 * 1024

// ReadFileInput is the parameter shape of the readFile tool.
type ReadFileInput struct {
	Path string `json:"path"`
}

// ListFilesInput is the parameter shape of the listFiles tool.
type ListFilesInput struct {
	Path string `json:"path"`
}

// GetEnvInput is the parameter shape of the getEnv tool.
type GetEnvInput struct {
	Name string `json:"name"`
}

// RunCommandInput is the parameter shape of the runCommand tool.
type RunCommandInput struct {
	Command string `json:"command"`
}

// blockedCommands are never executed by the runCommand tool.
var blockedCommands = map[string]bool{
	"sudo": true, "su": true, "rm": true, "dd": true, "mkfs": true,
	"shutdown": true, "reboot": true, "halt": true, "kill": true,
	"killall": true, "chown": true, "chmod": true,
}

// sensitiveEnvMarkers flag environment variable names the getEnv tool
// refuses to read.
var sensitiveEnvMarkers = []string{"KEY", "SECRET", "TOKEN", "PASSWORD", "CREDENTIAL"}

// Builtins returns a registry with every built-in tool. The runner executes
// runCommand invocations, and the logger records each invocation with
// sensitive values redacted.
func Builtins(runner shell.Runner, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return NewRegistry(
		Handle{
			Name:        "currentTime",
			Description: "Get the current local date and time, with day of week.",
			Schema:      &jsonschema.Schema{Type: "object"},
			Invoke: func(ctx context.Context, args json.RawMessage) (string, error) {
				return time.Now().Format("2006-01-02 15:04:05 (Monday)"), nil
			},
		},
		Handle{
			Name:        "readFile",
			Description: "Read the contents of a file at the given path.",
			Schema:      mustSchemaFor[ReadFileInput](),
			Invoke: func(ctx context.Context, args json.RawMessage) (string, error) {
				var in ReadFileInput
				if err := json.Unmarshal(args, &in); err != nil {
					return "", fmt.Errorf("invalid arguments: %w", err)
				}
				data, err := os.ReadFile(in.Path)
				if err != nil {
					return "", err
				}
				if len(data) > maxFileToolBytes {
					data = data[:maxFileToolBytes]
				}
				return string(data), nil
			},
		},
		Handle{
			Name:        "listFiles",
			Description: "List the entries of a directory at the given path.",
			Schema:      mustSchemaFor[ListFilesInput](),
			Invoke: func(ctx context.Context, args json.RawMessage) (string, error) {
				var in ListFilesInput
				if err := json.Unmarshal(args, &in); err != nil {
					return "", fmt.Errorf("invalid arguments: %w", err)
				}
				entries, err := os.ReadDir(in.Path)
				if err != nil {
					return "", err
				}
				names := make([]string, 0, len(entries))
				for _, e := range entries {
					name := e.Name()
					if e.IsDir() {
						name += "/"
					}
					names = append(names, name)
				}
				return strings.Join(names, "\n"), nil
			},
		},
		Handle{
			Name:        "getEnv",
			Description: "Read an environment variable. Sensitive variables (keys, secrets, tokens) are blocked.",
			Schema:      mustSchemaFor[GetEnvInput](),
			Invoke: func(ctx context.Context, args json.RawMessage) (string, error) {
				var in GetEnvInput
				if err := json.Unmarshal(args, &in); err != nil {
					return "", fmt.Errorf("invalid arguments: %w", err)
				}
				upper := strings.ToUpper(in.Name)
				for _, marker := range sensitiveEnvMarkers {
					if strings.Contains(upper, marker) {
						return "", fmt.Errorf("environment variable %q looks sensitive and cannot be read", in.Name)
					}
				}
				return os.Getenv(in.Name), nil
			},
		},
		Handle{
			Name:        "runCommand",
			Description: "Execute a command and return its combined output. Dangerous commands (rm, sudo, etc.) are blocked. No shell features: pipes and redirection are not available.",
			Schema:      mustSchemaFor[RunCommandInput](),
			Invoke: func(ctx context.Context, args json.RawMessage) (string, error) {
				var in RunCommandInput
				if err := json.Unmarshal(args, &in); err != nil {
					return "", fmt.Errorf("invalid arguments: %w", err)
				}
				argv, err := shell.Split(in.Command)
				if err != nil {
					return "", err
				}
				if len(argv) == 0 {
					return "", fmt.Errorf("empty command")
				}
				if blockedCommands[argv[0]] {
					return "", fmt.Errorf("command %q is blocked", argv[0])
				}
				logger.Info("running tool command", "command", shell.Redact(in.Command))
				return runner.Run(ctx, argv...)
			},
		},
	)
}

// mustSchemaFor derives a JSON schema from a parameter struct. The inputs
// are fixed types, so failure is a programming error.
func mustSchemaFor[T any]() *jsonschema.Schema {
	s, err := jsonschema.For[T](nil)
	if err != nil {
		panic("tool: schema derivation failed: " + err.Error())
	}
	return s
}
