package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	afm "github.com/peridot-sh/afm"
	"github.com/peridot-sh/afm/model"
	"github.com/peridot-sh/afm/session"
)

func newChatCmd(app *App) *cobra.Command {
	var (
		instructions string
		toolNames    []string
		stream       bool
		checkAvail   bool
	)

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with the model, one-shot or interactively",
		Long: `Send a single message to the model, or start an interactive session when
no message is given and stdin is a terminal. Tools listed with --tools (or
in the config) are offered to the model during the conversation.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if checkAvail {
				info := model.CheckAll(ctx, app.Runtime)
				fmt.Fprintln(app.Out, info.Describe())
				if !info.Default.Available {
					return &model.UnavailableError{Capability: afm.CapabilityDefault, Reason: info.Default.Reason}
				}
				return nil
			}

			if err := app.requireAvailable(ctx); err != nil {
				return err
			}

			if len(toolNames) == 0 {
				toolNames = app.Config.Chat.Tools
			}
			handles := app.Tools.ResolveAll(toolNames)
			if len(handles) < len(toolNames) {
				app.Logger.Debug("some requested tools are unknown",
					"requested", toolNames, "resolved", len(handles))
			}

			inst := instructions
			if inst == "" {
				inst = afm.Instructions(app.Config)
			}

			sess := session.New(app.Runtime, app.Logger)
			opts := session.Options{Instructions: inst, Tools: handles}

			if len(args) == 1 {
				return app.oneShot(ctx, sess, args[0], opts, stream)
			}
			if term.IsTerminal(int(os.Stdin.Fd())) {
				return app.runREPL(ctx, sess, opts, stream)
			}

			// Piped input: treat all of stdin as one message.
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			message := strings.TrimSpace(string(data))
			return app.oneShot(ctx, sess, message, opts, stream)
		},
	}

	cmd.Flags().StringVar(&instructions, "instructions", "", "instructions for the session")
	cmd.Flags().StringSliceVar(&toolNames, "tools", nil, "tools to enable (unknown names are ignored)")
	cmd.Flags().BoolVar(&stream, "stream", false, "stream the response as it is generated")
	cmd.Flags().BoolVar(&checkAvail, "check-availability", false, "report model availability and exit")
	return cmd
}

// oneShot runs a single exchange and prints the response.
func (app *App) oneShot(ctx context.Context, sess *session.Client, message string, opts session.Options, stream bool) error {
	if stream {
		_, err := sess.Stream(ctx, message, opts, func(delta string) {
			fmt.Fprint(app.Out, delta)
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(app.Out)
		return nil
	}

	text, err := sess.Generate(ctx, message, opts)
	if err != nil {
		return err
	}
	fmt.Fprintln(app.Out, text)
	return nil
}
