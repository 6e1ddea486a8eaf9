package cli

import (
	"fmt"

	"github.com/google/renameio"
	"github.com/spf13/cobra"

	"github.com/peridot-sh/afm/commit"
	"github.com/peridot-sh/afm/session"
)

func newGitCommitCmd(app *App) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "git-commit",
		Short: "Generate a commit message from the staged diff",
		Long: `Read the staged diff with "git diff --staged" and synthesize a
conventional-commit-style message for it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if err := app.requireAvailable(ctx); err != nil {
				return err
			}

			sess := session.New(app.Runtime, app.Logger)
			synth := commit.New(app.Runner, sess, app.Logger)
			msg, err := synth.Synthesize(ctx)
			if err != nil {
				return err
			}

			formatted := msg.Format()
			if outputPath != "" {
				if err := renameio.WriteFile(outputPath, []byte(formatted+"\n"), 0644); err != nil {
					return fmt.Errorf("cannot write output: %w", err)
				}
				app.Logger.Debug("wrote commit message", "path", outputPath)
				return nil
			}
			fmt.Fprintln(app.Out, formatted)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the message to a file instead of stdout")
	return cmd
}
