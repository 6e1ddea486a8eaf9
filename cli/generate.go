package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/renameio"
	"github.com/spf13/cobra"

	"github.com/peridot-sh/afm/session"
)

func newGenerateCmd(app *App) *cobra.Command {
	var (
		instructions string
		outputPath   string
	)

	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Generate text for a single prompt",
		Long: `Run one batch generation for the given prompt (or stdin when omitted) and
print the result, or write it to a file with --output.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if err := app.requireAvailable(ctx); err != nil {
				return err
			}

			var prompt string
			if len(args) == 1 {
				prompt = args[0]
			} else {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return err
				}
				prompt = strings.TrimSpace(string(data))
			}

			sess := session.New(app.Runtime, app.Logger)
			text, err := sess.Generate(ctx, prompt, session.Options{Instructions: instructions})
			if err != nil {
				return err
			}

			if outputPath != "" {
				if err := renameio.WriteFile(outputPath, []byte(text+"\n"), 0644); err != nil {
					return fmt.Errorf("cannot write output: %w", err)
				}
				app.Logger.Debug("wrote output", "path", outputPath, "bytes", len(text))
				return nil
			}
			fmt.Fprintln(app.Out, text)
			return nil
		},
	}

	cmd.Flags().StringVar(&instructions, "instructions", "", "instructions for the generation")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the result to a file instead of stdout")
	return cmd
}
