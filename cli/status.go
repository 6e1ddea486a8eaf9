package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	afm "github.com/peridot-sh/afm"
	"github.com/peridot-sh/afm/model"
)

func newStatusCmd(app *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report availability of the model runtime",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := model.CheckAll(cmd.Context(), app.Runtime)

			if asJSON {
				data, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(app.Out, string(data))
				return nil
			}

			fmt.Fprintln(app.Out, info.Describe())
			if app.verbose {
				fmt.Fprintf(app.Out, "  endpoint: %s\n", afm.ResolveBaseURL(app.Config))
				fmt.Fprintf(app.Out, "  default model: %s\n", afm.ResolveModel(app.Config))
				if tagging := afm.ResolveTaggingModel(app.Config); tagging != "" {
					fmt.Fprintf(app.Out, "  tagging model: %s\n", tagging)
				}
			}

			if info.StatusSummary() == afm.StatusAvailable {
				fmt.Fprintln(app.Out, successStyle.Render("status: available"))
			} else {
				fmt.Fprintln(app.Out, errorStyle.Render("status: not available"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print availability as JSON")
	return cmd
}
