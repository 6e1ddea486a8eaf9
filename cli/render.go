package cli

import (
	"errors"

	"github.com/charmbracelet/lipgloss"

	"github.com/peridot-sh/afm/model"
	"github.com/peridot-sh/afm/session"
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))
)

// renderError routes a failure through the classifier and renders the
// user-facing message.
func renderError(err error) string {
	var unavailErr *model.UnavailableError
	if errors.As(err, &unavailErr) {
		return errorStyle.Render("error: ") + unavailErr.Error()
	}
	c := session.Classify(err)
	return errorStyle.Render(c.Category.String()+": ") + c.Message
}
