package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	afm "github.com/peridot-sh/afm"
	"github.com/peridot-sh/afm/recall"
	"github.com/peridot-sh/afm/session"
)

// runREPL reads messages line by line and relays responses until :quit or
// EOF. A failed exchange is reported and the conversation continues.
func (app *App) runREPL(ctx context.Context, sess *session.Client, opts session.Options, stream bool) error {
	rec := app.setupRecall(ctx)
	if rec != nil && app.Config.Recall.CacheFile != "" {
		defer func() {
			if err := rec.SaveCache(app.Config.Recall.CacheFile); err != nil {
				app.Logger.Debug("cannot save recall cache", "error", err)
			}
		}()
	}

	fmt.Fprintln(app.Out, infoStyle.Render("afm chat")+" — :quit to exit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(app.Out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(app.Out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case ":quit", ":q":
			return nil
		}

		prompt := line
		if rec != nil {
			related, err := rec.Search(ctx, line, app.Config.Recall.MaxResults)
			if err != nil {
				app.Logger.Debug("recall search failed", "error", err)
			} else if len(related) > 0 {
				prompt = withRecallContext(related, line)
			}
		}

		answer, err := app.exchange(ctx, sess, prompt, opts, stream)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintln(app.ErrOut, renderError(err))
			continue
		}

		// Tools bind on the first exchange; later exchanges reuse the
		// conversation, so passing them again would force a new session.
		opts = session.Options{}

		if rec != nil {
			text := "user: " + line + "\nassistant: " + answer
			if err := rec.Add(ctx, text); err != nil {
				app.Logger.Debug("recall indexing failed", "error", err)
			}
		}
	}
}

// exchange runs one REPL turn and returns the full response text.
func (app *App) exchange(ctx context.Context, sess *session.Client, prompt string, opts session.Options, stream bool) (string, error) {
	if stream {
		answer, err := sess.Stream(ctx, prompt, opts, func(delta string) {
			fmt.Fprint(app.Out, delta)
		})
		if err != nil {
			return "", err
		}
		fmt.Fprintln(app.Out)
		return answer, nil
	}

	answer, err := sess.Generate(ctx, prompt, opts)
	if err != nil {
		return "", err
	}
	fmt.Fprintln(app.Out, answer)
	return answer, nil
}

// withRecallContext prepends related earlier exchanges to the prompt. The
// context rides in the prompt rather than the instructions because
// instructions are fixed once a conversation exists.
func withRecallContext(related []string, message string) string {
	var b strings.Builder
	b.WriteString("Related earlier exchanges from this conversation history:\n")
	for _, r := range related {
		b.WriteString(r)
		b.WriteString("\n---\n")
	}
	b.WriteString("\n")
	b.WriteString(message)
	return b.String()
}

// setupRecall builds the transcript index when recall is configured,
// loading a previous cache if one exists. Returns nil when disabled.
func (app *App) setupRecall(ctx context.Context) *recall.Index {
	cfg := app.Config
	if !afm.RecallEnabled(cfg) {
		return nil
	}

	embedder := recall.NewEmbedder(
		afm.ResolveRecallBaseURL(cfg),
		cfg.Recall.APIKey,
		cfg.Recall.Model,
	)
	rec := recall.NewIndex(embedder)

	if cfg.Recall.CacheFile != "" {
		if err := rec.LoadCache(cfg.Recall.CacheFile); err != nil && !os.IsNotExist(err) {
			app.Logger.Debug("cannot load recall cache", "error", err)
		}
	}
	app.Logger.Debug("recall enabled", "indexed", rec.Len())
	return rec
}
