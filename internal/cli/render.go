package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	errs "github.com/matzehuels/skilltree/pkg/errors"
	"github.com/matzehuels/skilltree/pkg/render"
	"github.com/matzehuels/skilltree/pkg/session"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output string // output file path; "-" for stdout
	format string // svg, png or dot
	theme  string // "", "dark" or "light"; empty keeps the token's theme
	ids    bool   // label nodes with their ids
}

// renderCommand creates the render command for turning tokens into images.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{format: string(render.FormatSVG)}

	cmd := &cobra.Command{
		Use:   "render [file|-]",
		Short: "Render a skill-tree token to SVG, PNG or DOT",
		Long: `Render a skill-tree token as an image.

The output defaults to the input file name with the format's extension,
or stdout when the token is read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (- for stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: svg, png, dot")
	cmd.Flags().StringVar(&opts.theme, "theme", "", "override the token's theme: dark, light")
	cmd.Flags().BoolVar(&opts.ids, "ids", false, "show node ids in labels")

	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, input string, opts renderOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	format, err := render.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	sopts := cfg.SessionOptions()
	sopts.Logger = logger
	sess, res, err := loadSession(input, cmd.InOrStdin(), sopts)
	if err != nil {
		return err
	}
	logger.Debug("token loaded", "nodes", res.Nodes, "connections", res.Connections)
	if res.Skipped > 0 {
		logger.Warn("dropped connections to unknown nodes", "count", res.Skipped)
	}

	dark := sess.DarkMode()
	switch opts.theme {
	case "":
	case "dark":
		dark = true
	case "light":
		dark = false
	default:
		return fmt.Errorf("unknown theme %q (want dark or light)", opts.theme)
	}

	dot := treeDOT(sess, render.Options{Dark: dark, ShowIDs: opts.ids})

	out := opts.output
	if out == "" {
		out = defaultOutput(input, format)
	}
	if out != stdio {
		if err := errs.ValidatePath(out); err != nil {
			return err
		}
	}

	prog := newProgress(logger)
	var data []byte
	if format == render.FormatDOT {
		data = []byte(dot)
	} else {
		spin := newSpinnerWithContext(ctx, "Rendering "+string(format)+"...")
		if out != stdio {
			spin.Start()
		}
		data, err = render.Render(ctx, dot, format)
		if out != stdio {
			spin.Stop()
		}
		if err != nil {
			return err
		}
	}

	if out == stdio {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	prog.done("Rendered " + out)
	printFile(out)
	return nil
}

// treeDOT renders the session's tree with the current selection highlighted.
func treeDOT(sess *session.Session, opts render.Options) string {
	var dot string
	sess.View(func(tx *session.Tx) error {
		opts.Selected = tx.Selection.IDs()
		dot = render.ToDOT(tx.Store, opts)
		return nil
	})
	return dot
}

// defaultOutput swaps the input's extension for the format's.
func defaultOutput(input string, f render.Format) string {
	if input == stdio {
		return stdio
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + "." + string(f)
}
