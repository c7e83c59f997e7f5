package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/skilltree/pkg/session"
)

// editOpts holds the command-line flags for the edit command.
type editOpts struct {
	print   bool   // print the final token on exit
	light   bool   // start in the light theme
	logFile string // session log destination while the editor owns the screen
}

// editCommand creates the edit command that opens the terminal editor.
func (c *CLI) editCommand() *cobra.Command {
	var opts editOpts

	cmd := &cobra.Command{
		Use:   "edit [file]",
		Short: "Edit a skill tree in the terminal",
		Long: `Open the full-screen skill-tree editor.

If file exists it must hold a token; the tree is loaded from it and ctrl+s
writes it back. A missing file starts a new tree that ctrl+s creates.
Without a file the tree lives only for the session; use --print to keep it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return c.runEdit(cmd, path, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.print, "print", "p", false, "print the token to stdout on exit")
	cmd.Flags().BoolVar(&opts.light, "light", false, "start in the light theme")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "write session logs to this file")

	return cmd
}

func (c *CLI) runEdit(cmd *cobra.Command, path string, opts editOpts) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	// The editor owns the terminal, so session logs go to a file or nowhere.
	logOut := io.Discard
	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}

	sopts := cfg.SessionOptions()
	sopts.Logger = newLogger(logOut, c.Logger.GetLevel())
	if opts.light {
		sopts.LightMode = true
	}

	sess := session.New(sopts)
	if path != "" {
		tok, err := readToken(path, cmd.InOrStdin())
		switch {
		case errors.Is(err, os.ErrNotExist):
			c.Logger.Debug("starting a new tree", "file", path)
		case err != nil:
			return err
		default:
			res, err := sess.Import(tok)
			if err != nil {
				return fmt.Errorf("load %s: %w", path, err)
			}
			c.Logger.Debug("tree loaded", "file", path, "nodes", res.Nodes, "connections", res.Connections)
		}
	}

	model := NewEditorModel(sess, path, cfg.Editor.Tick.Duration)
	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(cmd.Context()),
	)
	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && cmd.Context().Err() != nil {
			return cmd.Context().Err()
		}
		return fmt.Errorf("editor: %w", err)
	}

	if m, ok := final.(EditorModel); ok && m.Saved() {
		printSuccess("Saved %s", path)
	}
	if opts.print {
		tok, err := sess.Export()
		if err != nil {
			return err
		}
		return writeToken(stdio, tok, cmd.OutOrStdout())
	}
	return nil
}

