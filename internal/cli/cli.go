package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/skilltree/internal/config"
	"github.com/matzehuels/skilltree/pkg/buildinfo"
	errs "github.com/matzehuels/skilltree/pkg/errors"
	"github.com/matzehuels/skilltree/pkg/session"
	"github.com/matzehuels/skilltree/pkg/token"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = config.AppName

// stdio is the argument that stands for standard input or output.
const stdio = "-"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Skilltree edits skill trees in the terminal and over HTTP",
		Long:         `Skilltree is a small editor for skill trees: a central skill with labeled nodes connected around it. Trees travel as a single token string that can be saved, shared through a clipboard store, or rendered to an image.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ~/.config/skilltree/config.toml)")

	root.AddCommand(c.editCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.clipCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig resolves settings from --config, the default location and the
// environment.
func (c *CLI) loadConfig() (config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return config.Config{}, err
	}
	c.Logger.Debug("config loaded", "path", c.configPath, "clipboard", cfg.Clipboard.Backend)
	return cfg, nil
}

// =============================================================================
// Token Files
// =============================================================================

// readToken reads a token from path, or from in when path is "-".
func readToken(path string, in io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == stdio {
		data, err = io.ReadAll(io.LimitReader(in, errs.MaxTokenSize+1))
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	if len(data) > errs.MaxTokenSize {
		return "", errs.New(errs.ErrCodeInvalidInput, "token exceeds %d bytes", errs.MaxTokenSize)
	}
	return strings.TrimSpace(string(data)), nil
}

// writeToken writes tok followed by a newline to path, or to out when path
// is "-".
func writeToken(path, tok string, out io.Writer) error {
	if path == stdio {
		_, err := fmt.Fprintln(out, tok)
		return err
	}
	if err := errs.ValidatePath(path); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	return os.WriteFile(path, []byte(tok+"\n"), 0o644)
}

// loadSession imports the token at path into a fresh session, so that the
// tree seen by a command matches what the editor would show.
func loadSession(path string, in io.Reader, opts session.Options) (*session.Session, token.Result, error) {
	tok, err := readToken(path, in)
	if err != nil {
		return nil, token.Result{}, err
	}
	sess := session.New(opts)
	res, err := sess.Import(tok)
	if err != nil {
		return nil, token.Result{}, err
	}
	return sess, res, nil
}
