package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/skilltree/pkg/clipboard"
)

// clipCommand creates the clipboard command for sharing tokens.
func (c *CLI) clipCommand() *cobra.Command {
	var backend string

	cmd := &cobra.Command{
		Use:   "clip",
		Short: "Share tokens through the clipboard store",
		Long: `Push a token to the configured clipboard store and get a short share
code back, or pull a token by its code.

The store is chosen by the [clipboard] section of the config file or
--backend: null, memory, file, sqlite, redis or mongo.`,
	}

	cmd.PersistentFlags().StringVar(&backend, "backend", "", "clipboard backend (overrides config)")

	cmd.AddCommand(c.clipPushCommand(&backend))
	cmd.AddCommand(c.clipPullCommand(&backend))
	cmd.AddCommand(c.clipRemoveCommand(&backend))
	cmd.AddCommand(c.clipPurgeCommand(&backend))

	return cmd
}

// openBoard opens the configured clipboard, honoring a backend override.
func (c *CLI) openBoard(ctx context.Context, backend string) (*clipboard.Board, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	if backend != "" {
		cfg.Clipboard.Backend = backend
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	ccfg, err := cfg.ClipboardConfig()
	if err != nil {
		return nil, err
	}
	board, err := clipboard.Open(ctx, ccfg)
	if err != nil {
		return nil, err
	}
	loggerFromContext(ctx).Debug("clipboard opened", "backend", board.Backend().Name())
	return board, nil
}

// clipPushCommand creates the "clip push" subcommand.
func (c *CLI) clipPushCommand(backend *string) *cobra.Command {
	return &cobra.Command{
		Use:   "push [file|-]",
		Short: "Store a token and print its share code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tok, err := readToken(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			board, err := c.openBoard(ctx, *backend)
			if err != nil {
				return err
			}
			defer board.Close()

			code, err := board.Write(ctx, tok)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), code)
			return err
		},
	}
}

// clipPullCommand creates the "clip pull" subcommand.
func (c *CLI) clipPullCommand(backend *string) *cobra.Command {
	output := stdio

	cmd := &cobra.Command{
		Use:   "pull <code>",
		Short: "Fetch a token by its share code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			board, err := c.openBoard(ctx, *backend)
			if err != nil {
				return err
			}
			defer board.Close()

			tok, err := board.Read(ctx, args[0])
			if err != nil {
				return err
			}
			if err := writeToken(output, tok, cmd.OutOrStdout()); err != nil {
				return err
			}
			if output != stdio {
				printFile(output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", output, "write the token to this file (- for stdout)")

	return cmd
}

// clipRemoveCommand creates the "clip rm" subcommand.
func (c *CLI) clipRemoveCommand(backend *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <code>",
		Short: "Delete a shared token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			board, err := c.openBoard(ctx, *backend)
			if err != nil {
				return err
			}
			defer board.Close()

			if err := board.Delete(ctx, args[0]); err != nil {
				return err
			}
			printSuccess("Removed %s", args[0])
			return nil
		},
	}
}

// purger is implemented by backends that can drop expired entries in bulk.
type purger interface {
	Purge(ctx context.Context) (int64, error)
}

// clipPurgeCommand creates the "clip purge" subcommand.
func (c *CLI) clipPurgeCommand(backend *string) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Drop expired entries from the clipboard store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			board, err := c.openBoard(ctx, *backend)
			if err != nil {
				return err
			}
			defer board.Close()

			p, ok := board.Backend().(purger)
			if !ok {
				printInfo("The %s backend expires entries on its own", board.Backend().Name())
				return nil
			}

			spin := newSpinnerWithContext(ctx, "Purging expired entries...")
			spin.Start()
			n, err := p.Purge(ctx)
			if err != nil {
				spin.StopWithError("Purge failed")
				return err
			}
			spin.StopWithSuccess(fmt.Sprintf("Purged %d expired entries", n))
			return nil
		},
	}
}
