package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewExecCommand creates the one-shot execute command.
func NewExecCommand() *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "exec <commands>",
		Short: "Execute commands and print the results",
		Long: `Execute one or more semicolon-separated commands and print one result
per command. Exits non-zero if any command fails.`,
		Example: `  minidb exec "USE shop; SELECT * FROM items WHERE id = 1;"
  minidb exec --local -o yaml "SHOW DATABASES;"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := GetConfig(ctx)

			ex, _, err := openExecutor(ctx, cfg, GetLogger(ctx), local)
			if err != nil {
				return err
			}
			defer func() { _ = ex.Close() }()

			renderer := NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.Client.Output)
			resps, err := ex.ExecAll(strings.Join(args, " "))

			failed := 0
			for _, resp := range resps {
				if rerr := renderer.Render(resp); rerr != nil {
					return rerr
				}
				if !resp.OK() {
					failed++
				}
			}
			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d command(s) failed", failed, len(resps))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "Open the data directory directly instead of connecting to a server")
	return cmd
}
