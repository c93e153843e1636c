package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/rogerio-castellano/pos-terminal/internal/auth"
	"github.com/rogerio-castellano/pos-terminal/internal/config"
	"github.com/rogerio-castellano/pos-terminal/internal/models"
	"github.com/spf13/cobra"
)

type TokenOptions struct {
	*RootOptions
	Cashier models.Cashier
	TTL     time.Duration
}

// NewTokenCommand signs a bearer token with the configured secret. Tokens
// are normally issued by the back office; this is for local setups.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an API token for a cashier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Cashier.ID == "" {
				return NewExitError(ExitCommandError, "--cashier is required")
			}
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			token, err := auth.GenerateToken([]byte(cfg.Auth.JWTSecret), opts.Cashier, opts.TTL)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to sign token", err)
			}
			p := printer{format: opts.Format, w: cmd.OutOrStdout()}
			return p.result(map[string]string{"token": token}, func(w io.Writer) { fmt.Fprintln(w, token) })
		},
	}
	cmd.Flags().StringVar(&opts.Cashier.ID, "cashier", "", "cashier id (token subject)")
	cmd.Flags().StringVar(&opts.Cashier.Username, "username", "", "cashier username")
	cmd.Flags().StringVar(&opts.Cashier.Role, "role", "cashier", "role, admin can clear the offline queue")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 12*time.Hour, "token lifetime")
	return cmd
}
