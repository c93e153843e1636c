package cli

import (
	"fmt"
	"io"

	"github.com/rogerio-castellano/pos-terminal/internal/syncer"
	"github.com/spf13/cobra"
)

func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass and exit",
		Long: `Replay every queued offline sale and queued operation against the
remote service once. Records that fail stay queued for the next pass.

Exits 1 when any record failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.pos.SyncNow(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "sync failed", err)
			}
			p := printer{format: rootOpts.Format, w: cmd.OutOrStdout()}
			if err := p.result(res, func(w io.Writer) { printSyncResult(w, res) }); err != nil {
				return err
			}
			if len(res.Failed) > 0 || res.OutboxFailed > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d sale(s) and %d operation(s) still queued", len(res.Failed), res.OutboxFailed))
			}
			return nil
		},
	}
}

func printSyncResult(w io.Writer, res syncer.Result) {
	fmt.Fprintf(w, "synced %d sale(s), %d failed\n", res.Synced, len(res.Failed))
	for _, f := range res.Failed {
		kind := "unreachable"
		if f.Rejected {
			kind = "rejected"
		}
		fmt.Fprintf(w, "  %s  %s  %s\n", f.ID, kind, f.Reason)
	}
	fmt.Fprintf(w, "operations sent %d, failed %d\n", res.OutboxSent, res.OutboxFailed)
}
