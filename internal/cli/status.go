package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/rogerio-castellano/pos-terminal/internal/pos"
	"github.com/spf13/cobra"
)

func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the local store backend and queue depths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.pos.Status(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "failed to read status", err)
			}
			p := printer{format: rootOpts.Format, w: cmd.OutOrStdout()}
			return p.result(st, func(w io.Writer) { printStatus(w, st) })
		},
	}
}

func printStatus(w io.Writer, st pos.Status) {
	fmt.Fprintf(w, "backend:              %s\n", st.Backend)
	if st.OnlineOnly {
		fmt.Fprintln(w, "mode:                 online only (no local store)")
	}
	fmt.Fprintf(w, "offline sales:        %d\n", st.OfflineTransactions)
	fmt.Fprintf(w, "pending operations:   %d\n", st.PendingOperations)
	fmt.Fprintf(w, "failed operations:    %d\n", st.FailedOperations)
	fmt.Fprintf(w, "cached products:      %d (%d active, %d low stock)\n", st.CachedProducts, st.ActiveProducts, st.LowStockCount)
	fmt.Fprintf(w, "last sync:            %s (%d synced)\n", formatTime(st.LastSyncAt), st.LastSyncCount)
	if st.OutletID != "" {
		fmt.Fprintf(w, "catalog of %s synced: %s\n", st.OutletID, formatTime(st.CatalogSyncedAt))
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format(time.RFC3339)
}
