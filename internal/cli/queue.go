package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/rogerio-castellano/pos-terminal/internal/models"
	"github.com/spf13/cobra"
)

type QueueListOptions struct {
	*RootOptions
	CashierID string
}

type QueueClearOptions struct {
	*RootOptions
	Yes bool
}

func NewQueueCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect or reset the offline sales queue",
	}
	cmd.AddCommand(newQueueListCommand(rootOpts))
	cmd.AddCommand(newQueueClearCommand(rootOpts))
	return cmd
}

func newQueueListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueueListOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sales waiting to be synced",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.Close()

			txs, err := a.pos.ListOfflineTransactions(cmd.Context(), opts.CashierID)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to read offline queue", err)
			}
			p := printer{format: opts.Format, w: cmd.OutOrStdout()}
			return p.result(txs, func(w io.Writer) { printQueue(w, txs) })
		},
	}
	cmd.Flags().StringVar(&opts.CashierID, "cashier", "", "only sales of this cashier")
	return cmd
}

func printQueue(w io.Writer, txs []models.OfflineTransaction) {
	if len(txs) == 0 {
		fmt.Fprintln(w, "offline queue is empty")
		return
	}
	for _, tx := range txs {
		fmt.Fprintf(w, "%s  %s  outlet=%s cashier=%s items=%d subtotal=%s\n",
			tx.OfflineID, tx.CreatedAt.Format(time.RFC3339), tx.OutletID, tx.CashierID, len(tx.Items), tx.Subtotal())
	}
	fmt.Fprintf(w, "%d sale(s) queued\n", len(txs))
}

func newQueueClearCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueueClearOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop every queued sale",
		Long: `Drop every queued sale, including sales the remote service has never
seen. Those sales are lost. Requires --yes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.Yes {
				return NewExitError(ExitCommandError, "refusing to clear the offline queue without --yes")
			}
			a, err := openApp(cmd.Context(), opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.pos.GetOfflineTransactionCount(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "failed to read offline queue", err)
			}
			if err := a.pos.ClearOfflineTransactions(cmd.Context()); err != nil {
				return WrapExitError(ExitFailure, "failed to clear offline queue", err)
			}
			p := printer{format: opts.Format, w: cmd.OutOrStdout()}
			return p.result(map[string]int{"cleared": n}, func(w io.Writer) {
				fmt.Fprintf(w, "cleared %d sale(s)\n", n)
			})
		},
	}
	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "confirm dropping unsynced sales")
	return cmd
}
