package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload queued sales to the sale-event server",
	Long: `Upload every pending sale of the edition in one batch.

Sales the server confirms leave the queue. Sales it rejects are kept as
conflicts (see 'bourse conflicts'). If the server cannot be reached nothing
changes locally and the sync can simply be run again.

Examples:
  bourse sync`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return trackCLIError("sync", err)
	}
	defer a.Close()

	if err := a.requireAPI(); err != nil {
		return trackCLIError("sync", err)
	}
	edition, err := a.editionID(cmd)
	if err != nil {
		return trackCLIError("sync", err)
	}

	result, err := a.reconciler.SyncPendingSales(cmd.Context(), edition)
	if err != nil {
		fmt.Println(errorStyle.Render("Sync failed, queued sales are unchanged."))
		return trackCLIError("sync", err)
	}

	if result.Synced == 0 && len(result.Conflicts) == 0 {
		fmt.Println("Nothing to sync.")
		return nil
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("%d sale(s) synced", result.Synced)))
	if len(result.Conflicts) > 0 {
		fmt.Println(warnStyle.Render(fmt.Sprintf("%d conflict(s):", len(result.Conflicts))))
		for _, line := range result.Conflicts {
			fmt.Printf("  %s\n", line)
		}
	}

	remaining, err := a.queue.CountPending(cmd.Context())
	if err == nil && remaining > 0 {
		fmt.Println(mutedStyle.Render(fmt.Sprintf("%d sale(s) still pending", remaining)))
	}
	return nil
}
