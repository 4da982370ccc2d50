package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Download the edition's catalog for offline use",
	Long: `Download the full sellable catalog of the edition and replace the local copy.

If the download fails the local catalog is left untouched. Articles with a
sale still waiting in the offline queue are not re-added.

Examples:
  bourse refresh
  bourse refresh --edition spring-2026`,
	Args: cobra.NoArgs,
	RunE: runRefresh,
}

func runRefresh(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return trackCLIError("refresh", err)
	}
	defer a.Close()

	if err := a.requireAPI(); err != nil {
		return trackCLIError("refresh", err)
	}
	edition, err := a.editionID(cmd)
	if err != nil {
		return trackCLIError("refresh", err)
	}

	fmt.Printf("Refreshing catalog for %s...\n", headerStyle.Render(edition))

	count, err := a.catalog.Refresh(cmd.Context(), edition)
	if err != nil {
		return trackCLIError("refresh", err)
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("%d articles cached", count)))
	return nil
}
