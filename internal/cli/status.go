package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show catalog, queue and sync state",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp()
	if err != nil {
		return trackCLIError("status", err)
	}
	defer a.Close()

	stats, err := a.db.GetStats()
	if err != nil {
		return trackCLIError("status", err)
	}
	refreshedAt, catalogEdition, err := a.catalog.LastRefresh(ctx)
	if err != nil {
		return trackCLIError("status", err)
	}
	syncedAt, lastErr, err := a.reconciler.LastSync(ctx)
	if err != nil {
		return trackCLIError("status", err)
	}

	fmt.Println(headerStyle.Render("REGISTER STATUS"))
	fmt.Println(rule)
	fmt.Printf("  Edition:        %s\n", orDash(a.cfg.Register.EditionID))
	fmt.Printf("  Register:       #%d\n", a.cfg.Register.Number)
	fmt.Printf("  Server:         %s\n", orDash(a.cfg.API.URL))
	fmt.Println()
	fmt.Printf("  Catalog:        %d articles (%s)\n", stats.Articles, orDash(catalogEdition))
	fmt.Printf("  Refreshed:      %s\n", formatTime(refreshedAt))
	fmt.Println()

	pending := fmt.Sprintf("%d/%d", stats.Sales.Pending, a.queue.Capacity())
	if stats.Sales.Pending >= int64(a.queue.Capacity()) {
		pending = errorStyle.Render(pending + " full")
	}
	fmt.Printf("  Pending sales:  %s (%s)\n", pending, stats.Sales.Amount.StringFixed(2))
	conflicts := fmt.Sprintf("%d", stats.Sales.Conflict)
	if stats.Sales.Conflict > 0 {
		conflicts = warnStyle.Render(conflicts)
	}
	fmt.Printf("  Conflicts:      %s\n", conflicts)
	fmt.Printf("  Last sync:      %s\n", formatTime(syncedAt))
	if lastErr != "" {
		fmt.Printf("  Last error:     %s\n", errorStyle.Render(lastErr))
	}
	fmt.Println()
	fmt.Println(mutedStyle.Render(fmt.Sprintf("  %s (%.1f KB)", a.db.Path(), float64(stats.SizeBytes)/1024)))
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
