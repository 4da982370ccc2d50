package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List sales waiting to be uploaded",
	Args:  cobra.NoArgs,
	RunE:  runPending,
}

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "List sales the server refused",
	Long: `List queued sales the server rejected during sync.

Conflicts are kept locally until they are resolved on the sale-event server.
They are never retried automatically.`,
	Args: cobra.NoArgs,
	RunE: runConflicts,
}

func runPending(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return trackCLIError("pending", err)
	}
	defer a.Close()

	edition, err := a.editionID(cmd)
	if err != nil {
		return trackCLIError("pending", err)
	}

	sales, err := a.queue.ListPending(cmd.Context(), edition)
	if err != nil {
		return trackCLIError("pending", fmt.Errorf("list pending sales: %w", err))
	}

	if len(sales) == 0 {
		fmt.Println("No sales waiting for upload.")
		return nil
	}

	fmt.Printf("%s (%d/%d)\n", headerStyle.Render("PENDING SALES"), len(sales), a.queue.Capacity())
	fmt.Println(rule)

	total := decimal.Zero
	for _, sale := range sales {
		total = total.Add(sale.Price)
		fmt.Printf("  %s  %-30s %8s  %-5s  #%d\n",
			sale.SoldAt.Local().Format("15:04:05"),
			truncate(sale.ArticleDescription, 30),
			sale.Price.StringFixed(2),
			sale.PaymentMethod,
			sale.RegisterNumber,
		)
	}

	fmt.Println(rule)
	fmt.Printf("  Total: %s\n", total.StringFixed(2))
	return nil
}

func runConflicts(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return trackCLIError("conflicts", err)
	}
	defer a.Close()

	edition, err := a.editionID(cmd)
	if err != nil {
		return trackCLIError("conflicts", err)
	}

	sales, err := a.queue.ListConflicts(cmd.Context(), edition)
	if err != nil {
		return trackCLIError("conflicts", fmt.Errorf("list conflicts: %w", err))
	}

	if len(sales) == 0 {
		fmt.Println("No conflicts.")
		return nil
	}

	fmt.Printf("%s (%d)\n", headerStyle.Render("CONFLICTS"), len(sales))
	fmt.Println(rule)
	for _, sale := range sales {
		fmt.Printf("  %s\n", errorStyle.Render(sale.ConflictLine()))
		fmt.Println(mutedStyle.Render(fmt.Sprintf("    barcode %s, sold %s, sale %s",
			sale.Barcode, sale.SoldAt.Local().Format("2006-01-02 15:04"), sale.ID)))
	}
	return nil
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
