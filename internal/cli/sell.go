package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bourse-pos/bourse/internal/cli/prompts"
	"github.com/bourse-pos/bourse/internal/models"
	"github.com/bourse-pos/bourse/internal/queue"
)

var (
	sellPayment  string
	sellRegister int
	sellYes      bool
)

var sellCmd = &cobra.Command{
	Use:   "sell <barcode>",
	Short: "Record a sale in the offline queue",
	Long: `Sell a cached article and queue the sale for upload.

The article is removed from the local catalog immediately. Run 'bourse sync'
to upload queued sales once the server is reachable.

Without --payment an interactive selector is shown.

Examples:
  bourse sell BRS00042 --payment cash
  bourse sell BRS00042 --payment card --register 3
  bourse sell BRS00042`,
	Args: cobra.ExactArgs(1),
	RunE: runSell,
}

func init() {
	sellCmd.Flags().StringVarP(&sellPayment, "payment", "p", "", "payment method: cash, card or check")
	sellCmd.Flags().IntVarP(&sellRegister, "register", "r", 0, "register number (defaults to BOURSE_REGISTER)")
	sellCmd.Flags().BoolVarP(&sellYes, "yes", "y", false, "skip confirmation")
}

func runSell(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp()
	if err != nil {
		return trackCLIError("sell", err)
	}
	defer a.Close()

	article, err := a.catalog.LookupByBarcode(ctx, args[0])
	if err != nil {
		return trackCLIError("sell", err)
	}
	if article == nil {
		return trackCLIError("sell", fmt.Errorf("barcode %s is not in the local catalog", args[0]))
	}

	method, err := resolvePayment(article)
	if err != nil {
		return trackCLIError("sell", err)
	}

	if !sellYes && isInteractive() {
		ok, err := prompts.ConfirmSale(article, method)
		if err != nil {
			return trackCLIError("sell", err)
		}
		if !ok {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	register := sellRegister
	if register == 0 {
		register = a.cfg.Register.Number
	}

	sale, err := a.queue.Enqueue(ctx, queue.DraftFromArticle(article, method, register))
	if err != nil {
		if errors.Is(err, queue.ErrQueueFull) {
			fmt.Println(errorStyle.Render(fmt.Sprintf("Offline queue is full (%d sales).", a.queue.Capacity())))
			fmt.Println("Run 'bourse sync' to upload queued sales before selling more.")
		}
		return trackCLIError("sell", err)
	}

	pending, err := a.queue.CountPending(ctx)
	if err != nil {
		return trackCLIError("sell", err)
	}

	fmt.Printf("%s %s for %s (%s)\n",
		successStyle.Render("Sold"),
		article.Label(),
		sale.Price.StringFixed(2),
		sale.PaymentMethod,
	)
	fmt.Println(mutedStyle.Render(fmt.Sprintf("Queued as %s, %d/%d pending", sale.ID, pending, a.queue.Capacity())))
	return nil
}

// resolvePayment takes the --payment flag or asks interactively.
func resolvePayment(article *models.Article) (models.PaymentMethod, error) {
	if sellPayment != "" {
		return prompts.ParsePaymentMethod(sellPayment)
	}
	if !isInteractive() {
		return "", fmt.Errorf("invalid payment: --payment is required when not running interactively")
	}
	return prompts.RunPaymentSelector(article)
}
