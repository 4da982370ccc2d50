package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bourse-pos/bourse/internal/models"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <barcode>",
	Short: "Find an article in the local catalog",
	Long: `Look up a barcode in the local catalog. Works offline.

Examples:
  bourse lookup BRS00042`,
	Args: cobra.ExactArgs(1),
	RunE: runLookup,
}

func runLookup(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return trackCLIError("lookup", err)
	}
	defer a.Close()

	article, err := a.catalog.LookupByBarcode(cmd.Context(), args[0])
	if err != nil {
		return trackCLIError("lookup", err)
	}
	if article == nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("No article with barcode %s in the local catalog.", args[0])))
		fmt.Println(mutedStyle.Render("It may be sold already, or the catalog needs a 'bourse refresh'."))
		return nil
	}

	printArticle(article)
	return nil
}

func printArticle(article *models.Article) {
	fmt.Println(headerStyle.Render(article.Label()))
	fmt.Println(rule)
	fmt.Printf("  Barcode:    %s\n", article.Barcode)
	fmt.Printf("  Price:      %s\n", article.Price.StringFixed(2))
	if article.Category != "" {
		fmt.Printf("  Category:   %s\n", article.Category)
	}
	if article.Size != "" {
		fmt.Printf("  Size:       %s\n", article.Size)
	}
	if article.Brand != "" {
		fmt.Printf("  Brand:      %s\n", article.Brand)
	}
	if article.IsLot {
		fmt.Printf("  Lot of:     %d\n", article.LotQuantity)
	}
	if article.ListNumber != "" {
		fmt.Printf("  List:       %s\n", article.ListNumber)
	}
	if article.LabelColor != "" {
		fmt.Printf("  Label:      %s\n", article.LabelColor)
	}
	fmt.Println(mutedStyle.Render(fmt.Sprintf("  Article %s, edition %s", article.ArticleID, article.EditionID)))
}
