package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	catalogLimit  int
	catalogOffset int
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List articles in the local catalog",
	Long: `List the articles cached for offline selling, ordered by barcode.

Examples:
  bourse catalog
  bourse catalog --limit 20 --offset 40`,
	Args: cobra.NoArgs,
	RunE: runCatalog,
}

func init() {
	catalogCmd.Flags().IntVarP(&catalogLimit, "limit", "n", 50, "Maximum number of articles to show (0 for all)")
	catalogCmd.Flags().IntVar(&catalogOffset, "offset", 0, "Number of articles to skip")
}

func runCatalog(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return trackCLIError("catalog", err)
	}
	defer a.Close()

	articles, err := a.catalog.List(cmd.Context(), catalogLimit, catalogOffset)
	if err != nil {
		return trackCLIError("catalog", fmt.Errorf("list articles: %w", err))
	}
	total, err := a.catalog.Count(cmd.Context())
	if err != nil {
		return trackCLIError("catalog", err)
	}

	if len(articles) == 0 {
		fmt.Println("The local catalog is empty. Run 'bourse refresh' while online.")
		return nil
	}

	fmt.Printf("%s (%d-%d of %d)\n", headerStyle.Render("LOCAL CATALOG"),
		catalogOffset+1, catalogOffset+len(articles), total)
	fmt.Println(rule)
	for _, article := range articles {
		fmt.Printf("  %-14s %-34s %8s\n",
			article.Barcode,
			truncate(article.Label(), 34),
			article.Price.StringFixed(2),
		)
	}
	return nil
}
