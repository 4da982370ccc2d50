// Package prompts provides interactive CLI prompt components using charmbracelet/huh.
package prompts

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/bourse-pos/bourse/internal/models"
)

var paymentLabels = map[models.PaymentMethod]string{
	models.PaymentCash:  "Cash",
	models.PaymentCard:  "Card",
	models.PaymentCheck: "Check",
}

// BuildPaymentOptions creates huh options for every accepted payment method.
func BuildPaymentOptions() []huh.Option[string] {
	options := make([]huh.Option[string], 0, len(models.PaymentMethods))
	for _, m := range models.PaymentMethods {
		options = append(options, huh.NewOption(paymentLabels[m], string(m)))
	}
	return options
}

// ParsePaymentMethod converts a flag value to a payment method.
// Matching is case-insensitive.
func ParsePaymentMethod(s string) (models.PaymentMethod, error) {
	m := models.PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("invalid payment method %q (want cash, card or check)", s)
	}
	return m, nil
}

// RunPaymentSelector asks how the buyer paid for article.
func RunPaymentSelector(article *models.Article) (models.PaymentMethod, error) {
	selected := string(models.PaymentCash)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("Payment for %s (%s)", article.Label(), article.Price.StringFixed(2))).
				Options(BuildPaymentOptions()...).
				Value(&selected),
		),
	)

	if err := form.Run(); err != nil {
		return "", err
	}

	return models.PaymentMethod(selected), nil
}

// ConfirmSale asks for confirmation before queueing a sale.
func ConfirmSale(article *models.Article, method models.PaymentMethod) (bool, error) {
	confirmed := true
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Sell %s for %s (%s)?", article.Label(), article.Price.StringFixed(2), paymentLabels[method])).
				Affirmative("Sell").
				Negative("Cancel").
				Value(&confirmed),
		),
	)

	if err := form.Run(); err != nil {
		return false, err
	}

	return confirmed, nil
}
