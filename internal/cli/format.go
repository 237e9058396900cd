package cli

import (
	"fmt"
	"strings"

	"rentledger/pkg/domain"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// formatMoney renders amount in the currency's own notation. Unknown
// currency codes fall back to a plain two-decimal amount.
func formatMoney(amount decimal.Decimal, code string) string {
	cur := money.New(0, code).Currency()
	if cur.Template == "" {
		return amount.StringFixed(2) + " " + code
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return cur.Formatter().Format(minor)
}

func parseAmount(flag, raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("--%s: %w", flag, err)
	}
	return v, nil
}

func parseOptionalDate(flag, raw string) (domain.Date, error) {
	if strings.TrimSpace(raw) == "" {
		return domain.Date{}, nil
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		return domain.Date{}, fmt.Errorf("--%s: %w", flag, err)
	}
	return d, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func notFound(entity domain.EntityType, id string) error {
	return domain.NotFoundError{Entity: entity, ID: id}
}
