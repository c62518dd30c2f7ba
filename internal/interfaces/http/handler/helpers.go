package handler

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// toDecimalPtr converts a float64 to a *decimal.Decimal
func toDecimalPtr(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}

// toDecimal converts a float64 to a decimal.Decimal
func toDecimal(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// parseOptionalUUID parses src into *dst when src carries a value
func parseOptionalUUID(src *string, dst **uuid.UUID) error {
	if src == nil || *src == "" {
		return nil
	}
	id, err := uuid.Parse(*src)
	if err != nil {
		return errors.New("invalid UUID")
	}
	*dst = &id
	return nil
}
