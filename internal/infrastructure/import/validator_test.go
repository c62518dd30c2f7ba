package csvimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRow(line int, data map[string]string) *Row {
	return &Row{LineNumber: line, Data: data}
}

func TestFieldRuleBuilder(t *testing.T) {
	rule := Field("unit_price").Required().Decimal().MaxLength(20).Unique().Build()

	assert.Equal(t, "unit_price", rule.Column)
	assert.Equal(t, TypeDecimal, rule.Type)
	assert.True(t, rule.Required)
	assert.Equal(t, 20, rule.MaxLength)
	assert.True(t, rule.Unique)
}

func TestFieldValidator(t *testing.T) {
	productRules := []FieldRule{
		Field("sku").Required().MaxLength(8).Unique().Build(),
		Field("name").Required().Build(),
		Field("unit_price").Required().Decimal().Build(),
		Field("quantity").Int().Build(),
		Field("contact_email").Email().Build(),
	}

	t.Run("clean row passes", func(t *testing.T) {
		v := NewFieldValidator(productRules, 10)

		ok := v.ValidateRow(testRow(2, map[string]string{
			"sku": "WID-1", "name": "Widget", "unit_price": "19.99",
			"quantity": "5", "contact_email": "buyer@example.com",
		}))

		assert.True(t, ok)
		assert.False(t, v.Errors().HasErrors())
	})

	t.Run("missing required field", func(t *testing.T) {
		v := NewFieldValidator(productRules, 10)

		ok := v.ValidateRow(testRow(2, map[string]string{
			"sku": "WID-1", "unit_price": "19.99",
		}))

		assert.False(t, ok)
		require.Equal(t, 1, v.Errors().Count())
		assert.Equal(t, ErrCodeImportRequiredField, v.Errors().Errors()[0].Code)
		assert.Equal(t, "name", v.Errors().Errors()[0].Column)
	})

	t.Run("empty optional field skips type checks", func(t *testing.T) {
		v := NewFieldValidator(productRules, 10)

		ok := v.ValidateRow(testRow(2, map[string]string{
			"sku": "WID-1", "name": "Widget", "unit_price": "19.99",
		}))

		assert.True(t, ok)
	})

	t.Run("type violations", func(t *testing.T) {
		v := NewFieldValidator(productRules, 10)

		ok := v.ValidateRow(testRow(3, map[string]string{
			"sku": "WID-1", "name": "Widget", "unit_price": "abc",
			"quantity": "1.5", "contact_email": "not-an-email",
		}))

		assert.False(t, ok)
		assert.Equal(t, 3, v.Errors().Count())
		for _, err := range v.Errors().Errors() {
			assert.Equal(t, ErrCodeImportInvalidType, err.Code)
		}
	})

	t.Run("max length", func(t *testing.T) {
		v := NewFieldValidator(productRules, 10)

		ok := v.ValidateRow(testRow(4, map[string]string{
			"sku": "WID-1-EXTRA-LONG", "name": "Widget", "unit_price": "1.00",
		}))

		assert.False(t, ok)
		assert.Equal(t, ErrCodeImportInvalidLength, v.Errors().Errors()[0].Code)
	})

	t.Run("duplicate within file reports the first row", func(t *testing.T) {
		v := NewFieldValidator(productRules, 10)

		require.True(t, v.ValidateRow(testRow(2, map[string]string{
			"sku": "WID-1", "name": "Widget", "unit_price": "1.00",
		})))
		ok := v.ValidateRow(testRow(7, map[string]string{
			"sku": "WID-1", "name": "Widget again", "unit_price": "2.00",
		}))

		assert.False(t, ok)
		require.Equal(t, 1, v.Errors().Count())
		err := v.Errors().Errors()[0]
		assert.Equal(t, ErrCodeImportDuplicateInFile, err.Code)
		assert.Contains(t, err.Message, "first seen in row 2")
		assert.Equal(t, "WID-1", err.Value)
	})

	t.Run("Reset clears uniqueness state", func(t *testing.T) {
		v := NewFieldValidator(productRules, 10)

		require.True(t, v.ValidateRow(testRow(2, map[string]string{
			"sku": "WID-1", "name": "Widget", "unit_price": "1.00",
		})))
		v.Reset()

		ok := v.ValidateRow(testRow(2, map[string]string{
			"sku": "WID-1", "name": "Widget", "unit_price": "1.00",
		}))
		assert.True(t, ok)
		assert.False(t, v.Errors().HasErrors())
	})
}
