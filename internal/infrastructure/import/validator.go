package csvimport

import (
	"fmt"
	"net/mail"
	"strconv"

	"github.com/shopspring/decimal"
)

// FieldType represents the expected type of a field
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInt     FieldType = "int"
	TypeDecimal FieldType = "decimal"
	TypeEmail   FieldType = "email"
)

// FieldRule defines the checks applied to one CSV column
type FieldRule struct {
	Column    string
	Type      FieldType
	Required  bool
	MaxLength int
	// Unique rejects a value already seen in an earlier row of the same file
	Unique bool
}

// FieldRuleBuilder helps build field rules fluently
type FieldRuleBuilder struct {
	rule FieldRule
}

// Field creates a new field rule builder
func Field(column string) *FieldRuleBuilder {
	return &FieldRuleBuilder{rule: FieldRule{Column: column, Type: TypeString}}
}

// Required marks the field as required
func (b *FieldRuleBuilder) Required() *FieldRuleBuilder {
	b.rule.Required = true
	return b
}

// String sets the field type to string
func (b *FieldRuleBuilder) String() *FieldRuleBuilder {
	b.rule.Type = TypeString
	return b
}

// Int sets the field type to integer
func (b *FieldRuleBuilder) Int() *FieldRuleBuilder {
	b.rule.Type = TypeInt
	return b
}

// Decimal sets the field type to decimal
func (b *FieldRuleBuilder) Decimal() *FieldRuleBuilder {
	b.rule.Type = TypeDecimal
	return b
}

// Email sets the field type to email
func (b *FieldRuleBuilder) Email() *FieldRuleBuilder {
	b.rule.Type = TypeEmail
	return b
}

// MaxLength sets the maximum length
func (b *FieldRuleBuilder) MaxLength(n int) *FieldRuleBuilder {
	b.rule.MaxLength = n
	return b
}

// Unique rejects values repeated within the file
func (b *FieldRuleBuilder) Unique() *FieldRuleBuilder {
	b.rule.Unique = true
	return b
}

// Build returns the built field rule
func (b *FieldRuleBuilder) Build() FieldRule {
	return b.rule
}

// FieldValidator checks rows against a rule set, collecting row errors up to
// the collection's cap. In-file uniqueness state accumulates across rows, so
// one validator instance covers one file.
type FieldValidator struct {
	rules  map[string]FieldRule
	seen   map[string]map[string]int // column -> value -> first row number
	errors *ErrorCollection
}

// NewFieldValidator creates a new field validator
func NewFieldValidator(rules []FieldRule, maxErrors int) *FieldValidator {
	ruleMap := make(map[string]FieldRule, len(rules))
	for _, r := range rules {
		ruleMap[r.Column] = r
	}

	return &FieldValidator{
		rules:  ruleMap,
		seen:   make(map[string]map[string]int),
		errors: NewErrorCollection(maxErrors),
	}
}

// ValidateRow checks every ruled column of a row and reports whether the row
// is clean. Empty optional fields pass without further checks.
func (v *FieldValidator) ValidateRow(row *Row) bool {
	clean := true

	for column, rule := range v.rules {
		value := row.Get(column)

		if value == "" {
			if rule.Required {
				v.errors.AddRequiredError(row.LineNumber, column)
				clean = false
			}
			continue
		}

		if err := checkType(value, rule.Type); err != nil {
			v.errors.AddTypeError(row.LineNumber, column, string(rule.Type), value)
			clean = false
			continue
		}

		if rule.MaxLength > 0 && len(value) > rule.MaxLength {
			v.errors.AddLengthError(row.LineNumber, column, rule.MaxLength)
			clean = false
		}

		if rule.Unique && !v.checkUnique(row.LineNumber, column, value) {
			clean = false
		}
	}

	return clean
}

func (v *FieldValidator) checkUnique(line int, column, value string) bool {
	if v.seen[column] == nil {
		v.seen[column] = make(map[string]int)
	}
	if firstRow, exists := v.seen[column][value]; exists {
		v.errors.Add(NewRowErrorWithValue(line, column, ErrCodeImportDuplicateInFile,
			fmt.Sprintf("duplicate value '%s' (first seen in row %d)", value, firstRow), value))
		return false
	}
	v.seen[column][value] = line
	return true
}

func checkType(value string, fieldType FieldType) error {
	switch fieldType {
	case TypeInt:
		_, err := strconv.ParseInt(value, 10, 64)
		return err
	case TypeDecimal:
		_, err := decimal.NewFromString(value)
		return err
	case TypeEmail:
		_, err := mail.ParseAddress(value)
		return err
	}
	return nil
}

// Errors returns the error collection
func (v *FieldValidator) Errors() *ErrorCollection {
	return v.errors
}

// Reset clears the validator state for reuse
func (v *FieldValidator) Reset() {
	v.seen = make(map[string]map[string]int)
	v.errors.Clear()
}
