// Package validate collects field-level request validation helpers.
package validate

import (
	"strings"

	"github.com/shopspring/decimal"
)

type ErrField struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

type Errs []ErrField

func (e Errs) Error() string { // error interface
	var b strings.Builder
	for i, ef := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(ef.Field + ": " + ef.Msg)
	}
	return b.String()
}

func Required(field, value string) *ErrField {
	if strings.TrimSpace(value) == "" {
		return &ErrField{Field: field, Msg: "required"}
	}
	return nil
}

// Positive rejects zero and negative amounts. Grams and shillings both come
// through here.
func Positive(field string, v decimal.Decimal) *ErrField {
	if !v.IsPositive() {
		return &ErrField{Field: field, Msg: "must be positive"}
	}
	return nil
}

// Amount parses a decimal request field, rejecting garbage and non-positive
// values in one step.
func Amount(field, raw string) (decimal.Decimal, *ErrField) {
	v, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, &ErrField{Field: field, Msg: "must be a decimal number"}
	}
	if ef := Positive(field, v); ef != nil {
		return decimal.Decimal{}, ef
	}
	return v, nil
}
