// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from user input,
// including the "=120+30" formula shorthand accepted by amount fields.
package core

import (
	"math"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/shopspring/decimal"
)

const maxFormulaLength = 128

// ParseAmount converts user input to a signed decimal amount rounded to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Rounding
// is half away from zero on the third decimal place. Input starting with "="
// is evaluated as an arithmetic formula (digits, + - * / and parentheses).
//
// Examples:
//
//	ParseAmount("12.34")   -> 12.34
//	ParseAmount("-5,5")    -> -5.50 (refund)
//	ParseAmount("12.345")  -> 12.35
//	ParseAmount("=120+30") -> 150.00
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "=") {
		return EvalFormula(s[1:])
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(2), nil
}

// EvalFormula evaluates a restricted arithmetic expression. Anything beyond
// digits, decimal separators, whitespace, + - * / and parentheses is rejected
// before the expression reaches the evaluator.
func EvalFormula(expr string) (decimal.Decimal, error) {
	expr = strings.TrimSpace(strings.ReplaceAll(expr, ",", "."))
	// "**" is exponentiation for the evaluator, outside the accepted grammar.
	if expr == "" || len(expr) > maxFormulaLength || strings.Contains(expr, "**") {
		return decimal.Zero, ErrInvalidFormula
	}
	depth := 0
	for _, r := range expr {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ' ':
		case r == '+', r == '-', r == '*', r == '/':
		case r == '(':
			depth++
		case r == ')':
			depth--
			if depth < 0 {
				return decimal.Zero, ErrInvalidFormula
			}
		default:
			return decimal.Zero, ErrInvalidFormula
		}
	}
	if depth != 0 {
		return decimal.Zero, ErrInvalidFormula
	}

	expression, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return decimal.Zero, ErrInvalidFormula
	}
	result, err := expression.Evaluate(nil)
	if err != nil {
		return decimal.Zero, ErrInvalidFormula
	}
	v, ok := result.(float64)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero, ErrInvalidFormula
	}
	return decimal.NewFromFloat(v).Round(2), nil
}

// FormatAmount renders an amount with exactly two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
