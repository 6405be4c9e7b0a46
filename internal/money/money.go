// Package money переводит денежные суммы между десятичным представлением API
// и целыми минимальными единицами, в которых хранятся записи книги.
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

const (
	// Scale количество знаков после запятой у валюты.
	Scale = 2
	// MaxMinor наибольшая сумма одной записи в минимальных единицах.
	// Агрегаты по магазину должны помещаться в int64.
	MaxMinor int64 = 100_000_000_000
)

var (
	// ErrNotPositive возвращается для нулевой или отрицательной суммы.
	ErrNotPositive = errors.New("amount must be greater than zero")
	// ErrTooPrecise возвращается, если сумма содержит доли меньше минимальной единицы.
	ErrTooPrecise = errors.New("amount has more than two decimal places")
	// ErrTooLarge возвращается для суммы больше MaxMinor.
	ErrTooLarge = errors.New("amount exceeds the maximum for a single entry")
)

var (
	hundred  = decimal.NewFromInt(100)
	maxMinor = decimal.NewFromInt(MaxMinor)
)

// ToMinor переводит положительную сумму в минимальные единицы.
func ToMinor(d decimal.Decimal) (int64, error) {
	if !d.IsPositive() {
		return 0, ErrNotPositive
	}
	if !d.Equal(d.Truncate(Scale)) {
		return 0, ErrTooPrecise
	}
	minor := d.Mul(hundred)
	if !minor.IsInteger() {
		return 0, ErrTooPrecise
	}
	if minor.GreaterThan(maxMinor) {
		return 0, ErrTooLarge
	}
	return minor.IntPart(), nil
}

// FromMinor возвращает десятичное представление суммы в минимальных единицах.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -Scale)
}

// Format форматирует сумму с двумя знаками после запятой.
func Format(minor int64) string {
	return FromMinor(minor).StringFixed(Scale)
}
