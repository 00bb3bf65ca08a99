package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount возвращается, если строку не удалось разобрать как денежную сумму.
var ErrInvalidAmount = errors.New("invalid amount")

// Money хранит денежную сумму в копейках.
type Money int64

var maxMoney = decimal.New(1, 15)

// ParseMoney разбирает десятичную запись суммы и округляет её до копеек.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.Abs().GreaterThanOrEqual(maxMoney) {
		return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidAmount, s)
	}

	return Money(d.Round(2).Shift(2).IntPart()), nil
}

// Decimal возвращает сумму в виде десятичного числа.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// String форматирует сумму с двумя знаками после запятой.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Float64 возвращает сумму в рублях.
func (m Money) Float64() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

// MarshalJSON кодирует сумму числом с двумя знаками после запятой.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}
