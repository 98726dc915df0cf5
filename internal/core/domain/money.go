package domain

import (
	"fmt"
	"math"
	"strconv"
)

// Money is an amount in cents.
type Money int64

// MoneyFromFloat rounds a decimal amount to the nearest cent.
func MoneyFromFloat(amount float64) Money {
	return Money(math.Round(amount * 100))
}

// Times multiplies the amount by a quantity.
func (m Money) Times(quantity int) Money {
	return m * Money(quantity)
}

func (m Money) Float64() float64 {
	return float64(m) / 100
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("money: %w", err)
	}
	*m = MoneyFromFloat(f)
	return nil
}
