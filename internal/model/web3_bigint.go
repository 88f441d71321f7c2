package model

import (
	"fmt"
	"math"
	"math/big"
	"strings"
)

// Web3BigInt carries an on-chain amount as an integer string in base units
// together with its decimal precision.
type Web3BigInt struct {
	Value   string `json:"value"`
	Decimal int    `json:"decimal"`
}

// NewWeb3BigIntFromDecimal converts a human decimal string like "1.5" into
// base units at the given precision ("1500000000000000000" at 18 decimals).
func NewWeb3BigIntFromDecimal(value string, decimals int) (*Web3BigInt, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("empty amount")
	}

	whole, frac := value, ""
	if idx := strings.Index(value, "."); idx >= 0 {
		whole, frac = value[:idx], value[idx+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > decimals {
		frac = frac[:decimals]
	}
	frac += strings.Repeat("0", decimals-len(frac))

	amount, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %q", value)
	}

	return &Web3BigInt{Value: amount.String(), Decimal: decimals}, nil
}

func (w *Web3BigInt) BigInt() (*big.Int, bool) {
	return new(big.Int).SetString(w.Value, 10)
}

func (w *Web3BigInt) ToFloat() float64 {
	num := new(big.Int)
	num.SetString(w.Value, 10)

	floatNum := new(big.Float).SetInt(num)
	divisor := new(big.Float).SetFloat64(math.Pow(10, float64(w.Decimal)))
	floatNum.Quo(floatNum, divisor)

	result, _ := floatNum.Float64()
	return result
}

func (w *Web3BigInt) Add(number *Web3BigInt) *Web3BigInt {
	num1 := new(big.Int)
	num1.SetString(w.Value, 10)

	num2 := new(big.Int)
	num2.SetString(number.Value, 10)

	return &Web3BigInt{
		Value:   new(big.Int).Add(num1, num2).String(),
		Decimal: w.Decimal,
	}
}

func (w *Web3BigInt) Sub(number *Web3BigInt) *Web3BigInt {
	num1 := new(big.Int)
	num1.SetString(w.Value, 10)

	num2 := new(big.Int)
	num2.SetString(number.Value, 10)

	return &Web3BigInt{
		Value:   new(big.Int).Sub(num1, num2).String(),
		Decimal: w.Decimal,
	}
}

// Cmp compares base-unit values: -1 if w < other, 0 if equal, 1 if w > other.
func (w *Web3BigInt) Cmp(other *Web3BigInt) int {
	num1 := new(big.Int)
	num1.SetString(w.Value, 10)

	num2 := new(big.Int)
	num2.SetString(other.Value, 10)

	return num1.Cmp(num2)
}
