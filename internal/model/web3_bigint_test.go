package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWeb3BigIntFromDecimal(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		decimals int
		want     string
		wantErr  bool
	}{
		{name: "whole number", in: "1", decimals: 18, want: "1000000000000000000"},
		{name: "fraction", in: "1.5", decimals: 18, want: "1500000000000000000"},
		{name: "six decimals", in: "10.25", decimals: 6, want: "10250000"},
		{name: "leading dot", in: ".5", decimals: 6, want: "500000"},
		{name: "excess precision truncated", in: "0.1234567", decimals: 6, want: "123456"},
		{name: "zero", in: "0", decimals: 18, want: "0"},
		{name: "empty", in: "", decimals: 18, wantErr: true},
		{name: "garbage", in: "1.2.3", decimals: 18, wantErr: true},
		{name: "negative", in: "-1", decimals: 18, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewWeb3BigIntFromDecimal(tc.in, tc.decimals)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got.Value)
			assert.Equal(t, tc.decimals, got.Decimal)
		})
	}
}

func TestWeb3BigIntCmp(t *testing.T) {
	one := &Web3BigInt{Value: "1000000000000000000", Decimal: 18}
	two := &Web3BigInt{Value: "2000000000000000000", Decimal: 18}

	assert.Equal(t, -1, one.Cmp(two))
	assert.Equal(t, 1, two.Cmp(one))
	assert.Equal(t, 0, one.Cmp(&Web3BigInt{Value: "1000000000000000000", Decimal: 18}))
}

func TestWeb3BigIntAddSub(t *testing.T) {
	a := &Web3BigInt{Value: "300", Decimal: 8}
	b := &Web3BigInt{Value: "200", Decimal: 8}

	assert.Equal(t, "500", a.Add(b).Value)
	assert.Equal(t, "100", a.Sub(b).Value)
}

func TestWeb3BigIntToFloat(t *testing.T) {
	w := &Web3BigInt{Value: "1500000000000000000", Decimal: 18}
	assert.InDelta(t, 1.5, w.ToFloat(), 1e-9)
}
