package core

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"0.001", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			require.NoError(t, err, tc.in)
			assert.Equal(t, tc.out, got, tc.in)
		} else {
			assert.ErrorIs(t, err, ErrInvalidAmount, tc.in)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}{Cents(22000), Cents(18333)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":220,"b":183.33}`, string(b))

	var in struct {
		Amount Money `json:"amount"`
		Limit  Money `json:"limit"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"amount":12.345,"limit":"40"}`), &in))
	assert.Equal(t, int64(1235), in.Amount.Cents)
	assert.Equal(t, int64(4000), in.Limit.Cents)

	assert.Error(t, json.Unmarshal([]byte(`{"amount":"ten"}`), &in))
}

func TestMoneyHelpers(t *testing.T) {
	m := Cents(1050)
	assert.Equal(t, "10.50", m.String())
	assert.Equal(t, Cents(1500), m.Add(Cents(450)))
	assert.Equal(t, Cents(600), m.Sub(Cents(450)))
	assert.Equal(t, Cents(450), m.Min(Cents(450)))
	assert.InDelta(t, 10.5, m.Float(), 1e-9)
	assert.True(t, decimal.RequireFromString("10.5").Equal(m.Decimal()))
	assert.Error(t, Money{}.Validate())
}
