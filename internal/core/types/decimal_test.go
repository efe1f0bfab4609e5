package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantityScaling(t *testing.T) {
	assert.Equal(t, Quantity(25000), NewQuantityFromInt(2)+NewQuantityFromFloat64(0.5))
	assert.Equal(t, Quantity(10000), NewQuantityFromInt(1))
	assert.Equal(t, int64(15000), NewQuantityFromFloat64(1.5).Int64Scaled())
	assert.InDelta(t, 0.0001, NewQuantityFromInt64Scaled(1).Float64(), 1e-9)
}

func TestQuantityString(t *testing.T) {
	assert.Equal(t, "2.5000", NewQuantityFromFloat64(2.5).String())
	assert.Equal(t, "0.0000", Quantity(0).String())
	assert.Equal(t, "-1.2500", NewQuantityFromFloat64(-1.25).String())
	assert.Equal(t, "0.0001", Quantity(1).String())
}

func TestQuantityJSONRoundtrip(t *testing.T) {
	q := NewQuantityFromFloat64(3.75)

	data, err := json.Marshal(q)
	require.NoError(t, err)
	assert.Equal(t, "3.7500", string(data))

	var back Quantity
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, q, back)
}

func TestQuantityUnmarshalForms(t *testing.T) {
	cases := []struct {
		in   string
		want Quantity
	}{
		{`2`, NewQuantityFromInt(2)},
		{`2.5`, Quantity(25000)},
		{`"2.5"`, Quantity(25000)},
		{`-0.25`, Quantity(-2500)},
		{`0.00015`, Quantity(1)}, // extra digits truncated
		{`null`, 0},
		{`1e2`, NewQuantityFromInt(100)},
	}

	for _, tc := range cases {
		var q Quantity
		require.NoError(t, json.Unmarshal([]byte(tc.in), &q), tc.in)
		assert.Equal(t, tc.want, q, tc.in)
	}
}

func TestQuantityUnmarshalRejectsGarbage(t *testing.T) {
	var q Quantity
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &q))
	assert.Error(t, json.Unmarshal([]byte(`""`), &q))
}

func TestQuantityDecimal(t *testing.T) {
	cost := NewQuantityFromFloat64(2.5).Decimal().Mul(MustMoney("100.10"))
	assert.Equal(t, "250.25", cost.StringFixed(2))
}

func TestQuantitySignHelpers(t *testing.T) {
	q := NewQuantityFromInt(3)

	assert.True(t, q.IsPositive())
	assert.True(t, q.Neg().IsNegative())
	assert.Equal(t, q, q.Neg().Abs())
	assert.True(t, Quantity(0).IsZero())
}
