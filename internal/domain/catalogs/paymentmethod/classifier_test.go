package paymentmethod

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifierMatchesCodeAndName(t *testing.T) {
	c, err := NewClassifier(`code == "CASH" || name.contains("cash") || name.contains("espèces")`)
	require.NoError(t, err)

	cases := []struct {
		code string
		name string
		want bool
	}{
		{"CASH", "Cash desk", true},
		{"MOMO", "Mobile money cash-out", true},
		{"ESP", "Paiement en espèces", true},
		{"BANK", "Bank transfer", false},
		{"INS", "Insurance coverage", false},
	}

	for _, tc := range cases {
		m := NewPaymentMethod(tc.code, tc.name)
		got, err := c.IsCashEquivalent(m)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s / %s", tc.code, tc.name)
	}
}

func TestClassifierRejectsNonBoolExpression(t *testing.T) {
	_, err := NewClassifier(`name + code`)
	assert.Error(t, err)
}

func TestClassifierRejectsInvalidExpression(t *testing.T) {
	_, err := NewClassifier(`name.contains(`)
	assert.Error(t, err)
}
