package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceCents(t *testing.T) {
	cases := []struct {
		price string
		want  int64
	}{
		{"$19.99", 1999},
		{"$12.50", 1250},
		{"$7.00", 700},
		{"7.00", 700},
		{" $0.10 ", 10},
		{"$0", 0},
	}
	for _, tc := range cases {
		got, err := PriceCents(tc.price)
		require.NoError(t, err, tc.price)
		assert.Equal(t, tc.want, got, tc.price)
	}
}

func TestPriceCentsUnparseable(t *testing.T) {
	for _, price := range []string{"", "$", "free", "$1,000.00"} {
		_, err := PriceCents(price)
		assert.Error(t, err, price)
	}
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "$32.00", FormatCents(3200))
	assert.Equal(t, "$0.05", FormatCents(5))
	assert.Equal(t, "$19.99", FormatCents(1999))
	assert.Equal(t, "-$1.50", FormatCents(-150))
}
