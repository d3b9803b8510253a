package input

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestEvaluateExpression(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"100+10%", "110"},
		{"100-10%", "90"},
		{"200*50%", "100"},
		{"100/50%", "200"},
		{"200*3", "600"},
		{"200/4", "50"},
		{"12.5+7.5", "20"},
		{"10-15", "-5"},
		{" 100 + 10 % ", "110"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := EvaluateExpression(tt.in)
			require.NoError(t, err)
			assert.True(t, got.Equal(dec(tt.want)), "got %s, want %s", got, tt.want)
		})
	}
}

func TestEvaluateExpression_Failures(t *testing.T) {
	tests := []struct {
		in      string
		wantErr error
	}{
		{"100", ErrNotExpression},
		{"", ErrNotExpression},
		{"1+2+3", ErrNotExpression},
		{"-5+3", ErrNotExpression},
		{"5+-3", ErrNotExpression},
		{"abc+1", ErrNotExpression},
		{"1.2.3+1", ErrNotExpression},
		{"10%+5", ErrNotExpression},
		{"100/0", ErrDivisionByZero},
		{"100/0%", ErrDivisionByZero},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := EvaluateExpression(tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseExpression_Form(t *testing.T) {
	e, err := ParseExpression("100+10%")
	require.NoError(t, err)
	assert.Equal(t, PercentForm, e.Form)
	assert.Equal(t, byte('+'), e.Op)

	e, err = ParseExpression("3*4")
	require.NoError(t, err)
	assert.Equal(t, BinaryForm, e.Form)
	assert.Equal(t, "binary", e.Form.String())
}

func TestParseCellInput(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "0"},
		{"   ", "0"},
		{"42", "42"},
		{"42.50", "42.5"},
		{"abc", "0"},
		{"100+10%", "110"},
		{"200*3", "600"},
		// division by a zero percentage falls back to the literal, which does not parse
		{"100/0%", "0"},
		{"100/0", "0"},
		// a lone sign is not an expression, so the literal wins
		{"-5", "-5"},
		{".5", "0.5"},
		// exponents are not plain literals
		{"1e3", "0"},
		{"5E2", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseCellInput(tt.in)
			assert.True(t, got.Equal(dec(tt.want)), "got %s, want %s", got, tt.want)
		})
	}
}
