package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCell(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.234,56", "1234.56"},
		{"1,234.56", "1234.56"},
		{"(100)", "-100"},
		{"€50", "50"},
		{"$ 1,000", "1000"},
		{"-", "0"},
		{"", "0"},
		{"  ", "0"},
		{"12,5", "12.5"},
		{"1.234", "1234"},
		{"1.234.567,8", "1234567.8"},
		{"(1.234,50 €)", "-1234.5"},
		{"1 234,00", "1234"},
		{"3.14", "3.14"},
		{"(100,5)", "-100.5"},
		{"(1,234.50)", "-1234.5"},
		{"(12,50 €)", "-12.5"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCell(tt.in)
			require.NoError(t, err)
			assert.True(t, got.Equal(dec(tt.want)), "got %s, want %s", got, tt.want)
		})
	}
}

func TestParseCell_RejectsNonDecimals(t *testing.T) {
	for _, in := range []string{"1e3", "2E-2", "abc", "1.2.3,4,5", "--5", "()"} {
		_, err := ParseCell(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestParseClipboard_ExponentIsAnError(t *testing.T) {
	res := ParseClipboard("1e3\t20")
	assert.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "value 1")
	assert.True(t, res.Values[0].IsZero())
}

func TestDetectNumberFormat(t *testing.T) {
	assert.Equal(t, FormatEuropean, DetectNumberFormat("1.234,56"))
	assert.Equal(t, FormatEuropean, DetectNumberFormat("10,5"))
	assert.Equal(t, FormatEuropean, DetectNumberFormat("1.000"))
	assert.Equal(t, FormatUS, DetectNumberFormat("1,234.56"))
	assert.Equal(t, FormatUS, DetectNumberFormat("1,234"))
	assert.Equal(t, FormatUS, DetectNumberFormat("3.14"))
}

func TestParseClipboard(t *testing.T) {
	res := ParseClipboard("100\t1.234,56\t(50)\t-\t€20\n")
	require.True(t, res.IsValid)
	require.Len(t, res.Values, 5)
	assert.Empty(t, res.Errors)
	assert.Equal(t, []string{"100", "1.234,56", "(50)", "-", "€20"}, res.RawValues)

	want := []string{"100", "1234.56", "-50", "0", "20"}
	for i, w := range want {
		assert.True(t, res.Values[i].Equal(dec(w)), "value %d: got %s, want %s", i+1, res.Values[i], w)
	}
}

func TestParseClipboard_Errors(t *testing.T) {
	res := ParseClipboard("10\tabc\t30")
	assert.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "value 2")
	require.Len(t, res.Values, 3)
	assert.True(t, res.Values[1].IsZero())
	assert.True(t, res.Values[2].Equal(dec("30")))
}

func TestParseClipboard_NoData(t *testing.T) {
	for _, in := range []string{"", "  ", "\n", "\r\n"} {
		res := ParseClipboard(in)
		assert.False(t, res.IsValid, "input %q", in)
		assert.Equal(t, []string{"no data"}, res.Errors, "input %q", in)
		assert.Empty(t, res.Values)
	}
}

func TestParseClipboard_TruncatesToTwelve(t *testing.T) {
	row := "1\t2\t3\t4\t5\t6\t7\t8\t9\t10\t11\t12\t13\t14"
	res := ParseClipboard(row)
	assert.True(t, res.IsValid)
	assert.Len(t, res.Values, MaxPasteFields)
	assert.True(t, res.Values[11].Equal(dec("12")))
}

func TestParseClipboard_FirstLineOnly(t *testing.T) {
	res := ParseClipboard("1\t2\n3\t4\n")
	assert.Len(t, res.Values, 2)
}
