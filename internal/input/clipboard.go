package input

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// MaxPasteFields is one field per month.
const MaxPasteFields = 12

// NumberFormat is the locale convention detected for a pasted cell.
type NumberFormat int

const (
	// FormatUS uses "," for thousands and "." for decimals.
	FormatUS NumberFormat = iota
	// FormatEuropean uses "." for thousands and "," for decimals.
	FormatEuropean
)

func (f NumberFormat) String() string {
	if f == FormatEuropean {
		return "european"
	}
	return "us"
}

var (
	europeanDecimal   = regexp.MustCompile(`,\d{1,2}$`)
	europeanThousands = regexp.MustCompile(`\.\d{3}(\D|$)`)
	parenthesized     = regexp.MustCompile(`^\((.*)\)$`)
)

const currencySymbols = "€$£¥₹"

// ClipboardResult is the outcome of parsing a pasted row. Errors are
// warnings meant for a preview step: failing cells are already zero in
// Values.
type ClipboardResult struct {
	Values    []decimal.Decimal
	RawValues []string
	Errors    []string
	IsValid   bool
}

// DetectNumberFormat decides the locale of an already stripped cell.
func DetectNumberFormat(s string) NumberFormat {
	if europeanDecimal.MatchString(s) || europeanThousands.MatchString(s) {
		return FormatEuropean
	}
	return FormatUS
}

// NormalizeNumber rewrites a stripped cell into the dot-decimal form
// decimal.NewFromString accepts.
// Accounting parentheses are unwrapped first so they do not hide the
// trailing decimal group from detection.
func NormalizeNumber(s string) string {
	sign := ""
	if m := parenthesized.FindStringSubmatch(s); m != nil {
		sign, s = "-", m[1]
	}
	switch DetectNumberFormat(s) {
	case FormatEuropean:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	default:
		s = strings.ReplaceAll(s, ",", "")
	}
	return sign + s
}

func stripCurrency(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || strings.ContainsRune(currencySymbols, r) {
			return -1
		}
		return r
	}, s)
}

// ParseCell converts one pasted field. Empty and "-" are zero.
func ParseCell(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" {
		return decimal.Zero, nil
	}
	return parsePlainDecimal(NormalizeNumber(stripCurrency(s)))
}

// ParseClipboard parses a tab-separated row copied from a spreadsheet.
// Only the first line is read and at most twelve fields are kept.
func ParseClipboard(text string) ClipboardResult {
	line := strings.TrimRight(text, "\r\n")
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	if strings.TrimSpace(line) == "" {
		return ClipboardResult{Errors: []string{"no data"}}
	}

	fields := strings.Split(line, "\t")
	if len(fields) > MaxPasteFields {
		fields = fields[:MaxPasteFields]
	}

	res := ClipboardResult{
		Values:    make([]decimal.Decimal, 0, len(fields)),
		RawValues: make([]string, 0, len(fields)),
	}
	for i, raw := range fields {
		res.RawValues = append(res.RawValues, raw)
		v, err := ParseCell(raw)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("value %d: cannot parse %q", i+1, strings.TrimSpace(raw)))
			v = decimal.Zero
		}
		res.Values = append(res.Values, v)
	}
	res.IsValid = len(res.Errors) == 0 && len(res.Values) > 0
	return res
}
