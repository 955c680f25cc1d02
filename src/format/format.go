package format

import (
	"math"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders stats values the way the dashboard displays them.
type Formatter struct {
	symbol  string
	printer *message.Printer
}

// -----------------------------------------------------------------------------

// NewFormatter builds a Formatter for an ISO 4217 currency code and a BCP 47
// locale. Unknown locales fall back to American English.
func NewFormatter(currency string, locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	return &Formatter{
		symbol:  CurrencySymbol(currency),
		printer: message.NewPrinter(tag),
	}
}

// -----------------------------------------------------------------------------

// CurrencySymbol returns the display grapheme of a currency, or the code
// followed by a space when the currency has none.
func CurrencySymbol(code string) string {
	cur := money.GetCurrency(code)
	if cur == nil || cur.Grapheme == "" {
		return code + " "
	}
	return cur.Grapheme
}

// -----------------------------------------------------------------------------

// Currency prefixes the currency symbol to the locale-grouped value with at
// most three fraction digits: 12345.6 -> "$12,345.6". Ties round away from
// zero on the shortest decimal form of v, so 0.3125 -> "$0.313".
func (f *Formatter) Currency(v float64) string {
	if !math.IsNaN(v) && !math.IsInf(v, 0) {
		v = decimal.NewFromFloat(v).Round(3).InexactFloat64()
	}
	return f.symbol + f.printer.Sprintf("%v", number.Decimal(v, number.MaxFractionDigits(3)))
}

// -----------------------------------------------------------------------------

// Percent renders v with exactly two decimals and a percent sign: 1.2345 -> "1.23%".
// Ties round away from zero on the exact binary value of v.
func Percent(v float64) string {
	return Fixed(v, 2) + "%"
}

// -----------------------------------------------------------------------------

// Fixed formats v with exactly places decimals.
func Fixed(v float64, places int32) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	// Large magnitudes switch to exponent notation: 1e21 -> "1e+21"
	if math.Abs(v) >= 1e21 {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	// 30 digits keep enough of the binary expansion to decide ties correctly
	d, err := decimal.NewFromString(strconv.FormatFloat(v, 'f', 30, 64))
	if err != nil {
		d = decimal.NewFromFloat(v)
	}
	out := d.StringFixed(places)
	// A negative that rounds to zero keeps its sign: -0.001 -> "-0.00"
	if v < 0 && !strings.HasPrefix(out, "-") {
		out = "-" + out
	}
	return out
}
