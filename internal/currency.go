package internal

import (
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Currency formats amounts of one currency
type Currency struct {
	Code    string // "NZD", "USD", "SEK"
	unit    currency.Unit
	known   bool
	printer *message.Printer
}

// fallbackCurrency is used when neither config, account nor OS locale names one
const fallbackCurrency = "NZD"

// skipSystemLocale limits locale detection to environment variables. Tests set it.
var skipSystemLocale = false

// symbolOverrides provides custom symbols where x/text defaults aren't ideal
var symbolOverrides = map[string]string{
	"SEK": "kr",
	"NOK": "kr",
	"DKK": "kr",
	"ISK": "kr",
}

// homeLocale is the locale whose number formatting is used for each currency
var homeLocale = map[string]language.Tag{
	"NZD": language.MustParse("en-NZ"),
	"AUD": language.MustParse("en-AU"),
	"USD": language.AmericanEnglish,
	"CAD": language.MustParse("en-CA"),
	"GBP": language.BritishEnglish,
	"EUR": language.German,
	"CHF": language.German,
	"SEK": language.Swedish,
	"NOK": language.Norwegian,
	"DKK": language.Danish,
	"JPY": language.Japanese,
	"SGD": language.MustParse("en-SG"),
	"HKD": language.MustParse("zh-HK"),
	"ZAR": language.MustParse("en-ZA"),
}

// GetCurrency returns the Currency for an ISO code. Unknown codes format
// with English number rules and the code as symbol.
func GetCurrency(code string) Currency {
	code = strings.ToUpper(strings.TrimSpace(code))
	tag, ok := homeLocale[code]
	if !ok {
		tag = language.English
	}
	return GetCurrencyWithLocale(code, tag)
}

// GetCurrencyWithLocale returns the Currency for code, formatting numbers the way tag does
func GetCurrencyWithLocale(code string, tag language.Tag) Currency {
	code = strings.ToUpper(strings.TrimSpace(code))
	unit, err := currency.ParseISO(code)
	return Currency{
		Code:    code,
		unit:    unit,
		known:   err == nil,
		printer: message.NewPrinter(tag),
	}
}

// SystemCurrency returns the currency of the OS locale's region and the locale
// itself. ok is false when no locale is set or it names no region.
func SystemCurrency() (code string, tag language.Tag, ok bool) {
	loc := detectSystemLocale()
	if loc == "" {
		return "", language.Und, false
	}
	return parseLocale(loc)
}

// parseLocale maps a POSIX or Windows locale name to a currency and language tag:
// "sv_SE.UTF-8" gives SEK and sv-SE, "de_AT@euro" gives EUR and de-AT.
func parseLocale(loc string) (string, language.Tag, bool) {
	if i := strings.IndexAny(loc, ".@"); i != -1 {
		loc = loc[:i]
	}
	tag, err := language.Parse(strings.Replace(loc, "_", "-", 1))
	if err != nil {
		return "", language.Und, false
	}

	_, _, region := tag.Raw()
	if region.String() == "" || region.String() == "ZZ" {
		return "", language.Und, false
	}
	unit, ok := currency.FromRegion(region)
	if !ok {
		return "", language.Und, false
	}
	return unit.String(), tag, true
}

// localeFromEnv returns the first variable that holds a real locale
func localeFromEnv(vars ...string) string {
	for _, name := range vars {
		if v := os.Getenv(name); v != "" && v != "C" && v != "POSIX" {
			return v
		}
	}
	return ""
}

// Symbol returns the currency symbol, using overrides where needed
func (c Currency) Symbol() string {
	if sym, ok := symbolOverrides[c.Code]; ok {
		return sym
	}
	if !c.known {
		return c.Code
	}
	return c.printer.Sprint(currency.NarrowSymbol(c.unit))
}

// isPrefix returns true if this currency symbol goes before the amount.
// x/text does not expose CLDR symbol placement, so the prefix currencies are listed here.
func (c Currency) isPrefix() bool {
	switch c.Code {
	case "NZD", "AUD", "USD", "CAD", "GBP", "JPY", "SGD", "HKD", "ZAR":
		return true
	default:
		return false
	}
}

// Format renders amount with two decimals, grouping and the currency symbol.
// Negative amounts get a leading minus.
func (c Currency) Format(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	formatted := c.printer.Sprint(number.Decimal(amount.InexactFloat64(),
		number.MinFractionDigits(2), number.MaxFractionDigits(2)))

	if c.isPrefix() {
		return sign + c.Symbol() + formatted
	}
	return sign + formatted + " " + c.Symbol()
}
