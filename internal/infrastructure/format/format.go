// Package format renders amounts and dates the way French receipts and
// emails print them.
package format

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var french = message.NewPrinter(language.French)

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// EUR formats d as "1 234,50 €". Amounts are rounded to the cent.
func EUR(d decimal.Decimal) string {
	digits := french.Sprint(number.Decimal(d.Round(2).InexactFloat64(), number.Scale(2)))
	return digits + " " + french.Sprint(currency.Symbol(currency.EUR))
}

// DateFR formats t as "15 mars 2026", with "1er" for the first of the month.
func DateFR(t time.Time) string {
	day := strconv.Itoa(t.Day())
	if t.Day() == 1 {
		day = "1er"
	}
	return day + " " + frenchMonths[t.Month()-1] + " " + strconv.Itoa(t.Year())
}
