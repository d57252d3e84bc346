package services

import (
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// frenchAmount groups thousands with a space and uses a comma for decimals.
const frenchAmount = "# ###,##"

// FormatEUR formats an amount in French euro notation, e.g. "1 234,56 €".
// The result always includes exactly 2 decimal places.
func FormatEUR(amount decimal.Decimal) string {
	return humanize.FormatFloat(frenchAmount, amount.Round(2).InexactFloat64()) + " €"
}

// FormatEURFloat is FormatEUR for a float64 amount.
func FormatEURFloat(amount float64) string {
	return FormatEUR(decimal.NewFromFloat(amount))
}

// FormatPercent formats a VAT or discount rate: "5,5 %", "20 %".
func FormatPercent(rate decimal.Decimal) string {
	return strings.Replace(rate.String(), ".", ",", 1) + " %"
}

// FormatQuantity is formatQty for callers outside the package.
func FormatQuantity(q decimal.Decimal) string {
	return formatQty(q)
}

// formatQty prints whole quantities without decimals and the rest with two:
// "12", "12,50".
func formatQty(q decimal.Decimal) string {
	if q.Equal(q.Truncate(0)) {
		return humanize.FormatFloat("# ###.", q.InexactFloat64())
	}
	return humanize.FormatFloat(frenchAmount, q.Round(2).InexactFloat64())
}

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// FormatDateFR formats a date the French way: "14 octobre 2026". The zero
// time formats as an empty string.
func FormatDateFR(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	day := strconv.Itoa(t.Day())
	if t.Day() == 1 {
		day = "1er"
	}
	return day + " " + frenchMonths[t.Month()-1] + " " + strconv.Itoa(t.Year())
}

// FormatDateShort formats a date as "14/10/2026".
func FormatDateShort(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}
