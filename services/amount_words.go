package services

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AmountToWordsFR converts an amount to French words.
// Example: 1234.56 → "mille deux cent trente-quatre euros et cinquante-six centimes"
func AmountToWordsFR(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "moins " + AmountToWordsFR(amount.Neg())
	}

	amount = amount.Round(2)
	euros := amount.IntPart()
	centimes := amount.Sub(decimal.NewFromInt(euros)).Mul(hundred).IntPart()

	var parts []string
	switch {
	case euros == 0 && centimes == 0:
		return "zéro euro"
	case euros == 1:
		parts = append(parts, "un euro")
	case euros > 1:
		unit := " euros"
		if euros%1_000_000 == 0 {
			unit = " d'euros"
		}
		parts = append(parts, frenchNumber(euros)+unit)
	}

	if centimes > 0 {
		label := frenchNumber(centimes) + " centimes"
		if centimes == 1 {
			label = "un centime"
		}
		if len(parts) > 0 {
			label = "et " + label
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, " ")
}

// frenchNumber spells a positive integer in French.
func frenchNumber(n int64) string {
	if n == 0 {
		return "zéro"
	}

	var parts []string

	if n >= 1_000_000_000 {
		parts = append(parts, scaled(n/1_000_000_000, "milliard"))
		n %= 1_000_000_000
	}

	if n >= 1_000_000 {
		parts = append(parts, scaled(n/1_000_000, "million"))
		n %= 1_000_000
	}

	// mille is invariable and never preceded by "un"
	if n >= 1000 {
		thousands := n / 1000
		if thousands == 1 {
			parts = append(parts, "mille")
		} else {
			parts = append(parts, under1000(thousands, false)+" mille")
		}
		n %= 1000
	}

	if n > 0 {
		parts = append(parts, under1000(n, true))
	}

	return strings.Join(parts, " ")
}

// scaled spells "deux millions", "un milliard"; the noun takes the plural.
func scaled(n int64, noun string) string {
	if n > 1 {
		return frenchNumber(n) + " " + noun + "s"
	}
	return "un " + noun
}

// under1000 spells 1..999. When final is false the number multiplies a
// following "mille", so "cents" and "quatre-vingts" lose their plural.
func under1000(n int64, final bool) string {
	var parts []string

	if n >= 100 {
		hundreds := n / 100
		n %= 100
		switch {
		case hundreds == 1:
			parts = append(parts, "cent")
		case n == 0 && final:
			parts = append(parts, frenchUnits[hundreds]+" cents")
		default:
			parts = append(parts, frenchUnits[hundreds]+" cent")
		}
	}

	if n > 0 {
		parts = append(parts, under100(n, final))
	}

	return strings.Join(parts, " ")
}

func under100(n int64, final bool) string {
	if n < 17 {
		return frenchUnits[n]
	}

	ten := n / 10
	unit := n % 10

	// 70-79 and 90-99 are built on soixante and quatre-vingt plus 10-19.
	if ten == 7 || ten == 9 {
		base := frenchTens[ten-1]
		rest := frenchUnits[10+unit]
		if ten == 7 && unit == 1 {
			return base + "-et-" + rest
		}
		return base + "-" + rest
	}

	if ten == 1 {
		return "dix-" + frenchUnits[unit]
	}

	if ten == 8 {
		if unit == 0 {
			if final {
				return "quatre-vingts"
			}
			return "quatre-vingt"
		}
		return "quatre-vingt-" + frenchUnits[unit]
	}

	switch unit {
	case 0:
		return frenchTens[ten]
	case 1:
		return frenchTens[ten] + "-et-un"
	default:
		return frenchTens[ten] + "-" + frenchUnits[unit]
	}
}

var frenchUnits = []string{
	"", "un", "deux", "trois", "quatre", "cinq", "six", "sept", "huit", "neuf",
	"dix", "onze", "douze", "treize", "quatorze", "quinze", "seize",
	"dix-sept", "dix-huit", "dix-neuf",
}

var frenchTens = []string{
	"", "dix", "vingt", "trente", "quarante", "cinquante", "soixante", "soixante", "quatre-vingt", "quatre-vingt",
}
