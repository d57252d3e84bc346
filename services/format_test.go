package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestFormatEUR_Values(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"zero", "0", "0,00 €"},
		{"small integer", "5", "5,00 €"},
		{"with decimals", "42.5", "42,50 €"},
		{"hundreds", "999.99", "999,99 €"},
		{"thousands", "1234.56", "1 234,56 €"},
		{"millions", "1234567.89", "1 234 567,89 €"},
		{"rounds half up", "10.005", "10,01 €"},
		{"negative", "-250000.5", "-250 000,50 €"},
		{"exact thousands boundary", "1000", "1 000,00 €"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatEUR(decimal.RequireFromString(tt.input))
			if got != tt.expect {
				t.Errorf("FormatEUR(%v) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		input  float64
		expect string
	}{
		{0, "0 %"},
		{5.5, "5,5 %"},
		{10, "10 %"},
		{20, "20 %"},
	}
	for _, tt := range tests {
		got := FormatPercent(decimal.NewFromFloat(tt.input))
		if got != tt.expect {
			t.Errorf("FormatPercent(%v) = %q, want %q", tt.input, got, tt.expect)
		}
	}
}

func TestFormatQty(t *testing.T) {
	tests := []struct {
		input  string
		expect string
	}{
		{"12", "12"},
		{"12.5", "12,50"},
		{"0.333", "0,33"},
		{"1500", "1 500"},
	}
	for _, tt := range tests {
		got := formatQty(decimal.RequireFromString(tt.input))
		if got != tt.expect {
			t.Errorf("formatQty(%s) = %q, want %q", tt.input, got, tt.expect)
		}
	}
}

func TestFormatDateFR(t *testing.T) {
	tests := []struct {
		input  time.Time
		expect string
	}{
		{time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC), "14 octobre 2026"},
		{time.Date(2027, 2, 1, 0, 0, 0, 0, time.UTC), "1er février 2027"},
		{time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), "31 août 2026"},
		{time.Time{}, ""},
	}
	for _, tt := range tests {
		if got := FormatDateFR(tt.input); got != tt.expect {
			t.Errorf("FormatDateFR(%v) = %q, want %q", tt.input, got, tt.expect)
		}
	}
	if got := FormatDateShort(time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)); got != "04/03/2026" {
		t.Errorf("FormatDateShort = %q", got)
	}
}

func TestAmountToWordsFR(t *testing.T) {
	tests := []struct {
		input  string
		expect string
	}{
		{"0", "zéro euro"},
		{"1", "un euro"},
		{"0.5", "cinquante centimes"},
		{"0.01", "un centime"},
		{"21", "vingt-et-un euros"},
		{"71", "soixante-et-onze euros"},
		{"80", "quatre-vingts euros"},
		{"81", "quatre-vingt-un euros"},
		{"97", "quatre-vingt-dix-sept euros"},
		{"200", "deux cents euros"},
		{"201", "deux cent un euros"},
		{"1000", "mille euros"},
		{"80000", "quatre-vingt mille euros"},
		{"200000", "deux cent mille euros"},
		{"1234.56", "mille deux cent trente-quatre euros et cinquante-six centimes"},
		{"2000000", "deux millions d'euros"},
		{"1000001", "un million un euros"},
		{"-12", "moins douze euros"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := AmountToWordsFR(decimal.RequireFromString(tt.input))
			if got != tt.expect {
				t.Errorf("AmountToWordsFR(%s) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}
