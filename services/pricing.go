// Package services provides métré, pricing, formatting and export functions
// for renovation quotes.
package services

import (
	"sort"

	"github.com/shopspring/decimal"

	"devis/model"
)

var hundred = decimal.NewFromInt(100)

// WorkLine holds the calculated amounts for a single work item.
type WorkLine struct {
	WorkID      string
	Quantity    decimal.Decimal
	UnitLabor   decimal.Decimal
	UnitSupply  decimal.Decimal
	UnitPriceHT decimal.Decimal // UnitLabor + UnitSupply
	LaborTotal  decimal.Decimal // Quantity * UnitLabor
	SupplyTotal decimal.Decimal // Quantity * UnitSupply
	TotalHT     decimal.Decimal // LaborTotal + SupplyTotal
	VATRate     decimal.Decimal
	VATAmount   decimal.Decimal // TotalHT * VATRate / 100
	TotalTTC    decimal.Decimal // TotalHT + VATAmount
}

// RoomTotals aggregates the lines of one room.
type RoomTotals struct {
	RoomID    string
	Name      string
	Lines     []WorkLine
	LaborHT   decimal.Decimal
	SupplyHT  decimal.Decimal
	TotalHT   decimal.Decimal
	VATAmount decimal.Decimal
	TotalTTC  decimal.Decimal
}

// VATGroup is the taxable base and VAT amount of one TVA rate.
type VATGroup struct {
	Rate   decimal.Decimal
	BaseHT decimal.Decimal
	VAT    decimal.Decimal
}

// QuoteTotals holds the aggregated totals of a quote.
type QuoteTotals struct {
	Rooms           []RoomTotals
	GrossHT         decimal.Decimal // before discount
	DiscountPercent decimal.Decimal
	Discount        decimal.Decimal
	TotalHT         decimal.Decimal // after discount
	VATGroups       []VATGroup
	TotalVAT        decimal.Decimal
	TotalTTC        decimal.Decimal
	DepositPercent  decimal.Decimal
	Deposit         decimal.Decimal
	Balance         decimal.Decimal
}

// LineCount returns the number of work lines across all rooms.
func (t QuoteTotals) LineCount() int {
	n := 0
	for _, r := range t.Rooms {
		n += len(r.Lines)
	}
	return n
}

// Lines returns every work line of the quote in room order.
func (t QuoteTotals) Lines() []WorkLine {
	lines := make([]WorkLine, 0, t.LineCount())
	for _, r := range t.Rooms {
		lines = append(lines, r.Lines...)
	}
	return lines
}

func cents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func percentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return cents(amount.Mul(percent).Div(hundred))
}

// CalcWorkLine computes the totals of a work line. Every amount is rounded
// half-up to the cent.
func CalcWorkLine(qty, labor, supply, vatRate float64) WorkLine {
	q := decimal.NewFromFloat(qty).Round(2)
	ul := decimal.NewFromFloat(labor)
	us := decimal.NewFromFloat(supply)
	rate := decimal.NewFromFloat(vatRate)

	laborTotal := cents(q.Mul(ul))
	supplyTotal := cents(q.Mul(us))
	totalHT := laborTotal.Add(supplyTotal)
	vat := percentOf(totalHT, rate)

	return WorkLine{
		Quantity:    q,
		UnitLabor:   cents(ul),
		UnitSupply:  cents(us),
		UnitPriceHT: cents(ul.Add(us)),
		LaborTotal:  laborTotal,
		SupplyTotal: supplyTotal,
		TotalHT:     totalHT,
		VATRate:     rate,
		VATAmount:   vat,
		TotalTTC:    totalHT.Add(vat),
	}
}

// CalcRoomTotals prices every work of the room, resolving quantities from
// the room métré.
func CalcRoomTotals(r model.Room) RoomTotals {
	totals := RoomTotals{RoomID: r.ID, Name: r.Name}
	for _, w := range r.Works {
		line := CalcWorkLine(WorkQuantity(r, w), w.LaborPrice, w.SupplyPrice, w.VATRate)
		line.WorkID = w.ID
		totals.Lines = append(totals.Lines, line)
		totals.LaborHT = totals.LaborHT.Add(line.LaborTotal)
		totals.SupplyHT = totals.SupplyHT.Add(line.SupplyTotal)
		totals.TotalHT = totals.TotalHT.Add(line.TotalHT)
		totals.VATAmount = totals.VATAmount.Add(line.VATAmount)
	}
	totals.TotalTTC = totals.TotalHT.Add(totals.VATAmount)
	return totals
}

// CalcVATBreakdown groups lines by VAT rate in ascending rate order. Rates
// with a zero base are omitted. The VAT of each group is computed on the
// group base, not summed from the lines.
func CalcVATBreakdown(lines []WorkLine) []VATGroup {
	byRate := map[string]*VATGroup{}
	for _, l := range lines {
		key := l.VATRate.String()
		g, ok := byRate[key]
		if !ok {
			g = &VATGroup{Rate: l.VATRate}
			byRate[key] = g
		}
		g.BaseHT = g.BaseHT.Add(l.TotalHT)
	}

	groups := make([]VATGroup, 0, len(byRate))
	for _, g := range byRate {
		if g.BaseHT.IsZero() {
			continue
		}
		g.VAT = percentOf(g.BaseHT, g.Rate)
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Rate.LessThan(groups[j].Rate)
	})
	return groups
}

// CalcQuoteTotals computes the totals of a quote. The discount is taken on
// the gross HT total and spread over the VAT groups in proportion to their
// base, the last group absorbing the rounding remainder. The deposit is a
// share of the TTC total.
func CalcQuoteTotals(rooms []model.Room, discountPercent, depositPercent float64) QuoteTotals {
	totals := QuoteTotals{
		DiscountPercent: decimal.NewFromFloat(discountPercent),
		DepositPercent:  decimal.NewFromFloat(depositPercent),
	}

	var lines []WorkLine
	for _, r := range rooms {
		rt := CalcRoomTotals(r)
		totals.Rooms = append(totals.Rooms, rt)
		totals.GrossHT = totals.GrossHT.Add(rt.TotalHT)
		lines = append(lines, rt.Lines...)
	}

	totals.Discount = percentOf(totals.GrossHT, totals.DiscountPercent)
	totals.TotalHT = totals.GrossHT.Sub(totals.Discount)

	groups := CalcVATBreakdown(lines)
	if totals.Discount.IsPositive() && totals.GrossHT.IsPositive() {
		remaining := totals.Discount
		for i := range groups {
			share := remaining
			if i < len(groups)-1 {
				share = cents(groups[i].BaseHT.Mul(totals.Discount).Div(totals.GrossHT))
			}
			remaining = remaining.Sub(share)
			groups[i].BaseHT = groups[i].BaseHT.Sub(share)
			groups[i].VAT = percentOf(groups[i].BaseHT, groups[i].Rate)
		}
	}
	totals.VATGroups = groups

	for _, g := range groups {
		totals.TotalVAT = totals.TotalVAT.Add(g.VAT)
	}
	totals.TotalTTC = totals.TotalHT.Add(totals.TotalVAT)
	totals.Deposit = percentOf(totals.TotalTTC, totals.DepositPercent)
	totals.Balance = totals.TotalTTC.Sub(totals.Deposit)
	return totals
}

// CalcStateTotals is CalcQuoteTotals over a quote state.
func CalcStateTotals(s model.State) QuoteTotals {
	return CalcQuoteTotals(s.Rooms, s.Metadata.DiscountPercent, s.Metadata.DepositPercent)
}
