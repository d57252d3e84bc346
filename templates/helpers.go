// Package templates renders the HTML fragments served to the browser: the
// quote preview, the live recap, the catalog import reports and the body of
// the mail a quote is sent with.
//
// Components are written in the *.templ files; run `templ generate` after
// editing them.
package templates

import (
	"strings"

	"github.com/shopspring/decimal"

	"devis/services"
)

type termItem struct {
	Label string
	Value string
}

// termItems lists the filled commercial terms in display order.
func termItems(t services.ExportTerms) []termItem {
	all := []termItem{
		{"Conditions de paiement", t.PaymentTerms},
		{"Validité", t.Validity},
		{"Acompte", t.Deposit},
		{"Début des travaux", t.StartDate},
		{"Durée", t.Duration},
		{"Assurance", t.Insurance},
		{"Coordonnées bancaires", t.BankDetails},
		{"Notes", t.Notes},
	}
	items := all[:0]
	for _, it := range all {
		if it.Value != "" {
			items = append(items, it)
		}
	}
	return items
}

// metre summarises the surfaces of a room.
func metre(s services.ExportRoomSection) string {
	q := func(v float64) string { return services.FormatQuantity(decimal.NewFromFloat(v)) }
	return "Sol " + q(s.Surfaces.Floor) + " m², murs " + q(s.Surfaces.Walls) + " m², périmètre " + q(s.Surfaces.Perimeter) + " ml"
}

// messageLines splits a typed note into lines, dropping outer blank space.
func messageLines(message string) []string {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil
	}
	lines := strings.Split(message, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}

func hasParty(p services.ExportParty) bool {
	return p.Name != "" || len(p.Lines) > 0
}
