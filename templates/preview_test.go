package templates

import (
	"context"
	"strings"
	"testing"
	"time"

	"devis/model"
	"devis/services"
	"devis/testhelpers"
)

func previewData(t *testing.T) *services.QuoteExportData {
	t.Helper()
	s := model.NewState(time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC))
	s.Company = model.Company{Name: "Atelier <Dupont>", City: "Lyon"}
	s.Client = model.Client{Civility: "Mme", LastName: "Martin"}
	s.Metadata.Number = "DEV-2026-10-001"
	s.Metadata.DiscountPercent = 10
	s.Rooms = []model.Room{
		{ID: "a", Name: "Cuisine", Length: 4, Width: 3, Height: 2.5, Works: []model.Work{
			{ID: "1", Label: "Peinture murs", Description: "Deux couches", Unit: "m²", QuantityMode: model.QuantityWalls, LaborPrice: 14, SupplyPrice: 6, VATRate: 10},
			{ID: "2", Label: "Sèche-serviettes", Unit: "u", Quantity: 1, LaborPrice: 90, SupplyPrice: 310, VATRate: 20},
		}},
		{ID: "b", Name: "Couloir"},
	}
	settings, err := services.ResolvePDFSettings()
	if err != nil {
		t.Fatalf("ResolvePDFSettings: %v", err)
	}
	return services.BuildQuoteExportData(s, settings)
}

func TestQuotePreview(t *testing.T) {
	data := previewData(t)
	var sb strings.Builder
	if err := QuotePreview(data).Render(context.Background(), &sb); err != nil {
		t.Fatalf("Render: %v", err)
	}
	body := sb.String()

	testhelpers.AssertHTMLContains(t, body,
		"DEV-2026-10-001",
		"Atelier &lt;Dupont&gt;",
		"Mme Martin",
		"1. Cuisine",
		"2. Couloir",
		"Aucun travail dans cette pièce.",
		"Peinture murs",
		"Deux couches",
		"10 %",
		"20 %",
		"Remise 10 %",
		"Total TTC",
		services.FormatEUR(data.Totals.TotalTTC),
	)
	if strings.Contains(body, "<Dupont>") {
		t.Error("company name was not escaped")
	}
}

func TestQuoteRecap_NoDiscountNoDeposit(t *testing.T) {
	data := previewData(t)
	data.Totals.Discount = data.Totals.Discount.Sub(data.Totals.Discount)
	data.Totals.Deposit = data.Totals.Deposit.Sub(data.Totals.Deposit)

	var sb strings.Builder
	if err := QuoteRecap(data).Render(context.Background(), &sb); err != nil {
		t.Fatalf("Render: %v", err)
	}
	body := sb.String()
	if strings.Contains(body, "Remise") {
		t.Error("discount row should be hidden without discount")
	}
	if strings.Contains(body, "Acompte") {
		t.Error("deposit rows should be hidden without deposit")
	}
	testhelpers.AssertHTMLContains(t, body, `id="quote-recap"`, "Total HT", "Total TTC")
}

func TestCatalogValidation(t *testing.T) {
	res := &services.ValidationResult{
		TotalRows: 3, ValidRows: 2, ErrorRows: 1,
		Errors:       []services.ValidationError{{Row: 4, Field: "Unité", Message: `Unité "kg" inconnue`}},
		Unrecognized: []string{"Remarque"},
	}
	var sb strings.Builder
	if err := CatalogValidation(res, "/api/catalog/import/commit", `[{"reference":"A"}]`).Render(context.Background(), &sb); err != nil {
		t.Fatalf("Render: %v", err)
	}
	testhelpers.AssertHTMLContains(t, sb.String(),
		"3 lignes, 2 valides, 1 en erreur",
		"<code>Remarque</code>",
		"&#34;kg&#34;",
		`hx-post="/api/catalog/import/commit"`,
		"Importer 2 lignes",
		`name="parsed_rows_json"`,
		"[{&#34;reference&#34;:&#34;A&#34;}]",
	)
}

func TestCatalogValidation_NothingValid(t *testing.T) {
	res := &services.ValidationResult{TotalRows: 1, ErrorRows: 1}
	var sb strings.Builder
	if err := CatalogValidation(res, "/commit", "").Render(context.Background(), &sb); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(sb.String(), "hx-post") {
		t.Error("commit button should not render without valid rows")
	}
}

func TestCatalogImportDone(t *testing.T) {
	res := &services.ImportResult{Created: 2, Updated: 1, Failed: 3, RolledBack: true,
		Errors: []services.ImportRowError{{Row: 7, Message: "Échec"}}}
	var sb strings.Builder
	if err := CatalogImportDone(res).Render(context.Background(), &sb); err != nil {
		t.Fatalf("Render: %v", err)
	}
	testhelpers.AssertHTMLContains(t, sb.String(), "2 créées, 1 mises à jour, 3 en échec", "annulés", "Ligne 7 : Échec")
}
