package services

import (
	"testing"
	"time"

	"github.com/johnfercher/go-tree/node"
	"github.com/johnfercher/maroto/v2/pkg/core"

	"devis/model"
)

func sampleState() model.State {
	s := model.NewState(time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC))
	s.Company = model.Company{
		Name: "Atelier Dupont", LegalForm: "SARL", Siret: "12345678900012",
		Street: "3 rue des Lilas", PostalCode: "69003", City: "Lyon",
		Phone: "04 78 00 00 00", Email: "contact@atelier-dupont.fr",
		Insurance: "Décennale MAAF n° 123456", IBAN: "FR76 3000 4000 0500 0012 3456 789", BIC: "BNPAFRPP",
	}
	s.Client = model.Client{Civility: "Mme", FirstName: "Claire", LastName: "Martin", City: "Villeurbanne"}
	s.Property = model.Property{Kind: model.PropertyApartment, Street: "12 cours Émile Zola", PostalCode: "69100", City: "Villeurbanne", Floor: "3", Surface: 64, OlderThanTwoYears: true}
	s.Metadata.Number = "DEV-2026-10-001"
	s.Metadata.Title = "Rénovation cuisine et salle de bain"
	s.Metadata.PaymentTerms = "Paiement à réception de facture."
	s.Metadata.DiscountPercent = 5
	s.Metadata.DurationWeeks = 3
	s.Rooms = []model.Room{
		{ID: "a", Name: "Cuisine", Length: 4, Width: 3, Height: 2.5, Works: []model.Work{
			{ID: "1", Label: "Dépose carrelage", Unit: "m²", QuantityMode: model.QuantityFloor, LaborPrice: 18, VATRate: 10},
			{ID: "2", Label: "Peinture murs", Description: "Deux couches, finition satinée", Unit: "m²", QuantityMode: model.QuantityWalls, LaborPrice: 14, SupplyPrice: 6, VATRate: 10},
		}},
		{ID: "b", Name: "Salle de bain", Length: 2, Width: 2, Height: 2.5, Works: []model.Work{
			{ID: "3", Label: "Isolation", Unit: "m²", Quantity: 8, LaborPrice: 20, SupplyPrice: 15, VATRate: 5.5},
			{ID: "4", Label: "Sèche-serviettes", Unit: "u", Quantity: 1, LaborPrice: 90, SupplyPrice: 310, VATRate: 20},
		}},
		{ID: "c", Name: "Couloir"},
	}
	return s
}

func mustSettings(t *testing.T, overrides ...model.PDFSettings) model.PDFSettings {
	t.Helper()
	s, err := ResolvePDFSettings(overrides...)
	if err != nil {
		t.Fatalf("ResolvePDFSettings() error: %v", err)
	}
	return s
}

func TestGenerateQuotePDF_Full(t *testing.T) {
	settings := mustSettings(t)
	data := BuildQuoteExportData(sampleState(), settings)

	result, err := GenerateQuotePDF(data, settings)
	if err != nil {
		t.Fatalf("GenerateQuotePDF() error = %v", err)
	}
	if len(result) < 5 || string(result[:5]) != "%PDF-" {
		t.Fatalf("result does not start with PDF header")
	}
}

func TestGenerateQuotePDF_SectionsOff(t *testing.T) {
	off := model.Bool(false)
	settings := mustSettings(t, model.PDFSettings{
		Page:     model.PageSettings{Orientation: "landscape"},
		Sections: model.SectionSettings{Cover: off, Terms: off, Signature: off, PageNumbers: off},
		Columns:  model.ColumnSettings{LaborSupplySplit: model.Bool(true), VATColumn: off},
		Borders:  model.BorderSettings{Table: off},
		Texts:    model.TextSettings{Footer: " "},
	})

	result, err := GenerateQuotePDF(BuildQuoteExportData(sampleState(), settings), settings)
	if err != nil {
		t.Fatalf("GenerateQuotePDF() error = %v", err)
	}
	if len(result) == 0 {
		t.Fatal("GenerateQuotePDF() returned empty bytes")
	}
}

func TestGenerateQuotePDF_EmptyQuote(t *testing.T) {
	settings := mustSettings(t)
	data := BuildQuoteExportData(model.NewState(time.Now()), settings)

	result, err := GenerateQuotePDF(data, settings)
	if err != nil {
		t.Fatalf("GenerateQuotePDF() error = %v", err)
	}
	if len(result) == 0 {
		t.Fatal("GenerateQuotePDF() returned empty bytes")
	}
}

func TestGenerateQuotePDF_NilData(t *testing.T) {
	if _, err := GenerateQuotePDF(nil, DefaultPDFSettings()); err == nil {
		t.Error("expected error for nil data")
	}
}

func TestGenerateQuotePDF_MergesAppendix(t *testing.T) {
	settings := mustSettings(t, model.PDFSettings{Sections: model.SectionSettings{Cover: model.Bool(false)}})
	appendix, err := GenerateQuotePDF(BuildQuoteExportData(model.NewState(time.Now()), settings), settings)
	if err != nil {
		t.Fatalf("appendix: %v", err)
	}

	data := BuildQuoteExportData(sampleState(), settings)
	plain, err := GenerateQuotePDF(data, settings)
	if err != nil {
		t.Fatalf("plain: %v", err)
	}

	data.Appendix = appendix
	merged, err := GenerateQuotePDF(data, settings)
	if err != nil {
		t.Fatalf("merged: %v", err)
	}
	if len(merged) <= len(plain) {
		t.Errorf("merged PDF (%d bytes) should be larger than plain (%d bytes)", len(merged), len(plain))
	}
}

func TestDetailColumns_FillGrid(t *testing.T) {
	tests := []struct {
		name     string
		split    bool
		vat      bool
		expected int
	}{
		{"default", false, true, 7},
		{"split", true, true, 8},
		{"split no vat", true, false, 7},
		{"minimal", false, false, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultPDFSettings()
			s.Columns.LaborSupplySplit = model.Bool(tt.split)
			s.Columns.VATColumn = model.Bool(tt.vat)
			cols := detailColumns(s)
			if len(cols) != tt.expected {
				t.Errorf("len(cols) = %d, want %d", len(cols), tt.expected)
			}
			sum := 0
			for _, c := range cols {
				if c.size <= 0 {
					t.Errorf("column %q has size %d", c.title, c.size)
				}
				sum += c.size
			}
			if sum != gridSize {
				t.Errorf("columns span %d, want %d", sum, gridSize)
			}
		})
	}
}

func TestBuildDetailRows_RowCount(t *testing.T) {
	settings := mustSettings(t)
	data := BuildQuoteExportData(sampleState(), settings)

	// title + header, then per room: heading + lines + subtotal, plus one
	// description row, one empty-room row and the trailing gap
	want := 2 + (1 + 2 + 1) + (1 + 2 + 1) + (1 + 1 + 1) + 1 + 1
	if got := len(BuildDetailRows(data, settings)); got != want {
		t.Errorf("len(BuildDetailRows()) = %d, want %d", got, want)
	}

	settings.Columns.RoomSubtotals = model.Bool(false)
	settings.Columns.Descriptions = model.Bool(false)
	if got := len(BuildDetailRows(data, settings)); got != want-4 {
		t.Errorf("without subtotals and descriptions = %d, want %d", got, want-4)
	}
}

func TestBuildRecapRows_RowCount(t *testing.T) {
	settings := mustSettings(t)
	data := BuildQuoteExportData(sampleState(), settings)

	// title, header, 3 rooms, gap, gross, discount, HT, 3 VAT groups, total VAT,
	// TTC, deposit, balance, gap + words, trailing gap
	want := 2 + 3 + 1 + 2 + 1 + 3 + 1 + 1 + 2 + 2 + 1
	if got := len(BuildRecapRows(data, settings)); got != want {
		t.Errorf("len(BuildRecapRows()) = %d, want %d", got, want)
	}
}

func TestImageExtension(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	if ext, ok := imageExtension(png); !ok || ext != "png" {
		t.Errorf("imageExtension(png) = %q, %v", ext, ok)
	}
	if _, ok := imageExtension([]byte("GIF89a")); ok {
		t.Error("gif should not be accepted")
	}
}

// leaves returns the components placed in a row, in column order.
func leaves(r core.Row) []core.Structure {
	var out []core.Structure
	var walk func(n *node.Node[core.Structure])
	walk = func(n *node.Node[core.Structure]) {
		if n.IsLeaf() {
			out = append(out, n.GetData())
			return
		}
		for _, next := range n.GetNexts() {
			walk(next)
		}
	}
	walk(r.GetStructure())
	return out
}

func TestBuildCoverRows_Logo(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	gif := []byte("GIF89a\x01\x00\x01\x00")

	tests := []struct {
		name     string
		logo     []byte
		wantType string
	}{
		{"no logo", nil, "text"},
		{"png logo", png, "bytesImage"},
		{"unsupported logo", gif, "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := mustSettings(t)
			data := BuildQuoteExportData(sampleState(), settings)
			data.Logo = tt.logo

			rows := BuildCoverRows(data, settings)
			if len(rows) == 0 {
				t.Fatal("BuildCoverRows() returned no rows")
			}
			first := leaves(rows[0])
			if len(first) == 0 {
				t.Fatal("cover header row is empty")
			}
			if first[0].Type != tt.wantType {
				t.Fatalf("first cover component = %q, want %q", first[0].Type, tt.wantType)
			}
			if tt.wantType == "text" && first[0].Value != "Atelier Dupont" {
				t.Errorf("cover shows %v, want the company name", first[0].Value)
			}
		})
	}
}
