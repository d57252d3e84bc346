package services

import (
	"bytes"
	"strings"
	"testing"

	"devis/testhelpers"
)

const catalogCSV = `Référence *;Désignation *;Unité *;Prix MO HT;Prix fourniture HT;TVA %;Catégorie;Remarque
PEI-MUR;Peinture murs;m²;14,00;6,00;10;Peinture;interne
REV-PLI;Pose de plinthes;ml;7;4;10;Revêtements;
;Sans référence;u;10;;20;;
ISO-COM;Isolation;m²;vingt;15;7;Isolation;
PEI-MUR;Doublon;m²;1;1;10;;
;;;;;;;
`

func TestMapHeadersToFields(t *testing.T) {
	fields := CatalogFields()

	t.Run("labels and aliases", func(t *testing.T) {
		headers := []string{"REFERENCE", "Libellé", "unité *", "Main d'oeuvre", "TVA"}
		mapped, unrecognized := mapHeadersToFields(headers, fields)
		if len(unrecognized) != 0 {
			t.Errorf("expected no unrecognized, got %v", unrecognized)
		}
		want := []string{"reference", "label", "unit", "labor_price", "vat_rate"}
		for i := range want {
			if mapped[i] != want[i] {
				t.Errorf("mapped[%d] = %q, want %q", i, mapped[i], want[i])
			}
		}
	})

	t.Run("unrecognized and duplicate columns", func(t *testing.T) {
		headers := []string{"Référence", "Couleur", "Ref"}
		mapped, unrecognized := mapHeadersToFields(headers, fields)
		if len(unrecognized) != 2 || unrecognized[0] != "Couleur" || unrecognized[1] != "Ref" {
			t.Errorf("expected [Couleur Ref], got %v", unrecognized)
		}
		if mapped[1] != "" || mapped[2] != "" {
			t.Errorf("unexpected mapping: %v", mapped)
		}
	})
}

func TestValidateCatalogFile_CSV(t *testing.T) {
	result, err := ValidateCatalogFile(strings.NewReader(catalogCSV), "catalogue.csv")
	if err != nil {
		t.Fatalf("ValidateCatalogFile() error = %v", err)
	}

	if result.TotalRows != 5 {
		t.Errorf("TotalRows = %d, want 5", result.TotalRows)
	}
	if result.ValidRows != 2 {
		t.Errorf("ValidRows = %d, want 2", result.ValidRows)
	}
	if result.ErrorRows != 3 {
		t.Errorf("ErrorRows = %d, want 3", result.ErrorRows)
	}
	if len(result.Unrecognized) != 1 || result.Unrecognized[0] != "Remarque" {
		t.Errorf("Unrecognized = %v", result.Unrecognized)
	}

	first := result.ParsedRows[0]
	if first.Reference != "PEI-MUR" || first.LaborPrice != 14 || first.SupplyPrice != 6 || first.VATRate != 10 {
		t.Errorf("unexpected first row: %+v", first)
	}
	if first.Row != 2 {
		t.Errorf("first.Row = %d, want 2", first.Row)
	}

	byRow := map[int][]string{}
	for _, e := range result.Errors {
		byRow[e.Row] = append(byRow[e.Row], e.Field)
	}
	if fields := byRow[4]; len(fields) != 1 || fields[0] != "Référence" {
		t.Errorf("row 4 errors = %v, want [Référence]", fields)
	}
	if fields := byRow[5]; len(fields) != 2 {
		t.Errorf("row 5 errors = %v, want price and VAT", fields)
	}
	if fields := byRow[6]; len(fields) != 1 || fields[0] != "Référence" {
		t.Errorf("row 6 errors = %v, want duplicate reference", fields)
	}
}

func TestValidateCatalogFile_DefaultVAT(t *testing.T) {
	input := "Référence,Désignation,Unité\nFOR-NET,Nettoyage de fin de chantier,forfait\n"
	result, err := ValidateCatalogFile(strings.NewReader(input), "catalogue.csv")
	if err != nil {
		t.Fatalf("ValidateCatalogFile() error = %v", err)
	}
	if result.ValidRows != 1 || result.ParsedRows[0].VATRate != 20 {
		t.Errorf("unexpected result: %+v", result.ParsedRows)
	}
}

func TestValidateCatalogFile_MissingColumn(t *testing.T) {
	input := "Référence,Désignation\nPEI-MUR,Peinture murs\n"
	_, err := ValidateCatalogFile(strings.NewReader(input), "catalogue.csv")
	if err == nil || !strings.Contains(err.Error(), "Unité") {
		t.Errorf("expected missing Unité column error, got %v", err)
	}
}

func TestValidateCatalogFile_Template(t *testing.T) {
	tpl, err := GenerateCatalogTemplate()
	if err != nil {
		t.Fatalf("GenerateCatalogTemplate() error = %v", err)
	}

	f := openWorkbook(t, tpl)
	a1, _ := f.GetCellValue("Catalogue", "A1")
	if a1 != "Référence *" {
		t.Errorf("A1 = %q, want %q", a1, "Référence *")
	}

	// The example row of the template must itself validate.
	result, err := ValidateCatalogFile(bytes.NewReader(tpl), "modele.xlsx")
	if err != nil {
		t.Fatalf("ValidateCatalogFile(template) error = %v", err)
	}
	if result.ValidRows != 1 || len(result.Errors) != 0 {
		t.Errorf("template example row: valid=%d errors=%v", result.ValidRows, result.Errors)
	}
}

func TestCommitCatalogImport_Upsert(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	company := testhelpers.CreateTestCompany(t, app, "Import SARL")
	testhelpers.CreateTestCatalogEntry(t, app, company.Id, "PEI-MUR", "Ancienne peinture", 10)

	validation, err := ValidateCatalogFile(strings.NewReader(catalogCSV), "catalogue.csv")
	if err != nil {
		t.Fatalf("ValidateCatalogFile() error = %v", err)
	}

	result, err := CommitCatalogImport(app, company.Id, validation.ParsedRows)
	if err != nil {
		t.Fatalf("CommitCatalogImport() error = %v", err)
	}
	if result.Created != 1 || result.Updated != 1 || result.Failed != 0 {
		t.Errorf("result = %+v, want 1 created, 1 updated", result)
	}

	records, _ := app.FindAllRecords("work_catalog")
	if len(records) != 2 {
		t.Fatalf("expected 2 catalog records, got %d", len(records))
	}
	updated, err := app.FindFirstRecordByData("work_catalog", "reference", "PEI-MUR")
	if err != nil {
		t.Fatalf("find PEI-MUR: %v", err)
	}
	if updated.GetString("label") != "Peinture murs" || updated.GetFloat("labor_price") != 14 {
		t.Errorf("PEI-MUR not updated: label=%q labor=%v", updated.GetString("label"), updated.GetFloat("labor_price"))
	}
}

func TestCommitCatalogImport_RollsBackChunk(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	company := testhelpers.CreateTestCompany(t, app, "Rollback SARL")

	rows := []CatalogRow{
		{Row: 2, Reference: "OK-1", Label: "Valide", Unit: "u", VATRate: 20},
		{Row: 3, Reference: "KO-1", Label: "", Unit: "u", VATRate: 20}, // label is required by the collection
	}
	result, err := CommitCatalogImport(app, company.Id, rows)
	if err != nil {
		t.Fatalf("CommitCatalogImport() error = %v", err)
	}
	if !result.RolledBack || result.Failed != 2 || result.Created != 0 {
		t.Errorf("result = %+v, want whole chunk rolled back", result)
	}
	if len(result.Errors) != 1 || result.Errors[0].Row != 3 {
		t.Errorf("errors = %+v, want row 3", result.Errors)
	}

	records, _ := app.FindAllRecords("work_catalog")
	if len(records) != 0 {
		t.Errorf("expected no records after rollback, got %d", len(records))
	}
}
