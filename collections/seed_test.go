package collections_test

import (
	"testing"

	"devis/collections"
	"devis/testhelpers"
)

func TestSeed_CreatesData(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	if err := collections.Seed(app); err != nil {
		t.Fatalf("Seed() error: %v", err)
	}

	companies, err := app.FindAllRecords("companies")
	if err != nil {
		t.Fatalf("query companies error: %v", err)
	}
	if len(companies) != 1 {
		t.Fatalf("expected 1 company, got %d", len(companies))
	}
	if got := companies[0].GetString("quote_prefix"); got != "DEV" {
		t.Errorf("quote_prefix = %q, want %q", got, "DEV")
	}

	catalog, _ := app.FindAllRecords("work_catalog")
	if len(catalog) != 12 {
		t.Errorf("expected 12 catalog entries, got %d", len(catalog))
	}

	quotes, _ := app.FindAllRecords("quotes")
	if len(quotes) != 1 {
		t.Fatalf("expected 1 quote, got %d", len(quotes))
	}
	if quotes[0].GetString("company") != companies[0].Id {
		t.Errorf("quote company = %q, want %q", quotes[0].GetString("company"), companies[0].Id)
	}

	rooms, _ := app.FindAllRecords("rooms")
	if len(rooms) != 2 {
		t.Errorf("expected 2 rooms, got %d", len(rooms))
	}
	works, _ := app.FindAllRecords("works")
	if len(works) != 5 {
		t.Errorf("expected 5 works, got %d", len(works))
	}
}

func TestSeed_Idempotent(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	if err := collections.Seed(app); err != nil {
		t.Fatalf("first Seed() error: %v", err)
	}
	if err := collections.Seed(app); err != nil {
		t.Fatalf("second Seed() error: %v", err)
	}

	companies, _ := app.FindAllRecords("companies")
	if len(companies) != 1 {
		t.Errorf("expected 1 company after two seeds, got %d", len(companies))
	}
	quotes, _ := app.FindAllRecords("quotes")
	if len(quotes) != 1 {
		t.Errorf("expected 1 quote after two seeds, got %d", len(quotes))
	}
}

func TestSeed_SkipsWhenDataExists(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	testhelpers.CreateTestCompany(t, app, "Existing SARL")

	if err := collections.Seed(app); err != nil {
		t.Fatalf("Seed() error: %v", err)
	}

	catalog, _ := app.FindAllRecords("work_catalog")
	if len(catalog) != 0 {
		t.Errorf("expected no catalog entries when a company exists, got %d", len(catalog))
	}
}

func TestSeedCatalog_SkipsExistingReferences(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	company := testhelpers.CreateTestCompany(t, app, "Catalog SARL")
	testhelpers.CreateTestCatalogEntry(t, app, company.Id, "PEI-MUR", "Peinture maison", 11)

	if err := collections.SeedCatalog(app, company.Id); err != nil {
		t.Fatalf("SeedCatalog() error: %v", err)
	}

	catalog, _ := app.FindAllRecords("work_catalog")
	if len(catalog) != 12 {
		t.Errorf("expected 12 catalog entries, got %d", len(catalog))
	}

	kept, err := app.FindFirstRecordByData("work_catalog", "reference", "PEI-MUR")
	if err != nil {
		t.Fatalf("find PEI-MUR: %v", err)
	}
	if kept.GetString("label") != "Peinture maison" {
		t.Errorf("existing entry overwritten: label = %q", kept.GetString("label"))
	}
}
