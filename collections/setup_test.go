package collections_test

import (
	"testing"

	"devis/collections"
	"devis/testhelpers"

	"github.com/pocketbase/pocketbase/core"
)

// expectedCollections is the full list of collections that Setup() must create.
var expectedCollections = []string{
	"companies",
	"clients",
	"quotes",
	"rooms",
	"works",
	"work_catalog",
	"quote_documents",
}

func TestSetup_AllCollectionsExist(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	for _, name := range expectedCollections {
		col, err := app.FindCollectionByNameOrId(name)
		if err != nil {
			t.Errorf("collection %q not found after Setup(): %v", name, err)
			continue
		}
		if col.Name != name {
			t.Errorf("expected collection name %q, got %q", name, col.Name)
		}
	}
}

func TestSetup_Idempotent(t *testing.T) {
	app := testhelpers.NewTestApp(t) // Setup() already called once via NewTestApp

	ids := make(map[string]string)
	for _, name := range expectedCollections {
		col, _ := app.FindCollectionByNameOrId(name)
		ids[name] = col.Id
	}

	if err := collections.Setup(app); err != nil {
		t.Fatalf("second Setup() error: %v", err)
	}

	for _, name := range expectedCollections {
		col, err := app.FindCollectionByNameOrId(name)
		if err != nil {
			t.Errorf("collection %q missing after second Setup(): %v", name, err)
			continue
		}
		if col.Id != ids[name] {
			t.Errorf("collection %q id changed after second Setup(): %s -> %s", name, ids[name], col.Id)
		}
	}
}

func TestSetup_CompaniesFields(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	col, _ := app.FindCollectionByNameOrId("companies")

	fields := []string{"name", "siret", "vat_number", "street", "postal_code", "city", "insurance", "iban", "bic", "quote_prefix", "pdf_settings", "logo", "cgv"}
	for _, f := range fields {
		if col.Fields.GetByName(f) == nil {
			t.Errorf("companies: missing field %q", f)
		}
	}

	if _, ok := col.Fields.GetByName("pdf_settings").(*core.JSONField); !ok {
		t.Error("companies.pdf_settings is not a JSONField")
	}
	logo, ok := col.Fields.GetByName("logo").(*core.FileField)
	if !ok {
		t.Fatal("companies.logo is not a FileField")
	}
	if logo.MaxSelect != 1 {
		t.Errorf("companies.logo: expected MaxSelect=1, got %d", logo.MaxSelect)
	}
}

func TestSetup_QuotesFields(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	col, _ := app.FindCollectionByNameOrId("quotes")

	fields := []string{"company", "client", "number", "title", "status", "issue_date", "validity_days",
		"discount_percent", "deposit_percent", "property", "settings", "total_ht", "total_ttc", "version"}
	for _, f := range fields {
		if col.Fields.GetByName(f) == nil {
			t.Errorf("quotes: missing field %q", f)
		}
	}

	sf, ok := col.Fields.GetByName("status").(*core.SelectField)
	if !ok {
		t.Fatal("status field is not a SelectField")
	}
	expected := map[string]bool{"draft": true, "sent": true, "accepted": true, "refused": true}
	for _, v := range sf.Values {
		if !expected[v] {
			t.Errorf("unexpected status value: %q", v)
		}
		delete(expected, v)
	}
	for v := range expected {
		t.Errorf("missing status value: %q", v)
	}
}

func TestSetup_RoomsAndWorksFields(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	tests := []struct {
		collection string
		fields     []string
	}{
		{"rooms", []string{"quote", "local_id", "sort_order", "name", "length", "width", "height", "openings", "notes"}},
		{"works", []string{"room", "local_id", "sort_order", "label", "unit", "quantity", "quantity_mode", "labor_price", "supply_price", "vat_rate"}},
		{"work_catalog", []string{"company", "reference", "label", "unit", "labor_price", "supply_price", "vat_rate", "category"}},
		{"quote_documents", []string{"quote", "kind", "file", "number", "total_ttc", "sent_to"}},
	}
	for _, tt := range tests {
		t.Run(tt.collection, func(t *testing.T) {
			col, err := app.FindCollectionByNameOrId(tt.collection)
			if err != nil {
				t.Fatalf("find %s: %v", tt.collection, err)
			}
			for _, f := range tt.fields {
				if col.Fields.GetByName(f) == nil {
					t.Errorf("%s: missing field %q", tt.collection, f)
				}
			}
		})
	}
}

func TestSetup_CascadeDeleteQuote(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	company := testhelpers.CreateTestCompany(t, app, "Cascade SARL")
	quote := testhelpers.CreateTestQuote(t, app, company.Id, "DEV-2026-10-001")

	roomsCol, _ := app.FindCollectionByNameOrId("rooms")
	room := core.NewRecord(roomsCol)
	room.Set("quote", quote.Id)
	room.Set("local_id", "r1")
	room.Set("name", "Cuisine")
	if err := app.Save(room); err != nil {
		t.Fatalf("save room: %v", err)
	}

	worksCol, _ := app.FindCollectionByNameOrId("works")
	work := core.NewRecord(worksCol)
	work.Set("room", room.Id)
	work.Set("local_id", "w1")
	work.Set("label", "Peinture")
	work.Set("unit", "m²")
	if err := app.Save(work); err != nil {
		t.Fatalf("save work: %v", err)
	}

	if err := app.Delete(quote); err != nil {
		t.Fatalf("delete quote: %v", err)
	}

	if _, err := app.FindRecordById("rooms", room.Id); err == nil {
		t.Error("room should be deleted with its quote")
	}
	if _, err := app.FindRecordById("works", work.Id); err == nil {
		t.Error("work should be deleted with its room")
	}
}

func TestSetup_CatalogReferenceUnique(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	company := testhelpers.CreateTestCompany(t, app, "Unique SARL")
	col, _ := app.FindCollectionByNameOrId("work_catalog")

	save := func() error {
		r := core.NewRecord(col)
		r.Set("company", company.Id)
		r.Set("reference", "PEI-MUR")
		r.Set("label", "Peinture murs")
		r.Set("unit", "m²")
		return app.Save(r)
	}
	if err := save(); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := save(); err == nil {
		t.Error("expected duplicate reference to be rejected")
	}
}

func TestSetup_QuoteNumberUnique(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	company := testhelpers.CreateTestCompany(t, app, "Unique SARL")
	other := testhelpers.CreateTestCompany(t, app, "Autre SARL")
	testhelpers.CreateTestQuote(t, app, company.Id, "DEV-2026-10-001")
	testhelpers.CreateTestQuote(t, app, other.Id, "DEV-2026-10-001")
	testhelpers.CreateTestQuote(t, app, company.Id, "")
	testhelpers.CreateTestQuote(t, app, company.Id, "")

	col, _ := app.FindCollectionByNameOrId("quotes")
	dup := core.NewRecord(col)
	dup.Set("company", company.Id)
	dup.Set("number", "DEV-2026-10-001")
	dup.Set("status", "draft")
	if err := app.Save(dup); err == nil {
		t.Error("expected a duplicate quote number to be rejected")
	}
}
