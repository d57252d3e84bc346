// Package testhelpers provides utilities for testing PocketBase-based applications.
package testhelpers

import (
	"strings"
	"testing"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"devis/collections"
)

// NewTestApp creates a PocketBase instance backed by a temporary directory.
// It bootstraps the app and runs collections.Setup to create all tables.
// The temporary directory is cleaned up automatically when the test finishes.
func NewTestApp(t *testing.T) *pocketbase.PocketBase {
	t.Helper()

	tmpDir := t.TempDir()
	app := pocketbase.NewWithConfig(pocketbase.Config{
		DefaultDataDir: tmpDir,
	})

	if err := app.Bootstrap(); err != nil {
		t.Fatalf("failed to bootstrap test app: %v", err)
	}

	if err := collections.Setup(app); err != nil {
		t.Fatalf("failed to set up collections: %v", err)
	}

	return app
}

// CreateTestCompany creates a company record with the given name and returns it.
func CreateTestCompany(t *testing.T, app core.App, name string) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId("companies")
	if err != nil {
		t.Fatalf("failed to find companies collection: %v", err)
	}

	record := core.NewRecord(col)
	record.Set("name", name)
	record.Set("siret", "12345678900012")
	record.Set("street", "3 rue des Lilas")
	record.Set("postal_code", "69003")
	record.Set("city", "Lyon")
	record.Set("email", "contact@example.fr")
	record.Set("quote_prefix", "DEV")

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test company: %v", err)
	}

	return record
}

// CreateTestClient creates a client record linked to a company and returns it.
func CreateTestClient(t *testing.T, app core.App, companyID, lastName string) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId("clients")
	if err != nil {
		t.Fatalf("failed to find clients collection: %v", err)
	}

	record := core.NewRecord(col)
	record.Set("company", companyID)
	record.Set("civility", "Mme")
	record.Set("first_name", "Claire")
	record.Set("last_name", lastName)
	record.Set("city", "Villeurbanne")

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test client: %v", err)
	}

	return record
}

// CreateTestQuote creates a draft quote record linked to a company.
func CreateTestQuote(t *testing.T, app core.App, companyID, number string) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId("quotes")
	if err != nil {
		t.Fatalf("failed to find quotes collection: %v", err)
	}

	record := core.NewRecord(col)
	record.Set("company", companyID)
	record.Set("number", number)
	record.Set("title", "Rénovation")
	record.Set("status", "draft")
	record.Set("issue_date", time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC))
	record.Set("validity_days", 30)
	record.Set("deposit_percent", 30)

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test quote: %v", err)
	}

	return record
}

// CreateTestCatalogEntry creates a work_catalog record for a company.
func CreateTestCatalogEntry(t *testing.T, app core.App, companyID, reference, label string, labor float64) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId("work_catalog")
	if err != nil {
		t.Fatalf("failed to find work_catalog collection: %v", err)
	}

	record := core.NewRecord(col)
	record.Set("company", companyID)
	record.Set("reference", reference)
	record.Set("label", label)
	record.Set("unit", "m²")
	record.Set("labor_price", labor)
	record.Set("vat_rate", 10)

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test catalog entry: %v", err)
	}

	return record
}

// AssertHTMLContains checks that body contains all specified fragments.
func AssertHTMLContains(t *testing.T, body string, fragments ...string) {
	t.Helper()

	for _, frag := range fragments {
		if !strings.Contains(body, frag) {
			t.Errorf("expected HTML to contain %q, but it was not found\nbody (first 500 chars): %s",
				frag, truncate(body, 500))
		}
	}
}

// AssertHXTrigger checks that the HX-Trigger header carries a toast of the given type.
func AssertHXTrigger(t *testing.T, headerVal, toastType string) {
	t.Helper()

	if !strings.Contains(headerVal, `"showToast"`) || !strings.Contains(headerVal, `"type":"`+toastType+`"`) {
		t.Errorf("expected HX-Trigger with %s toast, got %q", toastType, headerVal)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
