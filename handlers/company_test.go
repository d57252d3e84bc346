package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"devis/model"
	"devis/testhelpers"
)

func TestHandleCompanyGet_NoCompany(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	rec := serve(t, app, HandleCompanyGet(app), jsonRequest(t, http.MethodGet, "/api/company", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleCompanyGet(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	company := testhelpers.CreateTestCompany(t, app, "Atelier Dubois")
	company.Set("pdf_settings", model.PDFSettings{Colors: model.ColorSettings{Primary: "#336699"}})
	if err := app.Save(company); err != nil {
		t.Fatalf("save company: %v", err)
	}

	req := withCompany(jsonRequest(t, http.MethodGet, "/api/company", nil), company)
	rec := serve(t, app, HandleCompanyGet(app), req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[companyPayload](t, rec)
	if got.Name != "Atelier Dubois" || got.ID != company.Id {
		t.Errorf("unexpected company %+v", got.Company)
	}
	if got.QuotePrefix != "DEV" {
		t.Errorf("expected prefix DEV, got %q", got.QuotePrefix)
	}
	if got.PDFSettings == nil || got.PDFSettings.Colors.Primary != "#336699" {
		t.Errorf("expected stored pdf settings, got %+v", got.PDFSettings)
	}
}

func TestHandleCompanySave_CreatesFirstCompany(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	body := map[string]any{
		"name":         "  Rénov'Est  ",
		"siret":        "98765432100015",
		"city":         "Nancy",
		"quote_prefix": "re",
	}
	rec := serve(t, app, HandleCompanySave(app), jsonRequest(t, http.MethodPost, "/api/company", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[companyPayload](t, rec)
	if got.Name != "Rénov'Est" {
		t.Errorf("expected trimmed name, got %q", got.Name)
	}
	if got.QuotePrefix != "RE" {
		t.Errorf("expected upper-cased prefix, got %q", got.QuotePrefix)
	}
	testhelpers.AssertHXTrigger(t, rec.Header().Get("HX-Trigger"), "success")

	records, err := app.FindAllRecords("companies")
	if err != nil || len(records) != 1 {
		t.Fatalf("expected one company, got %d (%v)", len(records), err)
	}
	if records[0].GetString("city") != "Nancy" {
		t.Errorf("expected city Nancy, got %q", records[0].GetString("city"))
	}
}

func TestHandleCompanySave_UpdatesActiveCompany(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	company := testhelpers.CreateTestCompany(t, app, "Ancien Nom")

	body := map[string]any{
		"name":         "Nouveau Nom",
		"quote_prefix": "NN",
		"pdf_settings": map[string]any{"page": map[string]any{"orientation": "landscape"}},
	}
	req := withCompany(jsonRequest(t, http.MethodPost, "/api/company", body), company)
	rec := serve(t, app, HandleCompanySave(app), req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	updated, err := app.FindRecordById("companies", company.Id)
	if err != nil {
		t.Fatalf("company not found: %v", err)
	}
	if updated.GetString("name") != "Nouveau Nom" || updated.GetString("quote_prefix") != "NN" {
		t.Errorf("company not updated: %s / %s", updated.GetString("name"), updated.GetString("quote_prefix"))
	}
	if !strings.Contains(updated.GetString("pdf_settings"), "landscape") {
		t.Errorf("expected pdf settings to be stored, got %s", updated.GetString("pdf_settings"))
	}
}

func TestHandleCompanySave_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
		want string
	}{
		{"missing name", map[string]any{"name": " "}, "name"},
		{"bad siret", map[string]any{"name": "X", "siret": "123"}, "siret"},
		{"bad email", map[string]any{"name": "X", "email": "pas-un-mail"}, "email"},
		{"bad prefix", map[string]any{"name": "X", "quote_prefix": "DE-V"}, "quote_prefix"},
		{"bad pdf settings", map[string]any{"name": "X", "pdf_settings": map[string]any{"page": map[string]any{"orientation": "diagonal"}}}, "page"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := testhelpers.NewTestApp(t)
			rec := serve(t, app, HandleCompanySave(app), jsonRequest(t, http.MethodPost, "/api/company", tt.body))

			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
			}
			got := decodeBody[errorBody](t, rec)
			if _, ok := got.Fields[tt.want]; !ok {
				t.Errorf("expected an error on %q, got %s", tt.want, rec.Body.String())
			}
			if records, _ := app.FindAllRecords("companies"); len(records) != 0 {
				t.Error("no company should have been created")
			}
		})
	}
}

func TestHandleCompanySave_BadJSON(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	req := httptest.NewRequest(http.MethodPost, "/api/company", strings.NewReader("{name:"))

	rec := serve(t, app, HandleCompanySave(app), req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleCompanyActivate(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	company := testhelpers.CreateTestCompany(t, app, "Active SARL")

	req := jsonRequest(t, http.MethodPost, "/api/company/"+company.Id+"/activate", nil)
	req.SetPathValue("id", company.Id)
	rec := serve(t, app, HandleCompanyActivate(app), req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == activeCompanyCookie && c.Value == company.Id {
			found = true
		}
	}
	if !found {
		t.Error("expected active_company cookie")
	}
}

func TestHandleCompanyActivate_NotFound(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	req := jsonRequest(t, http.MethodPost, "/api/company/nope/activate", nil)
	req.SetPathValue("id", "nope")
	rec := serve(t, app, HandleCompanyActivate(app), req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
