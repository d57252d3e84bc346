package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"devis/services"
	"devis/testhelpers"
)

const uploadCSV = `Référence *;Désignation *;Unité *;Prix MO HT;Prix fourniture HT;TVA %;Catégorie
PEI-MUR;Peinture murs;m²;14,00;6,00;10;Peinture
REV-PLI;Pose de plinthes;ml;7;4;10;Revêtements
;Sans référence;u;10;;20;
`

func uploadRequest(t *testing.T, target, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte(content))
	w.Close()

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHandleCatalogList(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	company := testhelpers.CreateTestCompany(t, app, "Catalogue SARL")
	other := testhelpers.CreateTestCompany(t, app, "Autre")
	paint := testhelpers.CreateTestCatalogEntry(t, app, company.Id, "PEI-MUR", "Peinture murs", 14)
	paint.Set("category", "Peinture")
	app.Save(paint)
	testhelpers.CreateTestCatalogEntry(t, app, company.Id, "CAR-SOL", "Carrelage sol", 40)
	testhelpers.CreateTestCatalogEntry(t, app, other.Id, "PEI-PLA", "Peinture plafond", 16)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"all", "", []string{"CAR-SOL", "PEI-MUR"}},
		{"search label", "?q=peinture", []string{"PEI-MUR"}},
		{"category", "?category=Peinture", []string{"PEI-MUR"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withCompany(httptest.NewRequest(http.MethodGet, "/api/catalog"+tt.query, nil), company)
			rec := serve(t, app, HandleCatalogList(app), req)

			got := decodeBody[[]CatalogEntry](t, rec)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %+v", tt.want, got)
			}
			for i, ref := range tt.want {
				if got[i].Reference != ref {
					t.Errorf("entry %d: expected %s, got %s", i, ref, got[i].Reference)
				}
			}
		})
	}
}

func TestHandleCatalogTemplate(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	rec := serve(t, app, HandleCatalogTemplate(app), httptest.NewRequest(http.MethodGet, "/api/catalog/template", nil))

	if rec.Header().Get("Content-Type") != xlsxContentType {
		t.Errorf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("template is not a workbook: %v", err)
	}
	defer f.Close()
	header, _ := f.GetCellValue("Catalogue", "A1")
	if header != "Référence *" {
		t.Errorf("expected first header %q, got %q", "Référence *", header)
	}
}

func TestHandleCatalogValidate_JSON(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	company := testhelpers.CreateTestCompany(t, app, "Catalogue SARL")

	req := withCompany(uploadRequest(t, "/api/catalog/import", "catalogue.csv", uploadCSV), company)
	rec := serve(t, app, HandleCatalogValidate(app), req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[struct {
		Result         services.ValidationResult `json:"result"`
		ParsedRowsJSON string                    `json:"parsed_rows_json"`
	}](t, rec)
	if got.Result.TotalRows != 3 || got.Result.ValidRows != 2 || got.Result.ErrorRows != 1 {
		t.Errorf("unexpected counts %+v", got.Result)
	}
	var rows []services.CatalogRow
	if err := json.Unmarshal([]byte(got.ParsedRowsJSON), &rows); err != nil || len(rows) != 2 {
		t.Fatalf("expected two parsed rows, got %q (%v)", got.ParsedRowsJSON, err)
	}
	if rows[0].LaborPrice != 14 {
		t.Errorf("expected labor price 14, got %v", rows[0].LaborPrice)
	}
}

func TestHandleCatalogValidate_HTMX(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	company := testhelpers.CreateTestCompany(t, app, "Catalogue SARL")

	req := withCompany(uploadRequest(t, "/api/catalog/import", "catalogue.csv", uploadCSV), company)
	req.Header.Set("HX-Request", "true")
	rec := serve(t, app, HandleCatalogValidate(app), req)

	testhelpers.AssertHTMLContains(t, rec.Body.String(),
		"3 lignes, 2 valides, 1 en erreur",
		`hx-post="/api/catalog/import/commit"`,
		`name="parsed_rows_json"`,
		"Importer 2 lignes",
	)
}

func TestHandleCatalogValidate_Errors(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	company := testhelpers.CreateTestCompany(t, app, "Catalogue SARL")

	tests := []struct {
		name     string
		filename string
		content  string
	}{
		{"unsupported format", "catalogue.pdf", "%PDF"},
		{"missing column", "catalogue.csv", "Référence;Désignation\nA;B\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withCompany(uploadRequest(t, "/api/catalog/import", tt.filename, tt.content), company)
			rec := serve(t, app, HandleCatalogValidate(app), req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
			testhelpers.AssertHXTrigger(t, rec.Header().Get("HX-Trigger"), "error")
		})
	}
}

func TestHandleCatalogImportCommit(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	company := testhelpers.CreateTestCompany(t, app, "Catalogue SARL")
	testhelpers.CreateTestCatalogEntry(t, app, company.Id, "PEI-MUR", "Ancien libellé", 10)

	rows := []services.CatalogRow{
		{Row: 2, Reference: "PEI-MUR", Label: "Peinture murs", Unit: "m²", LaborPrice: 14, VATRate: 10},
		{Row: 3, Reference: "REV-PLI", Label: "Pose de plinthes", Unit: "ml", LaborPrice: 7, VATRate: 10},
	}
	b, _ := json.Marshal(rows)
	form := url.Values{"parsed_rows_json": {string(b)}}
	req := httptest.NewRequest(http.MethodPost, "/api/catalog/import/commit", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	rec := serve(t, app, HandleCatalogImportCommit(app), withCompany(req, company))

	testhelpers.AssertHTMLContains(t, rec.Body.String(), "1 créées, 1 mises à jour, 0 en échec")
	testhelpers.AssertHXTrigger(t, rec.Header().Get("HX-Trigger"), "success")

	entries, err := app.FindAllRecords("work_catalog")
	if err != nil || len(entries) != 2 {
		t.Fatalf("expected 2 catalog entries, got %d (%v)", len(entries), err)
	}
	for _, e := range entries {
		if e.GetString("reference") == "PEI-MUR" && e.GetString("label") != "Peinture murs" {
			t.Errorf("existing entry not updated: %q", e.GetString("label"))
		}
	}
}

func TestHandleCatalogImportCommit_MissingRows(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	company := testhelpers.CreateTestCompany(t, app, "Catalogue SARL")

	req := httptest.NewRequest(http.MethodPost, "/api/catalog/import/commit", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := serve(t, app, HandleCatalogImportCommit(app), withCompany(req, company))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleCatalogErrorReport(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	errs := []services.ValidationError{{Row: 4, Field: "Référence", Message: "Référence est obligatoire"}}
	rec := serve(t, app, HandleCatalogErrorReport(app), jsonRequest(t, http.MethodPost, "/api/catalog/import/errors", errs))

	if rec.Header().Get("Content-Type") != xlsxContentType {
		t.Fatalf("unexpected content type %q: %s", rec.Header().Get("Content-Type"), rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "catalogue-erreurs-") {
		t.Errorf("unexpected filename %q", rec.Header().Get("Content-Disposition"))
	}
}
