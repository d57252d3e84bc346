package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"

	"devis/services"
	"devis/templates"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CatalogEntry is a work_catalog record as served to the editor.
type CatalogEntry struct {
	ID          string  `json:"id"`
	Reference   string  `json:"reference"`
	Label       string  `json:"label"`
	Description string  `json:"description,omitempty"`
	Unit        string  `json:"unit"`
	LaborPrice  float64 `json:"labor_price"`
	SupplyPrice float64 `json:"supply_price"`
	VATRate     float64 `json:"vat_rate"`
	Category    string  `json:"category,omitempty"`
}

// HandleCatalogList returns the catalog of the active company, filtered by
// ?q= on reference and label and by ?category=.
func HandleCatalogList(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		company, err := requireCompany(e)
		if company == nil {
			return err
		}

		filter := "company = {:company}"
		params := dbx.Params{"company": company.Id}
		if q := strings.TrimSpace(e.Request.URL.Query().Get("q")); q != "" {
			filter += " && (reference ~ {:q} || label ~ {:q})"
			params["q"] = q
		}
		if cat := strings.TrimSpace(e.Request.URL.Query().Get("category")); cat != "" {
			filter += " && category = {:category}"
			params["category"] = cat
		}

		records, err := app.FindRecordsByFilter("work_catalog", filter, "category,reference", 0, 0, params)
		if err != nil {
			zap.S().Errorf("catalog_list: could not query catalog: %v", err)
			records = nil
		}

		entries := make([]CatalogEntry, 0, len(records))
		for _, r := range records {
			entries = append(entries, CatalogEntry{
				ID:          r.Id,
				Reference:   r.GetString("reference"),
				Label:       r.GetString("label"),
				Description: r.GetString("description"),
				Unit:        r.GetString("unit"),
				LaborPrice:  r.GetFloat("labor_price"),
				SupplyPrice: r.GetFloat("supply_price"),
				VATRate:     r.GetFloat("vat_rate"),
				Category:    r.GetString("category"),
			})
		}
		return e.JSON(http.StatusOK, entries)
	}
}

// HandleCatalogTemplate downloads the empty catalog workbook.
func HandleCatalogTemplate(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		xlsxBytes, err := services.GenerateCatalogTemplate()
		if err != nil {
			zap.S().Errorf("catalog_template: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "Échec de la génération du modèle")
		}
		e.Response.Header().Set("Content-Type", xlsxContentType)
		e.Response.Header().Set("Content-Disposition", `attachment; filename="modele-catalogue.xlsx"`)
		e.Response.Write(xlsxBytes)
		return nil
	}
}

// HandleCatalogValidate parses an uploaded CSV or XLSX file and renders the
// validation report. Valid rows are embedded in the report for the commit
// step.
func HandleCatalogValidate(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if company, err := requireCompany(e); company == nil {
			return err
		}

		if err := e.Request.ParseMultipartForm(10 << 20); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Fichier trop volumineux ou formulaire invalide")
		}
		file, header, err := e.Request.FormFile("file")
		if err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Choisissez un fichier à importer")
		}
		defer file.Close()

		result, err := services.ValidateCatalogFile(file, header.Filename)
		if err != nil {
			zap.S().Infof("catalog_validate: %v", err)
			return ErrorToast(e, http.StatusBadRequest, err.Error())
		}

		var parsedRowsJSON string
		if result.ValidRows > 0 {
			b, err := json.Marshal(result.ParsedRows)
			if err != nil {
				zap.S().Errorf("catalog_validate: marshal parsed rows: %v", err)
			} else {
				parsedRowsJSON = string(b)
			}
		}

		if !isHTMX(e) {
			return e.JSON(http.StatusOK, map[string]any{"result": result, "parsed_rows_json": parsedRowsJSON})
		}
		return templates.CatalogValidation(result, "/api/catalog/import/commit", parsedRowsJSON).
			Render(e.Request.Context(), e.Response)
	}
}

// HandleCatalogImportCommit stores the rows validated by HandleCatalogValidate.
func HandleCatalogImportCommit(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		company := GetActiveCompany(e.Request)
		if company == nil {
			return ErrorToast(e, http.StatusBadRequest, "Aucune entreprise active")
		}

		if err := e.Request.ParseForm(); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Formulaire invalide")
		}
		parsedJSON := e.Request.FormValue("parsed_rows_json")
		if parsedJSON == "" {
			return ErrorToast(e, http.StatusBadRequest, "Données manquantes, importez à nouveau le fichier.")
		}

		var rows []services.CatalogRow
		if err := json.Unmarshal([]byte(parsedJSON), &rows); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Données importées invalides")
		}

		result, err := services.CommitCatalogImport(app, company.Id, rows)
		if err != nil {
			zap.S().Errorf("catalog_import_commit: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "Une erreur est survenue, réessayez.")
		}

		if result.Failed == 0 {
			SetToast(e, "success", fmt.Sprintf("%d références importées", result.Created+result.Updated))
		} else {
			SetToast(e, "warning", fmt.Sprintf("%d lignes n'ont pas pu être importées", result.Failed))
		}
		if !isHTMX(e) {
			return e.JSON(http.StatusOK, result)
		}
		return templates.CatalogImportDone(result).Render(e.Request.Context(), e.Response)
	}
}

// HandleCatalogErrorReport turns posted validation errors into a workbook.
func HandleCatalogErrorReport(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var errs []services.ValidationError
		if err := json.NewDecoder(e.Request.Body).Decode(&errs); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "Liste d'erreurs invalide")
		}

		xlsxBytes, err := services.GenerateErrorReport(errs)
		if err != nil {
			zap.S().Errorf("catalog_error_report: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "Une erreur est survenue, réessayez.")
		}

		filename := fmt.Sprintf("catalogue-erreurs-%s.xlsx", time.Now().Format("2006-01-02"))
		e.Response.Header().Set("Content-Type", xlsxContentType)
		e.Response.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		e.Response.Write(xlsxBytes)
		return nil
	}
}
