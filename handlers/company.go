package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"

	"devis/model"
	"devis/services"
	"devis/storage"
)

// companyPayload is the JSON form of the company settings page.
type companyPayload struct {
	model.Company
	QuotePrefix string             `json:"quote_prefix"`
	PDFSettings *model.PDFSettings `json:"pdf_settings,omitempty"`
}

func companyResponse(r *core.Record) (companyPayload, error) {
	settings, err := services.CompanyPDFSettings(r)
	if err != nil {
		return companyPayload{}, err
	}
	return companyPayload{
		Company:     storage.CompanyFromRecord(r),
		QuotePrefix: r.GetString("quote_prefix"),
		PDFSettings: &settings,
	}, nil
}

var prefixPattern = regexp.MustCompile(`^[A-Z0-9]*$`)

func validateCompany(p companyPayload) error {
	if err := p.Company.Validate(); err != nil {
		return err
	}
	return validation.Errors{
		"quote_prefix": validation.Validate(p.QuotePrefix, validation.Length(0, 10), validation.Match(prefixPattern)),
	}.Filter()
}

// HandleCompanyGet returns the active company with its PDF settings.
func HandleCompanyGet(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		company, err := requireCompany(e)
		if company == nil {
			return err
		}
		resp, err := companyResponse(company)
		if err != nil {
			zap.S().Errorf("company_get: %v", err)
			return apiError(e, http.StatusInternalServerError, "Paramètres PDF illisibles")
		}
		return e.JSON(http.StatusOK, resp)
	}
}

// HandleCompanySave creates the company when none is active, otherwise
// updates it. PDF settings are validated against the defaults before they
// are stored.
func HandleCompanySave(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var p companyPayload
		if err := json.NewDecoder(e.Request.Body).Decode(&p); err != nil {
			return apiError(e, http.StatusBadRequest, "JSON invalide")
		}
		p.Company.Name = strings.TrimSpace(p.Company.Name)
		p.QuotePrefix = strings.ToUpper(strings.TrimSpace(p.QuotePrefix))
		if err := validateCompany(p); err != nil {
			return e.JSON(http.StatusUnprocessableEntity, map[string]any{"error": "Entreprise invalide", "fields": err})
		}
		if p.PDFSettings != nil {
			if _, err := services.ResolvePDFSettings(*p.PDFSettings); err != nil {
				return e.JSON(http.StatusUnprocessableEntity, map[string]any{"error": "Paramètres PDF invalides", "fields": err})
			}
		}

		record := GetActiveCompany(e.Request)
		status := http.StatusOK
		if record == nil {
			col, err := app.FindCollectionByNameOrId("companies")
			if err != nil {
				zap.S().Errorf("company_save: %v", err)
				return apiError(e, http.StatusInternalServerError, "Collection companies introuvable")
			}
			record = core.NewRecord(col)
			status = http.StatusCreated
		}

		storage.ApplyCompany(record, p.Company)
		record.Set("quote_prefix", p.QuotePrefix)
		if p.PDFSettings != nil {
			record.Set("pdf_settings", p.PDFSettings)
		}
		if err := app.Save(record); err != nil {
			zap.S().Errorf("company_save: failed to save: %v", err)
			return apiError(e, http.StatusInternalServerError, "Échec de l'enregistrement")
		}
		zap.S().Infof("company_save: company %s saved", record.Id)

		resp, err := companyResponse(record)
		if err != nil {
			return apiError(e, http.StatusInternalServerError, "Paramètres PDF illisibles")
		}
		SetToast(e, "success", "Entreprise enregistrée")
		return e.JSON(status, resp)
	}
}

// HandleCompanyActivate makes a company the active one for the browser.
func HandleCompanyActivate(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		id := e.Request.PathValue("id")
		company, err := app.FindRecordById("companies", id)
		if err != nil {
			return apiError(e, http.StatusNotFound, "Entreprise introuvable")
		}
		http.SetCookie(e.Response, &http.Cookie{
			Name:     activeCompanyCookie,
			Value:    company.Id,
			Path:     "/",
			MaxAge:   365 * 24 * 60 * 60,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		SetToast(e, "success", "Entreprise active : "+company.GetString("name"))
		return e.JSON(http.StatusOK, storage.CompanyFromRecord(company))
	}
}
