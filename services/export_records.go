package services

import (
	"context"
	"fmt"

	"github.com/pocketbase/pocketbase/core"

	"devis/model"
	"devis/storage"
)

// StateSummary returns the HT and TTC totals of a state rounded to cents.
func StateSummary(s model.State) (float64, float64) {
	totals := CalcStateTotals(s)
	return totals.TotalHT.InexactFloat64(), totals.TotalTTC.InexactFloat64()
}

// NewRemote returns the PocketBase remote with totals and numbering wired in.
func NewRemote(app core.App) *storage.PocketBaseRemote {
	return storage.NewPocketBaseRemote(app,
		storage.WithSummary(StateSummary),
		storage.WithNumbering(GenerateQuoteNumber),
	)
}

// CompanyPDFSettings reads the pdf_settings override stored on a company.
func CompanyPDFSettings(company *core.Record) (model.PDFSettings, error) {
	var s model.PDFSettings
	raw := company.GetString("pdf_settings")
	if raw == "" || raw == "null" {
		return s, nil
	}
	if err := company.UnmarshalJSONField("pdf_settings", &s); err != nil {
		return s, fmt.Errorf("decode company pdf settings: %w", err)
	}
	return s, nil
}

// PrepareExport resolves the settings of a state (defaults, then company,
// then quote) and builds its document model. When the state belongs to a
// stored company, its logo and general terms PDF are attached.
func PrepareExport(app core.App, s model.State) (*QuoteExportData, model.PDFSettings, error) {
	var companySettings model.PDFSettings
	var appendix []byte

	if s.Company.ID != "" {
		company, err := app.FindRecordById("companies", s.Company.ID)
		if err != nil {
			return nil, model.PDFSettings{}, fmt.Errorf("company %s: %w", s.Company.ID, err)
		}
		if companySettings, err = CompanyPDFSettings(company); err != nil {
			return nil, model.PDFSettings{}, err
		}
		if len(s.Company.Logo) == 0 {
			if s.Company.Logo, err = storage.ReadRecordFile(app, company, "logo"); err != nil {
				return nil, model.PDFSettings{}, err
			}
		}
		if appendix, err = storage.ReadRecordFile(app, company, "cgv"); err != nil {
			return nil, model.PDFSettings{}, err
		}
	}

	settings, err := ResolvePDFSettings(companySettings, s.Settings)
	if err != nil {
		return nil, model.PDFSettings{}, err
	}

	data := BuildQuoteExportData(s, settings)
	data.Appendix = appendix
	return data, settings, nil
}

// BuildQuoteExportDataFromRecords loads a stored quote and prepares it for
// export.
func BuildQuoteExportDataFromRecords(app core.App, quoteID string) (*QuoteExportData, model.PDFSettings, error) {
	s, err := NewRemote(app).LoadQuote(context.Background(), quoteID)
	if err != nil {
		return nil, model.PDFSettings{}, err
	}
	return PrepareExport(app, s)
}

// RenderQuotePDF loads a stored quote and renders its PDF.
func RenderQuotePDF(app core.App, quoteID string) ([]byte, *QuoteExportData, error) {
	data, settings, err := BuildQuoteExportDataFromRecords(app, quoteID)
	if err != nil {
		return nil, nil, err
	}
	pdf, err := GenerateQuotePDF(data, settings)
	if err != nil {
		return nil, nil, err
	}
	return pdf, data, nil
}
