package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/filesystem"
	"github.com/pocketbase/pocketbase/tools/mailer"
	"go.uber.org/zap"

	"devis/config"
	"devis/model"
	"devis/services"
	"devis/templates"
)

// exportFilename builds "devis-<number>-<client>.<ext>".
func exportFilename(data *services.QuoteExportData, ext string) string {
	parts := []string{"devis"}
	if slug := services.Slugify(data.Number); slug != "" {
		parts = append(parts, slug)
	}
	if slug := services.Slugify(data.Client.Name); slug != "" {
		parts = append(parts, slug)
	}
	return strings.Join(parts, "-") + "." + ext
}

func writeDownload(e *core.RequestEvent, contentType, filename string, b []byte) error {
	e.Response.Header().Set("Content-Type", contentType)
	e.Response.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	_, err := e.Response.Write(b)
	return err
}

// exportableQuote loads a quote of the active company and checks that it can
// be rendered. It answers the request itself when it cannot.
func exportableQuote(app *pocketbase.PocketBase, e *core.RequestEvent) (model.State, bool, error) {
	s, ok, err := loadCompanyQuote(app, e)
	if !ok {
		return s, false, err
	}
	if err := s.ValidateForExport(); err != nil {
		return s, false, e.JSON(http.StatusUnprocessableEntity, map[string]any{"error": "Devis incomplet", "fields": err})
	}
	return s, true, nil
}

func renderPDF(app core.App, s model.State) ([]byte, *services.QuoteExportData, error) {
	data, settings, err := services.PrepareExport(app, s)
	if err != nil {
		return nil, nil, err
	}
	pdf, err := services.GenerateQuotePDF(data, settings)
	if err != nil {
		return nil, nil, err
	}
	return pdf, data, nil
}

// HandleQuoteExportPDF downloads the PDF of a stored quote.
func HandleQuoteExportPDF(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		s, ok, err := exportableQuote(app, e)
		if !ok {
			return err
		}
		pdf, data, err := renderPDF(app, s)
		if err != nil {
			zap.S().Errorf("quote_export: failed to generate PDF for %s: %v", s.RemoteID, err)
			return apiError(e, http.StatusInternalServerError, "Échec de la génération du PDF")
		}
		return writeDownload(e, "application/pdf", exportFilename(data, "pdf"), pdf)
	}
}

// HandleQuoteExportExcel downloads the recap workbook of a stored quote.
func HandleQuoteExportExcel(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		s, ok, err := exportableQuote(app, e)
		if !ok {
			return err
		}
		data, _, err := services.PrepareExport(app, s)
		if err != nil {
			zap.S().Errorf("quote_export: failed to prepare %s: %v", s.RemoteID, err)
			return apiError(e, http.StatusInternalServerError, "Échec de l'export")
		}
		xlsx, err := services.GenerateRecapExcel(data)
		if err != nil {
			zap.S().Errorf("quote_export: failed to generate workbook for %s: %v", s.RemoteID, err)
			return apiError(e, http.StatusInternalServerError, "Échec de l'export")
		}
		return writeDownload(e, xlsxContentType, exportFilename(data, "xlsx"), xlsx)
	}
}

// HandleQuotePreview renders the HTML preview of a stored quote. Incomplete
// quotes are previewed as they are.
func HandleQuotePreview(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		s, ok, err := loadCompanyQuote(app, e)
		if !ok {
			return err
		}
		data, _, err := services.PrepareExport(app, s)
		if err != nil {
			zap.S().Errorf("quote_preview: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "Aperçu indisponible")
		}
		return templates.QuotePreview(data).Render(e.Request.Context(), e.Response)
	}
}

// archiveDocument stores a rendered document in quote_documents.
func archiveDocument(app core.App, quoteID, kind, filename string, content []byte, data *services.QuoteExportData, sentTo string) (*core.Record, error) {
	col, err := app.FindCollectionByNameOrId("quote_documents")
	if err != nil {
		return nil, fmt.Errorf("quote_documents collection: %w", err)
	}
	file, err := filesystem.NewFileFromBytes(content, filename)
	if err != nil {
		return nil, fmt.Errorf("archive %s: %w", filename, err)
	}

	record := core.NewRecord(col)
	record.Set("quote", quoteID)
	record.Set("kind", kind)
	record.Set("file", file)
	record.Set("number", data.Number)
	record.Set("total_ttc", data.Totals.TotalTTC.InexactFloat64())
	record.Set("sent_to", sentTo)
	if err := app.Save(record); err != nil {
		return nil, fmt.Errorf("archive %s: %w", filename, err)
	}
	return record, nil
}

// HandleQuoteArchive renders the PDF and recap of a quote and keeps both in
// quote_documents.
func HandleQuoteArchive(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		s, ok, err := exportableQuote(app, e)
		if !ok {
			return err
		}
		pdf, data, err := renderPDF(app, s)
		if err != nil {
			zap.S().Errorf("quote_archive: failed to generate PDF for %s: %v", s.RemoteID, err)
			return apiError(e, http.StatusInternalServerError, "Échec de la génération du PDF")
		}
		xlsx, err := services.GenerateRecapExcel(data)
		if err != nil {
			zap.S().Errorf("quote_archive: failed to generate workbook for %s: %v", s.RemoteID, err)
			return apiError(e, http.StatusInternalServerError, "Échec de l'export")
		}

		var ids []string
		err = app.RunInTransaction(func(txApp core.App) error {
			for _, doc := range []struct {
				kind, ext string
				content   []byte
			}{{"pdf", "pdf", pdf}, {"xlsx", "xlsx", xlsx}} {
				r, err := archiveDocument(txApp, s.RemoteID, doc.kind, exportFilename(data, doc.ext), doc.content, data, "")
				if err != nil {
					return err
				}
				ids = append(ids, r.Id)
			}
			return nil
		})
		if err != nil {
			zap.S().Errorf("quote_archive: %v", err)
			return apiError(e, http.StatusInternalServerError, "Échec de l'archivage")
		}

		zap.S().Infof("quote_archive: quote %s archived (%s)", s.RemoteID, strings.Join(ids, ", "))
		SetToast(e, "success", "Devis "+data.Number+" archivé")
		return e.JSON(http.StatusCreated, map[string]any{"documents": ids})
	}
}

type sendRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// sender returns the From address of outgoing quotes: the configured sender,
// else the mail settings of the application.
func sender(app core.App, cfg config.MailConfig) mail.Address {
	if cfg.SenderAddress != "" {
		return mail.Address{Name: cfg.SenderName, Address: cfg.SenderAddress}
	}
	meta := app.Settings().Meta
	return mail.Address{Name: meta.SenderName, Address: meta.SenderAddress}
}

// HandleQuoteSend mails the PDF of a quote to the client, or to the address
// given in the body, archives the sent document and marks the quote sent.
func HandleQuoteSend(app *pocketbase.PocketBase, cfg config.MailConfig) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var req sendRequest
		if err := json.NewDecoder(e.Request.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return apiError(e, http.StatusBadRequest, "JSON invalide")
		}

		s, ok, err := exportableQuote(app, e)
		if !ok {
			return err
		}
		to := strings.TrimSpace(req.To)
		if to == "" {
			to = s.Client.Email
		}
		if err := validation.Validate(to, validation.Required, is.EmailFormat); err != nil {
			return apiError(e, http.StatusUnprocessableEntity, "Adresse e-mail du destinataire invalide")
		}
		from := sender(app, cfg)
		if from.Address == "" {
			return apiError(e, http.StatusServiceUnavailable, "Aucun expéditeur configuré")
		}

		pdf, data, err := renderPDF(app, s)
		if err != nil {
			zap.S().Errorf("quote_send: failed to generate PDF for %s: %v", s.RemoteID, err)
			return apiError(e, http.StatusInternalServerError, "Échec de la génération du PDF")
		}
		filename := exportFilename(data, "pdf")

		var body bytes.Buffer
		if err := templates.QuoteMail(data, req.Message).Render(e.Request.Context(), &body); err != nil {
			zap.S().Errorf("quote_send: failed to render mail body: %v", err)
			return apiError(e, http.StatusInternalServerError, "Échec de la préparation du mail")
		}

		msg := &mailer.Message{
			From:        from,
			To:          []mail.Address{{Name: data.Client.Name, Address: to}},
			Subject:     fmt.Sprintf("Devis n° %s - %s", data.Number, data.Company.Name),
			HTML:        body.String(),
			Attachments: map[string]io.Reader{filename: bytes.NewReader(pdf)},
		}
		if err := app.NewMailClient().Send(msg); err != nil {
			zap.S().Errorf("quote_send: failed to send %s to %s: %v", s.RemoteID, to, err)
			return apiError(e, http.StatusBadGateway, "Échec de l'envoi du devis")
		}

		if _, err := archiveDocument(app, s.RemoteID, "pdf", filename, pdf, data, to); err != nil {
			zap.S().Errorf("quote_send: %v", err)
		}
		if s.Metadata.Status == model.StatusDraft {
			record, err := app.FindRecordById("quotes", s.RemoteID)
			if err == nil {
				record.Set("status", model.StatusSent)
				err = app.Save(record)
			}
			if err != nil {
				zap.S().Errorf("quote_send: could not mark %s sent: %v", s.RemoteID, err)
			}
		}

		zap.S().Infof("quote_send: quote %s sent to %s", s.RemoteID, to)
		SetToast(e, "success", "Devis envoyé à "+to)
		return e.JSON(http.StatusOK, map[string]string{"sent_to": to})
	}
}
