package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"

	"devis/model"
	"devis/services"
	"devis/storage"
)

// QuoteListItem is one row of the quote list.
type QuoteListItem struct {
	ID        string    `json:"id"`
	Number    string    `json:"number"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Client    string    `json:"client"`
	IssueDate time.Time `json:"issue_date"`
	TotalHT   float64   `json:"total_ht"`
	TotalTTC  float64   `json:"total_ttc"`
	Updated   time.Time `json:"updated"`
}

// HandleQuoteList lists the quotes of the active company, newest first,
// optionally filtered by ?status=.
func HandleQuoteList(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		company, err := requireCompany(e)
		if company == nil {
			return err
		}

		filter := "company = {:company}"
		params := dbx.Params{"company": company.Id}
		if status := e.Request.URL.Query().Get("status"); status != "" {
			filter += " && status = {:status}"
			params["status"] = status
		}

		records, err := app.FindRecordsByFilter("quotes", filter, "-created", 0, 0, params)
		if err != nil {
			zap.S().Errorf("quote_list: could not query quotes: %v", err)
			records = nil
		}
		if errs := app.ExpandRecords(records, []string{"client"}, nil); len(errs) > 0 {
			zap.S().Warnf("quote_list: could not expand clients: %v", errs)
		}

		items := make([]QuoteListItem, 0, len(records))
		for _, r := range records {
			item := QuoteListItem{
				ID:        r.Id,
				Number:    r.GetString("number"),
				Title:     r.GetString("title"),
				Status:    r.GetString("status"),
				IssueDate: r.GetDateTime("issue_date").Time(),
				TotalHT:   r.GetFloat("total_ht"),
				TotalTTC:  r.GetFloat("total_ttc"),
				Updated:   r.GetDateTime("updated").Time(),
			}
			if client := r.ExpandedOne("client"); client != nil {
				item.Client = storage.ClientFromRecord(client).DisplayName()
			}
			items = append(items, item)
		}
		return e.JSON(http.StatusOK, items)
	}
}

// loadCompanyQuote loads a stored quote of the active company as a state.
func loadCompanyQuote(app *pocketbase.PocketBase, e *core.RequestEvent) (model.State, bool, error) {
	record, err := companyRecord(app, e, "quotes", e.Request.PathValue("id"))
	if record == nil {
		return model.State{}, false, err
	}
	s, err := services.NewRemote(app).LoadQuote(e.Request.Context(), record.Id)
	if err != nil {
		zap.S().Errorf("quote_load: %v", err)
		return model.State{}, false, apiError(e, http.StatusInternalServerError, "Devis illisible")
	}
	return s, true, nil
}

// HandleQuoteGet returns a stored quote as a state document.
func HandleQuoteGet(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		s, ok, err := loadCompanyQuote(app, e)
		if !ok {
			return err
		}
		return e.JSON(http.StatusOK, s)
	}
}

// HandleQuoteSave stores a state document. POST creates a quote, PUT on
// /quotes/{id} replaces one. The quote always belongs to the active company.
func HandleQuoteSave(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		company, err := requireCompany(e)
		if company == nil {
			return err
		}

		var s model.State
		if err := json.NewDecoder(e.Request.Body).Decode(&s); err != nil {
			return apiError(e, http.StatusBadRequest, "JSON invalide")
		}
		if err := s.Validate(); err != nil {
			return e.JSON(http.StatusUnprocessableEntity, map[string]any{"error": "Devis invalide", "fields": err})
		}

		s.Company.ID = company.Id
		s.RemoteID = e.Request.PathValue("id")
		status := http.StatusOK
		if s.RemoteID == "" {
			status = http.StatusCreated
		}

		saved, err := services.NewRemote(app).SaveQuote(e.Request.Context(), s)
		switch {
		case errors.Is(err, storage.ErrForeignQuote):
			return apiError(e, http.StatusNotFound, "Devis introuvable")
		case err != nil:
			zap.S().Errorf("quote_save: %v", err)
			return apiError(e, http.StatusInternalServerError, "Échec de l'enregistrement du devis")
		}

		zap.S().Infof("quote_save: quote %s (%s) saved", saved.RemoteID, saved.Metadata.Number)
		SetToast(e, "success", "Devis "+saved.Metadata.Number+" enregistré")
		return e.JSON(status, saved)
	}
}

// HandleQuoteDelete deletes a quote with its rooms, works and documents.
func HandleQuoteDelete(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		record, err := companyRecord(app, e, "quotes", e.Request.PathValue("id"))
		if record == nil {
			return err
		}
		if err := app.Delete(record); err != nil {
			zap.S().Errorf("quote_delete: failed to delete %s: %v", record.Id, err)
			return apiError(e, http.StatusInternalServerError, "Échec de la suppression")
		}
		SetToast(e, "success", "Devis supprimé")
		return e.NoContent(http.StatusNoContent)
	}
}
