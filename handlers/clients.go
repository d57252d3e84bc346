package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"

	"devis/model"
	"devis/storage"
)

// HandleClientList returns the clients of the active company, optionally
// filtered by ?q= on names and city.
func HandleClientList(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		company, err := requireCompany(e)
		if company == nil {
			return err
		}

		filter := "company = {:company}"
		params := dbx.Params{"company": company.Id}
		if q := strings.TrimSpace(e.Request.URL.Query().Get("q")); q != "" {
			filter += " && (last_name ~ {:q} || first_name ~ {:q} || company_name ~ {:q} || city ~ {:q})"
			params["q"] = q
		}

		records, err := app.FindRecordsByFilter("clients", filter, "last_name,first_name", 0, 0, params)
		if err != nil {
			zap.S().Errorf("client_list: could not query clients: %v", err)
			records = nil
		}

		clients := make([]model.Client, 0, len(records))
		for _, r := range records {
			clients = append(clients, storage.ClientFromRecord(r))
		}
		return e.JSON(http.StatusOK, clients)
	}
}

// HandleClientSave creates a client for the active company.
func HandleClientSave(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		company, err := requireCompany(e)
		if company == nil {
			return err
		}

		var c model.Client
		if err := json.NewDecoder(e.Request.Body).Decode(&c); err != nil {
			return apiError(e, http.StatusBadRequest, "JSON invalide")
		}
		if err := c.Validate(); err != nil {
			return e.JSON(http.StatusUnprocessableEntity, map[string]any{"error": "Client invalide", "fields": err})
		}

		col, err := app.FindCollectionByNameOrId("clients")
		if err != nil {
			zap.S().Errorf("client_save: %v", err)
			return apiError(e, http.StatusInternalServerError, "Collection clients introuvable")
		}
		record := core.NewRecord(col)
		record.Set("company", company.Id)
		storage.ApplyClient(record, c)
		if err := app.Save(record); err != nil {
			zap.S().Errorf("client_save: failed to save: %v", err)
			return apiError(e, http.StatusInternalServerError, "Échec de l'enregistrement")
		}

		SetToast(e, "success", "Client enregistré")
		return e.JSON(http.StatusCreated, storage.ClientFromRecord(record))
	}
}

// HandleClientUpdate replaces the fields of an existing client.
func HandleClientUpdate(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		record, err := companyRecord(app, e, "clients", e.Request.PathValue("id"))
		if record == nil {
			return err
		}

		var c model.Client
		if err := json.NewDecoder(e.Request.Body).Decode(&c); err != nil {
			return apiError(e, http.StatusBadRequest, "JSON invalide")
		}
		if err := c.Validate(); err != nil {
			return e.JSON(http.StatusUnprocessableEntity, map[string]any{"error": "Client invalide", "fields": err})
		}

		storage.ApplyClient(record, c)
		if err := app.Save(record); err != nil {
			zap.S().Errorf("client_update: failed to save %s: %v", record.Id, err)
			return apiError(e, http.StatusInternalServerError, "Échec de l'enregistrement")
		}
		SetToast(e, "success", "Client mis à jour")
		return e.JSON(http.StatusOK, storage.ClientFromRecord(record))
	}
}

// HandleClientDelete deletes a client. Clients still referenced by a quote
// are kept.
func HandleClientDelete(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		record, err := companyRecord(app, e, "clients", e.Request.PathValue("id"))
		if record == nil {
			return err
		}

		quotes, err := app.FindRecordsByFilter("quotes", "client = {:client}", "", 1, 0, dbx.Params{"client": record.Id})
		if err == nil && len(quotes) > 0 {
			return apiError(e, http.StatusConflict, "Ce client est lié à un devis")
		}

		if err := app.Delete(record); err != nil {
			zap.S().Errorf("client_delete: failed to delete %s: %v", record.Id, err)
			return apiError(e, http.StatusInternalServerError, "Échec de la suppression")
		}
		SetToast(e, "success", "Client supprimé")
		return e.NoContent(http.StatusNoContent)
	}
}

// companyRecord loads a record of collection owned by the active company,
// answering 404 when it is missing or belongs to another company.
func companyRecord(app *pocketbase.PocketBase, e *core.RequestEvent, collection, id string) (*core.Record, error) {
	company, err := requireCompany(e)
	if company == nil {
		return nil, err
	}
	record, err := app.FindRecordById(collection, id)
	if err != nil || record.GetString("company") != company.Id {
		return nil, apiError(e, http.StatusNotFound, "Introuvable")
	}
	return record, nil
}
