package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"

	"devis/model"
	"devis/services"
	"devis/storage"
	"devis/templates"
)

// DraftListItem is one row of the draft list.
type DraftListItem struct {
	ID       string    `json:"id"`
	Number   string    `json:"number,omitempty"`
	Title    string    `json:"title,omitempty"`
	Client   string    `json:"client,omitempty"`
	Version  int       `json:"version"`
	Updated  time.Time `json:"updated"`
	RemoteID string    `json:"remote_id,omitempty"`
	Synced   time.Time `json:"synced,omitempty"`
}

// draftError maps storage and reducer errors to a response.
func draftError(e *core.RequestEvent, area string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apiError(e, http.StatusNotFound, "Brouillon introuvable")
	case errors.Is(err, storage.ErrNoStorageAvailable):
		zap.S().Errorf("%s: %v", area, err)
		return apiError(e, http.StatusServiceUnavailable, "Aucun stockage disponible, réessayez plus tard")
	case errors.Is(err, model.ErrUnknownAction):
		return apiError(e, http.StatusBadRequest, "Action inconnue")
	case errors.Is(err, model.ErrRoomNotFound), errors.Is(err, model.ErrWorkNotFound), errors.Is(err, model.ErrOpeningNotFound):
		return apiError(e, http.StatusUnprocessableEntity, err.Error())
	default:
		zap.S().Errorf("%s: %v", area, err)
		return apiError(e, http.StatusInternalServerError, "Erreur interne")
	}
}

// companyDraft loads a draft and checks it belongs to the active company.
// Drafts without a company are shared.
func companyDraft(mirror *storage.Mirror, e *core.RequestEvent) (storage.Draft, bool, error) {
	company, err := requireCompany(e)
	if company == nil {
		return storage.Draft{}, false, err
	}
	d, err := mirror.Load(e.Request.Context(), e.Request.PathValue("id"))
	if err != nil {
		return d, false, draftError(e, "draft_load", err)
	}
	if d.State.Company.ID != "" && d.State.Company.ID != company.Id {
		return d, false, apiError(e, http.StatusNotFound, "Brouillon introuvable")
	}
	return d, true, nil
}

// HandleDraftCreate starts a draft for the active company. The body may hold
// an initial state; otherwise a blank quote is created.
func HandleDraftCreate(mirror *storage.Mirror) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		company, err := requireCompany(e)
		if company == nil {
			return err
		}

		s := model.NewState(time.Now())
		body, err := io.ReadAll(io.LimitReader(e.Request.Body, 5<<20))
		if err != nil {
			return apiError(e, http.StatusBadRequest, "Lecture du corps impossible")
		}
		if len(body) > 0 {
			if err := json.Unmarshal(body, &s); err != nil {
				return apiError(e, http.StatusBadRequest, "JSON invalide")
			}
		}
		s.Company = storage.CompanyFromRecord(company)
		s.RemoteID = ""

		d, err := mirror.Create(e.Request.Context(), s)
		if err != nil {
			return draftError(e, "draft_create", err)
		}
		zap.S().Infof("draft_create: draft %s created for company %s", d.ID, company.Id)
		return e.JSON(http.StatusCreated, d)
	}
}

// HandleDraftList lists the drafts of the active company, newest first.
func HandleDraftList(mirror *storage.Mirror) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		company, err := requireCompany(e)
		if company == nil {
			return err
		}
		drafts, err := mirror.List(e.Request.Context())
		if err != nil {
			return draftError(e, "draft_list", err)
		}

		items := make([]DraftListItem, 0, len(drafts))
		for _, d := range drafts {
			if d.State.Company.ID != "" && d.State.Company.ID != company.Id {
				continue
			}
			items = append(items, DraftListItem{
				ID:       d.ID,
				Number:   d.State.Metadata.Number,
				Title:    d.State.Metadata.Title,
				Client:   d.State.Client.DisplayName(),
				Version:  d.Version,
				Updated:  d.Updated,
				RemoteID: d.RemoteID,
				Synced:   d.Synced,
			})
		}
		return e.JSON(http.StatusOK, items)
	}
}

// HandleDraftGet returns a draft with its state.
func HandleDraftGet(mirror *storage.Mirror) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		d, ok, err := companyDraft(mirror, e)
		if !ok {
			return err
		}
		return e.JSON(http.StatusOK, d)
	}
}

// HandleDraftDispatch applies one action, sent as {"type": ..., "payload": ...},
// to a draft and returns the new draft.
func HandleDraftDispatch(mirror *storage.Mirror) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		d, ok, err := companyDraft(mirror, e)
		if !ok {
			return err
		}
		raw, err := io.ReadAll(io.LimitReader(e.Request.Body, 5<<20))
		if err != nil {
			return apiError(e, http.StatusBadRequest, "Lecture du corps impossible")
		}
		action, err := model.DecodeEnvelope(raw)
		if err != nil {
			if errors.Is(err, model.ErrUnknownAction) {
				return draftError(e, "draft_dispatch", err)
			}
			return apiError(e, http.StatusBadRequest, "Action invalide")
		}

		next, err := mirror.Dispatch(e.Request.Context(), d.ID, action)
		if err != nil {
			return draftError(e, "draft_dispatch", err)
		}
		return e.JSON(http.StatusOK, next)
	}
}

// HandleDraftTotals returns the live totals of a draft: the recap fragment
// for HTMX requests, the decimal totals as JSON otherwise.
func HandleDraftTotals(mirror *storage.Mirror) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		d, ok, err := companyDraft(mirror, e)
		if !ok {
			return err
		}
		if isHTMX(e) {
			data := services.BuildQuoteExportData(d.State, services.DefaultPDFSettings())
			return templates.QuoteRecap(data).Render(e.Request.Context(), e.Response)
		}
		return e.JSON(http.StatusOK, services.CalcStateTotals(d.State))
	}
}

// HandleDraftPDF renders the PDF of a draft without storing it remotely.
func HandleDraftPDF(app *pocketbase.PocketBase, mirror *storage.Mirror) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		d, ok, err := companyDraft(mirror, e)
		if !ok {
			return err
		}
		if err := d.State.ValidateForExport(); err != nil {
			return e.JSON(http.StatusUnprocessableEntity, map[string]any{"error": "Devis incomplet", "fields": err})
		}
		pdf, data, err := renderPDF(app, d.State)
		if err != nil {
			zap.S().Errorf("draft_pdf: failed to generate PDF for %s: %v", d.ID, err)
			return apiError(e, http.StatusInternalServerError, "Échec de la génération du PDF")
		}
		return writeDownload(e, "application/pdf", exportFilename(data, "pdf"), pdf)
	}
}

// HandleDraftPush saves a draft as a stored quote.
func HandleDraftPush(app *pocketbase.PocketBase, mirror *storage.Mirror) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		d, ok, err := companyDraft(mirror, e)
		if !ok {
			return err
		}
		if err := d.State.Validate(); err != nil {
			return e.JSON(http.StatusUnprocessableEntity, map[string]any{"error": "Devis invalide", "fields": err})
		}
		if d.State.Company.ID == "" {
			company := GetActiveCompany(e.Request)
			if d, err = mirror.Dispatch(e.Request.Context(), d.ID, model.SetCompany{Company: storage.CompanyFromRecord(company)}); err != nil {
				return draftError(e, "draft_push", err)
			}
		}

		pushed, err := mirror.Push(e.Request.Context(), d.ID, services.NewRemote(app))
		switch {
		case errors.Is(err, storage.ErrForeignQuote):
			return apiError(e, http.StatusNotFound, "Devis introuvable")
		case err != nil:
			return draftError(e, "draft_push", err)
		}
		SetToast(e, "success", "Devis "+pushed.State.Metadata.Number+" enregistré")
		return e.JSON(http.StatusOK, pushed)
	}
}

// HandleDraftPull opens a stored quote as a draft, reusing the draft already
// linked to it.
func HandleDraftPull(app *pocketbase.PocketBase, mirror *storage.Mirror) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		record, err := companyRecord(app, e, "quotes", e.Request.PathValue("id"))
		if record == nil {
			return err
		}
		d, err := mirror.Pull(e.Request.Context(), record.Id, services.NewRemote(app))
		if err != nil {
			return draftError(e, "draft_pull", err)
		}
		return e.JSON(http.StatusOK, d)
	}
}

// HandleDraftDelete discards a draft. The stored quote, if any, is kept.
func HandleDraftDelete(mirror *storage.Mirror) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		d, ok, err := companyDraft(mirror, e)
		if !ok {
			return err
		}
		if err := mirror.Delete(e.Request.Context(), d.ID); err != nil {
			return draftError(e, "draft_delete", err)
		}
		return e.NoContent(http.StatusNoContent)
	}
}

// HandleStorageStatus reports which draft stores are reachable.
func HandleStorageStatus(mirror *storage.Mirror) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		status := mirror.Check(e.Request.Context())
		code := http.StatusOK
		available := false
		for _, s := range status {
			available = available || s.Available
		}
		if !available {
			code = http.StatusServiceUnavailable
		}
		return e.JSON(code, map[string]any{"available": available, "stores": status})
	}
}
