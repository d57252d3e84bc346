package handlers

import (
	"context"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"

	"devis/collections"
)

type contextKey string

const ActiveCompanyKey contextKey = "activeCompany"

const activeCompanyCookie = "active_company"

// GetActiveCompany extracts the active company record from the request context.
func GetActiveCompany(r *http.Request) *core.Record {
	if val, ok := r.Context().Value(ActiveCompanyKey).(*core.Record); ok {
		return val
	}
	return nil
}

// ActiveCompanyMiddleware resolves the company the request works for and
// stores its record in the request context. The X-Company-Id header wins
// over the active_company cookie, which wins over defaultID; without any of
// them the oldest company is used.
func ActiveCompanyMiddleware(app *pocketbase.PocketBase, defaultID string) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var company *core.Record

		if id := e.Request.Header.Get("X-Company-Id"); id != "" {
			company, _ = app.FindRecordById("companies", id)
		}
		if company == nil {
			if cookie, err := e.Request.Cookie(activeCompanyCookie); err == nil && cookie.Value != "" {
				rec, err := app.FindRecordById("companies", cookie.Value)
				if err == nil {
					company = rec
				} else {
					zap.S().Infof("middleware: active company %s not found, clearing cookie", cookie.Value)
					http.SetCookie(e.Response, &http.Cookie{
						Name:   activeCompanyCookie,
						Value:  "",
						Path:   "/",
						MaxAge: -1,
					})
				}
			}
		}
		if company == nil && defaultID != "" {
			company, _ = collections.DefaultCompany(app, defaultID)
		}
		if company == nil {
			company, _ = collections.DefaultCompany(app, "")
		}

		if company != nil {
			ctx := context.WithValue(e.Request.Context(), ActiveCompanyKey, company)
			e.Request = e.Request.WithContext(ctx)
		}
		return e.Next()
	}
}

// requireCompany returns the active company or answers 400.
func requireCompany(e *core.RequestEvent) (*core.Record, error) {
	company := GetActiveCompany(e.Request)
	if company == nil {
		return nil, apiError(e, http.StatusBadRequest, "Aucune entreprise active")
	}
	return company, nil
}
