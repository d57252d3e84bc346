package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"devis/model"
	"devis/storage"
)

// newTestRequestEvent creates a RequestEvent suitable for handler tests.
func newTestRequestEvent(app *pocketbase.PocketBase, req *http.Request, rec *httptest.ResponseRecorder) *core.RequestEvent {
	e := &core.RequestEvent{}
	e.App = app
	e.Request = req
	e.Response = rec
	return e
}

// withCompany stores company in the request context the way
// ActiveCompanyMiddleware does.
func withCompany(req *http.Request, company *core.Record) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), ActiveCompanyKey, company))
}

// jsonRequest builds a request with body encoded as JSON. A nil body sends
// no content.
func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode request body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// errorBody is the JSON shape of validation failures.
type errorBody struct {
	Error  string         `json:"error"`
	Fields map[string]any `json:"fields"`
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("response is not valid JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return v
}

// serve runs handler on req and fails the test when it returns an error.
func serve(t *testing.T, app *pocketbase.PocketBase, handler func(*core.RequestEvent) error, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := handler(newTestRequestEvent(app, req, rec)); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

// exportableState is a quote complete enough to be rendered.
func exportableState(companyID string) model.State {
	s := model.NewState(time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC))
	s.Company = model.Company{ID: companyID, Name: "Test Rénovation"}
	s.Client = model.Client{Civility: "Mme", FirstName: "Claire", LastName: "Martin", City: "Villeurbanne", Email: "claire@example.fr"}
	s.Property = model.Property{Kind: model.PropertyApartment, City: "Villeurbanne", OlderThanTwoYears: true}
	s.Metadata.Title = "Rafraîchissement séjour"
	s.Rooms = []model.Room{{
		ID: "r1", Name: "Séjour", Length: 5, Width: 4, Height: 2.5,
		Works: []model.Work{
			{ID: "w1", Label: "Peinture murs", Unit: "m²", QuantityMode: model.QuantityWalls, LaborPrice: 14, SupplyPrice: 6, VATRate: 10},
			{ID: "w2", Label: "Plinthes", Unit: "ml", Quantity: 18, LaborPrice: 7, VATRate: 10},
		},
	}}
	return s
}

// newTestMirror returns a draft mirror backed by memory and an in-memory
// SQLite database.
func newTestMirror(t *testing.T) *storage.Mirror {
	t.Helper()
	local, err := storage.OpenLocalDB(":memory:")
	if err != nil {
		t.Fatalf("open local db: %v", err)
	}
	t.Cleanup(func() { local.Close() })
	return storage.NewMirror(storage.NewKVDrafts(storage.NewMemoryKV()), local)
}
