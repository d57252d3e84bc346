package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"

	"devis/collections"
	"devis/model"
)

// ErrForeignQuote is returned when a state points at a quote owned by
// another company.
var ErrForeignQuote = errors.New("quote belongs to another company")

// Remote is the backend a draft is pushed to and pulled from.
type Remote interface {
	SaveQuote(ctx context.Context, s model.State) (model.State, error)
	LoadQuote(ctx context.Context, id string) (model.State, error)
}

// SummaryFunc returns the HT and TTC totals stored next to a quote.
type SummaryFunc func(s model.State) (ht, ttc float64)

// PocketBaseRemote stores quotes in the quotes, clients, rooms and works
// collections.
type PocketBaseRemote struct {
	app     core.App
	summary SummaryFunc
	number  collections.NumberFunc
	now     func() time.Time
}

// RemoteOption configures a PocketBaseRemote.
type RemoteOption func(*PocketBaseRemote)

// WithSummary sets the function computing stored totals.
func WithSummary(fn SummaryFunc) RemoteOption {
	return func(r *PocketBaseRemote) { r.summary = fn }
}

// WithNumbering assigns a number to quotes saved without one.
func WithNumbering(fn collections.NumberFunc) RemoteOption {
	return func(r *PocketBaseRemote) { r.number = fn }
}

// NewPocketBaseRemote returns a Remote backed by app.
func NewPocketBaseRemote(app core.App, opts ...RemoteOption) *PocketBaseRemote {
	r := &PocketBaseRemote{app: app, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SaveQuote upserts the quote with its client, rooms and works in one
// transaction. Rooms and works are matched on their local ids; the ones
// missing from s are deleted. The returned state carries the remote id,
// the client id and the assigned number.
func (p *PocketBaseRemote) SaveQuote(ctx context.Context, s model.State) (model.State, error) {
	if err := ctx.Err(); err != nil {
		return s, err
	}
	companyID := s.Company.ID
	if companyID == "" {
		return s, fmt.Errorf("save quote: no company")
	}

	out, err := s.Clone()
	if err != nil {
		return s, err
	}
	err = p.app.RunInTransaction(func(txApp core.App) error {
		quote, err := p.quoteRecord(txApp, companyID, s.RemoteID)
		if err != nil {
			return err
		}

		clientID, err := saveClient(txApp, companyID, s.Client)
		if err != nil {
			return err
		}
		out.Client.ID = clientID

		number := s.Metadata.Number
		if number == "" && p.number != nil {
			at := s.Metadata.IssueDate
			if at.IsZero() {
				at = p.now()
			}
			if number, err = p.number(txApp, companyID, at); err != nil {
				return fmt.Errorf("number quote: %w", err)
			}
		}
		out.Metadata.Number = number

		md := s.Metadata
		quote.Set("client", clientID)
		quote.Set("number", number)
		quote.Set("title", md.Title)
		quote.Set("status", statusOrDraft(md.Status))
		quote.Set("issue_date", md.IssueDate)
		quote.Set("validity_days", md.ValidityDays)
		quote.Set("start_date", md.StartDate)
		quote.Set("duration_weeks", md.DurationWeeks)
		quote.Set("discount_percent", md.DiscountPercent)
		quote.Set("deposit_percent", md.DepositPercent)
		quote.Set("payment_terms", md.PaymentTerms)
		quote.Set("notes", md.Notes)
		quote.Set("property", s.Property)
		quote.Set("settings", s.Settings)
		quote.Set("version", s.Version)
		if p.summary != nil {
			ht, ttc := p.summary(s)
			quote.Set("total_ht", ht)
			quote.Set("total_ttc", ttc)
		}
		if err := txApp.Save(quote); err != nil {
			return fmt.Errorf("save quote: %w", err)
		}
		out.RemoteID = quote.Id

		return saveRooms(txApp, quote.Id, s.Rooms)
	})
	if err != nil {
		return s, err
	}
	return out, nil
}

func (p *PocketBaseRemote) quoteRecord(txApp core.App, companyID, id string) (*core.Record, error) {
	if id != "" {
		quote, err := txApp.FindRecordById("quotes", id)
		if err != nil {
			return nil, fmt.Errorf("quote %s: %w", id, err)
		}
		if quote.GetString("company") != companyID {
			return nil, ErrForeignQuote
		}
		return quote, nil
	}
	col, err := txApp.FindCollectionByNameOrId("quotes")
	if err != nil {
		return nil, fmt.Errorf("quotes collection not found: %w", err)
	}
	quote := core.NewRecord(col)
	quote.Set("company", companyID)
	return quote, nil
}

func saveClient(txApp core.App, companyID string, c model.Client) (string, error) {
	if c.ID == "" && c.DisplayName() == "" {
		return "", nil
	}

	var record *core.Record
	if c.ID != "" {
		found, err := txApp.FindRecordById("clients", c.ID)
		if err != nil {
			return "", fmt.Errorf("client %s: %w", c.ID, err)
		}
		if found.GetString("company") != companyID {
			return "", fmt.Errorf("client %s belongs to another company", c.ID)
		}
		record = found
	} else {
		col, err := txApp.FindCollectionByNameOrId("clients")
		if err != nil {
			return "", fmt.Errorf("clients collection not found: %w", err)
		}
		record = core.NewRecord(col)
		record.Set("company", companyID)
	}

	ApplyClient(record, c)
	if err := txApp.Save(record); err != nil {
		return "", fmt.Errorf("save client: %w", err)
	}
	return record.Id, nil
}

func saveRooms(txApp core.App, quoteID string, rooms []model.Room) error {
	existing, err := txApp.FindRecordsByFilter("rooms", "quote = {:quote}", "", 0, 0, dbx.Params{"quote": quoteID})
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}
	byLocal := make(map[string]*core.Record, len(existing))
	for _, r := range existing {
		byLocal[r.GetString("local_id")] = r
	}

	col, err := txApp.FindCollectionByNameOrId("rooms")
	if err != nil {
		return fmt.Errorf("rooms collection not found: %w", err)
	}

	for i, room := range rooms {
		record, ok := byLocal[room.ID]
		if ok {
			delete(byLocal, room.ID)
		} else {
			record = core.NewRecord(col)
			record.Set("quote", quoteID)
			record.Set("local_id", room.ID)
		}
		record.Set("sort_order", i)
		record.Set("name", room.Name)
		record.Set("kind", room.Kind)
		record.Set("length", room.Length)
		record.Set("width", room.Width)
		record.Set("height", room.Height)
		record.Set("openings", room.Openings)
		record.Set("notes", room.Notes)
		if err := txApp.Save(record); err != nil {
			return fmt.Errorf("save room %q: %w", room.Name, err)
		}
		if err := saveWorks(txApp, record.Id, room.Works); err != nil {
			return err
		}
	}

	for _, stale := range byLocal {
		if err := txApp.Delete(stale); err != nil {
			return fmt.Errorf("delete room %s: %w", stale.Id, err)
		}
	}
	return nil
}

func saveWorks(txApp core.App, roomID string, works []model.Work) error {
	existing, err := txApp.FindRecordsByFilter("works", "room = {:room}", "", 0, 0, dbx.Params{"room": roomID})
	if err != nil {
		return fmt.Errorf("list works: %w", err)
	}
	byLocal := make(map[string]*core.Record, len(existing))
	for _, w := range existing {
		byLocal[w.GetString("local_id")] = w
	}

	col, err := txApp.FindCollectionByNameOrId("works")
	if err != nil {
		return fmt.Errorf("works collection not found: %w", err)
	}

	for i, w := range works {
		record, ok := byLocal[w.ID]
		if ok {
			delete(byLocal, w.ID)
		} else {
			record = core.NewRecord(col)
			record.Set("room", roomID)
			record.Set("local_id", w.ID)
		}
		mode := w.QuantityMode
		if mode == "" {
			mode = model.QuantityManual
		}
		record.Set("sort_order", i)
		record.Set("catalog_ref", w.CatalogRef)
		record.Set("label", w.Label)
		record.Set("description", w.Description)
		record.Set("unit", w.Unit)
		record.Set("quantity", w.Quantity)
		record.Set("quantity_mode", mode)
		record.Set("labor_price", w.LaborPrice)
		record.Set("supply_price", w.SupplyPrice)
		record.Set("vat_rate", w.VATRate)
		if err := txApp.Save(record); err != nil {
			return fmt.Errorf("save work %q: %w", w.Label, err)
		}
	}

	for _, stale := range byLocal {
		if err := txApp.Delete(stale); err != nil {
			return fmt.Errorf("delete work %s: %w", stale.Id, err)
		}
	}
	return nil
}

// LoadQuote reads a stored quote back into a state, with the company logo.
func (p *PocketBaseRemote) LoadQuote(ctx context.Context, id string) (model.State, error) {
	if err := ctx.Err(); err != nil {
		return model.State{}, err
	}

	quote, err := p.app.FindRecordById("quotes", id)
	if err != nil {
		return model.State{}, fmt.Errorf("quote %s: %w", id, err)
	}

	s := model.NewState(quote.GetDateTime("issue_date").Time())
	s.RemoteID = quote.Id
	s.Version = quote.GetInt("version")
	s.UpdatedAt = quote.GetDateTime("updated").Time()

	company, err := p.app.FindRecordById("companies", quote.GetString("company"))
	if err != nil {
		return model.State{}, fmt.Errorf("company of quote %s: %w", id, err)
	}
	s.Company = CompanyFromRecord(company)
	if s.Company.Logo, err = ReadRecordFile(p.app, company, "logo"); err != nil {
		return model.State{}, err
	}

	if clientID := quote.GetString("client"); clientID != "" {
		client, err := p.app.FindRecordById("clients", clientID)
		if err != nil {
			return model.State{}, fmt.Errorf("client of quote %s: %w", id, err)
		}
		s.Client = ClientFromRecord(client)
	}

	if err := unmarshalField(quote, "property", &s.Property); err != nil {
		return model.State{}, err
	}
	if err := unmarshalField(quote, "settings", &s.Settings); err != nil {
		return model.State{}, err
	}

	s.Metadata = model.Metadata{
		Number:          quote.GetString("number"),
		Title:           quote.GetString("title"),
		IssueDate:       quote.GetDateTime("issue_date").Time(),
		ValidityDays:    quote.GetInt("validity_days"),
		StartDate:       quote.GetDateTime("start_date").Time(),
		DurationWeeks:   quote.GetInt("duration_weeks"),
		DiscountPercent: quote.GetFloat("discount_percent"),
		DepositPercent:  quote.GetFloat("deposit_percent"),
		PaymentTerms:    quote.GetString("payment_terms"),
		Notes:           quote.GetString("notes"),
		Status:          statusOrDraft(quote.GetString("status")),
	}

	rooms, err := p.app.FindRecordsByFilter("rooms", "quote = {:quote}", "sort_order", 0, 0, dbx.Params{"quote": id})
	if err != nil {
		return model.State{}, fmt.Errorf("list rooms: %w", err)
	}
	s.Rooms = make([]model.Room, 0, len(rooms))
	for _, r := range rooms {
		room := model.Room{
			ID:       r.GetString("local_id"),
			Name:     r.GetString("name"),
			Kind:     r.GetString("kind"),
			Length:   r.GetFloat("length"),
			Width:    r.GetFloat("width"),
			Height:   r.GetFloat("height"),
			Notes:    r.GetString("notes"),
			Openings: []model.Opening{},
			Works:    []model.Work{},
		}
		if err := unmarshalField(r, "openings", &room.Openings); err != nil {
			return model.State{}, err
		}

		works, err := p.app.FindRecordsByFilter("works", "room = {:room}", "sort_order", 0, 0, dbx.Params{"room": r.Id})
		if err != nil {
			return model.State{}, fmt.Errorf("list works: %w", err)
		}
		for _, w := range works {
			room.Works = append(room.Works, model.Work{
				ID:           w.GetString("local_id"),
				CatalogRef:   w.GetString("catalog_ref"),
				Label:        w.GetString("label"),
				Description:  w.GetString("description"),
				Unit:         w.GetString("unit"),
				Quantity:     w.GetFloat("quantity"),
				QuantityMode: w.GetString("quantity_mode"),
				LaborPrice:   w.GetFloat("labor_price"),
				SupplyPrice:  w.GetFloat("supply_price"),
				VATRate:      w.GetFloat("vat_rate"),
			})
		}
		s.Rooms = append(s.Rooms, room)
	}
	return s, nil
}

func unmarshalField(r *core.Record, field string, dst any) error {
	raw := r.GetString(field)
	if raw == "" || raw == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decode %s.%s: %w", r.Collection().Name, field, err)
	}
	return nil
}

func statusOrDraft(status string) string {
	if status == "" {
		return model.StatusDraft
	}
	return status
}
