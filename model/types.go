// Package model holds the quote ("devis") data model and the reducer that
// applies user actions to it.
package model

import (
	"strings"
	"time"
)

// Property kinds.
const (
	PropertyApartment  = "apartment"
	PropertyHouse      = "house"
	PropertyCommercial = "commercial"
)

// Opening kinds.
const (
	OpeningDoor   = "door"
	OpeningWindow = "window"
	OpeningOther  = "other"
)

// Quantity modes tell how a work quantity is derived from the room métré.
const (
	QuantityManual    = "manual"
	QuantityFloor     = "floor"
	QuantityCeiling   = "ceiling"
	QuantityWalls     = "walls"
	QuantityPerimeter = "perimeter"
)

// Quote statuses.
const (
	StatusDraft    = "draft"
	StatusSent     = "sent"
	StatusAccepted = "accepted"
	StatusRefused  = "refused"
)

// VATRates are the French TVA rates a work item may carry.
var VATRates = []float64{0, 5.5, 10, 20}

// Company is the contractor issuing the quote.
type Company struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	LegalForm  string `json:"legal_form,omitempty"`
	Siret      string `json:"siret,omitempty"`
	VATNumber  string `json:"vat_number,omitempty"`
	Street     string `json:"street,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	City       string `json:"city,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	Website    string `json:"website,omitempty"`
	Insurance  string `json:"insurance,omitempty"`
	IBAN       string `json:"iban,omitempty"`
	BIC        string `json:"bic,omitempty"`
	Logo       []byte `json:"logo,omitempty"`
}

// AddressLines returns the non-empty address lines of the company.
func (c Company) AddressLines() []string {
	return addressLines(c.Street, c.PostalCode, c.City)
}

// Client is the customer the quote is addressed to.
type Client struct {
	ID          string `json:"id,omitempty"`
	Civility    string `json:"civility,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	Street      string `json:"street,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
	City        string `json:"city,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
}

// DisplayName is the company name when set, otherwise the person's name.
func (c Client) DisplayName() string {
	if strings.TrimSpace(c.CompanyName) != "" {
		return strings.TrimSpace(c.CompanyName)
	}
	return strings.Join(strings.Fields(c.Civility+" "+c.FirstName+" "+c.LastName), " ")
}

// AddressLines returns the non-empty address lines of the client.
func (c Client) AddressLines() []string {
	return addressLines(c.Street, c.PostalCode, c.City)
}

// Property is the place where the works happen.
type Property struct {
	Kind              string  `json:"kind,omitempty"`
	Street            string  `json:"street,omitempty"`
	PostalCode        string  `json:"postal_code,omitempty"`
	City              string  `json:"city,omitempty"`
	Floor             string  `json:"floor,omitempty"`
	Surface           float64 `json:"surface,omitempty"`
	ConstructionYear  int     `json:"construction_year,omitempty"`
	OlderThanTwoYears bool    `json:"older_than_two_years"`
}

// AddressLines returns the non-empty address lines of the property.
func (p Property) AddressLines() []string {
	return addressLines(p.Street, p.PostalCode, p.City)
}

// Residential reports whether the property is housing.
func (p Property) Residential() bool {
	return p.Kind == PropertyApartment || p.Kind == PropertyHouse
}

// Opening is a door or window cut out of the walls of a room.
type Opening struct {
	ID     string  `json:"id"`
	Kind   string  `json:"kind"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Count  int     `json:"count"`
}

// Work is a line item (travail) attached to a room.
type Work struct {
	ID           string  `json:"id"`
	CatalogRef   string  `json:"catalog_ref,omitempty"`
	Label        string  `json:"label"`
	Description  string  `json:"description,omitempty"`
	Unit         string  `json:"unit"`
	Quantity     float64 `json:"quantity"`
	QuantityMode string  `json:"quantity_mode,omitempty"`
	LaborPrice   float64 `json:"labor_price"`
	SupplyPrice  float64 `json:"supply_price"`
	VATRate      float64 `json:"vat_rate"`
}

// Room is a pièce of the property with its measurements and works.
type Room struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Kind     string    `json:"kind,omitempty"`
	Length   float64   `json:"length"`
	Width    float64   `json:"width"`
	Height   float64   `json:"height"`
	Openings []Opening `json:"openings"`
	Works    []Work    `json:"works"`
	Notes    string    `json:"notes,omitempty"`
}

// Metadata carries the quote header and commercial terms.
type Metadata struct {
	Number          string    `json:"number,omitempty"`
	Title           string    `json:"title,omitempty"`
	IssueDate       time.Time `json:"issue_date"`
	ValidityDays    int       `json:"validity_days"`
	StartDate       time.Time `json:"start_date,omitempty"`
	DurationWeeks   int       `json:"duration_weeks,omitempty"`
	DiscountPercent float64   `json:"discount_percent,omitempty"`
	DepositPercent  float64   `json:"deposit_percent"`
	PaymentTerms    string    `json:"payment_terms,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	Status          string    `json:"status"`
}

// ValidUntil returns the last day the quote can be accepted.
func (m Metadata) ValidUntil() time.Time {
	if m.IssueDate.IsZero() {
		return time.Time{}
	}
	return m.IssueDate.AddDate(0, 0, m.ValidityDays)
}

// State is the whole quote being edited.
type State struct {
	RemoteID  string      `json:"remote_id,omitempty"`
	Company   Company     `json:"company"`
	Client    Client      `json:"client"`
	Property  Property    `json:"property"`
	Rooms     []Room      `json:"rooms"`
	Metadata  Metadata    `json:"metadata"`
	Settings  PDFSettings `json:"settings"`
	Version   int         `json:"version"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewState returns an empty quote issued at now.
func NewState(now time.Time) State {
	return State{
		Rooms: []Room{},
		Metadata: Metadata{
			IssueDate:      now,
			ValidityDays:   30,
			DepositPercent: 30,
			Status:         StatusDraft,
		},
		UpdatedAt: now,
	}
}

// Room returns the room with the given id.
func (s State) Room(id string) (Room, bool) {
	for _, r := range s.Rooms {
		if r.ID == id {
			return r, true
		}
	}
	return Room{}, false
}

// WorkCount returns the number of works across all rooms.
func (s State) WorkCount() int {
	n := 0
	for _, r := range s.Rooms {
		n += len(r.Works)
	}
	return n
}

// DefaultVATRate is the reduced 10% rate for housing older than two years,
// and the standard 20% rate otherwise.
func DefaultVATRate(p Property) float64 {
	if p.Residential() && p.OlderThanTwoYears {
		return 10
	}
	return 20
}

func addressLines(street, postalCode, city string) []string {
	var lines []string
	if s := strings.TrimSpace(street); s != "" {
		lines = append(lines, s)
	}
	if s := strings.TrimSpace(postalCode + " " + city); s != "" {
		lines = append(lines, s)
	}
	return lines
}
