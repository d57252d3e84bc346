package model

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

var (
	vatRule     = validation.In(0.0, 5.5, 10.0, 20.0).Error("TVA must be 0, 5.5, 10 or 20")
	percentRule = []validation.Rule{validation.Min(0.0), validation.Max(100.0)}
)

func (c Company) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&c.Email, is.EmailFormat),
		validation.Field(&c.Siret, validation.Length(14, 14), is.Digit),
	)
}

func (c Client) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.LastName, validation.When(c.CompanyName == "", validation.Required.Error("last name or company name is required"))),
		validation.Field(&c.Email, is.EmailFormat),
	)
}

func (o Opening) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Kind, validation.In(OpeningDoor, OpeningWindow, OpeningOther)),
		validation.Field(&o.Width, validation.Min(0.0)),
		validation.Field(&o.Height, validation.Min(0.0)),
		validation.Field(&o.Count, validation.Min(0)),
	)
}

func (w Work) Validate() error {
	return validation.ValidateStruct(&w,
		validation.Field(&w.Label, validation.Required, validation.Length(1, 300)),
		validation.Field(&w.Unit, validation.Required),
		validation.Field(&w.Quantity, validation.Min(0.0)),
		validation.Field(&w.QuantityMode, validation.In(QuantityManual, QuantityFloor, QuantityCeiling, QuantityWalls, QuantityPerimeter)),
		validation.Field(&w.LaborPrice, validation.Min(0.0)),
		validation.Field(&w.SupplyPrice, validation.Min(0.0)),
		validation.Field(&w.VATRate, vatRule),
	)
}

func (r Room) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&r.Length, validation.Min(0.0)),
		validation.Field(&r.Width, validation.Min(0.0)),
		validation.Field(&r.Height, validation.Min(0.0)),
		validation.Field(&r.Openings),
		validation.Field(&r.Works),
	)
}

func (m Metadata) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.ValidityDays, validation.Min(0)),
		validation.Field(&m.DiscountPercent, percentRule...),
		validation.Field(&m.DepositPercent, percentRule...),
		validation.Field(&m.Status, validation.In(StatusDraft, StatusSent, StatusAccepted, StatusRefused)),
	)
}

// Validate checks the whole quote. The company and client are only validated
// once they carry data, so an empty draft is valid.
func (s State) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Company, validation.Skip.When(s.Company.Name == "" && s.Company.Email == "")),
		validation.Field(&s.Client, validation.Skip.When(s.Client.DisplayName() == "" && s.Client.Email == "")),
		validation.Field(&s.Rooms),
		validation.Field(&s.Metadata),
	)
}

// ValidateForExport is stricter than Validate: a quote can only be rendered
// once it names a company and a client and holds at least one work.
func (s State) ValidateForExport() error {
	if err := s.Validate(); err != nil {
		return err
	}
	errs := validation.Errors{
		"company": validation.Validate(s.Company.Name, validation.Required.Error("company name is required")),
		"client":  validation.Validate(s.Client.DisplayName(), validation.Required.Error("client is required")),
	}
	if s.WorkCount() == 0 {
		errs["rooms"] = errors.New("at least one work is required")
	}
	return errs.Filter()
}
