package storage

import (
	"fmt"
	"io"

	"github.com/pocketbase/pocketbase/core"

	"devis/model"
)

// CompanyFromRecord maps a companies record to the model. The logo is not
// read; use ReadRecordFile for that.
func CompanyFromRecord(r *core.Record) model.Company {
	return model.Company{
		ID:         r.Id,
		Name:       r.GetString("name"),
		LegalForm:  r.GetString("legal_form"),
		Siret:      r.GetString("siret"),
		VATNumber:  r.GetString("vat_number"),
		Street:     r.GetString("street"),
		PostalCode: r.GetString("postal_code"),
		City:       r.GetString("city"),
		Phone:      r.GetString("phone"),
		Email:      r.GetString("email"),
		Website:    r.GetString("website"),
		Insurance:  r.GetString("insurance"),
		IBAN:       r.GetString("iban"),
		BIC:        r.GetString("bic"),
	}
}

// ApplyCompany copies the editable company fields onto a record.
func ApplyCompany(r *core.Record, c model.Company) {
	r.Set("name", c.Name)
	r.Set("legal_form", c.LegalForm)
	r.Set("siret", c.Siret)
	r.Set("vat_number", c.VATNumber)
	r.Set("street", c.Street)
	r.Set("postal_code", c.PostalCode)
	r.Set("city", c.City)
	r.Set("phone", c.Phone)
	r.Set("email", c.Email)
	r.Set("website", c.Website)
	r.Set("insurance", c.Insurance)
	r.Set("iban", c.IBAN)
	r.Set("bic", c.BIC)
}

// ClientFromRecord maps a clients record to the model.
func ClientFromRecord(r *core.Record) model.Client {
	return model.Client{
		ID:          r.Id,
		Civility:    r.GetString("civility"),
		FirstName:   r.GetString("first_name"),
		LastName:    r.GetString("last_name"),
		CompanyName: r.GetString("company_name"),
		Street:      r.GetString("street"),
		PostalCode:  r.GetString("postal_code"),
		City:        r.GetString("city"),
		Phone:       r.GetString("phone"),
		Email:       r.GetString("email"),
	}
}

// ApplyClient copies the client fields onto a record.
func ApplyClient(r *core.Record, c model.Client) {
	r.Set("civility", c.Civility)
	r.Set("first_name", c.FirstName)
	r.Set("last_name", c.LastName)
	r.Set("company_name", c.CompanyName)
	r.Set("street", c.Street)
	r.Set("postal_code", c.PostalCode)
	r.Set("city", c.City)
	r.Set("phone", c.Phone)
	r.Set("email", c.Email)
}

// ReadRecordFile returns the content of a single file field. It returns
// nil without error when the field is empty.
func ReadRecordFile(app core.App, r *core.Record, field string) ([]byte, error) {
	name := r.GetString(field)
	if name == "" {
		return nil, nil
	}

	fsys, err := app.NewFilesystem()
	if err != nil {
		return nil, fmt.Errorf("open filesystem: %w", err)
	}
	defer fsys.Close()

	reader, err := fsys.GetReader(r.BaseFilesPath() + "/" + name)
	if err != nil {
		return nil, fmt.Errorf("open %s file %q: %w", field, name, err)
	}
	defer reader.Close()

	b, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read %s file %q: %w", field, name, err)
	}
	return b, nil
}
