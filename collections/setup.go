package collections

import (
	"fmt"
	"log"

	"github.com/pocketbase/pocketbase/core"
)

// Quote statuses stored in the quotes collection.
var quoteStatuses = []string{"draft", "sent", "accepted", "refused"}

// Setup programmatically creates/ensures the companies, clients, quotes,
// rooms, works, work_catalog and quote_documents collections exist.
func Setup(app core.App) error {
	companies, err := ensureCollection(app, "companies", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "name", Required: true})
		c.Fields.Add(&core.TextField{Name: "legal_form"})
		c.Fields.Add(&core.TextField{Name: "siret"})
		c.Fields.Add(&core.TextField{Name: "vat_number"})
		c.Fields.Add(&core.TextField{Name: "street"})
		c.Fields.Add(&core.TextField{Name: "postal_code"})
		c.Fields.Add(&core.TextField{Name: "city"})
		c.Fields.Add(&core.TextField{Name: "phone"})
		c.Fields.Add(&core.EmailField{Name: "email"})
		c.Fields.Add(&core.TextField{Name: "website"})
		c.Fields.Add(&core.TextField{Name: "insurance"})
		c.Fields.Add(&core.TextField{Name: "iban"})
		c.Fields.Add(&core.TextField{Name: "bic"})
		c.Fields.Add(&core.TextField{Name: "quote_prefix", Max: 10})
		c.Fields.Add(&core.JSONField{Name: "pdf_settings"})
		c.Fields.Add(&core.FileField{
			Name:      "logo",
			MaxSelect: 1,
			MaxSize:   2 << 20,
			MimeTypes: []string{"image/png", "image/jpeg"},
		})
		c.Fields.Add(&core.FileField{
			Name:      "cgv",
			MaxSelect: 1,
			MaxSize:   5 << 20,
			MimeTypes: []string{"application/pdf"},
		})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})
	if err != nil {
		return err
	}

	clients, err := ensureCollection(app, "clients", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "company",
			Required:      true,
			CollectionId:  companies.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "civility"})
		c.Fields.Add(&core.TextField{Name: "first_name"})
		c.Fields.Add(&core.TextField{Name: "last_name"})
		c.Fields.Add(&core.TextField{Name: "company_name"})
		c.Fields.Add(&core.TextField{Name: "street"})
		c.Fields.Add(&core.TextField{Name: "postal_code"})
		c.Fields.Add(&core.TextField{Name: "city"})
		c.Fields.Add(&core.TextField{Name: "phone"})
		c.Fields.Add(&core.EmailField{Name: "email"})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})
	if err != nil {
		return err
	}

	quotes, err := ensureCollection(app, "quotes", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "company",
			Required:      true,
			CollectionId:  companies.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.RelationField{
			Name:         "client",
			CollectionId: clients.Id,
			MaxSelect:    1,
		})
		c.Fields.Add(&core.TextField{Name: "number"})
		c.Fields.Add(&core.TextField{Name: "title"})
		c.Fields.Add(&core.SelectField{
			Name:      "status",
			Required:  true,
			Values:    quoteStatuses,
			MaxSelect: 1,
		})
		c.Fields.Add(&core.DateField{Name: "issue_date"})
		c.Fields.Add(&core.NumberField{Name: "validity_days", OnlyInt: true})
		c.Fields.Add(&core.DateField{Name: "start_date"})
		c.Fields.Add(&core.NumberField{Name: "duration_weeks", OnlyInt: true})
		c.Fields.Add(&core.NumberField{Name: "discount_percent"})
		c.Fields.Add(&core.NumberField{Name: "deposit_percent"})
		c.Fields.Add(&core.TextField{Name: "payment_terms"})
		c.Fields.Add(&core.TextField{Name: "notes"})
		c.Fields.Add(&core.JSONField{Name: "property"})
		c.Fields.Add(&core.JSONField{Name: "settings"})
		c.Fields.Add(&core.NumberField{Name: "total_ht"})
		c.Fields.Add(&core.NumberField{Name: "total_ttc"})
		c.Fields.Add(&core.NumberField{Name: "version", OnlyInt: true})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
		c.AddIndex("idx_quotes_company_number", true, "company, number", "number != ''")
	})
	if err != nil {
		return err
	}

	rooms, err := ensureCollection(app, "rooms", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "quote",
			Required:      true,
			CollectionId:  quotes.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "local_id", Required: true})
		c.Fields.Add(&core.NumberField{Name: "sort_order", OnlyInt: true})
		c.Fields.Add(&core.TextField{Name: "name", Required: true})
		c.Fields.Add(&core.TextField{Name: "kind"})
		c.Fields.Add(&core.NumberField{Name: "length"})
		c.Fields.Add(&core.NumberField{Name: "width"})
		c.Fields.Add(&core.NumberField{Name: "height"})
		c.Fields.Add(&core.JSONField{Name: "openings"})
		c.Fields.Add(&core.TextField{Name: "notes"})
	})
	if err != nil {
		return err
	}

	_, err = ensureCollection(app, "works", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "room",
			Required:      true,
			CollectionId:  rooms.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "local_id", Required: true})
		c.Fields.Add(&core.NumberField{Name: "sort_order", OnlyInt: true})
		c.Fields.Add(&core.TextField{Name: "catalog_ref"})
		c.Fields.Add(&core.TextField{Name: "label", Required: true})
		c.Fields.Add(&core.TextField{Name: "description"})
		c.Fields.Add(&core.TextField{Name: "unit", Required: true})
		c.Fields.Add(&core.NumberField{Name: "quantity"})
		c.Fields.Add(&core.SelectField{
			Name:      "quantity_mode",
			Values:    []string{"manual", "floor", "ceiling", "walls", "perimeter"},
			MaxSelect: 1,
		})
		c.Fields.Add(&core.NumberField{Name: "labor_price"})
		c.Fields.Add(&core.NumberField{Name: "supply_price"})
		c.Fields.Add(&core.NumberField{Name: "vat_rate"})
	})
	if err != nil {
		return err
	}

	_, err = ensureCollection(app, "work_catalog", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "company",
			Required:      true,
			CollectionId:  companies.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "reference", Required: true})
		c.Fields.Add(&core.TextField{Name: "label", Required: true})
		c.Fields.Add(&core.TextField{Name: "description"})
		c.Fields.Add(&core.TextField{Name: "unit", Required: true})
		c.Fields.Add(&core.NumberField{Name: "labor_price"})
		c.Fields.Add(&core.NumberField{Name: "supply_price"})
		c.Fields.Add(&core.NumberField{Name: "vat_rate"})
		c.Fields.Add(&core.TextField{Name: "category"})
		c.AddIndex("idx_work_catalog_reference", true, "company, reference", "")
	})
	if err != nil {
		return err
	}

	_, err = ensureCollection(app, "quote_documents", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "quote",
			Required:      true,
			CollectionId:  quotes.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.SelectField{
			Name:      "kind",
			Required:  true,
			Values:    []string{"pdf", "xlsx"},
			MaxSelect: 1,
		})
		c.Fields.Add(&core.FileField{Name: "file", Required: true, MaxSelect: 1, MaxSize: 20 << 20})
		c.Fields.Add(&core.TextField{Name: "number"})
		c.Fields.Add(&core.NumberField{Name: "total_ttc"})
		c.Fields.Add(&core.EmailField{Name: "sent_to"})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
	})
	return err
}

// ensureCollection checks if a collection already exists by name. If it does,
// the existing collection is returned. Otherwise a new base collection is
// created, the addFields callback is invoked to populate its fields, and the
// collection is saved.
func ensureCollection(app core.App, name string, addFields func(*core.Collection)) (*core.Collection, error) {
	existing, err := app.FindCollectionByNameOrId(name)
	if err == nil && existing != nil {
		return existing, nil
	}

	collection := core.NewBaseCollection(name)
	addFields(collection)

	if err := app.Save(collection); err != nil {
		return nil, fmt.Errorf("create collection %q: %w", name, err)
	}

	log.Printf("collections: created %q (id=%s)", name, collection.Id)
	return collection, nil
}
