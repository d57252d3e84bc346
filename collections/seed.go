package collections

import (
	"fmt"
	"log"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

// ── Definition structs ───────────────────────────────────────────────────

type catalogDef struct {
	reference   string
	label       string
	description string
	unit        string
	laborPrice  float64
	supplyPrice float64
	vatRate     float64
	category    string
}

type workDef struct {
	catalogRef string
	label      string
	unit       string
	quantity   float64
	mode       string
	labor      float64
	supply     float64
	vatRate    float64
}

type roomDef struct {
	name                  string
	kind                  string
	length, width, height float64
	openings              []map[string]any
	works                 []workDef
}

// standardCatalog is the default list of priced works offered to a new company.
var standardCatalog = []catalogDef{
	{"DEP-CAR", "Dépose de carrelage sol", "Dépose, évacuation des gravats", "m²", 18, 0, 10, "Démolition"},
	{"DEP-FAI", "Dépose de faïence murale", "", "m²", 15, 0, 10, "Démolition"},
	{"PRE-RAG", "Ragréage sol", "Primaire d'accrochage et ragréage autolissant", "m²", 12, 8, 10, "Préparation"},
	{"PEI-PLA", "Peinture plafond", "Impression et deux couches mates", "m²", 16, 5, 10, "Peinture"},
	{"PEI-MUR", "Peinture murs", "Deux couches, finition satinée", "m²", 14, 6, 10, "Peinture"},
	{"REV-CAR", "Pose de carrelage sol", "Collé, joints ciment", "m²", 38, 32, 10, "Revêtements"},
	{"REV-PAR", "Pose de parquet flottant", "Sous-couche acoustique incluse", "m²", 22, 35, 10, "Revêtements"},
	{"REV-PLI", "Pose de plinthes", "", "ml", 7, 4, 10, "Revêtements"},
	{"ISO-COM", "Isolation des combles", "Laine soufflée R=7", "m²", 20, 15, 5.5, "Isolation"},
	{"ELE-PRI", "Création prise électrique", "", "u", 55, 18, 10, "Électricité"},
	{"PLO-SER", "Sèche-serviettes électrique", "Fourniture et pose", "u", 90, 310, 20, "Plomberie"},
	{"PLO-WC", "Remplacement WC suspendu", "Bâti-support et cuvette", "u", 280, 420, 10, "Plomberie"},
}

// Seed populates the collections with a demo company, its work catalog, one
// client and one draft quote. It is safe to call on every startup because it
// returns early if any company records already exist.
func Seed(app core.App) error {
	// ── idempotency: skip if companies already exist ───────────────────
	companiesCol, err := app.FindCollectionByNameOrId("companies")
	if err != nil {
		return fmt.Errorf("seed: could not find companies collection: %w", err)
	}
	existing, err := app.FindAllRecords(companiesCol)
	if err != nil {
		return fmt.Errorf("seed: could not query companies: %w", err)
	}
	if len(existing) > 0 {
		return nil // already seeded
	}

	log.Println("seed: companies collection is empty, inserting seed data")

	company := core.NewRecord(companiesCol)
	company.Load(map[string]any{
		"name":         "Atelier Dupont Rénovation",
		"legal_form":   "SARL",
		"siret":        "12345678900012",
		"vat_number":   "FR32123456789",
		"street":       "3 rue des Lilas",
		"postal_code":  "69003",
		"city":         "Lyon",
		"phone":        "04 78 00 00 00",
		"email":        "contact@atelier-dupont.fr",
		"website":      "www.atelier-dupont.fr",
		"insurance":    "Assurance décennale MAAF n° 123456, couverture France métropolitaine",
		"iban":         "FR76 3000 4000 0500 0012 3456 789",
		"bic":          "BNPAFRPP",
		"quote_prefix": "DEV",
	})
	if err := app.Save(company); err != nil {
		return fmt.Errorf("seed: save company: %w", err)
	}

	if err := SeedCatalog(app, company.Id); err != nil {
		return err
	}

	clientsCol, err := app.FindCollectionByNameOrId("clients")
	if err != nil {
		return fmt.Errorf("seed: could not find clients collection: %w", err)
	}
	client := core.NewRecord(clientsCol)
	client.Load(map[string]any{
		"company":     company.Id,
		"civility":    "Mme",
		"first_name":  "Claire",
		"last_name":   "Martin",
		"street":      "12 cours Émile Zola",
		"postal_code": "69100",
		"city":        "Villeurbanne",
		"phone":       "06 12 34 56 78",
		"email":       "claire.martin@example.fr",
	})
	if err := app.Save(client); err != nil {
		return fmt.Errorf("seed: save client: %w", err)
	}

	rooms := []roomDef{
		{
			name: "Cuisine", kind: "Cuisine", length: 4, width: 3, height: 2.5,
			openings: []map[string]any{
				{"id": "seed-o1", "kind": "door", "width": 0.83, "height": 2.04, "count": 1},
				{"id": "seed-o2", "kind": "window", "width": 1.2, "height": 1.15, "count": 1},
			},
			works: []workDef{
				{"DEP-CAR", "Dépose de carrelage sol", "m²", 0, "floor", 18, 0, 10},
				{"REV-CAR", "Pose de carrelage sol", "m²", 0, "floor", 38, 32, 10},
				{"PEI-MUR", "Peinture murs", "m²", 0, "walls", 14, 6, 10},
			},
		},
		{
			name: "Salle de bain", kind: "Salle de bain", length: 2.4, width: 2, height: 2.5,
			works: []workDef{
				{"PLO-SER", "Sèche-serviettes électrique", "u", 1, "manual", 90, 310, 20},
				{"PEI-PLA", "Peinture plafond", "m²", 0, "ceiling", 16, 5, 10},
			},
		},
	}

	return createQuote(app, company.Id, client.Id, rooms)
}

// SeedCatalog inserts the standard catalog for a company, skipping references
// that already exist.
func SeedCatalog(app core.App, companyID string) error {
	col, err := app.FindCollectionByNameOrId("work_catalog")
	if err != nil {
		return fmt.Errorf("seed: could not find work_catalog collection: %w", err)
	}

	created := 0
	for _, d := range standardCatalog {
		if _, err := app.FindFirstRecordByFilter(col, "company = {:c} && reference = {:r}",
			map[string]any{"c": companyID, "r": d.reference}); err == nil {
			continue
		}
		r := core.NewRecord(col)
		r.Set("company", companyID)
		r.Set("reference", d.reference)
		r.Set("label", d.label)
		r.Set("description", d.description)
		r.Set("unit", d.unit)
		r.Set("labor_price", d.laborPrice)
		r.Set("supply_price", d.supplyPrice)
		r.Set("vat_rate", d.vatRate)
		r.Set("category", d.category)
		if err := app.Save(r); err != nil {
			return fmt.Errorf("seed: save catalog entry %q: %w", d.reference, err)
		}
		created++
	}
	log.Printf("seed: %d catalog entries created for company %s", created, companyID)
	return nil
}

func createQuote(app core.App, companyID, clientID string, rooms []roomDef) error {
	quotesCol, err := app.FindCollectionByNameOrId("quotes")
	if err != nil {
		return fmt.Errorf("seed: could not find quotes collection: %w", err)
	}
	roomsCol, err := app.FindCollectionByNameOrId("rooms")
	if err != nil {
		return fmt.Errorf("seed: could not find rooms collection: %w", err)
	}
	worksCol, err := app.FindCollectionByNameOrId("works")
	if err != nil {
		return fmt.Errorf("seed: could not find works collection: %w", err)
	}

	issued, _ := types.ParseDateTime(time.Now().UTC().Truncate(24 * time.Hour))

	return app.RunInTransaction(func(txApp core.App) error {
		quote := core.NewRecord(quotesCol)
		quote.Load(map[string]any{
			"company":         companyID,
			"client":          clientID,
			"title":           "Rénovation cuisine et salle de bain",
			"status":          "draft",
			"issue_date":      issued,
			"validity_days":   30,
			"duration_weeks":  3,
			"deposit_percent": 30,
			"payment_terms":   "Acompte à la signature, solde à réception de facture.",
			"property": map[string]any{
				"kind": "apartment", "street": "12 cours Émile Zola", "postal_code": "69100",
				"city": "Villeurbanne", "floor": "3", "surface": 64, "older_than_two_years": true,
			},
			"version": 1,
		})
		if err := txApp.Save(quote); err != nil {
			return fmt.Errorf("seed: save quote: %w", err)
		}

		for i, rd := range rooms {
			room := core.NewRecord(roomsCol)
			room.Load(map[string]any{
				"quote":      quote.Id,
				"local_id":   fmt.Sprintf("seed-r%d", i+1),
				"sort_order": i,
				"name":       rd.name,
				"kind":       rd.kind,
				"length":     rd.length,
				"width":      rd.width,
				"height":     rd.height,
				"openings":   rd.openings,
			})
			if err := txApp.Save(room); err != nil {
				return fmt.Errorf("seed: save room %q: %w", rd.name, err)
			}

			for j, wd := range rd.works {
				work := core.NewRecord(worksCol)
				work.Load(map[string]any{
					"room":          room.Id,
					"local_id":      fmt.Sprintf("seed-r%d-w%d", i+1, j+1),
					"sort_order":    j,
					"catalog_ref":   wd.catalogRef,
					"label":         wd.label,
					"unit":          wd.unit,
					"quantity":      wd.quantity,
					"quantity_mode": wd.mode,
					"labor_price":   wd.labor,
					"supply_price":  wd.supply,
					"vat_rate":      wd.vatRate,
				})
				if err := txApp.Save(work); err != nil {
					return fmt.Errorf("seed: save work %q: %w", wd.label, err)
				}
			}
		}

		log.Printf("seed: demo quote %s created with %d rooms", quote.Id, len(rooms))
		return nil
	})
}
