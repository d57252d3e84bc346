package collections

import (
	"fmt"
	"log"
	"time"

	"github.com/pocketbase/pocketbase/core"
)

// NumberFunc returns the next quote number of a company for the given date.
type NumberFunc func(app core.App, companyID string, at time.Time) (string, error)

// MigrateQuoteNumbers assigns a number to every quote that has none, in
// creation order, using the quote issue date for the month sequence.
// Safe to call on every startup -- returns early if nothing to migrate.
func MigrateQuoteNumbers(app core.App, next NumberFunc) error {
	quotesCol, err := app.FindCollectionByNameOrId("quotes")
	if err != nil {
		return fmt.Errorf("migrate: could not find quotes collection: %w", err)
	}

	unnumbered, err := app.FindRecordsByFilter(quotesCol, "number = ''", "created", 0, 0, nil)
	if err != nil {
		return fmt.Errorf("migrate: could not query unnumbered quotes: %w", err)
	}
	if len(unnumbered) == 0 {
		return nil
	}

	log.Printf("migrate: found %d quote(s) without a number", len(unnumbered))

	for _, quote := range unnumbered {
		at := quote.GetDateTime("issue_date").Time()
		if at.IsZero() {
			at = quote.GetDateTime("created").Time()
		}

		number, err := next(app, quote.GetString("company"), at)
		if err != nil {
			log.Printf("migrate: failed to number quote %s: %v", quote.Id, err)
			continue
		}

		quote.Set("number", number)
		if err := app.Save(quote); err != nil {
			log.Printf("migrate: failed to save number %s on quote %s: %v", number, quote.Id, err)
			continue
		}
		log.Printf("migrate: quote %s -> %s", quote.Id, number)
	}

	return nil
}
