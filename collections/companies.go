package collections

import (
	"fmt"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

// DefaultCompany returns the company with the given id, or the oldest
// company when id is empty.
func DefaultCompany(app core.App, id string) (*core.Record, error) {
	if id != "" {
		return app.FindRecordById("companies", id)
	}
	records, err := app.FindRecordsByFilter("companies", "", "created", 1, 0, dbx.Params{})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no company defined")
	}
	return records[0], nil
}
