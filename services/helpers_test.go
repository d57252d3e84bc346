package services

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

// openWorkbook opens generated xlsx bytes and closes the file when the test ends.
func openWorkbook(t *testing.T, b []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("result is not valid Excel: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}
