package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ValidationError represents a single field-level error on one row.
type ValidationError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// splitHeader separates the header row from the data rows.
func splitHeader(rows [][]string) ([]string, [][]string, error) {
	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("file must contain a header row and at least one data row")
	}
	return rows[0], rows[1:], nil
}

// parseCSV reads a CSV file. Both comma and semicolon separated files are
// accepted; French spreadsheets export the latter. A UTF-8 BOM is ignored.
func parseCSV(file io.Reader) ([]string, [][]string, error) {
	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, fmt.Errorf("read CSV: %w", err)
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	if first, _, _ := bytes.Cut(raw, []byte("\n")); bytes.Count(first, []byte(";")) > bytes.Count(first, []byte(",")) {
		reader.Comma = ';'
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse CSV: %w", err)
	}
	return splitHeader(rows)
}

// parseExcel reads the "Catalogue" sheet of an xlsx file, or its first sheet
// when there is none.
func parseExcel(file io.Reader) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, nil, fmt.Errorf("open Excel file: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if idx, _ := f.GetSheetIndex("Catalogue"); idx >= 0 {
		sheet = "Catalogue"
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return splitHeader(rows)
}

// parseUpload dispatches on the file extension.
func parseUpload(file io.Reader, fileName string) ([]string, [][]string, error) {
	lowerName := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lowerName, ".csv"):
		return parseCSV(file)
	case strings.HasSuffix(lowerName, ".xlsx"):
		return parseExcel(file)
	}
	return nil, nil, fmt.Errorf("unsupported file format: must be .csv or .xlsx")
}

// normalizeHeader folds case, accents and the trailing " *" that templates
// add on required columns.
func normalizeHeader(h string) string {
	norm := strings.ToLower(FoldAccents(strings.TrimSpace(h)))
	norm = strings.TrimSuffix(norm, "*")
	return strings.TrimSpace(norm)
}

// parseFrenchNumber accepts "12,50", "1 234.5", "18 €" and "5,5 %".
func parseFrenchNumber(s string) (float64, error) {
	clean := strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", "€", "", "%", "").Replace(strings.TrimSpace(s))
	if strings.Count(clean, ",") == 1 && !strings.Contains(clean, ".") {
		clean = strings.Replace(clean, ",", ".", 1)
	} else {
		clean = strings.ReplaceAll(clean, ",", "")
	}
	return strconv.ParseFloat(clean, 64)
}

// GenerateErrorReport creates a downloadable .xlsx file from validation errors.
func GenerateErrorReport(errors []ValidationError) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Erreurs"
	defaultSheet := f.GetSheetName(0)
	f.SetSheetName(defaultSheet, sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DC2626"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    thinBorders(),
	})

	f.SetCellValue(sheet, "A1", "Ligne")
	f.SetCellValue(sheet, "B1", "Colonne")
	f.SetCellValue(sheet, "C1", "Erreur")
	f.SetCellStyle(sheet, "A1", "C1", headerStyle)
	f.SetColWidth(sheet, "A", "A", 8)
	f.SetColWidth(sheet, "B", "B", 22)
	f.SetColWidth(sheet, "C", "C", 55)

	for i, e := range errors {
		row := strconv.Itoa(i + 2)
		f.SetCellValue(sheet, "A"+row, e.Row)
		f.SetCellValue(sheet, "B"+row, sanitizeExcelCell(e.Field))
		f.SetCellValue(sheet, "C"+row, sanitizeExcelCell(e.Message))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write error report: %w", err)
	}
	return buf.Bytes(), nil
}
