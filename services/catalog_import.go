package services

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const importBatchSize = 100

// CatalogField describes one column of the catalog import file.
type CatalogField struct {
	Key      string
	Label    string
	Required bool
	Example  string
	aliases  []string
}

// CatalogFields returns the columns of a catalog file in template order.
func CatalogFields() []CatalogField {
	return []CatalogField{
		{Key: "reference", Label: "Référence", Required: true, Example: "PEI-MUR", aliases: []string{"ref", "code"}},
		{Key: "label", Label: "Désignation", Required: true, Example: "Peinture murs", aliases: []string{"libelle", "intitule"}},
		{Key: "description", Label: "Description", Example: "Deux couches, finition satinée"},
		{Key: "unit", Label: "Unité", Required: true, Example: "m²", aliases: []string{"u"}},
		{Key: "labor_price", Label: "Prix MO HT", Example: "14,00", aliases: []string{"main d'oeuvre", "mo", "prix main d'oeuvre"}},
		{Key: "supply_price", Label: "Prix fourniture HT", Example: "6,00", aliases: []string{"fourniture", "fournitures"}},
		{Key: "vat_rate", Label: "TVA %", Example: "10", aliases: []string{"tva", "taux tva"}},
		{Key: "category", Label: "Catégorie", Example: "Peinture", aliases: []string{"famille", "lot"}},
	}
}

// CatalogRow is a validated catalog entry ready to be stored.
type CatalogRow struct {
	Row         int     `json:"row"`
	Reference   string  `json:"reference"`
	Label       string  `json:"label"`
	Description string  `json:"description,omitempty"`
	Unit        string  `json:"unit"`
	LaborPrice  float64 `json:"labor_price"`
	SupplyPrice float64 `json:"supply_price"`
	VATRate     float64 `json:"vat_rate"`
	Category    string  `json:"category,omitempty"`
}

// ValidationResult is returned after parsing and validating an uploaded file.
type ValidationResult struct {
	TotalRows    int               `json:"total_rows"`
	ValidRows    int               `json:"valid_rows"`
	ErrorRows    int               `json:"error_rows"`
	Errors       []ValidationError `json:"errors"`
	Unrecognized []string          `json:"unrecognized,omitempty"`
	ParsedRows   []CatalogRow      `json:"-"`
	FileName     string            `json:"-"`
}

// ImportResult holds the outcome of a batch import operation.
type ImportResult struct {
	TotalRows  int              `json:"total_rows"`
	Created    int              `json:"created"`
	Updated    int              `json:"updated"`
	Failed     int              `json:"failed"`
	Errors     []ImportRowError `json:"errors,omitempty"`
	RolledBack bool             `json:"rolled_back"`
}

// ImportRowError represents a failure to store a specific row.
type ImportRowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// mapHeadersToFields maps uploaded column headers to CatalogField keys.
// Returns ordered list of field keys (one per column) and any unrecognized columns.
func mapHeadersToFields(headers []string, fields []CatalogField) ([]string, []string) {
	lookup := make(map[string]string, len(fields)*3)
	for _, f := range fields {
		lookup[normalizeHeader(f.Label)] = f.Key
		lookup[normalizeHeader(f.Key)] = f.Key
		for _, a := range f.aliases {
			lookup[normalizeHeader(a)] = f.Key
		}
	}

	mapped := make([]string, len(headers))
	var unrecognized []string
	for i, h := range headers {
		if key, ok := lookup[normalizeHeader(h)]; ok && !slices.Contains(mapped[:i], key) {
			mapped[i] = key
		} else if strings.TrimSpace(h) != "" {
			unrecognized = append(unrecognized, h)
		}
	}
	return mapped, unrecognized
}

// ValidateCatalogFile parses and validates an uploaded catalog file.
func ValidateCatalogFile(file io.Reader, fileName string) (*ValidationResult, error) {
	headers, dataRows, err := parseUpload(file, fileName)
	if err != nil {
		return nil, err
	}

	fields := CatalogFields()
	columnKeys, unrecognized := mapHeadersToFields(headers, fields)
	for _, f := range fields {
		if f.Required && !slices.Contains(columnKeys, f.Key) {
			return nil, fmt.Errorf("missing required column %q", f.Label)
		}
	}

	result := &ValidationResult{
		FileName:     fileName,
		Unrecognized: unrecognized,
		ParsedRows:   make([]CatalogRow, 0, len(dataRows)),
	}

	seen := make(map[string]int)
	for rowIdx, row := range dataRows {
		rowNum := rowIdx + 2 // 1-indexed, +1 for header row
		rowData := make(map[string]string, len(columnKeys))
		blank := true
		for colIdx, key := range columnKeys {
			if key == "" || colIdx >= len(row) {
				continue
			}
			rowData[key] = strings.TrimSpace(row[colIdx])
			if rowData[key] != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		result.TotalRows++

		entry, rowErrors := validateCatalogRow(rowNum, rowData, fields)
		if first, dup := seen[entry.Reference]; dup && entry.Reference != "" {
			rowErrors = append(rowErrors, ValidationError{
				Row:     rowNum,
				Field:   "Référence",
				Message: fmt.Sprintf("Référence %q déjà présente ligne %d", entry.Reference, first),
			})
		} else {
			seen[entry.Reference] = rowNum
		}

		if len(rowErrors) > 0 {
			result.Errors = append(result.Errors, rowErrors...)
			result.ErrorRows++
			continue
		}
		result.ParsedRows = append(result.ParsedRows, entry)
	}
	result.ValidRows = len(result.ParsedRows)

	return result, nil
}

func validateCatalogRow(rowNum int, data map[string]string, fields []CatalogField) (CatalogRow, []ValidationError) {
	var errs []ValidationError
	for _, f := range fields {
		if f.Required && data[f.Key] == "" {
			errs = append(errs, ValidationError{Row: rowNum, Field: f.Label, Message: f.Label + " est obligatoire"})
		}
	}

	entry := CatalogRow{
		Row:         rowNum,
		Reference:   data["reference"],
		Label:       data["label"],
		Description: data["description"],
		Unit:        data["unit"],
		Category:    data["category"],
		VATRate:     20,
	}
	if entry.Unit != "" && !slices.Contains(UnitOptions, entry.Unit) {
		errs = append(errs, ValidationError{Row: rowNum, Field: "Unité", Message: fmt.Sprintf("Unité %q inconnue", entry.Unit)})
	}

	price := func(key, label string, dst *float64) {
		v := data[key]
		if v == "" {
			return
		}
		n, err := parseFrenchNumber(v)
		if err != nil {
			errs = append(errs, ValidationError{Row: rowNum, Field: label, Message: fmt.Sprintf("%s doit être un nombre", label)})
			return
		}
		if n < 0 {
			errs = append(errs, ValidationError{Row: rowNum, Field: label, Message: fmt.Sprintf("%s ne peut pas être négatif", label)})
			return
		}
		*dst = n
	}
	price("labor_price", "Prix MO HT", &entry.LaborPrice)
	price("supply_price", "Prix fourniture HT", &entry.SupplyPrice)
	price("vat_rate", "TVA %", &entry.VATRate)

	if data["vat_rate"] != "" && !slices.Contains(VATOptions, entry.VATRate) {
		errs = append(errs, ValidationError{Row: rowNum, Field: "TVA %", Message: "TVA doit valoir 0, 5,5, 10 ou 20"})
	}
	return entry, errs
}

// CommitCatalogImport stores validated rows into work_catalog, updating
// entries that already exist with the same reference for the company.
// Rows are processed in chunks; a failing chunk is rolled back as a whole.
func CommitCatalogImport(app core.App, companyID string, rows []CatalogRow) (*ImportResult, error) {
	col, err := app.FindCollectionByNameOrId("work_catalog")
	if err != nil {
		return nil, fmt.Errorf("work_catalog collection not found: %w", err)
	}

	result := &ImportResult{TotalRows: len(rows)}

	for chunkStart := 0; chunkStart < len(rows); chunkStart += importBatchSize {
		chunk := rows[chunkStart:min(chunkStart+importBatchSize, len(rows))]

		created, updated, chunkErrors := upsertChunk(app, col, companyID, chunk)
		if len(chunkErrors) > 0 {
			result.Errors = append(result.Errors, chunkErrors...)
			result.Failed += len(chunk)
			result.RolledBack = true
			continue
		}
		result.Created += created
		result.Updated += updated
	}

	zap.S().Infof("catalog_import: company %s, %d created, %d updated, %d failed",
		companyID, result.Created, result.Updated, result.Failed)
	return result, nil
}

func upsertChunk(app core.App, col *core.Collection, companyID string, rows []CatalogRow) (int, int, []ImportRowError) {
	var created, updated int
	var chunkErrors []ImportRowError

	err := app.RunInTransaction(func(txApp core.App) error {
		for _, r := range rows {
			record, err := txApp.FindFirstRecordByFilter(col,
				"company = {:company} && reference = {:ref}",
				dbx.Params{"company": companyID, "ref": r.Reference},
			)
			isNew := err != nil
			if isNew {
				record = core.NewRecord(col)
				record.Set("company", companyID)
				record.Set("reference", r.Reference)
			}
			record.Set("label", r.Label)
			record.Set("description", r.Description)
			record.Set("unit", r.Unit)
			record.Set("labor_price", r.LaborPrice)
			record.Set("supply_price", r.SupplyPrice)
			record.Set("vat_rate", r.VATRate)
			record.Set("category", r.Category)

			if err := txApp.Save(record); err != nil {
				chunkErrors = append(chunkErrors, ImportRowError{
					Row:     r.Row,
					Message: "Échec de l'enregistrement : " + err.Error(),
				})
				return fmt.Errorf("save failed at row %d: %w", r.Row, err)
			}
			if isNew {
				created++
			} else {
				updated++
			}
		}
		return nil
	})
	if err != nil {
		zap.S().Warnf("catalog_import: chunk rolled back: %v", err)
		if len(chunkErrors) == 0 {
			chunkErrors = append(chunkErrors, ImportRowError{Row: rows[0].Row, Message: err.Error()})
		}
		return 0, 0, chunkErrors
	}
	return created, updated, nil
}

// GenerateCatalogTemplate returns an .xlsx file with the catalog headers,
// required columns suffixed with " *", and one example row.
func GenerateCatalogTemplate() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Catalogue"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1F3A5F"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for i, field := range CatalogFields() {
		header := field.Label
		if field.Required {
			header += " *"
		}
		f.SetCellValue(sheet, cellName(i+1, 1), header)
		f.SetCellValue(sheet, cellName(i+1, 2), field.Example)
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, float64(max(14, len(header)+4)))
	}
	last := len(CatalogFields())
	f.SetCellStyle(sheet, "A1", cellName(last, 1), headerStyle)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write template: %w", err)
	}
	return buf.Bytes(), nil
}
