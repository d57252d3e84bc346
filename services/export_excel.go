package services

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	detailSheet = "Détail"
	recapSheet  = "Récapitulatif"
)

var euroFormat = `#,##0.00 "€"`

// excelStyles holds the style ids shared by both sheets.
type excelStyles struct {
	title, header, room, line, money, label, total int
}

func newExcelStyles(f *excelize.File) (excelStyles, error) {
	var st excelStyles
	defs := []struct {
		dst   *int
		name  string
		style *excelize.Style
	}{
		{&st.title, "title", &excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}}},
		{&st.header, "header", &excelize.Style{
			Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
			Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1F3A5F"}, Pattern: 1},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
			Border:    thinBorders(),
		}},
		{&st.room, "room", &excelize.Style{
			Font:   &excelize.Font{Bold: true, Size: 10},
			Fill:   excelize.Fill{Type: "pattern", Color: []string{"#E3EAF3"}, Pattern: 1},
			Border: thinBorders(),
		}},
		{&st.line, "line", &excelize.Style{Font: &excelize.Font{Size: 10}, Border: thinBorders()}},
		{&st.money, "money", &excelize.Style{Font: &excelize.Font{Size: 10}, Border: thinBorders(), CustomNumFmt: &euroFormat}},
		{&st.label, "label", &excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 11},
			Alignment: &excelize.Alignment{Horizontal: "right"},
		}},
		{&st.total, "total", &excelize.Style{Font: &excelize.Font{Bold: true, Size: 11}, CustomNumFmt: &euroFormat}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return st, fmt.Errorf("create %s style: %w", d.name, err)
		}
		*d.dst = id
	}
	return st, nil
}

// GenerateRecapExcel creates a workbook with a "Détail" sheet listing every
// work line and a "Récapitulatif" sheet with room totals, VAT groups and
// quote totals. Amounts are written as numbers.
func GenerateRecapExcel(data *QuoteExportData) ([]byte, error) {
	if data == nil {
		return nil, fmt.Errorf("no quote data")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), detailSheet); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}
	if _, err := f.NewSheet(recapSheet); err != nil {
		return nil, fmt.Errorf("create recap sheet: %w", err)
	}

	st, err := newExcelStyles(f)
	if err != nil {
		return nil, err
	}

	if err := writeDetailSheet(f, st, data); err != nil {
		return nil, err
	}
	if err := writeRecapSheet(f, st, data); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func setRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		if s, ok := v.(string); ok {
			v = sanitizeExcelCell(s)
		}
		f.SetCellValue(sheet, cellName(i+1, row), v)
	}
}

func writeDetailSheet(f *excelize.File, st excelStyles, data *QuoteExportData) error {
	headers := []string{"N°", "Désignation", "Qté", "Unité", "MO unitaire", "Fourniture unitaire", "PU HT", "TVA %", "Total HT", "TVA", "Total TTC"}
	widths := []float64{7, 44, 9, 8, 13, 13, 13, 8, 14, 12, 14}
	last := len(headers)

	for i, w := range widths {
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(detailSheet, name, name, w); err != nil {
			return fmt.Errorf("set col width %s: %w", name, err)
		}
	}

	if err := f.MergeCell(detailSheet, "A1", cellName(last, 1)); err != nil {
		return fmt.Errorf("merge title: %w", err)
	}
	f.SetCellValue(detailSheet, "A1", sanitizeExcelCell(fmt.Sprintf("%s %s", data.CoverTitle, data.Number)))
	f.SetCellStyle(detailSheet, "A1", cellName(last, 1), st.title)
	setRow(f, detailSheet, 2, data.Client.Name, data.IssueDate)

	for i, h := range headers {
		f.SetCellValue(detailSheet, cellName(i+1, 4), h)
	}
	f.SetCellStyle(detailSheet, "A4", cellName(last, 4), st.header)

	row := 5
	for _, section := range data.Sections {
		setRow(f, detailSheet, row, section.Index, section.Name)
		f.SetCellStyle(detailSheet, cellName(1, row), cellName(last, row), st.room)
		row++

		for _, l := range section.Lines {
			c := l.Calc
			setRow(f, detailSheet, row,
				l.Index, l.Label, c.Quantity.InexactFloat64(), l.Unit,
				c.UnitLabor.InexactFloat64(), c.UnitSupply.InexactFloat64(), c.UnitPriceHT.InexactFloat64(),
				c.VATRate.InexactFloat64(),
				c.TotalHT.InexactFloat64(), c.VATAmount.InexactFloat64(), c.TotalTTC.InexactFloat64(),
			)
			f.SetCellStyle(detailSheet, cellName(1, row), cellName(4, row), st.line)
			f.SetCellStyle(detailSheet, cellName(5, row), cellName(7, row), st.money)
			f.SetCellStyle(detailSheet, cellName(8, row), cellName(8, row), st.line)
			f.SetCellStyle(detailSheet, cellName(9, row), cellName(last, row), st.money)
			row++
		}
	}

	if err := f.SetPanes(detailSheet, &excelize.Panes{
		Freeze: true, YSplit: 4, TopLeftCell: "A5", ActivePane: "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}
	return nil
}

func writeRecapSheet(f *excelize.File, st excelStyles, data *QuoteExportData) error {
	t := data.Totals
	for i, w := range []float64{36, 16, 16, 16} {
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(recapSheet, name, name, w); err != nil {
			return fmt.Errorf("set col width %s: %w", name, err)
		}
	}

	f.SetCellValue(recapSheet, "A1", "Récapitulatif")
	f.SetCellStyle(recapSheet, "A1", "A1", st.title)

	setRow(f, recapSheet, 3, "Pièce", "Total HT", "TVA", "Total TTC")
	f.SetCellStyle(recapSheet, "A3", "D3", st.header)

	row := 4
	for _, section := range data.Sections {
		rt := section.Totals
		setRow(f, recapSheet, row, section.Index+". "+section.Name,
			rt.TotalHT.InexactFloat64(), rt.VATAmount.InexactFloat64(), rt.TotalTTC.InexactFloat64())
		f.SetCellStyle(recapSheet, cellName(1, row), cellName(1, row), st.line)
		f.SetCellStyle(recapSheet, cellName(2, row), cellName(4, row), st.money)
		row++
	}

	row++
	summary := func(label string, value float64) {
		f.SetCellValue(recapSheet, cellName(3, row), label)
		f.SetCellStyle(recapSheet, cellName(3, row), cellName(3, row), st.label)
		f.SetCellValue(recapSheet, cellName(4, row), value)
		f.SetCellStyle(recapSheet, cellName(4, row), cellName(4, row), st.total)
		row++
	}

	if t.Discount.IsPositive() {
		summary("Total HT avant remise", t.GrossHT.InexactFloat64())
		summary("Remise "+FormatPercent(t.DiscountPercent), t.Discount.Neg().InexactFloat64())
	}
	summary("Total HT", t.TotalHT.InexactFloat64())
	for _, g := range t.VATGroups {
		summary(fmt.Sprintf("TVA %s sur %s", FormatPercent(g.Rate), FormatEUR(g.BaseHT)), g.VAT.InexactFloat64())
	}
	summary("Total TVA", t.TotalVAT.InexactFloat64())
	summary("Total TTC", t.TotalTTC.InexactFloat64())
	if t.Deposit.IsPositive() {
		summary("Acompte "+FormatPercent(t.DepositPercent), t.Deposit.InexactFloat64())
		summary("Solde", t.Balance.InexactFloat64())
	}
	return nil
}

// sanitizeExcelCell prevents formula injection by prefixing dangerous leading
// characters with a single quote. Excel interprets cells starting with =, +, -,
// @, \t or \r as formulas, which can be abused for code execution or data theft.
func sanitizeExcelCell(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}

// thinBorders returns a slice of excelize.Border for thin borders on all four sides.
func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{
			Type:  side,
			Color: "#C8CDD3",
			Style: 1, // thin
		}
	}
	return borders
}
