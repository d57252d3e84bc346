package services

import (
	"fmt"
	"net/http"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/page"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/core/entity"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"devis/model"
)

// gridSize is the number of grid columns of every row.
const gridSize = 24

// GenerateQuotePDF creates the PDF document of a quote using maroto/v2.
// Settings must already be merged over DefaultPDFSettings. It returns the
// raw PDF bytes or an error.
func GenerateQuotePDF(data *QuoteExportData, settings model.PDFSettings) ([]byte, error) {
	if data == nil {
		return nil, fmt.Errorf("no quote data")
	}

	m := maroto.New(pdfConfig(data, settings))

	if footer := BuildFooterRows(data, settings); len(footer) > 0 {
		if err := m.RegisterFooter(footer...); err != nil {
			return nil, fmt.Errorf("register footer: %w", err)
		}
	}

	if model.On(settings.Sections.Cover) {
		m.AddPages(page.New().Add(BuildCoverRows(data, settings)...))
	}

	var body []core.Row
	if model.On(settings.Sections.Details) {
		body = append(body, BuildDetailRows(data, settings)...)
	}
	if model.On(settings.Sections.Recap) {
		body = append(body, BuildRecapRows(data, settings)...)
	}
	if model.On(settings.Sections.Terms) {
		body = append(body, BuildTermsRows(data, settings)...)
	}
	if model.On(settings.Sections.Signature) {
		body = append(body, BuildSignatureRows(data, settings)...)
	}
	if len(body) > 0 {
		m.AddPages(page.New().Add(body...))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate quote PDF: %w", err)
	}

	if len(data.Appendix) > 0 {
		if err := doc.Merge(data.Appendix); err != nil {
			return nil, fmt.Errorf("append general terms: %w", err)
		}
	}

	return doc.GetBytes(), nil
}

func pdfConfig(data *QuoteExportData, s model.PDFSettings) *entity.Config {
	o := orientation.Vertical
	if s.Page.Orientation == "landscape" {
		o = orientation.Horizontal
	}

	b := config.NewBuilder().
		WithOrientation(o).
		WithPageSize(pagesize.A4).
		WithMaxGridSize(gridSize).
		WithLeftMargin(s.Page.MarginLeft).
		WithTopMargin(s.Page.MarginTop).
		WithRightMargin(s.Page.MarginRight).
		WithBottomMargin(s.Page.MarginBottom).
		WithDefaultFont(&props.Font{
			Family: s.Typography.FontFamily,
			Size:   s.Typography.BaseSize,
		}).
		WithTitle(joinNonEmpty(" ", data.CoverTitle, data.Number), true).
		WithAuthor(data.Company.Name, true).
		WithSubject(data.Title, true)

	if model.On(s.Sections.PageNumbers) {
		b = b.WithPageNumber(props.PageNumber{
			Pattern: "Page {current} / {total}",
			Place:   props.RightBottom,
			Family:  s.Typography.FontFamily,
			Size:    s.Typography.SmallSize,
			Color:   pdfColor(s.Colors.Muted),
		})
	}

	return b.Build()
}

// pdfStyle is the set of text and cell styles derived from merged settings.
type pdfStyle struct {
	s model.PDFSettings

	base     props.Text
	small    props.Text
	muted    props.Text
	bold     props.Text
	heading  props.Text
	title    props.Text
	header   props.Text
	emphasis props.Text

	headerCell *props.Cell
	roomCell   *props.Cell
	zebraCell  *props.Cell
	plainCell  *props.Cell
	totalCell  *props.Cell
	blockCell  *props.Cell
}

func newPDFStyle(s model.PDFSettings) pdfStyle {
	ty := s.Typography
	base := props.Text{Family: ty.FontFamily, Size: ty.BaseSize, Align: align.Left, Top: 1}

	small := base
	small.Size = ty.SmallSize

	muted := small
	muted.Color = pdfColor(s.Colors.Muted)

	bold := base
	bold.Style = fontstyle.Bold

	heading := bold
	heading.Size = ty.HeadingSize
	heading.Color = pdfColor(s.Colors.Heading)

	title := heading
	title.Size = ty.TitleSize
	title.Align = align.Right
	title.Top = 0

	header := bold
	header.Size = ty.SmallSize
	header.Align = align.Center
	header.Color = pdfColor(s.Colors.PrimaryText)

	emphasis := header
	emphasis.Size = ty.HeadingSize
	emphasis.Align = align.Right

	st := pdfStyle{
		s:        s,
		base:     base,
		small:    small,
		muted:    muted,
		bold:     bold,
		heading:  heading,
		title:    title,
		header:   header,
		emphasis: emphasis,
	}

	st.headerCell = st.cell(s.Colors.Primary, model.On(s.Borders.Table))
	st.roomCell = st.cell(s.Colors.RoomBand, model.On(s.Borders.Table))
	st.zebraCell = st.cell(s.Colors.Zebra, model.On(s.Borders.Table))
	st.plainCell = st.cell("", model.On(s.Borders.Table))
	st.totalCell = st.cell(s.Colors.Primary, model.On(s.Borders.Table))
	st.blockCell = st.cell("", model.On(s.Borders.Blocks))
	return st
}

func (st pdfStyle) cell(background string, bordered bool) *props.Cell {
	c := &props.Cell{BackgroundColor: pdfColor(background)}
	if bordered {
		c.BorderType = border.Full
		c.BorderColor = pdfColor(st.s.Colors.Border)
		c.BorderThickness = st.s.Borders.Thickness
	}
	return c
}

func aligned(t props.Text, a align.Type) props.Text {
	t.Align = a
	return t
}

func gap(h float64) core.Row {
	return row.New(h)
}

// BuildCoverRows lays out the cover page: company block and title, quote
// references, client and site blocks and the amount due.
func BuildCoverRows(data *QuoteExportData, s model.PDFSettings) []core.Row {
	st := newPDFStyle(s)
	var rows []core.Row

	// The company name stands in for a missing or unsupported logo.
	left := col.New(gridSize/2).Add(text.New(data.Company.Name, st.heading))
	if ext, ok := imageExtension(data.Logo); ok {
		left = col.New(gridSize/2).Add(image.NewFromBytes(data.Logo, ext, props.Rect{Percent: 90}))
	}
	rows = append(rows,
		row.New(28).Add(
			left,
			col.New(gridSize/2).Add(text.New(data.CoverTitle, st.title)),
		),
	)

	refs := []struct{ label, value string }{
		{"Devis n°", data.Number},
		{"Date", data.IssueDate},
		{"Valable jusqu'au", data.ValidUntil},
	}
	for _, r := range refs {
		if r.value == "" {
			continue
		}
		rows = append(rows, row.New(s.Spacing.RowHeight).Add(
			col.New(gridSize/2),
			col.New(gridSize/4).Add(text.New(r.label, aligned(st.muted, align.Right))),
			col.New(gridSize/4).Add(text.New(r.value, aligned(st.bold, align.Right))),
		))
	}

	rows = append(rows, gap(s.Spacing.CoverBlockGap))
	rows = append(rows, partyBlocks(st, "ÉMETTEUR", data.Company, "CLIENT", data.Client)...)

	if data.Property.Name != "" || len(data.Property.Lines) > 0 {
		rows = append(rows, gap(s.Spacing.CoverBlockGap))
		rows = append(rows, row.New(s.Spacing.HeaderHeight).Add(
			col.New(gridSize).Add(text.New("ADRESSE DES TRAVAUX", aligned(st.header, align.Left))).WithStyle(st.headerCell),
		))
		lines := data.Property.Lines
		if data.Property.Name != "" {
			lines = append([]string{data.Property.Name}, lines...)
		}
		for _, l := range lines {
			rows = append(rows, row.New(s.Spacing.RowHeight).Add(
				col.New(gridSize).Add(text.New(l, st.base)).WithStyle(st.blockCell),
			))
		}
	}

	if data.Title != "" {
		rows = append(rows, gap(s.Spacing.CoverBlockGap))
		rows = append(rows, row.New(s.Spacing.HeaderHeight).Add(
			col.New(4).Add(text.New("Objet", st.bold)),
			col.New(gridSize-4).Add(text.New(data.Title, st.base)),
		))
	}

	rows = append(rows, gap(s.Spacing.CoverBlockGap))
	rows = append(rows, row.New(s.Spacing.HeaderHeight+2).Add(
		col.New(gridSize/2).Add(text.New("Montant total TTC", aligned(st.emphasis, align.Left))).WithStyle(st.totalCell),
		col.New(gridSize/2).Add(text.New(FormatEUR(data.Totals.TotalTTC), st.emphasis)).WithStyle(st.totalCell),
	))

	return rows
}

// partyBlocks renders two address blocks side by side.
func partyBlocks(st pdfStyle, leftTitle string, l ExportParty, rightTitle string, r ExportParty) []core.Row {
	s := st.s
	rows := []core.Row{
		row.New(s.Spacing.HeaderHeight).Add(
			col.New(gridSize/2).Add(text.New(leftTitle, aligned(st.header, align.Left))).WithStyle(st.headerCell),
			col.New(gridSize/2).Add(text.New(rightTitle, aligned(st.header, align.Left))).WithStyle(st.headerCell),
		),
		row.New(s.Spacing.RowHeight).Add(
			col.New(gridSize/2).Add(text.New(l.Name, st.bold)).WithStyle(st.blockCell),
			col.New(gridSize/2).Add(text.New(r.Name, st.bold)).WithStyle(st.blockCell),
		),
	}

	n := max(len(l.Lines), len(r.Lines))
	for i := 0; i < n; i++ {
		var lv, rv string
		if i < len(l.Lines) {
			lv = l.Lines[i]
		}
		if i < len(r.Lines) {
			rv = r.Lines[i]
		}
		rows = append(rows, row.New(s.Spacing.RowHeight).Add(
			col.New(gridSize/2).Add(text.New(lv, st.small)).WithStyle(st.blockCell),
			col.New(gridSize/2).Add(text.New(rv, st.small)).WithStyle(st.blockCell),
		))
	}
	return rows
}

// detailColumn is one column of the details table.
type detailColumn struct {
	title string
	size  int
	align align.Type
	value func(ExportLine) string
}

// detailColumns returns the details table layout for the settings. The
// designation column takes whatever the optional columns leave.
func detailColumns(s model.PDFSettings) []detailColumn {
	cols := []detailColumn{
		{title: "N°", size: 2, align: align.Left, value: func(l ExportLine) string { return l.Index }},
		{title: "Désignation", align: align.Left, value: func(l ExportLine) string { return l.Label }},
		{title: "Qté", size: 2, align: align.Right, value: func(l ExportLine) string { return formatQty(l.Calc.Quantity) }},
		{title: "Unité", size: 2, align: align.Center, value: func(l ExportLine) string { return l.Unit }},
	}
	if model.On(s.Columns.LaborSupplySplit) {
		cols = append(cols,
			detailColumn{title: "Main d'œuvre", size: 3, align: align.Right, value: func(l ExportLine) string { return FormatEUR(l.Calc.UnitLabor) }},
			detailColumn{title: "Fourniture", size: 3, align: align.Right, value: func(l ExportLine) string { return FormatEUR(l.Calc.UnitSupply) }},
		)
	} else {
		cols = append(cols, detailColumn{title: "PU HT", size: 3, align: align.Right, value: func(l ExportLine) string { return FormatEUR(l.Calc.UnitPriceHT) }})
	}
	if model.On(s.Columns.VATColumn) {
		cols = append(cols, detailColumn{title: "TVA", size: 2, align: align.Center, value: func(l ExportLine) string { return FormatPercent(l.Calc.VATRate) }})
	}
	cols = append(cols, detailColumn{title: "Total HT", size: 3, align: align.Right, value: func(l ExportLine) string { return FormatEUR(l.Calc.TotalHT) }})

	used := 0
	for _, c := range cols {
		used += c.size
	}
	cols[1].size = gridSize - used
	return cols
}

// BuildDetailRows renders the itemised table: a header, then for every room
// a heading band, its work rows and an optional subtotal.
func BuildDetailRows(data *QuoteExportData, s model.PDFSettings) []core.Row {
	st := newPDFStyle(s)
	columns := detailColumns(s)

	rows := []core.Row{
		row.New(s.Spacing.HeaderHeight).Add(
			col.New(gridSize).Add(text.New("DÉTAIL DES TRAVAUX", st.heading)),
		),
	}

	header := row.New(s.Spacing.HeaderHeight)
	for _, c := range columns {
		header.Add(col.New(c.size).Add(text.New(c.title, aligned(st.header, c.align))).WithStyle(st.headerCell))
	}
	rows = append(rows, header)

	for _, section := range data.Sections {
		heading := section.Index + ". " + section.Name
		if section.Surfaces.Floor > 0 {
			heading += fmt.Sprintf(" (sol %s m², murs %s m²)",
				formatQty(decimal.NewFromFloat(section.Surfaces.Floor)), formatQty(decimal.NewFromFloat(section.Surfaces.Walls)))
		}
		rows = append(rows, row.New(s.Spacing.RoomHeadHeight).Add(
			col.New(gridSize).Add(text.New(heading, st.bold)).WithStyle(st.roomCell),
		))

		for i, line := range section.Lines {
			cell := st.plainCell
			if i%2 == 1 {
				cell = st.zebraCell
			}
			r := row.New(s.Spacing.RowHeight)
			for _, c := range columns {
				r.Add(col.New(c.size).Add(text.New(c.value(line), aligned(st.base, c.align))).WithStyle(cell))
			}
			rows = append(rows, r)

			if model.On(s.Columns.Descriptions) && line.Description != "" {
				rows = append(rows, row.New().Add(
					col.New(columns[0].size).WithStyle(cell),
					col.New(gridSize-columns[0].size).Add(text.New(line.Description, st.muted)).WithStyle(cell),
				))
			}
		}

		if len(section.Lines) == 0 {
			rows = append(rows, row.New(s.Spacing.RowHeight).Add(
				col.New(gridSize).Add(text.New("Aucun travail dans cette pièce.", st.muted)).WithStyle(st.plainCell),
			))
		}

		if model.On(s.Columns.RoomSubtotals) {
			rows = append(rows, row.New(s.Spacing.RowHeight).Add(
				col.New(gridSize-5).Add(text.New("Sous-total "+section.Name, aligned(st.bold, align.Right))).WithStyle(st.roomCell),
				col.New(5).Add(text.New(FormatEUR(section.Totals.TotalHT), aligned(st.bold, align.Right))).WithStyle(st.roomCell),
			))
		}
	}

	rows = append(rows, gap(s.Spacing.SectionGap))
	return rows
}

// BuildRecapRows renders the récapitulatif: one row per room, then the
// discount, VAT groups, totals, deposit and amount in words.
func BuildRecapRows(data *QuoteExportData, s model.PDFSettings) []core.Row {
	st := newPDFStyle(s)
	t := data.Totals

	rows := []core.Row{
		row.New(s.Spacing.HeaderHeight).Add(
			col.New(gridSize).Add(text.New("RÉCAPITULATIF", st.heading)),
		),
		row.New(s.Spacing.HeaderHeight).Add(
			col.New(12).Add(text.New("Pièce", aligned(st.header, align.Left))).WithStyle(st.headerCell),
			col.New(4).Add(text.New("Total HT", aligned(st.header, align.Right))).WithStyle(st.headerCell),
			col.New(4).Add(text.New("TVA", aligned(st.header, align.Right))).WithStyle(st.headerCell),
			col.New(4).Add(text.New("Total TTC", aligned(st.header, align.Right))).WithStyle(st.headerCell),
		),
	}

	for i, section := range data.Sections {
		cell := st.plainCell
		if i%2 == 1 {
			cell = st.zebraCell
		}
		rows = append(rows, row.New(s.Spacing.RowHeight).Add(
			col.New(12).Add(text.New(section.Index+". "+section.Name, st.base)).WithStyle(cell),
			col.New(4).Add(text.New(FormatEUR(section.Totals.TotalHT), aligned(st.base, align.Right))).WithStyle(cell),
			col.New(4).Add(text.New(FormatEUR(section.Totals.VATAmount), aligned(st.base, align.Right))).WithStyle(cell),
			col.New(4).Add(text.New(FormatEUR(section.Totals.TotalTTC), aligned(st.base, align.Right))).WithStyle(cell),
		))
	}

	rows = append(rows, gap(s.Spacing.SectionGap/2))

	summary := func(label, value string, style props.Text) core.Row {
		return row.New(s.Spacing.RowHeight).Add(
			col.New(12),
			col.New(7).Add(text.New(label, aligned(style, align.Left))).WithStyle(st.blockCell),
			col.New(5).Add(text.New(value, aligned(style, align.Right))).WithStyle(st.blockCell),
		)
	}

	if t.Discount.IsPositive() {
		rows = append(rows,
			summary("Total HT avant remise", FormatEUR(t.GrossHT), st.base),
			summary("Remise "+FormatPercent(t.DiscountPercent), "-"+FormatEUR(t.Discount), st.base),
		)
	}
	rows = append(rows, summary("Total HT", FormatEUR(t.TotalHT), st.bold))
	for _, g := range t.VATGroups {
		label := fmt.Sprintf("TVA %s sur %s", FormatPercent(g.Rate), FormatEUR(g.BaseHT))
		rows = append(rows, summary(label, FormatEUR(g.VAT), st.base))
	}
	rows = append(rows, summary("Total TVA", FormatEUR(t.TotalVAT), st.bold))
	rows = append(rows, row.New(s.Spacing.HeaderHeight).Add(
		col.New(12),
		col.New(7).Add(text.New("Total TTC", aligned(st.emphasis, align.Left))).WithStyle(st.totalCell),
		col.New(5).Add(text.New(FormatEUR(t.TotalTTC), st.emphasis)).WithStyle(st.totalCell),
	))
	if t.Deposit.IsPositive() {
		rows = append(rows,
			summary("Acompte "+FormatPercent(t.DepositPercent), FormatEUR(t.Deposit), st.base),
			summary("Solde à régler", FormatEUR(t.Balance), st.bold),
		)
	}

	if data.AmountInWords != "" {
		rows = append(rows, gap(2), row.New().Add(
			col.New(gridSize).Add(text.New(data.AmountInWords, st.muted)),
		))
	}

	rows = append(rows, gap(s.Spacing.SectionGap))
	return rows
}

// BuildTermsRows renders the commercial terms of the quote.
func BuildTermsRows(data *QuoteExportData, s model.PDFSettings) []core.Row {
	st := newPDFStyle(s)
	terms := data.Terms

	entries := []struct{ label, value string }{
		{"Validité", terms.Validity},
		{"Acompte", terms.Deposit},
		{"Règlement", terms.PaymentTerms},
		{"Démarrage", terms.StartDate},
		{"Durée", terms.Duration},
		{"Coordonnées bancaires", terms.BankDetails},
		{"Assurance", terms.Insurance},
		{"Remarques", terms.Notes},
	}

	rows := []core.Row{
		row.New(s.Spacing.HeaderHeight).Add(
			col.New(gridSize).Add(text.New("CONDITIONS", st.heading)),
		),
	}
	for _, e := range entries {
		if e.value == "" {
			continue
		}
		rows = append(rows, row.New().Add(
			col.New(6).Add(text.New(e.label, st.bold)),
			col.New(gridSize-6).Add(text.New(e.value, st.small)),
		))
	}

	rows = append(rows, gap(s.Spacing.SectionGap))
	return rows
}

// BuildSignatureRows renders the two signature boxes.
func BuildSignatureRows(data *QuoteExportData, s model.PDFSettings) []core.Row {
	st := newPDFStyle(s)
	sig := data.Signature
	box := st.cell("", true)

	return []core.Row{
		row.New(s.Spacing.RowHeight).Add(
			col.New(gridSize/2).Add(text.New(sig.CompanyLabel, st.bold)),
			col.New(gridSize/2).Add(text.New(sig.ClientLabel, st.bold)),
		),
		row.New(s.Spacing.RowHeight).Add(
			col.New(gridSize/2).Add(text.New(data.Company.Name, st.small)),
			col.New(gridSize/2).Add(text.New(sig.Acceptance, st.muted)),
		),
		row.New(s.Spacing.SignatureHeight).Add(
			col.New(gridSize/2-1).WithStyle(box),
			col.New(2),
			col.New(gridSize/2-1).WithStyle(box),
		),
	}
}

// BuildFooterRows renders the footer repeated on every page.
func BuildFooterRows(data *QuoteExportData, s model.PDFSettings) []core.Row {
	if data.Footer == "" {
		return nil
	}
	st := newPDFStyle(s)
	footer := joinNonEmpty(" | ", data.Company.Name, data.Footer)
	return []core.Row{
		row.New(5).Add(col.New(gridSize).Add(text.New(footer, aligned(st.muted, align.Center)))),
	}
}

func imageExtension(b []byte) (extension.Type, bool) {
	switch http.DetectContentType(b) {
	case "image/png":
		return extension.Png, true
	case "image/jpeg":
		return extension.Jpg, true
	}
	return "", false
}
