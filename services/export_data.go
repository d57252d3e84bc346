package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"devis/model"
)

// ExportParty is a name with its address and contact lines.
type ExportParty struct {
	Name  string
	Lines []string
}

// ExportLine is a single work row in the details table.
type ExportLine struct {
	Index       string // "1.1", "1.2", ...
	Label       string
	Description string
	Unit        string
	Calc        WorkLine
}

// ExportRoomSection is a room heading followed by its work rows.
type ExportRoomSection struct {
	Index    string // "1", "2", ...
	Name     string
	Surfaces RoomSurfaces
	Notes    string
	Lines    []ExportLine
	Totals   RoomTotals
}

// ExportTerms holds the commercial terms printed after the recap.
type ExportTerms struct {
	PaymentTerms string
	Validity     string
	Deposit      string
	StartDate    string
	Duration     string
	Notes        string
	Insurance    string
	BankDetails  string
}

// ExportSignature holds the labels of the signature boxes.
type ExportSignature struct {
	ClientLabel  string
	CompanyLabel string
	Acceptance   string
}

// QuoteExportData holds all data needed to render a quote.
type QuoteExportData struct {
	CoverTitle string
	Title      string
	Number     string
	IssueDate  string
	ValidUntil string
	Status     string

	Company  ExportParty
	Logo     []byte
	Client   ExportParty
	Property ExportParty

	Sections []ExportRoomSection
	Totals   QuoteTotals

	AmountInWords string
	Terms         ExportTerms
	Signature     ExportSignature
	Footer        string

	// Appendix is an optional PDF (general terms of sale) appended as is.
	Appendix []byte
}

// BuildQuoteExportData assembles the document model of a quote. It performs
// no I/O; settings must already be merged over the defaults.
func BuildQuoteExportData(s model.State, settings model.PDFSettings) *QuoteExportData {
	totals := CalcStateTotals(s)
	md := s.Metadata

	data := &QuoteExportData{
		CoverTitle: settings.Texts.CoverTitle,
		Title:      md.Title,
		Number:     md.Number,
		IssueDate:  FormatDateFR(md.IssueDate),
		ValidUntil: FormatDateFR(md.ValidUntil()),
		Status:     md.Status,

		Company:  companyParty(s.Company),
		Logo:     s.Company.Logo,
		Client:   clientParty(s.Client),
		Property: propertyParty(s.Property),

		Totals: totals,
		Footer: settings.Texts.Footer,

		Signature: ExportSignature{
			ClientLabel:  settings.Texts.SignatureClient,
			CompanyLabel: settings.Texts.SignatureCompany,
			Acceptance:   settings.Texts.Acceptance,
		},
	}
	if data.CoverTitle == "" {
		data.CoverTitle = "DEVIS"
	}
	if data.Number == "" {
		data.Number = "brouillon"
	}

	for i, room := range s.Rooms {
		section := ExportRoomSection{
			Index:    strconv.Itoa(i + 1),
			Name:     room.Name,
			Surfaces: CalcRoomSurfaces(room),
			Notes:    room.Notes,
			Totals:   totals.Rooms[i],
		}
		for j, w := range room.Works {
			section.Lines = append(section.Lines, ExportLine{
				Index:       fmt.Sprintf("%d.%d", i+1, j+1),
				Label:       w.Label,
				Description: w.Description,
				Unit:        w.Unit,
				Calc:        totals.Rooms[i].Lines[j],
			})
		}
		data.Sections = append(data.Sections, section)
	}

	if model.On(settings.Columns.AmountInWords) {
		data.AmountInWords = "Arrêté le présent devis à la somme de " + AmountToWordsFR(totals.TotalTTC) + " TTC."
	}

	data.Terms = buildTerms(s, totals)
	return data
}

func buildTerms(s model.State, totals QuoteTotals) ExportTerms {
	md := s.Metadata
	terms := ExportTerms{
		PaymentTerms: md.PaymentTerms,
		Notes:        md.Notes,
		Insurance:    s.Company.Insurance,
	}
	if md.ValidityDays > 0 {
		terms.Validity = fmt.Sprintf("Devis valable %d jours, jusqu'au %s.", md.ValidityDays, FormatDateFR(md.ValidUntil()))
	}
	if totals.Deposit.IsPositive() {
		terms.Deposit = fmt.Sprintf("Acompte de %s à la signature, soit %s. Solde de %s à la fin des travaux.",
			FormatPercent(totals.DepositPercent), FormatEUR(totals.Deposit), FormatEUR(totals.Balance))
	}
	if !md.StartDate.IsZero() {
		terms.StartDate = "Début des travaux prévu le " + FormatDateFR(md.StartDate) + "."
	}
	if md.DurationWeeks > 0 {
		unit := "semaines"
		if md.DurationWeeks == 1 {
			unit = "semaine"
		}
		terms.Duration = fmt.Sprintf("Durée estimée : %d %s.", md.DurationWeeks, unit)
	}
	if s.Company.IBAN != "" {
		terms.BankDetails = joinNonEmpty(" | ", "IBAN "+s.Company.IBAN, prefixed("BIC ", s.Company.BIC))
	}
	return terms
}

func companyParty(c model.Company) ExportParty {
	lines := append([]string{}, c.AddressLines()...)
	lines = appendNonEmpty(lines,
		joinNonEmpty(" | ", prefixed("Tél. ", c.Phone), c.Email),
		c.Website,
		joinNonEmpty(" | ", joinNonEmpty(" ", c.LegalForm), prefixed("SIRET ", c.Siret)),
		prefixed("TVA intracom. ", c.VATNumber),
	)
	return ExportParty{Name: c.Name, Lines: lines}
}

func clientParty(c model.Client) ExportParty {
	lines := append([]string{}, c.AddressLines()...)
	lines = appendNonEmpty(lines, prefixed("Tél. ", c.Phone), c.Email)
	return ExportParty{Name: c.DisplayName(), Lines: lines}
}

func propertyParty(p model.Property) ExportParty {
	var kind string
	switch p.Kind {
	case model.PropertyApartment:
		kind = "Appartement"
	case model.PropertyHouse:
		kind = "Maison"
	case model.PropertyCommercial:
		kind = "Local professionnel"
	}
	lines := append([]string{}, p.AddressLines()...)
	var details []string
	if p.Floor != "" {
		details = append(details, "Étage "+p.Floor)
	}
	if p.Surface > 0 {
		details = append(details, formatQty(decimal.NewFromFloat(p.Surface))+" m²")
	}
	if p.ConstructionYear > 0 {
		details = append(details, "construit en "+strconv.Itoa(p.ConstructionYear))
	}
	lines = appendNonEmpty(lines, strings.Join(details, ", "))
	if p.Residential() && p.OlderThanTwoYears {
		lines = append(lines, "Logement achevé depuis plus de deux ans")
	}
	return ExportParty{Name: kind, Lines: lines}
}

// joinNonEmpty joins the non-empty parts with sep.
func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

func appendNonEmpty(lines []string, values ...string) []string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			lines = append(lines, v)
		}
	}
	return lines
}

// prefixed returns prefix+value, or "" when value is empty.
func prefixed(prefix, value string) string {
	if value == "" {
		return ""
	}
	return prefix + value
}
