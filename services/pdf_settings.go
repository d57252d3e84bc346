package services

import (
	"fmt"
	"strconv"
	"strings"

	"dario.cat/mergo"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"devis/model"
)

// DefaultPDFSettings returns the built-in look of a quote: A4 portrait,
// dark blue header bands, zebra rows and every section switched on.
func DefaultPDFSettings() model.PDFSettings {
	return model.PDFSettings{
		Page: model.PageSettings{
			Orientation:  "portrait",
			MarginLeft:   12,
			MarginTop:    12,
			MarginRight:  12,
			MarginBottom: 15,
		},
		Typography: model.TypographySettings{
			FontFamily:  "helvetica",
			BaseSize:    8,
			SmallSize:   7,
			HeadingSize: 10,
			TitleSize:   22,
		},
		Colors: model.ColorSettings{
			Primary:     "#1F3A5F",
			PrimaryText: "#FFFFFF",
			Heading:     "#1F3A5F",
			RoomBand:    "#E3EAF3",
			Zebra:       "#F6F7F9",
			Muted:       "#6B7280",
			Border:      "#C8CDD3",
		},
		Spacing: model.SpacingSettings{
			RowHeight:       6,
			HeaderHeight:    8,
			RoomHeadHeight:  7,
			SectionGap:      6,
			CoverBlockGap:   10,
			SignatureHeight: 30,
		},
		Borders: model.BorderSettings{
			Table:     model.Bool(true),
			Blocks:    model.Bool(true),
			Thickness: 0.2,
		},
		Sections: model.SectionSettings{
			Cover:       model.Bool(true),
			Details:     model.Bool(true),
			Recap:       model.Bool(true),
			Terms:       model.Bool(true),
			Signature:   model.Bool(true),
			PageNumbers: model.Bool(true),
		},
		Columns: model.ColumnSettings{
			LaborSupplySplit: model.Bool(false),
			VATColumn:        model.Bool(true),
			RoomSubtotals:    model.Bool(true),
			Descriptions:     model.Bool(true),
			AmountInWords:    model.Bool(true),
		},
		Texts: model.TextSettings{
			CoverTitle:       "DEVIS",
			Footer:           "Devis gratuit. Prix exprimés en euros.",
			SignatureClient:  "Le client",
			SignatureCompany: "L'entreprise",
			Acceptance:       "Date, signature et mention manuscrite « Bon pour accord »",
		},
	}
}

// MergePDFSettings layers overrides on top of base, left to right. Only the
// values an override sets replace earlier ones; toggles are pointers, so an
// explicit false wins over a default true. The result is validated.
func MergePDFSettings(base model.PDFSettings, overrides ...model.PDFSettings) (model.PDFSettings, error) {
	merged := base
	for i, o := range overrides {
		if err := mergo.Merge(&merged, o, mergo.WithOverride, mergo.WithoutDereference); err != nil {
			return base, fmt.Errorf("merge pdf settings #%d: %w", i, err)
		}
	}
	if err := ValidatePDFSettings(merged); err != nil {
		return base, err
	}
	return merged, nil
}

// ResolvePDFSettings merges the company and quote overrides over the defaults.
func ResolvePDFSettings(overrides ...model.PDFSettings) (model.PDFSettings, error) {
	return MergePDFSettings(DefaultPDFSettings(), overrides...)
}

var positive = []validation.Rule{validation.Required, validation.Min(0.1)}

var hexColor = validation.By(func(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	if _, err := parseHexColor(s); err != nil {
		return err
	}
	return nil
})

// ValidatePDFSettings checks that merged settings can be rendered: margins
// are non-negative, sizes and row heights strictly positive.
func ValidatePDFSettings(s model.PDFSettings) error {
	return validation.Errors{
		"page": validation.ValidateStruct(&s.Page,
			validation.Field(&s.Page.Orientation, validation.In("portrait", "landscape")),
			validation.Field(&s.Page.MarginLeft, validation.Min(0.0)),
			validation.Field(&s.Page.MarginTop, validation.Min(0.0)),
			validation.Field(&s.Page.MarginRight, validation.Min(0.0)),
			validation.Field(&s.Page.MarginBottom, validation.Min(0.0)),
		),
		"typography": validation.ValidateStruct(&s.Typography,
			validation.Field(&s.Typography.FontFamily, is.Alphanumeric),
			validation.Field(&s.Typography.BaseSize, positive...),
			validation.Field(&s.Typography.SmallSize, positive...),
			validation.Field(&s.Typography.HeadingSize, positive...),
			validation.Field(&s.Typography.TitleSize, positive...),
		),
		"colors": validation.ValidateStruct(&s.Colors,
			validation.Field(&s.Colors.Primary, hexColor),
			validation.Field(&s.Colors.PrimaryText, hexColor),
			validation.Field(&s.Colors.Heading, hexColor),
			validation.Field(&s.Colors.RoomBand, hexColor),
			validation.Field(&s.Colors.Zebra, hexColor),
			validation.Field(&s.Colors.Muted, hexColor),
			validation.Field(&s.Colors.Border, hexColor),
		),
		"spacing": validation.ValidateStruct(&s.Spacing,
			validation.Field(&s.Spacing.RowHeight, positive...),
			validation.Field(&s.Spacing.HeaderHeight, positive...),
			validation.Field(&s.Spacing.RoomHeadHeight, positive...),
			validation.Field(&s.Spacing.SectionGap, validation.Min(0.0)),
			validation.Field(&s.Spacing.CoverBlockGap, validation.Min(0.0)),
			validation.Field(&s.Spacing.SignatureHeight, positive...),
		),
		"borders": validation.ValidateStruct(&s.Borders,
			validation.Field(&s.Borders.Thickness, validation.Min(0.0), validation.Max(3.0)),
		),
	}.Filter()
}

// parseHexColor turns "#RRGGBB" or "#RGB" into a maroto color.
func parseHexColor(s string) (*props.Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return nil, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid color %q", s)
	}
	return &props.Color{
		Red:   int(v >> 16 & 0xFF),
		Green: int(v >> 8 & 0xFF),
		Blue:  int(v & 0xFF),
	}, nil
}

// pdfColor is parseHexColor for already validated settings; an empty or
// broken value yields nil, which maroto renders as black or transparent.
func pdfColor(s string) *props.Color {
	c, err := parseHexColor(s)
	if err != nil {
		return nil
	}
	return c
}
