package model

// PDFSettings are the user-configurable style, spacing and border options of
// the generated quote. Zero values mean "not set"; toggles are pointers so an
// explicit false survives a merge over defaults.
type PDFSettings struct {
	Page       PageSettings       `json:"page"`
	Typography TypographySettings `json:"typography"`
	Colors     ColorSettings      `json:"colors"`
	Spacing    SpacingSettings    `json:"spacing"`
	Borders    BorderSettings     `json:"borders"`
	Sections   SectionSettings    `json:"sections"`
	Columns    ColumnSettings     `json:"columns"`
	Texts      TextSettings       `json:"texts"`
}

// PageSettings controls the page geometry in millimetres.
type PageSettings struct {
	Orientation  string  `json:"orientation,omitempty"` // "portrait" or "landscape"
	MarginLeft   float64 `json:"margin_left,omitempty"`
	MarginTop    float64 `json:"margin_top,omitempty"`
	MarginRight  float64 `json:"margin_right,omitempty"`
	MarginBottom float64 `json:"margin_bottom,omitempty"`
}

// TypographySettings controls font family and sizes in points.
type TypographySettings struct {
	FontFamily  string  `json:"font_family,omitempty"`
	BaseSize    float64 `json:"base_size,omitempty"`
	SmallSize   float64 `json:"small_size,omitempty"`
	HeadingSize float64 `json:"heading_size,omitempty"`
	TitleSize   float64 `json:"title_size,omitempty"`
}

// ColorSettings are "#RRGGBB" strings.
type ColorSettings struct {
	Primary     string `json:"primary,omitempty"`
	PrimaryText string `json:"primary_text,omitempty"`
	Heading     string `json:"heading,omitempty"`
	RoomBand    string `json:"room_band,omitempty"`
	Zebra       string `json:"zebra,omitempty"`
	Muted       string `json:"muted,omitempty"`
	Border      string `json:"border,omitempty"`
}

// SpacingSettings are row heights and gaps in millimetres.
type SpacingSettings struct {
	RowHeight       float64 `json:"row_height,omitempty"`
	HeaderHeight    float64 `json:"header_height,omitempty"`
	RoomHeadHeight  float64 `json:"room_head_height,omitempty"`
	SectionGap      float64 `json:"section_gap,omitempty"`
	CoverBlockGap   float64 `json:"cover_block_gap,omitempty"`
	SignatureHeight float64 `json:"signature_height,omitempty"`
}

// BorderSettings controls table and block borders.
type BorderSettings struct {
	Table     *bool   `json:"table,omitempty"`
	Blocks    *bool   `json:"blocks,omitempty"`
	Thickness float64 `json:"thickness,omitempty"`
}

// SectionSettings switches whole document sections on or off.
type SectionSettings struct {
	Cover       *bool `json:"cover,omitempty"`
	Details     *bool `json:"details,omitempty"`
	Recap       *bool `json:"recap,omitempty"`
	Terms       *bool `json:"terms,omitempty"`
	Signature   *bool `json:"signature,omitempty"`
	PageNumbers *bool `json:"page_numbers,omitempty"`
}

// ColumnSettings switches optional columns and rows of the details table.
type ColumnSettings struct {
	LaborSupplySplit *bool `json:"labor_supply_split,omitempty"`
	VATColumn        *bool `json:"vat_column,omitempty"`
	RoomSubtotals    *bool `json:"room_subtotals,omitempty"`
	Descriptions     *bool `json:"descriptions,omitempty"`
	AmountInWords    *bool `json:"amount_in_words,omitempty"`
}

// TextSettings are fixed labels printed on the document.
type TextSettings struct {
	CoverTitle       string `json:"cover_title,omitempty"`
	Footer           string `json:"footer,omitempty"`
	SignatureClient  string `json:"signature_client,omitempty"`
	SignatureCompany string `json:"signature_company,omitempty"`
	Acceptance       string `json:"acceptance,omitempty"`
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}

// On reports whether a toggle is set to true.
func On(b *bool) bool {
	return b != nil && *b
}
