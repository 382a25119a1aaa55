package models

// BlockKind identifies the type of an OCR block
type BlockKind string

const (
	BlockLine      BlockKind = "LINE"
	BlockWord      BlockKind = "WORD"
	BlockTable     BlockKind = "TABLE"
	BlockCell      BlockKind = "CELL"
	BlockSelection BlockKind = "SELECTION_ELEMENT"
)

// Block is one OCR primitive as returned by the document-analysis provider.
// LINE and WORD blocks carry text; CELL blocks carry 1-based row/column
// indices; SELECTION_ELEMENT blocks carry a selection state. ChildIDs are
// ordered references to other blocks in the same result set.
type Block struct {
	ID          string
	Kind        BlockKind
	Text        string
	RowIndex    int
	ColumnIndex int
	Selected    bool
	ChildIDs    []string
}

// Table is an ordered sequence of rows of cell text. Every row has the same
// width, the maximum column index observed in the source table; positions
// with no cell hold an empty string.
type Table [][]string

// ExtractedLine is one candidate order line before catalog resolution
type ExtractedLine struct {
	ExtractedText  string
	Quantity       int
	UnitPrice      float64
	LineTotal      float64
	ProductCode    string
	Unit           string
	UnitNumber     string
	DeliveryNumber string
}

// ExtractionMetadata holds document-level identifiers scraped from raw
// OCR lines; each field is empty when no label matched
type ExtractionMetadata struct {
	OrderNumber    string
	DeliveryNumber string
	InvoiceNumber  string
}

// Line resolution statuses
const (
	StatusMatched     = "matched"
	StatusNeedsReview = "needs-review"
)

// ResolvedOrderLine is an ExtractedLine after catalog matching and price
// resolution. ProductID is nil when no catalog product matched, in which
// case NormalizedName keeps the extracted text unchanged.
type ResolvedOrderLine struct {
	ExtractedText  string
	NormalizedName string
	ProductID      *uint
	Quantity       int
	UnitPrice      float64
	LineTotal      float64
	ProductCode    string
	Unit           string
	UnitNumber     string
	DeliveryNumber string
	Status         string
}
