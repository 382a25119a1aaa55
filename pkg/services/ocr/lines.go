package ocr

import (
	"regexp"
	"strconv"
	"strings"

	"fax-order/pkg/models"
)

var (
	nonNumericRe  = regexp.MustCompile(`[^\d.\-]`)
	trailingQtyRe = regexp.MustCompile(`(\d+)\s*(本|箱|個|pcs|pc)?$`)
)

// metadataPatterns match Japanese document-identifier labels followed by an
// optional (possibly full-width) colon and an alphanumeric token. The
// character classes are deliberately locale-specific; do not widen them.
var metadataPatterns = []struct {
	key     string
	pattern *regexp.Regexp
}{
	{"order_number", regexp.MustCompile(`(注文番号|注文No|注文NO|受注番号)\s*[:：]?\s*([A-Za-z0-9\-]+)`)},
	{"delivery_number", regexp.MustCompile(`(納品番号|納品No|伝票No|伝票番号)\s*[:：]?\s*([A-Za-z0-9\-]+)`)},
	{"invoice_number", regexp.MustCompile(`(請求番号|請求No|請求NO)\s*[:：]?\s*([A-Za-z0-9\-]+)`)},
}

// parseNumber extracts a numeric value from noisy cell text by stripping
// everything but digits, dots and minus signs. 0 when nothing parseable
// remains.
func parseNumber(value string) float64 {
	if value == "" {
		return 0
	}
	cleaned := nonNumericRe.ReplaceAllString(value, "")
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return n
}

// LinesFromTables builds extracted lines from every usable table. A table
// is usable when its header row maps a product column; rows with an empty
// product cell are skipped. Quantity defaults to 1 when blank or
// unparseable, prices default to 0, and line total prefers an explicit
// amount over quantity times unit price.
func LinesFromTables(tables []models.Table) []models.ExtractedLine {
	var extracted []models.ExtractedLine
	for _, table := range tables {
		headerRow, mapping := FindHeaderRow(table)
		productCol, ok := mapping[FieldProduct]
		if !ok {
			continue
		}
		for _, row := range table[headerRow+1:] {
			productText := strings.TrimSpace(cellAt(row, productCol))
			if productText == "" {
				continue
			}
			line := models.ExtractedLine{
				ExtractedText: productText,
				Quantity:      1,
			}
			if col, ok := mapping[FieldQuantity]; ok {
				if qty := int(parseNumber(cellAt(row, col))); qty > 0 {
					line.Quantity = qty
				}
			}
			if col, ok := mapping[FieldUnitPrice]; ok {
				line.UnitPrice = parseNumber(cellAt(row, col))
			}
			amount := 0.0
			if col, ok := mapping[FieldAmount]; ok {
				amount = parseNumber(cellAt(row, col))
			}
			if amount != 0 {
				line.LineTotal = amount
			} else {
				line.LineTotal = line.UnitPrice * float64(line.Quantity)
			}
			if col, ok := mapping[FieldProductCode]; ok {
				line.ProductCode = strings.TrimSpace(cellAt(row, col))
			}
			if col, ok := mapping[FieldUnit]; ok {
				line.Unit = strings.TrimSpace(cellAt(row, col))
			}
			if col, ok := mapping[FieldUnitNumber]; ok {
				line.UnitNumber = strings.TrimSpace(cellAt(row, col))
			}
			if col, ok := mapping[FieldDeliveryNumber]; ok {
				line.DeliveryNumber = strings.TrimSpace(cellAt(row, col))
			}
			extracted = append(extracted, line)
		}
	}
	return extracted
}

func cellAt(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// LinesFromBlocks is the structure-free fallback: every non-empty LINE
// block becomes a line, with a trailing quantity token (digits plus an
// optional unit word) parsed off the end when present.
func LinesFromBlocks(blocks []models.Block) []models.ExtractedLine {
	var lines []models.ExtractedLine
	for _, b := range blocks {
		if b.Kind != models.BlockLine {
			continue
		}
		text := strings.TrimSpace(b.Text)
		if text == "" {
			continue
		}
		quantity := 1
		if m := trailingQtyRe.FindStringSubmatch(text); m != nil {
			if qty, err := strconv.Atoi(m[1]); err == nil && qty > 0 {
				quantity = qty
			}
		}
		lines = append(lines, models.ExtractedLine{
			ExtractedText: text,
			Quantity:      quantity,
		})
	}
	return lines
}

// ExtractMetadata scans LINE block texts for document-level identifiers.
// The first match per key wins and is never overwritten.
func ExtractMetadata(blocks []models.Block) models.ExtractionMetadata {
	var meta models.ExtractionMetadata
	for _, b := range blocks {
		if b.Kind != models.BlockLine {
			continue
		}
		for _, p := range metadataPatterns {
			if metadataValue(&meta, p.key) != "" {
				continue
			}
			if m := p.pattern.FindStringSubmatch(b.Text); m != nil {
				setMetadataValue(&meta, p.key, m[2])
			}
		}
	}
	return meta
}

func metadataValue(meta *models.ExtractionMetadata, key string) string {
	switch key {
	case "order_number":
		return meta.OrderNumber
	case "delivery_number":
		return meta.DeliveryNumber
	case "invoice_number":
		return meta.InvoiceNumber
	}
	return ""
}

func setMetadataValue(meta *models.ExtractionMetadata, key, value string) {
	switch key {
	case "order_number":
		meta.OrderNumber = value
	case "delivery_number":
		meta.DeliveryNumber = value
	case "invoice_number":
		meta.InvoiceNumber = value
	}
}

// RawText joins the text of all LINE blocks, one line each
func RawText(blocks []models.Block) string {
	var lines []string
	for _, b := range blocks {
		if b.Kind != models.BlockLine {
			continue
		}
		if text := strings.TrimSpace(b.Text); text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n")
}
