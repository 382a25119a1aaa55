package ocr

import (
	"regexp"
	"sort"
	"strings"

	"fax-order/pkg/models"
)

// Semantic header fields, in matching priority order.
const (
	FieldProduct        = "product"
	FieldQuantity       = "quantity"
	FieldUnitPrice      = "unit_price"
	FieldAmount         = "amount"
	FieldProductCode    = "product_code"
	FieldUnit           = "unit"
	FieldUnitNumber     = "unit_number"
	FieldDeliveryNumber = "delivery_number"
)

var headerFields = []string{
	FieldProduct,
	FieldQuantity,
	FieldUnitPrice,
	FieldAmount,
	FieldProductCode,
	FieldUnit,
	FieldUnitNumber,
	FieldDeliveryNumber,
}

// headerAliases lists the column labels seen on Japanese purchase-order
// faxes for each semantic field. Matching is by containment, both raw and
// whitespace-stripped/lowercased.
var headerAliases = map[string][]string{
	FieldProduct:        {"品名", "品番", "商品名", "品目", "製品名", "品名/品目", "商品/品目"},
	FieldQuantity:       {"数量", "数", "数量(箱)", "数量(本)", "数量(個)", "数量/箱", "数量/本"},
	FieldUnitPrice:      {"単価", "価格", "単価(円)", "単価(¥)"},
	FieldAmount:         {"金額", "合計", "金額(円)", "金額(税込)"},
	FieldProductCode:    {"品番", "型式", "型番", "商品コード", "アイテムコード", "品番/規格"},
	FieldUnit:           {"単位", "単位/梱", "単位(箱)", "単位(本)", "単位(個)"},
	FieldUnitNumber:     {"ユニットNo", "ユニットNO", "ユニットNo.", "ユニット番号", "Unit No"},
	FieldDeliveryNumber: {"納品番号", "納品No", "納品NO", "伝票No", "伝票番号", "伝票No."},
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func normalizeHeader(text string) string {
	return strings.ToLower(whitespaceRe.ReplaceAllString(text, ""))
}

// ExtractTables reconstructs logical tables from the raw block graph. Cells
// are bucketed by their 1-based row/column indices under their owning TABLE
// block; cell text is the space-joined text of child WORD blocks, with a
// selected SELECTION_ELEMENT rendered as the literal marker [X]. Tables
// with no cells are dropped.
func ExtractTables(blocks []models.Block) []models.Table {
	byID := make(map[string]models.Block, len(blocks))
	for _, b := range blocks {
		byID[b.ID] = b
	}

	var tables []models.Table
	for _, b := range blocks {
		if b.Kind != models.BlockTable {
			continue
		}
		rows := make(map[int]map[int]string)
		maxCol := 0
		for _, cellID := range b.ChildIDs {
			cell, ok := byID[cellID]
			if !ok || cell.Kind != models.BlockCell {
				continue
			}
			if cell.ColumnIndex > maxCol {
				maxCol = cell.ColumnIndex
			}
			if rows[cell.RowIndex] == nil {
				rows[cell.RowIndex] = make(map[int]string)
			}
			rows[cell.RowIndex][cell.ColumnIndex] = collectCellText(byID, cell)
		}
		if len(rows) == 0 || maxCol == 0 {
			continue
		}

		rowIndices := make([]int, 0, len(rows))
		for idx := range rows {
			rowIndices = append(rowIndices, idx)
		}
		sort.Ints(rowIndices)

		table := make(models.Table, 0, len(rowIndices))
		for _, rowIdx := range rowIndices {
			row := make([]string, maxCol)
			for colIdx, text := range rows[rowIdx] {
				if colIdx >= 1 && colIdx <= maxCol {
					row[colIdx-1] = text
				}
			}
			table = append(table, row)
		}
		tables = append(tables, table)
	}
	return tables
}

func collectCellText(byID map[string]models.Block, cell models.Block) string {
	var words []string
	for _, childID := range cell.ChildIDs {
		child, ok := byID[childID]
		if !ok {
			continue
		}
		switch child.Kind {
		case models.BlockWord:
			words = append(words, child.Text)
		case models.BlockSelection:
			if child.Selected {
				words = append(words, "[X]")
			}
		}
	}
	return strings.TrimSpace(strings.Join(words, " "))
}

// FindHeaderRow locates the most likely header row of a table and maps its
// columns to semantic fields. Rows are scanned top-down; the row with the
// most mapped fields so far wins, and the scan stops at the first row that
// maps at least two fields to bound work on long documents. The table is
// never mutated.
func FindHeaderRow(table models.Table) (int, map[string]int) {
	bestRow := 0
	bestMapping := map[string]int{}
	for rowIdx, row := range table {
		mapping := map[string]int{}
		for colIdx, cell := range row {
			normalized := normalizeHeader(cell)
			for _, field := range headerFields {
				if _, done := mapping[field]; done {
					continue
				}
				for _, alias := range headerAliases[field] {
					if strings.Contains(cell, alias) || strings.Contains(normalized, normalizeHeader(alias)) {
						mapping[field] = colIdx
						break
					}
				}
			}
		}
		if len(mapping) > len(bestMapping) {
			bestMapping = mapping
			bestRow = rowIdx
		}
		if len(mapping) >= 2 {
			break
		}
	}
	return bestRow, bestMapping
}
