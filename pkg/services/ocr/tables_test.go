package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fax-order/pkg/models"
)

// tableBlocks builds the block graph for a single table whose cell texts
// are given row by row. Each cell gets one child WORD block.
func tableBlocks(rows [][]string) []models.Block {
	blocks := []models.Block{}
	table := models.Block{ID: "table-1", Kind: models.BlockTable}
	for r, row := range rows {
		for c, text := range row {
			cellID := cellKey(r, c)
			wordID := cellID + "-w"
			cell := models.Block{
				ID:          cellID,
				Kind:        models.BlockCell,
				RowIndex:    r + 1,
				ColumnIndex: c + 1,
			}
			if text != "" {
				cell.ChildIDs = []string{wordID}
				blocks = append(blocks, models.Block{ID: wordID, Kind: models.BlockWord, Text: text})
			}
			table.ChildIDs = append(table.ChildIDs, cellID)
			blocks = append(blocks, cell)
		}
	}
	return append(blocks, table)
}

func cellKey(r, c int) string {
	return "cell-" + string(rune('a'+r)) + string(rune('0'+c))
}

func TestExtractTables(t *testing.T) {
	blocks := tableBlocks([][]string{
		{"品名", "数量", "単価"},
		{"M3x8 Screw", "150", "16.5"},
	})
	tables := ExtractTables(blocks)
	require.Len(t, tables, 1)
	require.Len(t, tables[0], 2)
	assert.Equal(t, []string{"品名", "数量", "単価"}, tables[0][0])
	assert.Equal(t, []string{"M3x8 Screw", "150", "16.5"}, tables[0][1])
}

func TestExtractTablesJoinsWordsAndSelectionMarks(t *testing.T) {
	blocks := []models.Block{
		{ID: "t", Kind: models.BlockTable, ChildIDs: []string{"c"}},
		{ID: "c", Kind: models.BlockCell, RowIndex: 1, ColumnIndex: 1, ChildIDs: []string{"w1", "w2", "sel", "off"}},
		{ID: "w1", Kind: models.BlockWord, Text: "M5"},
		{ID: "w2", Kind: models.BlockWord, Text: "Bolt"},
		{ID: "sel", Kind: models.BlockSelection, Selected: true},
		{ID: "off", Kind: models.BlockSelection, Selected: false},
	}
	tables := ExtractTables(blocks)
	require.Len(t, tables, 1)
	assert.Equal(t, "M5 Bolt [X]", tables[0][0][0])
}

func TestExtractTablesPadsMissingCells(t *testing.T) {
	// second row only has a cell in column 3
	blocks := []models.Block{
		{ID: "t", Kind: models.BlockTable, ChildIDs: []string{"a", "b"}},
		{ID: "a", Kind: models.BlockCell, RowIndex: 1, ColumnIndex: 1, ChildIDs: []string{"w1"}},
		{ID: "b", Kind: models.BlockCell, RowIndex: 2, ColumnIndex: 3, ChildIDs: []string{"w2"}},
		{ID: "w1", Kind: models.BlockWord, Text: "x"},
		{ID: "w2", Kind: models.BlockWord, Text: "y"},
	}
	tables := ExtractTables(blocks)
	require.Len(t, tables, 1)
	assert.Equal(t, []string{"x", "", ""}, tables[0][0])
	assert.Equal(t, []string{"", "", "y"}, tables[0][1])
}

func TestExtractTablesDropsEmptyTables(t *testing.T) {
	blocks := []models.Block{{ID: "t", Kind: models.BlockTable}}
	assert.Empty(t, ExtractTables(blocks))
}

func TestFindHeaderRow(t *testing.T) {
	table := models.Table{
		{"御中", "", ""},
		{"品名", "数量", "単価"},
		{"M3x8 Screw", "150", "16.5"},
	}
	row, mapping := FindHeaderRow(table)
	assert.Equal(t, 1, row)
	assert.Equal(t, 0, mapping[FieldProduct])
	assert.Equal(t, 1, mapping[FieldQuantity])
	assert.Equal(t, 2, mapping[FieldUnitPrice])
}

func TestFindHeaderRowNormalizedContainment(t *testing.T) {
	// whitespace inside the label and latin-case aliases still match
	table := models.Table{
		{"品 名", "UNIT NO"},
	}
	_, mapping := FindHeaderRow(table)
	assert.Equal(t, 0, mapping[FieldProduct])
	assert.Equal(t, 1, mapping[FieldUnitNumber])
}

func TestFindHeaderRowStopsAtFirstSufficientRow(t *testing.T) {
	// row 0 maps two fields; row 1 would map three but must not be reached
	table := models.Table{
		{"品名", "数量", ""},
		{"品名", "数量", "単価"},
	}
	row, mapping := FindHeaderRow(table)
	assert.Equal(t, 0, row)
	assert.Len(t, mapping, 2)
}

func TestFindHeaderRowDoesNotMutateTable(t *testing.T) {
	table := models.Table{
		{"品名", "数量"},
		{"M5 Bolt", "40"},
	}
	want := models.Table{
		{"品名", "数量"},
		{"M5 Bolt", "40"},
	}
	FindHeaderRow(table)
	assert.Equal(t, want, table)
}

func TestFindHeaderRowNoMatch(t *testing.T) {
	table := models.Table{
		{"abc", "def"},
	}
	row, mapping := FindHeaderRow(table)
	assert.Equal(t, 0, row)
	assert.Empty(t, mapping)
}
