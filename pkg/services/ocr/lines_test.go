package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fax-order/pkg/models"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"", 0},
		{"150", 150},
		{"¥1,650", 1650},
		{"16.5円", 16.5},
		{"-3", -3},
		{"abc", 0},
		{"--", 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, parseNumber(tt.in), 1e-9, "input %q", tt.in)
	}
}

func TestLinesFromTables(t *testing.T) {
	tables := []models.Table{{
		{"品名", "数量", "単価", "金額", "品番"},
		{"M3x8 Screw", "150", "16.5", "", "SCR-M3X8"},
		{"M5 Flange Bolt", "40本", "", "2404", "FLG-M5"},
		{"", "10", "5", "", ""},
		{"Wing Nut", "", "", "", ""},
	}}
	lines := LinesFromTables(tables)
	require.Len(t, lines, 3)

	assert.Equal(t, "M3x8 Screw", lines[0].ExtractedText)
	assert.Equal(t, 150, lines[0].Quantity)
	assert.InDelta(t, 16.5, lines[0].UnitPrice, 1e-9)
	assert.InDelta(t, 16.5*150, lines[0].LineTotal, 1e-9)
	assert.Equal(t, "SCR-M3X8", lines[0].ProductCode)

	// explicit amount wins over quantity x unit price
	assert.Equal(t, 40, lines[1].Quantity)
	assert.InDelta(t, 2404, lines[1].LineTotal, 1e-9)

	// blank quantity defaults to 1, blank prices to 0
	assert.Equal(t, "Wing Nut", lines[2].ExtractedText)
	assert.Equal(t, 1, lines[2].Quantity)
	assert.InDelta(t, 0, lines[2].UnitPrice, 1e-9)
	assert.InDelta(t, 0, lines[2].LineTotal, 1e-9)
}

func TestLinesFromTablesZeroQuantityDefaultsToOne(t *testing.T) {
	tables := []models.Table{{
		{"品名", "数量"},
		{"M3x8 Screw", "0"},
	}}
	lines := LinesFromTables(tables)
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)
}

func TestLinesFromTablesSkipsTablesWithoutProductColumn(t *testing.T) {
	tables := []models.Table{{
		{"数量", "単価"},
		{"150", "16.5"},
	}}
	assert.Empty(t, LinesFromTables(tables))
}

func TestLinesFromBlocks(t *testing.T) {
	blocks := []models.Block{
		{Kind: models.BlockLine, Text: "M3X8 スクリュー 150本"},
		{Kind: models.BlockLine, Text: "M5 FLANGE BOLT 40"},
		{Kind: models.BlockLine, Text: "ウイングナット"},
		{Kind: models.BlockLine, Text: "   "},
		{Kind: models.BlockWord, Text: "ignored"},
	}
	lines := LinesFromBlocks(blocks)
	require.Len(t, lines, 3)
	assert.Equal(t, 150, lines[0].Quantity)
	assert.Equal(t, 40, lines[1].Quantity)
	assert.Equal(t, 1, lines[2].Quantity)
	assert.InDelta(t, 0, lines[0].UnitPrice, 1e-9)
	assert.InDelta(t, 0, lines[0].LineTotal, 1e-9)
}

func TestExtractMetadata(t *testing.T) {
	blocks := []models.Block{
		{Kind: models.BlockLine, Text: "注文番号: ORD-2024-001"},
		{Kind: models.BlockLine, Text: "納品No：DSN-77"},
		{Kind: models.BlockLine, Text: "請求番号 INV-5"},
		{Kind: models.BlockLine, Text: "注文番号: ORD-LATER"},
	}
	meta := ExtractMetadata(blocks)
	assert.Equal(t, "ORD-2024-001", meta.OrderNumber)
	assert.Equal(t, "DSN-77", meta.DeliveryNumber)
	assert.Equal(t, "INV-5", meta.InvoiceNumber)
}

func TestExtractMetadataMissingKeys(t *testing.T) {
	blocks := []models.Block{
		{Kind: models.BlockLine, Text: "ご注文ありがとうございます"},
	}
	meta := ExtractMetadata(blocks)
	assert.Empty(t, meta.OrderNumber)
	assert.Empty(t, meta.DeliveryNumber)
	assert.Empty(t, meta.InvoiceNumber)
}

func TestRawText(t *testing.T) {
	blocks := []models.Block{
		{Kind: models.BlockLine, Text: "first"},
		{Kind: models.BlockWord, Text: "skipped"},
		{Kind: models.BlockLine, Text: " second "},
		{Kind: models.BlockLine, Text: ""},
	}
	assert.Equal(t, "first\nsecond", RawText(blocks))
}
