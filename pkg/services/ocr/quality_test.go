package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fax-order/pkg/models"
)

func TestTextQuality(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"empty", "", 0},
		{"whitespace only", "  \t\n ", 0},
		{"pure ascii alnum", "M3x8Screw150", 1},
		{"pure japanese", "ウイングナット数量", 1},
		{"whitespace ignored", "M3x8 Screw", 1},
		{"half noise", "ab@#", 0.5},
		{"all noise", "@#$%", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, TextQuality(tt.text), 1e-9)
		})
	}
}

func TestTextQualityDegradesWithNoise(t *testing.T) {
	clean := TextQuality("M5フランジボルト")
	noisy := TextQuality("M5@フランジ#ボルト")
	noisier := TextQuality("M5@@フランジ##ボルト%%")
	assert.Greater(t, clean, noisy)
	assert.Greater(t, noisy, noisier)
}

func TestScoreBlocksWeightsStructure(t *testing.T) {
	structured := []models.Block{
		{ID: "t", Kind: models.BlockTable},
		{ID: "c1", Kind: models.BlockCell},
		{ID: "c2", Kind: models.BlockCell},
		{ID: "l1", Kind: models.BlockLine, Text: "品名 数量"},
	}
	flat := []models.Block{
		{ID: "l1", Kind: models.BlockLine, Text: "品名 数量"},
	}
	assert.Greater(t, ScoreBlocks(structured, ScoreTableAware), ScoreBlocks(flat, ScoreTableAware))

	// table mode: 1 table + 2 cells + 1 line + perfect text
	assert.InDelta(t, 40+3+0.4+20, ScoreBlocks(structured, ScoreTableAware), 1e-9)
	// detect mode ignores structure entirely
	assert.InDelta(t, 0.8+30, ScoreBlocks(structured, ScorePlainDetect), 1e-9)
}

func TestLinesQualityCapsAtFifty(t *testing.T) {
	lines := make([]models.ExtractedLine, 0, 60)
	for i := 0; i < 50; i++ {
		lines = append(lines, models.ExtractedLine{ExtractedText: "abc"})
	}
	for i := 0; i < 10; i++ {
		lines = append(lines, models.ExtractedLine{ExtractedText: "@@@@"})
	}
	// the trailing noise lines fall outside the 50-line window
	assert.InDelta(t, 1.0, LinesQuality(lines), 1e-9)
}
