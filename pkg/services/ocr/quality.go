package ocr

import (
	"strings"
	"unicode"

	"fax-order/pkg/models"
)

// ScoreMode selects the weighting used by ScoreBlocks
type ScoreMode int

const (
	// ScoreTableAware weights structural signal (tables, cells) heavily
	ScoreTableAware ScoreMode = iota
	// ScorePlainDetect weights raw line volume and text quality only
	ScorePlainDetect
)

// TextQuality returns the fraction of non-whitespace runes that are
// alphanumeric or CJK (hiragana, katakana, han). 0 for empty or
// all-whitespace input.
func TextQuality(text string) float64 {
	total := 0
	good := 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if isRecognizable(r) {
			good++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(good) / float64(total)
}

func isRecognizable(r rune) bool {
	if r >= '0' && r <= '9' {
		return true
	}
	if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
		return true
	}
	return unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han)
}

// ScoreBlocks rates a block set so competing OCR attempts can be compared.
// Tables and cells are much stronger evidence of a well-read document than
// raw line volume, so the table-aware mode weights them far above lines.
func ScoreBlocks(blocks []models.Block, mode ScoreMode) float64 {
	var tables, cells, lines int
	for _, b := range blocks {
		switch b.Kind {
		case models.BlockTable:
			tables++
		case models.BlockCell:
			cells++
		case models.BlockLine:
			lines++
		}
	}
	quality := TextQuality(RawText(blocks))
	if mode == ScorePlainDetect {
		return float64(lines)*0.8 + quality*30
	}
	return float64(tables)*40 + float64(cells)*1.5 + float64(lines)*0.4 + quality*20
}

// LinesQuality rates a set of extracted lines by the text quality of their
// concatenated texts, capped at the first 50 lines.
func LinesQuality(lines []models.ExtractedLine) float64 {
	var sb strings.Builder
	for i, line := range lines {
		if i >= 50 {
			break
		}
		sb.WriteString(line.ExtractedText)
		sb.WriteString(" ")
	}
	return TextQuality(sb.String())
}

func countLines(blocks []models.Block) int {
	n := 0
	for _, b := range blocks {
		if b.Kind == models.BlockLine {
			n++
		}
	}
	return n
}
