package ocr

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fax-order/pkg/models"
)

// Extraction failure taxonomy. Everything else degrades gracefully into a
// needs-review line instead of failing.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type for OCR")
	ErrOCRConfig           = errors.New("ocr configuration error")
	ErrOCRUnavailable      = errors.New("ocr provider unavailable")
	ErrOCRJobFailed        = errors.New("ocr analysis job failed")
)

// Job statuses reported by the provider for asynchronous analysis
const (
	JobSucceeded = "SUCCEEDED"
	JobFailed    = "FAILED"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultMaxPolls     = 60
)

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
}

// AnalysisResult is one page of an asynchronous analysis job. NextToken is
// non-empty while further result pages remain.
type AnalysisResult struct {
	Status    string
	Blocks    []models.Block
	NextToken string
}

// Provider is the external document-analysis backend
type Provider interface {
	AnalyzeDocument(ctx context.Context, data []byte, wantTables bool) ([]models.Block, error)
	DetectText(ctx context.Context, data []byte) ([]models.Block, error)
	StartAnalysis(ctx context.Context, bucket, key string) (jobID string, err error)
	GetAnalysis(ctx context.Context, jobID, nextToken string) (AnalysisResult, error)
}

// ObjectStore holds source documents for asynchronous analysis
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, data []byte) error
}

// Service runs OCR against the provider and turns the raw block graph into
// extracted order lines and document metadata
type Service struct {
	provider     Provider
	store        ObjectStore
	bucket       string
	prefix       string
	pollInterval time.Duration
	maxPolls     int
}

// NewService creates a new OCR service. bucket may be empty when only
// image documents will be processed.
func NewService(provider Provider, store ObjectStore, bucket, prefix string) *Service {
	if prefix == "" {
		prefix = "textract"
	}
	return &Service{
		provider:     provider,
		store:        store,
		bucket:       bucket,
		prefix:       prefix,
		pollInterval: defaultPollInterval,
		maxPolls:     defaultMaxPolls,
	}
}

// Extract runs the full extraction pipeline over one uploaded document and
// returns the candidate order lines, the document-level metadata, and the
// concatenated raw text.
func (s *Service) Extract(ctx context.Context, filePath string) ([]models.ExtractedLine, models.ExtractionMetadata, string, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	var fetch func(context.Context, []byte, string) ([]models.Block, error)
	switch {
	case imageExts[ext]:
		fetch = s.fetchImageBlocks
	case ext == ".pdf":
		fetch = s.fetchDocumentBlocks
	default:
		return nil, models.ExtractionMetadata{}, "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, ext)
	}

	payload, err := os.ReadFile(filePath)
	if err != nil {
		return nil, models.ExtractionMetadata{}, "", fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	blocks, err := fetch(ctx, payload, filepath.Base(filePath))
	if err != nil {
		return nil, models.ExtractionMetadata{}, "", err
	}

	lines := s.buildLines(blocks)
	meta := ExtractMetadata(blocks)
	return lines, meta, RawText(blocks), nil
}

// buildLines derives candidate lines from tables and, separately, from raw
// LINE blocks, and keeps whichever reads cleaner. Table-derived lines are
// preferred but a garbled table loses to the raw lines.
func (s *Service) buildLines(blocks []models.Block) []models.ExtractedLine {
	tables := ExtractTables(blocks)
	tableLines := LinesFromTables(tables)
	rawLines := LinesFromBlocks(blocks)
	if len(tableLines) == 0 {
		return rawLines
	}
	if LinesQuality(tableLines) >= LinesQuality(rawLines) {
		return tableLines
	}
	return rawLines
}

// fetchImageBlocks obtains blocks for a single-page image. It runs the
// table-aware analysis on both the original and a preprocessed payload and
// keeps the higher-scoring result; when that result still looks weak it
// tries the plain detect-text operation as well and keeps the plain result
// only if it clearly beats the table-aware one. Some candidate is always
// returned as long as the provider answered.
func (s *Service) fetchImageBlocks(ctx context.Context, payload []byte, _ string) ([]models.Block, error) {
	preprocessed := Preprocess(payload)
	if preprocessed == nil {
		log.Printf("WARN: image preprocessing failed, continuing with original bytes")
	}

	tableBlocks, tableScore, err := s.bestCandidate(ctx, payload, preprocessed, true)
	if err != nil {
		return nil, err
	}

	if TextQuality(RawText(tableBlocks)) >= 0.55 && countLines(tableBlocks) >= 3 {
		return tableBlocks, nil
	}

	detectBlocks, detectScore, err := s.bestCandidate(ctx, payload, preprocessed, false)
	if err != nil {
		return nil, err
	}
	if detectScore > tableScore*0.65 {
		return detectBlocks, nil
	}
	return tableBlocks, nil
}

// bestCandidate runs one analysis operation on the original payload and,
// when available, the preprocessed one, returning the higher-scoring block
// set along with its score.
func (s *Service) bestCandidate(ctx context.Context, payload, preprocessed []byte, wantTables bool) ([]models.Block, float64, error) {
	analyze := func(data []byte) ([]models.Block, error) {
		if wantTables {
			return s.provider.AnalyzeDocument(ctx, data, true)
		}
		return s.provider.DetectText(ctx, data)
	}
	mode := ScoreTableAware
	if !wantTables {
		mode = ScorePlainDetect
	}

	best, err := analyze(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrOCRUnavailable, err)
	}
	bestScore := ScoreBlocks(best, mode)

	if preprocessed != nil {
		alt, err := analyze(preprocessed)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrOCRUnavailable, err)
		}
		if score := ScoreBlocks(alt, mode); score > bestScore {
			best, bestScore = alt, score
		}
	}
	return best, bestScore, nil
}

// fetchDocumentBlocks handles multi-page documents: upload to the object
// store under a fresh random key, start an asynchronous analysis job, and
// poll on a fixed interval until the job settles or the attempt ceiling is
// hit. Result pages are chained through a continuation token and their
// blocks accumulated.
func (s *Service) fetchDocumentBlocks(ctx context.Context, payload []byte, filename string) ([]models.Block, error) {
	if s.bucket == "" {
		return nil, fmt.Errorf("%w: object store bucket is required for PDF analysis", ErrOCRConfig)
	}

	key := fmt.Sprintf("%s/%s-%s", s.prefix, randomHex(16), filename)
	if err := s.store.Put(ctx, s.bucket, key, payload); err != nil {
		return nil, fmt.Errorf("%w: failed to upload document: %v", ErrOCRUnavailable, err)
	}

	jobID, err := s.provider.StartAnalysis(ctx, s.bucket, key)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to start analysis: %v", ErrOCRUnavailable, err)
	}

	var blocks []models.Block
	nextToken := ""
	for attempt := 0; attempt < s.maxPolls; attempt++ {
		result, err := s.provider.GetAnalysis(ctx, jobID, nextToken)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to fetch analysis: %v", ErrOCRUnavailable, err)
		}
		switch result.Status {
		case JobSucceeded:
			blocks = append(blocks, result.Blocks...)
			nextToken = result.NextToken
			if nextToken == "" {
				return blocks, nil
			}
		case JobFailed:
			return nil, ErrOCRJobFailed
		default:
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrOCRUnavailable, ctx.Err())
			case <-time.After(s.pollInterval):
			}
		}
	}
	return nil, fmt.Errorf("%w: analysis job %s did not complete in time", ErrOCRUnavailable, jobID)
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
