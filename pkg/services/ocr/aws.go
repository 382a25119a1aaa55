package ocr

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	ttypes "github.com/aws/aws-sdk-go-v2/service/textract/types"

	"fax-order/pkg/models"
)

// TextractProvider implements Provider against AWS Textract
type TextractProvider struct {
	client *textract.Client
}

// NewTextractProvider creates a Textract-backed provider
func NewTextractProvider(cfg aws.Config) *TextractProvider {
	return &TextractProvider{client: textract.NewFromConfig(cfg)}
}

func (p *TextractProvider) AnalyzeDocument(ctx context.Context, data []byte, wantTables bool) ([]models.Block, error) {
	features := []ttypes.FeatureType{ttypes.FeatureTypeForms}
	if wantTables {
		features = []ttypes.FeatureType{ttypes.FeatureTypeTables}
	}
	out, err := p.client.AnalyzeDocument(ctx, &textract.AnalyzeDocumentInput{
		Document:     &ttypes.Document{Bytes: data},
		FeatureTypes: features,
	})
	if err != nil {
		return nil, fmt.Errorf("analyze document: %w", err)
	}
	return convertBlocks(out.Blocks), nil
}

func (p *TextractProvider) DetectText(ctx context.Context, data []byte) ([]models.Block, error) {
	out, err := p.client.DetectDocumentText(ctx, &textract.DetectDocumentTextInput{
		Document: &ttypes.Document{Bytes: data},
	})
	if err != nil {
		return nil, fmt.Errorf("detect document text: %w", err)
	}
	return convertBlocks(out.Blocks), nil
}

func (p *TextractProvider) StartAnalysis(ctx context.Context, bucket, key string) (string, error) {
	out, err := p.client.StartDocumentAnalysis(ctx, &textract.StartDocumentAnalysisInput{
		DocumentLocation: &ttypes.DocumentLocation{
			S3Object: &ttypes.S3Object{
				Bucket: aws.String(bucket),
				Name:   aws.String(key),
			},
		},
		FeatureTypes: []ttypes.FeatureType{ttypes.FeatureTypeTables},
	})
	if err != nil {
		return "", fmt.Errorf("start document analysis: %w", err)
	}
	if out.JobId == nil || *out.JobId == "" {
		return "", fmt.Errorf("start document analysis: no job id returned")
	}
	return *out.JobId, nil
}

func (p *TextractProvider) GetAnalysis(ctx context.Context, jobID, nextToken string) (AnalysisResult, error) {
	input := &textract.GetDocumentAnalysisInput{JobId: aws.String(jobID)}
	if nextToken != "" {
		input.NextToken = aws.String(nextToken)
	}
	out, err := p.client.GetDocumentAnalysis(ctx, input)
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("get document analysis: %w", err)
	}
	return AnalysisResult{
		Status:    string(out.JobStatus),
		Blocks:    convertBlocks(out.Blocks),
		NextToken: aws.ToString(out.NextToken),
	}, nil
}

// convertBlocks flattens Textract's block type into the pipeline's model.
// Only CHILD relationships are carried; Textract's other relationship
// kinds (merged cells, titles) are not used by the extraction.
func convertBlocks(in []ttypes.Block) []models.Block {
	blocks := make([]models.Block, 0, len(in))
	for _, b := range in {
		block := models.Block{
			ID:          aws.ToString(b.Id),
			Kind:        models.BlockKind(b.BlockType),
			Text:        aws.ToString(b.Text),
			RowIndex:    int(aws.ToInt32(b.RowIndex)),
			ColumnIndex: int(aws.ToInt32(b.ColumnIndex)),
			Selected:    b.SelectionStatus == ttypes.SelectionStatusSelected,
		}
		for _, rel := range b.Relationships {
			if rel.Type != ttypes.RelationshipTypeChild {
				continue
			}
			block.ChildIDs = append(block.ChildIDs, rel.Ids...)
		}
		blocks = append(blocks, block)
	}
	return blocks
}

// S3Store implements ObjectStore against S3
type S3Store struct {
	client *s3.Client
}

// NewS3Store creates an S3-backed object store
func NewS3Store(cfg aws.Config) *S3Store {
	return &S3Store{client: s3.NewFromConfig(cfg)}
}

func (s *S3Store) Put(ctx context.Context, bucket, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("put object %s/%s: %w", bucket, key, err)
	}
	return nil
}
