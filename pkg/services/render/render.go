package render

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"

	"fax-order/pkg/models"
)

// DocumentType names a renderable business document
type DocumentType string

const (
	DocOrderSummary     DocumentType = "order_summary"
	DocPackingSlip      DocumentType = "packing_slip"
	DocDeliveryNote     DocumentType = "delivery_note"
	DocDeliveryDetail   DocumentType = "delivery_detail"
	DocInvoice          DocumentType = "invoice"
	DocInvoiceDetail    DocumentType = "invoice_detail"
	DocInvoiceStatement DocumentType = "invoice_statement"
)

type drawFunc func(c *canvas, lines []models.OrderLine)

type documentSpec struct {
	title string
	draw  drawFunc
}

// documentSpecs is the closed dispatch table from document type to its
// title and drawing routine; all routines share the canvas helpers.
var documentSpecs = map[DocumentType]documentSpec{
	DocOrderSummary:     {"注文書（兼 納品書/請求内訳明細）", drawFullLines},
	DocPackingSlip:      {"現品票", drawPackingLines},
	DocDeliveryNote:     {"納品書", drawDeliveryLines},
	DocDeliveryDetail:   {"納品明細書", drawFullLines},
	DocInvoice:          {"請求書", drawInvoiceLines},
	DocInvoiceDetail:    {"請求明細書", drawFullLines},
	DocInvoiceStatement: {"請求書（集計/締め）", drawInvoiceLines},
}

// Service renders business documents for a sales order as PDF files
type Service struct {
	outputDir string
	fontPath  string
}

// NewService creates a renderer writing files under outputDir. fontPath
// may point at a TTF with Japanese glyphs; when empty the built-in
// Helvetica is used.
func NewService(outputDir, fontPath string) *Service {
	return &Service{outputDir: outputDir, fontPath: fontPath}
}

// Render draws the requested document type for an order and returns the
// path of the written PDF.
func (s *Service) Render(docType DocumentType, order models.SalesOrder, customer *models.Customer, lines []models.OrderLine) (string, error) {
	spec, ok := documentSpecs[docType]
	if !ok {
		return "", fmt.Errorf("unknown document type %q", docType)
	}
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	c := newCanvas(s.fontPath)
	c.drawHeader(spec.title, order, customer)
	c.drawTableHeader()
	spec.draw(c, lines)

	path := filepath.Join(s.outputDir, fmt.Sprintf("%d-%s.pdf", order.ID, docType))
	if err := c.pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// DocumentTypes lists the renderable document types
func DocumentTypes() []DocumentType {
	types := make([]DocumentType, 0, len(documentSpecs))
	for t := range documentSpecs {
		types = append(types, t)
	}
	return types
}

type canvas struct {
	pdf    *fpdf.Fpdf
	family string
	y      float64
}

func newCanvas(fontPath string) *canvas {
	pdf := fpdf.New("P", "mm", "A4", "")
	family := "Helvetica"
	if fontPath != "" {
		family = "doc"
		pdf.AddUTF8Font(family, "", fontPath)
		pdf.AddUTF8Font(family, "B", fontPath)
	}
	pdf.AddPage()
	return &canvas{pdf: pdf, family: family}
}

func (c *canvas) drawHeader(title string, order models.SalesOrder, customer *models.Customer) {
	c.pdf.SetFont(c.family, "B", 14)
	c.pdf.Text(20, 20, title)
	c.pdf.SetFont(c.family, "", 10)
	y := 28.0
	c.pdf.Text(20, y, fmt.Sprintf("作成日: %s", time.Now().UTC().Format("2006-01-02")))
	if customer != nil {
		y += 6
		c.pdf.Text(20, y, fmt.Sprintf("顧客: %s", customer.Name))
	}
	if order.OrderNumber != "" {
		y += 6
		c.pdf.Text(20, y, fmt.Sprintf("注文番号: %s", order.OrderNumber))
	}
	if order.DeliveryNumber != "" {
		y += 6
		c.pdf.Text(20, y, fmt.Sprintf("納品番号: %s", order.DeliveryNumber))
	}
	if order.InvoiceNumber != "" {
		y += 6
		c.pdf.Text(20, y, fmt.Sprintf("請求番号: %s", order.InvoiceNumber))
	}
	c.y = 62
}

func (c *canvas) drawTableHeader() {
	c.pdf.SetFont(c.family, "B", 9)
	c.pdf.Text(20, c.y, "品名")
	c.pdf.Text(100, c.y, "数量")
	c.pdf.Text(120, c.y, "単価")
	c.pdf.Text(150, c.y, "金額")
	c.y += 6
	c.pdf.SetFont(c.family, "", 9)
}

// nextRow advances the cursor, breaking the page and redrawing the table
// header when the bottom margin is reached.
func (c *canvas) nextRow() float64 {
	if c.y > 277 {
		c.pdf.AddPage()
		c.y = 27
		c.drawTableHeader()
	}
	y := c.y
	c.y += 6
	return y
}

func lineName(line models.OrderLine) string {
	if line.NormalizedName != "" {
		return line.NormalizedName
	}
	return line.ExtractedText
}

func drawFullLines(c *canvas, lines []models.OrderLine) {
	for _, line := range lines {
		y := c.nextRow()
		c.pdf.Text(20, y, lineName(line))
		c.pdf.Text(100, y, fmt.Sprintf("%d", line.Quantity))
		c.pdf.Text(120, y, fmt.Sprintf("%.2f", line.UnitPrice))
		c.pdf.Text(150, y, fmt.Sprintf("%.2f", line.LineTotal))
	}
}

func drawPackingLines(c *canvas, lines []models.OrderLine) {
	for _, line := range lines {
		y := c.nextRow()
		c.pdf.Text(20, y, lineName(line))
		c.pdf.Text(100, y, fmt.Sprintf("%d", line.Quantity))
	}
}

func drawDeliveryLines(c *canvas, lines []models.OrderLine) {
	for _, line := range lines {
		y := c.nextRow()
		c.pdf.Text(20, y, lineName(line))
		c.pdf.Text(100, y, fmt.Sprintf("%d", line.Quantity))
		if line.Unit != "" {
			c.pdf.Text(120, y, line.Unit)
		}
	}
}

func drawInvoiceLines(c *canvas, lines []models.OrderLine) {
	total := 0.0
	for _, line := range lines {
		total += line.LineTotal
	}
	drawFullLines(c, lines)
	y := c.nextRow()
	c.pdf.SetFont(c.family, "B", 9)
	c.pdf.Text(120, y, "合計")
	c.pdf.Text(150, y, fmt.Sprintf("%.2f", total))
}
