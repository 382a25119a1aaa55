package api

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"fax-order/pkg/models"
	"fax-order/pkg/services/matching"
	"fax-order/pkg/services/ocr"
	"fax-order/pkg/services/render"
)

var aliasSuggestions = []gin.H{
	{"product": "M8 Tapping Screw", "alias": "TAP-M8X20"},
	{"product": "M6 Hex Nut", "alias": "HEX-M6"},
	{"product": "Plastic Spacer 10mm", "alias": "SPC-PL-10"},
}

// Server wires the extraction pipeline and masters behind HTTP handlers
type Server struct {
	db        *gorm.DB
	extractor *ocr.Service
	matcher   *matching.Service
	renderer  *render.Service
	sessions  *SessionStore
	uploadDir string
	apiToken  string
}

// NewServer creates the HTTP server facade
func NewServer(db *gorm.DB, extractor *ocr.Service, matcher *matching.Service, renderer *render.Service, sessions *SessionStore, uploadDir, apiToken string) *Server {
	return &Server{
		db:        db,
		extractor: extractor,
		matcher:   matcher,
		renderer:  renderer,
		sessions:  sessions,
		uploadDir: uploadDir,
		apiToken:  apiToken,
	}
}

// Register attaches all routes to the router
func (s *Server) Register(r *gin.Engine) {
	r.GET("/api/health", s.health)
	r.POST("/api/session", s.createSession)

	guarded := r.Group("/", s.requireSession)
	guarded.POST("/api/orders/upload", s.uploadOrder)
	guarded.GET("/api/orders/:id/lines", s.orderLines)
	guarded.GET("/api/products", s.listProducts)
	guarded.POST("/api/products", s.createProduct)
	guarded.GET("/api/products/aliases", s.listAliases)
	guarded.POST("/api/products/aliases", s.createAlias)
	guarded.GET("/api/aliases/suggestions", s.suggestions)
	guarded.GET("/api/customers", s.listCustomers)
	guarded.POST("/api/customers", s.createCustomer)
	guarded.GET("/api/customers/:id/pricing", s.listPricing)
	guarded.POST("/api/customers/:id/pricing", s.createPricing)
	guarded.GET("/api/purchases", s.listPurchases)
	guarded.POST("/api/purchases", s.createPurchase)
	guarded.POST("/api/pdf/render", s.renderPDF)
}

// requireSession guards routes when an API token is configured; with no
// token configured the API is open, matching a trusted-network deployment.
func (s *Server) requireSession(c *gin.Context) {
	if s.apiToken == "" {
		c.Next()
		return
	}
	if !s.sessions.Valid(c.GetHeader("X-Session-Token")) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid or expired session"})
		return
	}
	c.Next()
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339)})
}

func (s *Server) createSession(c *gin.Context) {
	var body struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "token is required"})
		return
	}
	if s.apiToken == "" || subtle.ConstantTimeCompare([]byte(body.Token), []byte(s.apiToken)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": s.sessions.Issue()})
}

func (s *Server) uploadOrder(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "file is required"})
		return
	}

	var customerID *uint
	if raw := c.PostForm("customer_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid customer_id"})
			return
		}
		var customer models.Customer
		if err := s.db.First(&customer, uint(id)).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Customer not found"})
			return
		}
		cid := uint(id)
		customerID = &cid
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to prepare upload dir"})
		return
	}
	storedName := randomName(filepath.Ext(file.Filename))
	storedPath := filepath.Join(s.uploadDir, storedName)
	if err := c.SaveUploadedFile(file, storedPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to store upload"})
		return
	}

	order := models.SalesOrder{
		CustomerID:     customerID,
		SourceFilename: filepath.Base(file.Filename),
		StoredPath:     storedPath,
		Status:         "uploaded",
	}
	if err := s.db.Create(&order).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to create order"})
		return
	}

	lines, meta, _, err := s.extractor.Extract(c.Request.Context(), storedPath)
	if err != nil {
		log.Printf("ERROR: extraction failed for order %d: %v", order.ID, err)
		s.db.Model(&order).Update("status", "needs-review")
		c.JSON(extractionStatusCode(err), gin.H{
			"order_id": order.ID,
			"detail":   err.Error(),
		})
		return
	}

	resolved, err := s.matcher.MatchAndPrice(lines, customerID)
	if err != nil {
		log.Printf("ERROR: matching failed for order %d: %v", order.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "catalog matching failed"})
		return
	}

	if err := s.storeResult(&order, resolved, meta); err != nil {
		log.Printf("ERROR: failed to persist lines for order %d: %v", order.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to persist order lines"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id":    order.ID,
		"stored_path": order.StoredPath,
		"status":      order.Status,
		"line_count":  len(resolved),
	})
}

func extractionStatusCode(err error) int {
	switch {
	case errors.Is(err, ocr.ErrUnsupportedFileType):
		return http.StatusBadRequest
	case errors.Is(err, ocr.ErrOCRConfig):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) storeResult(order *models.SalesOrder, resolved []models.ResolvedOrderLine, meta models.ExtractionMetadata) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderLine{}).Error; err != nil {
			return err
		}
		for _, line := range resolved {
			record := models.OrderLine{
				OrderID:        order.ID,
				ProductID:      line.ProductID,
				ExtractedText:  line.ExtractedText,
				NormalizedName: line.NormalizedName,
				Quantity:       line.Quantity,
				UnitPrice:      line.UnitPrice,
				LineTotal:      line.LineTotal,
				ProductCode:    line.ProductCode,
				Unit:           line.Unit,
				UnitNumber:     line.UnitNumber,
				DeliveryNumber: line.DeliveryNumber,
				Status:         line.Status,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
		order.OrderNumber = meta.OrderNumber
		order.DeliveryNumber = meta.DeliveryNumber
		order.InvoiceNumber = meta.InvoiceNumber
		order.Status = "extracted"
		return tx.Save(order).Error
	})
}

func (s *Server) orderLines(c *gin.Context) {
	orderID, ok := s.lookupOrderID(c)
	if !ok {
		return
	}
	var lines []models.OrderLine
	if err := s.db.Where("order_id = ?", orderID).Find(&lines).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to load lines"})
		return
	}
	c.JSON(http.StatusOK, lines)
}

func (s *Server) lookupOrderID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid order id"})
		return 0, false
	}
	var order models.SalesOrder
	if err := s.db.First(&order, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Order not found"})
		return 0, false
	}
	return uint(id), true
}

func (s *Server) listProducts(c *gin.Context) {
	var products []models.Product
	s.db.Find(&products)
	c.JSON(http.StatusOK, products)
}

func (s *Server) createProduct(c *gin.Context) {
	var body struct {
		InternalName string  `json:"internal_name" binding:"required"`
		BasePrice    float64 `json:"base_price"`
		Description  string  `json:"description"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	product := models.Product{InternalName: body.InternalName, BasePrice: body.BasePrice, Description: body.Description}
	if err := s.db.Create(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to create product"})
		return
	}
	c.JSON(http.StatusOK, product)
}

func (s *Server) listAliases(c *gin.Context) {
	var aliases []models.ProductAlias
	s.db.Find(&aliases)
	c.JSON(http.StatusOK, aliases)
}

func (s *Server) createAlias(c *gin.Context) {
	var body struct {
		ProductID uint   `json:"product_id" binding:"required"`
		AliasName string `json:"alias_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	var product models.Product
	if err := s.db.First(&product, body.ProductID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Product not found"})
		return
	}
	alias := models.ProductAlias{ProductID: body.ProductID, AliasName: body.AliasName}
	if err := s.db.Create(&alias).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to create alias"})
		return
	}
	c.JSON(http.StatusOK, alias)
}

func (s *Server) suggestions(c *gin.Context) {
	c.JSON(http.StatusOK, aliasSuggestions)
}

func (s *Server) listCustomers(c *gin.Context) {
	var customers []models.Customer
	s.db.Find(&customers)
	c.JSON(http.StatusOK, customers)
}

func (s *Server) createCustomer(c *gin.Context) {
	var body struct {
		Name     string `json:"name" binding:"required"`
		Language string `json:"language"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if body.Language == "" {
		body.Language = "ja"
	}
	customer := models.Customer{Name: body.Name, Language: body.Language}
	if err := s.db.Create(&customer).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to create customer"})
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (s *Server) listPricing(c *gin.Context) {
	customerID, ok := s.lookupCustomerID(c)
	if !ok {
		return
	}
	var pricing []models.CustomerPricing
	if err := s.db.Where("customer_id = ?", customerID).Find(&pricing).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to load pricing"})
		return
	}
	c.JSON(http.StatusOK, pricing)
}

func (s *Server) createPricing(c *gin.Context) {
	customerID, ok := s.lookupCustomerID(c)
	if !ok {
		return
	}
	var body struct {
		ProductID     uint    `json:"product_id" binding:"required"`
		OverridePrice float64 `json:"override_price"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	var product models.Product
	if err := s.db.First(&product, body.ProductID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Product not found"})
		return
	}
	pricing := models.CustomerPricing{
		CustomerID:    customerID,
		ProductID:     body.ProductID,
		OverridePrice: body.OverridePrice,
	}
	if err := s.db.Create(&pricing).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to create pricing"})
		return
	}
	c.JSON(http.StatusOK, pricing)
}

func (s *Server) lookupCustomerID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid customer id"})
		return 0, false
	}
	var customer models.Customer
	if err := s.db.First(&customer, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Customer not found"})
		return 0, false
	}
	return uint(id), true
}

func (s *Server) listPurchases(c *gin.Context) {
	var purchases []models.PurchaseRecord
	s.db.Find(&purchases)
	c.JSON(http.StatusOK, purchases)
}

// createPurchase records a supplier purchase and rolls the product's base
// price forward to the purchase price.
func (s *Server) createPurchase(c *gin.Context) {
	var body struct {
		ProductID     uint    `json:"product_id" binding:"required"`
		PurchasePrice float64 `json:"purchase_price"`
		Note          string  `json:"note"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	record := models.PurchaseRecord{ProductID: body.ProductID, PurchasePrice: body.PurchasePrice, Note: body.Note}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		return tx.Model(&models.Product{}).
			Where("id = ?", body.ProductID).
			Update("base_price", body.PurchasePrice).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to record purchase"})
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) renderPDF(c *gin.Context) {
	var body struct {
		OrderID      uint   `json:"order_id" binding:"required"`
		DocumentType string `json:"document_type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	var order models.SalesOrder
	if err := s.db.First(&order, body.OrderID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Order not found"})
		return
	}
	var customer *models.Customer
	if order.CustomerID != nil {
		var record models.Customer
		if err := s.db.First(&record, *order.CustomerID).Error; err == nil {
			customer = &record
		}
	}
	var lines []models.OrderLine
	if err := s.db.Where("order_id = ?", order.ID).Find(&lines).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to load lines"})
		return
	}

	path, err := s.renderer.Render(render.DocumentType(body.DocumentType), order, customer, lines)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order_id":      order.ID,
		"document_type": body.DocumentType,
		"path":          path,
		"message":       fmt.Sprintf("Document rendered to %s", path),
	})
}

func randomName(ext string) string {
	buf := make([]byte, 16)
	rand.Read(buf)
	if ext == "" {
		ext = ".pdf"
	}
	return hex.EncodeToString(buf) + ext
}
