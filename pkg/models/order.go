package models

import (
	"gorm.io/gorm"
)

// Product is a catalog item with its canonical name and list price
type Product struct {
	gorm.Model
	InternalName string
	BasePrice    float64
	Description  string
}

// ProductAlias maps a free-text name seen on customer documents to a product
type ProductAlias struct {
	gorm.Model
	ProductID uint
	AliasName string
}

// Customer represents an ordering customer
type Customer struct {
	gorm.Model
	Name     string
	Language string `gorm:"default:ja"`
}

// CustomerPricing overrides a product's price for one customer
type CustomerPricing struct {
	gorm.Model
	CustomerID    uint
	ProductID     uint
	OverridePrice float64
}

// SalesOrder is one uploaded fax/scan document and its review state
type SalesOrder struct {
	gorm.Model
	CustomerID     *uint
	Status         string `gorm:"default:staging"`
	SourceFilename string
	StoredPath     string
	OrderNumber    string
	DeliveryNumber string
	InvoiceNumber  string
}

// OrderLine is one reviewed/reviewable line of a sales order
type OrderLine struct {
	gorm.Model
	OrderID        uint
	ProductID      *uint
	ExtractedText  string
	NormalizedName string
	Quantity       int
	UnitPrice      float64
	LineTotal      float64
	ProductCode    string
	Unit           string
	UnitNumber     string
	DeliveryNumber string
	Status         string `gorm:"default:needs-review"`
}

// PurchaseRecord tracks a supplier purchase; recording one updates the
// product's base price to the latest purchase price
type PurchaseRecord struct {
	gorm.Model
	ProductID     uint
	PurchasePrice float64
	Note          string
}
