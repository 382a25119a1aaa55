package matching

import (
	"errors"

	"gorm.io/gorm"

	"fax-order/pkg/models"
)

// GormCatalog implements Catalog over the relational product masters
type GormCatalog struct {
	db *gorm.DB
}

// NewGormCatalog creates a catalog backed by the given database
func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{db: db}
}

func (c *GormCatalog) Products() ([]models.Product, error) {
	var products []models.Product
	if err := c.db.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (c *GormCatalog) Aliases() ([]models.ProductAlias, error) {
	var aliases []models.ProductAlias
	if err := c.db.Find(&aliases).Error; err != nil {
		return nil, err
	}
	return aliases, nil
}

func (c *GormCatalog) OverridePrice(customerID, productID uint) (float64, bool, error) {
	var pricing models.CustomerPricing
	err := c.db.
		Where("customer_id = ? AND product_id = ?", customerID, productID).
		Order("created_at DESC").
		First(&pricing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return pricing.OverridePrice, true, nil
}
