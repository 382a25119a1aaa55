package matching

import (
	"fmt"
	"strings"

	"fax-order/pkg/models"
)

// Catalog provides read access to the product masters
type Catalog interface {
	Products() ([]models.Product, error)
	Aliases() ([]models.ProductAlias, error)
	OverridePrice(customerID, productID uint) (float64, bool, error)
}

// Service resolves extracted line text to catalog products and prices
type Service struct {
	catalog Catalog
}

// NewService creates a new matching service
func NewService(catalog Catalog) *Service {
	return &Service{catalog: catalog}
}

type candidate struct {
	needle    string
	productID uint
}

// MatchAndPrice resolves each extracted line against the catalog. A line
// matches when a product alias, or failing that a product's internal name,
// appears as a substring of the line's lowercased text. When several
// candidates match, the longest one wins (ties break lexicographically) so
// the result does not depend on lookup iteration order. Unmatched lines
// keep their extracted text as the normalized name and are flagged
// needs-review instead of failing.
//
// Price precedence for a matched line: a non-zero extracted unit price is
// kept as-is; otherwise a customer-specific override, otherwise the
// catalog base price, and the line total is recomputed from the resolved
// price.
func (s *Service) MatchAndPrice(lines []models.ExtractedLine, customerID *uint) ([]models.ResolvedOrderLine, error) {
	products, err := s.catalog.Products()
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	aliases, err := s.catalog.Aliases()
	if err != nil {
		return nil, fmt.Errorf("failed to load aliases: %w", err)
	}

	productsByID := make(map[uint]models.Product, len(products))
	nameCandidates := make([]candidate, 0, len(products))
	for _, p := range products {
		productsByID[p.ID] = p
		nameCandidates = append(nameCandidates, candidate{
			needle:    strings.ToLower(p.InternalName),
			productID: p.ID,
		})
	}
	aliasCandidates := make([]candidate, 0, len(aliases))
	for _, a := range aliases {
		aliasCandidates = append(aliasCandidates, candidate{
			needle:    strings.ToLower(a.AliasName),
			productID: a.ProductID,
		})
	}

	resolved := make([]models.ResolvedOrderLine, 0, len(lines))
	for _, line := range lines {
		resolved = append(resolved, s.resolve(line, customerID, aliasCandidates, nameCandidates, productsByID))
	}
	return resolved, nil
}

func (s *Service) resolve(
	line models.ExtractedLine,
	customerID *uint,
	aliasCandidates, nameCandidates []candidate,
	productsByID map[uint]models.Product,
) models.ResolvedOrderLine {
	out := models.ResolvedOrderLine{
		ExtractedText:  line.ExtractedText,
		NormalizedName: line.ExtractedText,
		Quantity:       line.Quantity,
		UnitPrice:      line.UnitPrice,
		LineTotal:      line.LineTotal,
		ProductCode:    line.ProductCode,
		Unit:           line.Unit,
		UnitNumber:     line.UnitNumber,
		DeliveryNumber: line.DeliveryNumber,
		Status:         models.StatusNeedsReview,
	}

	text := strings.ToLower(line.ExtractedText)
	productID, ok := bestMatch(text, aliasCandidates)
	if !ok {
		productID, ok = bestMatch(text, nameCandidates)
	}
	if !ok {
		return out
	}
	product, ok := productsByID[productID]
	if !ok {
		return out
	}

	id := product.ID
	out.ProductID = &id
	out.NormalizedName = product.InternalName
	out.Status = models.StatusMatched

	if out.UnitPrice == 0 {
		price := product.BasePrice
		if customerID != nil {
			if override, ok, err := s.catalog.OverridePrice(*customerID, product.ID); err == nil && ok {
				price = override
			}
		}
		out.UnitPrice = price
		out.LineTotal = price * float64(out.Quantity)
	}
	return out
}

// bestMatch returns the product whose needle is a substring of text,
// preferring the longest needle and breaking length ties
// lexicographically.
func bestMatch(text string, candidates []candidate) (uint, bool) {
	var best candidate
	found := false
	for _, c := range candidates {
		if c.needle == "" || !strings.Contains(text, c.needle) {
			continue
		}
		if !found || betterNeedle(c.needle, best.needle) {
			best = c
			found = true
		}
	}
	return best.productID, found
}

func betterNeedle(a, b string) bool {
	la, lb := len([]rune(a)), len([]rune(b))
	if la != lb {
		return la > lb
	}
	return a < b
}
