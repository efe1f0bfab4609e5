package product

import (
	"hospicore/internal/domain"
)

// Repository defines persistence operations for products.
type Repository interface {
	domain.CatalogRepository[*Product]
}
