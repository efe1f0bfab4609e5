package paymentmethod

import (
	"hospicore/internal/domain"
)

// Repository defines persistence operations for payment methods.
type Repository interface {
	domain.CatalogRepository[*PaymentMethod]
}
