package catalog_repo

import (
	"hospicore/internal/domain/catalogs/paymentmethod"
	"hospicore/internal/infrastructure/storage/postgres"
)

const paymentMethodTable = "cat_payment_methods"

// PaymentMethodRepo implements paymentmethod.Repository.
type PaymentMethodRepo struct {
	*BaseCatalogRepo[*paymentmethod.PaymentMethod]
}

// NewPaymentMethodRepo creates a new payment method repository.
func NewPaymentMethodRepo(txManager *postgres.TxManager) *PaymentMethodRepo {
	return &PaymentMethodRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			paymentMethodTable,
			postgres.ExtractDBColumns[paymentmethod.PaymentMethod](),
			func() *paymentmethod.PaymentMethod { return &paymentmethod.PaymentMethod{} },
		),
	}
}
