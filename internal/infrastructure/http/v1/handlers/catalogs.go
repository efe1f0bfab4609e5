package handlers

import (
	"github.com/gin-gonic/gin"

	"hospicore/internal/core/apperror"
	"hospicore/internal/core/types"
	"hospicore/internal/domain/catalogs/center"
	"hospicore/internal/domain/catalogs/financier"
	"hospicore/internal/domain/catalogs/paymentmethod"
	"hospicore/internal/domain/catalogs/product"
	"hospicore/internal/infrastructure/http/v1/dto"
)

// CenterHandler serves the hospital center catalog.
type CenterHandler struct {
	*CatalogHandler[*center.HospitalCenter, dto.CreateCenterRequest, dto.UpdateCenterRequest]
}

// NewCenterHandler creates a new hospital center handler.
func NewCenterHandler(base *BaseHandler, svc *center.Service) *CenterHandler {
	return &CenterHandler{
		CatalogHandler: NewCatalogHandler(base, CatalogHandlerConfig[*center.HospitalCenter, dto.CreateCenterRequest, dto.UpdateCenterRequest]{
			Service: svc.CatalogService,
			MapCreateDTO: func(req dto.CreateCenterRequest) (*center.HospitalCenter, error) {
				c := center.NewHospitalCenter(req.Code, req.Name)
				c.City = req.City
				c.Address = req.Address
				c.Phone = req.Phone
				c.Timezone = req.Timezone
				return c, nil
			},
			MapUpdateDTO: func(req dto.UpdateCenterRequest, existing *center.HospitalCenter) error {
				existing.Name = req.Name
				existing.City = req.City
				existing.Address = req.Address
				existing.Phone = req.Phone
				existing.Timezone = req.Timezone
				if req.Version > 0 {
					existing.Version = req.Version
				}
				return nil
			},
			EntityID: func(c *center.HospitalCenter) string { return c.ID.String() },
		}),
	}
}

// ProductHandler serves the product catalog.
type ProductHandler struct {
	*CatalogHandler[*product.Product, dto.CreateProductRequest, dto.UpdateProductRequest]
}

// NewProductHandler creates a new product handler.
func NewProductHandler(base *BaseHandler, svc *product.Service) *ProductHandler {
	return &ProductHandler{
		CatalogHandler: NewCatalogHandler(base, CatalogHandlerConfig[*product.Product, dto.CreateProductRequest, dto.UpdateProductRequest]{
			Service: svc.CatalogService,
			MapCreateDTO: func(req dto.CreateProductRequest) (*product.Product, error) {
				price, err := types.NewMoneyFromString(req.UnitPrice)
				if err != nil {
					return nil, apperror.NewValidation("invalid unit price").
						WithDetail("field", "unitPrice").
						WithDetail("value", req.UnitPrice)
				}
				return product.NewProduct(req.Code, req.Name, product.Form(req.Form), req.Unit, price), nil
			},
			MapUpdateDTO: func(req dto.UpdateProductRequest, existing *product.Product) error {
				price, err := types.NewMoneyFromString(req.UnitPrice)
				if err != nil {
					return apperror.NewValidation("invalid unit price").
						WithDetail("field", "unitPrice").
						WithDetail("value", req.UnitPrice)
				}
				existing.Name = req.Name
				existing.Form = product.Form(req.Form)
				existing.Unit = req.Unit
				existing.UnitPrice = price
				if req.Version > 0 {
					existing.Version = req.Version
				}
				return nil
			},
			EntityID: func(p *product.Product) string { return p.ID.String() },
		}),
	}
}

// FinancierHandler serves the financier catalog.
type FinancierHandler struct {
	*CatalogHandler[*financier.Financier, dto.CreateFinancierRequest, dto.UpdateFinancierRequest]
	service *financier.Service
}

// NewFinancierHandler creates a new financier handler.
func NewFinancierHandler(base *BaseHandler, svc *financier.Service) *FinancierHandler {
	return &FinancierHandler{
		CatalogHandler: NewCatalogHandler(base, CatalogHandlerConfig[*financier.Financier, dto.CreateFinancierRequest, dto.UpdateFinancierRequest]{
			Service: svc.CatalogService,
			MapCreateDTO: func(req dto.CreateFinancierRequest) (*financier.Financier, error) {
				f := financier.NewFinancier(req.Code, req.Name)
				f.Phone = req.Phone
				f.Organization = req.Organization
				return f, nil
			},
			MapUpdateDTO: func(req dto.UpdateFinancierRequest, existing *financier.Financier) error {
				existing.Name = req.Name
				existing.Phone = req.Phone
				existing.Organization = req.Organization
				if req.Version > 0 {
					existing.Version = req.Version
				}
				return nil
			},
			EntityID: func(f *financier.Financier) string { return f.ID.String() },
		}),
		service: svc,
	}
}

// SetActive handles PUT /financiers/:id/active.
func (h *FinancierHandler) SetActive(c *gin.Context) {
	financierID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.SetFinancierActiveRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.SetActive(c.Request.Context(), financierID, req.Active); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "financier updated")
}

// PaymentMethodHandler serves the payment method catalog.
type PaymentMethodHandler struct {
	*CatalogHandler[*paymentmethod.PaymentMethod, dto.CreatePaymentMethodRequest, dto.UpdatePaymentMethodRequest]
	service *paymentmethod.Service
}

// NewPaymentMethodHandler creates a new payment method handler.
func NewPaymentMethodHandler(base *BaseHandler, svc *paymentmethod.Service) *PaymentMethodHandler {
	return &PaymentMethodHandler{
		CatalogHandler: NewCatalogHandler(base, CatalogHandlerConfig[*paymentmethod.PaymentMethod, dto.CreatePaymentMethodRequest, dto.UpdatePaymentMethodRequest]{
			Service: svc.CatalogService,
			MapCreateDTO: func(req dto.CreatePaymentMethodRequest) (*paymentmethod.PaymentMethod, error) {
				m := paymentmethod.NewPaymentMethod(req.Code, req.Name)
				if req.IsCashEquivalent != nil {
					m.IsCashEquivalent = *req.IsCashEquivalent
				}
				return m, nil
			},
			MapUpdateDTO: func(req dto.UpdatePaymentMethodRequest, existing *paymentmethod.PaymentMethod) error {
				existing.Name = req.Name
				if req.IsCashEquivalent != nil {
					existing.IsCashEquivalent = *req.IsCashEquivalent
				}
				if req.Version > 0 {
					existing.Version = req.Version
				}
				return nil
			},
			EntityID: func(m *paymentmethod.PaymentMethod) string { return m.ID.String() },
		}),
		service: svc,
	}
}

// ListCashEquivalent handles GET /payment-methods/cash-equivalent.
func (h *PaymentMethodHandler) ListCashEquivalent(c *gin.Context) {
	methods, err := h.service.ListCashEquivalent(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      methods,
		TotalCount: int64(len(methods)),
		Limit:      len(methods),
	})
}
