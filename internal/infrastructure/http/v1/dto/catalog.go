package dto

// --- Hospital centers ---

// CreateCenterRequest creates a hospital center.
type CreateCenterRequest struct {
	Code     string `json:"code" binding:"required"`
	Name     string `json:"name" binding:"required"`
	City     string `json:"city"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Timezone string `json:"timezone"`
}

// UpdateCenterRequest updates a hospital center. The version field carries
// the optimistic-lock token the client last read.
type UpdateCenterRequest struct {
	Name     string `json:"name" binding:"required"`
	City     string `json:"city"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Timezone string `json:"timezone"`
	Version  int    `json:"version"`
}

// --- Products ---

// CreateProductRequest creates a product.
type CreateProductRequest struct {
	Code      string `json:"code" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Form      string `json:"form" binding:"required"`
	Unit      string `json:"unit" binding:"required"`
	UnitPrice string `json:"unitPrice" binding:"required"`
}

// UpdateProductRequest updates a product.
type UpdateProductRequest struct {
	Name      string `json:"name" binding:"required"`
	Form      string `json:"form" binding:"required"`
	Unit      string `json:"unit" binding:"required"`
	UnitPrice string `json:"unitPrice" binding:"required"`
	Version   int    `json:"version"`
}

// --- Financiers ---

// CreateFinancierRequest creates a financier.
type CreateFinancierRequest struct {
	Code         string `json:"code" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Phone        string `json:"phone"`
	Organization string `json:"organization"`
}

// UpdateFinancierRequest updates a financier.
type UpdateFinancierRequest struct {
	Name         string `json:"name" binding:"required"`
	Phone        string `json:"phone"`
	Organization string `json:"organization"`
	Version      int    `json:"version"`
}

// SetFinancierActiveRequest toggles the active flag.
type SetFinancierActiveRequest struct {
	Active bool `json:"active"`
}

// --- Payment methods ---

// CreatePaymentMethodRequest creates a payment method. IsCashEquivalent is
// optional: when absent, the classifier suggests the flag from code and name.
type CreatePaymentMethodRequest struct {
	Code             string `json:"code" binding:"required"`
	Name             string `json:"name" binding:"required"`
	IsCashEquivalent *bool  `json:"isCashEquivalent"`
}

// UpdatePaymentMethodRequest updates a payment method.
type UpdatePaymentMethodRequest struct {
	Name             string `json:"name" binding:"required"`
	IsCashEquivalent *bool  `json:"isCashEquivalent"`
	Version          int    `json:"version"`
}
