package handlers

import (
	"github.com/gin-gonic/gin"

	"hospicore/internal/core/apperror"
	"hospicore/internal/core/entity"
	"hospicore/internal/core/id"
	"hospicore/internal/domain/registers/stock"
	"hospicore/internal/infrastructure/http/v1/dto"
)

// StockHandler serves the stock register: availability checks, receipts,
// adjustments, thresholds, alerts and the movement ledger. All routes are
// center-scoped.
type StockHandler struct {
	*BaseHandler
	service *stock.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, svc *stock.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, service: svc}
}

func (h *StockHandler) parseDemands(c *gin.Context, lines []dto.DemandLine) ([]stock.Demand, bool) {
	demands := make([]stock.Demand, 0, len(lines))
	for i, line := range lines {
		productID, err := id.Parse(line.ProductID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid product id").
				WithDetail("lineNo", i+1).
				WithDetail("value", line.ProductID))
			return nil, false
		}
		demands = append(demands, stock.Demand{ProductID: productID, Quantity: line.Quantity})
	}
	return demands, true
}

// CheckAvailability handles POST /centers/:centerId/stock/check-availability.
func (h *StockHandler) CheckAvailability(c *gin.Context) {
	centerID, ok := h.ParseID(c, "centerId")
	if !ok {
		return
	}

	var req dto.CheckAvailabilityRequest
	if !h.BindJSON(c, &req) {
		return
	}

	demands, ok := h.parseDemands(c, req.Items)
	if !ok {
		return
	}

	availability, err := h.service.CheckAvailability(c.Request.Context(), centerID, demands)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, availability)
}

// Receive handles POST /centers/:centerId/stock/receive.
func (h *StockHandler) Receive(c *gin.Context) {
	centerID, ok := h.ParseID(c, "centerId")
	if !ok {
		return
	}

	var req dto.ReceiveStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	demands, ok := h.parseDemands(c, req.Items)
	if !ok {
		return
	}

	ref := stock.Reference{
		Type:     req.ReferenceType,
		Movement: entity.MovementReceipt,
	}
	if ref.Type == "" {
		ref.Type = "StockReceipt"
	}
	if req.ReferenceID != "" {
		refID, err := id.Parse(req.ReferenceID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid reference id"))
			return
		}
		ref.ID = refID
	} else {
		ref.ID = id.New()
	}

	results, err := h.service.Receive(c.Request.Context(), centerID, demands, ref, h.ActorID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, results)
}

// Adjust handles POST /centers/:centerId/stock/adjust.
func (h *StockHandler) Adjust(c *gin.Context) {
	centerID, ok := h.ParseID(c, "centerId")
	if !ok {
		return
	}

	var req dto.AdjustStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	productID, err := id.Parse(req.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid product id"))
		return
	}

	result, err := h.service.Adjust(c.Request.Context(), centerID, productID, req.Delta, req.Reason, h.ActorID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// GetInventory handles GET /centers/:centerId/stock/:productId.
func (h *StockHandler) GetInventory(c *gin.Context) {
	centerID, ok := h.ParseID(c, "centerId")
	if !ok {
		return
	}
	productID, ok := h.ParseID(c, "productId")
	if !ok {
		return
	}

	inv, err := h.service.GetInventory(c.Request.Context(), productID, centerID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, inv)
}

// GetAlerts handles GET /centers/:centerId/stock/alerts.
func (h *StockHandler) GetAlerts(c *gin.Context) {
	centerID, ok := h.ParseID(c, "centerId")
	if !ok {
		return
	}

	alerts, err := h.service.GetAlerts(c.Request.Context(), centerID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, alerts)
}

// GetMovements handles GET /centers/:centerId/stock/movements.
func (h *StockHandler) GetMovements(c *gin.Context) {
	centerID, ok := h.ParseID(c, "centerId")
	if !ok {
		return
	}

	filter := stock.MovementFilter{
		Limit:  h.ParseIntQuery(c, "limit", 100),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	if productParam := c.Query("productId"); productParam != "" {
		productID, err := id.Parse(productParam)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid product id"))
			return
		}
		filter.ProductID = &productID
	}

	if typeParam := c.Query("movementType"); typeParam != "" {
		mt := entity.MovementType(typeParam)
		filter.MovementType = &mt
	}

	from, ok := h.ParseTimeQuery(c, "from")
	if !ok {
		return
	}
	filter.FromDate = from

	to, ok := h.ParseTimeQuery(c, "to")
	if !ok {
		return
	}
	filter.ToDate = to

	movements, err := h.service.GetMovementHistory(c.Request.Context(), centerID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, movements)
}

// SetThresholds handles PUT /centers/:centerId/stock/thresholds.
func (h *StockHandler) SetThresholds(c *gin.Context) {
	centerID, ok := h.ParseID(c, "centerId")
	if !ok {
		return
	}

	var req dto.SetThresholdsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	productID, err := id.Parse(req.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid product id"))
		return
	}

	if err := h.service.SetThresholds(c.Request.Context(), productID, centerID, req.Minimum, req.Maximum, h.ActorID(c)); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "thresholds updated")
}
