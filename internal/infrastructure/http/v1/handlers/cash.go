package handlers

import (
	"github.com/gin-gonic/gin"

	"hospicore/internal/core/apperror"
	"hospicore/internal/core/id"
	"hospicore/internal/core/types"
	"hospicore/internal/domain/registers/cash"
	"hospicore/internal/infrastructure/http/v1/dto"
)

// CashHandler serves the cash ledger: balances, the reconciled movement
// history, the cash position and handovers.
type CashHandler struct {
	*BaseHandler
	service *cash.Service
}

// NewCashHandler creates a new cash handler.
func NewCashHandler(base *BaseHandler, svc *cash.Service) *CashHandler {
	return &CashHandler{BaseHandler: base, service: svc}
}

// GetBalance handles GET /centers/:centerId/cash/balance.
// An optional asOf query parameter returns the balance as it stood just
// before that instant.
func (h *CashHandler) GetBalance(c *gin.Context) {
	centerID, ok := h.ParseID(c, "centerId")
	if !ok {
		return
	}

	asOf, ok := h.ParseTimeQuery(c, "asOf")
	if !ok {
		return
	}

	var (
		balance types.Money
		err     error
	)
	if asOf != nil {
		balance, err = h.service.BalanceAsOf(c.Request.Context(), centerID, *asOf)
	} else {
		balance, err = h.service.CurrentBalance(c.Request.Context(), centerID)
	}
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.BalanceResponse{
		HospitalCenterID: centerID.String(),
		Balance:          balance.String(),
		AsOf:             asOf,
	})
}

// GetPosition handles GET /centers/:centerId/cash/position.
func (h *CashHandler) GetPosition(c *gin.Context) {
	centerID, ok := h.ParseID(c, "centerId")
	if !ok {
		return
	}

	position, err := h.service.CashPosition(c.Request.Context(), centerID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, position)
}

// GetMovements handles GET /centers/:centerId/cash/movements.
func (h *CashHandler) GetMovements(c *gin.Context) {
	centerID, ok := h.ParseID(c, "centerId")
	if !ok {
		return
	}

	filter, ok := h.parseHistoryFilter(c)
	if !ok {
		return
	}

	movements, err := h.service.MovementHistory(c.Request.Context(), centerID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, movements)
}

// CreateHandover handles POST /centers/:centerId/cash/handovers.
func (h *CashHandler) CreateHandover(c *gin.Context) {
	centerID, ok := h.ParseID(c, "centerId")
	if !ok {
		return
	}

	var req dto.CreateHandoverRequest
	if !h.BindJSON(c, &req) {
		return
	}

	financierID, err := id.Parse(req.FinancierID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid financier id"))
		return
	}

	total, err := types.NewMoneyFromString(req.TotalCashAmount)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid total cash amount").
			WithDetail("value", req.TotalCashAmount))
		return
	}

	handover, err := types.NewMoneyFromString(req.HandoverAmount)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid handover amount").
			WithDetail("value", req.HandoverAmount))
		return
	}

	remaining := types.ZeroMoney()
	if req.RemainingCashAmount != "" {
		remaining, err = types.NewMoneyFromString(req.RemainingCashAmount)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid remaining cash amount").
				WithDetail("value", req.RemainingCashAmount))
			return
		}
	}

	created, err := h.service.CreateHandover(c.Request.Context(), cash.CreateHandoverInput{
		HospitalCenterID:    centerID,
		FinancierID:         financierID,
		TotalCashAmount:     total,
		HandoverAmount:      handover,
		RemainingCashAmount: remaining,
		Comment:             req.Comment,
	}, h.ActorID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, created)
}

// GetHandover handles GET /cash/handovers/:id.
func (h *CashHandler) GetHandover(c *gin.Context) {
	handoverID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	handover, err := h.service.GetHandover(c.Request.Context(), handoverID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, handover)
}

// ListHandovers handles GET /centers/:centerId/cash/handovers.
func (h *CashHandler) ListHandovers(c *gin.Context) {
	centerID, ok := h.ParseID(c, "centerId")
	if !ok {
		return
	}

	filter, ok := h.parseHistoryFilter(c)
	if !ok {
		return
	}

	handovers, err := h.service.ListHandovers(c.Request.Context(), centerID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, handovers)
}

func (h *CashHandler) parseHistoryFilter(c *gin.Context) (cash.HistoryFilter, bool) {
	filter := cash.HistoryFilter{
		Limit:  h.ParseIntQuery(c, "limit", 100),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	from, ok := h.ParseTimeQuery(c, "from")
	if !ok {
		return filter, false
	}
	filter.FromDate = from

	to, ok := h.ParseTimeQuery(c, "to")
	if !ok {
		return filter, false
	}
	filter.ToDate = to

	return filter, true
}
