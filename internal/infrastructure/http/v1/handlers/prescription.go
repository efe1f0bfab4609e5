package handlers

import (
	"github.com/gin-gonic/gin"

	"hospicore/internal/core/apperror"
	"hospicore/internal/core/clock"
	"hospicore/internal/core/id"
	"hospicore/internal/domain"
	"hospicore/internal/domain/prescriptions"
	"hospicore/internal/infrastructure/http/v1/dto"
)

// PrescriptionHandler serves the prescription lifecycle.
type PrescriptionHandler struct {
	*BaseHandler
	service *prescriptions.Service
	clock   clock.Clock
}

// NewPrescriptionHandler creates a new prescription handler.
func NewPrescriptionHandler(base *BaseHandler, svc *prescriptions.Service, clk clock.Clock) *PrescriptionHandler {
	return &PrescriptionHandler{BaseHandler: base, service: svc, clock: clk}
}

// Create handles POST /centers/:centerId/prescriptions.
func (h *PrescriptionHandler) Create(c *gin.Context) {
	centerID, ok := h.ParseID(c, "centerId")
	if !ok {
		return
	}

	var req dto.CreatePrescriptionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p := prescriptions.NewPrescription(centerID, req.PatientName, req.PrescribedBy, h.clock.Now())
	p.Comment = req.Comment

	if req.EpisodeID != "" {
		episodeID, err := id.Parse(req.EpisodeID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid episode id"))
			return
		}
		p.EpisodeID = &episodeID
	}

	for i, line := range req.Lines {
		productID, err := id.Parse(line.ProductID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid product id").
				WithDetail("lineNo", i+1))
			return
		}
		p.AddLine(productID, line.Quantity, line.Dosage)
	}

	if err := h.service.Create(c.Request.Context(), p, h.ActorID(c)); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, p.ID.String())
}

// Get handles GET /prescriptions/:id.
func (h *PrescriptionHandler) Get(c *gin.Context) {
	prescriptionID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), prescriptionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, p)
}

// List handles GET /centers/:centerId/prescriptions.
func (h *PrescriptionHandler) List(c *gin.Context) {
	centerID, ok := h.ParseID(c, "centerId")
	if !ok {
		return
	}

	filter := prescriptions.ListFilter{
		ListFilter: domain.ListFilter{
			Search:  c.Query("search"),
			Limit:   h.ParseIntQuery(c, "limit", 50),
			Offset:  h.ParseIntQuery(c, "offset", 0),
			OrderBy: c.Query("orderBy"),
		},
		HospitalCenterID: &centerID,
	}

	if statusParam := c.Query("status"); statusParam != "" {
		status := prescriptions.Status(statusParam)
		filter.Status = &status
	}

	if episodeParam := c.Query("episodeId"); episodeParam != "" {
		episodeID, err := id.Parse(episodeParam)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid episode id"))
			return
		}
		filter.EpisodeID = &episodeID
	}

	from, ok := h.ParseTimeQuery(c, "from")
	if !ok {
		return
	}
	filter.DateFrom = from

	to, ok := h.ParseTimeQuery(c, "to")
	if !ok {
		return
	}
	filter.DateTo = to

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      result.Items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Dispense handles POST /prescriptions/:id/dispense.
func (h *PrescriptionHandler) Dispense(c *gin.Context) {
	prescriptionID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	p, err := h.service.Dispense(c.Request.Context(), prescriptionID, h.ActorID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, p)
}

// Cancel handles POST /prescriptions/:id/cancel.
func (h *PrescriptionHandler) Cancel(c *gin.Context) {
	prescriptionID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Cancel(c.Request.Context(), prescriptionID, h.ActorID(c)); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "prescription cancelled")
}
