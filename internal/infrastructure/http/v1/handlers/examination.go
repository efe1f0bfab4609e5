package handlers

import (
	"github.com/gin-gonic/gin"

	"hospicore/internal/core/apperror"
	"hospicore/internal/core/clock"
	"hospicore/internal/core/id"
	"hospicore/internal/core/types"
	"hospicore/internal/domain"
	"hospicore/internal/domain/examinations"
	"hospicore/internal/infrastructure/http/v1/dto"
)

// ExaminationHandler serves the examination lifecycle.
type ExaminationHandler struct {
	*BaseHandler
	service *examinations.Service
	clock   clock.Clock
}

// NewExaminationHandler creates a new examination handler.
func NewExaminationHandler(base *BaseHandler, svc *examinations.Service, clk clock.Clock) *ExaminationHandler {
	return &ExaminationHandler{BaseHandler: base, service: svc, clock: clk}
}

// Schedule handles POST /centers/:centerId/examinations.
func (h *ExaminationHandler) Schedule(c *gin.Context) {
	centerID, ok := h.ParseID(c, "centerId")
	if !ok {
		return
	}

	var req dto.ScheduleExaminationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ex := examinations.NewExamination(centerID, req.PatientName, req.ExaminationType, req.ScheduledAt, h.clock.Now())
	ex.Comment = req.Comment

	if req.EpisodeID != "" {
		episodeID, err := id.Parse(req.EpisodeID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid episode id"))
			return
		}
		ex.EpisodeID = &episodeID
	}

	if req.Price != "" {
		price, err := types.NewMoneyFromString(req.Price)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid price").WithDetail("value", req.Price))
			return
		}
		ex.Price = price
	}

	if err := h.service.Schedule(c.Request.Context(), ex, h.ActorID(c)); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, ex.ID.String())
}

// Get handles GET /examinations/:id.
func (h *ExaminationHandler) Get(c *gin.Context) {
	examinationID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	ex, err := h.service.GetByID(c.Request.Context(), examinationID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, ex)
}

// List handles GET /centers/:centerId/examinations.
func (h *ExaminationHandler) List(c *gin.Context) {
	centerID, ok := h.ParseID(c, "centerId")
	if !ok {
		return
	}

	filter := examinations.ListFilter{
		ListFilter: domain.ListFilter{
			Search:  c.Query("search"),
			Limit:   h.ParseIntQuery(c, "limit", 50),
			Offset:  h.ParseIntQuery(c, "offset", 0),
			OrderBy: c.Query("orderBy"),
		},
		HospitalCenterID: &centerID,
	}

	if statusParam := c.Query("status"); statusParam != "" {
		status := examinations.Status(statusParam)
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

	from, ok := h.ParseTimeQuery(c, "scheduledFrom")
	if !ok {
		return
	}
	filter.ScheduledFrom = from

	to, ok := h.ParseTimeQuery(c, "scheduledTo")
	if !ok {
		return
	}
	filter.ScheduledTo = to

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

// Start handles POST /examinations/:id/start.
func (h *ExaminationHandler) Start(c *gin.Context) {
	examinationID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Start(c.Request.Context(), examinationID, h.ActorID(c)); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "examination started")
}

// Complete handles POST /examinations/:id/complete.
func (h *ExaminationHandler) Complete(c *gin.Context) {
	examinationID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.CompleteExaminationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.Complete(c.Request.Context(), examinationID, req.Result, h.ActorID(c)); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "examination completed")
}

// Cancel handles POST /examinations/:id/cancel.
func (h *ExaminationHandler) Cancel(c *gin.Context) {
	examinationID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Cancel(c.Request.Context(), examinationID, h.ActorID(c)); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "examination cancelled")
}
