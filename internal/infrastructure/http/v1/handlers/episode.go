package handlers

import (
	"github.com/gin-gonic/gin"

	"hospicore/internal/core/apperror"
	"hospicore/internal/core/clock"
	"hospicore/internal/core/id"
	"hospicore/internal/domain"
	"hospicore/internal/domain/episodes"
	"hospicore/internal/infrastructure/http/v1/dto"
)

// EpisodeHandler serves the care episode lifecycle.
type EpisodeHandler struct {
	*BaseHandler
	service *episodes.Service
	clock   clock.Clock
}

// NewEpisodeHandler creates a new episode handler.
func NewEpisodeHandler(base *BaseHandler, svc *episodes.Service, clk clock.Clock) *EpisodeHandler {
	return &EpisodeHandler{BaseHandler: base, service: svc, clock: clk}
}

// Admit handles POST /centers/:centerId/episodes.
func (h *EpisodeHandler) Admit(c *gin.Context) {
	centerID, ok := h.ParseID(c, "centerId")
	if !ok {
		return
	}

	var req dto.AdmitEpisodeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ep := episodes.NewCareEpisode(centerID, req.PatientName, h.clock.Now())
	ep.PatientNumber = req.PatientNumber
	ep.Diagnosis = req.Diagnosis
	ep.AttendingDoctor = req.AttendingDoctor
	ep.Comment = req.Comment

	if err := h.service.Admit(c.Request.Context(), ep, h.ActorID(c)); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, ep.ID.String())
}

// Get handles GET /episodes/:id.
func (h *EpisodeHandler) Get(c *gin.Context) {
	episodeID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	ep, err := h.service.GetByID(c.Request.Context(), episodeID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, ep)
}

// List handles GET /centers/:centerId/episodes.
func (h *EpisodeHandler) List(c *gin.Context) {
	centerID, ok := h.ParseID(c, "centerId")
	if !ok {
		return
	}

	filter := episodes.ListFilter{
		ListFilter: domain.ListFilter{
			Search:  c.Query("search"),
			Limit:   h.ParseIntQuery(c, "limit", 50),
			Offset:  h.ParseIntQuery(c, "offset", 0),
			OrderBy: c.Query("orderBy"),
		},
		HospitalCenterID: &centerID,
	}

	if statusParam := c.Query("status"); statusParam != "" {
		status := episodes.Status(statusParam)
		filter.Status = &status
	}

	from, ok := h.ParseTimeQuery(c, "admittedFrom")
	if !ok {
		return
	}
	filter.AdmittedFrom = from

	to, ok := h.ParseTimeQuery(c, "admittedTo")
	if !ok {
		return
	}
	filter.AdmittedTo = to

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

// RecordUsage handles POST /episodes/:id/usages.
func (h *EpisodeHandler) RecordUsage(c *gin.Context) {
	episodeID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.RecordUsageRequest
	if !h.BindJSON(c, &req) {
		return
	}

	items := make([]episodes.UsageItem, 0, len(req.Items))
	for i, line := range req.Items {
		productID, err := id.Parse(line.ProductID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid product id").
				WithDetail("lineNo", i+1))
			return
		}
		items = append(items, episodes.UsageItem{ProductID: productID, Quantity: line.Quantity})
	}

	usages, err := h.service.RecordProductUsage(c.Request.Context(), episodeID, items, h.ActorID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, usages)
}

// Complete handles POST /episodes/:id/complete.
func (h *EpisodeHandler) Complete(c *gin.Context) {
	episodeID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Complete(c.Request.Context(), episodeID, h.ActorID(c)); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "episode completed")
}

// Cancel handles POST /episodes/:id/cancel.
func (h *EpisodeHandler) Cancel(c *gin.Context) {
	episodeID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Cancel(c.Request.Context(), episodeID, h.ActorID(c)); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "episode cancelled")
}
