package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"rwpay/internal/core/id"
	"rwpay/internal/domain"
	"rwpay/internal/domain/catalogs/resident"
	"rwpay/internal/infrastructure/http/v1/dto"
)

// ResidentService is implemented by *resident.Service.
type ResidentService interface {
	Create(ctx context.Context, r *resident.Resident) error
	Update(ctx context.Context, r *resident.Resident) error
	GetByID(ctx context.Context, id id.ID) (*resident.Resident, error)
	Delete(ctx context.Context, id id.ID) error
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*resident.Resident], error)
	IsHouseNumberAvailable(ctx context.Context, houseNumber string, excludeID id.ID) (bool, error)
}

// ResidentHandler serves the resident catalog.
type ResidentHandler struct {
	*BaseHandler
	service ResidentService
}

func NewResidentHandler(base *BaseHandler, service ResidentService) *ResidentHandler {
	return &ResidentHandler{BaseHandler: base, service: service}
}

// List handles GET /residents
func (h *ResidentHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToListFilter("house_number")
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(result, dto.FromResident))
}

// Get handles GET /residents/:id
func (h *ResidentHandler) Get(c *gin.Context) {
	residentID, ok := h.PathID(c)
	if !ok {
		return
	}

	r, err := h.service.GetByID(c.Request.Context(), residentID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromResident(r))
}

// Create handles POST /residents
func (h *ResidentHandler) Create(c *gin.Context) {
	var req dto.CreateResidentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	r := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), r); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromResident(r))
}

// Update handles PUT /residents/:id
func (h *ResidentHandler) Update(c *gin.Context) {
	residentID, ok := h.PathID(c)
	if !ok {
		return
	}

	var req dto.UpdateResidentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	r, err := h.service.GetByID(ctx, residentID)
	if err != nil {
		h.Error(c, err)
		return
	}

	req.ApplyTo(r)
	if err := h.service.Update(ctx, r); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromResident(r))
}

// Delete handles DELETE /residents/:id (sets the deletion mark).
func (h *ResidentHandler) Delete(c *gin.Context) {
	residentID, ok := h.PathID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), residentID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// HouseNumberAvailable handles GET /residents/house-number-available
func (h *ResidentHandler) HouseNumberAvailable(c *gin.Context) {
	var q dto.HouseNumberQuery
	if !h.BindQuery(c, &q) {
		return
	}

	var exclude id.ID
	if q.ExcludeID != "" {
		var err error
		if exclude, err = dto.ParseID("excludeId", q.ExcludeID); err != nil {
			h.Error(c, err)
			return
		}
	}

	available, err := h.service.IsHouseNumberAvailable(c.Request.Context(), q.HouseNumber, exclude)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.HouseNumberAvailability{
		HouseNumber: resident.NormalizeHouseNumber(q.HouseNumber),
		Available:   available,
	})
}
