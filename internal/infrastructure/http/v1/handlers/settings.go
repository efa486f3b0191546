package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"rwpay/internal/domain/settings"
	"rwpay/internal/infrastructure/http/v1/dto"
)

// SettingsService is implemented by *settings.Service.
type SettingsService interface {
	Values(ctx context.Context) (settings.Values, error)
	List(ctx context.Context) ([]settings.Setting, error)
	Get(ctx context.Context, key string) (*settings.Setting, error)
	Upsert(ctx context.Context, key, value string) error
	UpsertMany(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, key string) error
}

// SettingsHandler serves association settings.
type SettingsHandler struct {
	*BaseHandler
	service SettingsService
}

func NewSettingsHandler(base *BaseHandler, service SettingsService) *SettingsHandler {
	return &SettingsHandler{BaseHandler: base, service: service}
}

// List handles GET /settings: stored rows plus the typed views the UI renders.
func (h *SettingsHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	items, err := h.service.List(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}
	values, err := h.service.Values(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{
		"items":         items,
		"association":   values.Association(),
		"billing":       values.Billing(),
		"notifications": values.Notifications(),
	})
}

// Get handles GET /settings/:key
func (h *SettingsHandler) Get(c *gin.Context) {
	s, err := h.service.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, s)
}

// Upsert handles PUT /settings/:key
func (h *SettingsHandler) Upsert(c *gin.Context) {
	var req dto.UpsertSettingRequest
	if !h.BindJSON(c, &req) {
		return
	}

	key := c.Param("key")
	if err := h.service.Upsert(c.Request.Context(), key, req.Value); err != nil {
		h.Error(c, err)
		return
	}

	h.Get(c)
}

// UpsertMany handles PUT /settings
func (h *SettingsHandler) UpsertMany(c *gin.Context) {
	var req dto.UpsertSettingsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.UpsertMany(c.Request.Context(), req.Values); err != nil {
		h.Error(c, err)
		return
	}

	h.List(c)
}

// Delete handles DELETE /settings/:key; the key falls back to its default.
func (h *SettingsHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("key")); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}
