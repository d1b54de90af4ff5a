package links

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	appcontext "github.com/Ramsey-B/bramble/pkg/context"
	"github.com/Ramsey-B/bramble/pkg/models"
)

// LinkWriter is the link graph surface the routes expose
type LinkWriter interface {
	CreateLink(ctx context.Context, tenantID string, source, target models.EntityRef, label string, autoLinked bool) bool
	DeleteLink(ctx context.Context, tenantID string, source, target models.EntityRef) bool
	ListLinks(ctx context.Context, tenantID string, ref models.EntityRef, limit int) ([]models.EntityLink, error)
}

// Handler handles entity link routes
type Handler struct {
	logger   ectologger.Logger
	writer   LinkWriter
	validate *validator.Validate
}

// NewHandler creates a new link handler
func NewHandler(logger ectologger.Logger, writer LinkWriter) *Handler {
	return &Handler{
		logger:   logger,
		writer:   writer,
		validate: validator.New(),
	}
}

// Register registers link routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("", h.ListLinks)
	g.POST("", h.CreateLink)
	g.DELETE("", h.DeleteLink)
}

// LinkRequest is the request body for creating or deleting a link
type LinkRequest struct {
	Source models.EntityRef `json:"source" validate:"required"`
	Target models.EntityRef `json:"target" validate:"required"`
	Label  string           `json:"label" validate:"omitempty,max=128"`
}

// CreateLink creates both directions of an entity link
func (h *Handler) CreateLink(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "X-Tenant-ID header is required")
	}

	var req LinkRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if !h.writer.CreateLink(ctx, tenantID, req.Source, req.Target, req.Label, false) {
		return httperror.NewHTTPError(http.StatusBadGateway, "failed to create link")
	}

	return c.JSON(http.StatusCreated, map[string]string{
		"key": models.LinkKey(req.Source.Type, req.Source.ID, req.Target.Type, req.Target.ID),
	})
}

// DeleteLink removes both directions of an entity link
func (h *Handler) DeleteLink(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "X-Tenant-ID header is required")
	}

	var req LinkRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if !h.writer.DeleteLink(ctx, tenantID, req.Source, req.Target) {
		return httperror.NewHTTPError(http.StatusNotFound, "link not found")
	}

	return c.NoContent(http.StatusNoContent)
}

// ListLinks returns the outgoing links of an entity
func (h *Handler) ListLinks(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "X-Tenant-ID header is required")
	}

	entityType := c.QueryParam("type")
	entityID := c.QueryParam("id")
	if entityType == "" || entityID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "type and id query parameters are required")
	}

	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return httperror.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}

	links, err := h.writer.ListLinks(ctx, tenantID, models.EntityRef{
		Type: models.EntityType(entityType),
		ID:   entityID,
	}, limit)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list links")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list links")
	}

	if links == nil {
		links = []models.EntityLink{}
	}
	return c.JSON(http.StatusOK, links)
}
