package contacts

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	appcontext "github.com/Ramsey-B/bramble/pkg/context"
	"github.com/Ramsey-B/bramble/pkg/models"
)

// ContactStore is the contact persistence surface the routes expose
type ContactStore interface {
	Create(ctx context.Context, tenantID string, req *models.CreateContactRequest) (*models.Contact, error)
	Get(ctx context.Context, tenantID string, id string) (*models.Contact, error)
	Delete(ctx context.Context, tenantID string, id string) error
}

// Handler handles contact routes
type Handler struct {
	logger   ectologger.Logger
	store    ContactStore
	validate *validator.Validate
}

// NewHandler creates a new contact handler
func NewHandler(logger ectologger.Logger, store ContactStore) *Handler {
	return &Handler{
		logger:   logger,
		store:    store,
		validate: validator.New(),
	}
}

// Register registers contact routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("", h.CreateContact)
	g.GET("/:id", h.GetContact)
	g.DELETE("/:id", h.DeleteContact)
}

// CreateContact creates a contact with its endpoints
func (h *Handler) CreateContact(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "X-Tenant-ID header is required")
	}

	var req models.CreateContactRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	contact, err := h.store.Create(ctx, tenantID, &req)
	if err != nil {
		return err
	}

	h.logger.WithContext(ctx).WithFields(map[string]any{
		"contact_id": contact.ID,
	}).Info("Created contact")

	return c.JSON(http.StatusCreated, contact)
}

// GetContact fetches a contact by ID
func (h *Handler) GetContact(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "X-Tenant-ID header is required")
	}

	contact, err := h.store.Get(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, contact)
}

// DeleteContact removes a contact and its endpoints
func (h *Handler) DeleteContact(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "X-Tenant-ID header is required")
	}

	if err := h.store.Delete(ctx, tenantID, c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
