package autolink

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	appcontext "github.com/Ramsey-B/bramble/pkg/context"
	"github.com/Ramsey-B/bramble/pkg/models"
)

// Runner executes auto-link runs for inbound messages
type Runner interface {
	Run(ctx context.Context, tenantID string, msg models.InboundMessage, threshold float64) models.AutoLinkResult
}

// Handler handles on-demand auto-link runs
type Handler struct {
	logger   ectologger.Logger
	runner   Runner
	validate *validator.Validate
}

// NewHandler creates a new auto-link handler
func NewHandler(logger ectologger.Logger, runner Runner) *Handler {
	return &Handler{
		logger:   logger,
		runner:   runner,
		validate: validator.New(),
	}
}

// Register registers auto-link routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("", h.RunAutoLink)
}

// RunAutoLinkRequest carries an inbound message and an optional threshold
// override for a single run
type RunAutoLinkRequest struct {
	ThreadRef   string  `json:"thread_ref" validate:"required,max=255"`
	SenderPhone string  `json:"sender_phone" validate:"omitempty,max=64"`
	SenderEmail string  `json:"sender_email" validate:"omitempty,max=320"`
	SenderName  string  `json:"sender_name" validate:"omitempty,max=512"`
	Content     string  `json:"content" validate:"omitempty,max=65536"`
	Threshold   float64 `json:"threshold" validate:"gte=0,lte=1"`
}

// RunAutoLink runs the auto-link pipeline for a single message
func (h *Handler) RunAutoLink(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "X-Tenant-ID header is required")
	}

	var req RunAutoLinkRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result := h.runner.Run(ctx, tenantID, models.InboundMessage{
		ThreadRef:   req.ThreadRef,
		SenderPhone: req.SenderPhone,
		SenderEmail: req.SenderEmail,
		SenderName:  req.SenderName,
		Content:     req.Content,
		ReceivedAt:  time.Now().UTC(),
	}, req.Threshold)

	return c.JSON(http.StatusOK, result)
}
