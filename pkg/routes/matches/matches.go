package matches

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

// Matcher suggests contact candidates for a set of identity signals
type Matcher interface {
	SuggestMatches(ctx context.Context, tenantID string, signals models.MatchSignals, limit int) ([]models.MatchCandidate, error)
}

// Handler handles match suggestion routes
type Handler struct {
	logger   ectologger.Logger
	matcher  Matcher
	validate *validator.Validate
}

// NewHandler creates a new match handler
func NewHandler(logger ectologger.Logger, matcher Matcher) *Handler {
	return &Handler{
		logger:   logger,
		matcher:  matcher,
		validate: validator.New(),
	}
}

// Register registers match routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("/suggest", h.SuggestMatches)
}

// SuggestMatchesRequest is the request body for match suggestions
type SuggestMatchesRequest struct {
	Phone string `json:"phone" validate:"omitempty,max=64"`
	Email string `json:"email" validate:"omitempty,max=320"`
	Name  string `json:"name" validate:"omitempty,max=512"`
	Limit int    `json:"limit" validate:"gte=0,lte=50"`
}

// SuggestMatchesResponse is the response body for match suggestions
type SuggestMatchesResponse struct {
	Candidates []models.MatchCandidate `json:"candidates"`
}

// SuggestMatches returns contact candidates ranked by blended confidence
func (h *Handler) SuggestMatches(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "X-Tenant-ID header is required")
	}

	var req SuggestMatchesRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	candidates, err := h.matcher.SuggestMatches(ctx, tenantID, models.MatchSignals{
		Phone: req.Phone,
		Email: req.Email,
		Name:  req.Name,
	}, req.Limit)
	if err != nil {
		return err
	}

	if candidates == nil {
		candidates = []models.MatchCandidate{}
	}
	return c.JSON(http.StatusOK, SuggestMatchesResponse{Candidates: candidates})
}
