package api

import (
	"net/http"
	"strconv"
	"time"

	"CardioStage/internal/domain/models"
	domrepo "CardioStage/internal/domain/repository"
	xhttp "CardioStage/pkg/http"
	xlogger "CardioStage/pkg/logger"
	"CardioStage/pkg/util"

	"github.com/labstack/echo/v4"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// AuditHandler exposes recent audited predictions from the store.
type AuditHandler struct {
	logger *xlogger.Logger
	store  domrepo.PredictionStore
}

var _ xhttp.Handler = (*AuditHandler)(nil)

func NewAuditHandler(logger *xlogger.Logger, store domrepo.PredictionStore) *AuditHandler {
	return &AuditHandler{logger: logger, store: store}
}

func (h *AuditHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/predictions", h.Recent)
}

type recentResponse struct {
	Status      string                    `json:"status"`
	Count       int                       `json:"count"`
	Predictions []*models.PredictionEvent `json:"predictions"`
}

// Recent lists audited predictions, newest first. Query: limit (1..500)
// and since (RFC3339 or unix seconds).
func (h *AuditHandler) Recent(c echo.Context) error {
	limit := util.ClampInt(util.ParseIntDefault(c.QueryParam("limit"), defaultAuditLimit), 1, maxAuditLimit)
	since := time.Time{}
	if raw := c.QueryParam("since"); raw != "" {
		t, ok := util.ParseTime(raw)
		if !ok {
			return xhttp.AppErrorResponse(c,
				xhttp.NewAppError("ERR_INVALID_PARAM", "since", "since must be RFC3339 or unix seconds", http.StatusBadRequest))
		}
		since = t
	}

	events, err := h.store.Recent(c.Request().Context(), since, limit)
	if err != nil {
		h.logger.Error("recent predictions error",
			xlogger.Int("limit", limit),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("audit store is not available").WithError(err))
	}
	if events == nil {
		events = []*models.PredictionEvent{}
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	c.Response().Header().Set("X-Result-Limit", strconv.Itoa(limit))
	return xhttp.JSONResponse(c, http.StatusOK, recentResponse{
		Status:      xhttp.StatusSuccess,
		Count:       len(events),
		Predictions: events,
	})
}
