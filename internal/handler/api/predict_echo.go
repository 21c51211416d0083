package api

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"CardioStage/internal/domain/models"
	"CardioStage/internal/service/ratelimit"
	"CardioStage/internal/usecase"
	"CardioStage/pkg/cache"
	xhttp "CardioStage/pkg/http"
	xlogger "CardioStage/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PredictHandler serves the prediction API.
type PredictHandler struct {
	logger    *xlogger.Logger
	evaluator *usecase.Evaluator
	cache     cache.Service
	cacheTTL  time.Duration
	limiter   *ratelimit.Limiter
	docs      apiDoc
}

var _ xhttp.Handler = (*PredictHandler)(nil)

type PredictOption func(*PredictHandler)

// WithResultCache caches results by canonical record for ttl.
func WithResultCache(c cache.Service, ttl time.Duration) PredictOption {
	return func(h *PredictHandler) {
		if c != nil {
			h.cache = c
			h.cacheTTL = ttl
		}
	}
}

// WithRateLimiter limits predict requests per client IP.
func WithRateLimiter(l *ratelimit.Limiter) PredictOption {
	return func(h *PredictHandler) { h.limiter = l }
}

func NewPredictHandler(logger *xlogger.Logger, evaluator *usecase.Evaluator, opts ...PredictOption) *PredictHandler {
	h := &PredictHandler{logger: logger, evaluator: evaluator, docs: buildDocs()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *PredictHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/predict", h.Predict)
	g.Match([]string{http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodHead}, "/predict", h.MethodNotAllowed)
	g.GET("/docs", h.Docs)
	g.GET("/health", h.Health)
}

// Predict evaluates one patient record.
func (h *PredictHandler) Predict(c echo.Context) error {
	if h.limiter != nil {
		if ok, wait := h.limiter.Allow(c.RealIP()); !ok {
			c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("Too many requests"))
		}
	}

	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationErrorResponse(c, verr)
	}
	rec := req.Record()
	requestID := xhttp.RequestID(c)

	key := cache.GenerateKey("predict", cache.HashKey(h.cacheKey(rec)))
	res, hit, err := cache.GetOrLoad(c.Request().Context(), h.cache, key, h.cacheTTL,
		func(ctx context.Context) (models.PredictionResult, error) {
			return h.evaluator.EvaluateFrom(ctx, models.SourceHTTP, requestID, rec)
		})
	if err != nil {
		appErr := FromDomainError(err)
		if appErr.Status >= http.StatusInternalServerError {
			h.logger.Error("predict usecase error",
				xlogger.String("request_id", requestID),
				xlogger.Error(err),
			)
		}
		return xhttp.AppErrorResponse(c, appErr)
	}
	if h.cache != nil {
		if hit {
			c.Response().Header().Set("X-Cache", "HIT")
		} else {
			c.Response().Header().Set("X-Cache", "MISS")
		}
	}
	return xhttp.JSONResponse(c, http.StatusOK, models.NewPredictResponse(res))
}

// MethodNotAllowed answers every non-POST method on the predict route.
func (h *PredictHandler) MethodNotAllowed(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderAllow, http.MethodPost+", "+http.MethodOptions)
	return xhttp.AppErrorResponse(c, xhttp.MethodNotAllowedError(c.Request().Method))
}

// Health reports whether the model is loaded.
func (h *PredictHandler) Health(c echo.Context) error {
	details := map[string]string{
		"model":             h.evaluator.ModelName(),
		"strict_categories": strconv.FormatBool(h.evaluator.Strict()),
	}
	if !h.evaluator.Ready() {
		details["model"] = "not loaded"
		return c.JSON(http.StatusServiceUnavailable, xhttp.HealthResponse{Status: "unavailable", Details: details})
	}
	return c.JSON(http.StatusOK, xhttp.HealthResponse{Status: "ok", Details: details})
}

// cacheKey covers everything that can change the result for rec.
func (h *PredictHandler) cacheKey(rec models.RawRecord) string {
	return rec.CanonicalKey() + "|model=" + h.evaluator.ModelName() + "|strict=" + strconv.FormatBool(h.evaluator.Strict())
}
