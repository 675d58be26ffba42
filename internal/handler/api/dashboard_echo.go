package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"SentiDash/internal/domain/models"
	"SentiDash/internal/service/metrics"
	"SentiDash/internal/service/ratelimit"
	"SentiDash/internal/services/features"
	"SentiDash/internal/usecase"
	xhttp "SentiDash/pkg/http"
	xlogger "SentiDash/pkg/logger"
	"SentiDash/pkg/util"
)

// DashboardEchoHandler serves the dashboard API.
type DashboardEchoHandler struct {
	logger   *xlogger.Logger
	pipeline *usecase.Pipeline
	hub      *Hub
	metrics  *metrics.Dashboard
	rl       *ratelimit.Limiter
}

func NewDashboardEchoHandler(logger *xlogger.Logger, p *usecase.Pipeline, hub *Hub, m *metrics.Dashboard, rl *ratelimit.Limiter) *DashboardEchoHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	if rl == nil {
		rl = ratelimit.New(0, 0)
	}
	return &DashboardEchoHandler{logger: logger, pipeline: p, hub: hub, metrics: m, rl: rl}
}

func (h *DashboardEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/features", h.Features)
	g.GET("/model", h.Model)
	g.POST("/predictions", h.Record)
	g.GET("/predictions/latest", h.Latest)
	g.GET("/ledger", h.Ledger)
	g.GET("/insights", h.Insights)
	g.POST("/refresh", h.Refresh)
	if h.hub != nil {
		g.GET("/stream", h.hub.Serve)
	}
}

func (h *DashboardEchoHandler) fail(c echo.Context, endpoint string, start time.Time, err error) error {
	appErr := toAppError(err)
	h.metrics.Observe(endpoint, start, appErr.Code)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(endpoint+" usecase error", xlogger.Error(err))
	} else {
		h.logger.Warn(endpoint+" rejected", xlogger.String("code", appErr.Code), xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func (h *DashboardEchoHandler) limited(c echo.Context, endpoint string) bool {
	return !h.rl.Allow(c.RealIP() + ":" + endpoint)
}

func (h *DashboardEchoHandler) Features(c echo.Context) error {
	start := time.Now()
	req := &models.FeaturesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, _ := util.ParseDate(req.From)
	to, _ := util.ParseDate(req.To)
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("to must not be before from"))
	}

	rows, err := h.pipeline.Features(c.Request().Context(), usecase.FeatureQuery{
		From:     from,
		To:       to,
		Modeling: req.Modeling,
		Limit:    req.Limit,
	})
	if err != nil {
		return h.fail(c, "features", start, err)
	}
	out := models.FeaturesResponse{
		Rows:       make([]models.FeatureRowResponse, len(rows)),
		ReturnUnit: features.ReturnUnit,
	}
	for i, r := range rows {
		out.Rows[i] = models.NewFeatureRowResponse(r)
	}
	if snap, err := h.pipeline.Snapshot(c.Request().Context()); err == nil {
		out.Window = snap.Table.Window
	}
	h.metrics.Observe("features", start, "")
	return xhttp.SuccessResponse(c, out)
}

func (h *DashboardEchoHandler) Model(c echo.Context) error {
	start := time.Now()
	rep, err := h.pipeline.Model(c.Request().Context())
	if err != nil {
		return h.fail(c, "model", start, err)
	}
	h.metrics.Observe("model", start, "")
	return xhttp.SuccessResponse(c, rep)
}

func (h *DashboardEchoHandler) Record(c echo.Context) error {
	start := time.Now()
	if h.limited(c, "predictions") {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}
	res, err := h.pipeline.Run(c.Request().Context())
	if err != nil {
		return h.fail(c, "predictions", start, err)
	}
	h.metrics.Observe("predictions", start, "")
	return xhttp.CreatedResponse(c, res)
}

func (h *DashboardEchoHandler) Latest(c echo.Context) error {
	start := time.Now()
	pred, err := h.pipeline.LatestPrediction(c.Request().Context())
	if err != nil {
		return h.fail(c, "predictions_latest", start, err)
	}
	h.metrics.Observe("predictions_latest", start, "")
	return xhttp.SuccessResponse(c, pred)
}

func (h *DashboardEchoHandler) Ledger(c echo.Context) error {
	start := time.Now()
	req := &models.LedgerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rep, err := h.pipeline.History(c.Request().Context(), req.Limit)
	if err != nil {
		return h.fail(c, "ledger", start, err)
	}
	h.metrics.Observe("ledger", start, "")
	return xhttp.SuccessResponse(c, rep)
}

func (h *DashboardEchoHandler) Insights(c echo.Context) error {
	start := time.Now()
	rep, err := h.pipeline.Insights(c.Request().Context())
	if err != nil {
		return h.fail(c, "insights", start, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	h.metrics.Observe("insights", start, "")
	return xhttp.SuccessResponse(c, rep)
}

func (h *DashboardEchoHandler) Refresh(c echo.Context) error {
	start := time.Now()
	req := &models.RefreshRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.limited(c, "refresh") {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}
	ctx := c.Request().Context()
	changed, err := h.pipeline.Refresh(ctx, req.Invalidate)
	if err != nil {
		return h.fail(c, "refresh", start, err)
	}
	out := models.RefreshResponse{Changed: changed}
	if snap, err := h.pipeline.Snapshot(ctx); err == nil {
		out.Fingerprint = snap.Fingerprint
	}
	h.metrics.Observe("refresh", start, "")
	return xhttp.SuccessResponse(c, out)
}
