package handlers

import (
	"bytes"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg/models"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg/predictor"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg/utils"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg/views"
	"go.uber.org/zap"
)

// APIHandler exposes the three backend calls as JSON view models, plus the charts as PNG.
type APIHandler struct {
	logger *zap.Logger
	client predictor.Predictor
}

func NewAPIHandler(logger *zap.Logger, client predictor.Predictor) *APIHandler {
	return &APIHandler{logger: logger, client: client}
}

// RegisterRoutes registers the JSON routes on the api group and the chart routes on r.
func (h *APIHandler) RegisterRoutes(api *gin.RouterGroup, r *gin.Engine) {
	api.POST("/predict", h.Predict)
	api.GET("/analyze", h.Analyze)
	api.GET("/explain", h.Explain)

	charts := r.Group("/charts")
	charts.GET("/analysis.png", h.AnalysisChart)
	charts.GET("/insights.png", h.InsightsChart)
	charts.GET("/gauge.png", h.GaugeChart)
}

// Predict godoc
// @Summary      Predict a salary
// @Tags         prediction
// @Accept       json
// @Produce      json
// @Param        request  body      models.PredictionRequest  true  "Candidate profile"
// @Success      200      {object}  pkg.APIResponse
// @Failure      400      {object}  pkg.ErrorResponse
// @Failure      502      {object}  pkg.ErrorResponse
// @Failure      504      {object}  pkg.ErrorResponse
// @Router       /predict [post]
func (h *APIHandler) Predict(c *gin.Context) {
	traceID, err := utils.GetTraceID(c)
	if err != nil {
		respondTraceError(c, err)
		return
	}

	var req models.PredictionRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, traceID, pkg.NewAppError(pkg.ErrInvalidInputCode, strings.Join(utils.FormatValidationErrors(err), "; "), err))
		return
	}

	resp, err := h.client.Predict(c.Request.Context(), req)
	if err != nil {
		respondBackendError(c, h.logger, traceID, views.SectionPrediction, err)
		return
	}

	c.JSON(http.StatusOK, pkg.APIResponse{
		TraceID: traceID,
		Data: gin.H{
			"prediction": resp,
			"gauge":      views.NewSalaryGauge(resp),
		},
	})
}

// Analyze godoc
// @Summary      Dataset summary
// @Tags         analysis
// @Produce      json
// @Success      200  {object}  pkg.APIResponse
// @Failure      502  {object}  pkg.ErrorResponse
// @Failure      504  {object}  pkg.ErrorResponse
// @Router       /analyze [get]
func (h *APIHandler) Analyze(c *gin.Context) {
	traceID, err := utils.GetTraceID(c)
	if err != nil {
		respondTraceError(c, err)
		return
	}

	summary, err := h.client.Analyze(c.Request.Context())
	if err != nil {
		respondBackendError(c, h.logger, traceID, views.SectionAnalysis, err)
		return
	}

	c.JSON(http.StatusOK, pkg.APIResponse{
		TraceID: traceID,
		Data: gin.H{
			"summary": summary,
			"view":    views.NewAnalysisView(summary),
		},
	})
}

// Explain godoc
// @Summary      Top feature importances in backend order
// @Tags         insights
// @Produce      json
// @Success      200  {object}  pkg.APIResponse
// @Failure      502  {object}  pkg.ErrorResponse
// @Failure      504  {object}  pkg.ErrorResponse
// @Router       /explain [get]
func (h *APIHandler) Explain(c *gin.Context) {
	traceID, err := utils.GetTraceID(c)
	if err != nil {
		respondTraceError(c, err)
		return
	}

	features, err := h.client.Explain(c.Request.Context())
	if err != nil {
		respondBackendError(c, h.logger, traceID, views.SectionInsights, err)
		return
	}

	c.JSON(http.StatusOK, pkg.APIResponse{
		TraceID: traceID,
		Data: gin.H{
			"top_features": features,
			"view":         views.NewExplainView(features),
		},
	})
}

func (h *APIHandler) AnalysisChart(c *gin.Context) {
	summary, err := h.client.Analyze(c.Request.Context())
	if err != nil {
		respondBackendError(c, h.logger, c.GetString(pkg.TraceId), views.SectionAnalysis, err)
		return
	}
	view := views.NewAnalysisView(summary)
	h.writePNG(c, view.ChartTitle, view.Bars)
}

func (h *APIHandler) InsightsChart(c *gin.Context) {
	features, err := h.client.Explain(c.Request.Context())
	if err != nil {
		respondBackendError(c, h.logger, c.GetString(pkg.TraceId), views.SectionInsights, err)
		return
	}
	view := views.NewExplainView(features)
	h.writePNG(c, view.ChartTitle, view.Bars)
}

// GaugeChart renders the gauge for ?value= without calling the backend.
func (h *APIHandler) GaugeChart(c *gin.Context) {
	value, err := strconv.ParseFloat(c.Query("value"), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		respondError(c, h.logger, c.GetString(pkg.TraceId), pkg.NewAppError(pkg.ErrInvalidInputCode, "value must be a number", err))
		return
	}

	var buf bytes.Buffer
	if err = views.RenderGaugePNG(&buf, views.NewSalaryGauge(models.PredictionResponse{PredictedSalaryUSD: value})); err != nil {
		respondError(c, h.logger, c.GetString(pkg.TraceId), err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (h *APIHandler) writePNG(c *gin.Context, title string, bars []views.Bar) {
	var buf bytes.Buffer
	if err := views.RenderBarPNG(&buf, title, bars); err != nil {
		if errors.Is(err, views.ErrNoBars) {
			c.Status(http.StatusNoContent)
			return
		}
		respondError(c, h.logger, c.GetString(pkg.TraceId), err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}
