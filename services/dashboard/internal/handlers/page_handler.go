package handlers

import (
	"bytes"
	"encoding/base64"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg/models"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg/predictor"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg/utils"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg/views"
	"go.uber.org/zap"
)

const dashboardTemplate = "dashboard.tmpl"

type formOptions struct {
	Education     []string
	Gender        []string
	MaritalStatus []string
}

type formLimits struct {
	MinAge, MaxAge     int
	MinHours, MaxHours int
}

var (
	options = formOptions{
		Education:     models.EducationLevels,
		Gender:        models.Genders,
		MaritalStatus: models.MaritalStatuses,
	}
	limits = formLimits{
		MinAge:   models.MinAge,
		MaxAge:   models.MaxAge,
		MinHours: models.MinHoursPerWeek,
		MaxHours: models.MaxHoursPerWeek,
	}
)

// pageData is built fresh for every request; nothing is shared between sessions.
type pageData struct {
	Tab         views.Section
	BackendURL  string
	Form        models.PredictionRequest
	Options     formOptions
	Limits      formLimits
	Gauge       *views.SalaryGauge
	Analysis    *views.AnalysisView
	Explain     *views.ExplainView
	Error       *views.ErrorView
	InputErrors []string
	ChartURI    template.URL
}

// PageHandler serves the three dashboard tabs.
type PageHandler struct {
	logger     *zap.Logger
	client     predictor.Predictor
	backendURL string
}

func NewPageHandler(logger *zap.Logger, client predictor.Predictor, backendURL string) *PageHandler {
	return &PageHandler{logger: logger, client: client, backendURL: backendURL}
}

func (h *PageHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/prediction") })
	r.GET("/prediction", h.GetPrediction)
	r.POST("/prediction", h.PostPrediction)
	r.GET("/analysis", h.GetAnalysis)
	r.GET("/insights", h.GetInsights)
}

func (h *PageHandler) newPage(tab views.Section) pageData {
	return pageData{
		Tab:        tab,
		BackendURL: h.backendURL,
		Form:       models.DefaultPredictionRequest(),
		Options:    options,
		Limits:     limits,
	}
}

func (h *PageHandler) GetPrediction(c *gin.Context) {
	c.HTML(http.StatusOK, dashboardTemplate, h.newPage(views.SectionPrediction))
}

func (h *PageHandler) PostPrediction(c *gin.Context) {
	page := h.newPage(views.SectionPrediction)

	var req models.PredictionRequest
	if err := c.ShouldBind(&req); err != nil {
		// keep whatever the user typed so the form is not reset
		page.Form = req
		page.InputErrors = utils.FormatValidationErrors(err)
		c.HTML(http.StatusBadRequest, dashboardTemplate, page)
		return
	}
	page.Form = req

	resp, err := h.client.Predict(c.Request.Context(), req)
	if err != nil {
		ev := views.NewErrorView(views.SectionPrediction, err)
		page.Error = &ev
		h.logger.Warn("prediction_failed", zap.String(pkg.TraceId, c.GetString(pkg.TraceId)), zap.Error(err))
	} else {
		gauge := views.NewSalaryGauge(resp)
		page.Gauge = &gauge
	}
	c.HTML(http.StatusOK, dashboardTemplate, page)
}

func (h *PageHandler) GetAnalysis(c *gin.Context) {
	page := h.newPage(views.SectionAnalysis)

	summary, err := h.client.Analyze(c.Request.Context())
	if err != nil {
		ev := views.NewErrorView(views.SectionAnalysis, err)
		page.Error = &ev
		h.logger.Warn("analysis_failed", zap.String(pkg.TraceId, c.GetString(pkg.TraceId)), zap.Error(err))
		c.HTML(http.StatusOK, dashboardTemplate, page)
		return
	}

	view := views.NewAnalysisView(summary)
	page.Analysis = &view
	page.ChartURI = h.chartURI(view.ChartTitle, view.Bars)
	c.HTML(http.StatusOK, dashboardTemplate, page)
}

func (h *PageHandler) GetInsights(c *gin.Context) {
	page := h.newPage(views.SectionInsights)

	features, err := h.client.Explain(c.Request.Context())
	if err != nil {
		ev := views.NewErrorView(views.SectionInsights, err)
		page.Error = &ev
		h.logger.Warn("explain_failed", zap.String(pkg.TraceId, c.GetString(pkg.TraceId)), zap.Error(err))
		c.HTML(http.StatusOK, dashboardTemplate, page)
		return
	}

	view := views.NewExplainView(features)
	page.Explain = &view
	page.ChartURI = h.chartURI(view.ChartTitle, view.Bars)
	c.HTML(http.StatusOK, dashboardTemplate, page)
}

// chartURI inlines the chart so a page load costs one backend call. A chart that
// cannot be drawn is left out rather than failing the page.
func (h *PageHandler) chartURI(title string, bars []views.Bar) template.URL {
	var buf bytes.Buffer
	if err := views.RenderBarPNG(&buf, title, bars); err != nil {
		h.logger.Debug("chart_skipped", zap.String("title", title), zap.Error(err))
		return ""
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()))
}
