package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg/models"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg/predictor"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg/utils"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg/views"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// ErrReported is returned once the failure has already been written to stderr.
var ErrReported = errors.New("command failed")

// PredictorFactory builds the backend client for one invocation.
type PredictorFactory func(logger *zap.Logger, cfg predictor.Config) (predictor.Predictor, error)

func defaultFactory(logger *zap.Logger, cfg predictor.Config) (predictor.Predictor, error) {
	client, err := predictor.NewClient(logger, cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

type runner struct {
	out      io.Writer
	errOut   io.Writer
	factory  PredictorFactory
	validate *validator.Validate
	logger   *zap.Logger
}

// NewApp wires the smartpay command tree. A nil factory uses the HTTP client.
func NewApp(out, errOut io.Writer, factory PredictorFactory) *cli.App {
	if factory == nil {
		factory = defaultFactory
	}
	validate := validator.New()
	// fails only for an empty rule name
	_ = models.RegisterValidations(validate)
	r := &runner{out: out, errOut: errOut, factory: factory, validate: validate, logger: zap.NewNop()}

	return &cli.App{
		Name:      "smartpay",
		Usage:     "Query the salary prediction backend from the terminal",
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "backend-url",
				Usage:    "Base URL of the prediction backend",
				EnvVars:  []string{"APP_BACKEND_URL"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "predict-url",
				Usage:   "Full prediction URL, overrides <backend-url>/predict",
				EnvVars: []string{"APP_PREDICT_URL"},
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "Sent as x-api-key when set",
				EnvVars: []string{"APP_API_KEY"},
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Value:   predictor.DefaultTimeout,
				Usage:   "Upper bound on each backend call",
				EnvVars: []string{"APP_REQUEST_TIMEOUT"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log requests to stderr",
			},
		},
		Before: func(c *cli.Context) error {
			pkg.InitCLILogger(c.Bool("verbose"))
			r.logger = pkg.Logger.Named(pkg.ServiceCLI)
			return nil
		},
		Commands: []*cli.Command{
			r.predictCommand(),
			r.analyzeCommand(),
			r.explainCommand(),
		},
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "Print the raw result as JSON"}
}

func (r *runner) predictCommand() *cli.Command {
	def := models.DefaultPredictionRequest()
	return &cli.Command{
		Name:  "predict",
		Usage: "Predict a salary for one profile",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "age", Value: def.Age, Usage: fmt.Sprintf("Age (%d-%d)", models.MinAge, models.MaxAge)},
			&cli.StringFlag{Name: "education", Value: def.Education, Usage: strings.Join(models.EducationLevels, " | ")},
			&cli.StringFlag{Name: "job-title", Value: def.JobTitle, Usage: "Job title"},
			&cli.IntFlag{Name: "hours", Value: def.HoursPerWeek, Usage: fmt.Sprintf("Hours per week (%d-%d)", models.MinHoursPerWeek, models.MaxHoursPerWeek)},
			&cli.StringFlag{Name: "gender", Value: def.Gender, Usage: strings.Join(models.Genders, " | ")},
			&cli.StringFlag{Name: "marital-status", Value: def.MaritalStatus, Usage: strings.Join(models.MaritalStatuses, " | ")},
			jsonFlag(),
		},
		Action: r.runPredict,
	}
}

func (r *runner) analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:   "analyze",
		Usage:  "Show the training dataset summary",
		Flags:  []cli.Flag{jsonFlag()},
		Action: r.runAnalyze,
	}
}

func (r *runner) explainCommand() *cli.Command {
	return &cli.Command{
		Name:   "explain",
		Usage:  "Show the model's top feature importances",
		Flags:  []cli.Flag{jsonFlag()},
		Action: r.runExplain,
	}
}

func (r *runner) runPredict(c *cli.Context) error {
	req := models.PredictionRequest{
		Age:           c.Int("age"),
		Education:     c.String("education"),
		JobTitle:      c.String("job-title"),
		HoursPerWeek:  c.Int("hours"),
		Gender:        c.String("gender"),
		MaritalStatus: c.String("marital-status"),
	}
	if err := r.validate.Struct(req); err != nil {
		for _, line := range utils.FormatValidationErrors(err) {
			fmt.Fprintln(r.errOut, line)
		}
		return ErrReported
	}

	client, err := r.client(c)
	if err != nil {
		return err
	}
	resp, err := client.Predict(c.Context, req)
	if err != nil {
		return r.fail(views.SectionPrediction, err)
	}
	if c.Bool("json") {
		return r.writeJSON(resp)
	}
	return views.WriteGaugeText(r.out, views.NewSalaryGauge(resp))
}

func (r *runner) runAnalyze(c *cli.Context) error {
	client, err := r.client(c)
	if err != nil {
		return err
	}
	summary, err := client.Analyze(c.Context)
	if err != nil {
		return r.fail(views.SectionAnalysis, err)
	}
	if c.Bool("json") {
		return r.writeJSON(map[string]models.AnalysisSummary{"summary": summary})
	}
	return views.WriteAnalysisText(r.out, views.NewAnalysisView(summary))
}

func (r *runner) runExplain(c *cli.Context) error {
	client, err := r.client(c)
	if err != nil {
		return err
	}
	features, err := client.Explain(c.Context)
	if err != nil {
		return r.fail(views.SectionInsights, err)
	}
	if c.Bool("json") {
		return r.writeJSON(map[string][]models.FeatureImportance{"top_features": features})
	}
	return views.WriteExplainText(r.out, views.NewExplainView(features))
}

func (r *runner) client(c *cli.Context) (predictor.Predictor, error) {
	timeout := c.Duration("timeout")
	if timeout <= 0 {
		timeout = predictor.DefaultTimeout
	}
	return r.factory(r.logger, predictor.Config{
		BaseURL:    c.String("backend-url"),
		PredictURL: c.String("predict-url"),
		APIKey:     c.String("api-key"),
		Timeout:    timeout,
	})
}

func (r *runner) fail(section views.Section, err error) error {
	if errors.Is(err, context.Canceled) {
		r.logger.Warn("call_cancelled", zap.String("section", string(section)))
	}
	_ = views.WriteErrorText(r.errOut, views.NewErrorView(section, err))
	return ErrReported
}

func (r *runner) writeJSON(v interface{}) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
