package views

import "github.com/nimeshabuddhika/smartpay-dashboard/pkg/models"

// Gauge scale for the predicted salary, in USD.
const (
	GaugeMin = 0.0
	GaugeMax = 250000.0
)

const (
	ColorAccent  = "#00c6ff"
	ColorPrimary = "#0072ff"
)

// GaugeStep is one coloured band of the gauge. Width is its share of the scale in percent.
type GaugeStep struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Color string  `json:"color"`
	Width float64 `json:"width"`
}

// SalaryGauge is the display model of a successful prediction.
// Percent is the needle position clamped to the scale.
type SalaryGauge struct {
	Title    string      `json:"title"`
	Value    float64     `json:"value"`
	Min      float64     `json:"min"`
	Max      float64     `json:"max"`
	Steps    []GaugeStep `json:"steps"`
	Headline string      `json:"headline"`
	Percent  float64     `json:"percent"`
}

var gaugeSteps = []GaugeStep{
	{From: 0, To: 50000, Color: "#1e1e1e"},
	{From: 50000, To: 120000, Color: "#24292f"},
	{From: 120000, To: 250000, Color: "#30363d"},
}

func NewSalaryGauge(resp models.PredictionResponse) SalaryGauge {
	salary := resp.PredictedSalaryUSD

	steps := make([]GaugeStep, len(gaugeSteps))
	for i, s := range gaugeSteps {
		s.Width = (s.To - s.From) / (GaugeMax - GaugeMin) * 100
		steps[i] = s
	}

	return SalaryGauge{
		Title:    "Predicted Annual Salary (USD)",
		Value:    salary,
		Min:      GaugeMin,
		Max:      GaugeMax,
		Steps:    steps,
		Headline: "💰 Predicted Salary: " + FormatUSD(salary),
		Percent:  gaugePercent(salary),
	}
}

func gaugePercent(v float64) float64 {
	switch {
	case v <= GaugeMin:
		return 0
	case v >= GaugeMax:
		return 100
	default:
		return (v - GaugeMin) / (GaugeMax - GaugeMin) * 100
	}
}
