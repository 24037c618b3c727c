package views

import "github.com/nimeshabuddhika/smartpay-dashboard/pkg/models"

type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Bar is one bar of a bar chart. Order of a []Bar is display order.
type Bar struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

type AnalysisView struct {
	Title      string   `json:"title"`
	Metrics    []Metric `json:"metrics"`
	ChartTitle string   `json:"chartTitle"`
	Bars       []Bar    `json:"bars"`
}

// NewAnalysisView maps the dataset summary to three metrics and a min/avg/max bar series.
func NewAnalysisView(s models.AnalysisSummary) AnalysisView {
	return AnalysisView{
		Title: "📊 Dataset Insights",
		Metrics: []Metric{
			{Label: "📂 Records", Value: FormatCount(s.RecordCount)},
			{Label: "💵 Avg Salary", Value: FormatUSD(s.AverageSalary)},
			{Label: "🏆 Max Salary", Value: FormatUSD(s.MaxSalary)},
		},
		ChartTitle: "Salary Distribution Overview",
		Bars: []Bar{
			{Label: "Min Salary", Value: s.MinSalary, Color: "#1f77b4"},
			{Label: "Avg Salary", Value: s.AverageSalary, Color: ColorAccent},
			{Label: "Max Salary", Value: s.MaxSalary, Color: "#2ca02c"},
		},
	}
}
