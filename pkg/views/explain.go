package views

import "github.com/nimeshabuddhika/smartpay-dashboard/pkg/models"

type FeatureRow struct {
	Rank       int     `json:"rank"`
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
	Display    string  `json:"display"`
}

type ExplainView struct {
	Title      string       `json:"title"`
	Rows       []FeatureRow `json:"rows"`
	ChartTitle string       `json:"chartTitle"`
	Bars       []Bar        `json:"bars"`
}

// NewExplainView keeps the features exactly in the order received: no sorting,
// no de-duplication, no normalisation of the scores.
func NewExplainView(features []models.FeatureImportance) ExplainView {
	rows := make([]FeatureRow, 0, len(features))
	bars := make([]Bar, 0, len(features))
	for i, f := range features {
		rows = append(rows, FeatureRow{
			Rank:       i + 1,
			Feature:    f.Feature,
			Importance: f.Importance,
			Display:    FormatImportance(f.Importance),
		})
		bars = append(bars, Bar{Label: f.Feature, Value: f.Importance, Color: ColorPrimary})
	}
	return ExplainView{
		Title:      "🧠 Top 5 Features Influencing Salary Prediction",
		Rows:       rows,
		ChartTitle: "Feature Importance (Model Explainability)",
		Bars:       bars,
	}
}
