package views

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

const textBarWidth = 40

// WriteGaugeText prints the prediction headline and a one-line scale.
func WriteGaugeText(w io.Writer, g SalaryGauge) error {
	filled := int(g.Percent / 100 * textBarWidth)
	_, err := fmt.Fprintf(w, "%s\n%s\n[%s%s] %s / %s\n",
		g.Title,
		g.Headline,
		strings.Repeat("#", filled),
		strings.Repeat(".", textBarWidth-filled),
		FormatUSD(g.Value),
		FormatUSD(g.Max),
	)
	return err
}

// WriteAnalysisText prints the summary metrics followed by the min/avg/max bars.
func WriteAnalysisText(w io.Writer, v AnalysisView) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, v.Title)
	for _, m := range v.Metrics {
		fmt.Fprintf(tw, "%s\t%s\n", m.Label, m.Value)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, v.ChartTitle)
	writeBars(tw, v.Bars, FormatUSD)
	return tw.Flush()
}

// WriteExplainText prints the feature table in received order.
func WriteExplainText(w io.Writer, v ExplainView) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, v.Title)
	fmt.Fprintln(tw, "#\tfeature\timportance")
	for _, r := range v.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", r.Rank, r.Feature, r.Display)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, v.ChartTitle)
	writeBars(tw, v.Bars, FormatImportance)
	return tw.Flush()
}

// WriteErrorText prints the error banner.
func WriteErrorText(w io.Writer, e ErrorView) error {
	_, err := fmt.Fprintln(w, e.Message)
	return err
}

func writeBars(w io.Writer, bars []Bar, format func(float64) string) {
	peak := 0.0
	for _, b := range bars {
		if b.Value > peak {
			peak = b.Value
		}
	}
	for _, b := range bars {
		n := 0
		if peak > 0 && b.Value > 0 {
			n = int(b.Value / peak * textBarWidth)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", b.Label, strings.Repeat("█", n), format(b.Value))
	}
}
