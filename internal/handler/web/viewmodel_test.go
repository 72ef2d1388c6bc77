package web

import (
	"strings"
	"testing"

	"PortfolioDash/internal/domain/models"
)

func TestResultViewFailureFallsBack(t *testing.T) {
	if v := resultView(nil); v != nil {
		t.Fatalf("nil result should give nil view")
	}
	v := resultView(&models.AnalysisResult{Success: false})
	if v.Success || v.Failure != models.UnknownErrorText {
		t.Fatalf("unexpected view %+v", v)
	}
	v = resultView(&models.AnalysisResult{Success: false, Error: "timeout"})
	if v.Failure != "timeout" {
		t.Fatalf("expected error text, got %q", v.Failure)
	}
}

func TestResultViewKeepsWeightOrder(t *testing.T) {
	v := resultView(&models.AnalysisResult{
		Success: true,
		Weights: models.Weights{{Ticker: "TSLA", Weight: 0.1}, {Ticker: "AAPL", Weight: 0.9}},
	})
	if len(v.Allocation) != 2 || v.Allocation[0].Ticker != "TSLA" || v.Allocation[1].Percent != "90.00%" {
		t.Fatalf("unexpected allocation %+v", v.Allocation)
	}
	if v.Sharpe != "0.0000" || v.BuyHold != "" {
		t.Fatalf("missing fields should render as zero or empty, got %+v", v)
	}
}

func TestBarChart(t *testing.T) {
	if barChartSVG("t", "y", nil) != "" {
		t.Fatalf("empty chart expected")
	}

	bars := make([]chartBar, 7)
	for i := range bars {
		bars[i] = chartBar{Label: string(rune('A' + i)), Value: float64(i * 10)}
	}
	svg := string(barChartSVG("Asignación de Capital", "Porcentaje (%)", bars))

	if strings.Count(svg, "<rect") != 7 {
		t.Fatalf("expected 7 bars")
	}
	if strings.Count(svg, `fill="`+barColors[0]+`"`) != 2 {
		t.Fatalf("colors should cycle after %d bars", len(barColors))
	}
	// y axis tops out at max+10.
	if !strings.Contains(svg, ">70<") {
		t.Fatalf("expected a 70 tick label")
	}
	if !strings.Contains(svg, "60.0%") {
		t.Fatalf("expected one-decimal bar labels")
	}
}

func TestBarChartEscapesLabels(t *testing.T) {
	svg := string(barChartSVG("x", "y", []chartBar{{Label: "<b>", Value: 50}}))
	if strings.Contains(svg, "<b>") {
		t.Fatalf("labels must be escaped")
	}
}

func TestRenderMarkdownDropsRawHTML(t *testing.T) {
	out := string(renderMarkdown("*hola* <img src=x onerror=alert(1)>"))
	if !strings.Contains(out, "<em>hola</em>") {
		t.Fatalf("expected emphasis, got %s", out)
	}
	if strings.Contains(out, "<img") {
		t.Fatalf("raw HTML leaked: %s", out)
	}
}

func TestNumbersRoundTheBinaryValue(t *testing.T) {
	cases := []struct {
		got, want string
	}{
		{fixed(2.675, 2), "2.67"},
		{fixed(1.005, 2), "1.00"},
		{percentOf(-0.08345, 2), "-8.34"},
		{percentOf(0.0105, 1), "1.1"},
		{fixed(12.345, 2), "12.35"},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Fatalf("got %q, want %q", c.got, c.want)
		}
	}

	v := resultView(&models.AnalysisResult{Success: true, VaR95: -0.08345})
	if v.VaR != "-8.34%" || !strings.Contains(v.VaRInfo, "más del 8.34%") {
		t.Fatalf("unexpected VaR formatting %q / %q", v.VaR, v.VaRInfo)
	}
}
