package web

import (
	"fmt"
	"html"
	"html/template"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var barColors = []string{"#3b82f6", "#10b981", "#f59e0b", "#ef4444", "#8b5cf6", "#ec4899"}

type chartBar struct {
	Label string
	Value float64 // percent
}

const (
	chartWidth  = 640
	chartHeight = 340
	padLeft     = 56
	padRight    = 16
	padTop      = 44
	padBottom   = 40
	yTicks      = 5
)

// barChartSVG draws labelled vertical bars. The y axis runs from 0 to the
// largest value plus 10; colors cycle through barColors.
func barChartSVG(title, yLabel string, bars []chartBar) template.HTML {
	if len(bars) == 0 {
		return ""
	}

	maxVal := math.Inf(-1)
	for _, b := range bars {
		maxVal = math.Max(maxVal, b.Value)
	}
	yMax := maxVal + 10
	if yMax <= 0 {
		yMax = 10
	}

	plotW := float64(chartWidth - padLeft - padRight)
	plotH := float64(chartHeight - padTop - padBottom)
	baseY := float64(padTop) + plotH
	slot := plotW / float64(len(bars))
	barW := slot * 0.6

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg class="chart" viewBox="0 0 %d %d" role="img" aria-label="%s" xmlns="http://www.w3.org/2000/svg">`,
		chartWidth, chartHeight, html.EscapeString(title))
	fmt.Fprintf(&sb, `<text x="%d" y="24" text-anchor="middle" font-size="16" font-weight="600">%s</text>`,
		chartWidth/2, html.EscapeString(title))
	fmt.Fprintf(&sb, `<text transform="translate(16 %.1f) rotate(-90)" text-anchor="middle" font-size="12">%s</text>`,
		float64(padTop)+plotH/2, html.EscapeString(yLabel))

	step := decimal.NewFromFloat(yMax).Div(decimal.NewFromInt(yTicks))
	for i := 0; i <= yTicks; i++ {
		v := step.Mul(decimal.NewFromInt(int64(i)))
		y := baseY - plotH*float64(i)/yTicks
		fmt.Fprintf(&sb, `<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="#e2e8f0"/>`, padLeft, y, chartWidth-padRight, y)
		fmt.Fprintf(&sb, `<text x="%d" y="%.1f" text-anchor="end" font-size="11" fill="#475569">%s</text>`,
			padLeft-6, y+4, v.StringFixed(0))
	}

	for i, b := range bars {
		v := math.Min(math.Max(b.Value, 0), yMax)
		h := plotH * v / yMax
		x := float64(padLeft) + float64(i)*slot + (slot-barW)/2
		cx := x + barW/2
		fmt.Fprintf(&sb, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>`,
			x, baseY-h, barW, h, barColors[i%len(barColors)])
		fmt.Fprintf(&sb, `<text x="%.1f" y="%.1f" text-anchor="middle" font-size="11" font-weight="700">%s%%</text>`,
			cx, baseY-h-6, fixed(b.Value, 1))
		fmt.Fprintf(&sb, `<text x="%.1f" y="%.1f" text-anchor="middle" font-size="12">%s</text>`,
			cx, baseY+18, html.EscapeString(b.Label))
	}

	fmt.Fprintf(&sb, `<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="#334155"/>`, padLeft, baseY, chartWidth-padRight, baseY)
	sb.WriteString(`</svg>`)
	return template.HTML(sb.String())
}
