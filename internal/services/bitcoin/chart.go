package bitcoin

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/treasury/internal/models"
)

// RenderPriceChart renders a PNG line chart of Bitcoin price points.
// Points may be in any order. Returns raw PNG bytes.
func RenderPriceChart(points []*models.BitcoinPricePoint) ([]byte, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(points))
	}

	// history is stored newest first; the chart runs oldest to newest
	ordered := make([]*models.BitcoinPricePoint, len(points))
	copy(ordered, points)
	if ordered[0].Timestamp.After(ordered[len(ordered)-1].Timestamp) {
		for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
			ordered[i], ordered[j] = ordered[j], ordered[i]
		}
	}

	xValues := make([]time.Time, len(ordered))
	yValues := make([]float64, len(ordered))
	for i, p := range ordered {
		xValues[i] = p.Timestamp
		yValues[i] = p.Price
	}

	span := xValues[len(xValues)-1].Sub(xValues[0])
	timeFormat := "15:04"
	if span > 48*time.Hour {
		timeFormat = "02 Jan"
	}

	priceSeries := chart.TimeSeries{
		Name: "BTC " + ordered[0].Currency,
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("f7931a"), // bitcoin orange
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: yValues,
	}

	graph := chart.Chart{
		Title:  "Bitcoin Price",
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).UTC().Format(timeFormat)
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("$%.1fk", f/1000)
				}
				return ""
			},
		},
		Series: []chart.Series{priceSeries},
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}
