package indicator

// IchimokuValues holds the five cloud components for the current step.
type IchimokuValues struct {
	Conversion float64 // tenkan-sen
	Base       float64 // kijun-sen
	SpanA      float64 // senkou span A
	SpanB      float64 // senkou span B
	Lagging    float64 // chikou span, displaced backwards
}

// Ichimoku computes the cloud components over a closing-price series.
// Conversion and base lines are midpoints of the trailing highs/lows of
// their windows; span B uses the laggingSpanPeriod window; the lagging
// span is the close displaced back by displacement steps. Zero values
// when the series is shorter than the largest window.
func Ichimoku(data []float64, conversionPeriod, basePeriod, laggingSpanPeriod, displacement int) IchimokuValues {
	need := conversionPeriod
	if basePeriod > need {
		need = basePeriod
	}
	if laggingSpanPeriod > need {
		need = laggingSpanPeriod
	}
	if need <= 0 || len(data) < need {
		return IchimokuValues{}
	}

	v := IchimokuValues{
		Conversion: midpoint(data, conversionPeriod),
		Base:       midpoint(data, basePeriod),
		SpanB:      midpoint(data, laggingSpanPeriod),
	}
	v.SpanA = (v.Conversion + v.Base) / 2

	if displacement > 0 && len(data) > displacement {
		v.Lagging = data[len(data)-1-displacement]
	} else {
		v.Lagging = data[len(data)-1]
	}
	return v
}

func midpoint(data []float64, period int) float64 {
	window := data[len(data)-period:]
	return (highest(window) + lowest(window)) / 2
}
