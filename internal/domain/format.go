package domain

import (
	"strconv"
	"strings"
)

const (
	// TemperatureRangeThreshold is the widest min/max spread rendered as a range.
	TemperatureRangeThreshold = 3.0

	Placeholder          = "--"
	ForecastNotAvailable = "⚠️ 找不到天氣資料"
	LocationNotResolved  = "⚠️ 找不到地點資料"
	nearbyPrefix         = "（附近）"
	staleSuffix          = " 舊資料"
)

// Render turns a result into the one-line forecast used in reports.
// It never returns an empty string.
func Render(res ForecastResult) string {
	switch res.Outcome {
	case OutcomeFound:
		if !res.Record.HasData() {
			return ForecastNotAvailable
		}
		return RenderRecord(res.Record)
	case OutcomeLocationNotFound:
		return LocationNotResolved
	default:
		return ForecastNotAvailable
	}
}

// RenderRecord formats a record. Missing values become the placeholder.
func RenderRecord(r ForecastRecord) string {
	var b strings.Builder
	if r.Nearby {
		b.WriteString(nearbyPrefix)
	}
	if !r.StaleFrom.IsZero() {
		b.WriteString("（" + r.StaleFrom.Format("01/02") + staleSuffix + "）")
	}

	desc := strings.TrimSpace(r.Description)
	if desc == "" {
		desc = Placeholder
	}
	b.WriteString(desc)

	b.WriteString("，🌡️ ")
	b.WriteString(renderTemperature(r))

	if r.FeelsLikeC != nil {
		b.WriteString("，體感 ")
		b.WriteString(formatNumber(*r.FeelsLikeC))
		b.WriteString("°C")
	}

	b.WriteString("，🌧️ 降雨 ")
	if r.PrecipitationPct != nil {
		b.WriteString(formatNumber(*r.PrecipitationPct))
		b.WriteString("%")
	} else {
		b.WriteString(Placeholder)
	}

	b.WriteString("，☀️ 紫外線 ")
	if r.UVIndex != nil {
		b.WriteString(formatNumber(*r.UVIndex))
	} else {
		b.WriteString(Placeholder)
	}
	b.WriteString("（")
	b.WriteString(ClassifyUV(r.UVIndex).Label())
	b.WriteString("）")

	return b.String()
}

func renderTemperature(r ForecastRecord) string {
	if r.TempMinC != nil && r.TempMaxC != nil {
		lo, hi := *r.TempMinC, *r.TempMaxC
		if lo > hi {
			lo, hi = hi, lo
		}
		if hi-lo <= TemperatureRangeThreshold {
			if formatNumber(lo) == formatNumber(hi) {
				return formatNumber(lo) + "°C"
			}
			return formatNumber(lo) + "～" + formatNumber(hi) + "°C"
		}
		est := (lo + hi) / 2
		if r.TemperatureC != nil {
			est = *r.TemperatureC
		}
		return "約 " + formatNumber(est) + "°C（估計）"
	}
	if r.TemperatureC != nil {
		return formatNumber(*r.TemperatureC) + "°C"
	}
	return Placeholder
}

// formatNumber rounds to one decimal and drops a trailing ".0".
func formatNumber(v float64) string {
	return strconv.FormatFloat(roundTenth(v), 'f', -1, 64)
}

func roundTenth(v float64) float64 {
	s := strconv.FormatFloat(v, 'f', 1, 64)
	out, _ := strconv.ParseFloat(s, 64)
	return out
}
