package domain

import (
	"math"
	"strconv"
	"strings"
)

// UVLevel is a UV index severity band.
type UVLevel int

const (
	UVUnknown UVLevel = iota
	UVLow
	UVModerate
	UVHigh
	UVVeryHigh
	UVExtreme
)

// ClassifyUV maps a UV index to its band. Nil, NaN, infinite, and negative
// values are UVUnknown.
func ClassifyUV(v *float64) UVLevel {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return UVUnknown
	}
	switch uv := *v; {
	case uv <= 2:
		return UVLow
	case uv <= 5:
		return UVModerate
	case uv <= 7:
		return UVHigh
	case uv <= 10:
		return UVVeryHigh
	default:
		return UVExtreme
	}
}

// ParseUVIndex parses provider text such as "7" or " 3.5 ". It returns nil
// for anything that isn't a non-negative finite number.
func ParseUVIndex(s string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return nil
	}
	return &v
}

// ClassifyUVText is ClassifyUV over unparsed text.
func ClassifyUVText(s string) UVLevel {
	return ClassifyUV(ParseUVIndex(s))
}

func (l UVLevel) String() string {
	switch l {
	case UVLow:
		return "low"
	case UVModerate:
		return "moderate"
	case UVHigh:
		return "high"
	case UVVeryHigh:
		return "very_high"
	case UVExtreme:
		return "extreme"
	default:
		return "unknown"
	}
}

// Label is the user-facing band name.
func (l UVLevel) Label() string {
	switch l {
	case UVLow:
		return "🟢 低"
	case UVModerate:
		return "🟡 中等"
	case UVHigh:
		return "🟠 高"
	case UVVeryHigh:
		return "🔴 很高"
	case UVExtreme:
		return "🟣 極高"
	default:
		return "❓ 未知"
	}
}
