package openmeteo

// WMO weather interpretation codes as used by Open-Meteo.
var weatherCodes = map[int]string{
	0:  "晴",
	1:  "晴時多雲",
	2:  "多雲",
	3:  "陰",
	45: "霧",
	48: "霧淞",
	51: "毛毛雨",
	53: "毛毛雨",
	55: "濃毛毛雨",
	56: "凍毛毛雨",
	57: "凍毛毛雨",
	61: "小雨",
	63: "中雨",
	65: "大雨",
	66: "凍雨",
	67: "凍雨",
	71: "小雪",
	73: "中雪",
	75: "大雪",
	77: "霰",
	80: "短暫陣雨",
	81: "陣雨",
	82: "強陣雨",
	85: "陣雪",
	86: "強陣雪",
	95: "雷雨",
	96: "雷雨伴有冰雹",
	99: "強雷雨伴有冰雹",
}

// Describe maps a weather code to a Traditional Chinese description. Nil or
// unknown codes give "".
func Describe(code *float64) string {
	if code == nil {
		return ""
	}
	return weatherCodes[int(*code)]
}
