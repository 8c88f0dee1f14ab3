package timeseries

// metricLabels 指标代码到带单位的可读名称
var metricLabels = map[string]string{
	"CUR_MKT_CAP":                 "Market Cap (MM USD)",
	"DVD_SH_12M":                  "Dividends per Share (USD)",
	"EQY_SH_OUT":                  "Shares Outstanding (MM)",
	"OPEN_INT_TOTAL_CALL":         "Call Open Interest (contracts)",
	"OPEN_INT_TOTAL_PUT":          "Put Open Interest (contracts)",
	"PX_HIGH":                     "High Price (USD)",
	"PX_LAST":                     "Close Price (USD)",
	"PX_LOW":                      "Low Price (USD)",
	"PX_VOLUME":                   "Equity Volume",
	"SHORT_INT":                   "Short Interest",
	"TOT_OPT_VOLUME_CUR_DAY":      "Total Option Volume (contracts)",
	"TOT_RETURN_INDEX_GROSS_DVDS": "Total Return Index (USD)",
	"VOLUME_TOTAL_CALL":           "Call Volume (contracts)",
	"VOLUME_TOTAL_PUT":            "Put Volume (contracts)",
}

// MetricLabel 返回指标的可读名称，未知指标原样返回
func MetricLabel(dataType string) string {
	if label, ok := metricLabels[dataType]; ok {
		return label
	}
	return dataType
}
