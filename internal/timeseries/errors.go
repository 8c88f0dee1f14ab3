package timeseries

import (
	"errors"
	"fmt"
)

// ErrLookup 时间序列查找失败
var ErrLookup = errors.New("time series lookup failed")

// LookupKind 查找失败的类别
type LookupKind string

const (
	// KindTickerNotMapped 映射表中没有该代码
	KindTickerNotMapped LookupKind = "ticker_not_mapped"
	// KindNotMaterialized 该FIGI的历史数据尚未拉取
	KindNotMaterialized LookupKind = "not_materialized"
	// KindMetricMissing 历史数据中没有该指标
	KindMetricMissing LookupKind = "metric_missing"
)

// LookupError 时间序列查找错误
type LookupError struct {
	Kind     LookupKind
	Ticker   string
	FIGI     string
	DataType string
	Err      error
}

func (e *LookupError) Error() string {
	switch e.Kind {
	case KindTickerNotMapped:
		return fmt.Sprintf("ticker %q not found in mapping", e.Ticker)
	case KindNotMaterialized:
		return fmt.Sprintf("historical time series data not yet pulled for %s", e.Ticker)
	case KindMetricMissing:
		return fmt.Sprintf("metric %s not available for %s (figi %s)", e.DataType, e.Ticker, e.FIGI)
	}
	return fmt.Sprintf("lookup failed for %s: %v", e.Ticker, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// Is 所有LookupError都匹配ErrLookup
func (e *LookupError) Is(target error) bool {
	return target == ErrLookup
}
