package timeseries

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/fund-info-parser/pkg/storage"
)

// DefaultMappingBlob 代码到FIGI的映射文件
const DefaultMappingBlob = "bloomberg_figi_mapping.json"

// 可接受的日期格式
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"20060102",
}

// Fetcher 从对象存储读取已计算好的历史时间序列
type Fetcher struct {
	mapping     storage.Storage
	processed   storage.Storage
	mappingBlob string
	logger      *logrus.Logger
}

// Option 读取器选项
type Option func(*Fetcher)

// WithMappingBlob 设置映射文件名
func WithMappingBlob(name string) Option {
	return func(f *Fetcher) {
		if name != "" {
			f.mappingBlob = name
		}
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFetcher 创建读取器，mapping和processed分别对应两个容器
func NewFetcher(mapping, processed storage.Storage, opts ...Option) *Fetcher {
	f := &Fetcher{
		mapping:     mapping,
		processed:   processed,
		mappingBlob: DefaultMappingBlob,
		logger:      logrus.New(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FIGIForTicker 查询代码对应的FIGI
func (f *Fetcher) FIGIForTicker(ctx context.Context, ticker string) (string, error) {
	raw, err := storage.ReadAll(ctx, f.mapping, f.mappingBlob)
	if err != nil {
		return "", fmt.Errorf("failed to read mapping %s: %w", f.mappingBlob, err)
	}

	var mapping map[string]string
	if err := json.Unmarshal(raw, &mapping); err != nil {
		return "", fmt.Errorf("failed to parse mapping %s: %w", f.mappingBlob, err)
	}

	figi, ok := mapping[ticker]
	if !ok {
		return "", &LookupError{Kind: KindTickerNotMapped, Ticker: ticker}
	}
	return figi, nil
}

// historicalDocument historical/{figi}/{type}.json 的内容
type historicalDocument struct {
	Data map[string]json.RawMessage `json:"data"`
}

// Fetch 读取代码的某个指标，返回按日期升序的序列
func (f *Fetcher) Fetch(ctx context.Context, dataType, ticker string) (*Series, error) {
	figi, err := f.FIGIForTicker(ctx, ticker)
	if err != nil {
		return nil, err
	}

	prefix := fmt.Sprintf("historical/%s/", figi)
	ok, err := storage.HasPrefix(ctx, f.processed, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	if !ok {
		return nil, &LookupError{Kind: KindNotMaterialized, Ticker: ticker, FIGI: figi}
	}

	key := prefix + dataType + ".json"
	raw, err := storage.ReadAll(ctx, f.processed, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, &LookupError{Kind: KindMetricMissing, Ticker: ticker, FIGI: figi, DataType: dataType, Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	var doc historicalDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", key, err)
	}

	series := &Series{
		Ticker:   ticker,
		FIGI:     figi,
		DataType: dataType,
		Label:    MetricLabel(dataType),
		Points:   make([]Point, 0, len(doc.Data)),
	}
	for date, value := range doc.Data {
		t, err := parseDate(date)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		v, ok, err := parseValue(value)
		if err != nil {
			return nil, fmt.Errorf("%s at %s: %w", key, date, err)
		}
		if !ok {
			continue
		}
		series.Points = append(series.Points, Point{Date: t, Value: v})
	}
	sort.Slice(series.Points, func(i, j int) bool {
		return series.Points[i].Date.Before(series.Points[j].Date)
	})

	f.logger.WithFields(logrus.Fields{
		"ticker": ticker,
		"figi":   figi,
		"points": series.Len(),
	}).Debug("Time series fetched")

	return series, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(24 * time.Hour), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// parseValue 解析数值，null返回ok=false
func parseValue(raw json.RawMessage) (float64, bool, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false, err
	}
	switch x := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		return x, true, nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, false, fmt.Errorf("invalid value %q", x)
		}
		return f, true, nil
	}
	return 0, false, fmt.Errorf("unsupported value %s", string(raw))
}
