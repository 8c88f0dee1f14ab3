package timeseries

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

// Point 单个观测值
type Point struct {
	Date  time.Time
	Value float64
}

// Series 按日期升序排列的时间序列
type Series struct {
	Ticker   string
	FIGI     string
	DataType string
	Label    string
	Points   []Point
}

// Len 观测值数量
func (s *Series) Len() int {
	return len(s.Points)
}

// Align 只保留两个序列共有的日期
func Align(a, b *Series) (*Series, *Series) {
	index := make(map[time.Time]float64, len(b.Points))
	for _, p := range b.Points {
		index[p.Date] = p.Value
	}

	left := &Series{Ticker: a.Ticker, FIGI: a.FIGI, DataType: a.DataType, Label: a.Label}
	right := &Series{Ticker: b.Ticker, FIGI: b.FIGI, DataType: b.DataType, Label: b.Label}
	for _, p := range a.Points {
		v, ok := index[p.Date]
		if !ok {
			continue
		}
		left.Points = append(left.Points, p)
		right.Points = append(right.Points, Point{Date: p.Date, Value: v})
	}
	return left, right
}

// WriteCSV 写出 date,<label> 两列
func (s *Series) WriteCSV(w io.Writer) error {
	return WriteCSV(w, s)
}

// WriteCSV 写出日期列和每个序列一列，序列必须已对齐
func WriteCSV(w io.Writer, series ...*Series) error {
	if len(series) == 0 {
		return fmt.Errorf("no series to write")
	}
	n := series[0].Len()
	for _, s := range series[1:] {
		if s.Len() != n {
			return fmt.Errorf("series are not aligned: %d vs %d points", n, s.Len())
		}
	}

	cw := csv.NewWriter(w)
	header := []string{"date"}
	for _, s := range series {
		header = append(header, columnName(s, len(series) > 1))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		row := []string{series[0].Points[i].Date.Format(dateLayout)}
		for _, s := range series {
			row = append(row, strconv.FormatFloat(s.Points[i].Value, 'f', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// columnName 多个序列时加上代码前缀以区分
func columnName(s *Series, qualify bool) string {
	if !qualify || s.Ticker == "" {
		return s.Label
	}
	return s.Ticker + " " + s.Label
}
