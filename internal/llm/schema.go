package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fyerfyer/fund-info-parser/internal/models"
)

// SchemaVersion 抽取模式版本
const SchemaVersion = "2025-06.v1"

// FieldType 字段类型
type FieldType string

const (
	FieldString FieldType = "string"
	FieldNumber FieldType = "number"
	FieldEnum   FieldType = "enum"
)

// Field 抽取模式中的单个字段，所有字段都可以为null
type Field struct {
	Name        string
	Type        FieldType
	Enum        []string
	Description string
}

// Schema 抽取模式
type Schema struct {
	Version string
	Fields  []Field
	Rules   []string
}

// DefaultSchema 返回v1抽取模式
func DefaultSchema() *Schema {
	return &Schema{
		Version: SchemaVersion,
		Fields: []Field{
			{Name: "fund_name", Type: FieldString, Description: "full legal name of the fund"},
			{Name: "ticker", Type: FieldString, Description: "exchange ticker symbol"},
			{Name: "underlying_theme", Type: FieldEnum,
				Enum: []string{"index", "single-stock", "sector", "commodity", "currency", "bond"}},
			{Name: "primary_basis", Type: FieldEnum,
				Enum: []string{"equities/stocks", "options", "swaps"},
				Description: "main instrument used to obtain exposure"},
			{Name: "benchmark_underlying", Type: FieldString, Description: "index, stock or asset the fund tracks"},
			{Name: "leverage_percent", Type: FieldNumber,
				Description: "signed percent of daily exposure, 200 means 2x long, -100 means 1x inverse"},
			{Name: "rebalancing_timescale", Type: FieldEnum,
				Enum: []string{"daily", "weekly", "monthly", "quarterly"}},
			{Name: "inception_date", Type: FieldString, Description: "YYYY-MM-DD"},
			{Name: "management_fee", Type: FieldNumber, Description: "percent, 0.75 means 0.75%"},
			{Name: "expense_fee", Type: FieldNumber, Description: "other expenses, percent"},
			{Name: "total_operating_fee", Type: FieldNumber, Description: "total annual operating expenses, percent"},
			{Name: "net_total_after_waiver", Type: FieldNumber, Description: "net expenses after fee waiver, percent"},
			{Name: "distribution_frequency", Type: FieldEnum,
				Enum: []string{"monthly", "quarterly", "semi-annually", "annually", "none"}},
			{Name: "tax_status", Type: FieldString, Description: "e.g. RIC, partnership, grantor trust"},
			{Name: "investment_objective", Type: FieldString, Description: "one sentence"},
			{Name: "principal_strategies", Type: FieldString, Description: "short summary"},
		},
		Rules: []string{
			"Respond with a single JSON object and nothing else.",
			"Use exactly the keys listed above.",
			"Use null when a value is not stated in the text.",
			"Numbers must be bare JSON numbers without % signs.",
			"Enumerated fields must use one of the listed values or null.",
		},
	}
}

// FieldNames 按顺序返回字段名
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// SystemPrompt 根据字段表渲染系统提示词
func (s *Schema) SystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a financial data extraction engine for SEC Form 497 fund summaries.\n")
	b.WriteString("Return JSON with the following keys:\n")
	for _, f := range s.Fields {
		fmt.Fprintf(&b, "- %s: ", f.Name)
		switch f.Type {
		case FieldEnum:
			b.WriteString("one of ")
			quoted := make([]string, len(f.Enum))
			for i, v := range f.Enum {
				quoted[i] = `"` + v + `"`
			}
			b.WriteString(strings.Join(quoted, ", "))
			b.WriteString(" or null")
		default:
			fmt.Fprintf(&b, "%s or null", f.Type)
		}
		if f.Description != "" {
			fmt.Fprintf(&b, " (%s)", f.Description)
		}
		b.WriteByte('\n')
	}
	b.WriteString("Rules:\n")
	for _, r := range s.Rules {
		fmt.Fprintf(&b, "- %s\n", r)
	}
	return b.String()
}

// Decode 把模型返回的内容解析为有序字段
// 内容必须是单个JSON对象，缺失的字段补null，模式以外的键被丢弃
func (s *Schema) Decode(content string) ([]models.FieldValue, error) {
	dec := json.NewDecoder(strings.NewReader(content))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, malformed(err)
	}
	// null 会解码为 nil map
	if obj == nil {
		return nil, malformed(errors.New("content is null"))
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, malformed(errors.New("trailing data after JSON object"))
	}

	fields := make([]models.FieldValue, 0, len(s.Fields))
	for _, f := range s.Fields {
		fields = append(fields, models.FieldValue{Name: f.Name, Value: normalizeValue(obj[f.Name])})
	}
	return fields, nil
}

// normalizeValue 把json.Number还原为float64或保持原值
func normalizeValue(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

func malformed(err error) error {
	return LLMError{Code: ErrCodeMalformedResponse, Message: ErrMsgMalformedResponse, Err: err}
}

// compactJSON 测试和日志中用到的紧凑格式
func compactJSON(content string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(content)); err != nil {
		return content
	}
	return buf.String()
}
