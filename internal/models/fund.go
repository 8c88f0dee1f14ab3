package models

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"time"
)

// 溯源字段名
const (
	FieldSourceFile = "source_file"
	FieldBlockSHA1  = "block_sha1"
)

// FundBlock 单只基金在申报文件中的连续文本块
type FundBlock struct {
	SourceID string // 所属文档标识
	Index    int    // 在文档中的序号
	Heading  string // 匹配到的标题，是Text的前缀
	Text     string // 块文本
	SHA1     string // 块文本的内容哈希
}

// HashText 计算文本的内容哈希(sha1十六进制)
func HashText(text string) string {
	sum := sha1.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// FieldValue 有序的字段名值对
type FieldValue struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// FundRecord 一个基金块的抽取结果
// Fields 按抽取模式的字段顺序排列，序列化时溯源字段排在最后
type FundRecord struct {
	Fields     []FieldValue
	SourceFile string
	BlockSHA1  string
}

// Get 按名称读取字段值
func (r FundRecord) Get(name string) (any, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// WithProvenance 返回附带溯源信息的记录副本
func (r FundRecord) WithProvenance(block FundBlock) FundRecord {
	fields := make([]FieldValue, len(r.Fields))
	copy(fields, r.Fields)
	return FundRecord{
		Fields:     fields,
		SourceFile: block.SourceID,
		BlockSHA1:  block.SHA1,
	}
}

// MarshalJSON 按字段顺序输出单个JSON对象，非ASCII字符原样输出
// json.Marshal 会重新转义HTML字符，需要原样输出时使用 SetEscapeHTML(false) 的Encoder
func (r FundRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	first := true
	write := func(name string, value any) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		if err := encodeCompact(&buf, name); err != nil {
			return err
		}
		buf.WriteByte(':')
		return encodeCompact(&buf, value)
	}

	for _, f := range r.Fields {
		if f.Name == FieldSourceFile || f.Name == FieldBlockSHA1 {
			continue
		}
		if err := write(f.Name, f.Value); err != nil {
			return nil, err
		}
	}
	if err := write(FieldSourceFile, r.SourceFile); err != nil {
		return nil, err
	}
	if err := write(FieldBlockSHA1, r.BlockSHA1); err != nil {
		return nil, err
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeCompact(buf *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encoder 会追加换行
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

// RunResult 一次抽取运行的结果
// Records 按完成顺序排列，并发执行下顺序不确定
type RunResult struct {
	RunID     string        // 运行ID
	Records   []FundRecord  // 成功抽取的记录
	Documents int           // 文档数量
	Blocks    int           // 切分出的基金块总数
	Attempted int           // 已派发的块数量
	Succeeded int           // 成功数量
	Failed    int           // 失败数量
	Elapsed   time.Duration // 耗时
}
