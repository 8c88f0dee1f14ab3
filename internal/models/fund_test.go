package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashText(t *testing.T) {
	t.Run("Deterministic", func(t *testing.T) {
		text := "ACME 2X LONG WIDGET ETF – SUMMARY\nObjective: ..."
		assert.Equal(t, HashText(text), HashText(text))
		assert.Len(t, HashText(text), 40)
	})

	t.Run("SingleCharacterChange", func(t *testing.T) {
		assert.NotEqual(t, HashText("ACME FUND"), HashText("ACME FUNE"))
	})

	t.Run("KnownDigest", func(t *testing.T) {
		assert.Equal(t, "da39a3ee5e6b4b0d3255bfef95601890afd80709", HashText(""))
	})
}

func TestFundRecordMarshalJSON(t *testing.T) {
	record := FundRecord{
		Fields: []FieldValue{
			{Name: "fund_name", Value: "Société Générale <Daily> ETF"},
			{Name: "ticker", Value: nil},
			{Name: "management_fee", Value: 0.75},
		},
		SourceFile: "filing.pdf",
		BlockSHA1:  "abc123",
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	require.NoError(t, enc.Encode(record))

	data := bytes.TrimRight(buf.Bytes(), "\n")
	out := string(data)
	// 字段顺序保持不变，溯源字段在最后
	assert.True(t, strings.HasPrefix(out, `{"fund_name":`))
	assert.True(t, strings.HasSuffix(out, `"source_file":"filing.pdf","block_sha1":"abc123"}`))
	// 非ASCII与HTML字符不转义
	assert.Contains(t, out, "Société Générale <Daily> ETF")
	assert.Contains(t, out, `"ticker":null`)
	assert.Contains(t, out, `"management_fee":0.75`)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 5)

	t.Run("json.Marshal escapes HTML", func(t *testing.T) {
		data, err := json.Marshal(record)
		require.NoError(t, err)
		assert.Contains(t, string(data), `Société Générale \u003cDaily\u003e ETF`)
	})
}

func TestFundRecordWithProvenance(t *testing.T) {
	block := FundBlock{SourceID: "a.pdf", Text: "X", SHA1: HashText("X")}
	base := FundRecord{Fields: []FieldValue{{Name: "fund_name", Value: "X"}}}

	record := base.WithProvenance(block)
	assert.Equal(t, "a.pdf", record.SourceFile)
	assert.Equal(t, block.SHA1, record.BlockSHA1)

	value, ok := record.Get("fund_name")
	assert.True(t, ok)
	assert.Equal(t, "X", value)

	_, ok = record.Get("missing")
	assert.False(t, ok)

	// 原记录不被修改
	assert.Empty(t, base.SourceFile)
}
