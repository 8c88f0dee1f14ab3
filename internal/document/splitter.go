package document

import (
	"regexp"
	"strings"

	"github.com/fyerfyer/fund-info-parser/internal/models"
)

// DefaultHeadingPattern 基金摘要标题的默认匹配规则，例如
//
//	ACME 2X LONG WIDGET ETF – SUMMARY
//	DEF SHORT GADGET FUND - Summary
//
// 标题必须位于行首：大写名称前缀，可选的连接符，载体关键字(ETF/FUND/TRUST)，
// 之后任意文本(可跨行)，最后是连接符加 SUMMARY(不区分大小写)
const DefaultHeadingPattern = `(?ms)^` + headingNamePattern + `.*?[–—\-]\s?(?i:SUMMARY)`

// headingNamePattern 标题首行：大写名称加载体关键字
const headingNamePattern = `[A-Z][A-Z0-9 /&.\-]{4,}?(?:[–—\-]\s?)?\b(?:ETF|FUND|TRUST)\b`

// BlockSplitter 按基金标题把申报文件切分为基金块
type BlockSplitter struct {
	pattern *regexp.Regexp
	// 跨行匹配时，标题从最后一个满足该前缀的行开始
	nameLine *regexp.Regexp
}

// SplitterOption 切分器配置选项
type SplitterOption func(*BlockSplitter)

// WithHeadingPattern 使用自定义的标题正则，匹配结果按原样作为标题
func WithHeadingPattern(re *regexp.Regexp) SplitterOption {
	return func(s *BlockSplitter) {
		if re != nil {
			s.pattern = re
			s.nameLine = nil
		}
	}
}

// NewBlockSplitter 创建基金块切分器
func NewBlockSplitter(opts ...SplitterOption) *BlockSplitter {
	s := &BlockSplitter{
		pattern:  regexp.MustCompile(DefaultHeadingPattern),
		nameLine: regexp.MustCompile(`^` + headingNamePattern),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Split 将文档页面切分为基金块
// 第一个标题之前的前言被丢弃；没有标题时返回空切片
func (s *BlockSplitter) Split(sourceID string, pages []string) []models.FundBlock {
	text := strings.Join(pages, "\n")
	return s.SplitText(sourceID, text)
}

// SplitText 对已拼接的全文进行切分
func (s *BlockSplitter) SplitText(sourceID, text string) []models.FundBlock {
	matches := s.pattern.FindAllStringIndex(text, -1)
	for _, m := range matches {
		m[0] = s.headingStart(text, m[0], m[1])
	}
	blocks := make([]models.FundBlock, 0, len(matches))

	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := text[m[0]:end]
		blocks = append(blocks, models.FundBlock{
			SourceID: sourceID,
			Index:    i,
			Heading:  text[m[0]:m[1]],
			Text:     body,
			SHA1:     models.HashText(body),
		})
	}

	return blocks
}

// headingStart 返回匹配范围内最后一个满足标题首行规则的行首
func (s *BlockSplitter) headingStart(text string, start, end int) int {
	if s.nameLine == nil {
		return start
	}
	for i := end - 1; i > start; i-- {
		if text[i-1] != '\n' {
			continue
		}
		if s.nameLine.MatchString(text[i:end]) {
			return i
		}
	}
	return start
}
