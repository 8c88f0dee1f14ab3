package repository

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fyerfyer/fund-info-parser/internal/models"
)

// JSONLRecordRepository 以JSON Lines格式保存基金记录
// 每行一个对象，UTF-8编码，不转义非ASCII和HTML字符
type JSONLRecordRepository struct {
	path string
}

// NewJSONLRecordRepository 创建JSONL记录仓储
func NewJSONLRecordRepository(path string) *JSONLRecordRepository {
	return &JSONLRecordRepository{path: path}
}

// Path 返回输出文件路径
func (r *JSONLRecordRepository) Path() string {
	return r.path
}

// Prepare 创建父目录并截断输出文件
func (r *JSONLRecordRepository) Prepare() error {
	if dir := filepath.Dir(r.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(r.path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	return f.Close()
}

// SaveAll 覆盖写入全部记录
func (r *JSONLRecordRepository) SaveAll(records []models.FundRecord) (err error) {
	f, err := os.Create(r.path)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output file: %w", cerr)
		}
	}()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i := range records {
		if err := enc.Encode(records[i]); err != nil {
			return fmt.Errorf("failed to encode record %d: %w", i, err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush output file: %w", err)
	}
	return nil
}

// ReadAll 按行读取输出文件中的对象
func ReadAll(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []map[string]any
	dec := json.NewDecoder(f)
	for dec.More() {
		var row map[string]any
		if err := dec.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode line %d: %w", len(rows)+1, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
