package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotFound 对象不存在
var ErrNotFound = errors.New("object not found")

// ObjectInfo 对象元数据
type ObjectInfo struct {
	Key      string    // 对象键，使用 / 分隔
	Size     int64     // 大小(字节)
	MimeType string    // MIME类型
	ModTime  time.Time // 最后修改时间
}

// Storage 按键寻址的对象存储接口
// 一个实例对应一个容器(本地目录或存储桶)
type Storage interface {
	// Save 写入对象，已存在时覆盖
	Save(ctx context.Context, key string, reader io.Reader) (ObjectInfo, error)

	// Get 读取对象内容，不存在时返回 ErrNotFound
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete 删除对象
	Delete(ctx context.Context, key string) error

	// List 列出指定前缀下的所有对象
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Exists 检查对象是否存在
	Exists(ctx context.Context, key string) (bool, error)
}

// Config 存储配置
type Config struct {
	Type      string // local 或 minio
	Path      string // 本地根目录，容器为其子目录
	Endpoint  string // MinIO服务端点
	AccessKey string // 访问密钥ID
	SecretKey string // 秘密访问密钥
	UseSSL    bool   // 是否使用SSL
}

// Open 根据配置打开指定容器
func Open(cfg Config, container string) (Storage, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalStorage(LocalConfig{Path: filepath.Join(cfg.Path, container)})
	case "minio":
		return NewMinioStorage(MinioConfig{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Bucket:    container,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %q", cfg.Type)
	}
}

// ReadAll 读取整个对象
func ReadAll(ctx context.Context, s Storage, key string) ([]byte, error) {
	rc, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// HasPrefix 检查前缀下是否至少有一个对象
func HasPrefix(ctx context.Context, s Storage, prefix string) (bool, error) {
	objects, err := s.List(ctx, prefix)
	if err != nil {
		return false, err
	}
	return len(objects) > 0, nil
}

// cleanKey 规范化对象键，拒绝越出容器的键
func cleanKey(key string) (string, error) {
	key = strings.TrimLeft(path.Clean("/"+strings.ReplaceAll(key, "\\", "/")), "/")
	if key == "" || key == "." {
		return "", fmt.Errorf("invalid object key")
	}
	return key, nil
}

// getMimeType 简单根据文件扩展名判断MIME类型
func getMimeType(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".json":
		return "application/json"
	case ".jsonl":
		return "application/x-ndjson"
	case ".csv":
		return "text/csv"
	case ".pdf":
		return "application/pdf"
	case ".htm", ".html":
		return "text/html"
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
