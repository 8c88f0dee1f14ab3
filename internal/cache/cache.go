package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fyerfyer/fund-info-parser/internal/models"
)

// ExtractionPrefix 抽取结果缓存键前缀
const ExtractionPrefix = "extract"

// Cache 缓存接口
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Clear 清空本程序写入的键
	Clear(ctx context.Context) error
	Close() error
}

// Factory 缓存工厂函数类型
type Factory func(config Config) (Cache, error)

// 注册的缓存实现
var registry = make(map[string]Factory)

// RegisterCache 注册缓存实现
func RegisterCache(name string, factory Factory) {
	registry[name] = factory
}

// NewCache 创建缓存实例
func NewCache(config Config) (Cache, error) {
	if factory, ok := registry[config.Type]; ok {
		return factory(config)
	}
	return nil, fmt.Errorf("unsupported cache type: %q", config.Type)
}

// Config 缓存配置
type Config struct {
	// 缓存类型: "memory", "redis"
	Type string
	// Redis连接地址 (仅Redis缓存使用)
	RedisAddr string
	// Redis密码 (仅Redis缓存使用)
	RedisPassword string
	// Redis数据库编号 (仅Redis缓存使用)
	RedisDB int
	// 默认缓存过期时间
	DefaultTTL time.Duration
	// 自动清理间隔时间 (仅内存缓存使用)
	CleanupInterval time.Duration
}

// DefaultConfig 返回默认缓存配置
func DefaultConfig() Config {
	return Config{
		Type:            "memory",
		DefaultTTL:      time.Hour * 24,
		CleanupInterval: time.Minute * 10,
	}
}

// GenerateCacheKey 生成标准化的缓存键
func GenerateCacheKey(prefix string, parts ...string) string {
	if len(parts) == 0 {
		return prefix
	}
	return prefix + ":" + strings.Join(parts, ":")
}

// ExtractionKey 抽取结果的缓存键: extract:<model>:<sha1>
func ExtractionKey(model, blockSHA1 string) string {
	return GenerateCacheKey(ExtractionPrefix, model, blockSHA1)
}

// LoadFields 读取缓存的抽取字段
func LoadFields(ctx context.Context, c Cache, key string) ([]models.FieldValue, bool, error) {
	raw, found, err := c.Get(ctx, key)
	if err != nil || !found {
		return nil, false, err
	}

	var fields []models.FieldValue
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached fields: %w", err)
	}
	return fields, true, nil
}

// StoreFields 写入抽取字段，ttl为0时使用默认过期时间
func StoreFields(ctx context.Context, c Cache, key string, fields []models.FieldValue, ttl time.Duration) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode fields: %w", err)
	}
	return c.Set(ctx, key, string(raw), ttl)
}
