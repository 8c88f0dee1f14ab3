package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 应用程序配置结构体
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
}

// LLMConfig 大语言模型配置
type LLMConfig struct {
	Provider  string        `mapstructure:"provider" validate:"required,oneof=openai"` // 提供商
	Model     string        `mapstructure:"model" validate:"required"`                 // 模型名称
	APIKey    string        `mapstructure:"api_key"`                                   // API密钥，支持 ${ENV}
	Endpoint  string        `mapstructure:"endpoint" validate:"required,url"`          // API端点
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`                   // 单次请求超时
	MaxTokens int           `mapstructure:"max_tokens" validate:"gte=0"`               // 每个块的生成上限，0 表示不限制
	Retry     RetryConfig   `mapstructure:"retry"`
}

// RetryConfig 瞬时错误的退避重试配置
type RetryConfig struct {
	InitialInterval time.Duration `mapstructure:"initial_interval" validate:"gt=0"`
	MaxInterval     time.Duration `mapstructure:"max_interval" validate:"gtefield=InitialInterval"`
	Multiplier      float64       `mapstructure:"multiplier" validate:"gte=1"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time" validate:"gt=0"` // 单次调用的重试时间预算
}

// PipelineConfig 抽取流水线配置
type PipelineConfig struct {
	Workers int    `mapstructure:"workers" validate:"gte=1,lte=64"` // 并发数
	Output  string `mapstructure:"output" validate:"required"`      // JSONL输出路径
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Enable   bool   `mapstructure:"enable"`                                    // 是否启用缓存
	Type     string `mapstructure:"type" validate:"oneof=memory redis"`        // 缓存类型：memory 或 redis
	Address  string `mapstructure:"address" validate:"required_if=Type redis"` // Redis地址
	Password string `mapstructure:"password"`                                  // Redis密码
	DB       int    `mapstructure:"db" validate:"gte=0"`                       // Redis数据库
	TTL      int    `mapstructure:"ttl" validate:"gte=0"`                      // 缓存TTL（秒）
}

// StorageConfig 时间序列存储配置
type StorageConfig struct {
	Type            string `mapstructure:"type" validate:"oneof=local minio"`          // 存储类型：local 或 minio
	Path            string `mapstructure:"path" validate:"required_if=Type local"`     // 本地根目录
	Endpoint        string `mapstructure:"endpoint" validate:"required_if=Type minio"` // MinIO端点
	AccessKey       string `mapstructure:"access_key"`
	SecretKey       string `mapstructure:"secret_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`                              // 是否使用SSL
	MappingBucket   string `mapstructure:"mapping_bucket" validate:"required"`   // 代码映射容器
	ProcessedBucket string `mapstructure:"processed_bucket" validate:"required"` // 历史数据容器
	MappingBlob     string `mapstructure:"mapping_blob" validate:"required"`     // 映射文件名
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Format     string `mapstructure:"format" validate:"oneof=text json"`
	File       string `mapstructure:"file"` // 为空时只输出到stderr
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

// CacheTTL 返回缓存过期时间
func (c CacheConfig) CacheTTL() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

// Load 从文件和环境变量加载配置
// configPath 为空或文件不存在时使用默认值
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// 支持环境变量覆盖，例如 LLM_MODEL、PIPELINE_WORKERS
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	processEnvironmentVariables(&cfg)
	return &cfg, nil
}

// envPattern 匹配 ${NAME} 形式的引用
var envPattern = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)\}$`)

// expandEnv 替换 ${NAME}，环境变量未设置时返回空字符串
func expandEnv(value string) string {
	m := envPattern.FindStringSubmatch(value)
	if m == nil {
		return value
	}
	return os.Getenv(m[1])
}

// processEnvironmentVariables 处理密钥类配置项中的环境变量引用
func processEnvironmentVariables(cfg *Config) {
	cfg.LLM.APIKey = expandEnv(cfg.LLM.APIKey)
	cfg.Cache.Password = expandEnv(cfg.Cache.Password)
	cfg.Storage.AccessKey = expandEnv(cfg.Storage.AccessKey)
	cfg.Storage.SecretKey = expandEnv(cfg.Storage.SecretKey)
}

// Validate 校验配置
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// setDefaults 设置配置的默认值
func setDefaults(v *viper.Viper) {
	// LLM默认配置
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "o4-mini")
	v.SetDefault("llm.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("llm.endpoint", "https://api.openai.com/v1")
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.max_tokens", 0)
	v.SetDefault("llm.retry.initial_interval", "1s")
	v.SetDefault("llm.retry.max_interval", "30s")
	v.SetDefault("llm.retry.multiplier", 2.0)
	v.SetDefault("llm.retry.max_elapsed_time", "120s")

	// 流水线默认配置
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.output", "data/extracted/sec497.jsonl")

	// 缓存默认配置
	v.SetDefault("cache.enable", false)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.address", "localhost:6379")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 7*24*3600) // 一周

	// 存储默认配置
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.path", "./data/blobs")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.mapping_bucket", "mapping")
	v.SetDefault("storage.processed_bucket", "processed")
	v.SetDefault("storage.mapping_blob", "bloomberg_figi_mapping.json")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}
