package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"

	appconfig "github.com/fyerfyer/fund-info-parser/config"
	"github.com/fyerfyer/fund-info-parser/internal/cache"
	"github.com/fyerfyer/fund-info-parser/internal/llm"
	"github.com/fyerfyer/fund-info-parser/internal/logging"
	"github.com/fyerfyer/fund-info-parser/internal/repository"
	"github.com/fyerfyer/fund-info-parser/internal/services"
)

// options 命令行选项
type options struct {
	Paths      []string // 输入文档路径
	Out        string   // 输出文件
	Model      string   // 模型名称
	Workers    int      // 并发数
	ConfigFile string   // 配置文件路径
	LogLevel   string   // 日志级别
	Cache      string   // 缓存类型 memory|redis|off
	NoProgress bool     // 关闭进度条

	set map[string]bool // 命令行上显式设置的选项
}

// errUsage 命令行用法错误
var errUsage = errors.New("usage error")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run 执行一次抽取并返回退出码
func run(args []string, stdout, stderr io.Writer) int {
	// .env 不存在时忽略
	_ = godotenv.Load()

	opts, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	cfg, err := appconfig.Load(opts.ConfigFile)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}
	applyOptions(cfg, opts)
	if err := appconfig.Validate(cfg); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	logger, err := logging.Setup(cfg.Log)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to set up logging: %v\n", err)
		return 1
	}

	// 派发前暴露所有输入、输出和配置错误
	docs, err := services.LoadDocuments(opts.Paths, logger)
	if err != nil {
		logger.Errorf("Failed to load documents: %v", err)
		return 1
	}

	repo := repository.NewJSONLRecordRepository(cfg.Pipeline.Output)
	if err := repo.Prepare(); err != nil {
		logger.Errorf("Failed to prepare output: %v", err)
		return 1
	}

	llmClient, err := setupLLM(cfg, logger)
	if err != nil {
		logger.Errorf("Failed to initialize LLM client: %v", err)
		return 1
	}

	srvOpts := []services.ExtractionOption{
		services.WithModel(cfg.LLM.Model),
		services.WithWorkers(cfg.Pipeline.Workers),
		services.WithLogger(logger),
	}

	if cfg.Cache.Enable {
		c, err := setupCache(cfg)
		if err != nil {
			logger.Errorf("Failed to initialize cache: %v", err)
			return 1
		}
		defer c.Close()
		srvOpts = append(srvOpts, services.WithCache(c, cfg.Cache.CacheTTL()))
	}

	var bar *progressBar
	if !opts.NoProgress {
		bar = newProgressBar(stderr)
		srvOpts = append(srvOpts, services.WithProgressFunc(bar.update))
	}

	extractor := llm.NewExtractor(llmClient,
		llm.WithMaxTokens(cfg.LLM.MaxTokens),
		llm.WithExtractorLogger(logger),
	)
	srv := services.NewExtractionService(extractor, srvOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, runErr := srv.Run(ctx, docs)
	if bar != nil {
		bar.finish()
	}

	// 中断时也写出已收集的记录
	if err := repo.SaveAll(result.Records); err != nil {
		logger.Errorf("Failed to write records: %v", err)
		return 1
	}

	fmt.Fprintf(stderr, "Attempted %d blocks, succeeded %d, failed %d\n",
		result.Attempted, result.Succeeded, result.Failed)
	fmt.Fprintf(stdout, "Wrote %d funds → %s\n", result.Succeeded, repo.Path())

	if runErr != nil {
		logger.WithError(runErr).Warn("Run interrupted")
		return 130
	}
	return 0
}

// parseArgs 解析命令行参数，允许选项和路径交错出现
func parseArgs(args []string, stderr io.Writer) (*options, error) {
	opts := &options{set: make(map[string]bool)}

	fs := flag.NewFlagSet("sec497", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.Out, "out", "data/extracted/sec497.jsonl", "Output JSONL file")
	fs.StringVar(&opts.Model, "model", llm.ModelO4Mini, "Model name")
	fs.IntVar(&opts.Workers, "workers", services.DefaultWorkers, "Number of concurrent extractions")
	fs.StringVar(&opts.ConfigFile, "config", "", "Path to config file")
	fs.StringVar(&opts.LogLevel, "log-level", "info", "Log level (debug/info/warn/error)")
	fs.StringVar(&opts.Cache, "cache", "", "Extraction cache (memory/redis/off)")
	fs.BoolVar(&opts.NoProgress, "no-progress", false, "Disable the progress bar")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: sec497 [flags] FILE [FILE...]")
		fs.PrintDefaults()
	}

	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			break
		}
		opts.Paths = append(opts.Paths, args[0])
		args = args[1:]
	}

	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	if len(opts.Paths) == 0 {
		fs.Usage()
		return nil, fmt.Errorf("%w: at least one document path is required", errUsage)
	}
	if opts.Workers < 1 {
		return nil, fmt.Errorf("%w: -workers must be at least 1", errUsage)
	}
	switch opts.Cache {
	case "", "memory", "redis", "off":
	default:
		return nil, fmt.Errorf("%w: -cache must be memory, redis or off", errUsage)
	}

	return opts, nil
}

// applyOptions 命令行显式设置的选项覆盖配置文件
func applyOptions(cfg *appconfig.Config, opts *options) {
	if opts.set["out"] || cfg.Pipeline.Output == "" {
		cfg.Pipeline.Output = opts.Out
	}
	if opts.set["model"] || cfg.LLM.Model == "" {
		cfg.LLM.Model = opts.Model
	}
	if opts.set["workers"] || cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = opts.Workers
	}
	if opts.set["log-level"] {
		cfg.Log.Level = opts.LogLevel
	}
	switch opts.Cache {
	case "off":
		cfg.Cache.Enable = false
	case "memory", "redis":
		cfg.Cache.Enable = true
		cfg.Cache.Type = opts.Cache
	}
}

// setupLLM 创建大模型客户端
func setupLLM(cfg *appconfig.Config, logger *logrus.Logger) (llm.Client, error) {
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("LLM API key is required (set OPENAI_API_KEY or llm.api_key)")
	}

	return llm.NewClient(cfg.LLM.Provider,
		llm.WithAPIKey(cfg.LLM.APIKey),
		llm.WithBaseURL(cfg.LLM.Endpoint),
		llm.WithModel(cfg.LLM.Model),
		llm.WithTimeout(cfg.LLM.Timeout),
		llm.WithRetry(llm.RetryConfig{
			InitialInterval:     cfg.LLM.Retry.InitialInterval,
			MaxInterval:         cfg.LLM.Retry.MaxInterval,
			Multiplier:          cfg.LLM.Retry.Multiplier,
			RandomizationFactor: llm.DefaultRetryConfig().RandomizationFactor,
			MaxElapsedTime:      cfg.LLM.Retry.MaxElapsedTime,
		}),
		llm.WithLogger(logger),
	)
}

// setupCache 设置抽取结果缓存
func setupCache(cfg *appconfig.Config) (cache.Cache, error) {
	cacheConfig := cache.DefaultConfig()
	cacheConfig.Type = cfg.Cache.Type
	cacheConfig.DefaultTTL = cfg.Cache.CacheTTL()
	if cfg.Cache.Type == "redis" {
		cacheConfig.RedisAddr = cfg.Cache.Address
		cacheConfig.RedisPassword = cfg.Cache.Password
		cacheConfig.RedisDB = cfg.Cache.DB
	}
	return cache.NewCache(cacheConfig)
}

// progressBar 按基金块数量显示进度
type progressBar struct {
	mu   sync.Mutex
	bar  *progressbar.ProgressBar
	last int64
}

func newProgressBar(w io.Writer) *progressBar {
	bar := progressbar.NewOptions64(-1,
		progressbar.OptionSetDescription("Extracting"),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("blocks"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
	)
	return &progressBar{bar: bar}
}

// update 作为ProgressFunc被多个worker调用
func (p *progressBar) update(done, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar.GetMax64() != total {
		p.bar.ChangeMax64(total)
	}
	if done > p.last {
		p.last = done
		_ = p.bar.Set64(done)
	}
}

func (p *progressBar) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last > 0 {
		_ = p.bar.Finish()
	}
}
