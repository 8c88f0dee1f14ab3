package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	appconfig "github.com/fyerfyer/fund-info-parser/config"
	"github.com/fyerfyer/fund-info-parser/internal/logging"
	"github.com/fyerfyer/fund-info-parser/internal/timeseries"
	"github.com/fyerfyer/fund-info-parser/pkg/storage"
)

// options 命令行选项
type options struct {
	Ticker     string
	DataType   string
	Compare    string // 对比的第二个代码
	ConfigFile string
	Out        string // 为空时写到stdout
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute 解析参数、执行查询并返回退出码
func execute(args []string, stdout, stderr io.Writer) int {
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
	if err := appconfig.Validate(cfg); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	logger, err := logging.Setup(cfg.Log)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to set up logging: %v\n", err)
		return 1
	}

	fetcher, err := setupFetcher(cfg, logger)
	if err != nil {
		logger.Errorf("Failed to open storage: %v", err)
		return 1
	}

	out := stdout
	if opts.Out != "" {
		f, err := os.Create(opts.Out)
		if err != nil {
			logger.Errorf("Failed to create output file: %v", err)
			return 1
		}
		defer f.Close()
		out = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, fetcher, opts, out); err != nil {
		var lookupErr *timeseries.LookupError
		if errors.As(err, &lookupErr) {
			logger.WithFields(logrus.Fields{
				"ticker": lookupErr.Ticker,
				"kind":   lookupErr.Kind,
			}).Error("Lookup failed")
		}
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

// parseArgs 解析命令行参数
func parseArgs(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}

	fs := flag.NewFlagSet("timeseries", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.Ticker, "ticker", "", "Ticker to fetch (required)")
	fs.StringVar(&opts.DataType, "type", "PX_LAST", "Historical data type")
	fs.StringVar(&opts.Compare, "compare", "", "Second ticker to align against")
	fs.StringVar(&opts.ConfigFile, "config", "", "Path to config file")
	fs.StringVar(&opts.Out, "out", "", "Output CSV file (default stdout)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 && opts.Ticker == "" {
		opts.Ticker = fs.Arg(0)
	}

	opts.Ticker = strings.TrimSpace(opts.Ticker)
	if opts.Ticker == "" {
		fs.Usage()
		return nil, errors.New("a ticker is required")
	}
	return opts, nil
}

// setupFetcher 打开映射和历史数据两个容器
func setupFetcher(cfg *appconfig.Config, logger *logrus.Logger) (*timeseries.Fetcher, error) {
	storageCfg := storage.Config{
		Type:      cfg.Storage.Type,
		Path:      cfg.Storage.Path,
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
	}

	mapping, err := storage.Open(storageCfg, cfg.Storage.MappingBucket)
	if err != nil {
		return nil, fmt.Errorf("mapping container: %w", err)
	}
	processed, err := storage.Open(storageCfg, cfg.Storage.ProcessedBucket)
	if err != nil {
		return nil, fmt.Errorf("processed container: %w", err)
	}

	return timeseries.NewFetcher(mapping, processed,
		timeseries.WithMappingBlob(cfg.Storage.MappingBlob),
		timeseries.WithLogger(logger),
	), nil
}

// run 拉取序列并写出CSV
func run(ctx context.Context, fetcher *timeseries.Fetcher, opts *options, w io.Writer) error {
	series, err := fetcher.Fetch(ctx, opts.DataType, opts.Ticker)
	if err != nil {
		return err
	}
	if opts.Compare == "" {
		return series.WriteCSV(w)
	}

	other, err := fetcher.Fetch(ctx, opts.DataType, opts.Compare)
	if err != nil {
		return err
	}
	left, right := timeseries.Align(series, other)
	return timeseries.WriteCSV(w, left, right)
}
