package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/fund-info-parser/internal/cache"
	"github.com/fyerfyer/fund-info-parser/internal/document"
	"github.com/fyerfyer/fund-info-parser/internal/llm"
	"github.com/fyerfyer/fund-info-parser/internal/models"
)

// DefaultWorkers 默认并发抽取数
const DefaultWorkers = 4

// Extractor 单个基金块的字段抽取接口
type Extractor interface {
	Extract(ctx context.Context, blockText, model string) (models.FundRecord, error)
}

// ProgressFunc 每完成一个块回调一次
type ProgressFunc func(done, total int64)

// ExtractionService 抽取服务
// 负责切分文档、并发调用模型并收集成功的记录
type ExtractionService struct {
	extractor Extractor               // 字段抽取器
	splitter  *document.BlockSplitter // 基金块切分器
	cache     cache.Cache             // 抽取结果缓存(可选)
	cacheTTL  time.Duration           // 缓存过期时间
	model     string                  // 模型名称
	workers   int                     // 并发数
	progress  ProgressFunc            // 进度回调，会被多个worker并发调用
	logger    *logrus.Logger          // 日志记录器

	done  atomic.Int64 // 已完成的块数
	total atomic.Int64 // 块总数
}

// ExtractionOption 抽取服务配置选项
type ExtractionOption func(*ExtractionService)

// NewExtractionService 创建一个新的抽取服务
func NewExtractionService(extractor Extractor, opts ...ExtractionOption) *ExtractionService {
	srv := &ExtractionService{
		extractor: extractor,
		splitter:  document.NewBlockSplitter(),
		model:     llm.ModelO4Mini,
		workers:   DefaultWorkers,
		logger:    logrus.New(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	return srv
}

// WithWorkers 设置并发数
func WithWorkers(n int) ExtractionOption {
	return func(s *ExtractionService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithModel 设置模型名称
func WithModel(model string) ExtractionOption {
	return func(s *ExtractionService) {
		if model != "" {
			s.model = model
		}
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) ExtractionOption {
	return func(s *ExtractionService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCache 设置抽取结果缓存
func WithCache(c cache.Cache, ttl time.Duration) ExtractionOption {
	return func(s *ExtractionService) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithSplitter 设置基金块切分器
func WithSplitter(splitter *document.BlockSplitter) ExtractionOption {
	return func(s *ExtractionService) {
		if splitter != nil {
			s.splitter = splitter
		}
	}
}

// WithProgressFunc 设置进度回调
func WithProgressFunc(fn ProgressFunc) ExtractionOption {
	return func(s *ExtractionService) {
		s.progress = fn
	}
}

// Progress 返回已完成数和总数
func (s *ExtractionService) Progress() (done, total int64) {
	return s.done.Load(), s.total.Load()
}

// Split 切分所有文档并按文档顺序拼接基金块
func (s *ExtractionService) Split(docs []models.Document) []models.FundBlock {
	var blocks []models.FundBlock
	for _, doc := range docs {
		docBlocks := s.splitter.Split(doc.ID, doc.Pages)
		if len(docBlocks) == 0 {
			s.logger.WithField("source_file", doc.ID).Info("Segmentation empty, no fund headings found")
			continue
		}
		s.logger.WithFields(logrus.Fields{
			"source_file": doc.ID,
			"blocks":      len(docBlocks),
		}).Debug("Document split into fund blocks")
		blocks = append(blocks, docBlocks...)
	}
	return blocks
}

// Run 执行一次抽取
// 失败的块记录警告后丢弃，全部失败也不返回错误
// ctx 取消时停止派发，返回已收集的部分结果和 ctx.Err()
func (s *ExtractionService) Run(ctx context.Context, docs []models.Document) (*models.RunResult, error) {
	start := time.Now()
	result := &models.RunResult{
		RunID:     uuid.New().String(),
		Documents: len(docs),
	}
	logger := s.logger.WithField("run_id", result.RunID)

	blocks := s.Split(docs)
	result.Blocks = len(blocks)
	s.done.Store(0)
	s.total.Store(int64(len(blocks)))

	logger.WithFields(logrus.Fields{
		"documents": len(docs),
		"blocks":    len(blocks),
		"workers":   s.workers,
		"model":     s.model,
	}).Info("Extraction started")

	var (
		mu        sync.Mutex
		records   []models.FundRecord
		attempted atomic.Int64
		wg        sync.WaitGroup
	)
	indexes := make(chan int)

	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				block := blocks[i]
				record, err := s.extractBlock(ctx, block)
				if err != nil {
					logger.WithFields(logrus.Fields{
						"source_file": block.SourceID,
						"block_sha1":  block.SHA1,
					}).Warnf("%s block skipped: %v", block.SourceID, err)
				} else {
					mu.Lock()
					records = append(records, record.WithProvenance(block))
					mu.Unlock()
				}

				done := s.done.Add(1)
				if s.progress != nil {
					s.progress(done, int64(len(blocks)))
				}
			}
		}()
	}

dispatch:
	for i := range blocks {
		select {
		case <-ctx.Done():
			break dispatch
		case indexes <- i:
			attempted.Add(1)
		}
	}
	close(indexes)
	wg.Wait()

	result.Records = records
	if result.Records == nil {
		result.Records = []models.FundRecord{}
	}
	result.Attempted = int(attempted.Load())
	result.Succeeded = len(result.Records)
	result.Failed = result.Attempted - result.Succeeded
	result.Elapsed = time.Since(start)

	fields := logrus.Fields{
		"attempted": result.Attempted,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"elapsed":   result.Elapsed.String(),
	}
	if err := ctx.Err(); err != nil {
		logger.WithFields(fields).Warn("Extraction cancelled, returning partial result")
		return result, err
	}
	logger.WithFields(fields).Info("Extraction finished")

	return result, nil
}

// extractBlock 抽取单个块，命中缓存时跳过模型调用
func (s *ExtractionService) extractBlock(ctx context.Context, block models.FundBlock) (models.FundRecord, error) {
	var key string
	if s.cache != nil {
		key = cache.ExtractionKey(s.model, block.SHA1)
		fields, found, err := cache.LoadFields(ctx, s.cache, key)
		if err != nil {
			s.logger.WithError(err).WithField("block_sha1", block.SHA1).Debug("Cache lookup failed")
		} else if found {
			s.logger.WithField("block_sha1", block.SHA1).Debug("Cache hit")
			return models.FundRecord{Fields: fields}, nil
		}
	}

	record, err := s.extractor.Extract(ctx, block.Text, s.model)
	if err != nil {
		return models.FundRecord{}, err
	}

	if s.cache != nil {
		if err := cache.StoreFields(ctx, s.cache, key, record.Fields, s.cacheTTL); err != nil {
			s.logger.WithError(err).WithField("block_sha1", block.SHA1).Debug("Cache store failed")
		}
	}

	return record, nil
}

// LoadDocuments 解析所有输入文件，任何一个失败都返回错误
func LoadDocuments(paths []string, logger *logrus.Logger) ([]models.Document, error) {
	if len(paths) == 0 {
		return nil, models.ErrNoDocuments
	}
	if logger == nil {
		logger = logrus.New()
	}

	docs := make([]models.Document, 0, len(paths))
	for _, path := range paths {
		parser, err := document.ParserFactory(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		pages, err := parser.Parse(path)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}

		doc := models.NewDocument(path, pages)
		logger.WithFields(logrus.Fields{
			"source_file": doc.ID,
			"pages":       len(pages),
		}).Debug("Document loaded")
		docs = append(docs, doc)
	}

	return docs, nil
}
