package repository

import "github.com/fyerfyer/fund-info-parser/internal/models"

// RecordRepository 抽取结果仓储接口
// 负责基金记录的落盘
type RecordRepository interface {
	// Prepare 在派发任务前准备输出位置，路径错误应在此暴露
	Prepare() error

	// SaveAll 一次性写入所有记录
	SaveAll(records []models.FundRecord) error

	// Path 返回输出位置
	Path() string
}
