package repository

import (
	"gorm.io/gorm"

	"github.com/ashwinyue/traintrack/internal/model"
)

// Repositories 仓库集合，用于统一管理所有仓库
type Repositories struct {
	DB     *gorm.DB // 直接访问数据库
	Model  *ModelRepository
	Run    *RunRepository
	Loss   *LossRepository
	Metric *MetricRepository
}

// NewRepositories 创建所有仓库
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:     db,
		Model:  NewModelRepository(db),
		Run:    NewRunRepository(db),
		Loss:   NewLossRepository(db),
		Metric: NewMetricRepository(db),
	}
}

// deleteRunsCascade 在事务内删除运行及其观测值
// 外键上已声明 ON DELETE CASCADE，这里显式删除子表，不依赖引擎是否开启了外键
func deleteRunsCascade(tx *gorm.DB, runIDs []string) (int64, error) {
	if len(runIDs) == 0 {
		return 0, nil
	}
	if err := tx.Where("run_id IN ?", runIDs).Delete(&model.Loss{}).Error; err != nil {
		return 0, err
	}
	if err := tx.Where("run_id IN ?", runIDs).Delete(&model.Metric{}).Error; err != nil {
		return 0, err
	}
	result := tx.Where("id IN ?", runIDs).Delete(&model.TrainingRun{})
	return result.RowsAffected, result.Error
}
