package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ashwinyue/traintrack/internal/model"
)

// insertBatchSize 单条 INSERT 语句的最大行数
const insertBatchSize = 500

// ObservationFilter 观测值查询条件
type ObservationFilter struct {
	RunID      string
	Split      model.Split      // 为空时不过滤
	MetricName model.MetricName // 仅对指标生效，为空时不过滤
	Limit      int              // <= 0 表示不限制
}

// ========== Loss ==========

// LossRepository 损失值数据访问
type LossRepository struct {
	db *gorm.DB
}

// NewLossRepository 创建损失值仓库
func NewLossRepository(db *gorm.DB) *LossRepository {
	return &LossRepository{db: db}
}

// Create 写入一条损失值
// 不预先检查是否存在：(run_id, step, split) 重复由主键约束拒绝并返回 Conflict
func (r *LossRepository) Create(ctx context.Context, loss *model.Loss) error {
	loss.Timestamp = time.Time{}
	err := r.db.WithContext(ctx).Create(loss).Error
	return translateError(err, entityLoss, lossKey(loss))
}

// CreateBatch 在一个事务内写入一批损失值，任一行失败则全部回滚
func (r *LossRepository) CreateBatch(ctx context.Context, losses []*model.Loss) error {
	if len(losses) == 0 {
		return nil
	}
	for _, loss := range losses {
		loss.Timestamp = time.Time{}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(losses, insertBatchSize).Error
	})
	return translateError(err, entityLoss, fmt.Sprintf("batch of %d for run_id=%s", len(losses), losses[0].RunID))
}

// List 按 step 倒序列出损失值
func (r *LossRepository) List(ctx context.Context, f ObservationFilter) ([]*model.Loss, error) {
	var losses []*model.Loss
	query := r.db.WithContext(ctx).Where("run_id = ?", f.RunID)

	if f.Split != "" {
		query = query.Where("split = ?", f.Split)
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}

	err := query.Order("step DESC, split ASC").Find(&losses).Error
	return losses, translateError(err, entityLoss, "run_id="+f.RunID)
}

func lossKey(l *model.Loss) string {
	return fmt.Sprintf("run_id=%s step=%d split=%s", l.RunID, l.Step, l.Split)
}

// ========== Metric ==========

// MetricRepository 指标数据访问
type MetricRepository struct {
	db *gorm.DB
}

// NewMetricRepository 创建指标仓库
func NewMetricRepository(db *gorm.DB) *MetricRepository {
	return &MetricRepository{db: db}
}

// Create 写入一条指标
func (r *MetricRepository) Create(ctx context.Context, metric *model.Metric) error {
	metric.Timestamp = time.Time{}
	err := r.db.WithContext(ctx).Create(metric).Error
	return translateError(err, entityMetric, metricKey(metric))
}

// CreateBatch 在一个事务内写入一批指标，任一行失败则全部回滚
func (r *MetricRepository) CreateBatch(ctx context.Context, metrics []*model.Metric) error {
	if len(metrics) == 0 {
		return nil
	}
	for _, metric := range metrics {
		metric.Timestamp = time.Time{}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(metrics, insertBatchSize).Error
	})
	return translateError(err, entityMetric, fmt.Sprintf("batch of %d for run_id=%s", len(metrics), metrics[0].RunID))
}

// List 按 step 倒序列出指标
func (r *MetricRepository) List(ctx context.Context, f ObservationFilter) ([]*model.Metric, error) {
	var metrics []*model.Metric
	query := r.db.WithContext(ctx).Where("run_id = ?", f.RunID)

	if f.Split != "" {
		query = query.Where("split = ?", f.Split)
	}
	if f.MetricName != "" {
		query = query.Where("metric_name = ?", f.MetricName)
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}

	err := query.Order("step DESC, split ASC, metric_name ASC").Find(&metrics).Error
	return metrics, translateError(err, entityMetric, "run_id="+f.RunID)
}

func metricKey(m *model.Metric) string {
	return fmt.Sprintf("run_id=%s step=%d split=%s metric_name=%s", m.RunID, m.Step, m.Split, m.MetricName)
}
