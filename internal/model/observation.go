package model

import (
	"time"

	"github.com/ashwinyue/traintrack/internal/apperr"
)

// Split 观测值所属的数据划分
type Split string

const (
	SplitTrain      Split = "train"      // 训练集
	SplitValidation Split = "validation" // 验证集
)

// ParseSplit 解析数据划分
func ParseSplit(s string) (Split, error) {
	switch sp := Split(s); sp {
	case SplitTrain, SplitValidation:
		return sp, nil
	}
	return "", apperr.Validation("invalid split %q, want train or validation", s)
}

// MetricName 支持的指标名称
type MetricName string

const (
	MetricAccuracy         MetricName = "accuracy"
	MetricF1Score          MetricName = "f1-score"
	MetricRecall           MetricName = "recall"
	MetricPrecision        MetricName = "precision"
	MetricBalancedAccuracy MetricName = "balanced accuracy"
	MetricMSE              MetricName = "mse"
	MetricMAE              MetricName = "mae"
)

// MetricNames 全部指标名称
var MetricNames = []MetricName{
	MetricAccuracy,
	MetricF1Score,
	MetricRecall,
	MetricPrecision,
	MetricBalancedAccuracy,
	MetricMSE,
	MetricMAE,
}

// ParseMetricName 解析指标名称
func ParseMetricName(s string) (MetricName, error) {
	for _, name := range MetricNames {
		if string(name) == s {
			return name, nil
		}
	}
	return "", apperr.Validation("invalid metric name %q", s)
}

// Loss 某一步的损失值
// 主键 (run_id, step, split)，写入后不可修改
type Loss struct {
	RunID     string    `json:"run_id" gorm:"type:varchar(36);primaryKey;index:idx_loss_run_split_step,priority:1"`
	Step      int64     `json:"step" gorm:"primaryKey;autoIncrement:false;index:idx_loss_run_split_step,priority:3"`
	Split     Split     `json:"split" gorm:"type:varchar(20);primaryKey;index:idx_loss_run_split_step,priority:2;check:chk_losses_split,split IN ('train','validation')"`
	Value     float64   `json:"value" gorm:"not null"`
	Timestamp time.Time `json:"timestamp" gorm:"autoCreateTime;not null"`

	Run *TrainingRun `json:"-" gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// TableName 指定表名
func (Loss) TableName() string {
	return "losses"
}

// Metric 某一步的评估指标
// 主键 (run_id, step, split, metric_name)，写入后不可修改
type Metric struct {
	RunID      string     `json:"run_id" gorm:"type:varchar(36);primaryKey;index:idx_metric_run_split_step,priority:1"`
	Step       int64      `json:"step" gorm:"primaryKey;autoIncrement:false;index:idx_metric_run_split_step,priority:3"`
	Split      Split      `json:"split" gorm:"type:varchar(20);primaryKey;index:idx_metric_run_split_step,priority:2;check:chk_metrics_split,split IN ('train','validation')"`
	MetricName MetricName `json:"metric_name" gorm:"type:varchar(32);primaryKey;check:chk_metrics_name,metric_name IN ('accuracy','f1-score','recall','precision','balanced accuracy','mse','mae')"`
	Value      float64    `json:"value" gorm:"not null"`
	Timestamp  time.Time  `json:"timestamp" gorm:"autoCreateTime;not null"`

	Run *TrainingRun `json:"-" gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// TableName 指定表名
func (Metric) TableName() string {
	return "metrics"
}
