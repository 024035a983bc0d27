package model

import (
	"time"

	"github.com/ashwinyue/traintrack/internal/apperr"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RunStatus 训练运行状态
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"   // 运行中（初始状态）
	RunStatusCompleted RunStatus = "completed" // 已完成（终态）
	RunStatusFailed    RunStatus = "failed"    // 失败（终态）
)

// Terminal 是否为终态
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// ParseRunStatus 解析运行状态
func ParseRunStatus(s string) (RunStatus, error) {
	switch st := RunStatus(s); st {
	case RunStatusRunning, RunStatusCompleted, RunStatusFailed:
		return st, nil
	}
	return "", apperr.Validation("invalid run status %q", s)
}

// TrainingRun 一次训练运行
type TrainingRun struct {
	ID              string            `json:"id" gorm:"type:varchar(36);primaryKey"`
	ModelID         string            `json:"model_id" gorm:"type:varchar(36);not null;index"`
	Status          RunStatus         `json:"status" gorm:"type:varchar(20);not null;default:'running';check:chk_training_runs_status,status IN ('running','completed','failed')"`
	StartedAt       time.Time         `json:"started_at" gorm:"autoCreateTime;not null"`
	FinishedAt      *time.Time        `json:"finished_at"`
	Hyperparameters datatypes.JSONMap `json:"hyperparameters,omitempty"`

	Model *Model `json:"-" gorm:"foreignKey:ModelID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate GORM 钩子，创建前生成 UUID
func (r *TrainingRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (TrainingRun) TableName() string {
	return "training_runs"
}
