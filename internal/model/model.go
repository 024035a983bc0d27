// Package model 提供实验追踪的数据模型
package model

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ashwinyue/traintrack/internal/apperr"
)

// Model 已注册的机器学习模型
// (name, project_name) 全局唯一
type Model struct {
	ID          string `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name        string `json:"name" gorm:"type:varchar(255);not null;uniqueIndex:uq_model_name_project,priority:1"`
	ProjectName string `json:"project_name" gorm:"type:varchar(255);not null;index;uniqueIndex:uq_model_name_project,priority:2"`
}

// BeforeCreate GORM 钩子，创建前生成 UUID
func (m *Model) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (Model) TableName() string {
	return "models"
}

// ParseID 校验实体 ID 并返回规范的 UUID 字符串
// 空值或非 UUID 输入返回校验错误
func ParseID(field, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperr.Validation("%s is required", field)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", apperr.Validation("invalid %s %q: want a UUID", field, raw)
	}
	return id.String(), nil
}
