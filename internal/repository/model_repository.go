// Package repository 提供实验追踪的数据访问层
package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/ashwinyue/traintrack/internal/model"
)

// ModelRepository 模型数据访问
type ModelRepository struct {
	db *gorm.DB
}

// NewModelRepository 创建模型仓库
func NewModelRepository(db *gorm.DB) *ModelRepository {
	return &ModelRepository{db: db}
}

// Create 创建模型，(name, project_name) 重复时返回 Conflict
func (r *ModelRepository) Create(ctx context.Context, m *model.Model) error {
	m.ID = ""
	err := r.db.WithContext(ctx).Create(m).Error
	return translateError(err, entityModel, fmt.Sprintf("name=%q project=%q", m.Name, m.ProjectName))
}

// GetByID 根据 ID 获取模型
func (r *ModelRepository) GetByID(ctx context.Context, id string) (*model.Model, error) {
	var m model.Model
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		return nil, translateError(err, entityModel, "id="+id)
	}
	return &m, nil
}

// List 列出模型，projectName 为空时列出全部
func (r *ModelRepository) List(ctx context.Context, projectName string) ([]*model.Model, error) {
	var models []*model.Model
	query := r.db.WithContext(ctx).Model(&model.Model{})

	if projectName != "" {
		query = query.Where("project_name = ?", projectName)
	}

	err := query.Order("project_name ASC, name ASC").Find(&models).Error
	return models, translateError(err, entityModel, "list")
}

// ProjectExists 项目下是否至少有一个模型
func (r *ModelRepository) ProjectExists(ctx context.Context, projectName string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Model{}).
		Where("project_name = ?", projectName).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, translateError(err, entityModel, "project="+projectName)
	}
	return count > 0, nil
}

// Delete 删除模型及其全部运行和观测值，返回删除的模型数
func (r *ModelRepository) Delete(ctx context.Context, id string) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := deleteModelsCascade(tx, []string{id})
		affected = n
		return err
	})
	if err != nil {
		return 0, translateError(err, entityModel, "id="+id)
	}
	return affected, nil
}

// DeleteByProject 删除项目下的所有模型，返回删除的模型数
func (r *ModelRepository) DeleteByProject(ctx context.Context, projectName string) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&model.Model{}).Where("project_name = ?", projectName).Pluck("id", &ids).Error; err != nil {
			return err
		}
		n, err := deleteModelsCascade(tx, ids)
		affected = n
		return err
	})
	if err != nil {
		return 0, translateError(err, entityModel, "project="+projectName)
	}
	return affected, nil
}

func deleteModelsCascade(tx *gorm.DB, modelIDs []string) (int64, error) {
	if len(modelIDs) == 0 {
		return 0, nil
	}

	var runIDs []string
	if err := tx.Model(&model.TrainingRun{}).Where("model_id IN ?", modelIDs).Pluck("id", &runIDs).Error; err != nil {
		return 0, err
	}
	if _, err := deleteRunsCascade(tx, runIDs); err != nil {
		return 0, err
	}

	result := tx.Where("id IN ?", modelIDs).Delete(&model.Model{})
	return result.RowsAffected, result.Error
}
