package repository

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ashwinyue/traintrack/internal/model"
)

// RunRepository 训练运行数据访问
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository 创建运行仓库
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create 创建运行
// id、状态和 started_at 由存储层填充，忽略调用方传入的值。
// model_id 不存在时外键约束失败，返回 model NotFound。
func (r *RunRepository) Create(ctx context.Context, run *model.TrainingRun) error {
	run.ID = ""
	run.Status = model.RunStatusRunning
	run.StartedAt = time.Time{}
	run.FinishedAt = nil

	err := r.db.WithContext(ctx).Create(run).Error
	return translateError(err, entityRun, "model_id="+run.ModelID)
}

// GetByID 根据 ID 获取运行
func (r *RunRepository) GetByID(ctx context.Context, id string) (*model.TrainingRun, error) {
	var run model.TrainingRun
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if err != nil {
		return nil, translateError(err, entityRun, "id="+id)
	}
	return &run, nil
}

// Exists 运行是否存在
func (r *RunRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.TrainingRun{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, translateError(err, entityRun, "id="+id)
	}
	return count > 0, nil
}

// ListByModel 列出模型的所有运行，按开始时间倒序
func (r *RunRepository) ListByModel(ctx context.Context, modelID string) ([]*model.TrainingRun, error) {
	var runs []*model.TrainingRun
	err := r.db.WithContext(ctx).
		Where("model_id = ?", modelID).
		Order("started_at DESC, id ASC").
		Find(&runs).Error
	return runs, translateError(err, entityRun, "model_id="+modelID)
}

// ListByProject 列出项目下所有模型的运行，按开始时间倒序
func (r *RunRepository) ListByProject(ctx context.Context, projectName string) ([]*model.TrainingRun, error) {
	var runs []*model.TrainingRun
	err := r.db.WithContext(ctx).
		Joins("JOIN models ON models.id = training_runs.model_id").
		Where("models.project_name = ?", projectName).
		Order("training_runs.started_at DESC, training_runs.id ASC").
		Find(&runs).Error
	return runs, translateError(err, entityRun, "project="+projectName)
}

// Transition 把运行中的运行迁移到 status，返回受影响行数
// 只更新 status = running 的行；completed 在同一条 UPDATE 中写入 finished_at。
// 0 行表示运行不存在或已处于终态，由调用方区分。
func (r *RunRepository) Transition(ctx context.Context, id string, status model.RunStatus) (int64, error) {
	updates := map[string]interface{}{"status": status}
	if status == model.RunStatusCompleted {
		updates["finished_at"] = r.db.NowFunc()
	}

	result := r.db.WithContext(ctx).Model(&model.TrainingRun{}).
		Where("id = ? AND status = ?", id, model.RunStatusRunning).
		Updates(updates)
	if result.Error != nil {
		return 0, translateError(result.Error, entityRun, "id="+id)
	}
	return result.RowsAffected, nil
}

// UpdateHyperparameters 替换运行的超参数，返回受影响行数
func (r *RunRepository) UpdateHyperparameters(ctx context.Context, id string, params datatypes.JSONMap) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.TrainingRun{}).
		Where("id = ?", id).
		Update("hyperparameters", params)
	if result.Error != nil {
		return 0, translateError(result.Error, entityRun, "id="+id)
	}
	return result.RowsAffected, nil
}

// DeleteByIDs 批量删除运行及其观测值，返回实际删除的运行数
func (r *RunRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := deleteRunsCascade(tx, ids)
		affected = n
		return err
	})
	if err != nil {
		return 0, translateError(err, entityRun, "delete")
	}
	return affected, nil
}
