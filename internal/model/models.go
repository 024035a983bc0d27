package model

// 所有模型的统一导入点
// 用于 AutoMigrate，顺序即依赖顺序
var AllModels = []interface{}{
	&Model{},
	&TrainingRun{},
	&Loss{},
	&Metric{},
}
