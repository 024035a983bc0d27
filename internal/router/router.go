package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/traintrack/internal/handler"
	"github.com/ashwinyue/traintrack/internal/middleware"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware())

	// 健康检查，不访问数据库
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		// Model 模型
		models := v1.Group("/models")
		{
			models.POST("", h.Model.CreateModel)
			models.GET("", h.Model.ListModels)
			models.GET("/:id", h.Model.GetModel)
			models.DELETE("/:id", h.Model.DeleteModel)
			models.DELETE("/project/:project_name", h.Model.DeleteProject)
		}

		// Run 训练运行
		runs := v1.Group("/runs")
		{
			runs.POST("", h.Run.CreateRun)
			runs.GET("/:id", h.Run.GetRun)
			runs.GET("/model/:model_id", h.Run.ListByModel)
			runs.GET("/project/:project_name", h.Run.ListByProject)
			runs.PATCH("/status", h.Run.UpdateStatus)
			runs.PATCH("/:id/hyperparameters", h.Run.UpdateHyperparameters)
			runs.DELETE("/:ids", h.Run.DeleteRuns)
		}

		// Loss 损失值
		losses := v1.Group("/losses")
		{
			losses.POST("", h.Observation.LogLoss)
			losses.POST("/batch", h.Observation.LogLossBatch)
			losses.GET("", h.Observation.ListLosses)
		}

		// Metric 评估指标
		metrics := v1.Group("/metrics")
		{
			metrics.POST("", h.Observation.LogMetric)
			metrics.POST("/batch", h.Observation.LogMetricBatch)
			metrics.GET("", h.Observation.ListMetrics)
		}

		// Session 追踪会话
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", h.Session.CreateSession)
			sessions.GET("/:id", h.Session.GetSession)
			sessions.PATCH("/:id", h.Session.BindSession)
			sessions.DELETE("/:id", h.Session.DeleteSession)
		}
	}

	return r
}
