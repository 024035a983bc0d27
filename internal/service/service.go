package service

import (
	"github.com/redis/go-redis/v9"

	"github.com/ashwinyue/traintrack/internal/config"
	"github.com/ashwinyue/traintrack/internal/repository"
	"github.com/ashwinyue/traintrack/internal/service/observation"
	"github.com/ashwinyue/traintrack/internal/service/query"
	"github.com/ashwinyue/traintrack/internal/service/registry"
	"github.com/ashwinyue/traintrack/internal/service/run"
	"github.com/ashwinyue/traintrack/internal/service/session"
	"github.com/ashwinyue/traintrack/internal/telemetry"
)

// Services 服务集合
type Services struct {
	// 业务服务
	Registry    *registry.Service
	Run         *run.Service
	Observation *observation.Service
	Query       *query.Service

	// 配置
	Config     *config.Config
	SessionMgr *session.Manager
}

// NewServices 创建所有服务
func NewServices(repo *repository.Repositories, cfg *config.Config, redisClient *redis.Client, recorder telemetry.Recorder) *Services {
	if recorder == nil {
		recorder = telemetry.Noop{}
	}

	return &Services{
		Registry:    registry.NewService(repo),
		Run:         run.NewService(repo, recorder),
		Observation: observation.NewService(repo, recorder),
		Query:       query.NewService(repo),

		Config:     cfg,
		SessionMgr: session.NewManager(redisClient),
	}
}
