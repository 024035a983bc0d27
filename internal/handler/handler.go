package handler

import (
	"github.com/ashwinyue/traintrack/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Model       *ModelHandler
	Run         *RunHandler
	Observation *ObservationHandler
	Session     *SessionHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Model:       NewModelHandler(svc.Registry),
		Run:         NewRunHandler(svc.Run, svc.Query),
		Observation: NewObservationHandler(svc.Observation, svc.Query),
		Session:     NewSessionHandler(svc.SessionMgr),
	}
}
