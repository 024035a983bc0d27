package testutil

import (
	"context"
	"sync"
)

// Recorder 记录调用次数的指标记录器
type Recorder struct {
	mu          sync.Mutex
	Accepted    map[string]int
	Rejected    map[string]int // kind/reason -> 次数
	Transitions map[string]int
}

// NewRecorder 创建测试用指标记录器
func NewRecorder() *Recorder {
	return &Recorder{
		Accepted:    make(map[string]int),
		Rejected:    make(map[string]int),
		Transitions: make(map[string]int),
	}
}

func (r *Recorder) ObservationsAccepted(_ context.Context, kind string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Accepted[kind] += n
}

func (r *Recorder) ObservationsRejected(_ context.Context, kind, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Rejected[kind+"/"+reason]++
}

func (r *Recorder) RunTransitioned(_ context.Context, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Transitions[status]++
}
