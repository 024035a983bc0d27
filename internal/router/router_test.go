package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/traintrack/internal/config"
	"github.com/ashwinyue/traintrack/internal/handler"
	"github.com/ashwinyue/traintrack/internal/repository"
	"github.com/ashwinyue/traintrack/internal/service"
	"github.com/ashwinyue/traintrack/internal/testutil"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Code    int             `json:"code"`
	Msg     string          `json:"msg"`
}

type api struct {
	t      *testing.T
	engine *gin.Engine
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repos := repository.NewRepositories(testutil.NewTestDB(t))
	svc := service.NewServices(repos, &config.Config{}, nil, nil)
	return &api{t: t, engine: SetupRouter(handler.NewHandlers(svc))}
}

// do 发送请求并把 data 解码到 out
func (a *api) do(method, path string, body interface{}, out interface{}) (int, apiResponse) {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			a.t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	if out != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			a.t.Fatalf("%s %s: decode data: %v", method, path, err)
		}
	}
	return w.Code, resp
}

func (a *api) expect(method, path string, body interface{}, want int, out interface{}) apiResponse {
	a.t.Helper()
	code, resp := a.do(method, path, body, out)
	if code != want {
		a.t.Fatalf("%s %s = %d (%s), want %d", method, path, code, resp.Msg, want)
	}
	return resp
}

type idOnly struct {
	ID string `json:"id"`
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte(`"ok"`)) {
		t.Errorf("GET /health = %d %s", w.Code, w.Body.String())
	}
}

func TestTrackingFlow(t *testing.T) {
	a := newAPI(t)

	var m idOnly
	a.expect(http.MethodPost, "/api/v1/models", map[string]string{"name": "resnet50", "project_name": "vision"}, http.StatusCreated, &m)
	resp := a.expect(http.MethodPost, "/api/v1/models", map[string]string{"name": "resnet50", "project_name": "vision"}, http.StatusConflict, nil)
	if resp.Code != http.StatusConflict || resp.Msg == "" {
		t.Errorf("conflict body = %+v", resp)
	}

	var r idOnly
	a.expect(http.MethodPost, "/api/v1/runs", map[string]interface{}{
		"model_id":        m.ID,
		"hyperparameters": map[string]interface{}{"lr": 0.1},
	}, http.StatusCreated, &r)

	a.expect(http.MethodPost, "/api/v1/losses", map[string]interface{}{"run_id": r.ID, "step": 0, "split": "train", "value": 1.2}, http.StatusCreated, nil)
	a.expect(http.MethodPost, "/api/v1/losses", map[string]interface{}{"run_id": r.ID, "step": 0, "split": "validation", "value": 1.5}, http.StatusCreated, nil)
	a.expect(http.MethodPost, "/api/v1/losses", map[string]interface{}{"run_id": r.ID, "step": 0, "split": "train", "value": 9.9}, http.StatusConflict, nil)

	var batch struct {
		Inserted int `json:"inserted"`
	}
	a.expect(http.MethodPost, "/api/v1/losses/batch", map[string]interface{}{
		"run_id": r.ID,
		"items": []map[string]interface{}{
			{"step": 1, "split": "train", "value": 1.0},
			{"step": 2, "split": "train", "value": 0.8},
		},
	}, http.StatusCreated, &batch)
	if batch.Inserted != 2 {
		t.Errorf("inserted = %d", batch.Inserted)
	}

	var losses []struct {
		Step  int64   `json:"step"`
		Value float64 `json:"value"`
	}
	a.expect(http.MethodGet, "/api/v1/losses?run_id="+r.ID+"&split=train&limit=2", nil, http.StatusOK, &losses)
	if len(losses) != 2 || losses[0].Step != 2 || losses[1].Step != 1 {
		t.Errorf("losses = %+v", losses)
	}

	a.expect(http.MethodPost, "/api/v1/metrics", map[string]interface{}{
		"run_id": r.ID, "step": 2, "split": "validation", "metric_name": "f1-score", "value": 0.7,
	}, http.StatusCreated, nil)
	a.expect(http.MethodGet, "/api/v1/metrics?run_id="+r.ID+"&metric_name=f1-score", nil, http.StatusOK, nil)

	var status struct {
		RowsUpdated int64 `json:"rows_updated"`
	}
	a.expect(http.MethodPatch, "/api/v1/runs/status", map[string]string{"run_id": r.ID, "new_status": "completed"}, http.StatusOK, &status)
	if status.RowsUpdated != 1 {
		t.Errorf("rows_updated = %d", status.RowsUpdated)
	}
	a.expect(http.MethodPatch, "/api/v1/runs/status", map[string]string{"run_id": r.ID, "new_status": "failed"}, http.StatusConflict, nil)

	var runs []struct {
		Status     string  `json:"status"`
		FinishedAt *string `json:"finished_at"`
	}
	a.expect(http.MethodGet, "/api/v1/runs/project/vision", nil, http.StatusOK, &runs)
	if len(runs) != 1 || runs[0].Status != "completed" || runs[0].FinishedAt == nil {
		t.Errorf("runs = %+v", runs)
	}

	var deleted struct {
		Affected int64 `json:"affected"`
	}
	a.expect(http.MethodDelete, "/api/v1/models/project/vision", nil, http.StatusOK, &deleted)
	if deleted.Affected != 1 {
		t.Errorf("affected = %d", deleted.Affected)
	}
	a.expect(http.MethodGet, "/api/v1/runs/model/"+m.ID, nil, http.StatusNotFound, nil)
}

func TestErrorStatuses(t *testing.T) {
	a := newAPI(t)

	var m idOnly
	a.expect(http.MethodPost, "/api/v1/models", map[string]string{"name": "bert", "project_name": "nlp"}, http.StatusCreated, &m)
	var r idOnly
	a.expect(http.MethodPost, "/api/v1/runs", map[string]string{"model_id": m.ID}, http.StatusCreated, &r)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"missing model fields", http.MethodPost, "/api/v1/models", map[string]string{"name": "x"}, http.StatusBadRequest},
		{"run for unknown model", http.MethodPost, "/api/v1/runs", map[string]string{"model_id": "3b241101-e2bb-4255-8caf-4136c566a962"}, http.StatusNotFound},
		{"unknown model", http.MethodGet, "/api/v1/models/3b241101-e2bb-4255-8caf-4136c566a962", nil, http.StatusNotFound},
		{"unknown run", http.MethodGet, "/api/v1/runs/3b241101-e2bb-4255-8caf-4136c566a962", nil, http.StatusNotFound},
		{"unknown project", http.MethodGet, "/api/v1/runs/project/none", nil, http.StatusNotFound},
		{"status to running", http.MethodPatch, "/api/v1/runs/status", map[string]string{"run_id": r.ID, "new_status": "running"}, http.StatusBadRequest},
		{"status of unknown run", http.MethodPatch, "/api/v1/runs/status", map[string]string{"run_id": "3b241101-e2bb-4255-8caf-4136c566a962", "new_status": "failed"}, http.StatusNotFound},
		{"bad split", http.MethodPost, "/api/v1/losses", map[string]interface{}{"run_id": r.ID, "step": 0, "split": "test", "value": 1}, http.StatusBadRequest},
		{"negative step", http.MethodPost, "/api/v1/losses", map[string]interface{}{"run_id": r.ID, "step": -1, "split": "train", "value": 1}, http.StatusBadRequest},
		{"loss with overlong run id", http.MethodPost, "/api/v1/losses", map[string]interface{}{"run_id": "3b241101-e2bb-4255-8caf-4136c566a962-0000", "step": 0, "split": "train", "value": 1}, http.StatusBadRequest},
		{"run with malformed model id", http.MethodPost, "/api/v1/runs", map[string]interface{}{"model_id": "resnet50"}, http.StatusBadRequest},
		{"get malformed run id", http.MethodGet, "/api/v1/runs/not-a-uuid", nil, http.StatusBadRequest},
		{"loss for unknown run", http.MethodPost, "/api/v1/losses", map[string]interface{}{"run_id": "3b241101-e2bb-4255-8caf-4136c566a962", "step": 0, "split": "train", "value": 1}, http.StatusNotFound},
		{"losses without run_id", http.MethodGet, "/api/v1/losses", nil, http.StatusBadRequest},
		{"losses bad limit", http.MethodGet, "/api/v1/losses?run_id=" + r.ID + "&limit=abc", nil, http.StatusBadRequest},
		{"metric bad name", http.MethodPost, "/api/v1/metrics", map[string]interface{}{"run_id": r.ID, "step": 0, "split": "train", "metric_name": "auc", "value": 1}, http.StatusBadRequest},
		{"delete bad ids", http.MethodDelete, "/api/v1/runs/abc,def", nil, http.StatusBadRequest},
		{"delete unknown project", http.MethodDelete, "/api/v1/models/project/none", nil, http.StatusNotFound},
		{"unknown session", http.MethodGet, "/api/v1/sessions/none", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := a.do(tt.method, tt.path, tt.body, nil)
			if code != tt.want {
				t.Errorf("%s %s = %d (%s), want %d", tt.method, tt.path, code, resp.Msg, tt.want)
			}
			if resp.Code != tt.want {
				t.Errorf("body code = %d, want %d", resp.Code, tt.want)
			}
		})
	}
}

func TestDeleteRuns(t *testing.T) {
	a := newAPI(t)

	var m idOnly
	a.expect(http.MethodPost, "/api/v1/models", map[string]string{"name": "bert", "project_name": "nlp"}, http.StatusCreated, &m)
	var r1, r2 idOnly
	a.expect(http.MethodPost, "/api/v1/runs", map[string]string{"model_id": m.ID}, http.StatusCreated, &r1)
	a.expect(http.MethodPost, "/api/v1/runs", map[string]string{"model_id": m.ID}, http.StatusCreated, &r2)

	var deleted struct {
		Affected int64 `json:"affected"`
	}
	a.expect(http.MethodDelete, "/api/v1/runs/"+r1.ID+","+r2.ID, nil, http.StatusOK, &deleted)
	if deleted.Affected != 2 {
		t.Errorf("affected = %d, want 2", deleted.Affected)
	}

	deleted.Affected = -1
	a.expect(http.MethodDelete, "/api/v1/runs/"+r1.ID, nil, http.StatusOK, &deleted)
	if deleted.Affected != 0 {
		t.Errorf("affected = %d, want 0", deleted.Affected)
	}
}

func TestSessions(t *testing.T) {
	a := newAPI(t)

	var sess struct {
		ID      string `json:"id"`
		ModelID string `json:"model_id"`
		RunID   string `json:"run_id"`
	}
	a.expect(http.MethodPost, "/api/v1/sessions", nil, http.StatusCreated, &sess)
	if sess.ID == "" {
		t.Fatal("session id is empty")
	}

	a.expect(http.MethodPatch, "/api/v1/sessions/"+sess.ID, map[string]string{"model_id": "m1", "run_id": "r1"}, http.StatusOK, &sess)
	if sess.ModelID != "m1" || sess.RunID != "r1" {
		t.Errorf("bound session = %+v", sess)
	}
	a.expect(http.MethodPatch, "/api/v1/sessions/"+sess.ID, map[string]string{}, http.StatusBadRequest, nil)

	a.expect(http.MethodGet, "/api/v1/sessions/"+sess.ID, nil, http.StatusOK, &sess)
	a.expect(http.MethodDelete, "/api/v1/sessions/"+sess.ID, nil, http.StatusNoContent, nil)
	a.expect(http.MethodGet, "/api/v1/sessions/"+sess.ID, nil, http.StatusNotFound, nil)
}
