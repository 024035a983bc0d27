package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/ashwinyue/traintrack/internal/apperr"
	"github.com/ashwinyue/traintrack/internal/model"
	"github.com/ashwinyue/traintrack/internal/repository"
	"github.com/ashwinyue/traintrack/internal/testutil"
)

func newService(t *testing.T) (*Service, *repository.Repositories) {
	t.Helper()
	repos := repository.NewRepositories(testutil.NewTestDB(t))
	return NewService(repos), repos
}

func TestCreateModel(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateModelRequest
		wantErr error
	}{
		{"valid", CreateModelRequest{Name: "resnet50", ProjectName: "vision"}, nil},
		{"duplicate pair", CreateModelRequest{Name: "resnet50", ProjectName: "vision"}, apperr.ErrConflict},
		{"same name other project", CreateModelRequest{Name: "resnet50", ProjectName: "medical"}, nil},
		{"empty name", CreateModelRequest{Name: " ", ProjectName: "vision"}, apperr.ErrValidation},
		{"empty project", CreateModelRequest{Name: "vit"}, apperr.ErrValidation},
	}

	svc, _ := newService(t)
	ctx := context.Background()

	// 用例按顺序执行，duplicate 依赖 valid 已创建
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := svc.CreateModel(ctx, &tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("CreateModel() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateModel() error = %v", err)
			}
			if m.ID == "" || m.Name != tt.req.Name {
				t.Errorf("CreateModel() = %+v", m)
			}
		})
	}
}

func TestCreateModel_ConcurrentDuplicates(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := svc.CreateModel(ctx, &CreateModelRequest{Name: "bert", ProjectName: "nlp"})
			errs <- err
		}()
	}

	var ok, conflicts int
	for i := 0; i < 2; i++ {
		err := <-errs
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperr.ErrConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != 1 {
		t.Errorf("successes = %d, conflicts = %d, want 1 and 1", ok, conflicts)
	}
}

func TestListAndGetModels(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for _, req := range []CreateModelRequest{
		{Name: "vit", ProjectName: "vision"},
		{Name: "resnet50", ProjectName: "vision"},
		{Name: "wav2vec", ProjectName: "audio"},
	} {
		if _, err := svc.CreateModel(ctx, &req); err != nil {
			t.Fatal(err)
		}
	}

	all, err := svc.ListModels(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, m := range all {
		names = append(names, m.ProjectName+"/"+m.Name)
	}
	want := []string{"audio/wav2vec", "vision/resnet50", "vision/vit"}
	if len(names) != len(want) {
		t.Fatalf("ListModels() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("ListModels()[%d] = %s, want %s", i, names[i], want[i])
		}
	}

	vision, _ := svc.ListModels(ctx, "vision")
	if len(vision) != 2 {
		t.Errorf("ListModels(vision) = %d models", len(vision))
	}

	got, err := svc.GetModel(ctx, all[0].ID)
	if err != nil || got.Name != "wav2vec" {
		t.Errorf("GetModel() = %+v, %v", got, err)
	}
	if _, err := svc.GetModel(ctx, "3b241101-e2bb-4255-8caf-4136c566a962"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetModel(unknown) error = %v, want not found", err)
	}
	if _, err := svc.GetModel(ctx, "missing"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("GetModel(missing) error = %v, want validation", err)
	}
	if _, err := svc.DeleteModel(ctx, all[0].ID+"0"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("DeleteModel() with malformed id error = %v, want validation", err)
	}
}

func TestDeleteModel(t *testing.T) {
	svc, repos := newService(t)
	ctx := context.Background()

	m, _ := svc.CreateModel(ctx, &CreateModelRequest{Name: "resnet50", ProjectName: "vision"})
	if err := repos.Run.Create(ctx, &model.TrainingRun{ModelID: m.ID}); err != nil {
		t.Fatal(err)
	}

	res, err := svc.DeleteModel(ctx, m.ID)
	if err != nil || res.Affected != 1 {
		t.Fatalf("DeleteModel() = %+v, %v", res, err)
	}
	if _, err := svc.DeleteModel(ctx, m.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second DeleteModel() error = %v, want not found", err)
	}
}

func TestDeleteProject(t *testing.T) {
	svc, repos := newService(t)
	ctx := context.Background()

	m, _ := svc.CreateModel(ctx, &CreateModelRequest{Name: "resnet50", ProjectName: "vision"})
	svc.CreateModel(ctx, &CreateModelRequest{Name: "vit", ProjectName: "vision"})
	svc.CreateModel(ctx, &CreateModelRequest{Name: "wav2vec", ProjectName: "audio"})
	if err := repos.Run.Create(ctx, &model.TrainingRun{ModelID: m.ID}); err != nil {
		t.Fatal(err)
	}

	res, err := svc.DeleteProject(ctx, "vision")
	if err != nil {
		t.Fatalf("DeleteProject() error = %v", err)
	}
	if res.Affected != 2 {
		t.Errorf("Affected = %d, want 2", res.Affected)
	}

	if _, err := svc.DeleteProject(ctx, "vision"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("DeleteProject() of empty project error = %v, want not found", err)
	}
	if _, err := svc.DeleteProject(ctx, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("DeleteProject(\"\") error = %v, want validation", err)
	}

	left, _ := svc.ListModels(ctx, "")
	if len(left) != 1 || left[0].ProjectName != "audio" {
		t.Errorf("models left = %+v", left)
	}
}
