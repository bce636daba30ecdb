package server

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/teemow/ticktick-mcp/internal/ticktick"
)

// probeAPI implements ticktick.API; only GetProjects matters for the
// construction probe.
type probeAPI struct {
	probeErr error
}

func (p *probeAPI) GetProjects(ctx context.Context) ([]ticktick.Project, error) {
	return nil, p.probeErr
}
func (p *probeAPI) GetProject(ctx context.Context, projectID string) (*ticktick.Project, error) {
	return nil, nil
}
func (p *probeAPI) GetProjectWithData(ctx context.Context, projectID string) (*ticktick.ProjectData, error) {
	return nil, nil
}
func (p *probeAPI) CreateProject(ctx context.Context, name, color, viewMode string) (*ticktick.Project, error) {
	return nil, nil
}
func (p *probeAPI) DeleteProject(ctx context.Context, projectID string) error { return nil }
func (p *probeAPI) GetTask(ctx context.Context, projectID, taskID string) (*ticktick.Task, error) {
	return nil, nil
}
func (p *probeAPI) CreateTask(ctx context.Context, params ticktick.CreateTaskParams) (*ticktick.Task, error) {
	return nil, nil
}
func (p *probeAPI) UpdateTask(ctx context.Context, params ticktick.UpdateTaskParams) (*ticktick.Task, error) {
	return nil, nil
}
func (p *probeAPI) CompleteTask(ctx context.Context, projectID, taskID string) error { return nil }
func (p *probeAPI) DeleteTask(ctx context.Context, projectID, taskID string) error   { return nil }

func TestNewServerContext(t *testing.T) {
	sc, err := NewServerContext(context.Background(), &probeAPI{}, false)
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}
	defer sc.Shutdown()

	if sc.Client() == nil {
		t.Error("Client() = nil")
	}
	if sc.ReadOnly() {
		t.Error("ReadOnly() = true, want false")
	}
	if sc.IsShutdown() {
		t.Error("IsShutdown() = true before Shutdown()")
	}
}

func TestNewServerContext_NilClient(t *testing.T) {
	_, err := NewServerContext(context.Background(), nil, false)
	if err == nil {
		t.Fatal("expected error for nil client")
	}
}

func TestNewServerContext_ProbeFailure(t *testing.T) {
	api := &probeAPI{probeErr: &ticktick.APIError{StatusCode: 401, Message: "unauthorized"}}

	_, err := NewServerContext(context.Background(), api, false)
	if err == nil {
		t.Fatal("expected error when probe fails")
	}
	if !strings.Contains(err.Error(), "failed to reach TickTick API") {
		t.Errorf("error = %v", err)
	}
	var apiErr *ticktick.APIError
	if !errors.As(err, &apiErr) {
		t.Errorf("error should wrap the APIError, got %v", err)
	}
}

func TestServerContext_ReadOnly(t *testing.T) {
	sc, err := NewServerContext(context.Background(), &probeAPI{}, true)
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}
	defer sc.Shutdown()

	if !sc.ReadOnly() {
		t.Error("ReadOnly() = false, want true")
	}
}

func TestServerContext_ShutdownIdempotent(t *testing.T) {
	sc, err := NewServerContext(context.Background(), &probeAPI{}, false)
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}

	sc.Shutdown()
	sc.Shutdown()

	if !sc.IsShutdown() {
		t.Error("IsShutdown() = false after Shutdown()")
	}
	select {
	case <-sc.Context().Done():
	default:
		t.Error("context not canceled after Shutdown()")
	}
}
