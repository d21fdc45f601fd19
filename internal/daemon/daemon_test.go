package daemon_test

import (
	"context"
	"testing"

	"curator/internal/classify"
	"curator/internal/daemon"
	"curator/internal/ingest"
	"curator/internal/sources"
	"curator/internal/testsupport"
	"curator/internal/workflow"
)

type noopRunner struct{}

func (noopRunner) Run(ctx context.Context, source *sources.Source) (*ingest.RunSummary, error) {
	return &ingest.RunSummary{SourceID: source.ID, Status: classify.StatusOK}, nil
}

func TestStartAndStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	shared := testsupport.MustOpenStore(t, cfg)
	manager := workflow.NewManager(cfg, sources.NewStore(shared), noopRunner{}, nil)

	d, err := daemon.New(cfg, shared, nil, manager)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	status := d.Status()
	if !status.Running || !status.Workflow.Running {
		t.Errorf("status = %+v, want running daemon and workflow", status)
	}

	d.Stop()
	if d.Status().Running {
		t.Error("daemon still running after Stop")
	}
}

func TestSecondInstanceIsRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	shared := testsupport.MustOpenStore(t, cfg)

	first, err := daemon.New(cfg, shared, nil,
		workflow.NewManager(cfg, sources.NewStore(shared), noopRunner{}, nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	second, err := daemon.New(cfg, shared, nil,
		workflow.NewManager(cfg, sources.NewStore(shared), noopRunner{}, nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second instance to fail to start")
	}
}
