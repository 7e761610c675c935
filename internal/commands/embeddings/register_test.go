package embeddingscmd

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-locsync/internal/commands/fixtures"
	"github.com/goliatone/go-locsync/internal/vectorize"
	"github.com/goliatone/go-locsync/pkg/interfaces"
	command "github.com/goliatone/go-command"
)

type countingSweeper struct {
	sweeps int
}

func (s *countingSweeper) Sweep(context.Context, vectorize.Request) (vectorize.Result, error) {
	s.sweeps++
	return vectorize.Result{Vectorized: 1}, nil
}

func (s *countingSweeper) Enqueue(context.Context, vectorize.Request) (*interfaces.Task, error) {
	return &interfaces.Task{ID: "task"}, nil
}

func TestRegisterEmbeddingCommandsRegistersHandler(t *testing.T) {
	reg := fixtures.NewRecordingRegistry()
	handler, err := RegisterEmbeddingCommands(reg, &countingSweeper{}, nil, FeatureGates{})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(reg.Handlers) != 1 || reg.Handlers[0] != handler {
		t.Fatalf("expected handler registered, got %#v", reg.Handlers)
	}
}

func TestRegisterEmbeddingCommandsErrors(t *testing.T) {
	if _, err := RegisterEmbeddingCommands(nil, nil, nil, FeatureGates{}); err == nil {
		t.Fatal("expected error when sweeper nil")
	}
	reg := fixtures.NewRecordingRegistry()
	reg.Err = errors.New("registry down")
	if _, err := RegisterEmbeddingCommands(reg, &countingSweeper{}, nil, FeatureGates{}); err == nil {
		t.Fatal("expected registry error to surface")
	}
}

func TestRegisterVectorizeCronRunsInlineSweep(t *testing.T) {
	sweeper := &countingSweeper{}
	handler := NewVectorizeScopesHandler(sweeper, nil, FeatureGates{}, nil)
	recorder := fixtures.NewCronRecorder()

	cfg := command.HandlerConfig{Expression: "@hourly"}
	msg := VectorizeScopesCommand{TenantID: "t1", Scopes: []string{"glossary"}, Inline: true}
	if err := RegisterVectorizeCron(recorder.Registrar(), handler, cfg, msg); err != nil {
		t.Fatalf("register cron: %v", err)
	}
	if len(recorder.Registrations) != 1 || recorder.Registrations[0].Config.Expression != "@hourly" {
		t.Fatalf("unexpected registrations %+v", recorder.Registrations)
	}
	if err := recorder.Registrations[0].Handler(); err != nil {
		t.Fatalf("cron handler: %v", err)
	}
	if sweeper.sweeps != 1 {
		t.Fatalf("expected one sweep, got %d", sweeper.sweeps)
	}

	if err := RegisterVectorizeCron(nil, handler, cfg, msg); err != nil {
		t.Fatalf("nil registrar should be a no-op, got %v", err)
	}
}
