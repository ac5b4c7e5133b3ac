package registry

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgarulg/orca/pkg/models"
	"github.com/edgarulg/orca/pkg/protocol"
)

type stubTask struct {
	name    string
	aliases []string
}

func (s *stubTask) Name() string { return s.name }

func (s *stubTask) Aliases() []string { return s.aliases }

func (s *stubTask) Capabilities() protocol.Capabilities { return protocol.Capabilities{} }

func (s *stubTask) Execute(_ context.Context, _ *models.StageExecution) (protocol.TaskResult, error) {
	return protocol.TaskResult{Status: models.StatusSucceeded}, nil
}

type stubStage struct {
	stageType string
	aliases   []string
}

func (s *stubStage) Type() string { return s.stageType }

func (s *stubStage) Aliases() []string { return s.aliases }

func newTestRegistry() *Registry {
	return NewRegistry(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

func TestResolveTaskByNameAndAlias(t *testing.T) {
	reg := newTestRegistry()

	task := &stubTask{name: "waitTask", aliases: []string{"wait", "legacyWaitTask"}}
	reg.RegisterTask(task)

	for _, key := range []string{"waitTask", "wait", "legacyWaitTask"} {
		resolved, err := reg.ResolveTask(key)
		require.NoError(t, err)
		assert.Same(t, task, resolved)
	}
}

func TestResolveTaskUnknown(t *testing.T) {
	reg := newTestRegistry()

	_, err := reg.ResolveTask("noSuchTask")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.Contains(t, err.Error(), "noSuchTask")
}

func TestResolveStageByTypeAndAlias(t *testing.T) {
	reg := newTestRegistry()

	stage := &stubStage{stageType: "deploy", aliases: []string{"createServerGroup"}}
	reg.RegisterStage(stage)

	resolved, err := reg.ResolveStage("deploy")
	require.NoError(t, err)
	assert.Same(t, stage, resolved)

	resolved, err = reg.ResolveStage("createServerGroup")
	require.NoError(t, err)
	assert.Same(t, stage, resolved)
}

func TestResolveStageUnknown(t *testing.T) {
	reg := newTestRegistry()

	_, err := reg.ResolveStage("noSuchStage")
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestLaterRegistrationWins(t *testing.T) {
	reg := newTestRegistry()

	first := &stubTask{name: "waitTask"}
	second := &stubTask{name: "betterWaitTask", aliases: []string{"waitTask"}}

	reg.RegisterTask(first)
	reg.RegisterTask(second)

	resolved, err := reg.ResolveTask("waitTask")
	require.NoError(t, err)
	assert.Same(t, second, resolved)
}
