package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipforge/pkg/events"
	"github.com/clipforge/clipforge/pkg/models"
)

type recordingListener struct {
	mu     sync.Mutex
	events []events.PipelineEvent
}

func (l *recordingListener) HandleEvent(_ context.Context, event events.PipelineEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

func (l *recordingListener) names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Name)
	}
	return out
}

func newTestStageRunner(executor *scriptedExecutor, dispatcher *scriptedDispatcher) (*StageRunner, *recordingListener) {
	bus := events.NewBus()
	listener := &recordingListener{}
	bus.Subscribe(listener)

	logger := slog.Default()
	loop := NewLoop(executor, dispatcher, DefaultMaxAttempts, DefaultMinPassScore, logger)
	chain := NewChain(executor, &recordingNotifier{}, logger)
	return NewStageRunner(loop, chain, executor, bus, logger), listener
}

func TestStageRunner_HappyPathEmitsLifecycleEvents(t *testing.T) {
	executor := &scriptedExecutor{}
	dispatcher := &scriptedDispatcher{responses: []string{critiqueJSON(models.DecisionPass, 90)}}
	runner, listener := newTestStageRunner(executor, dispatcher)

	result, err := runner.Run(context.Background(), "run-1",
		stageRequest(models.StageContent), "content", "criteria")
	require.NoError(t, err)

	assert.Equal(t, models.DecisionPass, result.BestCritique.Decision)
	assert.Equal(t, []string{
		events.EventStageEntered,
		events.EventGatePassed,
		events.EventStageCompleted,
	}, listener.names())
}

func TestStageRunner_RescuedFailureRunsLoopOnceMore(t *testing.T) {
	// First loop execution fails; the chain's retry succeeds; the loop then
	// runs again and passes. Execute calls: loop(1 fail) + chain(1) + loop(1).
	executor := &scriptedExecutor{outcomes: []execOutcome{
		{err: recoverableErr()},
		{result: &models.AgentResult{Status: "success"}},
		{result: &models.AgentResult{Status: "success", Artifacts: []string{"final.md"}}},
	}}
	dispatcher := &scriptedDispatcher{responses: []string{critiqueJSON(models.DecisionPass, 80)}}
	runner, listener := newTestStageRunner(executor, dispatcher)

	result, err := runner.Run(context.Background(), "run-1",
		stageRequest(models.StageContent), "content", "criteria")
	require.NoError(t, err)

	assert.Equal(t, 3, executor.calls())
	assert.Equal(t, []string{"final.md"}, result.Artifacts)

	names := listener.names()
	assert.Equal(t, "pipeline.stage_entered", names[0])
	assert.Equal(t, 1, countName(names, events.EventStageEntered),
		"a rescued stage is entered exactly once")
	assert.Equal(t, 1, countName(names, events.EventStageCompleted))
}

func TestStageRunner_ChainExhaustionFailsStage(t *testing.T) {
	executor := &scriptedExecutor{outcomes: []execOutcome{
		{err: recoverableErr()},
		{err: recoverableErr()},
		{err: recoverableErr()},
		{err: recoverableErr()},
	}}
	runner, listener := newTestStageRunner(executor, &scriptedDispatcher{})

	_, err := runner.Run(context.Background(), "run-1",
		stageRequest(models.StageContent), "content", "criteria")
	require.Error(t, err)

	names := listener.names()
	assert.Contains(t, names, events.EventRunFailed)
	assert.NotContains(t, names, events.EventStageCompleted)
}

func TestStageRunner_UngatedStageSkipsQA(t *testing.T) {
	executor := &scriptedExecutor{outcomes: []execOutcome{
		{result: &models.AgentResult{Status: "success", Artifacts: []string{"veo3.mp4"}}},
	}}
	dispatcher := &scriptedDispatcher{}
	runner, listener := newTestStageRunner(executor, dispatcher)

	result, err := runner.RunUngated(context.Background(), "run-1",
		stageRequest(models.StageVeo3Await))
	require.NoError(t, err)

	assert.Equal(t, []string{"veo3.mp4"}, result.Artifacts)
	assert.Equal(t, 0, dispatcher.calls, "no QA evaluation for ungated stages")
	assert.NotContains(t, listener.names(), events.EventGatePassed)
	assert.Contains(t, listener.names(), events.EventStageCompleted)
}

func countName(names []string, target string) int {
	n := 0
	for _, name := range names {
		if name == target {
			n++
		}
	}
	return n
}
