package mesh

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectSignals(t *testing.T, ch <-chan Signal, taskID string, n int) []Signal {
	t.Helper()

	var got []Signal
	timeout := time.After(2 * time.Second)
	for len(got) < n {
		select {
		case sig := <-ch:
			if sig.TaskID == taskID {
				got = append(got, sig)
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %d signals, got %d", n, len(got))
		}
	}
	return got
}

func TestLoopbackDispatchDeliversProgressThenTerminal(t *testing.T) {
	lb := NewLoopback()
	defer lb.Close()

	lb.AddAgent(AgentDescriptor{
		Name:   "echo",
		Skills: []Skill{{Name: "say"}},
	}, map[string]SkillHandler{
		"say": func(ctx context.Context, args map[string]interface{}, progress func(string)) (*ResultPayload, error) {
			progress("chunk-1")
			progress("chunk-2")
			return &ResultPayload{Text: "done"}, nil
		},
	})

	err := lb.Dispatch(context.Background(), Invocation{
		TaskID:    "task-1",
		AgentName: "echo",
		SkillName: "say",
	})
	require.NoError(t, err)

	signals := collectSignals(t, lb.Signals(), "task-1", 3)
	assert.Equal(t, SignalProgress, signals[0].Kind)
	assert.Equal(t, "chunk-1", signals[0].Text)
	assert.Equal(t, SignalProgress, signals[1].Kind)
	assert.Equal(t, "chunk-2", signals[1].Text)
	assert.Equal(t, SignalComplete, signals[2].Kind)
	require.NotNil(t, signals[2].Payload)
	assert.Equal(t, "done", signals[2].Payload.Text)
}

func TestLoopbackDispatchUnknownSkill(t *testing.T) {
	lb := NewLoopback()
	defer lb.Close()

	err := lb.Dispatch(context.Background(), Invocation{
		TaskID:    "task-1",
		AgentName: "ghost",
		SkillName: "walk",
	})
	assert.Error(t, err)
}

func TestLoopbackHandlerErrorBecomesErrorSignal(t *testing.T) {
	lb := NewLoopback()
	defer lb.Close()

	lb.AddAgent(AgentDescriptor{
		Name:   "flaky",
		Skills: []Skill{{Name: "run"}},
	}, map[string]SkillHandler{
		"run": func(ctx context.Context, args map[string]interface{}, progress func(string)) (*ResultPayload, error) {
			return nil, errors.New("kaboom")
		},
	})

	require.NoError(t, lb.Dispatch(context.Background(), Invocation{
		TaskID:    "task-err",
		AgentName: "flaky",
		SkillName: "run",
	}))

	signals := collectSignals(t, lb.Signals(), "task-err", 1)
	assert.Equal(t, SignalError, signals[0].Kind)
	assert.Equal(t, "kaboom", signals[0].Err)
}

func TestLoopbackCancelAbortsHandler(t *testing.T) {
	lb := NewLoopback()
	defer lb.Close()

	started := make(chan struct{})
	lb.AddAgent(AgentDescriptor{
		Name:   "slow",
		Skills: []Skill{{Name: "sleep"}},
	}, map[string]SkillHandler{
		"sleep": func(ctx context.Context, args map[string]interface{}, progress func(string)) (*ResultPayload, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})

	require.NoError(t, lb.Dispatch(context.Background(), Invocation{
		TaskID:    "task-slow",
		AgentName: "slow",
		SkillName: "sleep",
	}))

	<-started
	require.NoError(t, lb.Cancel(context.Background(), "task-slow"))

	signals := collectSignals(t, lb.Signals(), "task-slow", 1)
	assert.Equal(t, SignalError, signals[0].Kind)
}

func TestLoopbackDiscoveryEvents(t *testing.T) {
	lb := NewLoopback()
	defer lb.Close()

	lb.AddAgent(AgentDescriptor{Name: "a1", Skills: []Skill{{Name: "s"}}}, nil)
	lb.RemoveAgent("a1")

	ev := <-lb.Events()
	assert.Equal(t, EventAgentRegistered, ev.Kind)
	assert.Equal(t, "a1", ev.Agent.Name)

	ev = <-lb.Events()
	assert.Equal(t, EventAgentDeregistered, ev.Kind)
	assert.Equal(t, "a1", ev.Agent.Name)
}
