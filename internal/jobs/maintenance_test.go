package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamantos/aide/internal/orchestrator"
)

type fakeSweeper struct {
	evicted  int
	policies []orchestrator.RetentionPolicy
}

func (f *fakeSweeper) Sweep(policy orchestrator.RetentionPolicy) int {
	f.policies = append(f.policies, policy)
	return f.evicted
}

func TestMaintenance_RunsSweepAndSnapshot(t *testing.T) {
	sweeper := &fakeSweeper{evicted: 4}
	policy := orchestrator.RetentionPolicy{TTL: 72 * time.Hour, MaxFinished: 1000}
	maintenance := NewMaintenance(sweeper, policy, zerolog.Nop())

	result, err := maintenance.Handle(context.Background(), &orchestrator.Job{
		ID:      "maint-1",
		Type:    orchestrator.JobTypeScheduledUpdate,
		Payload: map[string]interface{}{"update_type": orchestrator.UpdateTypeDaily},
	})
	require.NoError(t, err)

	assert.Equal(t, orchestrator.UpdateTypeDaily, result["update_type"])
	assert.Equal(t, 4, result["evicted"])

	require.Len(t, sweeper.policies, 1)
	assert.Equal(t, policy, sweeper.policies[0])

	snapshot, ok := result["system"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, snapshot, "memory_used_percent")
	assert.Contains(t, snapshot, "disk_used_percent")
}

func TestMaintenance_AcceptsAllCadences(t *testing.T) {
	for _, updateType := range []string{
		orchestrator.UpdateTypeHourly,
		orchestrator.UpdateTypeDaily,
		orchestrator.UpdateTypeWeekly,
	} {
		t.Run(updateType, func(t *testing.T) {
			maintenance := NewMaintenance(&fakeSweeper{}, orchestrator.RetentionPolicy{}, zerolog.Nop())
			_, err := maintenance.Handle(context.Background(), &orchestrator.Job{
				Payload: map[string]interface{}{"update_type": updateType},
			})
			assert.NoError(t, err)
		})
	}
}

func TestMaintenance_RejectsUnknownUpdateType(t *testing.T) {
	maintenance := NewMaintenance(&fakeSweeper{}, orchestrator.RetentionPolicy{}, zerolog.Nop())

	t.Run("missing", func(t *testing.T) {
		_, err := maintenance.Handle(context.Background(), &orchestrator.Job{Payload: map[string]interface{}{}})
		assert.Error(t, err)
	})

	t.Run("bogus", func(t *testing.T) {
		_, err := maintenance.Handle(context.Background(), &orchestrator.Job{
			Payload: map[string]interface{}{"update_type": "fortnightly"},
		})
		assert.Error(t, err)
	})
}
