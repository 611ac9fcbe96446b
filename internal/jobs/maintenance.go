package jobs

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/adamantos/aide/internal/orchestrator"
)

// Sweeper applies the retention policy on demand; satisfied by
// *orchestrator.Manager.
type Sweeper interface {
	Sweep(policy orchestrator.RetentionPolicy) int
}

// Maintenance handles scheduled_update jobs submitted by the recurring
// scheduler. Every cadence evicts finished jobs per the retention policy
// and captures a system resource snapshot; the payload's update_type is
// recorded so consumers can distinguish cadences.
type Maintenance struct {
	sweeper Sweeper
	policy  orchestrator.RetentionPolicy
	log     zerolog.Logger
}

// NewMaintenance creates the scheduled update handler.
func NewMaintenance(sweeper Sweeper, policy orchestrator.RetentionPolicy, log zerolog.Logger) *Maintenance {
	return &Maintenance{
		sweeper: sweeper,
		policy:  policy,
		log:     log.With().Str("handler", "scheduled_update").Logger(),
	}
}

// Handle runs the maintenance pass for the cadence named in the payload.
func (m *Maintenance) Handle(ctx context.Context, job *orchestrator.Job) (map[string]interface{}, error) {
	updateType := stringValue(job.Payload["update_type"])
	switch updateType {
	case orchestrator.UpdateTypeHourly, orchestrator.UpdateTypeDaily, orchestrator.UpdateTypeWeekly:
	default:
		return nil, fmt.Errorf("unknown update_type %q", updateType)
	}

	job.ReportProgress(10, "sweeping finished jobs")
	evicted := m.sweeper.Sweep(m.policy)

	job.ReportProgress(50, "capturing system snapshot")
	snapshot, err := systemSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to capture system snapshot: %w", err)
	}

	m.log.Info().
		Str("update_type", updateType).
		Int("evicted", evicted).
		Msg("Maintenance pass finished")

	return map[string]interface{}{
		"update_type": updateType,
		"evicted":     evicted,
		"system":      snapshot,
	}, nil
}

// systemSnapshot gathers cpu, memory and disk usage for the health record.
func systemSnapshot(ctx context.Context) (map[string]interface{}, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("memory: %w", err)
	}

	usage, err := disk.UsageWithContext(ctx, "/")
	if err != nil {
		return nil, fmt.Errorf("disk: %w", err)
	}

	snapshot := map[string]interface{}{
		"memory_used_percent": vm.UsedPercent,
		"memory_total_bytes":  vm.Total,
		"disk_used_percent":   usage.UsedPercent,
		"disk_free_bytes":     usage.Free,
	}

	// Instantaneous sample; a zero interval avoids blocking the slot.
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		snapshot["cpu_percent"] = percents[0]
	}

	return snapshot, nil
}
