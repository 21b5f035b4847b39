package waycore

import (
	"testing"
	"time"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	snap := m.Snapshot()
	if snap.Commits != 0 || snap.Frames != 0 {
		t.Errorf("Expected zeroed initial snapshot, got %+v", snap)
	}

	m.RecordCommit()
	m.RecordCommit()
	m.RecordFrame(2 * time.Millisecond)
	m.RecordBufferImport()
	m.RecordBackendError()
	m.RecordRoleConflict()

	snap = m.Snapshot()
	if snap.Commits != 2 {
		t.Errorf("Expected 2 commits, got %d", snap.Commits)
	}
	if snap.Frames != 1 {
		t.Errorf("Expected 1 frame, got %d", snap.Frames)
	}
	if snap.BufferImports != 1 {
		t.Errorf("Expected 1 buffer import, got %d", snap.BufferImports)
	}
	if snap.BackendErrors != 1 {
		t.Errorf("Expected 1 backend error, got %d", snap.BackendErrors)
	}
	if snap.RoleConflicts != 1 {
		t.Errorf("Expected 1 role conflict, got %d", snap.RoleConflicts)
	}
}

func TestMetricsLatencyAverage(t *testing.T) {
	m := NewMetrics()

	m.RecordFrame(1 * time.Millisecond)
	m.RecordFrame(3 * time.Millisecond)

	snap := m.Snapshot()
	want := uint64(2 * time.Millisecond)
	if snap.AvgLatencyNs != want {
		t.Errorf("Expected average latency %d ns, got %d", want, snap.AvgLatencyNs)
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()
	m.RecordCommit()
	m.RecordFrame(time.Millisecond)

	m.Reset()

	snap := m.Snapshot()
	if snap.Commits != 0 || snap.Frames != 0 || snap.AvgLatencyNs != 0 {
		t.Errorf("Expected zeroed snapshot after Reset, got %+v", snap)
	}
}

func TestMetricsUptime(t *testing.T) {
	m := NewMetrics()
	time.Sleep(2 * time.Millisecond)

	snap := m.Snapshot()
	if snap.UptimeNs == 0 {
		t.Error("Expected non-zero uptime")
	}
}

func TestMetricsObserverAdapter(t *testing.T) {
	m := NewMetrics()
	obs := MetricsObserver{Metrics: m}

	obs.RecordFrame("OUT-1")
	obs.RecordBackendError("OUT-1")

	snap := m.Snapshot()
	if snap.Frames != 1 {
		t.Errorf("Expected 1 frame via observer, got %d", snap.Frames)
	}
	if snap.BackendErrors != 1 {
		t.Errorf("Expected 1 backend error via observer, got %d", snap.BackendErrors)
	}
}
