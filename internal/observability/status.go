package observability

import (
	"sync"
	"time"
)

type SystemStatus struct {
	mu            sync.RWMutex
	ActiveRuns    int
	CurrentStage  string
	Project       string
	LastHeartbeat time.Time
}

var globalStatus = &SystemStatus{
	LastHeartbeat: time.Now(),
}

// BeginRun marks a pipeline run as active.
func BeginRun(project string) {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.ActiveRuns++
	globalStatus.Project = project
}

// EndRun marks a pipeline run as finished.
func EndRun() {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	if globalStatus.ActiveRuns > 0 {
		globalStatus.ActiveRuns--
	}
	if globalStatus.ActiveRuns == 0 {
		globalStatus.CurrentStage = ""
		globalStatus.Project = ""
	}
}

// SetStage records the stage most recently started by any run.
func SetStage(stage string) {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.CurrentStage = stage
}

// GetStatus retrieves a copy of the global system status.
func GetStatus() (activeRuns int, stage string, project string, lastHB time.Time) {
	globalStatus.mu.RLock()
	defer globalStatus.mu.RUnlock()
	return globalStatus.ActiveRuns, globalStatus.CurrentStage, globalStatus.Project, globalStatus.LastHeartbeat
}

// Heartbeat updates the last heartbeat time.
func Heartbeat() {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.LastHeartbeat = time.Now()
}
