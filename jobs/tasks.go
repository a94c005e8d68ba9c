package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDashboardWarmup pre-fetches the dashboard windows into the cache.
	TaskDashboardWarmup = "dashboard:warmup"
	// TaskCacheBump invalidates every cached report.
	TaskCacheBump = "cache:bump"
)

// Warm-up windows.
const (
	WindowMonthToDate = "mtd"
	WindowToday       = "today"
	WindowYesterday   = "yesterday"
)

// DashboardWarmupPayload lists the windows to warm. Empty means month-to-date
// and today.
type DashboardWarmupPayload struct {
	Windows []string `json:"windows,omitempty"`
}

// NewDashboardWarmupTask constructs an Asynq task.
func NewDashboardWarmupTask(payload DashboardWarmupPayload) (*asynq.Task, error) {
	for _, w := range payload.Windows {
		switch w {
		case WindowMonthToDate, WindowToday, WindowYesterday:
		default:
			return nil, fmt.Errorf("jobs: unknown warm-up window %q", w)
		}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardWarmup, data), nil
}

// NewCacheBumpTask constructs an Asynq task.
func NewCacheBumpTask() *asynq.Task {
	return asynq.NewTask(TaskCacheBump, nil)
}
