package stores

import (
	"time"
)

// RunKind distinguishes datapackage runs from view renders.
type RunKind string

const (
	RunKindDatapackage RunKind = "datapackage"
	RunKindView        RunKind = "view"
)

// RunStatus represents the status of an execution run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one recorded container execution.
type Run struct {
	ID          string     `json:"id"`
	Kind        RunKind    `json:"kind"`
	Target      string     `json:"target"` // configuration or view name
	Image       string     `json:"image"`
	Status      RunStatus  `json:"status"`
	Logs        string     `json:"logs"`
	Error       *string    `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
