// pkg/registry/schema.go
package registry

import (
	"fmt"
	"time"

	apperrors "farmer-assistant-workers/internal/common/errors"
)

// ActivityRegistry documents every job type the worker manager can serve.
// It is served on /activities and edited with the registry-updater tool.
type ActivityRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Activities  []Activity `json:"activities"`
}

// Status tracks how far along a worker implementation is.
type Status string

const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusVerified   Status = "verified"
	StatusDeprecated Status = "deprecated"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPlanned, StatusInProgress, StatusCompleted, StatusVerified, StatusDeprecated:
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Schema is a JSON Schema document kept in decoded form.
type Schema map[string]interface{}

// Activity is one job type: its contract with the process model and the
// error codes it may throw.
type Activity struct {
	ID          string                `json:"id"`
	DisplayName string                `json:"displayName"`
	Description string                `json:"description"`
	Category    string                `json:"category"`
	Version     string                `json:"version"`
	TaskType    string                `json:"taskType"`
	Status      Status                `json:"implementationStatus"`
	Input       Schema                `json:"inputSchema"`
	Output      Schema                `json:"outputSchema"`
	ErrorCodes  []apperrors.ErrorCode `json:"errorCodes"`
	Timeout     string                `json:"timeout"`
	Retries     int                   `json:"retries"`
	Workflows   []string              `json:"workflows"`
	Tags        []string              `json:"tags"`
}

// TimeoutDuration parses Timeout, returning zero when it is unset.
func (a *Activity) TimeoutDuration() (time.Duration, error) {
	if a.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(a.Timeout)
}
