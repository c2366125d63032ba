// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	apperrors "farmer-assistant-workers/internal/common/errors"
	"farmer-assistant-workers/internal/common/validation"
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse registry %s: %w", path, err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Find returns the activity registered for taskType.
func (r *ActivityRegistry) Find(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// Validate checks that task types are unique, error codes are known, timeouts
// parse and both schemas compile.
func (r *ActivityRegistry) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(r.Activities))

	for _, a := range r.Activities {
		if a.ID == "" || a.TaskType == "" {
			errs = append(errs, fmt.Errorf("activity %q: id and taskType are required", a.ID))
			continue
		}
		if seen[a.TaskType] {
			errs = append(errs, fmt.Errorf("activity %q: duplicate taskType %q", a.ID, a.TaskType))
		}
		seen[a.TaskType] = true

		if a.Status != "" {
			if _, err := ParseStatus(string(a.Status)); err != nil {
				errs = append(errs, fmt.Errorf("activity %q: %w", a.ID, err))
			}
		}
		for _, code := range a.ErrorCodes {
			if _, ok := apperrors.BPMNErrorMapping[code]; !ok && code != apperrors.ErrCodeInternal {
				errs = append(errs, fmt.Errorf("activity %q: unknown error code %q", a.ID, code))
			}
		}
		if _, err := a.TimeoutDuration(); err != nil {
			errs = append(errs, fmt.Errorf("activity %q: invalid timeout: %w", a.ID, err))
		}
		for name, schema := range map[string]Schema{"inputSchema": a.Input, "outputSchema": a.Output} {
			if len(schema) == 0 {
				continue
			}
			if _, err := validation.Compile(schema); err != nil {
				errs = append(errs, fmt.Errorf("activity %q: %s: %w", a.ID, name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// ValidateInput checks variables against the activity's input schema.
// Activities without a schema accept anything.
func (a *Activity) ValidateInput(variables interface{}) (*validation.ValidationResult, error) {
	if len(a.Input) == 0 {
		return &validation.ValidationResult{Valid: true}, nil
	}
	schema, err := validation.Compile(a.Input)
	if err != nil {
		return nil, err
	}
	return schema.Validate(variables)
}

// Add appends a new activity; ids must be unique.
func (r *ActivityRegistry) Add(a Activity) error {
	for _, existing := range r.Activities {
		if existing.ID == a.ID {
			return fmt.Errorf("activity with ID %s already exists", a.ID)
		}
	}
	r.Activities = append(r.Activities, a)
	r.touch()
	return nil
}

// Update sets one scalar field of the activity with the given id.
func (r *ActivityRegistry) Update(id, field, value string) error {
	var a *Activity
	for i := range r.Activities {
		if r.Activities[i].ID == id {
			a = &r.Activities[i]
			break
		}
	}
	if a == nil {
		return fmt.Errorf("activity with ID %s not found", id)
	}

	switch field {
	case "status":
		st, err := ParseStatus(value)
		if err != nil {
			return err
		}
		a.Status = st
	case "version":
		a.Version = value
	case "displayName":
		a.DisplayName = value
	case "description":
		a.Description = value
	case "category":
		a.Category = value
	case "timeout":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid timeout value: %w", err)
		}
		a.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		a.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}
	r.touch()
	return nil
}

// Save writes the registry as indented JSON, creating the directory if needed.
func (r *ActivityRegistry) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func (r *ActivityRegistry) touch() {
	r.LastUpdated = time.Now().UTC().Format("2006-01-02")
}
