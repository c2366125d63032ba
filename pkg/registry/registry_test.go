// pkg/registry/registry_test.go
package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRegistry(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "activity-registry.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadRegistry_Shipped(t *testing.T) {
	reg, err := LoadRegistry("../../configs/activity-registry.json")
	require.NoError(t, err)

	for _, taskType := range []string{"detect-farmer-intent", "build-advice", "llm-synthesis", "summarize-conversation"} {
		a, ok := reg.Find(taskType)
		require.True(t, ok, taskType)
		assert.NotEmpty(t, a.ErrorCodes)
	}

	_, ok := reg.Find("parse-user-intent")
	assert.False(t, ok)
}

func TestActivity_ValidateInput(t *testing.T) {
	reg, err := LoadRegistry("../../configs/activity-registry.json")
	require.NoError(t, err)
	a, ok := reg.Find("detect-farmer-intent")
	require.True(t, ok)

	res, err := a.ValidateInput(map[string]interface{}{"query": "गेहूं का भाव"})
	require.NoError(t, err)
	assert.True(t, res.Valid)

	res, err = a.ValidateInput(map[string]interface{}{"sessionId": "s1"})
	require.NoError(t, err)
	assert.False(t, res.Valid)

	empty := &Activity{}
	res, err = empty.ValidateInput(map[string]interface{}{})
	require.NoError(t, err)
	assert.True(t, res.Valid)
}

func TestLoadRegistry_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "duplicate task type",
			body:    `{"activities":[{"id":"a","taskType":"x"},{"id":"b","taskType":"x"}]}`,
			wantErr: "duplicate taskType",
		},
		{
			name:    "unknown error code",
			body:    `{"activities":[{"id":"a","taskType":"x","errorCodes":["NOPE"]}]}`,
			wantErr: "unknown error code",
		},
		{
			name:    "bad timeout",
			body:    `{"activities":[{"id":"a","taskType":"x","timeout":"soon"}]}`,
			wantErr: "invalid timeout",
		},
		{
			name:    "unknown status",
			body:    `{"activities":[{"id":"a","taskType":"x","implementationStatus":"shipped"}]}`,
			wantErr: "unknown status",
		},
		{
			name:    "missing task type",
			body:    `{"activities":[{"id":"a"}]}`,
			wantErr: "id and taskType are required",
		},
		{
			name:    "malformed json",
			body:    `{"activities":`,
			wantErr: "failed to parse registry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRegistry(writeRegistry(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadRegistry_MissingFile(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "nope.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestRegistry_AddUpdateSave(t *testing.T) {
	reg := &ActivityRegistry{Version: "1.0.0"}

	require.NoError(t, reg.Add(Activity{ID: "detect-farmer-intent", TaskType: "detect-farmer-intent", Timeout: "5s"}))
	assert.Error(t, reg.Add(Activity{ID: "detect-farmer-intent", TaskType: "other"}))
	assert.NotEmpty(t, reg.LastUpdated)

	require.NoError(t, reg.Update("detect-farmer-intent", "status", "verified"))
	require.NoError(t, reg.Update("detect-farmer-intent", "retries", "2"))
	assert.Error(t, reg.Update("detect-farmer-intent", "retries", "two"))
	assert.Error(t, reg.Update("detect-farmer-intent", "timeout", "soon"))
	assert.Error(t, reg.Update("detect-farmer-intent", "colour", "green"))
	assert.Error(t, reg.Update("detect-farmer-intent", "status", "done-ish"))
	assert.Error(t, reg.Update("missing", "status", "verified"))

	path := filepath.Join(t.TempDir(), "nested", "activity-registry.json")
	require.NoError(t, reg.Save(path))

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	a, ok := loaded.Find("detect-farmer-intent")
	require.True(t, ok)
	assert.Equal(t, StatusVerified, a.Status)
	assert.Equal(t, 2, a.Retries)
}
