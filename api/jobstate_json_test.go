package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMarshalJobStateEmitsBothFileAliases(t *testing.T) {
	state := JobState{
		JobID:       "job-1",
		Status:      JobCompleted,
		Progress:    1.0,
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		OutputFiles: []OutputFile{{Format: "json", Path: "job-1.json", Bytes: 1024}},
	}

	data, err := json.Marshal(state)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))

	require.Contains(t, raw, "output_files")
	require.Contains(t, raw, "result_files")
	require.Equal(t, raw["output_files"], raw["result_files"])
}

func TestUnmarshalAcceptsLegacyResultFilesOnly(t *testing.T) {
	payload := []byte(`{
		"job_id": "job-2",
		"status": "completed",
		"progress": 1.0,
		"created_at": "2026-01-01T00:00:00Z",
		"result_files": [{"format": "csv", "path": "job-2.csv", "bytes": 512}]
	}`)

	var state JobState
	require.NoError(t, json.Unmarshal(payload, &state))
	require.Len(t, state.OutputFiles, 1)
	require.Equal(t, "job-2.csv", state.OutputFiles[0].Path)
}

func TestUnmarshalPrefersOutputFilesWhenBothPresent(t *testing.T) {
	payload := []byte(`{
		"job_id": "job-3",
		"status": "completed",
		"output_files": [{"format": "json", "path": "new.json", "bytes": 1}],
		"result_files": [{"format": "json", "path": "old.json", "bytes": 1}]
	}`)

	var state JobState
	require.NoError(t, json.Unmarshal(payload, &state))
	require.Equal(t, "new.json", state.OutputFiles[0].Path)
}

func TestRoundTripPreservesCompletedAt(t *testing.T) {
	completed := time.Date(2026, 2, 2, 12, 30, 0, 0, time.UTC)
	state := JobState{JobID: "job-4", Status: JobCompleted, CompletedAt: &completed}

	data, err := json.Marshal(state)
	require.NoError(t, err)

	var decoded JobState
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NotNil(t, decoded.CompletedAt)
	require.True(t, completed.Equal(*decoded.CompletedAt))
}
