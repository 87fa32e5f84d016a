package api

import (
	"encoding/json"
	"time"
)

func parseTime(s string) (time.Time, error) {
	return time.Parse(rfc3339, s)
}

// jobStateWire mirrors JobState for JSON purposes, adding the legacy
// result_files alias alongside output_files (spec.md §9 "Dual-field alias").
type jobStateWire struct {
	JobID        string          `json:"job_id"`
	Status       JobStatus       `json:"status"`
	Progress     float64         `json:"progress"`
	Details      ProgressDetails `json:"progress_details"`
	CreatedAt    string          `json:"created_at"`
	CompletedAt  *string         `json:"completed_at,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	OutputFiles  []OutputFile    `json:"output_files"`
	ResultFiles  []OutputFile    `json:"result_files"`
	Summary      SummaryCounters `json:"summary"`
}

const rfc3339 = "2006-01-02T15:04:05.999999999Z07:00"

// MarshalJSON emits OutputFiles under both output_files and result_files.
func (j JobState) MarshalJSON() ([]byte, error) {
	wire := jobStateWire{
		JobID:        j.JobID,
		Status:       j.Status,
		Progress:     j.Progress,
		Details:      j.Details,
		CreatedAt:    j.CreatedAt.Format(rfc3339),
		ErrorMessage: j.ErrorMessage,
		OutputFiles:  j.OutputFiles,
		ResultFiles:  j.OutputFiles,
		Summary:      j.Summary,
	}
	if j.CompletedAt != nil {
		s := j.CompletedAt.Format(rfc3339)
		wire.CompletedAt = &s
	}
	return json.Marshal(wire)
}

// UnmarshalJSON accepts OutputFiles under either output_files or the
// legacy result_files key, preferring output_files when both are present.
func (j *JobState) UnmarshalJSON(data []byte) error {
	var wire jobStateWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	j.JobID = wire.JobID
	j.Status = wire.Status
	j.Progress = wire.Progress
	j.Details = wire.Details
	j.ErrorMessage = wire.ErrorMessage
	j.Summary = wire.Summary

	if wire.CreatedAt != "" {
		if t, err := parseTime(wire.CreatedAt); err == nil {
			j.CreatedAt = t
		}
	}
	if wire.CompletedAt != nil {
		if t, err := parseTime(*wire.CompletedAt); err == nil {
			j.CompletedAt = &t
		}
	}

	switch {
	case len(wire.OutputFiles) > 0:
		j.OutputFiles = wire.OutputFiles
	case len(wire.ResultFiles) > 0:
		j.OutputFiles = wire.ResultFiles
	}

	return nil
}
