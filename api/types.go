// Package api defines the REST-facing data transfer objects shared
// between the control plane and the generation pipeline: JobRequest,
// JobState, Patient, TimelineEvent, and Schedule. These are the
// entities named in spec.md §3 Data Model.
package api

import "time"

// Intensity levels affect clustering and time compression only, never
// total patient count (spec.md §4.2, invariant 7).
type Intensity string

const (
	IntensityLow     Intensity = "low"
	IntensityMedium  Intensity = "medium"
	IntensityHigh    Intensity = "high"
	IntensityExtreme Intensity = "extreme"
)

// Tempo shapes the per-day intensity curve.
type Tempo string

const (
	TempoSustained Tempo = "sustained"
	TempoSurge     Tempo = "surge"
	TempoDecisive  Tempo = "decisive"
)

// FrontConfig describes one operational sector's casualty share and
// demographic mix.
type FrontConfig struct {
	FrontID                  string             `json:"front_id"`
	CasualtyShare            float64            `json:"casualty_share"`
	NationalityDistribution  map[string]float64 `json:"nationality_distribution"`
	ChainOverride            []string           `json:"chain_override,omitempty"`
}

// OutputOptions controls which writers open and how the artifact is framed.
type OutputOptions struct {
	Formats          []string `json:"formats"`
	Compression      bool     `json:"compression"`
	EncryptionKey    []byte   `json:"-"`
	HasEncryptionKey bool     `json:"encryption_enabled"`
}

// JobRequest is the immutable input to one generation job.
type JobRequest struct {
	ID                     string             `json:"id"`
	TotalPatients          int                `json:"total_patients"`
	DaysOfFighting         int                `json:"days_of_fighting"`
	BaseDate               time.Time          `json:"base_date"`
	WarfareTypes           map[string]float64 `json:"warfare_types"`
	Intensity              Intensity          `json:"intensity"`
	Tempo                  Tempo              `json:"tempo"`
	EnvironmentalConditions []string          `json:"environmental_conditions,omitempty"`
	SpecialEvents          []string           `json:"special_events,omitempty"`
	Fronts                 []FrontConfig      `json:"fronts"`
	InjuryMixOverride      map[string]float64 `json:"injury_mix,omitempty"`
	Output                 OutputOptions      `json:"output"`
	ChunkSize              int                `json:"chunk_size,omitempty"`
	Seed                   int64              `json:"seed,omitempty"`
	MaxMemoryMBOverride    int                `json:"max_memory_mb,omitempty"`
	MaxCPUSecondsOverride  int                `json:"max_cpu_seconds,omitempty"`
	MaxWallClockOverride   time.Duration      `json:"max_wall_clock_seconds,omitempty"`
}

// ScheduleEntry is one materialized casualty-arrival instant.
type ScheduleEntry struct {
	InjuryInstant    time.Time `json:"injury_instant"`
	FrontID          string    `json:"front_id"`
	WarfareScenario  string    `json:"warfare_scenario"`
	IsMassCasualty   bool      `json:"is_mass_casualty_member"`
	ClusterID        string    `json:"cluster_id,omitempty"`
}

// Schedule is the fully-materialized, time-ordered output of C2.
type Schedule struct {
	Entries []ScheduleEntry
}

// Demographics is a patient's generated identity.
type Demographics struct {
	GivenName    string `json:"given_name"`
	FamilyName   string `json:"family_name"`
	Gender       string `json:"gender"`
	Rank         string `json:"rank"`
	NationalID   string `json:"national_id"`
}

// TimelineEvent is one step of a patient's movement through the evacuation network.
type TimelineEvent struct {
	EventType             string     `json:"event_type"`
	FacilityName          string     `json:"facility_name,omitempty"`
	Timestamp             time.Time  `json:"timestamp"`
	HoursSinceInjury      float64    `json:"hours_since_injury"`
	FromFacility          string     `json:"from_facility,omitempty"`
	ToFacility            string     `json:"to_facility,omitempty"`
	EvacuationDurationHrs *float64   `json:"evacuation_duration_hours,omitempty"`
	TransitDurationHrs    *float64   `json:"transit_duration_hours,omitempty"`
}

// Event type constants.
const (
	EventArrival          = "arrival"
	EventEvacuationStart  = "evacuation-start"
	EventTransitStart     = "transit-start"
	EventKIA              = "kia"
	EventRTD              = "rtd"
	EventRemains          = "remains"
)

// Final patient status values.
const (
	StatusKIA         = "KIA"
	StatusRTD         = "RTD"
	StatusRemainsRole4 = "Remains-Role-4"
)

// Patient is one generated casualty record.
type Patient struct {
	ID               int             `json:"id"`
	Demographics     Demographics    `json:"demographics"`
	NationalityCode  string          `json:"nationality_code"`
	FrontID          string          `json:"front_id"`
	InjuryType       string          `json:"injury_type"`
	TriageCategory   string          `json:"triage_category"`
	TriageNature     string          `json:"triage_nature,omitempty"`
	BodyRegion       string          `json:"body_region"`
	CBRNContaminated bool            `json:"cbrn_contaminated,omitempty"`
	InjuryTimestamp  time.Time       `json:"injury_timestamp"`
	MovementTimeline []TimelineEvent `json:"movement_timeline"`
	FinalStatus      string          `json:"final_status"`
	LastFacility     string          `json:"last_facility"`
}

// JobStatus values for the C7 state machine.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// ProgressDetails reports chunk-level progress.
type ProgressDetails struct {
	Phase             string `json:"phase"`
	PhaseDescription  string `json:"phase_description"`
	ProcessedPatients int    `json:"processed_patients"`
	TotalPatients     int    `json:"total_patients"`
}

// SummaryCounters are job-level aggregate statistics.
type SummaryCounters struct {
	KIACount           int            `json:"kia_count"`
	RTDCount           int            `json:"rtd_count"`
	RemainsCount       int            `json:"remains_count"`
	NationalityHistogram map[string]int `json:"nationality_histogram"`
	InjuryHistogram      map[string]int `json:"injury_histogram"`
}

// OutputFile describes one finalized writer artifact.
type OutputFile struct {
	Format string `json:"format"`
	Path   string `json:"path"`
	Bytes  int64  `json:"bytes"`
}

// JobState is the mutable, externally-observable state of one job.
// OutputFiles is serialized under both "output_files" and the legacy
// "result_files" key (spec.md §9 "Dual-field alias"); see MarshalJSON.
type JobState struct {
	JobID         string          `json:"job_id"`
	Status        JobStatus       `json:"status"`
	Progress      float64         `json:"progress"`
	Details       ProgressDetails `json:"progress_details"`
	CreatedAt     time.Time       `json:"created_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	OutputFiles   []OutputFile    `json:"-"`
	Summary       SummaryCounters `json:"summary"`
}
