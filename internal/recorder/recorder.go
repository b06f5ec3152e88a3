package recorder

import "time"

// Run outcomes.
const (
	StatusOK     = "OK"
	StatusFailed = "FAILED"
)

// RunRecord holds everything persisted about one pipeline run.
type RunRecord struct {
	ID            string
	StartedAt     time.Time
	Duration      time.Duration
	Ticker        string
	From          string
	To            string
	Provider      string
	Status        string // StatusOK or StatusFailed
	ErrorKind     string // NetworkFailure, ProviderError, EmptyResult
	Error         string
	Bars          int
	OverlayPoints int
	ImagePath     string
	HTMLPath      string
}

// Recorder persists run history for later inspection.
type Recorder interface {
	RecordRun(run *RunRecord) error
	RecentRuns(limit int) ([]RunRecord, error)
	Close() error
}
