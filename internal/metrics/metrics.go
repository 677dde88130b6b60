// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Chat outcomes.
const (
	OutcomeOK                  = "ok"
	OutcomeInvalidInput        = "invalid_input"
	OutcomeUpstreamUnavailable = "upstream_unavailable"
	OutcomeModelFailed         = "model_failed"
)

// Login outcomes.
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
)

// Recorder captures metric events for the application.
type Recorder interface {
	// Chat pipeline
	IncChatRequest(outcome string)
	IncImageUploadAbsorbed()
	IncRecordWriteFailed()
	IncHistoryReadFailed()
	ObserveModelDuration(duration time.Duration)

	// Accounts
	IncSignup()
	IncLogin(outcome string)

	// HTTP
	IncRateLimited()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
