package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncChatRequest(string) {}
func (n *NoopRecorder) IncImageUploadAbsorbed() {}
func (n *NoopRecorder) IncRecordWriteFailed() {}
func (n *NoopRecorder) IncHistoryReadFailed() {}
func (n *NoopRecorder) ObserveModelDuration(time.Duration) {}
func (n *NoopRecorder) IncSignup() {}
func (n *NoopRecorder) IncLogin(string) {}
func (n *NoopRecorder) IncRateLimited() {}
