package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	ChatRequests         map[string]uint64
	ImageUploadsAbsorbed uint64
	RecordWritesFailed   uint64
	HistoryReadsFailed   uint64
	ModelCallCount       uint64
	ModelCallTotalNs     int64
	Signups              uint64
	Logins               map[string]uint64
	RateLimited          uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu           sync.Mutex
	chatRequests map[string]uint64
	logins       map[string]uint64

	imageUploadsAbsorbed uint64
	recordWritesFailed   uint64
	historyReadsFailed   uint64
	modelCallCount       uint64
	modelCallTotalNs     int64
	signups              uint64
	rateLimited          uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		chatRequests: make(map[string]uint64),
		logins:       make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	chat := make(map[string]uint64, len(m.chatRequests))
	for k, v := range m.chatRequests {
		chat[k] = v
	}
	logins := make(map[string]uint64, len(m.logins))
	for k, v := range m.logins {
		logins[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		ChatRequests:         chat,
		ImageUploadsAbsorbed: atomic.LoadUint64(&m.imageUploadsAbsorbed),
		RecordWritesFailed:   atomic.LoadUint64(&m.recordWritesFailed),
		HistoryReadsFailed:   atomic.LoadUint64(&m.historyReadsFailed),
		ModelCallCount:       atomic.LoadUint64(&m.modelCallCount),
		ModelCallTotalNs:     atomic.LoadInt64(&m.modelCallTotalNs),
		Signups:              atomic.LoadUint64(&m.signups),
		Logins:               logins,
		RateLimited:          atomic.LoadUint64(&m.rateLimited),
	}
}

// IncChatRequest counts a finished chat request by outcome.
func (m *InMemoryRecorder) IncChatRequest(outcome string) {
	m.mu.Lock()
	m.chatRequests[outcome]++
	m.mu.Unlock()
}

// IncImageUploadAbsorbed counts upload failures that fell back to text.
func (m *InMemoryRecorder) IncImageUploadAbsorbed() {
	atomic.AddUint64(&m.imageUploadsAbsorbed, 1)
}

// IncRecordWriteFailed counts swallowed record writes.
func (m *InMemoryRecorder) IncRecordWriteFailed() {
	atomic.AddUint64(&m.recordWritesFailed, 1)
}

// IncHistoryReadFailed counts absorbed history reads on the chat path.
func (m *InMemoryRecorder) IncHistoryReadFailed() {
	atomic.AddUint64(&m.historyReadsFailed, 1)
}

// ObserveModelDuration records model call duration.
func (m *InMemoryRecorder) ObserveModelDuration(duration time.Duration) {
	atomic.AddUint64(&m.modelCallCount, 1)
	atomic.AddInt64(&m.modelCallTotalNs, duration.Nanoseconds())
}

// IncSignup increments the signup counter.
func (m *InMemoryRecorder) IncSignup() {
	atomic.AddUint64(&m.signups, 1)
}

// IncLogin counts a login attempt by outcome.
func (m *InMemoryRecorder) IncLogin(outcome string) {
	m.mu.Lock()
	m.logins[outcome]++
	m.mu.Unlock()
}

// IncRateLimited counts rejected requests.
func (m *InMemoryRecorder) IncRateLimited() {
	atomic.AddUint64(&m.rateLimited, 1)
}
