package domain

import "time"

// WarnMark is the sliding-window warning counter of one user in one group
type WarnMark struct {
	GroupID string
	UserID  string
	FirstAt time.Time
	Count   int

	// Window is the policy window of the last Record; not persisted
	Window time.Duration
}

// NewWarnMark starts a fresh window at now
func NewWarnMark(groupID, userID string, now time.Time) *WarnMark {
	return &WarnMark{GroupID: groupID, UserID: userID, FirstAt: now}
}

// Expired reports whether the window that started at FirstAt has elapsed
func (m *WarnMark) Expired(now time.Time, window time.Duration) bool {
	return now.Sub(m.FirstAt) > window
}

// Record counts one warning at now, restarting the window first if it elapsed.
// It returns the count after the increment.
func (m *WarnMark) Record(now time.Time, window time.Duration) int {
	m.Window = window
	if m.Expired(now, window) {
		m.FirstAt = now
		m.Count = 0
	}
	m.Count++
	return m.Count
}

// Ends returns when the current window elapses, or the zero time when the
// window is unknown
func (m *WarnMark) Ends() time.Time {
	if m.Window <= 0 {
		return time.Time{}
	}
	return m.FirstAt.Add(m.Window)
}

// Same reports whether other holds the same window start and count
func (m *WarnMark) Same(other *WarnMark) bool {
	return other != nil && m.FirstAt.Equal(other.FirstAt) && m.Count == other.Count
}

// Exceeds reports whether the count has passed the threshold
func (m *WarnMark) Exceeds(max int) bool {
	return m.Count > max
}
