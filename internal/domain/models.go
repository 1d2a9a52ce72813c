package domain

import "time"

// StatusRecord is the outcome of one probe. It is a value and is never
// modified after the prober returns it.
type StatusRecord struct {
	Online         bool      `json:"online"`
	ResponseTimeMS int64     `json:"response_time_ms"`
	Message        string    `json:"message"`
	Timestamp      time.Time `json:"timestamp"`

	// StatusCode and ContentType are 0 and "" when the request never got
	// a response.
	StatusCode  int    `json:"status_code,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// MonitorState is everything the loop remembers between cycles.
// The zero value is the state at process start.
type MonitorState struct {
	Previous            *StatusRecord
	ConsecutiveFailures int
}

// Observe folds a fresh probe result into the failure counter.
// Previous is left alone; see Advance.
func (s MonitorState) Observe(rec StatusRecord) MonitorState {
	if rec.Online {
		s.ConsecutiveFailures = 0
	} else {
		s.ConsecutiveFailures++
	}
	return s
}

// Advance makes rec the previous record for the next cycle.
func (s MonitorState) Advance(rec StatusRecord) MonitorState {
	r := rec
	s.Previous = &r
	return s
}

// Snapshot is the read model published after every cycle.
type Snapshot struct {
	TargetURL           string       `json:"target_url"`
	Current             StatusRecord `json:"current"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	Threshold           int          `json:"threshold"`
	Cycles              uint64       `json:"cycles"`
	Notified            bool         `json:"notified"`
	LastNotifiedAt      *time.Time   `json:"last_notified_at,omitempty"`
}
