package domain

import "time"

// Exchange is one recorded request/response pair. It never carries the
// credential used for the call.
type Exchange struct {
	RequestID  string
	Model      string
	Prompt     string
	ResponseID string
	Content    string
	CreatedAt  time.Time
	TTL        int64
}
