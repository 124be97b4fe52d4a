package domain

import "time"

// ScriptTracker persists the progress cursor of a long-running audit script.
type ScriptTracker struct {
	Name      string
	Cursor    int64
	LastID    string
	UpdatedAt time.Time
}

// TopicAudit is a keyword topic scanned across all persistent-segment channels.
type TopicAudit struct {
	ID               int64
	Title            string
	Keywords         []string
	ChannelSegmentID int64
	VideoSegmentID   int64

	// StartCursor is the topic audit cursor at the moment the topic was picked up.
	StartCursor int64

	// FromBeginning is set once the topic has seen the corpus from position zero.
	FromBeginning bool

	// Wrapped is set when a topic picked up mid-corpus has passed the end of the corpus.
	Wrapped bool

	IsRunning   bool
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Started reports whether the topic has been picked up by a topic audit run.
func (t TopicAudit) Started() bool {
	return t.StartedAt != nil
}
