package events

import "time"

// QueryStart is published before a storage statement runs.
type QueryStart struct {
	Table     string
	Statement string
}

// QueryFinish is published after a storage statement completes.
type QueryFinish struct {
	Table     string
	Statement string
	Rows      int
	Err       error
	Duration  time.Duration
}

// PageFinish is published after a page has been fetched and projected.
type PageFinish struct {
	Type       string
	Table      string
	Count      int
	TotalCount int
	Err        error
	Duration   time.Duration
}
