// Package events defines the in-process events published on the eventbus.
package events

import (
	"net/http"
	"time"
)

// HTTPStart is published when the GraphQL handler receives a request.
// The publishing context carries the request id.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is published after the response has been written.
type HTTPFinish struct {
	Request  *http.Request
	Status   int
	Duration time.Duration
}
