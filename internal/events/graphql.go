package events

import "time"

// GraphQLStart is published before an operation is executed.
type GraphQLStart struct {
	OperationName string
	OperationType string
}

// GraphQLFinish is published after an operation is executed.
type GraphQLFinish struct {
	OperationName string
	OperationType string
	Errors        []error
	Duration      time.Duration
}

// ProjectionFinish is published once per root field with the resolution stats.
type ProjectionFinish struct {
	Field         string
	Type          string
	Objects       int
	CacheHits     int
	ResolverCalls int
	Err           error
}
