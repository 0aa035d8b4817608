package paginate

// ValidationError reports a malformed pagination, sort or filter argument.
// Its message is safe to show to clients.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }

var errInvalidSearch = invalid("invalid search expression")
