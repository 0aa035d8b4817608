package executor

// Error codes placed under the "code" extension.
const (
	CodeBadUserInput = "BAD_USER_INPUT"
	CodeInternal     = "INTERNAL_SERVER_ERROR"
)

// GraphQLError represents an error that occurred during execution
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

// Code returns the "code" extension, or "" when none is set.
func (e GraphQLError) Code() string {
	code, _ := e.Extensions["code"].(string)
	return code
}

// ExecutionResult represents the result of executing a GraphQL query
type ExecutionResult struct {
	Data   any            `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// HasInternalError reports whether any error carries the internal code.
func (r *ExecutionResult) HasInternalError() bool {
	for _, e := range r.Errors {
		if e.Code() == CodeInternal {
			return true
		}
	}
	return false
}

func withCode(code string) map[string]any {
	return map[string]any{"code": code}
}
