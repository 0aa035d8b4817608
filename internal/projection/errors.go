package projection

import (
	"fmt"

	"github.com/sirendb/sirendb/internal/storage"
)

// MissingFieldError reports a required field that projection could not
// satisfy. It signals a schema or data defect, not a client mistake.
type MissingFieldError struct {
	Type  string
	Field string
	Key   storage.Key
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("projection: required field %s.%s missing on %s", e.Type, e.Field, e.Key)
}
