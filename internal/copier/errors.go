package copier

import (
	"encoding/json"
	"fmt"
)

// InputError reports a malformed input record.
type InputError struct {
	Record string // the offending record as received
	Path   string // path of the missing field
}

func (e *InputError) Error() string {
	return fmt.Sprintf("event record: \"%s\" does not contain a value for %s", e.Record, e.Path)
}

// CopyRequestError is the only error Handle returns. Either Failed lists the
// objects that exhausted their retries, or Err carries the fatal
// configuration, input or persistence error that aborted the invocation.
type CopyRequestError struct {
	Failed []CopyResult
	Err    error
}

func (e *CopyRequestError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	b, err := json.Marshal(e.Failed)
	if err != nil {
		return fmt.Sprintf("File copy failed. %v", e.Failed)
	}
	return "File copy failed. " + string(b)
}

func (e *CopyRequestError) Unwrap() error {
	return e.Err
}

// Fatal reports whether the invocation was aborted before every object was
// attempted.
func (e *CopyRequestError) Fatal() bool {
	return e.Err != nil
}
