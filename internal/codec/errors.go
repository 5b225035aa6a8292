package codec

import "fmt"

// DecodeError reports a malformed or truncated payload. It is recoverable:
// the offending log is skipped and ingestion continues.
type DecodeError struct {
	What string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.What, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeErr(what string, format string, args ...interface{}) error {
	return &DecodeError{What: what, Err: fmt.Errorf(format, args...)}
}

func wrapDecodeErr(what string, err error) error {
	if err == nil {
		return nil
	}
	return &DecodeError{What: what, Err: err}
}
