package executor

import "fmt"

// FailedCallError is returned under a strict policy when a call does not
// succeed. Err is set for transport failures; StatusCode for unsuccessful
// responses.
type FailedCallError struct {
	Service    string
	CallID     string
	StatusCode int
	Status     string
	Body       []byte
	Err        error
}

func (e *FailedCallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("call to %s failed: %v", e.Service, e.Err)
	}
	if e.Status != "" {
		return fmt.Sprintf("call to %s failed with status %d %s", e.Service, e.StatusCode, e.Status)
	}
	return fmt.Sprintf("call to %s failed with status %d", e.Service, e.StatusCode)
}

func (e *FailedCallError) Unwrap() error {
	return e.Err
}

// DecodeError reports a successful response whose body does not decode into
// the requested type.
type DecodeError struct {
	Service    string
	CallID     string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s response (status %d): %v", e.Service, e.StatusCode, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
