package executor

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/torosent/callcheck/internal/classify"
)

// Kind is the terminal state a call resolved to.
type Kind int

const (
	KindPending Kind = iota
	KindSuccess
	KindErrorDecoded
	KindErrorUndecodable
	KindTransportFailed
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindErrorDecoded:
		return "error_decoded"
	case KindErrorUndecodable:
		return "error_undecodable"
	case KindTransportFailed:
		return "transport_failed"
	default:
		return "pending"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Result is built once per call. Value is set only for KindSuccess,
// ErrorValue and ErrorModel only for KindErrorDecoded, TransportErr only for
// KindTransportFailed.
type Result[T any] struct {
	Kind         Kind
	Value        *T
	ErrorValue   any
	ErrorModel   string
	TransportErr error
	Outcome      classify.Outcome
	Service      string
	CallID       string
	Elapsed      time.Duration
}

// Payload is the typed result, the decoded error value, or nil.
func (r Result[T]) Payload() any {
	switch r.Kind {
	case KindSuccess:
		if r.Value != nil {
			return r.Value
		}
	case KindErrorDecoded:
		return r.ErrorValue
	}
	return nil
}

// OK reports whether the call resolved to a success.
func (r Result[T]) OK() bool {
	return r.Kind == KindSuccess
}

// Response is the full envelope returned by Executor.Do.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

func (r *Response) String() string {
	return string(r.Body)
}
