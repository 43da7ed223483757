package executor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrBodyConsumed is returned for a request whose body has no GetBody and was
// already read by an earlier call.
var ErrBodyConsumed = errors.New("request body already consumed")

// consumedBody marks a caller body the executor has drained.
type consumedBody struct{}

func (consumedBody) Read([]byte) (int, error) { return 0, ErrBodyConsumed }

func (consumedBody) Close() error { return nil }

// Replayable returns req itself when its body can be sent more than once.
// Otherwise it reads the body into memory and returns a copy of req whose
// GetBody serves those bytes. The caller's body is drained, and any later
// call made with the original req fails with ErrBodyConsumed.
func Replayable(req *http.Request) (*http.Request, error) {
	if req == nil || req.GetBody != nil || req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	if _, ok := req.Body.(consumedBody); ok {
		return nil, ErrBodyConsumed
	}

	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	req.Body = consumedBody{}
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}

	out := req.Clone(req.Context())
	out.ContentLength = int64(len(data))
	out.GetBody = func() (io.ReadCloser, error) {
		if len(data) == 0 {
			return http.NoBody, nil
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	out.Body, _ = out.GetBody()
	return out, nil
}
