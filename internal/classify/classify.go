// Package classify turns a completed HTTP exchange into a uniform Outcome and
// renders bodies for logging.
package classify

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Outcome describes one completed exchange. It is built once and not mutated.
type Outcome struct {
	StatusCode int
	// Status is the reason phrase, e.g. "Not Found".
	Status  string
	Success bool
	Header  http.Header
	Body    []byte
	HasBody bool
}

// IsSuccess is the success predicate: any 2xx status.
func IsSuccess(code int) bool {
	return code >= 200 && code < 300
}

// Classify labels resp. body is the already-read response body.
func Classify(resp *http.Response, body []byte) Outcome {
	if resp == nil {
		return Outcome{}
	}
	return Outcome{
		StatusCode: resp.StatusCode,
		Status:     statusMessage(resp),
		Success:    IsSuccess(resp.StatusCode),
		Header:     resp.Header.Clone(),
		Body:       body,
		HasBody:    len(body) > 0,
	}
}

func statusMessage(resp *http.Response) string {
	status := strings.TrimSpace(resp.Status)
	if rest, ok := strings.CutPrefix(status, strconv.Itoa(resp.StatusCode)); ok {
		status = strings.TrimSpace(rest)
	}
	if status == "" {
		status = http.StatusText(resp.StatusCode)
	}
	return status
}

// Describe renders the raw exchange for warning logs.
func Describe(req *http.Request, outcome Outcome) string {
	var b strings.Builder
	if req != nil && req.URL != nil {
		fmt.Fprintf(&b, "%s %s -> ", req.Method, req.URL.Redacted())
	}
	fmt.Fprintf(&b, "%d", outcome.StatusCode)
	if outcome.Status != "" {
		fmt.Fprintf(&b, " %s", outcome.Status)
	}
	if ct := outcome.Header.Get("Content-Type"); ct != "" {
		fmt.Fprintf(&b, " (%s, %d bytes)", ct, len(outcome.Body))
	} else {
		fmt.Fprintf(&b, " (%d bytes)", len(outcome.Body))
	}
	return b.String()
}
