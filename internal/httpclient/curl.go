package httpclient

import (
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/alessio/shellescape"
)

const redacted = "REDACTED"

var sensitiveHeaders = map[string]bool{
	"Authorization":       true,
	"Proxy-Authorization": true,
	"Cookie":              true,
}

type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}

// CurlCommand renders req as an equivalent curl invocation. Credentials are
// redacted. The body is read through GetBody so req stays sendable.
func CurlCommand(req *http.Request) string {
	if req == nil || req.URL == nil {
		return ""
	}
	var cmd commandBuilder
	cmd.add("curl", "-X", req.Method, req.URL.String())

	keys := make([]string, 0, len(req.Header))
	for key := range req.Header {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		for _, value := range req.Header[key] {
			if sensitiveHeaders[http.CanonicalHeaderKey(key)] {
				value = redacted
			}
			cmd.add("-H", key+": "+value)
		}
	}

	if body := replayBody(req); body != "" {
		cmd.add("--data-raw", body)
	}
	return cmd.String()
}

func replayBody(req *http.Request) string {
	if req.GetBody == nil {
		return ""
	}
	rc, err := req.GetBody()
	if err != nil || rc == nil {
		return ""
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return ""
	}
	return string(data)
}
