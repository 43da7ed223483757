package classify

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// SerializationError reports a body that could not be rendered in canonical
// form. It only ever affects logging.
type SerializationError struct {
	Body   []byte
	Reason string
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("body is not serializable as JSON (%d bytes): %s", len(e.Body), e.Reason)
}

// PrettyBody returns body in indented canonical JSON form. An empty body yields
// "". A non-JSON body is returned as trimmed text together with a
// *SerializationError.
func PrettyBody(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", nil
	}
	if !gjson.ValidBytes(trimmed) {
		return strings.TrimSpace(string(trimmed)), &SerializationError{Body: body, Reason: "invalid JSON"}
	}
	out := pretty.Pretty(trimmed)
	return strings.TrimRight(string(out), "\n"), nil
}
