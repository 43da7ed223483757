package extractor

import (
	"github.com/tidwall/gjson"

	"github.com/torosent/callcheck/internal/logging"
)

// NormalizePath converts "$.a.b" to gjson's "a.b" and a bare "$" to "@this".
func NormalizePath(path string) string {
	switch {
	case path == "$":
		return "@this"
	case len(path) > 1 && path[0] == '$' && path[1] == '.':
		return path[2:]
	default:
		return path
	}
}

// Lookup returns the value at path in a JSON body.
func Lookup(body []byte, path string) (gjson.Result, bool) {
	result := gjson.GetBytes(body, NormalizePath(path))
	return result, result.Exists()
}

func findJSONPath(body []byte, path string, logger logging.Logger) (string, bool) {
	result, ok := Lookup(body, path)
	if !ok {
		logger.Warning("JSON path not found: %s", path)
		return "", false
	}
	return result.String(), true
}
