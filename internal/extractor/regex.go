package extractor

import (
	"regexp"

	"github.com/torosent/callcheck/internal/logging"
)

func findRegex(body []byte, pattern string, logger logging.Logger) (string, bool) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		logger.Warning("invalid regex pattern %s: %v", pattern, err)
		return "", false
	}

	match := re.FindSubmatch(body)
	if match == nil {
		logger.Warning("regex pattern not found: %s", pattern)
		return "", false
	}
	if len(match) > 1 {
		return string(match[1]), true
	}
	return string(match[0]), true
}
