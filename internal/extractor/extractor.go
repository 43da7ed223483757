// Package extractor captures values from successful response bodies into a
// variable store, using JSON paths or regular expressions.
package extractor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/torosent/callcheck/internal/config"
	"github.com/torosent/callcheck/internal/logging"
	"github.com/torosent/callcheck/internal/variables"
)

// Rule names one value to capture. Exactly one of JSONPath or Regex is set.
type Rule struct {
	// Variable is the store key the value is saved under.
	Variable string
	// JSONPath accepts "$.user.id", "user.id" and gjson syntax.
	JSONPath string
	// Regex returns its first capture group, or the whole match without one.
	Regex string
}

func (r Rule) Validate() error {
	if strings.TrimSpace(r.Variable) == "" {
		return errors.New("extract rule: variable is required")
	}
	if (r.JSONPath == "") == (r.Regex == "") {
		return fmt.Errorf("extract rule %q: exactly one of json_path or regex is required", r.Variable)
	}
	return nil
}

// RulesFromConfig converts configured extractions and validates them.
func RulesFromConfig(extractions []config.Extraction) ([]Rule, error) {
	rules := make([]Rule, 0, len(extractions))
	for _, ex := range extractions {
		rule := Rule{Variable: ex.Variable, JSONPath: ex.JSONPath, Regex: ex.Regex}
		if err := rule.Validate(); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Extract applies every rule to body and returns the values that were found.
// Misses and bad patterns are logged as warnings and skipped.
func Extract(body []byte, rules []Rule, logger logging.Logger) map[string]string {
	if logger == nil {
		logger = logging.NullLogger()
	}
	found := make(map[string]string, len(rules))
	for _, rule := range rules {
		var (
			value string
			ok    bool
		)
		switch {
		case rule.JSONPath != "":
			value, ok = findJSONPath(body, rule.JSONPath, logger)
		case rule.Regex != "":
			value, ok = findRegex(body, rule.Regex, logger)
		}
		if ok {
			found[rule.Variable] = value
		}
	}
	return found
}

// Apply extracts values from body and saves them in store. A rule that finds
// nothing leaves any earlier value in place.
func Apply(body []byte, rules []Rule, store variables.Store, logger logging.Logger) map[string]string {
	found := Extract(body, rules, logger)
	if store == nil {
		return found
	}
	for key, value := range found {
		store.Set(key, value)
	}
	return found
}
