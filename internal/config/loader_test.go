package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestAsDuration(t *testing.T) {
	tests := []struct {
		input interface{}
		want  time.Duration
	}{
		{time.Second, time.Second},
		{"1m", time.Minute},
		{"15", 15 * time.Second},
		{10, 10 * time.Second}, // int treated as seconds
		{float64(2), 2 * time.Second},
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asDuration(tt.input)
		if err != nil {
			t.Errorf("asDuration(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asDuration(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestAsStringSliceSplitsEnvironmentForm(t *testing.T) {
	got, err := asStringSlice("problem,message")
	if err != nil {
		t.Fatalf("asStringSlice() error = %v", err)
	}
	if len(got) != 2 || got[0] != "problem" || got[1] != "message" {
		t.Errorf("asStringSlice() = %v", got)
	}
}

func TestAsIntTruncatesAndRejects(t *testing.T) {
	for input, want := range map[interface{}]int{"  7 ": 7, 2.9: 2, uint(3): 3, "": 0} {
		got, err := asInt(input)
		if err != nil || got != want {
			t.Errorf("asInt(%v) = %d, %v; want %d", input, got, err, want)
		}
	}
	if _, err := asInt([]int{1}); err == nil {
		t.Errorf("asInt(slice) error = nil, want unsupported type")
	}
}

func TestStringKeyMapForms(t *testing.T) {
	yamlForm := map[interface{}]interface{}{"Poll": 1}
	lowered, err := toStringKeyMap(yamlForm)
	if err != nil || lowered["poll"] != 1 {
		t.Errorf("toStringKeyMap() = %v, %v", lowered, err)
	}
	headers, err := asStringMap(map[string]interface{}{"X-Tenant": "acme"})
	if err != nil || headers["X-Tenant"] != "acme" {
		t.Errorf("asStringMap() = %v, %v", headers, err)
	}
	if _, err := asStringMap(map[string]string{" ": "x"}); err == nil {
		t.Errorf("asStringMap() accepted an empty key")
	}
}

func TestAsBool(t *testing.T) {
	tests := []struct {
		input interface{}
		want  bool
	}{
		{true, true},
		{"true", true},
		{"0", false},
		{nil, false},
	}
	for _, tt := range tests {
		got, err := asBool(tt.input)
		if err != nil {
			t.Errorf("asBool(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asBool(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
	if _, err := asBool(3); err == nil {
		t.Errorf("asBool(3) error = nil, want unsupported type")
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	configureFlags(fs)
	args := []string{
		"--strict",
		"--keep-logs=false",
		"--error-model", "Problem, errors",
		"--extract", "order_id=json:$.id",
		"--extract", "token=regex:token=(\\w+)",
		"--poll-timeout", "20s",
		"--poll-repeats", "4",
		"--rate-limit", "3",
		"-o", "JSON",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	cfg := Defaults()
	if err := applyFlagOverrides(cfg, fs); err != nil {
		t.Fatalf("applyFlagOverrides() error = %v", err)
	}

	if !cfg.Strict || cfg.KeepLogs {
		t.Errorf("Strict = %v KeepLogs = %v", cfg.Strict, cfg.KeepLogs)
	}
	if len(cfg.ErrorModels) != 2 || cfg.ErrorModels[0] != "problem" || cfg.ErrorModels[1] != "errors" {
		t.Errorf("ErrorModels = %v", cfg.ErrorModels)
	}
	if len(cfg.Extract) != 2 {
		t.Fatalf("Extract = %+v", cfg.Extract)
	}
	if cfg.Extract[0] != (Extraction{Variable: "order_id", JSONPath: "$.id"}) {
		t.Errorf("Extract[0] = %+v", cfg.Extract[0])
	}
	if cfg.Extract[1] != (Extraction{Variable: "token", Regex: `token=(\w+)`}) {
		t.Errorf("Extract[1] = %+v", cfg.Extract[1])
	}
	if cfg.Poll.Timeout != 20*time.Second || cfg.Poll.Repeats != 4 {
		t.Errorf("Poll = %+v", cfg.Poll)
	}
	if cfg.RateLimit != 3 {
		t.Errorf("RateLimit = %v", cfg.RateLimit)
	}
	if cfg.Output != OutputJSON {
		t.Errorf("Output = %q", cfg.Output)
	}
	// untouched flags keep defaults
	if cfg.ConnectTimeout != DefaultConnectTimeout {
		t.Errorf("ConnectTimeout = %s", cfg.ConnectTimeout)
	}
}

func TestParseExtractFlagErrors(t *testing.T) {
	for _, entry := range []string{"noequals", "=json:a", "id=json:", "id=xpath:/a"} {
		if _, err := parseExtractFlag(entry); err == nil {
			t.Errorf("parseExtractFlag(%q) error = nil", entry)
		}
	}
}
