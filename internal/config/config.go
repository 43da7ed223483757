package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultConnectTimeout = 60 * time.Second
	DefaultReadTimeout    = 30 * time.Second
	DefaultWriteTimeout   = 30 * time.Second
	DefaultPollTimeout    = 30 * time.Second
)

type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
	OutputYAML OutputFormat = "yaml"
)

type Config struct {
	TargetURL      string            `mapstructure:"target"`
	Method         string            `mapstructure:"method"`
	Headers        map[string]string `mapstructure:"headers"`
	Body           string            `mapstructure:"body"`
	BodyFile       string            `mapstructure:"body_file"`
	BearerToken    string            `mapstructure:"bearer_token"`
	Service        string            `mapstructure:"service"`
	Strict         bool              `mapstructure:"strict"`
	KeepLogs       bool              `mapstructure:"keep_logs"`
	LogHeaders     bool              `mapstructure:"log_headers"`
	LogBody        bool              `mapstructure:"log_body"`
	ConnectTimeout time.Duration     `mapstructure:"connect_timeout"`
	ReadTimeout    time.Duration     `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration     `mapstructure:"write_timeout"`
	ErrorModels    []string          `mapstructure:"error_models"`
	Extract        []Extraction      `mapstructure:"extract"`
	Poll           PollConfig        `mapstructure:"poll"`
	RateLimit      float64           `mapstructure:"rate_limit"`
	Tracing        TracingConfig     `mapstructure:"tracing"`
	Auth           AuthConfig        `mapstructure:"auth"`
	Output         OutputFormat      `mapstructure:"output"`
	ReportFile     string            `mapstructure:"report_file"`
	ConfigFile     string            `mapstructure:"-"`
}

// Extraction captures a value from a successful response body into a variable.
type Extraction struct {
	Variable string `mapstructure:"variable"`
	JSONPath string `mapstructure:"json_path"`
	Regex    string `mapstructure:"regex"`
}

// PollConfig drives the wait command. Repeats of 0 selects floor(sqrt(timeout seconds)).
type PollConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	Repeats     int           `mapstructure:"repeats"`
	ExpectPath  string        `mapstructure:"expect_path"`
	ExpectValue string        `mapstructure:"expect_value"`
}

type AuthType string

const (
	AuthTypeClientCredentials AuthType = "client_credentials"
	AuthTypePassword          AuthType = "password"
)

// AuthConfig fetches an OAuth2 access token for every call. An empty Type
// disables it.
type AuthConfig struct {
	Type                AuthType      `mapstructure:"type"`
	TokenURL            string        `mapstructure:"token_url"`
	ClientID            string        `mapstructure:"client_id"`
	ClientSecret        string        `mapstructure:"client_secret"`
	Username            string        `mapstructure:"username"`
	Password            string        `mapstructure:"password"`
	Scopes              []string      `mapstructure:"scopes"`
	RefreshBeforeExpiry time.Duration `mapstructure:"refresh_before_expiry"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	Propagate   bool    `mapstructure:"propagate"`
}

// Enabled reports whether any tracing behaviour was requested.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || t.Propagate
}

// ShouldPropagate reports whether W3C trace headers are injected into outgoing calls.
func (t TracingConfig) ShouldPropagate() bool {
	return t.Enabled()
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	target := strings.TrimSpace(c.TargetURL)
	if target == "" {
		issues = append(issues, "target is required (use --help for usage information)")
	} else if u, err := url.Parse(target); err != nil || u.Scheme == "" || u.Host == "" {
		issues = append(issues, fmt.Sprintf("target %q must be an absolute URL", target))
	}

	if c.Body != "" && strings.TrimSpace(c.BodyFile) != "" {
		issues = append(issues, "body and body_file cannot both be set")
	}

	if c.ConnectTimeout < 0 {
		issues = append(issues, "connect_timeout must be non-negative")
	}
	if c.ReadTimeout < 0 {
		issues = append(issues, "read_timeout must be non-negative")
	}
	if c.WriteTimeout < 0 {
		issues = append(issues, "write_timeout must be non-negative")
	}
	if c.RateLimit < 0 {
		issues = append(issues, "rate_limit must be non-negative")
	}

	issues = append(issues, validatePollConfig(c.Poll)...)
	issues = append(issues, validateExtractions(c.Extract)...)
	issues = append(issues, validateTracingConfig(c.Tracing)...)
	issues = append(issues, validateAuthConfig(c.Auth)...)
	if c.Auth.Type != "" && strings.TrimSpace(c.BearerToken) != "" {
		issues = append(issues, "bearer_token and auth cannot both be set")
	}

	switch c.Output {
	case "", OutputText, OutputJSON, OutputYAML:
	default:
		issues = append(issues, fmt.Sprintf("output must be one of text, json, yaml (got %q)", c.Output))
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validatePollConfig(p PollConfig) []string {
	var issues []string
	if p.Timeout < time.Second {
		issues = append(issues, "poll.timeout must be at least 1s")
	}
	if p.Repeats < 0 {
		issues = append(issues, "poll.repeats must be non-negative")
	}
	if p.ExpectValue != "" && strings.TrimSpace(p.ExpectPath) == "" {
		issues = append(issues, "poll.expect_value requires poll.expect_path")
	}
	return issues
}

func validateExtractions(extractions []Extraction) []string {
	var issues []string
	for i, ex := range extractions {
		if strings.TrimSpace(ex.Variable) == "" {
			issues = append(issues, fmt.Sprintf("extract[%d]: variable is required", i))
		}
		hasPath := strings.TrimSpace(ex.JSONPath) != ""
		hasRegex := strings.TrimSpace(ex.Regex) != ""
		if hasPath == hasRegex {
			issues = append(issues, fmt.Sprintf("extract[%d]: exactly one of json_path or regex is required", i))
		}
	}
	return issues
}

func validateTracingConfig(t TracingConfig) []string {
	var issues []string
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing.protocol must be grpc or http (got %q)", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, "tracing.sample_rate must be between 0.0 and 1.0")
	}
	return issues
}

func validateAuthConfig(auth AuthConfig) []string {
	var issues []string
	switch auth.Type {
	case "":
		return nil
	case AuthTypeClientCredentials:
	case AuthTypePassword:
		if strings.TrimSpace(auth.Username) == "" {
			issues = append(issues, "auth: username is required for the password grant")
		}
		if auth.Password == "" {
			issues = append(issues, "auth: password is required for the password grant")
		}
	default:
		return []string{fmt.Sprintf("auth: unsupported type %q", auth.Type)}
	}
	if u, err := url.Parse(strings.TrimSpace(auth.TokenURL)); err != nil || u.Scheme == "" || u.Host == "" {
		issues = append(issues, "auth: token_url must be an absolute URL")
	}
	if strings.TrimSpace(auth.ClientID) == "" {
		issues = append(issues, "auth: client_id is required")
	}
	if auth.RefreshBeforeExpiry < 0 {
		issues = append(issues, "auth: refresh_before_expiry must be non-negative")
	}
	return issues
}
