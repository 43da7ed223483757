package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultEnvPrefix prefixes environment overrides, e.g. CALLCHECK_KEEP_LOGS=false.
const DefaultEnvPrefix = "CALLCHECK"

// Loader handles loading configuration from files, the environment and command-line flags.
// Precedence, lowest first: defaults, config file, environment, explicitly set flags.
type Loader struct {
	envPrefix string
}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

var envKeys = []string{
	"target", "method", "body", "body_file", "bearer_token", "service", "strict",
	"keep_logs", "log_headers", "log_body", "connect_timeout", "read_timeout", "write_timeout",
	"error_models", "rate_limit", "output", "report_file",
	"poll.timeout", "poll.repeats", "poll.expect_path", "poll.expect_value",
	"tracing.endpoint", "tracing.protocol", "tracing.service_name", "tracing.sample_rate",
	"tracing.insecure", "tracing.propagate",
	"auth.type", "auth.token_url", "auth.client_id", "auth.client_secret", "auth.username", "auth.password",
}

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{envPrefix: DefaultEnvPrefix}
}

// WithEnvPrefix returns a copy of the loader reading environment overrides with prefix.
func (l Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return &l
}

// Defaults returns the configuration used before any file, environment or flag is applied.
func Defaults() *Config {
	return &Config{
		Method:         http.MethodGet,
		Headers:        map[string]string{},
		KeepLogs:       true,
		ConnectTimeout: DefaultConnectTimeout,
		ReadTimeout:    DefaultReadTimeout,
		WriteTimeout:   DefaultWriteTimeout,
		Poll:           PollConfig{Timeout: DefaultPollTimeout},
		Tracing:        TracingConfig{Protocol: "grpc", SampleRate: 1.0},
		Output:         OutputText,
	}
}

// Load parses command-line arguments and configuration files to produce a Config.
func (l Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}
	return l.FromFlags(cmd.Flags())
}

// FromFlags builds a Config from an already parsed flag set registered with RegisterFlags.
func (l Loader) FromFlags(flagSet *pflag.FlagSet) (*Config, error) {
	var configPath string
	if f := flagSet.Lookup("config"); f != nil {
		configPath = strings.TrimSpace(f.Value.String())
	}

	cfgViper := viper.New()
	if l.envPrefix != "" {
		cfgViper.SetEnvPrefix(l.envPrefix)
		cfgViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		for _, key := range envKeys {
			if err := cfgViper.BindEnv(key); err != nil {
				return nil, fmt.Errorf("bind env %s: %w", key, err)
			}
		}
	}
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := Defaults()
	cfg.ConfigFile = configPath

	if err := applyConfigSettings(cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}
	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.Method = strings.ToUpper(strings.TrimSpace(cfg.Method))
	if cfg.Method == "" {
		cfg.Method = http.MethodGet
	}
	cfg.TargetURL = strings.TrimSpace(cfg.TargetURL)
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}
	if cfg.Output == "" {
		cfg.Output = OutputText
	}
	return cfg, nil
}

// applyConfigSettings applies settings from a config file or the environment.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	strs := []struct {
		dst  *string
		keys []string
	}{
		{&cfg.TargetURL, []string{"target"}},
		{&cfg.Method, []string{"method"}},
		{&cfg.BodyFile, []string{"bodyfile", "body_file", "body-file"}},
		{&cfg.BearerToken, []string{"bearertoken", "bearer_token", "bearer-token"}},
		{&cfg.Service, []string{"service"}},
		{&cfg.ReportFile, []string{"reportfile", "report_file", "report-file"}},
	}
	for _, s := range strs {
		raw, ok := lookupSetting(settings, s.keys...)
		if !ok {
			continue
		}
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", s.keys[0], err)
		}
		*s.dst = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "body"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("body: %w", err)
		}
		cfg.Body = val
	}

	if raw, ok := lookupSetting(settings, "headers"); ok {
		hdrs, err := asStringMap(raw)
		if err != nil {
			return fmt.Errorf("headers: %w", err)
		}
		for k, v := range hdrs {
			cfg.Headers[http.CanonicalHeaderKey(k)] = v
		}
	}

	bools := []struct {
		dst  *bool
		keys []string
	}{
		{&cfg.Strict, []string{"strict"}},
		{&cfg.KeepLogs, []string{"keeplogs", "keep_logs", "keep-logs"}},
		{&cfg.LogHeaders, []string{"logheaders", "log_headers", "log-headers"}},
		{&cfg.LogBody, []string{"logbody", "log_body", "log-body"}},
	}
	for _, b := range bools {
		raw, ok := lookupSetting(settings, b.keys...)
		if !ok {
			continue
		}
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", b.keys[0], err)
		}
		*b.dst = val
	}

	durations := []struct {
		dst  *time.Duration
		keys []string
	}{
		{&cfg.ConnectTimeout, []string{"connecttimeout", "connect_timeout", "connect-timeout"}},
		{&cfg.ReadTimeout, []string{"readtimeout", "read_timeout", "read-timeout"}},
		{&cfg.WriteTimeout, []string{"writetimeout", "write_timeout", "write-timeout"}},
	}
	for _, d := range durations {
		raw, ok := lookupSetting(settings, d.keys...)
		if !ok {
			continue
		}
		val, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.keys[0], err)
		}
		*d.dst = val
	}

	if raw, ok := lookupSetting(settings, "ratelimit", "rate_limit", "rate-limit"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("rateLimit: %w", err)
		}
		cfg.RateLimit = val
	}

	if raw, ok := lookupSetting(settings, "output"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("output: %w", err)
		}
		cfg.Output = OutputFormat(strings.ToLower(strings.TrimSpace(val)))
	}

	if raw, ok := lookupSetting(settings, "errormodels", "error_models", "error-models"); ok {
		names, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("errorModels: %w", err)
		}
		cfg.ErrorModels = normalizeNames(names)
	}

	if raw, ok := lookupSetting(settings, "extract"); ok {
		extractions, err := parseExtractions(raw)
		if err != nil {
			return fmt.Errorf("extract: %w", err)
		}
		cfg.Extract = extractions
	}

	if raw, ok := lookupSetting(settings, "poll"); ok {
		if err := applyPollSettings(&cfg.Poll, raw); err != nil {
			return fmt.Errorf("poll: %w", err)
		}
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		if err := applyTracingSettings(&cfg.Tracing, raw); err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
	}

	if raw, ok := lookupSetting(settings, "auth"); ok {
		if err := applyAuthSettings(&cfg.Auth, raw); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	return nil
}

func parseExtractions(value interface{}) ([]Extraction, error) {
	items, err := toInterfaceSlice(value)
	if err != nil {
		return nil, err
	}
	extractions := make([]Extraction, 0, len(items))
	for idx, item := range items {
		entry, err := toStringKeyMap(item)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", idx, err)
		}
		var ex Extraction
		if raw, ok := lookupSetting(entry, "variable", "name"); ok {
			if ex.Variable, err = asString(raw); err != nil {
				return nil, fmt.Errorf("index %d: variable: %w", idx, err)
			}
		}
		if raw, ok := lookupSetting(entry, "jsonpath", "json_path", "json-path"); ok {
			if ex.JSONPath, err = asString(raw); err != nil {
				return nil, fmt.Errorf("index %d: json_path: %w", idx, err)
			}
		}
		if raw, ok := lookupSetting(entry, "regex"); ok {
			if ex.Regex, err = asString(raw); err != nil {
				return nil, fmt.Errorf("index %d: regex: %w", idx, err)
			}
		}
		ex.Variable = strings.TrimSpace(ex.Variable)
		ex.JSONPath = strings.TrimSpace(ex.JSONPath)
		extractions = append(extractions, ex)
	}
	return extractions, nil
}

func applyPollSettings(poll *PollConfig, value interface{}) error {
	settings, err := toStringKeyMap(value)
	if err != nil {
		return err
	}
	if raw, ok := lookupSetting(settings, "timeout"); ok {
		if poll.Timeout, err = asDuration(raw); err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "repeats"); ok {
		if poll.Repeats, err = asInt(raw); err != nil {
			return fmt.Errorf("repeats: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "expectpath", "expect_path", "expect-path"); ok {
		if poll.ExpectPath, err = asString(raw); err != nil {
			return fmt.Errorf("expect_path: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "expectvalue", "expect_value", "expect-value"); ok {
		if poll.ExpectValue, err = asString(raw); err != nil {
			return fmt.Errorf("expect_value: %w", err)
		}
	}
	return nil
}

func applyTracingSettings(tracing *TracingConfig, value interface{}) error {
	settings, err := toStringKeyMap(value)
	if err != nil {
		return err
	}
	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		if tracing.Endpoint, err = asString(raw); err != nil {
			return fmt.Errorf("endpoint: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "protocol"); ok {
		if tracing.Protocol, err = asString(raw); err != nil {
			return fmt.Errorf("protocol: %w", err)
		}
		tracing.Protocol = strings.ToLower(strings.TrimSpace(tracing.Protocol))
	}
	if raw, ok := lookupSetting(settings, "servicename", "service_name", "service-name"); ok {
		if tracing.ServiceName, err = asString(raw); err != nil {
			return fmt.Errorf("service_name: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "samplerate", "sample_rate", "sample-rate"); ok {
		if tracing.SampleRate, err = asFloat64(raw); err != nil {
			return fmt.Errorf("sample_rate: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		if tracing.Insecure, err = asBool(raw); err != nil {
			return fmt.Errorf("insecure: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "propagate"); ok {
		if tracing.Propagate, err = asBool(raw); err != nil {
			return fmt.Errorf("propagate: %w", err)
		}
	}
	return nil
}

func applyAuthSettings(auth *AuthConfig, value interface{}) error {
	settings, err := toStringKeyMap(value)
	if err != nil {
		return err
	}
	if raw, ok := lookupSetting(settings, "type"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("type: %w", err)
		}
		auth.Type = AuthType(strings.ToLower(strings.TrimSpace(val)))
	}

	strs := []struct {
		dst  *string
		keys []string
	}{
		{&auth.TokenURL, []string{"tokenurl", "token_url", "token-url"}},
		{&auth.ClientID, []string{"clientid", "client_id", "client-id"}},
		{&auth.ClientSecret, []string{"clientsecret", "client_secret", "client-secret"}},
		{&auth.Username, []string{"username"}},
		{&auth.Password, []string{"password"}},
	}
	for _, s := range strs {
		raw, ok := lookupSetting(settings, s.keys...)
		if !ok {
			continue
		}
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", s.keys[1], err)
		}
		*s.dst = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "scopes"); ok {
		if auth.Scopes, err = asStringSlice(raw); err != nil {
			return fmt.Errorf("scopes: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "refreshbeforeexpiry", "refresh_before_expiry", "refresh-before-expiry"); ok {
		if auth.RefreshBeforeExpiry, err = asDuration(raw); err != nil {
			return fmt.Errorf("refresh_before_expiry: %w", err)
		}
	}
	return nil
}
