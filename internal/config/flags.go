package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags on a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "callcheck",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

func configureFlags(flags *pflag.FlagSet) {
	// Request
	flags.String("target", "", "Target URL to call")
	flags.String("method", "GET", "HTTP method to use")
	flags.StringSlice("header", nil, "Additional request header in key=value form")
	flags.String("body", "", "Inline request body payload")
	flags.String("body-file", "", "Path to file containing the request body")
	flags.String("bearer-token", "", "Bearer token sent in the Authorization header")

	// OAuth2
	flags.String("auth-type", "", "OAuth2 grant used to fetch an access token: client_credentials or password")
	flags.String("auth-token-url", "", "OAuth2 token endpoint")
	flags.String("auth-client-id", "", "OAuth2 client ID")
	flags.String("auth-client-secret", "", "OAuth2 client secret (prefer CALLCHECK_AUTH_CLIENT_SECRET)")
	flags.String("auth-username", "", "Resource owner username for the password grant")
	flags.String("auth-password", "", "Resource owner password (prefer CALLCHECK_AUTH_PASSWORD)")
	flags.StringSlice("auth-scope", nil, "OAuth2 scope to request (repeatable)")

	// Call policy
	flags.String("service", "", "Logical service name used in logs (defaults to the target host)")
	flags.Bool("strict", false, "Fail on transport errors and non-2xx responses instead of degrading to an empty result")
	flags.StringSlice("error-model", nil, "Ordered error body shapes to try on failure (problem, message, errors)")
	flags.StringSlice("extract", nil, "Capture a value from a successful body: name=json:path or name=regex:pattern")
	flags.Float64("rate-limit", 0, "Maximum outbound calls per second (0 means unlimited)")

	// Transport
	flags.Duration("connect-timeout", DefaultConnectTimeout, "Connection timeout")
	flags.Duration("read-timeout", DefaultReadTimeout, "Response read timeout")
	flags.Duration("write-timeout", DefaultWriteTimeout, "Request write timeout")

	// Logging and output
	flags.Bool("keep-logs", true, "Write informational log lines")
	flags.Bool("log-headers", false, "Log request headers as a curl command line")
	flags.Bool("log-body", false, "Log response bodies")
	flags.StringP("output", "o", string(OutputText), "Result format: text, json or yaml")
	flags.String("report-file", "", "Append one JSON line per call to this file")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Polling
	flags.Duration("poll-timeout", DefaultPollTimeout, "How long wait keeps polling")
	flags.Int("poll-repeats", 0, "Number of polls within the timeout (0 means floor(sqrt(seconds)))")
	flags.String("expect-path", "", "JSON path that must match --expect-value for wait to succeed")
	flags.String("expect-value", "", "Expected value at --expect-path")

	// Tracing
	flags.String("tracing-endpoint", "", "OTLP collector endpoint")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.String("tracing-service-name", "", "Service name reported on spans")
	flags.Float64("tracing-sample-rate", 1.0, "Trace sample rate between 0.0 and 1.0")
	flags.Bool("tracing-insecure", false, "Disable TLS towards the OTLP endpoint")
	flags.Bool("tracing-propagate", false, "Inject W3C trace headers even without an exporter")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies explicitly set flags on top of config file values.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	var err error
	str := func(name string, dst *string) {
		if err != nil || !fs.Changed(name) {
			return
		}
		var val string
		val, err = fs.GetString(name)
		*dst = strings.TrimSpace(val)
	}
	boolean := func(name string, dst *bool) {
		if err != nil || !fs.Changed(name) {
			return
		}
		*dst, err = fs.GetBool(name)
	}

	str("target", &cfg.TargetURL)
	str("method", &cfg.Method)
	str("bearer-token", &cfg.BearerToken)
	str("service", &cfg.Service)
	str("report-file", &cfg.ReportFile)
	str("expect-path", &cfg.Poll.ExpectPath)
	str("expect-value", &cfg.Poll.ExpectValue)
	str("auth-token-url", &cfg.Auth.TokenURL)
	str("auth-client-id", &cfg.Auth.ClientID)
	str("auth-client-secret", &cfg.Auth.ClientSecret)
	str("auth-username", &cfg.Auth.Username)
	str("auth-password", &cfg.Auth.Password)
	str("tracing-endpoint", &cfg.Tracing.Endpoint)
	str("tracing-protocol", &cfg.Tracing.Protocol)
	str("tracing-service-name", &cfg.Tracing.ServiceName)
	boolean("strict", &cfg.Strict)
	boolean("keep-logs", &cfg.KeepLogs)
	boolean("log-headers", &cfg.LogHeaders)
	boolean("log-body", &cfg.LogBody)
	boolean("tracing-insecure", &cfg.Tracing.Insecure)
	boolean("tracing-propagate", &cfg.Tracing.Propagate)
	if err != nil {
		return err
	}

	if fs.Changed("body") {
		val, err := fs.GetString("body")
		if err != nil {
			return err
		}
		cfg.Body = val
		cfg.BodyFile = ""
	}
	if fs.Changed("body-file") {
		val, err := fs.GetString("body-file")
		if err != nil {
			return err
		}
		cfg.BodyFile = strings.TrimSpace(val)
		cfg.Body = ""
	}
	if fs.Changed("auth-type") {
		val, err := fs.GetString("auth-type")
		if err != nil {
			return err
		}
		cfg.Auth.Type = AuthType(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("auth-scope") {
		val, err := fs.GetStringSlice("auth-scope")
		if err != nil {
			return err
		}
		cfg.Auth.Scopes = val
	}
	if fs.Changed("output") {
		val, err := fs.GetString("output")
		if err != nil {
			return err
		}
		cfg.Output = OutputFormat(strings.ToLower(strings.TrimSpace(val)))
	}

	durations := map[string]*time.Duration{
		"connect-timeout": &cfg.ConnectTimeout,
		"read-timeout":    &cfg.ReadTimeout,
		"write-timeout":   &cfg.WriteTimeout,
		"poll-timeout":    &cfg.Poll.Timeout,
	}
	for name, dst := range durations {
		if !fs.Changed(name) {
			continue
		}
		val, err := fs.GetDuration(name)
		if err != nil {
			return err
		}
		*dst = val
	}

	if fs.Changed("poll-repeats") {
		val, err := fs.GetInt("poll-repeats")
		if err != nil {
			return err
		}
		cfg.Poll.Repeats = val
	}
	if fs.Changed("rate-limit") {
		val, err := fs.GetFloat64("rate-limit")
		if err != nil {
			return err
		}
		cfg.RateLimit = val
	}
	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	if fs.Changed("error-model") {
		val, err := fs.GetStringSlice("error-model")
		if err != nil {
			return err
		}
		cfg.ErrorModels = normalizeNames(val)
	}

	if fs.Changed("extract") {
		vals, err := fs.GetStringSlice("extract")
		if err != nil {
			return err
		}
		extractions := make([]Extraction, 0, len(vals))
		for _, entry := range vals {
			ex, err := parseExtractFlag(entry)
			if err != nil {
				return err
			}
			extractions = append(extractions, ex)
		}
		cfg.Extract = extractions
	}

	vals, err := fs.GetStringSlice("header")
	if err != nil {
		return err
	}
	if len(vals) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for _, entry := range vals {
			parts := strings.SplitN(entry, "=", 2)
			if len(parts) != 2 {
				return fmt.Errorf("header must be in key=value format: %s", entry)
			}
			key := http.CanonicalHeaderKey(strings.TrimSpace(parts[0]))
			if key == "" {
				return fmt.Errorf("header key cannot be empty")
			}
			cfg.Headers[key] = strings.TrimSpace(parts[1])
		}
	}

	return nil
}

// parseExtractFlag parses "name=json:path" or "name=regex:pattern".
func parseExtractFlag(entry string) (Extraction, error) {
	name, rule, ok := strings.Cut(entry, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return Extraction{}, fmt.Errorf("extract must be in name=json:path or name=regex:pattern format: %s", entry)
	}
	kind, expr, ok := strings.Cut(rule, ":")
	if !ok || strings.TrimSpace(expr) == "" {
		return Extraction{}, fmt.Errorf("extract rule must be json:path or regex:pattern: %s", entry)
	}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "json":
		return Extraction{Variable: name, JSONPath: strings.TrimSpace(expr)}, nil
	case "regex":
		return Extraction{Variable: name, Regex: expr}, nil
	default:
		return Extraction{}, fmt.Errorf("unknown extract kind %q in %s", kind, entry)
	}
}

func normalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}
