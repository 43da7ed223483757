package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/torosent/callcheck/internal/classify"
	"github.com/torosent/callcheck/internal/config"
	"github.com/torosent/callcheck/internal/executor"
)

// CallReport is the rendered form of one resolved call.
type CallReport struct {
	Time           time.Time `json:"time" yaml:"time"`
	CallID         string    `json:"call_id" yaml:"call_id"`
	Service        string    `json:"service" yaml:"service"`
	Outcome        string    `json:"outcome" yaml:"outcome"`
	StatusCode     int       `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Status         string    `json:"status,omitempty" yaml:"status,omitempty"`
	ElapsedMs      float64   `json:"elapsed_ms" yaml:"elapsed_ms"`
	ErrorModel     string    `json:"error_model,omitempty" yaml:"error_model,omitempty"`
	TransportError string    `json:"transport_error,omitempty" yaml:"transport_error,omitempty"`
	// Body is the decoded JSON document, or the raw text for other bodies.
	Body any `json:"body,omitempty" yaml:"body,omitempty"`
}

// FromResult builds a report for res.
func FromResult[T any](res executor.Result[T]) CallReport {
	report := CallReport{
		Time:       time.Now().UTC(),
		CallID:     res.CallID,
		Service:    res.Service,
		Outcome:    res.Kind.String(),
		StatusCode: res.Outcome.StatusCode,
		Status:     res.Outcome.Status,
		ElapsedMs:  float64(res.Elapsed) / float64(time.Millisecond),
		ErrorModel: res.ErrorModel,
		Body:       bodyValue(res.Outcome.Body),
	}
	if res.TransportErr != nil {
		report.TransportError = res.TransportErr.Error()
	}
	return report
}

func bodyValue(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err == nil {
		return doc
	}
	return strings.TrimSpace(string(body))
}

// PrintCall writes report in the given format.
func PrintCall(w io.Writer, report CallReport, format config.OutputFormat) error {
	switch format {
	case config.OutputJSON:
		return writeJSON(w, report)
	case config.OutputYAML:
		return writeYAML(w, report)
	default:
		return printCallText(w, report)
	}
}

func printCallText(w io.Writer, report CallReport) error {
	fmt.Fprintf(w, "Call:     %s\n", report.CallID)
	fmt.Fprintf(w, "Service:  %s\n", report.Service)
	fmt.Fprintf(w, "Outcome:  %s\n", report.Outcome)
	if report.StatusCode > 0 {
		fmt.Fprintf(w, "Status:   %d %s\n", report.StatusCode, report.Status)
	}
	fmt.Fprintf(w, "Elapsed:  %.1fms\n", report.ElapsedMs)
	if report.ErrorModel != "" {
		fmt.Fprintf(w, "Model:    %s\n", report.ErrorModel)
	}
	if report.TransportError != "" {
		fmt.Fprintf(w, "Error:    %s\n", report.TransportError)
	}
	if report.Body == nil {
		return nil
	}

	var raw []byte
	switch body := report.Body.(type) {
	case string:
		raw = []byte(body)
	default:
		var err error
		if raw, err = json.Marshal(body); err != nil {
			return err
		}
	}
	// non-JSON bodies come back as plain text
	text, _ := classify.PrettyBody(raw)
	fmt.Fprintf(w, "Body:\n%s\n", text)
	return nil
}
