package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/torosent/callcheck/internal/config"
	"github.com/torosent/callcheck/internal/metrics"
)

// PrintSummary writes the per-service statistics of snap in the given format.
func PrintSummary(w io.Writer, snap metrics.Snapshot, format config.OutputFormat) error {
	switch format {
	case config.OutputJSON:
		return writeJSON(w, snap)
	case config.OutputYAML:
		return writeYAML(w, snap)
	default:
		printSummaryText(w, snap)
		return nil
	}
}

func printSummaryText(w io.Writer, snap metrics.Snapshot) {
	fmt.Fprintln(w, "\n--- Call Summary ---")
	fmt.Fprintf(w, "Total Calls:       %d\n", snap.Calls)
	fmt.Fprintf(w, "Duration:          %s\n", snap.Duration)

	for _, svc := range snap.Services {
		fmt.Fprintf(w, "\n%s: calls=%d\n", svc.Service, svc.Calls)
		outcomes := make([]string, 0, len(svc.Outcomes))
		for name := range svc.Outcomes {
			outcomes = append(outcomes, name)
		}
		sort.Strings(outcomes)
		for _, name := range outcomes {
			fmt.Fprintf(w, "  %-18s %d\n", name+":", svc.Outcomes[name])
		}
		fmt.Fprintf(w, "  Latency:          min=%s mean=%s p50=%s p90=%s p99=%s max=%s\n",
			svc.MinLatency, svc.MeanLatency, svc.P50Latency, svc.P90Latency, svc.P99Latency, svc.MaxLatency)
		if len(svc.Failures) > 0 {
			fmt.Fprintln(w, "  Transport Failures:")
			reasons := make([]string, 0, len(svc.Failures))
			for reason := range svc.Failures {
				reasons = append(reasons, reason)
			}
			sort.Strings(reasons)
			for _, reason := range reasons {
				fmt.Fprintf(w, "    %s: %d\n", reason, svc.Failures[reason])
			}
		}
	}

	if buckets := snap.StatusBuckets(); len(buckets) > 0 {
		fmt.Fprintln(w, "\nStatus Buckets:")
		for _, row := range buckets {
			fmt.Fprintf(w, "  %s %s: %d\n", row.Service, row.Code, row.Count)
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
