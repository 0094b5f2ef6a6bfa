package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/imishinist/mlflow-runs/internal/models"
	timeutils "github.com/imishinist/mlflow-runs/internal/time"
)

func validateOutput(output string) error {
	if output != "text" && output != "json" {
		return fmt.Errorf("invalid output format: %s (valid: text, json)", output)
	}
	return nil
}

func printRun(w io.Writer, run *models.Run, output string) error {
	if output == "json" {
		return writeJSON(w, run)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	if info := run.Info(); info != nil {
		fmt.Fprintf(tw, "Run ID:\t%s\n", stringOr(info.RunID))
		fmt.Fprintf(tw, "Run name:\t%s\n", stringOr(info.RunName))
		fmt.Fprintf(tw, "Experiment ID:\t%s\n", int64Or(info.ExperimentID))
		fmt.Fprintf(tw, "Status:\t%s\n", statusOr(info.Status))
		fmt.Fprintf(tw, "Start time:\t%s\n", timeutils.FormatMillis(info.StartTime))
		fmt.Fprintf(tw, "End time:\t%s\n", timeutils.FormatMillis(info.EndTime))
		if d, ok := timeutils.Duration(info.StartTime, info.EndTime, time.Now()); ok {
			fmt.Fprintf(tw, "Duration:\t%s\n", d)
		}
		fmt.Fprintf(tw, "Artifact URI:\t%s\n", info.ArtifactURI)
		fmt.Fprintf(tw, "Lifecycle stage:\t%s\n", info.LifecycleStage)
	}

	if data := run.Data(); data != nil {
		fmt.Fprintf(tw, "\nMetrics:\n")
		for _, metric := range sortedMetrics(data.Metrics) {
			fmt.Fprintf(tw, "  %s\t%g\t(step: %d, %s)\n", metric.Key, metric.Value, metric.Step,
				timeutils.FormatMillis(&metric.Timestamp))
		}

		fmt.Fprintf(tw, "\nParams:\n")
		params, ok := data.ParamMap()
		if !ok {
			fmt.Fprintf(tw, "  (not reported)\n")
		}
		for _, param := range sortedParams(params) {
			fmt.Fprintf(tw, "  %s\t%s\n", param.Key, param.Value)
		}

		tags := data.TagMap()
		if len(tags) > 0 {
			fmt.Fprintf(tw, "\nTags:\n")
			keys := make([]string, 0, len(tags))
			for key := range tags {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				fmt.Fprintf(tw, "  %s\t%s\n", key, tags[key])
			}
		}
	}

	return tw.Flush()
}

func printRuns(w io.Writer, runs []*models.Run, output string) error {
	if output == "json" {
		return writeJSON(w, map[string]any{"runs": runs})
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "RUN ID\tNAME\tSTATUS\tSTART TIME\n")
	for _, run := range runs {
		info := run.Info()
		if info == nil {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", stringOr(info.RunID), stringOr(info.RunName),
			statusOr(info.Status), timeutils.FormatMillis(info.StartTime))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

func sortedMetrics(metrics map[string]models.RunMetric) []models.RunMetric {
	result := make([]models.RunMetric, 0, len(metrics))
	for _, metric := range metrics {
		result = append(result, metric)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

func sortedParams(params map[string]models.RunParam) []models.RunParam {
	result := make([]models.RunParam, 0, len(params))
	for _, param := range params {
		result = append(result, param)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

func stringOr(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func int64Or(i *int64) string {
	if i == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *i)
}

func statusOr(s *models.RunStatus) string {
	if s == nil {
		return "-"
	}
	return s.String()
}
